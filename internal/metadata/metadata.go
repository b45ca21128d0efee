// Package metadata implements the read-side of the "metadata
// collaborator" spec.md §1/§6 treats as an external boundary: it turns
// raw source bytes into the structured bundle of spec.md §3 (IPTC
// fields and EXIF orientation; passthrough blocks are not carried, and
// model_released/property_released are never read from the source, so
// they are always false). No repo in the
// retrieval pack parses IPTC IIM records, so this is implemented
// directly against the IIM binary layout rather than grounded on a
// third-party library (see DESIGN.md).
package metadata

import (
	"encoding/binary"

	"github.com/snapwire-media/arion-go/internal/codec"
	"github.com/snapwire-media/arion-go/internal/orientation"
)

// Bundle is the structured metadata view of spec.md §3. Missing fields
// are represented as empty string / empty slice / false, never as a
// distinct "absent" value, matching the observed output contract
// (spec.md "Design notes").
type Bundle struct {
	City                string
	ProvinceState       string
	CountryName         string
	CountryCode         string
	Copyright           string
	Caption             string
	SpecialInstructions string
	Subject             string
	Keywords            []string
	ModelReleased       bool
	PropertyReleased    bool
	Orientation         orientation.Tag
}

// photoshopHeader is the "Photoshop 3.0\x00" prefix of a JPEG APP13
// segment that carries Image Resource Blocks (IRB).
var photoshopHeader = []byte("Photoshop 3.0\x00")

// iptcResourceID is the IRB resource ID for the embedded "IPTC-NAA
// record" (the IIM dataset stream).
const iptcResourceID = 0x0404

// IIM dataset numbers within record 2 (the Application Record).
const (
	dsKeywords            = 25
	dsSpecialInstructions = 40
	dsCity                = 90
	dsProvinceState       = 95
	dsCountryCode         = 100
	dsCountryName         = 101
	dsCaption             = 120
	dsCopyright           = 116
	dsSubject             = 103
)

// Read extracts the metadata bundle from raw image bytes. Unsupported
// formats, or JPEGs carrying no APP13/EXIF segment, yield a zero-value
// Bundle (Orientation defaults to Normal) rather than an error — a
// missing metadata collaborator response is not itself a failure; only
// the codec collaborator's decode failure is (spec.md §4.2).
func Read(data []byte) Bundle {
	var b Bundle
	b.Orientation = orientation.Normal

	if tag, ok := codec.ScanJPEGOrientation(data); ok {
		b.Orientation = tag
	}

	seg, ok := codec.FindAPP13(data)
	if !ok {
		return b
	}
	if len(seg) < len(photoshopHeader) || string(seg[:len(photoshopHeader)]) != string(photoshopHeader) {
		return b
	}

	iim, ok := findIPTCResource(seg[len(photoshopHeader):])
	if !ok {
		return b
	}

	applyIIMDatasets(&b, iim)
	return b
}

// findIPTCResource walks the 8BIM Image Resource Blocks following the
// Photoshop header and returns the payload of resource 0x0404.
func findIPTCResource(data []byte) ([]byte, bool) {
	i := 0
	for i+8 <= len(data) {
		if string(data[i:i+4]) != "8BIM" {
			return nil, false
		}
		resourceID := binary.BigEndian.Uint16(data[i+4 : i+6])
		i += 6

		if i >= len(data) {
			return nil, false
		}
		nameLen := int(data[i])
		i++
		i += nameLen
		// Pascal strings (including the length byte) are padded to an
		// even total length.
		if (nameLen+1)%2 != 0 {
			i++
		}

		if i+4 > len(data) {
			return nil, false
		}
		dataLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if dataLen < 0 || i+dataLen > len(data) {
			return nil, false
		}
		payload := data[i : i+dataLen]
		i += dataLen
		if dataLen%2 != 0 {
			i++ // data is padded to an even length too
		}

		if resourceID == iptcResourceID {
			return payload, true
		}
	}
	return nil, false
}

// applyIIMDatasets walks IIM dataset records (marker 0x1C, record,
// dataset, big-endian length, value) and fills in the recognized
// Application Record (record 2) fields.
func applyIIMDatasets(b *Bundle, data []byte) {
	i := 0
	for i+5 <= len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		record := data[i+1]
		dataset := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5

		// Extended dataset length (high bit set) isn't produced by any
		// fixture in scope; treat it as end-of-stream rather than
		// mis-parsing subsequent records.
		if length&0x8000 != 0 {
			break
		}
		if i+length > len(data) {
			break
		}
		value := string(data[i : i+length])
		i += length

		if record != 2 {
			continue
		}

		switch dataset {
		case dsKeywords:
			b.Keywords = append(b.Keywords, value)
		case dsSpecialInstructions:
			b.SpecialInstructions = value
		case dsCity:
			b.City = value
		case dsProvinceState:
			b.ProvinceState = value
		case dsCountryCode:
			b.CountryCode = value
		case dsCountryName:
			b.CountryName = value
		case dsCaption:
			b.Caption = value
		case dsCopyright:
			b.Copyright = value
		case dsSubject:
			b.Subject = value
		}
	}
}
