// Package codec is the narrow boundary spec.md §1/§6 calls the "codec
// collaborator": Decode(bytes) -> (pixels, format, orientation_tag) and
// Encode(pixels, format, quality) -> bytes, with metadata always
// stripped on encode. The metadata bundle itself is read separately by
// internal/metadata. Format is detected by content (spec.md §4.2), never
// by filename extension.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/tiff"

	"github.com/snapwire-media/arion-go/internal/orientation"
)

// Supported output formats, keyed by the lowercase extension Arion infers
// output_url's target format from (spec.md §6).
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatTIFF = "tiff"
)

// Op names a codec operation for DecodeError/EncodeError.
type Op string

const (
	OpRead   Op = "read"
	OpDecode Op = "decode"
	OpEncode Op = "encode"
)

// DecodeError wraps a failure reading or decoding image bytes.
type DecodeError struct {
	Op  Op
	Err error
}

func (e DecodeError) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return string(e.Op) + ": " + e.Err.Error()
}

func (e DecodeError) Unwrap() error { return e.Err }

// EncodeError wraps a failure encoding image bytes.
type EncodeError struct {
	Op  Op
	Err error
}

func (e EncodeError) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return string(e.Op) + ": " + e.Err.Error()
}

func (e EncodeError) Unwrap() error { return e.Err }

// Decoded is the codec collaborator's decode-side output.
type Decoded struct {
	Image       image.Image
	Format      string // "jpeg", "png", "tiff"
	Orientation orientation.Tag
}

// Decode detects the format by content, decodes pixel data, and extracts
// the EXIF orientation tag (JPEG only; other formats report Normal).
// Errors are DecodeError with Op "decode".
func Decode(data []byte) (Decoded, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, DecodeError{Op: OpDecode, Err: err}
	}

	tag := orientation.Normal
	if format == "jpeg" {
		if t, ok := ScanJPEGOrientation(data); ok {
			tag = t
		}
	}

	return Decoded{Image: img, Format: format, Orientation: tag}, nil
}

// Encode renders img in the given format at the requested quality
// (JPEG only; ignored for PNG/TIFF). strip_meta is implicit: none of
// these stdlib/x-image encoders emit IPTC/XMP or an EXIF orientation
// tag, so the output carries none (spec.md §4.3 "metadata is stripped by
// default"). The pixels are written as given; they are upright only when
// the source was loaded with correct_rotation.
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatJPEG:
		q := quality
		if q <= 0 || q > 100 {
			q = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, EncodeError{Op: OpEncode, Err: err}
		}
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, EncodeError{Op: OpEncode, Err: err}
		}
	case FormatTIFF:
		if err := tiff.Encode(&buf, img, nil); err != nil {
			return nil, EncodeError{Op: OpEncode, Err: err}
		}
	default:
		return nil, EncodeError{Op: OpEncode, Err: fmt.Errorf("unsupported output format %q", format)}
	}

	return buf.Bytes(), nil
}

// FormatFromExtension maps a lowercased filename extension (without the
// dot) to the encoder's format name. Returns ("", false) when
// unrecognized, per spec.md §4.3's "output format is implied by filename
// extension at the encoder interface".
func FormatFromExtension(ext string) (string, bool) {
	switch ext {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "tif", "tiff":
		return FormatTIFF, true
	default:
		return "", false
	}
}

// exifHeader is the "Exif\0\0" prefix of a JPEG APP1 segment carrying TIFF-
// structured EXIF data.
var exifHeader = []byte("Exif\x00\x00")

// ScanJPEGOrientation scans JPEG markers for the APP1 (EXIF) segment and
// extracts the Orientation tag (0x0112). Returns (0, false) for anything
// that isn't a well-formed JPEG with an orientation entry. Adapted from
// the teacher's exifOrientationJPEG/parseExifOrientation (go-phash decode.go).
func ScanJPEGOrientation(data []byte) (orientation.Tag, bool) {
	seg, ok := FindAPP1(data)
	if !ok {
		return 0, false
	}
	if len(seg) < 6 || !bytes.HasPrefix(seg, exifHeader) {
		return 0, false
	}
	v, ok := parseTIFFOrientation(seg[6:])
	if !ok {
		return 0, false
	}
	return orientation.Tag(v), true
}

// FindAPP1 locates the first APP1 (0xFFE1) segment in a JPEG byte stream
// and returns its payload (excluding the 2-byte length field), stopping
// at SOS/EOI like a real decoder would.
func FindAPP1(data []byte) ([]byte, bool) {
	return findAPPSegment(data, 0xE1)
}

// FindAPP13 locates the first APP13 (0xFFED, "Photoshop 3.0" IPTC/IRB)
// segment and returns its payload.
func FindAPP13(data []byte) ([]byte, bool) {
	return findAPPSegment(data, 0xED)
}

func findAPPSegment(data []byte, marker byte) ([]byte, bool) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, false
	}

	for i := 2; i+4 <= len(data); {
		if data[i] != 0xFF {
			i++
			continue
		}
		if i+1 >= len(data) {
			return nil, false
		}

		m := data[i+1]
		i += 2

		if m == 0xD9 || m == 0xDA {
			break
		}
		if m == 0x01 || (m >= 0xD0 && m <= 0xD7) {
			continue
		}
		if i+2 > len(data) {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i : i+2]))
		if segLen < 2 {
			break
		}
		segEnd := i + segLen
		if segEnd > len(data) {
			break
		}

		if m == marker {
			return data[i+2 : segEnd], true
		}

		i = segEnd
	}

	return nil, false
}

// parseTIFFOrientation reads the Orientation tag (0x0112) out of a TIFF
// IFD0, given the TIFF payload that follows the "Exif\0\0" header.
func parseTIFFOrientation(tiffData []byte) (int, bool) {
	if len(tiffData) < 8 {
		return 0, false
	}

	var order binary.ByteOrder
	switch {
	case tiffData[0] == 'I' && tiffData[1] == 'I':
		order = binary.LittleEndian
	case tiffData[0] == 'M' && tiffData[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, false
	}

	if order.Uint16(tiffData[2:4]) != 0x002A {
		return 0, false
	}

	ifdOffset := int(order.Uint32(tiffData[4:8]))
	if ifdOffset < 0 || ifdOffset+2 > len(tiffData) {
		return 0, false
	}

	entryCount := int(order.Uint16(tiffData[ifdOffset : ifdOffset+2]))
	if entryCount < 0 || entryCount > 256 {
		return 0, false
	}

	entriesBase := ifdOffset + 2
	for n := 0; n < entryCount; n++ {
		entryOffset := entriesBase + n*12
		if entryOffset+12 > len(tiffData) {
			break
		}

		tag := order.Uint16(tiffData[entryOffset : entryOffset+2])
		if tag != 0x0112 {
			continue
		}

		typ := order.Uint16(tiffData[entryOffset+2 : entryOffset+4])
		count := order.Uint32(tiffData[entryOffset+4 : entryOffset+8])
		if typ != 3 || count != 1 {
			return 0, false
		}

		value := order.Uint16(tiffData[entryOffset+8 : entryOffset+10])
		if value >= 1 && value <= 8 {
			return int(value), true
		}
		return 0, false
	}

	return 0, false
}
