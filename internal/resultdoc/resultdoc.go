// Package resultdoc defines the JSON-shaped result types of spec.md §3
// and §6 (TopResult, OperationResult) and the compact encoder cmd/arion
// writes to stdout.
package resultdoc

import (
	"encoding/json"

	"github.com/snapwire-media/arion-go/internal/metadata"
)

// OperationResult is one entry in TopResult.Info, spec.md §3/§6. Only
// the fields relevant to Type are populated: MD5 for "fingerprint",
// Meta for "read_meta". Marshaled with a custom encoder so those extra
// fields appear flattened into the object (never as a nested "meta" key)
// and so read_meta's bundle fields are always present — never omitted —
// even when empty, matching spec.md's "Missing IPTC fields are
// represented as empty string / empty list / false, not as a distinct
// 'absent' value".
type OperationResult struct {
	Type   string
	Result bool
	Error  string

	MD5  string // set when Type == "fingerprint" and Result
	Meta *metadata.Bundle // set when Type == "read_meta" and Result
}

// MarshalJSON implements the flattened encoding described above.
func (r OperationResult) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"type":   r.Type,
		"result": r.Result,
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.MD5 != "" {
		m["md5"] = r.MD5
	}
	if r.Meta != nil {
		keywords := r.Meta.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		m["city"] = r.Meta.City
		m["province_state"] = r.Meta.ProvinceState
		m["country_name"] = r.Meta.CountryName
		m["country_code"] = r.Meta.CountryCode
		m["copyright"] = r.Meta.Copyright
		m["caption"] = r.Meta.Caption
		m["special_instructions"] = r.Meta.SpecialInstructions
		m["subject"] = r.Meta.Subject
		m["keywords"] = keywords
		m["model_released"] = r.Meta.ModelReleased
		m["property_released"] = r.Meta.PropertyReleased
	}
	return json.Marshal(m)
}

// TopResult is the structured document emitted on stdout, spec.md §3/§6,
// with the SPEC_FULL.md-supplemented top-level MD5 field (the original
// snapwire-media/arion functional test suite asserts this on every
// successful response, independent of any fingerprint operation).
type TopResult struct {
	Result            bool              `json:"result"`
	TotalOperations   int               `json:"total_operations"`
	FailedOperations  int               `json:"failed_operations"`
	Width             *int              `json:"width,omitempty"`
	Height            *int              `json:"height,omitempty"`
	MD5               string            `json:"md5,omitempty"`
	Info              []OperationResult `json:"info"`
}

// NewFailure builds the top-level failure shape for a RequestError or
// SourceLoadError (spec.md §4.1/§4.2/§7): result=false,
// total_operations=0, failed_operations=0, no operations executed, no
// width/height/md5.
func NewFailure() TopResult {
	return TopResult{
		Result: false,
		Info:   []OperationResult{},
	}
}

// Encode renders doc as compact UTF-8 JSON, per spec.md §4.7 ("compact
// separators and UTF-8 encoding").
func Encode(doc TopResult) ([]byte, error) {
	if doc.Info == nil {
		doc.Info = []OperationResult{}
	}
	return json.Marshal(doc)
}

// IntPtr is a small helper for callers assembling a TopResult's
// Width/Height pointers (internal/pipeline).
func IntPtr(v int) *int { return &v }
