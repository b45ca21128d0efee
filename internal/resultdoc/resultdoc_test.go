package resultdoc

import (
	"encoding/json"
	"testing"

	"github.com/snapwire-media/arion-go/internal/metadata"
)

func TestEncodeFailureShape(t *testing.T) {
	doc := NewFailure()
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["result"] != false {
		t.Fatalf("result = %v, want false", decoded["result"])
	}
	if decoded["total_operations"].(float64) != 0 {
		t.Fatalf("total_operations = %v, want 0", decoded["total_operations"])
	}
	if _, present := decoded["width"]; present {
		t.Fatalf("width should be omitted on a failed load")
	}
	info, ok := decoded["info"].([]interface{})
	if !ok || len(info) != 0 {
		t.Fatalf("info should be an empty array, got %v", decoded["info"])
	}
}

func TestOperationResultReadMetaAlwaysIncludesBundleFields(t *testing.T) {
	op := OperationResult{
		Type:   "read_meta",
		Result: true,
		Meta:   &metadata.Bundle{},
	}
	out, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	for _, key := range []string{"city", "province_state", "country_name", "country_code",
		"copyright", "caption", "special_instructions", "subject", "keywords",
		"model_released", "property_released"} {
		if _, present := decoded[key]; !present {
			t.Fatalf("expected key %q to always be present on read_meta, even when empty", key)
		}
	}
	if decoded["model_released"] != false {
		t.Fatalf("model_released = %v, want false", decoded["model_released"])
	}
	keywords, ok := decoded["keywords"].([]interface{})
	if !ok || len(keywords) != 0 {
		t.Fatalf("keywords should be an empty array, got %v", decoded["keywords"])
	}
}

func TestOperationResultFingerprintIncludesMD5(t *testing.T) {
	op := OperationResult{Type: "fingerprint", Result: true, MD5: "abc123"}
	out, _ := json.Marshal(op)

	var decoded map[string]interface{}
	_ = json.Unmarshal(out, &decoded)
	if decoded["md5"] != "abc123" {
		t.Fatalf("md5 = %v, want abc123", decoded["md5"])
	}
	if _, present := decoded["city"]; present {
		t.Fatalf("fingerprint results should not carry metadata bundle fields")
	}
}

func TestTopResultWidthHeightPresentOnSuccess(t *testing.T) {
	doc := TopResult{
		Result:          true,
		TotalOperations: 0,
		Width:           IntPtr(1296),
		Height:          IntPtr(864),
		MD5:             "c8d342a627da420e77c2e90a10f75689",
		Info:            []OperationResult{},
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded map[string]interface{}
	_ = json.Unmarshal(out, &decoded)
	if decoded["width"].(float64) != 1296 {
		t.Fatalf("width = %v, want 1296", decoded["width"])
	}
	if decoded["md5"] != "c8d342a627da420e77c2e90a10f75689" {
		t.Fatalf("md5 = %v", decoded["md5"])
	}
}
