// Package request implements spec.md §4.1's request parser: JSON decode
// and shape validation of the --input document into a Request the
// pipeline can walk.
package request

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Op names what the parser was attempting when a RequestError occurred.
type Op string

const (
	OpDecode   Op = "decode"
	OpValidate Op = "validate"
)

// RequestError wraps a malformed or incomplete top-level request
// document, spec.md §7. Terminal: no operations run.
type RequestError struct {
	Op  Op
	Err error
}

func (e RequestError) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return string(e.Op) + ": " + e.Err.Error()
}

func (e RequestError) Unwrap() error { return e.Err }

// Operation is one entry of Request.Operations: a tagged record of type
// and params, spec.md §3. Params stays a raw map so each operation
// handler (internal/pipeline) does its own field-level validation,
// per spec.md §9's "tagged-variant dispatch over a closed set".
type Operation struct {
	Type   string
	Params map[string]interface{}
}

// Request is the parsed and shape-validated --input document, spec.md §3.
type Request struct {
	InputURL        string
	CorrectRotation bool
	Operations      []Operation
}

// wireRequest mirrors the JSON shape before field-level validation.
type wireRequest struct {
	InputURL        *string          `json:"input_url"`
	CorrectRotation bool             `json:"correct_rotation"`
	Operations      *[]wireOperation `json:"operations"`
}

type wireOperation struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// Parse decodes and validates raw as a Request, per spec.md §4.1: must
// be a JSON object with a non-empty string input_url and an operations
// array (possibly empty). Unknown top-level keys are ignored. Any
// decode or shape failure returns a RequestError.
func Parse(raw string) (Request, error) {
	var wire wireRequest
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&wire); err != nil {
		return Request{}, RequestError{Op: OpDecode, Err: err}
	}

	if wire.InputURL == nil || *wire.InputURL == "" {
		return Request{}, RequestError{Op: OpValidate, Err: fmt.Errorf("input_url is required and must be a non-empty string")}
	}
	if wire.Operations == nil {
		return Request{}, RequestError{Op: OpValidate, Err: fmt.Errorf("operations is required and must be an array")}
	}

	// An operation's type is not validated here: an empty or unrecognized
	// type is not a request-shape failure, it's an unrecognized operation
	// (spec.md §4.7) isolated to that one operation by internal/pipeline's
	// dispatcher. Aborting the whole request here would violate
	// §3's "total_operations = len(operations) always".
	ops := make([]Operation, 0, len(*wire.Operations))
	for _, w := range *wire.Operations {
		ops = append(ops, Operation{Type: w.Type, Params: w.Params})
	}

	return Request{
		InputURL:        *wire.InputURL,
		CorrectRotation: wire.CorrectRotation,
		Operations:      ops,
	}, nil
}
