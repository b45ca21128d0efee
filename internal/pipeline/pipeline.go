// Package pipeline implements the [DISPATCHER & AGGREGATOR] of
// spec.md §4.7: walking the validated operation list in request order,
// dispatching each to its component, and assembling the TopResult.
package pipeline

import (
	"fmt"
	"image"
	"os"

	"github.com/snapwire-media/arion-go/internal/codec"
	"github.com/snapwire-media/arion-go/internal/fingerprint"
	"github.com/snapwire-media/arion-go/internal/geometry"
	"github.com/snapwire-media/arion-go/internal/imagesource"
	"github.com/snapwire-media/arion-go/internal/orientation"
	"github.com/snapwire-media/arion-go/internal/request"
	"github.com/snapwire-media/arion-go/internal/resultdoc"
	"github.com/snapwire-media/arion-go/internal/watermark"
)

// Op names what an operation was attempting when it failed, used by
// OperationValidationError/OperationExecutionError.
type Op string

const (
	OpValidate Op = "validate"
	OpExecute  Op = "execute"
)

// OperationValidationError wraps a missing/invalid param, unknown
// operation type, or out-of-range dimension, spec.md §7. Isolated to
// one operation; the pipeline continues.
type OperationValidationError struct {
	Op  Op
	Err error
}

func (e OperationValidationError) Error() string { return e.Err.Error() }
func (e OperationValidationError) Unwrap() error  { return e.Err }

// OperationExecutionError wraps an encode failure, unwritable output,
// or compositor failure, spec.md §7. Isolated to one operation.
type OperationExecutionError struct {
	Op  Op
	Err error
}

func (e OperationExecutionError) Error() string { return e.Err.Error() }
func (e OperationExecutionError) Unwrap() error  { return e.Err }

const (
	typeResize      = "resize"
	typeReadMeta    = "read_meta"
	typeFingerprint = "fingerprint"
	typeCopy        = "copy"
)

// Run executes req's operation list in order against src and returns
// the assembled TopResult, spec.md §4.7. It never returns an error:
// every per-operation failure is isolated into a failed OperationResult,
// per spec.md §7's "errors within one operation never abort later
// operations".
func Run(src imagesource.Source, req request.Request) resultdoc.TopResult {
	info := make([]resultdoc.OperationResult, 0, len(req.Operations))
	failed := 0

	for _, op := range req.Operations {
		result := dispatch(src, op)
		if !result.Result {
			failed++
		}
		info = append(info, result)
	}

	return resultdoc.TopResult{
		Result:           failed == 0,
		TotalOperations:  len(req.Operations),
		FailedOperations: failed,
		Width:            resultdoc.IntPtr(src.Width),
		Height:           resultdoc.IntPtr(src.Height),
		MD5:              src.MD5,
		Info:             info,
	}
}

func dispatch(src imagesource.Source, op request.Operation) resultdoc.OperationResult {
	switch op.Type {
	case typeResize:
		return runResize(src, op.Params)
	case typeReadMeta:
		return runReadMeta(src, op.Params)
	case typeFingerprint:
		return runFingerprint(src, op.Params)
	case typeCopy:
		return runCopy(src, op.Params)
	default:
		return failure(op.Type, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("unknown operation type %q", op.Type)})
	}
}

func failure(opType string, err error) resultdoc.OperationResult {
	return resultdoc.OperationResult{Type: opType, Result: false, Error: err.Error()}
}

func success(opType string) resultdoc.OperationResult {
	return resultdoc.OperationResult{Type: opType, Result: true}
}

// --- read_meta -------------------------------------------------------

func runReadMeta(src imagesource.Source, params map[string]interface{}) resultdoc.OperationResult {
	if params == nil {
		return failure(typeReadMeta, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("read_meta requires params")})
	}
	if _, ok := params["info"]; !ok {
		return failure(typeReadMeta, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("read_meta requires params.info")})
	}
	if _, ok := params["info"].(bool); !ok {
		return failure(typeReadMeta, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("params.info must be a boolean")})
	}

	meta := src.Meta
	r := success(typeReadMeta)
	r.Meta = &meta
	return r
}

// --- fingerprint -------------------------------------------------------

func runFingerprint(src imagesource.Source, params map[string]interface{}) resultdoc.OperationResult {
	algo, ok := stringParam(params, "type")
	if !ok || algo == "" {
		return failure(typeFingerprint, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("fingerprint requires params.type")})
	}

	var fp fingerprint.MD5Fingerprinter
	digest, err := fp.Fingerprint(fingerprint.Algorithm(algo), src.RawBytes)
	if err != nil {
		return failure(typeFingerprint, OperationValidationError{Op: OpValidate, Err: err})
	}

	r := success(typeFingerprint)
	r.MD5 = digest
	return r
}

// --- copy -------------------------------------------------------

func runCopy(src imagesource.Source, params map[string]interface{}) resultdoc.OperationResult {
	outputURL, ok := stringParam(params, "output_url")
	if !ok || outputURL == "" {
		return failure(typeCopy, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("copy requires a non-empty params.output_url")})
	}

	outPath, err := imagesource.ResolvePath(outputURL)
	if err != nil {
		return failure(typeCopy, OperationExecutionError{Op: OpExecute, Err: err})
	}

	payload := src.RawBytes
	if src.CorrectRotation && src.OriginalOrientation != orientation.Normal {
		encoded, err := codec.Encode(src.Image, src.Format, 0)
		if err != nil {
			return failure(typeCopy, OperationExecutionError{Op: OpExecute, Err: err})
		}
		payload = encoded
	}

	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return failure(typeCopy, OperationExecutionError{Op: OpExecute, Err: err})
	}

	return success(typeCopy)
}

// --- resize -------------------------------------------------------

func runResize(src imagesource.Source, params map[string]interface{}) resultdoc.OperationResult {
	typ, ok := stringParam(params, "type")
	if !ok || typ == "" {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("resize requires params.type")})
	}
	if !validResizeType(geometry.Type(typ)) {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("unrecognized resize type %q", typ)})
	}

	rw, ok := intParam(params, "width")
	if !ok {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("resize requires params.width")})
	}
	rh, ok := intParam(params, "height")
	if !ok {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("resize requires params.height")})
	}
	if rw > geometry.MaxDimension || rh > geometry.MaxDimension {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("requested dimensions %dx%d exceed the %d px limit", rw, rh, geometry.MaxDimension)})
	}
	if rw <= 0 || rh <= 0 {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("requested dimensions must be positive, got %dx%d", rw, rh)})
	}

	outputURL, ok := stringParam(params, "output_url")
	if !ok || outputURL == "" {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("resize requires a non-empty params.output_url")})
	}

	gravity := geometry.Center
	if g, ok := stringParam(params, "gravity"); ok && g != "" {
		gravity = geometry.Gravity(g)
		if !geometry.ValidGravity(gravity) {
			return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("unrecognized gravity %q", g)})
		}
	}
	if geometry.Type(typ) == geometry.Square && gravity != geometry.Center {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("square resize does not accept a non-default gravity")})
	}

	resized, err := geometry.Resize(src.Image, rw, rh, geometry.Type(typ), gravity)
	if err != nil {
		return failure(typeResize, OperationValidationError{Op: OpValidate, Err: err})
	}

	if watermarkURL, ok := stringParam(params, "watermark_url"); ok && watermarkURL != "" {
		resized, err = applyWatermark(resized, watermarkURL, params)
		if err != nil {
			return failure(typeResize, err)
		}
	}

	quality := 0
	if q, ok := intParam(params, "quality"); ok {
		quality = q
	}

	outPath, err := imagesource.ResolvePath(outputURL)
	if err != nil {
		return failure(typeResize, OperationExecutionError{Op: OpExecute, Err: err})
	}
	outFormat, ok := codec.FormatFromExtension(extensionOf(outputURL))
	if !ok {
		return failure(typeResize, OperationExecutionError{Op: OpExecute, Err: fmt.Errorf("unrecognized output extension for %q", outputURL)})
	}

	encoded, err := codec.Encode(resized, outFormat, quality)
	if err != nil {
		return failure(typeResize, OperationExecutionError{Op: OpExecute, Err: err})
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return failure(typeResize, OperationExecutionError{Op: OpExecute, Err: err})
	}

	return success(typeResize)
}

// applyWatermark loads the watermark image and composites it onto
// base per params' watermark_type (spec.md §4.4). The watermark image
// is always loaded without orientation correction — spec.md §4.4 treats
// it as a plain overlay asset, not a source with its own rotation
// semantics.
func applyWatermark(base image.Image, watermarkURL string, params map[string]interface{}) (image.Image, error) {
	wmSrc, err := imagesource.Load(watermarkURL, false)
	if err != nil {
		return nil, OperationExecutionError{Op: OpExecute, Err: fmt.Errorf("loading watermark_url: %w", err)}
	}

	wmType, _ := stringParam(params, "watermark_type")
	switch watermark.Type(wmType) {
	case watermark.Standard:
		amount, ok := floatParam(params, "watermark_amount")
		if !ok {
			return nil, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("watermark_type standard requires params.watermark_amount")}
		}
		out, err := watermark.ApplyStandard(base, wmSrc.Image, amount)
		if err != nil {
			return nil, OperationValidationError{Op: OpValidate, Err: err}
		}
		return out, nil

	case watermark.Adaptive:
		wMin, okMin := floatParam(params, "watermark_min")
		wMax, okMax := floatParam(params, "watermark_max")
		if !okMin || !okMax {
			return nil, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("watermark_type adaptive requires params.watermark_min and params.watermark_max")}
		}
		out, err := watermark.ApplyAdaptive(base, wmSrc.Image, wMin, wMax)
		if err != nil {
			return nil, OperationValidationError{Op: OpValidate, Err: err}
		}
		return out, nil

	default:
		return nil, OperationValidationError{Op: OpValidate, Err: fmt.Errorf("unrecognized watermark_type %q", wmType)}
	}
}

func validResizeType(t geometry.Type) bool {
	switch t {
	case geometry.Width, geometry.Height, geometry.Square, geometry.Fill:
		return true
	default:
		return false
	}
}

func extensionOf(url string) string {
	i := len(url) - 1
	for i >= 0 && url[i] != '.' {
		i--
	}
	if i < 0 {
		return ""
	}
	ext := url[i+1:]
	out := make([]byte, len(ext))
	for j, c := range []byte(ext) {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[j] = c
	}
	return string(out)
}

func stringParam(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intParam(params map[string]interface{}, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func floatParam(params map[string]interface{}, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
