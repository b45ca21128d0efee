package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/snapwire-media/arion-go/internal/imagesource"
	"github.com/snapwire-media/arion-go/internal/request"
)

func writeJPEGFixture(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func loadFixture(t *testing.T, dir string, w, h int) imagesource.Source {
	t.Helper()
	path := writeJPEGFixture(t, dir, "source.jpg", w, h)
	src, err := imagesource.Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return src
}

func dims(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestResizeWidthBasic(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 1296, 864)
	out := filepath.Join(dir, "out.jpg")

	req := request.Request{Operations: []request.Operation{
		{Type: "resize", Params: map[string]interface{}{
			"type": "width", "width": float64(200), "height": float64(1000),
			"quality": float64(50), "output_url": out,
		}},
	}}

	top := Run(src, req)
	if !top.Result || top.FailedOperations != 0 {
		t.Fatalf("expected success, got %+v", top)
	}
	if *top.Width != 1296 || *top.Height != 864 {
		t.Fatalf("top width/height = %d/%d, want 1296/864", *top.Width, *top.Height)
	}
	w, h := dims(t, out)
	if w != 200 || h != 133 {
		t.Fatalf("output dims = %dx%d, want 200x133", w, h)
	}
}

func TestResizeHeightDominated(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 1296, 864)
	out := filepath.Join(dir, "out.jpg")

	req := request.Request{Operations: []request.Operation{
		{Type: "resize", Params: map[string]interface{}{
			"type": "height", "width": float64(1000), "height": float64(200),
			"output_url": out,
		}},
	}}
	top := Run(src, req)
	if !top.Result {
		t.Fatalf("expected success, got %+v", top)
	}
	w, h := dims(t, out)
	if w != 300 || h != 200 {
		t.Fatalf("output dims = %dx%d, want 300x200", w, h)
	}
}

func TestResizeWidthDominatedWithCap(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 1296, 864)
	out := filepath.Join(dir, "out.jpg")

	req := request.Request{Operations: []request.Operation{
		{Type: "resize", Params: map[string]interface{}{
			"type": "width", "width": float64(200), "height": float64(120),
			"output_url": out,
		}},
	}}
	top := Run(src, req)
	if !top.Result {
		t.Fatalf("expected success, got %+v", top)
	}
	w, h := dims(t, out)
	if w != 180 || h != 120 {
		t.Fatalf("output dims = %dx%d, want 180x120", w, h)
	}
}

func TestResizeSquare(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 1296, 864)
	out := filepath.Join(dir, "out.jpg")

	req := request.Request{Operations: []request.Operation{
		{Type: "resize", Params: map[string]interface{}{
			"type": "square", "width": float64(200), "height": float64(2000),
			"output_url": out,
		}},
	}}
	top := Run(src, req)
	if !top.Result {
		t.Fatalf("expected success, got %+v", top)
	}
	w, h := dims(t, out)
	if w != 200 || h != 200 {
		t.Fatalf("output dims = %dx%d, want 200x200", w, h)
	}
}

func TestFingerprintOperation(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 64, 64)

	req := request.Request{Operations: []request.Operation{
		{Type: "fingerprint", Params: map[string]interface{}{"type": "md5"}},
	}}
	top := Run(src, req)
	if !top.Result {
		t.Fatalf("expected success, got %+v", top)
	}
	if top.Info[0].MD5 != src.MD5 {
		t.Fatalf("fingerprint md5 %q != source md5 %q", top.Info[0].MD5, src.MD5)
	}
	if top.MD5 != src.MD5 {
		t.Fatalf("top-level md5 %q != source md5 %q", top.MD5, src.MD5)
	}
}

func TestValidationFailures(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 100, 100)
	out := filepath.Join(dir, "out.jpg")

	cases := []struct {
		name string
		op   request.Operation
	}{
		{"resize missing type", request.Operation{Type: "resize", Params: map[string]interface{}{"width": float64(10), "height": float64(10), "output_url": out}}},
		{"resize missing width", request.Operation{Type: "resize", Params: map[string]interface{}{"type": "width", "height": float64(10), "output_url": out}}},
		{"resize missing height", request.Operation{Type: "resize", Params: map[string]interface{}{"type": "width", "width": float64(10), "output_url": out}}},
		{"resize dimension over cap", request.Operation{Type: "resize", Params: map[string]interface{}{"type": "width", "width": float64(10000), "height": float64(10001), "output_url": out}}},
		{"copy missing output_url", request.Operation{Type: "copy", Params: map[string]interface{}{}}},
		{"copy empty output_url", request.Operation{Type: "copy", Params: map[string]interface{}{"output_url": ""}}},
		{"read_meta no params", request.Operation{Type: "read_meta", Params: nil}},
		{"unknown operation type", request.Operation{Type: "invalid", Params: map[string]interface{}{}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := request.Request{Operations: []request.Operation{c.op}}
			top := Run(src, req)
			if top.Result {
				t.Fatalf("expected failure for %s", c.name)
			}
			if top.FailedOperations != 1 {
				t.Fatalf("FailedOperations = %d, want 1", top.FailedOperations)
			}
			if top.Info[0].Error == "" {
				t.Fatalf("expected a non-empty error string")
			}
		})
	}
}

func TestReadMetaOperation(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 32, 32)

	req := request.Request{Operations: []request.Operation{
		{Type: "read_meta", Params: map[string]interface{}{"info": true}},
	}}
	top := Run(src, req)
	if !top.Result {
		t.Fatalf("expected success, got %+v", top)
	}
}

func TestFillGravities(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 100, 200)

	for _, g := range []string{"center", "west", "east"} {
		out := filepath.Join(dir, g+".jpg")
		req := request.Request{Operations: []request.Operation{
			{Type: "resize", Params: map[string]interface{}{
				"type": "fill", "width": float64(50), "height": float64(200),
				"gravity": g, "output_url": out,
			}},
		}}
		top := Run(src, req)
		if !top.Result {
			t.Fatalf("gravity %s: expected success, got %+v", g, top)
		}
		w, h := dims(t, out)
		if w != 50 || h != 200 {
			t.Fatalf("gravity %s: dims = %dx%d, want 50x200", g, w, h)
		}
	}
}

func TestSquareRejectsNonDefaultGravity(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 100, 100)
	out := filepath.Join(dir, "out.jpg")

	req := request.Request{Operations: []request.Operation{
		{Type: "resize", Params: map[string]interface{}{
			"type": "square", "width": float64(50), "height": float64(50),
			"gravity": "north", "output_url": out,
		}},
	}}
	top := Run(src, req)
	if top.Result {
		t.Fatalf("expected square+non-default gravity to fail validation")
	}
}

func TestCopyOperation(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 10, 10)
	out := filepath.Join(dir, "copy.jpg")

	req := request.Request{Operations: []request.Operation{
		{Type: "copy", Params: map[string]interface{}{"output_url": out}},
	}}
	top := Run(src, req)
	if !top.Result {
		t.Fatalf("expected success, got %+v", top)
	}
	copied, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(copied, src.RawBytes) {
		t.Fatalf("copy should be byte-identical when correct_rotation is false")
	}
}

func TestOrderedInfoAndCounts(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 20, 20)

	req := request.Request{Operations: []request.Operation{
		{Type: "fingerprint", Params: map[string]interface{}{"type": "md5"}},
		{Type: "invalid", Params: map[string]interface{}{}},
		{Type: "read_meta", Params: map[string]interface{}{"info": true}},
	}}
	top := Run(src, req)
	if top.TotalOperations != 3 {
		t.Fatalf("TotalOperations = %d, want 3", top.TotalOperations)
	}
	if top.FailedOperations != 1 {
		t.Fatalf("FailedOperations = %d, want 1", top.FailedOperations)
	}
	if top.Result {
		t.Fatalf("top-level result should be false when any operation failed")
	}
	wantTypes := []string{"fingerprint", "invalid", "read_meta"}
	for i, want := range wantTypes {
		if top.Info[i].Type != want {
			t.Fatalf("info[%d].Type = %q, want %q (order must be preserved)", i, top.Info[i].Type, want)
		}
	}
}

func TestMissingOperationTypeIsolatedToOneFailure(t *testing.T) {
	dir := t.TempDir()
	src := loadFixture(t, dir, 20, 20)

	// A request.Operation with no type (as request.Parse produces for a
	// JSON operation object missing "type") must not abort the whole
	// request: it's dispatch.default's "unknown operation type" bucket,
	// isolated the same way type:"invalid" is.
	req := request.Request{Operations: []request.Operation{
		{Type: "fingerprint", Params: map[string]interface{}{"type": "md5"}},
		{Type: "", Params: map[string]interface{}{}},
		{Type: "read_meta", Params: map[string]interface{}{"info": true}},
	}}
	top := Run(src, req)

	if top.TotalOperations != 3 {
		t.Fatalf("TotalOperations = %d, want 3", top.TotalOperations)
	}
	if top.FailedOperations != 1 {
		t.Fatalf("FailedOperations = %d, want 1", top.FailedOperations)
	}
	if !top.Info[0].Result || top.Info[2].Result != true {
		t.Fatalf("operations 1 and 3 should still have executed: %+v", top.Info)
	}
	if top.Info[1].Result {
		t.Fatalf("the empty-type operation should be the one failure")
	}
}
