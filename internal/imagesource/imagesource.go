// Package imagesource implements the [SOURCE LOADER & ORIENTATION
// NORMALIZER] of spec.md §4.2: resolving input_url to bytes, invoking
// the codec collaborator, and normalizing orientation when requested.
package imagesource

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapwire-media/arion-go/internal/codec"
	"github.com/snapwire-media/arion-go/internal/fingerprint"
	"github.com/snapwire-media/arion-go/internal/metadata"
	"github.com/snapwire-media/arion-go/internal/orientation"
)

// Op names what the loader was attempting when a SourceLoadError
// occurred.
type Op string

const (
	OpResolve Op = "resolve"
	OpRead    Op = "read"
	OpDecode  Op = "decode"
)

// SourceLoadError wraps a failure resolving, reading, or decoding
// input_url, spec.md §7. Terminal: no operations run.
type SourceLoadError struct {
	Op  Op
	Err error
}

func (e SourceLoadError) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return string(e.Op) + ": " + e.Err.Error()
}

func (e SourceLoadError) Unwrap() error { return e.Err }

// Source is the loaded, orientation-normalized image, spec.md §3's
// SourceImage. RawBytes is the byte stream exactly as loaded (read by
// fingerprint and copy); Image is the (possibly reoriented) decoded
// pixel buffer.
type Source struct {
	Image  image.Image
	Format string
	Width  int
	Height int

	RawBytes []byte
	MD5      string

	Meta            metadata.Bundle
	CorrectRotation bool

	// OriginalOrientation is the tag as read from the source bytes,
	// before any normalization — unlike Meta.Orientation (which is
	// cleared to Normal once CorrectRotation has been applied), this
	// always reflects what the source actually carried. internal/pipeline
	// uses it to decide whether a copy needs re-encoding.
	OriginalOrientation orientation.Tag
}

// ResolvePath strips an optional file:// prefix and resolves the
// remaining path against the process's current working directory when
// relative, spec.md §6 ("URL scheme").
func ResolvePath(inputURL string) (string, error) {
	path := strings.TrimPrefix(inputURL, "file://")
	if path == "" {
		return "", fmt.Errorf("input_url resolves to an empty path")
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, path), nil
}

// Load resolves inputURL, reads its bytes, decodes pixels and metadata
// via the codec/metadata collaborators, and applies orientation
// normalization when correctRotation is true, per spec.md §4.2. Width
// and Height reflect the image post-orientation, per spec.md §3's
// invariant.
func Load(inputURL string, correctRotation bool) (Source, error) {
	path, err := ResolvePath(inputURL)
	if err != nil {
		return Source{}, SourceLoadError{Op: OpResolve, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, SourceLoadError{Op: OpRead, Err: err}
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		return Source{}, SourceLoadError{Op: OpDecode, Err: err}
	}

	img := decoded.Image
	if correctRotation {
		img = orientation.Apply(img, decoded.Orientation)
	}

	b := img.Bounds()

	meta := metadata.Read(data)
	if correctRotation {
		meta.Orientation = orientation.Normal
	}

	return Source{
		Image:               img,
		Format:              decoded.Format,
		Width:               b.Dx(),
		Height:              b.Dy(),
		RawBytes:            data,
		MD5:                 fingerprint.Sum(data),
		Meta:                meta,
		CorrectRotation:     correctRotation,
		OriginalOrientation: decoded.Orientation,
	}, nil
}
