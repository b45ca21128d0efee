// Package orientation implements the EXIF orientation transform
// described in spec.md §9: eight enum values, each with an associated
// pixel transform (identity, flip-h, rotate-180, flip-v, transpose,
// rotate-90-cw, transverse, rotate-90-ccw).
package orientation

import (
	"image"
)

// Tag is an EXIF orientation value, 1..8.
type Tag int

const (
	Normal      Tag = 1
	FlipH       Tag = 2
	Rotate180   Tag = 3
	FlipV       Tag = 4
	Transpose   Tag = 5
	Rotate90CW  Tag = 6
	Transverse  Tag = 7
	Rotate270CW Tag = 8
)

// Valid reports whether t is one of the eight recognized EXIF values.
func (t Tag) Valid() bool {
	return t >= Normal && t <= Rotate270CW
}

// Apply transforms img so the stored pixel at (0,0) corresponds to the
// upper-left of the visually upright image, per spec.md §4.2. Tag 1 (or
// any unrecognized value) returns img unchanged.
//
// All eight cases are expressed as a single coordinate mapping (output
// dimensions plus a destination-to-source pixel function) run through
// one generic remap loop, rather than eight standalone transforms —
// each orientation is just a different answer to "where does dst(x,y)
// come from", and every flip/rotate/transpose is some composition of
// swapping x and y and mirroring one or both.
func Apply(img image.Image, t Tag) image.Image {
	if !t.Valid() || t == Normal {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	outW, outH, srcAt := coordMap(t, w, h)
	return remap(img, b, outW, outH, srcAt)
}

// coordMap returns the output dimensions for a w×h source under tag t,
// and a function mapping a destination pixel (x,y) in
// [0,outW)×[0,outH) to the source pixel it is drawn from, in
// [0,w)×[0,h) (both relative to the image's bounds origin).
func coordMap(t Tag, w, h int) (outW, outH int, srcAt func(x, y int) (int, int)) {
	switch t {
	case FlipH:
		return w, h, func(x, y int) (int, int) { return w - 1 - x, y }
	case Rotate180:
		return w, h, func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case FlipV:
		return w, h, func(x, y int) (int, int) { return x, h - 1 - y }
	case Transpose:
		return h, w, func(x, y int) (int, int) { return y, x }
	case Rotate90CW:
		return h, w, func(x, y int) (int, int) { return y, h - 1 - x }
	case Transverse:
		return h, w, func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case Rotate270CW:
		return h, w, func(x, y int) (int, int) { return w - 1 - y, x }
	default:
		return w, h, func(x, y int) (int, int) { return x, y }
	}
}

// remap builds the outW×outH destination image by pulling each pixel
// from srcAt(x,y) in img. An *image.RGBA fast path walks both images'
// Pix slices directly; anything else falls back to At/Set.
func remap(img image.Image, b image.Rectangle, outW, outH int, srcAt func(x, y int) (int, int)) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))

	if src, ok := img.(*image.RGBA); ok {
		for y := 0; y < outH; y++ {
			do := dst.PixOffset(0, y)
			for x := 0; x < outW; x++ {
				sx, sy := srcAt(x, y)
				so := src.PixOffset(b.Min.X+sx, b.Min.Y+sy)
				copy(dst.Pix[do:do+4], src.Pix[so:so+4])
				do += 4
			}
		}
		return dst
	}

	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			sx, sy := srcAt(x, y)
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
