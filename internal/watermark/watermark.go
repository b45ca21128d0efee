// Package watermark implements the adaptive compositor of spec.md §4.4:
// a fixed-opacity "standard" overlay and an adaptive overlay whose size
// and opacity scale with the output's dimensions relative to the
// watermark's native size. Grounded on the golang.org/x/image/draw
// alpha-compositing idiom used by the Watermarck example in the
// retrieval pack (other_examples/..._Watermarck__optimizer-main.go.go),
// generalized from text overlays to image overlays per spec.md's
// `watermark_url`.
package watermark

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Type selects the sizing/opacity policy, spec.md §4.4.
type Type string

const (
	Standard Type = "standard"
	Adaptive Type = "adaptive"
)

// ApplyStandard composites wm onto base at a fixed relative size (target
// watermark width = base's width, aspect preserved) and a fixed
// opacity.
func ApplyStandard(base, wm image.Image, amount float64) (image.Image, error) {
	if amount < 0 || amount > 1 {
		return nil, fmt.Errorf("watermark_amount must be within [0,1], got %v", amount)
	}

	bb := base.Bounds()
	wb := wm.Bounds()
	targetW := bb.Dx()
	targetH := roundHalfUp(float64(targetW) * float64(wb.Dy()) / float64(wb.Dx()))

	scaledWM := scaleTo(wm, targetW, targetH)
	return compositeCentered(base, scaledWM, amount), nil
}

// ApplyAdaptive composites wm onto base with size and opacity derived from
// how large the watermark's native dimensions are relative to the
// output's shorter edge, between the min/max coverage fractions of
// spec.md §4.4.
//
// Sizing: s = min(ow,oh) / max(ww,wh); target watermark width is
// clamp(s*ww, min*min(ow,oh), max*min(ow,oh)), height scaled
// proportionally.
//
// Opacity (spec.md §9, an implementation choice — monotonic, pinned at
// both endpoints): 1.0 at or below `min` coverage of the shorter output
// edge, decreasing linearly to `min` (reused as the opacity floor) at
// `max` coverage, clamped outside [min, max].
func ApplyAdaptive(base, wm image.Image, minCoverage, maxCoverage float64) (image.Image, error) {
	if minCoverage < 0 || minCoverage > 1 || maxCoverage < 0 || maxCoverage > 1 {
		return nil, fmt.Errorf("watermark_min/watermark_max must be within [0,1]")
	}
	if minCoverage > maxCoverage {
		return nil, fmt.Errorf("watermark_min (%v) must be <= watermark_max (%v)", minCoverage, maxCoverage)
	}

	bb := base.Bounds()
	wb := wm.Bounds()
	ow, oh := bb.Dx(), bb.Dy()
	ww, wh := wb.Dx(), wb.Dy()

	shortEdge := float64(ow)
	if float64(oh) < shortEdge {
		shortEdge = float64(oh)
	}
	longestWM := float64(ww)
	if float64(wh) > longestWM {
		longestWM = float64(wh)
	}

	s := shortEdge / longestWM
	targetW := clamp(s*float64(ww), minCoverage*shortEdge, maxCoverage*shortEdge)
	targetH := targetW * float64(wh) / float64(ww)

	coverage := targetW / shortEdge
	opacity := adaptiveOpacity(coverage, minCoverage, maxCoverage)

	scaledWM := scaleTo(wm, roundHalfUp(targetW), roundHalfUp(targetH))
	return compositeCentered(base, scaledWM, opacity), nil
}

// adaptiveOpacity is the piecewise-linear curve spec.md §9 leaves as an
// implementation choice: 1.0 up to minCoverage, linearly down to
// minCoverage (the floor) at maxCoverage, and held at the floor beyond.
func adaptiveOpacity(coverage, minCoverage, maxCoverage float64) float64 {
	if coverage <= minCoverage {
		return 1.0
	}
	if coverage >= maxCoverage || maxCoverage == minCoverage {
		return minCoverage
	}
	t := (coverage - minCoverage) / (maxCoverage - minCoverage)
	return 1.0 - t*(1.0-minCoverage)
}

// compositeCentered places wm at the center of base with the given
// opacity, clipping wm (never tiling) if it exceeds base in either
// dimension, per spec.md §4.4.
func compositeCentered(base, wm image.Image, opacity float64) image.Image {
	bb := base.Bounds()
	dst := image.NewRGBA(bb)
	draw.Draw(dst, bb, base, bb.Min, draw.Src)

	wb := wm.Bounds()
	ow, oh := bb.Dx(), bb.Dy()
	ww, wh := wb.Dx(), wb.Dy()

	// Center placement; clip rather than tile if the watermark overruns
	// the output in either dimension.
	ox := (ow - ww) / 2
	oy := (oh - wh) / 2

	destRect := image.Rect(bb.Min.X+ox, bb.Min.Y+oy, bb.Min.X+ox+ww, bb.Min.Y+oy+wh).Intersect(bb)
	if destRect.Empty() {
		return dst
	}

	srcPt := image.Pt(wb.Min.X+(destRect.Min.X-(bb.Min.X+ox)), wb.Min.Y+(destRect.Min.Y-(bb.Min.Y+oy)))
	mask := image.NewUniform(alphaColor(opacity))
	draw.DrawMask(dst, destRect, wm, srcPt, mask, image.Point{}, draw.Over)

	return dst
}

func alphaColor(opacity float64) image.Image {
	a := uint8(roundHalfUp(opacity * 255))
	return image.NewUniform(alpha{a})
}

// alpha is a color.Color that carries only an alpha channel, used as a
// DrawMask source to blend at a uniform opacity.
type alpha struct{ a uint8 }

func (c alpha) RGBA() (r, g, b, a uint32) {
	v := uint32(c.a) * 0x101
	return v, v, v, v
}

func scaleTo(src image.Image, w, h int) image.Image {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	b := src.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundHalfUp(v float64) int {
	if v < 0 {
		return -roundHalfUp(-v)
	}
	return int(v + 0.5)
}
