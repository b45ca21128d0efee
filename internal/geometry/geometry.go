// Package geometry implements the resize/crop engine of spec.md §4.3:
// the four sizing modes (width, height, square, fill) and the nine-way
// gravity model for fill's crop window. Adapted from the teacher's
// (go-phash) progressive-halving/ApproxBiLinear resize kernel in
// resize.go, generalized from "fit within a box" to the typed modes
// spec.md requires.
package geometry

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Type is a resize mode, spec.md §4.3.
type Type string

const (
	Width  Type = "width"
	Height Type = "height"
	Square Type = "square"
	Fill   Type = "fill"
)

// Gravity anchors the fill crop window, spec.md §4.3.
type Gravity string

const (
	Center    Gravity = "center"
	North     Gravity = "north"
	South     Gravity = "south"
	East      Gravity = "east"
	West      Gravity = "west"
	Northeast Gravity = "northeast"
	Northwest Gravity = "northwest"
	Southeast Gravity = "southeast"
	Southwest Gravity = "southwest"
)

// MaxDimension is the maximum width/height, in pixels, accepted on any
// resize request (spec.md §4.3, §6).
const MaxDimension = 10000

// ValidGravity reports whether g is one of the nine recognized values.
func ValidGravity(g Gravity) bool {
	switch g {
	case Center, North, South, East, West, Northeast, Northwest, Southeast, Southwest:
		return true
	default:
		return false
	}
}

// Plan is the computed output geometry for a resize request, useful to
// tests and callers that want the dimensions without re-deriving them
// from the image.
type Plan struct {
	OutputWidth  int
	OutputHeight int
}

// ComputePlan derives the output dimensions for sw×sh source at rw×rh
// requested, per the table in spec.md §4.3. It does not itself touch
// pixels — Resize does that using this plan.
//
// width and height both resolve to a preserve-aspect fit within the
// rw×rh bounding box, never enlarging: §4.3's table states each in
// terms of only its own requested dimension, but §8's concrete
// "width-dominated with cap" scenario pins a case where the *other*
// requested dimension caps the result (1296×864 at {width:200,
// height:120} yields 180×120, not 200×133) — i.e. whichever requested
// dimension is tighter wins regardless of which one `type` names. The
// two named types exist for request-authoring clarity; both run the
// same fitBox math and give identical results.
func ComputePlan(sw, sh, rw, rh int, typ Type) (Plan, error) {
	switch typ {
	case Width, Height:
		return fitBox(sw, sh, rw, rh), nil
	case Square:
		side := min(rw, sw, sh)
		return Plan{OutputWidth: side, OutputHeight: side}, nil
	case Fill:
		return Plan{OutputWidth: rw, OutputHeight: rh}, nil
	default:
		return Plan{}, fmt.Errorf("unknown resize type %q", typ)
	}
}

// fitBox scales sw×sh to fit within rw×rh, preserving aspect ratio, and
// never enlarging (scale is clamped to at most 1.0).
func fitBox(sw, sh, rw, rh int) Plan {
	scale := min(float64(rw)/float64(sw), float64(rh)/float64(sh), 1.0)
	return Plan{
		OutputWidth:  roundHalfUp(scale * float64(sw)),
		OutputHeight: roundHalfUp(scale * float64(sh)),
	}
}

// Resize applies the geometry engine to src and returns the resized
// pixel buffer. gravity is only consulted for Fill; callers pass
// Center for the other three modes.
func Resize(src image.Image, rw, rh int, typ Type, gravity Gravity) (image.Image, error) {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	switch typ {
	case Width, Height:
		plan, err := ComputePlan(sw, sh, rw, rh, typ)
		if err != nil {
			return nil, err
		}
		return scaleTo(src, plan.OutputWidth, plan.OutputHeight), nil

	case Square:
		side := min(sw, sh)
		cx := (sw - side) / 2
		cy := (sh - side) / 2
		cropped := crop(src, cx, cy, side, side)

		finalSide := min(rw, sw, sh)
		return scaleTo(cropped, finalSide, finalSide), nil

	case Fill:
		if rw <= 0 || rh <= 0 {
			return nil, fmt.Errorf("fill resize requires positive width and height")
		}
		scaleW := float64(rw) / float64(sw)
		scaleH := float64(rh) / float64(sh)
		k := scaleW
		if scaleH > k {
			k = scaleH
		}

		scaledW := roundHalfUp(float64(sw) * k)
		scaledH := roundHalfUp(float64(sh) * k)
		if scaledW < rw {
			scaledW = rw
		}
		if scaledH < rh {
			scaledH = rh
		}

		scaled := scaleTo(src, scaledW, scaledH)
		ox, oy := gravityOrigin(gravity, scaledW, scaledH, rw, rh)
		return crop(scaled, ox, oy, rw, rh), nil

	default:
		return nil, fmt.Errorf("unknown resize type %q", typ)
	}
}

// gravityOrigin returns the top-left corner of the rw×rh crop window
// inside a Sw×Sh scaled source, per the gravity table in spec.md §4.3.
// All coordinates use integer floor division.
func gravityOrigin(g Gravity, sw, sh, rw, rh int) (int, int) {
	left := (sw - rw) / 2
	top := (sh - rh) / 2
	right := sw - rw
	bottom := sh - rh

	switch g {
	case North:
		return left, 0
	case South:
		return left, bottom
	case West:
		return 0, top
	case East:
		return right, top
	case Northwest:
		return 0, 0
	case Northeast:
		return right, 0
	case Southwest:
		return 0, bottom
	case Southeast:
		return right, bottom
	default: // Center
		return left, top
	}
}

// scaleTo resizes src to exactly dstW×dstH. Downscales use progressive
// CatmullRom halving (quality-preserving, the teacher's strategy in
// resize.go); upscales use a single ApproxBiLinear pass.
func scaleTo(src image.Image, dstW, dstH int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	if dstW == sw && dstH == sh {
		return src
	}
	if dstW <= 0 {
		dstW = 1
	}
	if dstH <= 0 {
		dstH = 1
	}

	if dstW >= sw && dstH >= sh {
		dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		return dst
	}

	cur := src
	cw, ch := sw, sh
	for cw/2 >= dstW && ch/2 >= dstH && cw/2 >= 1 && ch/2 >= 1 {
		nw, nh := cw/2, ch/2
		tmp := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(tmp, tmp.Bounds(), cur, cur.Bounds(), draw.Over, nil)
		cur = tmp
		cw, ch = nw, nh
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cur, cur.Bounds(), draw.Over, nil)
	return dst
}

// crop extracts a w×h window at (x,y) from src into a fresh RGBA image.
func crop(src image.Image, x, y, w, h int) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	srcRect := image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+w, b.Min.Y+y+h)
	draw.Draw(dst, dst.Bounds(), src, srcRect.Min, draw.Src)
	return dst
}

func roundHalfUp(v float64) int {
	if v < 0 {
		return -roundHalfUp(-v)
	}
	return int(v + 0.5)
}
