// Package resample moves RGB frames between the source resolution and the
// pre-downsampled working resolution.
package resample

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Filter selects the resampling kernel.
type Filter int

const (
	Nearest Filter = iota
	Linear
)

func (f Filter) String() string {
	switch f {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

func (f Filter) scaler() draw.Scaler {
	if f == Linear {
		return draw.ApproxBiLinear
	}
	return draw.NearestNeighbor
}

// Into renders src into all of dst. When the sizes match the pixels are
// copied (and converted to RGBA) without filtering; otherwise src is scaled
// with f.
func Into(dst *image.RGBA, src image.Image, f Filter) {
	sb, db := src.Bounds(), dst.Bounds()
	if sb.Size() == db.Size() {
		draw.Copy(dst, db.Min, src, sb, draw.Src, nil)
		return
	}
	f.scaler().Scale(dst, db, src, sb, draw.Src, nil)
}

// Size returns the working size of a w x h frame pre-downsampled by ratio,
// rounding up so that no source column or row is dropped.
func Size(w, h, ratio int) image.Point {
	if ratio < 1 {
		ratio = 1
	}
	return image.Pt((w+ratio-1)/ratio, (h+ratio-1)/ratio)
}
