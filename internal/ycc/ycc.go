// Package ycc converts between RGB images and Y/Cb/Cr planes with chroma
// subsampling.
//
// The conversion is full-range BT.601 (JFIF) on normalized samples: every
// plane value is in [0, 1] and the chroma planes are offset by 0.5.
package ycc

import (
	"context"
	"fmt"
	"image"

	"github.com/deepteams/jpegfx/internal/parallel"
	"github.com/deepteams/jpegfx/internal/plane"
)

// Filter selects how chroma is fetched when rebuilding RGB.
type Filter int

const (
	// Nearest reads the chroma sample covering the pixel.
	Nearest Filter = iota
	// Linear interpolates between the four nearest chroma sample centers.
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

// RGB -> YCbCr coefficients.
const (
	kYR, kYG, kYB    = 0.299, 0.587, 0.114
	kCbR, kCbG, kCbB = -0.168736, -0.331264, 0.5
	kCrR, kCrG, kCrB = 0.5, -0.418688, -0.081312
)

// YCbCr -> RGB coefficients.
const (
	kRCr = 1.402
	kGCb = -0.344136
	kGCr = -0.714136
	kBCb = 1.772
)

// RGBToY returns the luma of a normalized RGB triple.
func RGBToY(r, g, b float32) float32 {
	return kYR*r + kYG*g + kYB*b
}

// RGBToCbCr returns the chroma of a normalized RGB triple.
func RGBToCbCr(r, g, b float32) (cb, cr float32) {
	cb = kCbR*r + kCbG*g + kCbB*b + 0.5
	cr = kCrR*r + kCrG*g + kCrB*b + 0.5
	return cb, cr
}

// YCbCrToRGB converts back to RGB, clamping each channel to [0, 1].
func YCbCrToRGB(y, cb, cr float32) (r, g, b float32) {
	cb -= 0.5
	cr -= 0.5
	r = clamp01(y + kRCr*cr)
	g = clamp01(y + kGCb*cb + kGCr*cr)
	b = clamp01(y + kBCb*cb)
	return r, g, b
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// to8 converts a normalized sample to 8 bits with rounding.
func to8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

const inv255 = 1.0 / 255

// checkPlanes verifies the plane sizes expected for a w x h image.
func checkPlanes(w, h, ratio int, y, cb, cr *plane.Plane) error {
	if ratio < 1 {
		return fmt.Errorf("ycc: invalid subsample ratio %d", ratio)
	}
	if y.Empty() || cb.Empty() || cr.Empty() {
		return plane.ErrEmpty
	}
	if y.Width != w || y.Height != h {
		return fmt.Errorf("ycc: luma plane %dx%d, image %dx%d", y.Width, y.Height, w, h)
	}
	cw, ch := plane.CeilDiv(w, ratio), plane.CeilDiv(h, ratio)
	for _, c := range []*plane.Plane{cb, cr} {
		if c.Width != cw || c.Height != ch {
			return fmt.Errorf("ycc: chroma plane %dx%d, want %dx%d", c.Width, c.Height, cw, ch)
		}
	}
	return nil
}

// Forward fills y with full-resolution luma and cb, cr with chroma averaged
// over ratio x ratio pixel blocks of src. Blocks on the right and bottom
// edge read clamped coordinates, repeating the last column and row.
func Forward(ctx context.Context, src *image.RGBA, y, cb, cr *plane.Plane, ratio int, sched *parallel.Scheduler) error {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if err := checkPlanes(w, h, ratio, y, cb, cr); err != nil {
		return err
	}
	norm := float32(1) / float32(ratio*ratio) * inv255
	// Chroma rows own disjoint bands of luma rows, so bands never overlap.
	return sched.For(ctx, cb.Height, func(cy0, cy1 int) {
		for cy := cy0; cy < cy1; cy++ {
			for cx := 0; cx < cb.Width; cx++ {
				var sr, sg, sb int
				for dy := 0; dy < ratio; dy++ {
					py := cy*ratio + dy
					inY := py < h
					if !inY {
						py = h - 1
					}
					row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+py):]
					for dx := 0; dx < ratio; dx++ {
						px := cx*ratio + dx
						inX := px < w
						if !inX {
							px = w - 1
						}
						p := row[px*4 : px*4+3 : px*4+3]
						r, g, bl := int(p[0]), int(p[1]), int(p[2])
						sr += r
						sg += g
						sb += bl
						if inX && inY {
							y.Pix[py*w+px] = RGBToY(float32(r)*inv255, float32(g)*inv255, float32(bl)*inv255)
						}
					}
				}
				i := cy*cb.Width + cx
				cb.Pix[i], cr.Pix[i] = RGBToCbCr(float32(sr)*norm, float32(sg)*norm, float32(sb)*norm)
			}
		}
	})
}

// Inverse rebuilds dst from the planes. dst must match the luma plane size.
// Alpha is set to opaque.
func Inverse(ctx context.Context, dst *image.RGBA, y, cb, cr *plane.Plane, ratio int, filter Filter, sched *parallel.Scheduler) error {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if err := checkPlanes(w, h, ratio, y, cb, cr); err != nil {
		return err
	}
	return sched.For(ctx, h, func(y0, y1 int) {
		for py := y0; py < y1; py++ {
			row := dst.Pix[dst.PixOffset(b.Min.X, b.Min.Y+py):]
			lum := y.Row(py)
			for px := 0; px < w; px++ {
				var u, v float32
				if filter == Linear && ratio > 1 {
					u, v = bilinear(cb, cr, px, py, ratio)
				} else {
					i := (py/ratio)*cb.Width + px/ratio
					u, v = cb.Pix[i], cr.Pix[i]
				}
				r, g, bl := YCbCrToRGB(lum[px], u, v)
				p := row[px*4 : px*4+4 : px*4+4]
				p[0], p[1], p[2], p[3] = to8(r), to8(g), to8(bl), 0xff
			}
		}
	})
}

// bilinear samples both chroma planes at the center of luma pixel (px, py).
func bilinear(cb, cr *plane.Plane, px, py, ratio int) (float32, float32) {
	fx := (float32(px)+0.5)/float32(ratio) - 0.5
	fy := (float32(py)+0.5)/float32(ratio) - 0.5
	x0, tx := split(fx, cb.Width)
	y0, ty := split(fy, cb.Height)
	x1 := min(x0+1, cb.Width-1)
	y1 := min(y0+1, cb.Height-1)
	lerp2 := func(p *plane.Plane) float32 {
		top := p.At(x0, y0)*(1-tx) + p.At(x1, y0)*tx
		bot := p.At(x0, y1)*(1-tx) + p.At(x1, y1)*tx
		return top*(1-ty) + bot*ty
	}
	return lerp2(cb), lerp2(cr)
}

// split returns the integer sample index at or left of f, clamped to
// [0, n-1], and the fractional weight of the next sample.
func split(f float32, n int) (int, float32) {
	if f <= 0 {
		return 0, 0
	}
	i := int(f)
	if i >= n-1 {
		return n - 1, 0
	}
	return i, f - float32(i)
}
