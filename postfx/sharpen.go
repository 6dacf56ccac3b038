package postfx

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/deepteams/jpegfx/internal/parallel"
	"github.com/deepteams/jpegfx/internal/pool"
)

// Parameter ranges for Sharpen.
const (
	MaxAmount   = 10
	MinDiameter = 2
	MaxDiameter = 12
	MinDetail   = 0.01
	MaxDetail   = 10
)

// Sharpen is an unsharp mask. The frame is blurred with a separable
// Gaussian and the difference to the blur is added back, weighted by how
// far the luma of that difference exceeds Threshold.
type Sharpen struct {
	Amount         float64 `yaml:"amount"`          // [0, 10]
	Threshold      float64 `yaml:"threshold"`       // [0, 1]
	ThresholdRange float64 `yaml:"threshold_range"` // [0, 1]
	Diameter       int     `yaml:"diameter"`        // taps, [2, 12]
	Detail         float64 `yaml:"detail"`          // Gaussian sigma, [0.01, 10]
}

// DefaultSharpen returns a mild sharpen: amount 1 over a 2-tap blur.
func DefaultSharpen() Sharpen {
	return Sharpen{Amount: 1, Threshold: 0, ThresholdRange: 0.1, Diameter: 2, Detail: 2}
}

// Validate checks every parameter range.
func (s Sharpen) Validate() error {
	switch {
	case !inRange(s.Amount, 0, MaxAmount):
		return fmt.Errorf("%w: sharpen amount %v outside [0,%d]", ErrInvalid, s.Amount, MaxAmount)
	case !inRange(s.Threshold, 0, 1):
		return fmt.Errorf("%w: sharpen threshold %v outside [0,1]", ErrInvalid, s.Threshold)
	case !inRange(s.ThresholdRange, 0, 1):
		return fmt.Errorf("%w: sharpen threshold range %v outside [0,1]", ErrInvalid, s.ThresholdRange)
	case s.Diameter < MinDiameter || s.Diameter > MaxDiameter:
		return fmt.Errorf("%w: sharpen diameter %d outside [%d,%d]", ErrInvalid, s.Diameter, MinDiameter, MaxDiameter)
	case !inRange(s.Detail, MinDetail, MaxDetail):
		return fmt.Errorf("%w: sharpen detail %v outside [%v,%v]", ErrInvalid, s.Detail, MinDetail, MaxDetail)
	}
	return nil
}

// Kernel returns the blur weights for offsets -r..r, summing to 1.
// Diameter taps are placed symmetrically around the center; taps that fall
// between pixels are split linearly between their neighbours.
func (s Sharpen) Kernel() []float32 {
	d := s.Diameter
	half := float64(d-1) / 2
	r := int(math.Ceil(half))
	k := make([]float64, 2*r+1)
	var sum float64
	for i := 0; i < d; i++ {
		o := float64(i) - half
		g := math.Exp(-o * o / (2 * s.Detail * s.Detail))
		lo := math.Floor(o)
		f := o - lo
		k[int(lo)+r] += g * (1 - f)
		if f > 0 {
			k[int(lo)+r+1] += g * f
		}
		sum += g
	}
	out := make([]float32, len(k))
	for i, v := range k {
		out[i] = float32(v / sum)
	}
	return out
}

// Apply sharpens img in place.
func (s Sharpen) Apply(ctx context.Context, img *image.RGBA) (*image.RGBA, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Amount == 0 {
		return img, ctx.Err()
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img, nil
	}

	kern := s.Kernel()
	r := len(kern) / 2
	sched := parallel.New(0)

	// Planar float copies: src, horizontal pass, full blur.
	n := w * h * 3
	src := pool.Get(n)
	tmp := pool.Get(n)
	blur := pool.Get(n)
	defer pool.Put(src)
	defer pool.Put(tmp)
	defer pool.Put(blur)

	row := func(y int) []uint8 {
		return img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):][: w*4 : w*4]
	}
	passes := []func(y0, y1 int){
		func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				p, o := row(y), y*w*3
				for x := 0; x < w; x++ {
					for c := 0; c < 3; c++ {
						src[o+x*3+c] = float32(p[x*4+c]) * inv255
					}
				}
			}
		},
		func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				o := y * w * 3
				for x := 0; x < w; x++ {
					var acc [3]float32
					for k, kw := range kern {
						sx := min(max(x+k-r, 0), w-1)
						i := o + sx*3
						acc[0] += kw * src[i]
						acc[1] += kw * src[i+1]
						acc[2] += kw * src[i+2]
					}
					copy(tmp[o+x*3:o+x*3+3], acc[:])
				}
			}
		},
		func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				for x := 0; x < w; x++ {
					var acc [3]float32
					for k, kw := range kern {
						sy := min(max(y+k-r, 0), h-1)
						i := (sy*w + x) * 3
						acc[0] += kw * tmp[i]
						acc[1] += kw * tmp[i+1]
						acc[2] += kw * tmp[i+2]
					}
					copy(blur[(y*w+x)*3:(y*w+x)*3+3], acc[:])
				}
			}
		},
		func(y0, y1 int) {
			lo := float32(s.Threshold)
			hi := float32(s.Threshold + s.ThresholdRange)
			amt := float32(s.Amount)
			for y := y0; y < y1; y++ {
				p := row(y)
				for x := 0; x < w; x++ {
					i := (y*w + x) * 3
					dr := src[i] - blur[i]
					dg := src[i+1] - blur[i+1]
					db := src[i+2] - blur[i+2]
					l := 0.299*dr + 0.587*dg + 0.114*db
					if l < 0 {
						l = -l
					}
					wt := amt * smoothstep(lo, hi, l)
					p[x*4] = to8(src[i] + wt*dr)
					p[x*4+1] = to8(src[i+1] + wt*dg)
					p[x*4+2] = to8(src[i+2] + wt*db)
				}
			}
		},
	}
	for _, pass := range passes {
		if err := sched.For(ctx, h, pass); err != nil {
			return nil, fmt.Errorf("postfx: sharpen: %w", err)
		}
	}
	return img, nil
}

// smoothstep is the Hermite step between e0 and e1. With e1 <= e0 it is a
// hard step at e0.
func smoothstep(e0, e1, x float32) float32 {
	if e1 <= e0 {
		if x >= e0 {
			return 1
		}
		return 0
	}
	t := (x - e0) / (e1 - e0)
	t = min(max(t, 0), 1)
	return t * t * (3 - 2*t)
}
