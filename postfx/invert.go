package postfx

import (
	"context"
	"fmt"
	"image"

	"github.com/deepteams/jpegfx/internal/parallel"
)

// Invert blends each color channel towards its complement.
type Invert struct {
	// Strength is 0 for no change and 1 for a full negative.
	Strength float64 `yaml:"strength"`
}

// Validate checks that Strength is within [0, 1].
func (v Invert) Validate() error {
	if !inRange(v.Strength, 0, 1) {
		return fmt.Errorf("%w: invert strength %v outside [0,1]", ErrInvalid, v.Strength)
	}
	return nil
}

// Apply inverts img in place.
func (v Invert) Apply(ctx context.Context, img *image.RGBA) (*image.RGBA, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if v.Strength == 0 {
		return img, ctx.Err()
	}
	b := img.Bounds()
	w := b.Dx()
	s := float32(v.Strength)
	err := parallel.New(0).For(ctx, b.Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):][: w*4 : w*4]
			for i := 0; i < len(row); i += 4 {
				for c := 0; c < 3; c++ {
					x := float32(row[i+c]) * inv255
					row[i+c] = to8(x + s*(1-2*x))
				}
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("postfx: invert: %w", err)
	}
	return img, nil
}
