// Package postfx holds the per-pixel effects that can run after the
// compression effect: Invert and Sharpen.
//
// Filters work in place on *image.RGBA frames and leave alpha untouched.
package postfx

import (
	"context"
	"errors"
	"image"
	"math"
)

// ErrInvalid reports filter parameters outside their ranges.
var ErrInvalid = errors.New("postfx: invalid parameters")

// Filter is one post effect.
type Filter interface {
	// Apply processes img and returns the result, which may be img itself.
	Apply(ctx context.Context, img *image.RGBA) (*image.RGBA, error)
}

// Chain applies filters in order. A nil entry is skipped.
type Chain []Filter

// Apply runs every filter, feeding each the previous result.
func (c Chain) Apply(ctx context.Context, img *image.RGBA) (*image.RGBA, error) {
	var err error
	for _, f := range c {
		if f == nil {
			continue
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if img, err = f.Apply(ctx, img); err != nil {
			return nil, err
		}
	}
	return img, nil
}

const inv255 = 1.0 / 255

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v * 255)))
}

// inRange reports whether v is a number within [lo, hi].
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
