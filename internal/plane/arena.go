package plane

import (
	"errors"
	"fmt"
	"image"

	"github.com/deepteams/jpegfx/internal/pool"
)

// ErrEmpty is returned when a plane would have no samples.
var ErrEmpty = errors.New("plane: zero-sized plane")

// Arena owns one plane per Kind. Planes are kept across frames and only
// reallocated when their requested size changes.
type Arena struct {
	planes [numKinds]*Plane
	allocs int
}

// Ensure makes plane k exactly size.X by size.Y samples and returns it. The
// existing plane is reused when the size is unchanged; its contents are
// left as they were.
func (a *Arena) Ensure(k Kind, size image.Point) (*Plane, error) {
	if k < 0 || k >= numKinds {
		return nil, fmt.Errorf("plane: unknown kind %v", k)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %v %dx%d", ErrEmpty, k, size.X, size.Y)
	}
	if p := a.planes[k]; p != nil && p.Width == size.X && p.Height == size.Y {
		return p, nil
	}
	if p := a.planes[k]; p != nil {
		pool.Put(p.Pix)
	}
	p := &Plane{Pix: pool.Get(size.X * size.Y), Width: size.X, Height: size.Y}
	a.planes[k] = p
	a.allocs++
	return p, nil
}

// Get returns plane k, or nil if it was never allocated.
func (a *Arena) Get(k Kind) *Plane {
	if k < 0 || k >= numKinds {
		return nil
	}
	return a.planes[k]
}

// Allocs returns how many plane allocations the arena has performed.
func (a *Arena) Allocs() int { return a.allocs }

// Release returns every plane's storage to the pool.
func (a *Arena) Release() {
	for i, p := range a.planes {
		if p != nil {
			pool.Put(p.Pix)
			a.planes[i] = nil
		}
	}
}
