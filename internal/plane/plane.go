// Package plane defines the single-channel sample grids the pipeline works
// on and the arena that owns them between frames.
package plane

import "fmt"

// Kind identifies a plane within a frame.
type Kind int

const (
	Luma Kind = iota
	Cb
	Cr
	numKinds
)

// Kinds lists every plane kind in processing order.
func Kinds() []Kind { return []Kind{Luma, Cb, Cr} }

func (k Kind) String() string {
	switch k {
	case Luma:
		return "luma"
	case Cb:
		return "cb"
	case Cr:
		return "cr"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Plane is a row-major grid of float32 samples. Stride equals Width.
type Plane struct {
	Pix    []float32
	Width  int
	Height int
}

// New allocates a zeroed plane without going through the pool.
func New(w, h int) *Plane {
	return &Plane{Pix: make([]float32, w*h), Width: w, Height: h}
}

// Row returns the samples of row y.
func (p *Plane) Row(y int) []float32 {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}

// At returns the sample at (x, y). It panics if the point is out of range.
func (p *Plane) At(x, y int) float32 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v float32) {
	p.Pix[y*p.Width+x] = v
}

// Blocks returns the block grid dimensions for the given block size,
// counting partial blocks on the right and bottom edges.
func (p *Plane) Blocks(size int) (bx, by int) {
	return CeilDiv(p.Width, size), CeilDiv(p.Height, size)
}

// Empty reports whether the plane holds no samples.
func (p *Plane) Empty() bool {
	return p == nil || p.Width <= 0 || p.Height <= 0
}

// CeilDiv returns ceil(a/b) for a >= 0 and b > 0.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
