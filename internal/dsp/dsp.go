// Package dsp implements the block transform engine: the per-plane stages
// that center samples, run the separable 8x8 DCT, quantize the
// coefficients and invert the transform again.
package dsp

import "math"

// BlockSize is the transform block edge length.
const BlockSize = 8

// Transform function variables for dispatch. They operate on one block
// segment of up to BlockSize samples read with the given stride, in place.
// Init sets them to the pure-Go implementations.
var (
	ForwardSegment func(s []float32, off, stride, n int)
	InverseSegment func(s []float32, off, stride, n int)
)

// basis[n][k][i] is the orthonormal DCT-II basis for an n-point segment:
// c(k) * cos(pi/n * (i+0.5) * k), c(0) = sqrt(1/n), c(k>0) = sqrt(2/n).
// The unnormalized DCT-II sum differs from this basis by the factor c(k).
// Only n == BlockSize occurs away from plane edges.
var basis [BlockSize + 1][BlockSize][BlockSize]float32

func initBasis() {
	for n := 1; n <= BlockSize; n++ {
		for k := 0; k < n; k++ {
			c := math.Sqrt(2 / float64(n))
			if k == 0 {
				c = math.Sqrt(1 / float64(n))
			}
			for i := 0; i < n; i++ {
				basis[n][k][i] = float32(c * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k)))
			}
		}
	}
}

// Init initialises the basis tables and the transform function pointers.
func Init() {
	initBasis()
	ForwardSegment = forwardSegment
	InverseSegment = inverseSegment
}

func init() {
	Init()
}
