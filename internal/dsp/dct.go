package dsp

// forwardSegment applies the n-point DCT-II to s[off], s[off+stride], ...
// and writes the coefficients back in place. n is 1..BlockSize.
func forwardSegment(s []float32, off, stride, n int) {
	_ = s[off+(n-1)*stride]
	var x, out [BlockSize]float32
	for i := 0; i < n; i++ {
		x[i] = s[off+i*stride]
	}
	b := &basis[n]
	for k := 0; k < n; k++ {
		var sum float32
		for i := 0; i < n; i++ {
			sum += x[i] * b[k][i]
		}
		out[k] = sum
	}
	for k := 0; k < n; k++ {
		s[off+k*stride] = out[k]
	}
}

// inverseSegment applies the n-point DCT-III, the inverse of forwardSegment.
func inverseSegment(s []float32, off, stride, n int) {
	_ = s[off+(n-1)*stride]
	var c, out [BlockSize]float32
	for k := 0; k < n; k++ {
		c[k] = s[off+k*stride]
	}
	b := &basis[n]
	for i := 0; i < n; i++ {
		var sum float32
		for k := 0; k < n; k++ {
			sum += c[k] * b[k][i]
		}
		out[i] = sum
	}
	for i := 0; i < n; i++ {
		s[off+i*stride] = out[i]
	}
}

// transformRows runs fn over every block segment of rows [y0, y1).
func transformRows(fn func([]float32, int, int, int), pix []float32, w, y0, y1 int) {
	for y := y0; y < y1; y++ {
		row := y * w
		for x := 0; x < w; x += BlockSize {
			fn(pix, row+x, 1, min(BlockSize, w-x))
		}
	}
}

// transformCols runs fn over every block segment of columns [x0, x1).
func transformCols(fn func([]float32, int, int, int), pix []float32, w, h, x0, x1 int) {
	for x := x0; x < x1; x++ {
		for y := 0; y < h; y += BlockSize {
			fn(pix, y*w+x, w, min(BlockSize, h-y))
		}
	}
}
