package dsp

import (
	"math"

	"github.com/deepteams/jpegfx/internal/quant"
)

// Quantize rounds c to the nearest multiple of q, halves away from zero.
// This folds quantization and dequantization into one step: the result is
// the coefficient the inverse transform will see.
func Quantize(c float32, q int32) float32 {
	if q <= 1 {
		return float32(math.Round(float64(c)))
	}
	fq := float64(q)
	return float32(math.Round(float64(c)/fq) * fq)
}

// quantizeRows quantizes rows [y0, y1) of a w-wide plane with t, indexing
// the table by each coefficient's position within its block.
func quantizeRows(pix []float32, w int, t *quant.Table, y0, y1 int) {
	for y := y0; y < y1; y++ {
		trow := t[(y%BlockSize)*BlockSize:]
		row := pix[y*w : (y+1)*w]
		for x := range row {
			row[x] = Quantize(row[x], trow[x%BlockSize])
		}
	}
}
