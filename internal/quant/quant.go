// Package quant holds the quantization tables used by the block transform
// engine and derives their quality-scaled variants.
package quant

import (
	"fmt"
	"math"
	"strings"
)

// BlockSize is the edge length of a transform block.
const BlockSize = 8

// Table is an 8x8 quantization matrix in row-major order: entry 8*v+u is
// the divisor for horizontal frequency u and vertical frequency v.
type Table [BlockSize * BlockSize]int32

// Luma is the base table for the luminance plane (ITU-T T.81 Annex K.1).
var Luma = Table{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

// Chroma is the base table for both chrominance planes (ITU-T T.81 Annex K.2).
var Chroma = Table{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

// Scale returns base divided by quality, rounded half away from zero and
// clamped to [1, MaxInt32]. quality is the effective factor (the squared
// slider value); larger values keep more detail. A quality that is not a
// positive number leaves the divisors at their base values.
func Scale(base Table, quality float64) Table {
	if !(quality > 0) || math.IsInf(quality, 0) {
		if math.IsInf(quality, 1) {
			return Ones()
		}
		return base
	}
	var out Table
	for i, b := range base {
		q := math.Round(float64(b) / quality)
		q = min(max(q, 1), math.MaxInt32)
		out[i] = int32(q)
	}
	return out
}

// Ones returns a table of all ones. Quantizing with it only rounds the
// coefficients to integers.
func Ones() Table {
	var t Table
	for i := range t {
		t[i] = 1
	}
	return t
}

// At returns the divisor for frequency (u, v).
func (t *Table) At(u, v int) int32 {
	return t[v*BlockSize+u]
}

// Min returns the smallest divisor in the table.
func (t *Table) Min() int32 {
	m := t[0]
	for _, q := range t[1:] {
		if q < m {
			m = q
		}
	}
	return m
}

// String renders the table as eight right-aligned rows.
func (t *Table) String() string {
	var sb strings.Builder
	for v := 0; v < BlockSize; v++ {
		for u := 0; u < BlockSize; u++ {
			if u > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%3d", t.At(u, v))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
