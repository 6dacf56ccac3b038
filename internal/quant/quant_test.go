package quant

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScale_DCEntry(t *testing.T) {
	tests := []struct {
		quality float64
		want    int32
	}{
		{1, 16},
		{4, 4},
		{100, 1},
		{0.5, 32},
		{3, 5}, // 5.33 rounds down
		{32, 1}, // 0.5 rounds away from zero
	}
	for _, tt := range tests {
		got := Scale(Luma, tt.quality)
		if got.At(0, 0) != tt.want {
			t.Errorf("Scale(Luma, %v)[0][0] = %d, want %d", tt.quality, got.At(0, 0), tt.want)
		}
	}
}

func TestScale_NeverBelowOne(t *testing.T) {
	for _, base := range []Table{Luma, Chroma} {
		for _, slider := range []float64{0.01, 0.1, 0.5, 1, 2, 3.7, 8, 12, 32} {
			q := slider * slider
			s := Scale(base, q)
			if m := s.Min(); m < 1 {
				t.Errorf("Scale(q=%v): min entry = %d, want >= 1", q, m)
			}
		}
	}
}

func TestScale_QualityOneIsIdentity(t *testing.T) {
	if diff := cmp.Diff(Luma, Scale(Luma, 1)); diff != "" {
		t.Errorf("Scale(Luma, 1) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Chroma, Scale(Chroma, 1)); diff != "" {
		t.Errorf("Scale(Chroma, 1) mismatch (-want +got):\n%s", diff)
	}
}

func TestScale_Degenerate(t *testing.T) {
	if got := Scale(Chroma, 0); got != Chroma {
		t.Error("Scale(q=0) should leave the base table")
	}
	if got := Scale(Chroma, math.NaN()); got != Chroma {
		t.Error("Scale(q=NaN) should leave the base table")
	}
	if got := Scale(Chroma, math.Inf(1)); got != Ones() {
		t.Error("Scale(q=+Inf) should give the all-ones table")
	}
}

func TestScale_Monotonic(t *testing.T) {
	prev := Scale(Luma, 0.25)
	for _, q := range []float64{0.5, 1, 2, 4, 8, 16} {
		cur := Scale(Luma, q)
		for i := range cur {
			if cur[i] > prev[i] {
				t.Fatalf("q=%v entry %d = %d, larger than %d at lower quality", q, i, cur[i], prev[i])
			}
		}
		prev = cur
	}
}

func TestBaseTables(t *testing.T) {
	// Spot checks against the published tables.
	checks := []struct {
		tab  *Table
		u, v int
		want int32
	}{
		{&Luma, 0, 0, 16},
		{&Luma, 7, 0, 61},
		{&Luma, 5, 4, 109},
		{&Luma, 0, 7, 72},
		{&Luma, 7, 7, 99},
		{&Chroma, 0, 0, 17},
		{&Chroma, 3, 1, 66},
		{&Chroma, 2, 2, 56},
		{&Chroma, 3, 2, 99},
		{&Chroma, 7, 7, 99},
	}
	for _, c := range checks {
		if got := c.tab.At(c.u, c.v); got != c.want {
			t.Errorf("At(%d,%d) = %d, want %d", c.u, c.v, got, c.want)
		}
	}
	n99 := 0
	for _, q := range Chroma {
		if q == 99 {
			n99++
		}
	}
	if n99 != 4+4+5+6+32 {
		t.Errorf("chroma table has %d entries of 99, want 51", n99)
	}
}

func TestTableString(t *testing.T) {
	s := Luma.String()
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if len(lines) != BlockSize {
		t.Fatalf("String() has %d lines, want %d", len(lines), BlockSize)
	}
	if want := " 16  11  10  16  24  40  51  61"; lines[0] != want {
		t.Errorf("first row = %q, want %q", lines[0], want)
	}
}

func TestScale_ClampsHuge(t *testing.T) {
	got := Scale(Luma, 1e-12)
	for i, q := range got {
		if q != math.MaxInt32 {
			t.Fatalf("Scale(Luma, 1e-12)[%d] = %d, want %d", i, q, int32(math.MaxInt32))
		}
	}
}
