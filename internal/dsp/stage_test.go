package dsp

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/deepteams/jpegfx/internal/parallel"
	"github.com/deepteams/jpegfx/internal/plane"
	"github.com/deepteams/jpegfx/internal/quant"
)

func randomPlane(w, h int, seed int64) *plane.Plane {
	rng := rand.New(rand.NewSource(seed))
	p := plane.New(w, h)
	for i := range p.Pix {
		p.Pix[i] = rng.Float32()
	}
	return p
}

func clonePlane(p *plane.Plane) *plane.Plane {
	q := plane.New(p.Width, p.Height)
	copy(q.Pix, p.Pix)
	return q
}

// guardedPlane returns a plane whose Pix is a capacity-limited window into
// a larger buffer filled with a sentinel, so any stray access either panics
// or shows up in the guard regions.
func guardedPlane(w, h int, fill float32) (*plane.Plane, []float32) {
	const guard = 64
	buf := make([]float32, guard+w*h+guard)
	for i := range buf {
		buf[i] = -999
	}
	pix := buf[guard : guard+w*h : guard+w*h]
	for i := range pix {
		pix[i] = fill
	}
	return &plane.Plane{Pix: pix, Width: w, Height: h}, buf
}

func TestStageOrder(t *testing.T) {
	want := []string{"center", "fdct-h", "fdct-v", "quantize", "idct-h", "idct-v", "decenter"}
	got := Stages()
	if len(got) != len(want) {
		t.Fatalf("len(Stages()) = %d, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.String() != want[i] {
			t.Errorf("Stages()[%d] = %v, want %s", i, s, want[i])
		}
	}
	if s := Stage(42).String(); s != "Stage(42)" {
		t.Errorf("Stage(42).String() = %q", s)
	}
}

func TestCenterDecenter(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, -128},
		{1, 127},
		{128.0 / 255, 0},
	}
	for _, tt := range tests {
		if got := Center(tt.in); math.Abs(float64(got-tt.want)) > 1e-4 {
			t.Errorf("Center(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got := Decenter(Center(tt.in)); math.Abs(float64(got-tt.in)) > 1e-6 {
			t.Errorf("Decenter(Center(%v)) = %v", tt.in, got)
		}
	}
}

func TestQuantize_Rounding(t *testing.T) {
	tests := []struct {
		c    float32
		q    int32
		want float32
	}{
		{8, 16, 16},   // half rounds away from zero
		{-8, 16, -16}, // on both sides
		{7.9, 16, 0},
		{-7.9, 16, 0},
		{24, 16, 32},
		{100, 1, 100},
		{2.5, 1, 3},
		{-2.5, 1, -3},
		{0.4, 0, 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.c, tt.q); got != tt.want {
			t.Errorf("Quantize(%v, %d) = %v, want %v", tt.c, tt.q, got, tt.want)
		}
	}
}

func TestSegment_MatchesDefinition(t *testing.T) {
	x := []float32{3, -1, 4, 1, -5, 9, 2, -6}
	s := append([]float32(nil), x...)
	ForwardSegment(s, 0, 1, 8)
	for k := 0; k < 8; k++ {
		var sum float64
		for n := 0; n < 8; n++ {
			sum += float64(x[n]) * math.Cos(math.Pi/8*(float64(n)+0.5)*float64(k))
		}
		c := math.Sqrt(2.0 / 8)
		if k == 0 {
			c = math.Sqrt(1.0 / 8)
		}
		if want := c * sum; math.Abs(float64(s[k])-want) > 1e-4 {
			t.Errorf("X[%d] = %v, want %v", k, s[k], want)
		}
	}
}

func TestSegment_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 1; n <= BlockSize; n++ {
		for _, stride := range []int{1, 3} {
			s := make([]float32, (n-1)*stride+1)
			for i := range s {
				s[i] = rng.Float32()*255 - 128
			}
			orig := append([]float32(nil), s...)
			ForwardSegment(s, 0, stride, n)
			InverseSegment(s, 0, stride, n)
			for i := range s {
				if math.Abs(float64(s[i]-orig[i])) > 1e-3 {
					t.Fatalf("n=%d stride=%d: s[%d] = %v, want %v", n, stride, i, s[i], orig[i])
				}
			}
		}
	}
}

func TestSegment_ConstantIsDCOnly(t *testing.T) {
	for n := 1; n <= BlockSize; n++ {
		s := make([]float32, n)
		for i := range s {
			s[i] = 2
		}
		ForwardSegment(s, 0, 1, n)
		if want := 2 * math.Sqrt(float64(n)); math.Abs(float64(s[0])-want) > 1e-4 {
			t.Errorf("n=%d: DC = %v, want %v", n, s[0], want)
		}
		for k := 1; k < n; k++ {
			if math.Abs(float64(s[k])) > 1e-4 {
				t.Errorf("n=%d: AC[%d] = %v, want 0", n, k, s[k])
			}
		}
	}
}

func TestRun_BoundaryBlocksStayInside(t *testing.T) {
	sizes := [][2]int{{10, 10}, {1, 1}, {9, 17}, {8, 3}, {23, 8}}
	table := quant.Luma
	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		p, buf := guardedPlane(w, h, 0.25)
		if err := Compress(context.Background(), p, &table, parallel.New(3)); err != nil {
			t.Fatalf("%dx%d: %v", w, h, err)
		}
		for i := 0; i < 64; i++ {
			if buf[i] != -999 || buf[len(buf)-1-i] != -999 {
				t.Fatalf("%dx%d: guard region modified", w, h)
			}
		}
	}
}

func TestRun_ForwardHWritesEveryLane(t *testing.T) {
	// A constant row turns into its DC term at the first lane of every
	// block segment and zeros elsewhere, including the partial last block.
	w, h := 10, 10
	p, _ := guardedPlane(w, h, 1)
	if err := Run(context.Background(), StageForwardH, p, nil, parallel.New(2)); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := 0.0
			switch x {
			case 0:
				want = math.Sqrt(8)
			case 8:
				want = math.Sqrt(2)
			}
			if got := p.At(x, y); math.Abs(float64(got)-want) > 1e-4 {
				t.Fatalf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestCompress_OnesTableIsNearIdentity(t *testing.T) {
	ones := quant.Ones()
	for _, sz := range [][2]int{{8, 8}, {10, 10}, {37, 21}} {
		src := randomPlane(sz[0], sz[1], 7)
		p := clonePlane(src)
		if err := Compress(context.Background(), p, &ones, parallel.New(4)); err != nil {
			t.Fatal(err)
		}
		var sum, worst float64
		for i := range p.Pix {
			d := math.Abs(float64(p.Pix[i] - src.Pix[i]))
			sum += d
			worst = max(worst, d)
		}
		mean := sum / float64(len(p.Pix))
		if mean > 1.0/255 || worst > 8.0/255 {
			t.Errorf("%v: mean error %.5f, worst %.5f", sz, mean, worst)
		}
	}
}

func TestCompress_WithoutQuantizeIsIdentity(t *testing.T) {
	src := randomPlane(19, 13, 3)
	p := clonePlane(src)
	ctx := context.Background()
	for _, s := range Stages() {
		if s == StageQuantize {
			continue
		}
		if err := Run(ctx, s, p, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	for i := range p.Pix {
		if math.Abs(float64(p.Pix[i]-src.Pix[i])) > 1e-5 {
			t.Fatalf("pix[%d] = %v, want %v", i, p.Pix[i], src.Pix[i])
		}
	}
}

func TestCompress_FlatBlockStaysFlat(t *testing.T) {
	table := quant.Scale(quant.Luma, 1)
	for _, gray := range []float32{0, 0.25, 0.5, 0.7, 1} {
		p := plane.New(8, 8)
		for i := range p.Pix {
			p.Pix[i] = gray
		}
		if err := Compress(context.Background(), p, &table, nil); err != nil {
			t.Fatal(err)
		}
		first := p.Pix[0]
		for i, v := range p.Pix {
			if math.Abs(float64(v-first)) > 1e-5 {
				t.Fatalf("gray %v: pix[%d] = %v, pix[0] = %v", gray, i, v, first)
			}
		}
		// The DC step is 16/8 = 2 levels, so the gray moves by at most 1.
		if d := math.Abs(float64(first - gray)); d > 1.0/255+1e-5 {
			t.Errorf("gray %v came back as %v", gray, first)
		}
	}
}

func TestCompress_DiscardsHighFrequencies(t *testing.T) {
	// A one-pixel checkerboard lives entirely in the highest frequency,
	// which the luma table divides by 99; at low amplitude it vanishes.
	p := plane.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p.Set(x, y, 0.5+0.02*float32(1-2*((x+y)&1)))
		}
	}
	table := quant.Luma
	if err := Compress(context.Background(), p, &table, nil); err != nil {
		t.Fatal(err)
	}
	for i, v := range p.Pix {
		if math.Abs(float64(v-p.Pix[0])) > 1e-5 {
			t.Fatalf("pix[%d] = %v, checkerboard survived", i, v)
		}
	}
}

func TestCompress_Deterministic(t *testing.T) {
	src := randomPlane(45, 29, 11)
	table := quant.Scale(quant.Chroma, 0.7)
	a, b := clonePlane(src), clonePlane(src)
	if err := Compress(context.Background(), a, &table, parallel.New(1)); err != nil {
		t.Fatal(err)
	}
	if err := Compress(context.Background(), b, &table, parallel.New(8)); err != nil {
		t.Fatal(err)
	}
	for i := range a.Pix {
		if math.Float32bits(a.Pix[i]) != math.Float32bits(b.Pix[i]) {
			t.Fatalf("pix[%d]: %v vs %v", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestCompress_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table := quant.Luma
	err := Compress(ctx, randomPlane(8, 8, 1), &table, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Compress() error = %v, want context.Canceled", err)
	}
}

func TestRun_QuantizeNeedsTable(t *testing.T) {
	if err := Run(context.Background(), StageQuantize, plane.New(8, 8), nil, nil); err == nil {
		t.Error("Run(quantize, nil table) succeeded")
	}
	if err := Run(context.Background(), Stage(99), plane.New(8, 8), nil, nil); err == nil {
		t.Error("Run(unknown stage) succeeded")
	}
}

func BenchmarkCompress_1080pLuma(b *testing.B) {
	p := randomPlane(1920, 1080, 1)
	table := quant.Luma
	sched := parallel.New(0)
	ctx := context.Background()
	b.SetBytes(int64(len(p.Pix)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Compress(ctx, p, &table, sched); err != nil {
			b.Fatal(err)
		}
	}
}
