// Package metric measures how far an effect output has drifted from its
// source frame: PSNR over RGB and windowed SSIM over luma.
package metric

import (
	"fmt"
	"image"
	"math"

	"github.com/deepteams/jpegfx/internal/ycc"
)

// MaxPSNR is reported for identical frames.
const MaxPSNR = 99.0

// Report holds the distortion between two frames.
type Report struct {
	PSNR float64 // dB over the RGB channels
	SSIM float64 // mean luma SSIM, 1 for identical frames
}

func (r Report) String() string {
	return fmt.Sprintf("psnr=%.2fdB ssim=%.4f", r.PSNR, r.SSIM)
}

// Compare measures got against ref. Both must have the same size.
func Compare(ref, got *image.RGBA) (Report, error) {
	rb, gb := ref.Bounds(), got.Bounds()
	if rb.Size() != gb.Size() {
		return Report{}, fmt.Errorf("metric: size mismatch %v vs %v", rb.Size(), gb.Size())
	}
	w, h := rb.Dx(), rb.Dy()
	if w == 0 || h == 0 {
		return Report{}, fmt.Errorf("metric: empty frame")
	}

	var sse uint64
	ly1 := make([]uint8, w*h)
	ly2 := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		p1 := ref.Pix[ref.PixOffset(rb.Min.X, rb.Min.Y+y):]
		p2 := got.Pix[got.PixOffset(gb.Min.X, gb.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := x * 4
			for c := 0; c < 3; c++ {
				d := int(p1[i+c]) - int(p2[i+c])
				sse += uint64(d * d)
			}
			ly1[y*w+x] = luma8(p1[i : i+3])
			ly2[y*w+x] = luma8(p2[i : i+3])
		}
	}
	return Report{
		PSNR: PSNR(sse, w*h*3),
		SSIM: SSIM(ly1, ly2, w, h),
	}, nil
}

func luma8(p []uint8) uint8 {
	const inv = 1.0 / 255
	v := ycc.RGBToY(float32(p[0])*inv, float32(p[1])*inv, float32(p[2])*inv)
	return uint8(min(max(math.Round(float64(v)*255), 0), 255))
}

// PSNR converts a sum of squared 8-bit errors over count samples to dB.
func PSNR(sse uint64, count int) float64 {
	if sse == 0 || count == 0 {
		return MaxPSNR
	}
	mse := float64(sse) / float64(count)
	return 10 * math.Log10(255*255/mse)
}

// SSIM returns the mean SSIM of two w x h planes, evaluated at every
// sample with a 7x7 hat-weighted window clipped at the plane edges.
func SSIM(a, b []uint8, w, h int) float64 {
	if w == 0 || h == 0 {
		return 1
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += windowSSIM(a, b, w, h, x, y)
		}
	}
	return sum / float64(w*h)
}

// stats accumulates weighted first and second moments of a sample pair.
type stats struct {
	w             uint32
	xm, ym        uint32
	xxm, xym, yym uint32
}

func (s *stats) add(x, y uint8, w uint32) {
	s.w += w
	s.xm += w * uint32(x)
	s.ym += w * uint32(y)
	s.xxm += w * uint32(x) * uint32(x)
	s.xym += w * uint32(x) * uint32(y)
	s.yym += w * uint32(y) * uint32(y)
}

const radius = 3

var weight = [2*radius + 1]uint32{1, 2, 3, 4, 3, 2, 1}

func windowSSIM(a, b []uint8, w, h, xo, yo int) float64 {
	var s stats
	for y := max(yo-radius, 0); y <= min(yo+radius, h-1); y++ {
		wy := weight[radius+y-yo]
		for x := max(xo-radius, 0); x <= min(xo+radius, w-1); x++ {
			i := y*w + x
			s.add(a[i], b[i], wy*weight[radius+x-xo])
		}
	}
	return s.ssim()
}

// ssim evaluates the statistics in integer arithmetic. Very dark windows
// count as identical.
func (s *stats) ssim() float64 {
	n := uint64(s.w)
	n2 := n * n
	c1 := 20 * n2
	c2 := 60 * n2
	dark := 8 * 8 * n2

	xmxm := uint64(s.xm) * uint64(s.xm)
	ymym := uint64(s.ym) * uint64(s.ym)
	if xmxm+ymym < dark {
		return 1
	}
	xmym := uint64(s.xm) * uint64(s.ym)
	sxy := int64(uint64(s.xym)*n) - int64(xmym)
	sxx := uint64(s.xxm)*n - xmxm
	syy := uint64(s.yym)*n - ymym
	var sxyPos uint64
	if sxy > 0 {
		sxyPos = uint64(sxy)
	}
	// Descale to keep the products below 2^64.
	num := (2*sxyPos + c2) >> 8
	den := (sxx + syy + c2) >> 8
	fnum := (2*xmym + c1) * num
	fden := (xmxm + ymym + c1) * den
	if fden == 0 {
		return 1
	}
	return float64(fnum) / float64(fden)
}
