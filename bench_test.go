package jpegfx

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkApply(b *testing.B, w, h int, s Settings) {
	img := makeNoise(w, h, 1)
	p := NewPipeline()
	defer p.Close()
	ctx := context.Background()
	if _, err := p.ApplyEffect(ctx, img, s); err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(img.Pix)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.ApplyEffect(ctx, img, s); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApplyEffect_720p(b *testing.B) {
	benchmarkApply(b, 1280, 720, DefaultSettings())
}

func BenchmarkApplyEffect_1080p(b *testing.B) {
	benchmarkApply(b, 1920, 1080, DefaultSettings())
}

func BenchmarkApplyEffect_Downsample(b *testing.B) {
	for _, ds := range []int{2, 4, 8} {
		b.Run(fmt.Sprintf("ds%d", ds), func(b *testing.B) {
			s := DefaultSettings()
			s.DownsampleRatio = ds
			s.DownsampleFilter = FilterLinear
			benchmarkApply(b, 1920, 1080, s)
		})
	}
}

func BenchmarkApplyEffect_Workers(b *testing.B) {
	img := makeNoise(1280, 720, 1)
	for _, n := range []int{1, 2, 4} {
		b.Run(fmt.Sprintf("w%d", n), func(b *testing.B) {
			p := NewPipeline(WithWorkers(n))
			defer p.Close()
			b.SetBytes(int64(len(img.Pix)))
			for i := 0; i < b.N; i++ {
				if _, err := p.ApplyEffect(context.Background(), img, DefaultSettings()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
