package jpegfx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/go-logr/logr"

	"github.com/deepteams/jpegfx/internal/dsp"
	"github.com/deepteams/jpegfx/internal/parallel"
	"github.com/deepteams/jpegfx/internal/plane"
	"github.com/deepteams/jpegfx/internal/quant"
	"github.com/deepteams/jpegfx/internal/resample"
	"github.com/deepteams/jpegfx/internal/ycc"
)

// FrameSizes holds the dimensions derived from a source frame and Settings.
type FrameSizes struct {
	Source       image.Point // source frame
	Luma         image.Point // luma plane and working RGB frame
	Chroma       image.Point // each chroma plane
	LumaBlocks   image.Point // 8x8 block grid of the luma plane
	ChromaBlocks image.Point // 8x8 block grid of the chroma planes
}

// Sizes computes the plane sizes for a w x h frame. Every division rounds
// up, so partial blocks and partial subsampling cells are kept.
func Sizes(w, h int, s Settings) FrameSizes {
	ds := max(s.DownsampleRatio, 1)
	cs := max(s.ChromaSubsampleRatio, 1)
	luma := resample.Size(w, h, ds)
	chroma := image.Pt(plane.CeilDiv(luma.X, cs), plane.CeilDiv(luma.Y, cs))
	return FrameSizes{
		Source:       image.Pt(w, h),
		Luma:         luma,
		Chroma:       chroma,
		LumaBlocks:   image.Pt(plane.CeilDiv(luma.X, dsp.BlockSize), plane.CeilDiv(luma.Y, dsp.BlockSize)),
		ChromaBlocks: image.Pt(plane.CeilDiv(chroma.X, dsp.BlockSize), plane.CeilDiv(chroma.Y, dsp.BlockSize)),
	}
}

// ScaledTables returns the luma and chroma quantization tables for the
// given Settings.Quality, in row-major order.
func ScaledTables(quality float64) (luma, chroma [64]int32) {
	q := quality * quality
	return quant.Scale(quant.Luma, q), quant.Scale(quant.Chroma, q)
}

// Stats counts the work a Pipeline has done.
type Stats struct {
	Frames      uint64 // frames completed
	Resizes     uint64 // times the planes were (re)allocated
	TableBuilds uint64 // times the scaled tables were recomputed
}

type options struct {
	log     logr.Logger
	workers int
}

// Option configures a Pipeline or an Effect.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithWorkers limits the goroutines used per pass. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func buildOptions(opts []Option) options {
	o := options{log: logr.Discard()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Pipeline runs the effect frame after frame, keeping its planes, working
// frames and scaled tables between calls. Calls are serialized.
type Pipeline struct {
	mu    sync.Mutex
	log   logr.Logger
	sched *parallel.Scheduler

	arena plane.Arena
	work  *image.RGBA // frame at working resolution
	out   *image.RGBA // frame scaled back to the source size
	sizes FrameSizes

	quality    float64
	haveTables bool
	luma       quant.Table
	chroma     quant.Table

	stats Stats
}

// NewPipeline returns an idle Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	o := buildOptions(opts)
	return &Pipeline{
		log:   o.log,
		sched: parallel.New(o.workers),
	}
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close releases the plane storage. The Pipeline may be used again
// afterwards; it reallocates on the next frame.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arena.Release()
	p.work, p.out = nil, nil
	p.sizes = FrameSizes{}
}

// ApplyEffect degrades img with s and returns the result at the size of
// img. The returned image belongs to the Pipeline and is overwritten by the
// next call.
//
// Errors wrap ErrUnavailable, or are the context's error if ctx ended
// before the frame completed. Either way the frame should be shown
// unmodified; nothing carries over into the next call.
func (p *Pipeline) ApplyEffect(ctx context.Context, img image.Image, s Settings) (out *image.RGBA, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrUnavailable, r)
		}
	}()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrDegenerate)
	}
	b := img.Bounds()
	sz := Sizes(b.Dx(), b.Dy(), s)
	if err := p.prepare(sz); err != nil {
		return nil, err
	}
	p.prepareTables(s.EffectiveQuality())

	if err := p.run(ctx, img, s); err != nil {
		return nil, p.classify(err)
	}
	p.stats.Frames++
	if p.out != nil {
		return p.out, nil
	}
	return p.work, nil
}

// prepare sizes the planes and frames for sz, reallocating only on change.
func (p *Pipeline) prepare(sz FrameSizes) error {
	if sz.Source.X <= 0 || sz.Source.Y <= 0 || sz.Chroma.X <= 0 || sz.Chroma.Y <= 0 {
		return fmt.Errorf("%w: source %v, luma %v, chroma %v", ErrDegenerate, sz.Source, sz.Luma, sz.Chroma)
	}
	if sz == p.sizes && p.work != nil {
		return nil
	}
	if _, err := p.arena.Ensure(plane.Luma, sz.Luma); err != nil {
		return p.classify(err)
	}
	for _, k := range []plane.Kind{plane.Cb, plane.Cr} {
		if _, err := p.arena.Ensure(k, sz.Chroma); err != nil {
			return p.classify(err)
		}
	}
	if p.work == nil || p.work.Bounds().Size() != sz.Luma {
		p.work = image.NewRGBA(image.Rectangle{Max: sz.Luma})
	}
	if sz.Luma == sz.Source {
		p.out = nil
	} else if p.out == nil || p.out.Bounds().Size() != sz.Source {
		p.out = image.NewRGBA(image.Rectangle{Max: sz.Source})
	}
	p.sizes = sz
	p.stats.Resizes++
	p.log.V(1).Info("planes resized",
		"source", sz.Source.String(), "luma", sz.Luma.String(), "chroma", sz.Chroma.String(),
		"lumaBlocks", sz.LumaBlocks.String(), "chromaBlocks", sz.ChromaBlocks.String())
	return nil
}

func (p *Pipeline) prepareTables(q float64) {
	if p.haveTables && q == p.quality {
		return
	}
	p.luma = quant.Scale(quant.Luma, q)
	p.chroma = quant.Scale(quant.Chroma, q)
	p.quality = q
	p.haveTables = true
	p.stats.TableBuilds++
	p.log.V(1).Info("quantization tables rebuilt", "quality", q, "lumaDC", p.luma[0], "chromaDC", p.chroma[0])
}

func (p *Pipeline) run(ctx context.Context, img image.Image, s Settings) error {
	y := p.arena.Get(plane.Luma)
	cb := p.arena.Get(plane.Cb)
	cr := p.arena.Get(plane.Cr)
	ratio := s.ChromaSubsampleRatio

	resample.Into(p.work, img, resample.Filter(s.DownsampleFilter))
	if err := ycc.Forward(ctx, p.work, y, cb, cr, ratio, p.sched); err != nil {
		return fmt.Errorf("rgb to ycbcr: %w", err)
	}

	compress := func(pl *plane.Plane, t *quant.Table) func(context.Context) error {
		return func(ctx context.Context) error { return dsp.Compress(ctx, pl, t, p.sched) }
	}
	if err := parallel.Go(ctx, compress(y, &p.luma), compress(cb, &p.chroma), compress(cr, &p.chroma)); err != nil {
		return fmt.Errorf("block transform: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ycc.Inverse(ctx, p.work, y, cb, cr, ratio, ycc.Filter(s.ChromaFilter), p.sched); err != nil {
		return fmt.Errorf("ycbcr to rgb: %w", err)
	}
	if p.out != nil {
		resample.Into(p.out, p.work, resample.Filter(s.DownsampleFilter))
	}
	return nil
}

// classify maps internal failures onto the package's error taxonomy.
func (p *Pipeline) classify(err error) error {
	switch {
	case isCancel(err):
		return err
	case errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, plane.ErrEmpty):
		return fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// ApplyEffect runs a single frame through a temporary Pipeline. Use a
// Pipeline or an Effect for streams of frames.
func ApplyEffect(ctx context.Context, img image.Image, s Settings, opts ...Option) (*image.RGBA, error) {
	p := NewPipeline(opts...)
	defer p.Close()
	return p.ApplyEffect(ctx, img, s)
}
