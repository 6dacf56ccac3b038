package dsp

import (
	"context"
	"fmt"

	"github.com/deepteams/jpegfx/internal/parallel"
	"github.com/deepteams/jpegfx/internal/plane"
	"github.com/deepteams/jpegfx/internal/quant"
)

// Stage is one full pass of the block transform engine. Stages run in the
// order of their values, each to completion before the next starts.
type Stage int

const (
	StageCenter Stage = iota
	StageForwardH
	StageForwardV
	StageQuantize
	StageInverseH
	StageInverseV
	StageDecenter
	numStages
)

var stageNames = [numStages]string{
	"center", "fdct-h", "fdct-v", "quantize", "idct-h", "idct-v", "decenter",
}

func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages returns every stage in execution order.
func Stages() []Stage {
	out := make([]Stage, numStages)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

// Run executes stage s over the whole plane p. t is only read by
// StageQuantize and may be nil for the others. Run returns after every
// unit of work has finished.
func Run(ctx context.Context, s Stage, p *plane.Plane, t *quant.Table, sched *parallel.Scheduler) error {
	if p.Empty() {
		return nil
	}
	pix, w, h := p.Pix, p.Width, p.Height
	switch s {
	case StageCenter:
		return sched.For(ctx, h, func(y0, y1 int) { centerRows(pix, w, y0, y1) })
	case StageForwardH:
		return sched.For(ctx, h, func(y0, y1 int) { transformRows(ForwardSegment, pix, w, y0, y1) })
	case StageForwardV:
		return sched.For(ctx, w, func(x0, x1 int) { transformCols(ForwardSegment, pix, w, h, x0, x1) })
	case StageQuantize:
		if t == nil {
			return fmt.Errorf("dsp: %v needs a quantization table", s)
		}
		return sched.For(ctx, h, func(y0, y1 int) { quantizeRows(pix, w, t, y0, y1) })
	case StageInverseH:
		return sched.For(ctx, h, func(y0, y1 int) { transformRows(InverseSegment, pix, w, y0, y1) })
	case StageInverseV:
		return sched.For(ctx, w, func(x0, x1 int) { transformCols(InverseSegment, pix, w, h, x0, x1) })
	case StageDecenter:
		return sched.For(ctx, h, func(y0, y1 int) { decenterRows(pix, w, y0, y1) })
	}
	return fmt.Errorf("dsp: unknown stage %v", s)
}

// Compress runs every stage over p in order, stopping early if ctx is
// cancelled between stages.
func Compress(ctx context.Context, p *plane.Plane, t *quant.Table, sched *parallel.Scheduler) error {
	for _, s := range Stages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := Run(ctx, s, p, t, sched); err != nil {
			return fmt.Errorf("dsp: %v: %w", s, err)
		}
	}
	return nil
}
