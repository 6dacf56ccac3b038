package jpegfx

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/go-logr/logr"
)

// Effect applies a Pipeline to a stream of frames and never fails: any
// frame that cannot be processed is returned unchanged.
//
// An ErrUnavailable failure is logged once and disables the effect until
// SetSettings installs new settings. Context cancellation is neither
// logged nor disabling.
type Effect struct {
	p   *Pipeline
	log logr.Logger

	mu       sync.Mutex
	settings Settings
	disabled bool
}

// NewEffect returns an Effect using s.
func NewEffect(s Settings, opts ...Option) *Effect {
	o := buildOptions(opts)
	return &Effect{
		p:        NewPipeline(opts...),
		log:      o.log,
		settings: s,
	}
}

// SetSettings replaces the settings and re-enables a disabled effect.
func (e *Effect) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	e.disabled = false
}

// Settings returns the current settings.
func (e *Effect) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Enabled reports whether frames are currently being processed.
func (e *Effect) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled
}

// Apply returns the processed frame, or img itself when the effect is
// disabled or the frame failed. A processed frame is owned by the Effect
// and overwritten by the next call.
func (e *Effect) Apply(ctx context.Context, img image.Image) image.Image {
	e.mu.Lock()
	s, disabled := e.settings, e.disabled
	e.mu.Unlock()
	if disabled {
		return img
	}

	out, err := e.p.ApplyEffect(ctx, img, s)
	if err == nil {
		return out
	}
	if errors.Is(err, ErrUnavailable) {
		e.mu.Lock()
		// Settings may have changed while the frame ran.
		if e.settings == s && !e.disabled {
			e.disabled = true
			e.log.Error(err, "effect disabled", "label", s.Label, "quality", s.Quality,
				"downsampleRatio", s.DownsampleRatio, "chromaSubsampleRatio", s.ChromaSubsampleRatio)
		}
		e.mu.Unlock()
	}
	return img
}

// Close releases the pipeline buffers.
func (e *Effect) Close() { e.p.Close() }
