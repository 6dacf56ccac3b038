package jpegfx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ranges accepted by Settings.Validate.
const (
	MaxDownsampleRatio      = 8
	MaxChromaSubsampleRatio = 32
)

// FilterMode selects the resampling filter for the pre-downsample and for
// chroma upsampling.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

func (m FilterMode) String() string {
	switch m {
	case FilterNearest:
		return "nearest"
	case FilterLinear:
		return "linear"
	}
	return fmt.Sprintf("FilterMode(%d)", int(m))
}

// ParseFilterMode parses "nearest" (or "point") and "linear" (or "bilinear").
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "point", "":
		return FilterNearest, nil
	case "linear", "bilinear":
		return FilterLinear, nil
	}
	return 0, fmt.Errorf("jpegfx: unknown filter mode %q (use nearest/linear)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m FilterMode) MarshalText() ([]byte, error) {
	if m != FilterNearest && m != FilterLinear {
		return nil, fmt.Errorf("jpegfx: invalid filter mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FilterMode) UnmarshalText(b []byte) error {
	v, err := ParseFilterMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Settings controls the effect. A Settings value is read once per frame;
// changing it between frames is cheap, derived sizes and tables are only
// rebuilt for the fields that changed.
type Settings struct {
	// DownsampleRatio shrinks the frame by this factor before compression
	// and scales the result back up afterwards (1-8, default 1).
	DownsampleRatio int `yaml:"downsample_ratio"`

	// DownsampleFilter is used for both the shrink and the scale back.
	DownsampleFilter FilterMode `yaml:"downsample_filter"`

	// ChromaSubsampleRatio stores Cb and Cr at 1/ratio of the luma
	// resolution in each direction (1-32, default 2).
	ChromaSubsampleRatio int `yaml:"chroma_subsample_ratio"`

	// ChromaFilter selects how chroma is upsampled when rebuilding RGB.
	// FilterNearest keeps chroma blocky.
	ChromaFilter FilterMode `yaml:"chroma_filter"`

	// Quality divides the quantization tables by Quality². Larger values
	// keep more detail. Must be positive (default 1).
	Quality float64 `yaml:"quality"`

	// Label names the effect instance in logs.
	Label string `yaml:"label,omitempty"`
}

// DefaultSettings returns 4:2:0 chroma at quality 1 with no pre-downsample.
func DefaultSettings() Settings {
	return Settings{
		DownsampleRatio:      1,
		DownsampleFilter:     FilterNearest,
		ChromaSubsampleRatio: 2,
		ChromaFilter:         FilterNearest,
		Quality:              1,
		Label:                "jpegfx",
	}
}

// EffectiveQuality returns the factor the quantization tables are divided by.
func (s Settings) EffectiveQuality() float64 {
	return s.Quality * s.Quality
}

// Validate reports the first out-of-range field. The returned error wraps
// ErrInvalidSettings.
func (s Settings) Validate() error {
	switch {
	case s.DownsampleRatio < 1 || s.DownsampleRatio > MaxDownsampleRatio:
		return fmt.Errorf("%w: downsample ratio %d outside [1,%d]", ErrInvalidSettings, s.DownsampleRatio, MaxDownsampleRatio)
	case s.ChromaSubsampleRatio < 1 || s.ChromaSubsampleRatio > MaxChromaSubsampleRatio:
		return fmt.Errorf("%w: chroma subsample ratio %d outside [1,%d]", ErrInvalidSettings, s.ChromaSubsampleRatio, MaxChromaSubsampleRatio)
	case !(s.Quality > 0) || math.IsInf(s.Quality, 0):
		return fmt.Errorf("%w: quality %v must be positive and finite", ErrInvalidSettings, s.Quality)
	case !(s.EffectiveQuality() > 0) || math.IsInf(s.EffectiveQuality(), 0):
		return fmt.Errorf("%w: quality %v squared is out of range", ErrInvalidSettings, s.Quality)
	case s.DownsampleFilter != FilterNearest && s.DownsampleFilter != FilterLinear:
		return fmt.Errorf("%w: downsample filter %v", ErrInvalidSettings, s.DownsampleFilter)
	case s.ChromaFilter != FilterNearest && s.ChromaFilter != FilterLinear:
		return fmt.Errorf("%w: chroma filter %v", ErrInvalidSettings, s.ChromaFilter)
	}
	return nil
}

// ParseSettings decodes YAML settings. Fields missing from the document
// keep their DefaultSettings values; unknown fields are an error.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("jpegfx: parsing settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads YAML settings from a file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("jpegfx: reading settings: %w", err)
	}
	return ParseSettings(data)
}

// YAML encodes s as a YAML document that ParseSettings accepts.
func (s Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
