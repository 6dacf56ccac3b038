// Command jpegfx applies the JPEG compression effect from the command line.
//
// Usage:
//
//	jpegfx apply [options] <input>      PNG/JPEG/GIF/BMP/TIFF/WebP -> PNG/JPEG/WebP (use "-" for stdin)
//	jpegfx stream -size WxH [options]   raw RGBA frames stdin -> stdout
//	jpegfx tables [-quality q]          print the scaled quantization tables
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gen2brain/webp"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gopkg.in/yaml.v3"

	"github.com/deepteams/jpegfx"
	"github.com/deepteams/jpegfx/framestream"
	"github.com/deepteams/jpegfx/internal/metric"
	"github.com/deepteams/jpegfx/internal/quant"
	"github.com/deepteams/jpegfx/postfx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "jpegfx: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "apply":
		return runApply(ctx, args[1:], stdin, stdout, stderr)
	case "stream":
		return runStream(ctx, args[1:], stdin, stdout, stderr)
	case "tables":
		return runTables(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		printUsage(stderr)
		return flag.ErrHelp
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  jpegfx apply [options] <input>      Apply the effect to an image
  jpegfx stream -size WxH [options]   Apply the effect to raw RGBA frames
  jpegfx tables [-quality q]          Print the scaled quantization tables

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "jpegfx <command> -h" for command-specific options.
`)
}

// config is the YAML document read by -config. The effect settings sit at
// the top level next to the optional post effects.
type config struct {
	jpegfx.Settings `yaml:",inline"`

	Invert  *postfx.Invert  `yaml:"invert,omitempty"`
	Sharpen *postfx.Sharpen `yaml:"sharpen,omitempty"`
}

func loadConfig(path string) (config, error) {
	c := config{Settings: jpegfx.DefaultSettings()}
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// effectFlags are the flags shared by apply and stream.
type effectFlags struct {
	fs        *flag.FlagSet
	ds        *int
	dsFilter  *string
	cs        *int
	csFilter  *string
	quality   *float64
	label     *string
	config    *string
	invert    *float64
	sharpen   *float64
	workers   *int
	verbosity *int
}

func addEffectFlags(fs *flag.FlagSet) *effectFlags {
	d := jpegfx.DefaultSettings()
	return &effectFlags{
		fs:        fs,
		ds:        fs.Int("ds", d.DownsampleRatio, "pre-downsample ratio 1-8"),
		dsFilter:  fs.String("ds-filter", d.DownsampleFilter.String(), "pre-downsample filter: nearest/linear"),
		cs:        fs.Int("cs", d.ChromaSubsampleRatio, "chroma subsample ratio 1-32"),
		csFilter:  fs.String("cs-filter", d.ChromaFilter.String(), "chroma upsample filter: nearest/linear"),
		quality:   fs.Float64("q", d.Quality, "quality; tables are divided by q*q"),
		label:     fs.String("label", d.Label, "name used in log messages"),
		config:    fs.String("config", "", "YAML settings file (flags override it)"),
		invert:    fs.Float64("invert", 0, "invert strength 0-1 applied after the effect"),
		sharpen:   fs.Float64("sharpen", 0, "sharpen amount 0-10 applied after the effect"),
		workers:   fs.Int("workers", 0, "worker goroutines per pass (0=GOMAXPROCS)"),
		verbosity: fs.Int("v", 0, "log verbosity"),
	}
}

// resolve merges the config file with the flags set on the command line.
func (f *effectFlags) resolve() (config, error) {
	c, err := loadConfig(*f.config)
	if err != nil {
		return c, err
	}
	var ferr error
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "ds":
			c.DownsampleRatio = *f.ds
		case "ds-filter":
			if c.DownsampleFilter, err = jpegfx.ParseFilterMode(*f.dsFilter); err != nil {
				ferr = err
			}
		case "cs":
			c.ChromaSubsampleRatio = *f.cs
		case "cs-filter":
			if c.ChromaFilter, err = jpegfx.ParseFilterMode(*f.csFilter); err != nil {
				ferr = err
			}
		case "q":
			c.Quality = *f.quality
		case "label":
			c.Label = *f.label
		case "invert":
			c.Invert = &postfx.Invert{Strength: *f.invert}
		case "sharpen":
			s := postfx.DefaultSharpen()
			if c.Sharpen != nil {
				s = *c.Sharpen
			}
			s.Amount = *f.sharpen
			c.Sharpen = &s
		}
	})
	if ferr != nil {
		return c, ferr
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// post returns the post effect chain configured in c.
func (c config) post() (postfx.Chain, error) {
	var chain postfx.Chain
	if c.Sharpen != nil {
		if err := c.Sharpen.Validate(); err != nil {
			return nil, err
		}
		chain = append(chain, *c.Sharpen)
	}
	if c.Invert != nil {
		if err := c.Invert.Validate(); err != nil {
			return nil, err
		}
		chain = append(chain, *c.Invert)
	}
	return chain, nil
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(w, "jpegfx: ", log.LstdFlags))
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

// openOutput returns an io.WriteCloser for the given path.
// If path is "-", stdout is returned.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// --- apply ---

func runApply(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEffectFlags(fs)
	output := fs.String("o", "", `output path (default: <input>.fx.png, "-" for PNG on stdout)`)
	format := fs.String("fmt", "", "output format: png/jpeg/webp (default: from output extension)")
	outQuality := fs.Int("oq", 90, "output quality 1-100 for JPEG and WebP")
	metrics := fs.Bool("metrics", false, "report PSNR and SSIM against the input")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("apply: missing input file\nUsage: jpegfx apply [options] <input>")
	}
	inputPath := fs.Arg(0)

	c, err := ef.resolve()
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	chain, err := c.post()
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	logger := newLogger(stderr, *ef.verbosity)

	in, err := openInput(inputPath, stdin)
	if err != nil {
		return err
	}
	src, srcFormat, err := image.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("apply: decoding %s: %w", inputPath, err)
	}
	logger.V(1).Info("decoded input", "path", inputPath, "format", srcFormat, "bounds", src.Bounds().String())

	p := jpegfx.NewPipeline(jpegfx.WithLogger(logger), jpegfx.WithWorkers(*ef.workers))
	defer p.Close()
	start := time.Now()
	out, err := p.ApplyEffect(ctx, src, c.Settings)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if out, err = chain.Apply(ctx, out); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	logger.V(1).Info("effect applied", "elapsed", time.Since(start).String())
	if *metrics {
		r, err := metric.Compare(toRGBA(src), out)
		if err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		fmt.Fprintf(stderr, "%s: %v\n", inputPath, r)
	}

	outputPath := *output
	if outputPath == "" {
		if inputPath == "-" {
			outputPath = "-"
		} else {
			outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".fx.png"
		}
	}
	f := detectOutputFormat(*format, outputPath)
	w, err := openOutput(outputPath, stdout)
	if err != nil {
		return err
	}
	if err := encodeImage(w, out, f, *outQuality); err != nil {
		w.Close()
		return fmt.Errorf("apply: encoding %s: %w", f, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	if outputPath != "-" {
		fmt.Fprintf(stderr, "%s -> %s (%dx%d, %s)\n", inputPath, outputPath,
			out.Bounds().Dx(), out.Bounds().Dy(), f)
	}
	return nil
}

// detectOutputFormat returns the output format from the explicit flag or
// the file extension, defaulting to PNG.
func detectOutputFormat(fmtFlag, outputPath string) string {
	if fmtFlag != "" {
		return strings.ToLower(fmtFlag)
	}
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".webp":
		return "webp"
	}
	return "png"
}

func encodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "webp":
		return webp.Encode(w, img, webp.Options{Quality: quality, Method: 4})
	case "png":
		return png.Encode(w, img)
	}
	return fmt.Errorf("unknown output format %q (use png/jpeg/webp)", format)
}

// --- stream ---

func runStream(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEffectFlags(fs)
	size := fs.String("size", "", "frame size WxH (required)")
	input := fs.String("i", "-", `input path ("-" for stdin)`)
	output := fs.String("o", "-", `output path ("-" for stdout)`)
	zstdIn := fs.Bool("zstd", false, "zstd-compressed input and output")
	level := fs.Int("zstd-level", 0, "zstd level for the output (0=default)")
	metrics := fs.Bool("metrics", false, "report mean PSNR and SSIM against the input frames")

	if err := fs.Parse(args); err != nil {
		return err
	}
	w, h, err := parseSize(*size)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	c, err := ef.resolve()
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	chain, err := c.post()
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	logger := newLogger(stderr, *ef.verbosity)

	in, err := openInput(*input, stdin)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := openOutput(*output, stdout)
	if err != nil {
		return err
	}
	defer out.Close()

	opts := framestream.Options{Zstd: *zstdIn, Level: *level}
	fr, err := framestream.NewReader(in, w, h, opts)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	defer fr.Close()
	fw, err := framestream.NewWriter(out, opts)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	fx := jpegfx.NewEffect(c.Settings, jpegfx.WithLogger(logger), jpegfx.WithWorkers(*ef.workers))
	defer fx.Close()
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	var ref *image.RGBA
	if *metrics {
		ref = image.NewRGBA(frame.Rect)
	}
	var busy time.Duration
	var psnr, ssim float64
	for {
		if err := ctx.Err(); err != nil {
			fw.Close()
			return fmt.Errorf("stream: frame %d: %w", fr.Frames(), err)
		}
		if err := fr.ReadInto(frame); err != nil {
			if err == io.EOF {
				break
			}
			fw.Close()
			return fmt.Errorf("stream: frame %d: %w", fr.Frames(), err)
		}
		if ref != nil {
			copy(ref.Pix, frame.Pix)
		}
		start := time.Now()
		res := toRGBA(fx.Apply(ctx, frame))
		if res, err = chain.Apply(ctx, res); err != nil {
			fw.Close()
			return fmt.Errorf("stream: frame %d: %w", fr.Frames(), err)
		}
		busy += time.Since(start)
		if ref != nil {
			r, err := metric.Compare(ref, res)
			if err != nil {
				fw.Close()
				return fmt.Errorf("stream: %w", err)
			}
			psnr += r.PSNR
			ssim += r.SSIM
		}
		if err := fw.Write(res); err != nil {
			fw.Close()
			return fmt.Errorf("stream: %w", err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	n := fw.Frames()
	mean := time.Duration(0)
	if n > 0 {
		mean = busy / time.Duration(n)
	}
	fmt.Fprintf(stderr, "%d frames %dx%d, mean %v/frame\n", n, w, h, mean)
	if ref != nil && n > 0 {
		fmt.Fprintf(stderr, "mean %v\n", metric.Report{PSNR: psnr / float64(n), SSIM: ssim / float64(n)})
	}
	return nil
}

// toRGBA returns img as *image.RGBA, converting only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}

func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid -size %q (want WxH)", s)
	}
	if w, err = strconv.Atoi(ws); err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid -size width %q", ws)
	}
	if h, err = strconv.Atoi(hs); err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid -size height %q", hs)
	}
	return w, h, nil
}

// --- tables ---

func runTables(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tables", flag.ContinueOnError)
	fs.SetOutput(stderr)
	quality := fs.Float64("quality", 1, "quality; tables are divided by quality*quality")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s := jpegfx.DefaultSettings()
	s.Quality = *quality
	if err := s.Validate(); err != nil {
		return fmt.Errorf("tables: %w", err)
	}
	luma, chroma := jpegfx.ScaledTables(*quality)
	fmt.Fprintf(stdout, "quality %g (effective %g)\n", *quality, s.EffectiveQuality())
	printTable(stdout, "luma", luma)
	printTable(stdout, "chroma", chroma)
	return nil
}

func printTable(w io.Writer, name string, t quant.Table) {
	fmt.Fprintf(w, "%s:\n%s", name, &t)
}
