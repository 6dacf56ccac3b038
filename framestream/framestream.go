// Package framestream reads and writes raw RGBA video: fixed-size frames
// of width*height*4 bytes back to back, optionally inside a zstd stream.
//
// This is the layout ffmpeg produces and consumes with
// "-f rawvideo -pix_fmt rgba".
package framestream

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrFrameSize = errors.New("framestream: invalid frame size")
	ErrClosed    = errors.New("framestream: closed")
)

// Options controls stream framing.
type Options struct {
	// Zstd wraps the stream in zstd compression.
	Zstd bool

	// Level is the zstd level (1-22) used by a Writer. 0 uses the library
	// default.
	Level int
}

// FrameBytes returns the size of one w x h frame.
func FrameBytes(w, h int) int { return w * h * 4 }

// Reader splits a byte stream into frames.
type Reader struct {
	r      io.Reader
	zr     *zstd.Decoder
	w, h   int
	frames int
}

// NewReader returns a Reader of w x h frames from r.
func NewReader(r io.Reader, w, h int, opts Options) (*Reader, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameSize, w, h)
	}
	fr := &Reader{w: w, h: h}
	if opts.Zstd {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("framestream: zstd: %w", err)
		}
		fr.zr = zr
		fr.r = zr
	} else {
		fr.r = bufio.NewReaderSize(r, FrameBytes(w, h))
	}
	return fr, nil
}

// Size returns the frame size.
func (fr *Reader) Size() image.Point { return image.Pt(fr.w, fr.h) }

// Frames returns how many complete frames have been read.
func (fr *Reader) Frames() int { return fr.frames }

// Next reads the next frame into a new image. It returns io.EOF when the
// stream ends on a frame boundary and io.ErrUnexpectedEOF when it ends
// inside a frame.
func (fr *Reader) Next() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, fr.w, fr.h))
	if err := fr.ReadInto(img); err != nil {
		return nil, err
	}
	return img, nil
}

// ReadInto reads the next frame into dst, which must be exactly the
// stream's frame size.
func (fr *Reader) ReadInto(dst *image.RGBA) error {
	if fr.r == nil {
		return ErrClosed
	}
	if dst.Bounds().Size() != fr.Size() {
		return fmt.Errorf("%w: destination %v, stream %v", ErrFrameSize, dst.Bounds().Size(), fr.Size())
	}
	b := dst.Bounds()
	row := fr.w * 4
	for y := 0; y < fr.h; y++ {
		off := dst.PixOffset(b.Min.X, b.Min.Y+y)
		if _, err := io.ReadFull(fr.r, dst.Pix[off:off+row]); err != nil {
			if errors.Is(err, io.EOF) && y > 0 {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}
	fr.frames++
	return nil
}

// Close releases the zstd decoder, if any.
func (fr *Reader) Close() error {
	if fr.zr != nil {
		fr.zr.Close()
		fr.zr = nil
	}
	fr.r = nil
	return nil
}

// Writer serializes frames. Every frame must have the size of the first.
type Writer struct {
	bw     *bufio.Writer
	zw     *zstd.Encoder
	size   image.Point
	frames int
	closed bool
}

// NewWriter returns a Writer to w.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	fw := &Writer{}
	if opts.Zstd {
		zopts := []zstd.EOption{zstd.WithEncoderConcurrency(runtime.NumCPU())}
		if opts.Level > 0 {
			zopts = append(zopts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)))
		}
		zw, err := zstd.NewWriter(w, zopts...)
		if err != nil {
			return nil, fmt.Errorf("framestream: zstd: %w", err)
		}
		fw.zw = zw
		w = zw
	}
	fw.bw = bufio.NewWriterSize(w, 1<<16)
	return fw, nil
}

// Frames returns how many frames have been written.
func (fw *Writer) Frames() int { return fw.frames }

// Write appends img. Alpha is written as stored.
func (fw *Writer) Write(img *image.RGBA) error {
	if fw.closed {
		return ErrClosed
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: empty frame", ErrFrameSize)
	}
	if fw.frames == 0 {
		fw.size = b.Size()
	} else if b.Size() != fw.size {
		return fmt.Errorf("%w: frame %v, stream %v", ErrFrameSize, b.Size(), fw.size)
	}
	row := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := fw.bw.Write(img.Pix[off : off+row]); err != nil {
			return fmt.Errorf("framestream: write: %w", err)
		}
	}
	fw.frames++
	return nil
}

// Flush pushes buffered frames to the underlying writer. With zstd the
// current block is ended so a reader can decode everything written so far.
func (fw *Writer) Flush() error {
	if fw.closed {
		return ErrClosed
	}
	if err := fw.bw.Flush(); err != nil {
		return fmt.Errorf("framestream: flush: %w", err)
	}
	if fw.zw != nil {
		if err := fw.zw.Flush(); err != nil {
			return fmt.Errorf("framestream: flush: %w", err)
		}
	}
	return nil
}

// Close flushes and, for zstd streams, finishes the zstd frame. It does
// not close the underlying writer.
func (fw *Writer) Close() error {
	if fw.closed {
		return nil
	}
	err := fw.bw.Flush()
	if fw.zw != nil {
		if cerr := fw.zw.Close(); err == nil {
			err = cerr
		}
	}
	fw.closed = true
	if err != nil {
		return fmt.Errorf("framestream: close: %w", err)
	}
	return nil
}
