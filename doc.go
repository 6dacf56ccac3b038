// Package jpegfx degrades images the way an over-compressed JPEG does,
// as a real-time video effect.
//
// A frame is optionally shrunk, split into Y, Cb and Cr planes with the
// chroma planes subsampled, pushed through an 8x8 DCT, quantized with the
// standard JPEG tables scaled by a quality factor and transformed back.
// Nothing is entropy coded; only the loss is kept.
//
// Basic usage:
//
//	p := jpegfx.NewPipeline()
//	s := jpegfx.DefaultSettings()
//	s.Quality = 4
//	out, err := p.ApplyEffect(ctx, img, s)
//	if err != nil {
//		// show img unmodified
//	}
//
// Effect wraps a Pipeline for callers that want the fall-back behaviour
// handled for them.
package jpegfx
