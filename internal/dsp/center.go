package dsp

// Samples are stored normalized to [0, 1]. The transform runs on the
// signed 8-bit domain [-128, 127].
const (
	sampleScale  = 255
	sampleOffset = 128
)

// Center maps a normalized sample into the signed transform domain.
func Center(v float32) float32 { return v*sampleScale - sampleOffset }

// Decenter is the inverse of Center.
func Decenter(v float32) float32 { return (v + sampleOffset) / sampleScale }

func centerRows(pix []float32, w, y0, y1 int) {
	for i, v := range pix[y0*w : y1*w] {
		pix[y0*w+i] = Center(v)
	}
}

func decenterRows(pix []float32, w, y0, y1 int) {
	for i, v := range pix[y0*w : y1*w] {
		pix[y0*w+i] = Decenter(v)
	}
}
