package spotfind

import (
	"spotfinder/pkg/frame"
)

// maxHistogramBins caps the Otsu histogram at the 16-bit ADU range.
const maxHistogramBins = 1 << 16

// Binarize converts an intensity frame into a binary foreground mask.
//
// The fractional level is fraction * max(image). When useOtsu is set,
// the Otsu level is computed as well and the larger of the two wins.
// A pixel is foreground iff its value is strictly greater than the
// effective level. The returned level is the one actually applied.
func Binarize(f *frame.Frame, fraction float64, useOtsu bool) (*frame.Mask, float64) {
	level := fraction * f.Max()
	if useOtsu {
		if otsu := OtsuLevel(f); otsu > level {
			level = otsu
		}
	}

	mask := frame.NewMask(f.Width, f.Height)
	for i, v := range f.Pix {
		if v > level {
			mask.Bits[i] = 1
		}
	}
	return mask, level
}

// OtsuLevel computes an automatic split level for the frame by
// maximizing the between-class variance of its integer ADU histogram.
//
// The histogram covers one bin per ADU count up to the 16-bit camera
// range. Frames with no positive counts yield level 0.
func OtsuLevel(f *frame.Frame) float64 {
	max := f.Max()
	if max <= 0 {
		return 0
	}
	nbins := int(max) + 1
	if nbins > maxHistogramBins {
		nbins = maxHistogramBins
	}

	hist := make([]float64, nbins)
	for _, v := range f.Pix {
		b := int(v)
		if b < 0 {
			b = 0
		} else if b >= nbins {
			b = nbins - 1
		}
		hist[b]++
	}

	total := float64(len(f.Pix))
	sumAll := 0.0
	for b, n := range hist {
		sumAll += float64(b) * n
	}

	var (
		wBack, sumBack float64
		bestVar        float64
		bestLevel      int
	)
	for b, n := range hist {
		wBack += n
		if wBack == 0 {
			continue
		}
		wFore := total - wBack
		if wFore == 0 {
			break
		}
		sumBack += float64(b) * n
		meanBack := sumBack / wBack
		meanFore := (sumAll - sumBack) / wFore
		d := meanBack - meanFore
		between := wBack * wFore * d * d
		if between > bestVar {
			bestVar = between
			bestLevel = b
		}
	}
	return float64(bestLevel)
}
