package spotfind

import (
	"gonum.org/v1/gonum/stat"

	"spotfinder/pkg/frame"
)

// DefaultHotPixelSigma is the general-purpose hot-pixel cut. The
// detection pipeline itself runs a harder cut (see config).
const DefaultHotPixelSigma = 5

// RemoveHotPixels replaces isolated outlier pixels in f in place and
// returns how many pixels were replaced.
//
// The threshold is mean + nsigma*sigma of the pre-filter image; all
// statistics and neighbor tests read a snapshot taken before any
// replacement, so earlier replacements cannot feed into later ones.
// An interior candidate is replaced by the average of its four
// axis-aligned neighbors, but only when none of those neighbors is
// itself above the threshold: a clump of bright pixels is a real spot
// and must survive. Border candidates have fewer than four neighbors
// and are conservatively replaced by the image median.
func RemoveHotPixels(f *frame.Frame, nsigma float64) int {
	if len(f.Pix) == 0 {
		return 0
	}

	mean := stat.Mean(f.Pix, nil)
	sigma := stat.StdDev(f.Pix, nil)
	thresh := mean + nsigma*sigma

	ref := f.Clone()
	median := 0.0
	medianKnown := false
	replaced := 0

	for r := 0; r < ref.Height; r++ {
		for c := 0; c < ref.Width; c++ {
			if ref.At(r, c) <= thresh {
				continue
			}
			if r == 0 || r == ref.Height-1 || c == 0 || c == ref.Width-1 {
				if !medianKnown {
					median = ref.Median()
					medianKnown = true
				}
				f.Set(r, c, median)
				replaced++
				continue
			}
			up := ref.At(r-1, c)
			down := ref.At(r+1, c)
			left := ref.At(r, c-1)
			right := ref.At(r, c+1)
			if up > thresh || down > thresh || left > thresh || right > thresh {
				continue
			}
			f.Set(r, c, (up+down+left+right)/4)
			replaced++
		}
	}
	return replaced
}
