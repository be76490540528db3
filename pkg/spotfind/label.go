package spotfind

import (
	"sort"

	"spotfinder/internal/models"
	"spotfinder/pkg/frame"
)

// LabelComponents partitions the mask into 8-connected foreground
// components and returns one Region per label, background included.
//
// Label 0 is always the background (mask == 0); foreground components
// get labels 1, 2, ... in scan order. The pixel counts over all
// returned regions, background included, sum to the mask area. Each
// region's centroid is the intensity-weighted center of mass over img
// restricted to the region's pixels; img must be the
// hot-pixel-filtered frame the mask was derived from.
func LabelComponents(mask *frame.Mask, img *frame.Frame) []models.Region {
	type accum struct {
		count  int
		weight float64
		sumR   float64
		sumC   float64
		sumRU  float64 // unweighted fallbacks
		sumCU  float64
	}

	labels := make([]int32, len(mask.Bits))
	regions := []*accum{{}} // index 0 = background
	stack := make([]int, 0, 64)

	for start := range mask.Bits {
		if mask.Bits[start] == 0 {
			bg := regions[0]
			bg.count++
			continue
		}
		if labels[start] != 0 {
			continue
		}

		label := int32(len(regions))
		acc := &accum{}
		regions = append(regions, acc)

		stack = append(stack[:0], start)
		labels[start] = label
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			r := idx / mask.Width
			c := idx % mask.Width
			w := img.Pix[idx]
			acc.count++
			acc.weight += w
			acc.sumR += w * float64(r)
			acc.sumC += w * float64(c)
			acc.sumRU += float64(r)
			acc.sumCU += float64(c)

			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= mask.Height || nc < 0 || nc >= mask.Width {
						continue
					}
					nidx := nr*mask.Width + nc
					if mask.Bits[nidx] == 0 || labels[nidx] != 0 {
						continue
					}
					labels[nidx] = label
					stack = append(stack, nidx)
				}
			}
		}
	}

	out := make([]models.Region, len(regions))
	for i, acc := range regions {
		reg := models.Region{Label: i, PixelCount: acc.count}
		if acc.weight > 0 {
			reg.Row = acc.sumR / acc.weight
			reg.Col = acc.sumC / acc.weight
		} else if acc.count > 0 && i != 0 {
			// All-zero intensities under the label; fall back to the
			// geometric centroid of the mask pixels.
			reg.Row = acc.sumRU / float64(acc.count)
			reg.Col = acc.sumCU / float64(acc.count)
		}
		out[i] = reg
	}
	return out
}

// SelectSpots ranks foreground regions by pixel count descending and
// keeps the top n as fit candidates. The background region is never a
// candidate, and fewer than n regions may come back when the mask is
// sparse. Ties keep label order.
func SelectSpots(regions []models.Region, n int) []models.Region {
	cands := make([]models.Region, 0, len(regions))
	for _, reg := range regions {
		if reg.Label == 0 {
			continue
		}
		cands = append(cands, reg)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].PixelCount > cands[j].PixelCount
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	return cands
}
