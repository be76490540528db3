// Package spotfind locates a known number of bright, roughly-Gaussian
// spots in a single-channel intensity frame and reports sub-pixel
// centroid, peak, FWHM, and energy per spot.
//
// The pipeline is strictly stage-shaped: hot-pixel suppression,
// binarization, connected-component labeling, candidate selection,
// windowed 2D-Gaussian refinement, duplicate suppression, and ranking.
// Coordinates are 0-based throughout, with X the column and Y the row;
// the region-file exporter applies its 1-based shift at export time.
package spotfind

import (
	"errors"
	"fmt"
	"sort"

	"spotfinder/internal/models"
	"spotfinder/pkg/config"
	"spotfinder/pkg/frame"
)

// ErrNoFrame reports that the pipeline was invoked without usable
// image data. Callers must check for it before consuming results.
var ErrNoFrame = errors.New("spotfind: no image data loaded")

// Finder runs the detection pipeline with a fixed, validated
// configuration. A Finder is cheap and holds no per-run state; each
// Find call owns its intermediates, so independent frames may be
// processed by separate Finders concurrently.
type Finder struct {
	cfg    config.Config
	nspots int
	hook   func([]models.Spot)
}

// New creates a Finder expecting nspots spots per frame. The
// configuration is validated once here; nil selects the defaults.
func New(cfg *config.Config, nspots int) (*Finder, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if nspots < 1 {
		return nil, fmt.Errorf("config: expected spot count must be at least 1, got %d", nspots)
	}
	return &Finder{cfg: *cfg, nspots: nspots}, nil
}

// SetResultHook registers a callback receiving the accepted spot list
// after each run. External collaborators (region-file writers, test
// rigs) consume the final centroids here without re-deriving them.
func (f *Finder) SetResultHook(hook func([]models.Spot)) {
	f.hook = hook
}

// Result is the outcome of one pipeline run. The per-metric slices are
// parallel arrays over all ranked spots, aligned by rank; Accepted is
// the duplicate-suppressed subset delivered to consumers.
type Result struct {
	X      []float64
	Y      []float64
	Peaks  []float64
	FWHM   []float64
	Energy []float64

	// Spots is every refined detection in rank order.
	Spots []models.Spot

	// Accepted is the proximity-filtered subset of Spots, in rank
	// order. This is the delivered output.
	Accepted []models.Spot

	// Mask is the binary mask of the attempt that produced the
	// result, retained for diagnostic export.
	Mask *frame.Mask

	// Level is the binarization level actually applied.
	Level float64

	// Retried reports that automatic thresholding under-detected and
	// the pipeline re-ran once in fractional mode.
	Retried bool

	// Warnings carries the advisory per-spot messages (peak out of ADU
	// range, implausibly narrow FWHM). They never abort a run.
	Warnings []string
}

// Find runs the full pipeline on img. The frame itself is never
// mutated; hot-pixel filtering operates on a private copy. Fewer spots
// than requested may come back when the frame cannot justify more;
// that is reported through the result rather than an error.
func (f *Finder) Find(img *frame.Frame) (*Result, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height {
		return nil, ErrNoFrame
	}
	det := f.cfg.Detection
	verbose := f.cfg.Output.Verbose

	// Stage 1: clamp negatives and suppress isolated hot pixels on a
	// private working copy.
	work := img.Clone()
	work.ClampNegative()
	if n := RemoveHotPixels(work, det.HotPixelSigma); verbose {
		fmt.Printf("hot-pixel filter replaced %d pixels (cut %g sigma)\n", n, det.HotPixelSigma)
	}

	// Stages 2-4: binarize, label, select. When automatic thresholding
	// yields fewer candidates than requested, rerun once forcing the
	// fractional level. The loop is explicitly bounded to one retry:
	// fractional mode cannot trigger another pass.
	res := &Result{}
	useOtsu := det.UseOtsu
	var cands []models.Region
	for attempt := 0; ; attempt++ {
		mask, level := Binarize(work, det.LevelFraction, useOtsu)
		regions := LabelComponents(mask, work)
		cands = SelectSpots(regions, f.nspots)
		res.Mask = mask
		res.Level = level
		if verbose {
			fmt.Printf("binarized at level %g: %d foreground pixels, %d candidate regions\n",
				level, mask.Foreground(), len(cands))
		}
		if len(cands) >= f.nspots || !useOtsu || attempt > 0 {
			break
		}
		if verbose {
			fmt.Printf("retrying with fractional level (%g * peak) instead of otsu\n", det.LevelFraction)
		}
		useOtsu = false
		res.Retried = true
	}

	// Stage 5: windowed Gaussian refinement per candidate.
	spots := make([]models.Spot, 0, len(cands))
	for _, cand := range cands {
		spot, fit := RefineSpot(work, cand, det.FitboxSize)
		if spot.Peak < 0 || spot.Peak > det.MaxCounts {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("peak %.1f outside expected range [0, %g]", spot.Peak, det.MaxCounts))
		}
		if spot.FWHM < 1 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("fwhm %.2f appears invalid, check fitbox size (%d) and illumination", spot.FWHM, det.FitboxSize))
		}
		if verbose && !fit.Converged {
			fmt.Printf("fit did not converge near (%.1f, %.1f); using seed parameters\n", cand.Col, cand.Row)
		}
		spots = append(spots, spot)
	}

	// Stage 6: energy, rank by descending peak (stable, so ties keep
	// discovery order).
	finalize(spots, det.MaxCounts)
	res.Spots = spots

	// Stage 7: suppress detections within one fitbox of a brighter
	// accepted one.
	res.Accepted = FilterClose(spots, float64(det.FitboxSize))

	res.X = make([]float64, len(spots))
	res.Y = make([]float64, len(spots))
	res.Peaks = make([]float64, len(spots))
	res.FWHM = make([]float64, len(spots))
	res.Energy = make([]float64, len(spots))
	for i, s := range spots {
		res.X[i] = s.X
		res.Y[i] = s.Y
		res.Peaks[i] = s.Peak
		res.FWHM[i] = s.FWHM
		res.Energy[i] = s.Energy
	}

	if f.hook != nil {
		f.hook(res.Accepted)
	}
	return res, nil
}

// finalize computes per-spot energy, sorts by peak descending with a
// stable tie-break on discovery order, and assigns ranks.
func finalize(spots []models.Spot, maxCounts float64) {
	for i := range spots {
		spots[i].Energy = spots[i].FWHM * (spots[i].Peak / maxCounts)
	}
	sort.SliceStable(spots, func(i, j int) bool {
		return spots[i].Peak > spots[j].Peak
	})
	for i := range spots {
		spots[i].Rank = i
	}
}
