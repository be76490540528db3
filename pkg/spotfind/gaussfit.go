package spotfind

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"spotfinder/internal/models"
	"spotfinder/pkg/frame"
)

// FWHMFactor converts a Gaussian sigma to full width at half maximum,
// 2*sqrt(2*ln 2).
const FWHMFactor = 2.3548

// fwhmFloor is the FWHM below which a fit counts as degenerate and the
// refiner retries with a smaller window.
const fwhmFloor = 0.5

// Solver iteration caps. A pathological window must not hang the
// pipeline, so both the simplex iterations and the raw evaluation
// count are bounded.
const (
	maxFitIterations  = 1000
	maxFitEvaluations = 8000
)

// Moments seeds the Gaussian parameters of a window from its image
// moments: bias from the window minimum, center from first moments of
// the bias-subtracted data, widths from second moments along the
// column and row profiles through the center pixel, height from the
// working maximum.
//
// The width moments deliberately mirror the historical estimator used
// on the positioner test stand, including its cross-axis offset terms.
// The resulting seed carries a small systematic pull to one corner
// that the least-squares refinement mostly, but not entirely, removes;
// this is a known open calibration question and is left as-is rather
// than smoothed away.
func Moments(w *frame.Frame) models.FitResult {
	res := models.FitResult{
		CenterRow: float64(w.Height-1) / 2,
		CenterCol: float64(w.Width-1) / 2,
		WidthRow:  1,
		WidthCol:  1,
	}
	if len(w.Pix) == 0 {
		return res
	}

	bias := w.Min()
	res.Bias = bias

	total := 0.0
	height := 0.0
	sumR := 0.0
	sumC := 0.0
	for r := 0; r < w.Height; r++ {
		for c := 0; c < w.Width; c++ {
			v := w.At(r, c) - bias
			total += v
			sumR += v * float64(r)
			sumC += v * float64(c)
			if v > height {
				height = v
			}
		}
	}
	res.Height = height
	if total <= 0 {
		return res
	}

	crow := sumR / total
	ccol := sumC / total
	res.CenterRow = crow
	res.CenterCol = ccol

	// Second moments along the column profile at the center column and
	// the row profile at the center row. The offsets use the opposite
	// axis center, matching the historical estimator.
	colIdx := int(ccol)
	if colIdx >= 0 && colIdx < w.Width {
		var sum, norm float64
		for r := 0; r < w.Height; r++ {
			v := w.At(r, colIdx) - bias
			d := float64(r) - ccol
			sum += d * d * v
			norm += v
		}
		if norm > 0 {
			res.WidthRow = math.Sqrt(math.Abs(sum / norm))
		}
	}
	rowIdx := int(crow)
	if rowIdx >= 0 && rowIdx < w.Height {
		var sum, norm float64
		for c := 0; c < w.Width; c++ {
			v := w.At(rowIdx, c) - bias
			d := float64(c) - crow
			sum += d * d * v
			norm += v
		}
		if norm > 0 {
			res.WidthCol = math.Sqrt(math.Abs(sum / norm))
		}
	}
	return res
}

// gaussianAt evaluates the elliptical Gaussian model at window
// coordinates (r, c) for parameter vector p = [bias, height, crow,
// ccol, wrow, wcol].
func gaussianAt(p []float64, r, c float64) float64 {
	dr := (p[2] - r) / p[4]
	dc := (p[3] - c) / p[5]
	return p[0] + p[1]*math.Exp(-(dr*dr+dc*dc)/2)
}

// FitGaussian fits the 2D Gaussian model to the window by nonlinear
// least squares, seeded from Moments. The solver is derivative-free
// Nelder-Mead with capped iterations; if it fails outright, the seed
// parameters come back with Converged false.
func FitGaussian(w *frame.Frame) models.FitResult {
	seed := Moments(w)
	if len(w.Pix) == 0 {
		return seed
	}

	p0 := []float64{seed.Bias, seed.Height, seed.CenterRow, seed.CenterCol, seed.WidthRow, seed.WidthCol}
	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			if math.Abs(p[4]) < 1e-12 || math.Abs(p[5]) < 1e-12 {
				return math.MaxFloat64
			}
			ssr := 0.0
			for r := 0; r < w.Height; r++ {
				for c := 0; c < w.Width; c++ {
					d := gaussianAt(p, float64(r), float64(c)) - w.At(r, c)
					ssr += d * d
				}
			}
			return ssr
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxFitIterations,
		FuncEvaluations: maxFitEvaluations,
	}

	result, err := optimize.Minimize(problem, p0, settings, &optimize.NelderMead{})
	if err != nil || result == nil || len(result.X) != len(p0) {
		return seed
	}
	return models.FitResult{
		Bias:      result.X[0],
		Height:    result.X[1],
		CenterRow: result.X[2],
		CenterCol: result.X[3],
		WidthRow:  result.X[4],
		WidthCol:  result.X[5],
		Converged: true,
	}
}

// RefineSpot extracts a square window of side 2*halfBox around the
// rounded coarse centroid of cand, fits a 2D Gaussian, and translates
// the fitted center back into sub-pixel image coordinates using the
// unrounded coarse centroid. A fit whose FWHM falls below the sanity
// floor is retried once with the half-width reduced by one; if still
// degenerate, the record is kept and marked suspect.
func RefineSpot(img *frame.Frame, cand models.Region, halfBox int) (models.Spot, models.FitResult) {
	prow := int(math.Round(cand.Row))
	pcol := int(math.Round(cand.Col))

	fit, fwhm, r0, c0 := fitWindow(img, prow, pcol, halfBox)
	if fwhm < fwhmFloor && halfBox > 1 {
		fit, fwhm, r0, c0 = fitWindow(img, prow, pcol, halfBox-1)
	}

	// Translate back using the unrounded centroid so the placement
	// rounding does not compound with the fit offset. The window origin
	// is used directly, which also covers windows clipped at the frame
	// border.
	spot := models.Spot{
		X:       cand.Col - float64(pcol-c0) + fit.CenterCol,
		Y:       cand.Row - float64(prow-r0) + fit.CenterRow,
		Peak:    fit.Height,
		FWHM:    fwhm,
		Suspect: fwhm < fwhmFloor,
	}
	return spot, fit
}

// fitWindow runs one windowed fit and reports the fit, its FWHM, and
// the clipped window origin.
func fitWindow(img *frame.Frame, prow, pcol, halfBox int) (models.FitResult, float64, int, int) {
	win, r0, c0 := img.Window(prow-halfBox, pcol-halfBox, 2*halfBox, 2*halfBox)
	fit := FitGaussian(win)
	fwhm := math.Abs(FWHMFactor * math.Max(fit.WidthRow, fit.WidthCol))
	return fit, fwhm, r0, c0
}

// Magnitude returns the instrumental magnitude of a peak above the
// fitted bias, on the test stand's 25-point scale.
func Magnitude(peak, bias float64) float64 {
	return 25.0 - 2.5*math.Log10(peak-bias)
}
