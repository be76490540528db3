package models

// Region describes one connected foreground component of the binary mask.
// Label 0 is always the background region; labels >= 1 are spot candidates.
type Region struct {
	// Label is the component identifier assigned by the labeler.
	Label int

	// PixelCount is the number of mask pixels carrying this label.
	PixelCount int

	// Row and Col are the intensity-weighted center of mass of the
	// component, computed over the hot-pixel-filtered image restricted
	// to the component's pixel set. Both are 0-based image coordinates.
	Row float64
	Col float64
}

// FitResult holds the parameters of a fitted 2D Gaussian
//
//	bias + height * exp(-((cr-r)/wr)^2/2 - ((cc-c)/wc)^2/2)
//
// in local window coordinates. Callers translate centers back into
// image coordinates.
type FitResult struct {
	Bias      float64
	Height    float64
	CenterRow float64
	CenterCol float64
	WidthRow  float64
	WidthCol  float64

	// Converged reports whether the least-squares solver terminated
	// normally. When false the parameters are the moments seed or the
	// solver's best iterate.
	Converged bool
}

// Spot is one refined detection in full-image coordinates.
// X is the column and Y the row, both 0-based and sub-pixel.
// Spots are immutable once ranked.
type Spot struct {
	X      float64
	Y      float64
	Peak   float64
	FWHM   float64
	Energy float64

	// Rank is the position in the peak-descending order, 0 being the
	// brightest spot. Ties keep discovery order.
	Rank int

	// Suspect marks a detection whose FWHM stayed below the sanity
	// floor even after the reduced-window refit.
	Suspect bool
}
