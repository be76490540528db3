// Package frame holds the single-channel intensity grid the detection
// pipeline operates on, plus loading and diagnostic export helpers for
// FITS and plain grayscale images.
package frame

import (
	"image"
	"image/color"
	"sort"
)

// Frame is a single-channel 2D intensity image stored as a flat
// row-major float64 slice. Pixel values are camera ADU counts.
type Frame struct {
	Pix    []float64
	Width  int
	Height int
}

// New returns a zero-filled frame of the given dimensions.
func New(width, height int) *Frame {
	return &Frame{
		Pix:    make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the pixel value at the given row and column.
func (f *Frame) At(row, col int) float64 {
	return f.Pix[row*f.Width+col]
}

// Set stores a pixel value at the given row and column.
func (f *Frame) Set(row, col int, v float64) {
	f.Pix[row*f.Width+col] = v
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := New(f.Width, f.Height)
	copy(c.Pix, f.Pix)
	return c
}

// Max returns the largest pixel value, or 0 for an empty frame.
func (f *Frame) Max() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	max := f.Pix[0]
	for _, v := range f.Pix[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Min returns the smallest pixel value, or 0 for an empty frame.
func (f *Frame) Min() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	min := f.Pix[0]
	for _, v := range f.Pix[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Median returns the median pixel value, or 0 for an empty frame.
func (f *Frame) Median() float64 {
	n := len(f.Pix)
	if n == 0 {
		return 0
	}
	vals := make([]float64, n)
	copy(vals, f.Pix)
	sort.Float64s(vals)
	if n%2 == 0 {
		return (vals[n/2-1] + vals[n/2]) / 2
	}
	return vals[n/2]
}

// ClampNegative raises negative pixel values to zero in place.
// Camera frames occasionally carry negative counts after bias
// subtraction; the pipeline treats them as empty sky.
func (f *Frame) ClampNegative() {
	for i, v := range f.Pix {
		if v < 0 {
			f.Pix[i] = 0
		}
	}
}

// Window extracts the sub-frame covering rows [row0, row0+h) and
// columns [col0, col0+w), clipped to the frame bounds. It returns the
// extracted window and the clipped origin, so callers can translate
// window coordinates back into frame coordinates.
func (f *Frame) Window(row0, col0, h, w int) (win *Frame, r0, c0 int) {
	r1 := row0 + h
	c1 := col0 + w
	if row0 < 0 {
		row0 = 0
	}
	if col0 < 0 {
		col0 = 0
	}
	if r1 > f.Height {
		r1 = f.Height
	}
	if c1 > f.Width {
		c1 = f.Width
	}
	if r1 <= row0 || c1 <= col0 {
		return New(0, 0), row0, col0
	}
	win = New(c1-col0, r1-row0)
	for r := row0; r < r1; r++ {
		copy(win.Pix[(r-row0)*win.Width:], f.Pix[r*f.Width+col0:r*f.Width+c1])
	}
	return win, row0, col0
}

// FromGray converts an 8-bit grayscale image into a frame.
func FromGray(img *image.Gray) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			f.Set(y, x, float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
		}
	}
	return f
}

// Mask is a binary foreground mask aligned to a frame. Bits holds one
// byte per pixel in row-major order, 1 for foreground and 0 for
// background.
type Mask struct {
	Bits   []uint8
	Width  int
	Height int
}

// NewMask returns an all-background mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		Bits:   make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the mask bit at the given row and column.
func (m *Mask) At(row, col int) uint8 {
	return m.Bits[row*m.Width+col]
}

// Foreground returns the number of foreground pixels.
func (m *Mask) Foreground() int {
	n := 0
	for _, b := range m.Bits {
		if b != 0 {
			n++
		}
	}
	return n
}

// Gray renders the mask as an 8-bit grayscale image with foreground
// pixels at full white, suitable for diagnostic export.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(y, x) != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
