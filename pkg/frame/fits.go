package frame

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// LoadFITS reads the primary HDU of a FITS file into a frame.
//
// The primary HDU must be a 2D image. Integer pixel types are scaled
// with the BZERO/BSCALE header cards when present, so unsigned 16-bit
// camera frames stored as signed data come back in ADU.
func LoadFITS(path string) (*Frame, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS file: %w", err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FITS file: %w", err)
	}
	defer f.Close()

	hdu := f.HDU(0)
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU of %s is not an image", path)
	}

	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 2 || axes[0] <= 0 || axes[1] <= 0 {
		return nil, fmt.Errorf("primary HDU of %s is not a 2D image", path)
	}
	width, height := axes[0], axes[1]
	n := width * height

	bzero := headerFloat(hdr, "BZERO", 0)
	bscale := headerFloat(hdr, "BSCALE", 1)

	fr := New(width, height)
	switch bitpix := hdr.Bitpix(); bitpix {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			fr.Pix[i] = bscale*float64(v) + bzero
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			fr.Pix[i] = bscale*float64(v) + bzero
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			fr.Pix[i] = bscale*float64(v) + bzero
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			fr.Pix[i] = bscale*float64(v) + bzero
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			fr.Pix[i] = float64(v)
		}
	case -64:
		raw := make([]float64, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		copy(fr.Pix, raw)
	default:
		return nil, fmt.Errorf("unsupported FITS BITPIX %d", bitpix)
	}

	return fr, nil
}

// WriteMaskFITS writes a binary mask as a 16-bit FITS image, replacing
// any existing file. Each run owns its output file exclusively.
func WriteMaskFITS(path string, m *Mask) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask file: %w", err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to create FITS file: %w", err)
	}
	defer f.Close()

	img := fitsio.NewImage(16, []int{m.Width, m.Height})
	defer img.Close()

	raw := make([]int16, len(m.Bits))
	for i, b := range m.Bits {
		raw[i] = int16(b)
	}
	if err := img.Write(&raw); err != nil {
		return fmt.Errorf("failed to write mask data: %w", err)
	}
	if err := f.Write(img); err != nil {
		return fmt.Errorf("failed to write mask HDU: %w", err)
	}
	return nil
}

// headerFloat reads a numeric header card, falling back to def when the
// card is absent or non-numeric.
func headerFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	switch v := card.Value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return def
	}
}
