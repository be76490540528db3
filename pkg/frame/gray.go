package frame

import (
	"fmt"

	"github.com/ernyoke/imger/imgio"
)

// LoadGray reads an 8-bit grayscale image (PNG or JPEG) into a frame.
// Intended for synthetic test frames and quick-look diagnostics; real
// camera data goes through LoadFITS.
func LoadGray(path string) (*Frame, error) {
	img, err := imgio.ImreadGray(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grayscale image: %w", err)
	}
	return FromGray(img), nil
}

// WriteMaskPNG writes a binary mask as an 8-bit grayscale PNG with
// foreground pixels at full white.
func WriteMaskPNG(path string, m *Mask) error {
	if err := imgio.Imwrite(m.Gray(), path); err != nil {
		return fmt.Errorf("failed to write mask image: %w", err)
	}
	return nil
}
