// Package region writes image-viewer overlay files for accepted spots.
// It is a serialization collaborator fed through the finder's result
// hook and derives nothing itself.
package region

import (
	"bufio"
	"fmt"
	"os"

	"spotfinder/internal/models"
)

// labelOffset shifts each spot's text label off the circle so it stays
// readable at typical zoom levels.
const labelOffset = 5.0

// Write emits a DS9-style region file with one circle (radius FWHM/2)
// and one text label per spot. Spot coordinates are internal 0-based
// values; the viewer convention is 1-based, so the +1 shift is applied
// here and only here. The file is created fresh on every call.
func Write(path string, spots []models.Spot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create region file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "global color=magenta font=\"helvetica 13 normal\"\n")
	for _, s := range spots {
		fmt.Fprintf(w, "circle %9.3f %9.3f %7.3f\n", s.X+1, s.Y+1, s.FWHM/2)
		fmt.Fprintf(w, "text %9.3f %9.3f \"%d\"\n", s.X+1+labelOffset, s.Y+1+labelOffset, s.Rank)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write region file: %w", err)
	}
	return nil
}
