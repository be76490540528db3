package spotfind

import (
	"math"
	"testing"

	"spotfinder/pkg/frame"
)

func maskFromBits(width, height int, bits []uint8) *frame.Mask {
	m := frame.NewMask(width, height)
	copy(m.Bits, bits)
	return m
}

func TestLabelComponentsConservation(t *testing.T) {
	width, height := 6, 5
	m := maskFromBits(width, height, []uint8{
		1, 1, 0, 0, 0, 1,
		1, 0, 0, 1, 0, 1,
		0, 0, 0, 1, 1, 0,
		0, 1, 0, 0, 0, 0,
		1, 0, 0, 0, 0, 1,
	})
	img := flatFrame(width, height, 50)

	regions := LabelComponents(m, img)

	total := 0
	for _, reg := range regions {
		total += reg.PixelCount
	}
	if total != width*height {
		t.Errorf("pixel counts sum to %d, want image area %d", total, width*height)
	}
	if regions[0].Label != 0 {
		t.Fatalf("first region label = %d, want background 0", regions[0].Label)
	}
}

func TestLabelComponentsEightConnectivity(t *testing.T) {
	// Two pixels touching only diagonally belong to one component.
	m := maskFromBits(4, 4, []uint8{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 1,
	})
	img := flatFrame(4, 4, 10)

	regions := LabelComponents(m, img)
	foreground := 0
	for _, reg := range regions {
		if reg.Label != 0 {
			foreground++
		}
	}
	if foreground != 2 {
		t.Errorf("got %d foreground components, want 2 (diagonal pair merges)", foreground)
	}
}

func TestLabelComponentsWeightedCentroid(t *testing.T) {
	// One region of two pixels with a 1:3 intensity split; the center
	// of mass sits three quarters of the way toward the brighter pixel.
	m := maskFromBits(3, 3, []uint8{
		0, 0, 0,
		0, 1, 1,
		0, 0, 0,
	})
	img := frame.New(3, 3)
	img.Set(1, 1, 1)
	img.Set(1, 2, 3)

	regions := LabelComponents(m, img)
	var found bool
	for _, reg := range regions {
		if reg.Label == 0 {
			continue
		}
		found = true
		if reg.PixelCount != 2 {
			t.Errorf("pixel count = %d, want 2", reg.PixelCount)
		}
		if math.Abs(reg.Row-1) > 1e-12 {
			t.Errorf("centroid row = %g, want 1", reg.Row)
		}
		if math.Abs(reg.Col-1.75) > 1e-12 {
			t.Errorf("centroid col = %g, want 1.75", reg.Col)
		}
	}
	if !found {
		t.Fatal("no foreground region found")
	}
}

func TestSelectSpotsOrderAndLimit(t *testing.T) {
	m := maskFromBits(8, 3, []uint8{
		1, 1, 1, 0, 1, 0, 0, 1,
		1, 1, 0, 0, 1, 0, 0, 1,
		0, 0, 0, 0, 0, 0, 0, 1,
	})
	img := flatFrame(8, 3, 20)

	regions := LabelComponents(m, img)
	cands := SelectSpots(regions, 2)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].PixelCount < cands[1].PixelCount {
		t.Errorf("candidates not ordered by pixel count: %d before %d",
			cands[0].PixelCount, cands[1].PixelCount)
	}
	for _, cand := range cands {
		if cand.Label == 0 {
			t.Error("background label selected as candidate")
		}
	}

	// Asking for more spots than exist returns what was found.
	all := SelectSpots(regions, 10)
	if len(all) != 3 {
		t.Errorf("got %d candidates, want all 3 foreground regions", len(all))
	}
}
