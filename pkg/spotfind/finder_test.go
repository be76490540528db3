package spotfind

import (
	"errors"
	"math"
	"testing"

	"spotfinder/internal/models"
	"spotfinder/pkg/config"
	"spotfinder/pkg/frame"
)

func TestNewValidatesConfiguration(t *testing.T) {
	bad := config.DefaultConfig()
	bad.Detection.LevelFraction = 1.5
	if _, err := New(bad, 2); err == nil {
		t.Error("expected error for levelFraction outside (0, 1)")
	}

	if _, err := New(nil, 0); err == nil {
		t.Error("expected error for zero expected spot count")
	}

	if _, err := New(nil, 1); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestFindRejectsMissingFrame(t *testing.T) {
	finder, err := New(nil, 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := finder.Find(nil); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Find(nil) error = %v, want ErrNoFrame", err)
	}
	if _, err := finder.Find(frame.New(0, 0)); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Find(empty) error = %v, want ErrNoFrame", err)
	}
}

func TestFindTwoSpots(t *testing.T) {
	img := gaussianFrame(60, 60, 100, 5000, 14.7, 15.3, 2.0)
	add := gaussianFrame(60, 60, 0, 3000, 34.6, 35.2, 2.0)
	for i := range img.Pix {
		img.Pix[i] += add.Pix[i]
	}

	cfg := config.DefaultConfig()
	finder, err := New(cfg, 2)
	if err != nil {
		t.Fatal(err)
	}

	var hooked []models.Spot
	finder.SetResultHook(func(spots []models.Spot) { hooked = spots })

	result, err := finder.Find(img)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Accepted) != 2 {
		t.Fatalf("accepted %d spots, want 2", len(result.Accepted))
	}

	// Rank 0 is the brighter spot.
	bright, faint := result.Accepted[0], result.Accepted[1]
	if bright.Peak < faint.Peak {
		t.Errorf("accepted spots not in peak order: %g before %g", bright.Peak, faint.Peak)
	}
	if math.Abs(bright.X-15.3) > 0.1 || math.Abs(bright.Y-14.7) > 0.1 {
		t.Errorf("bright spot at (%g, %g), want (15.3, 14.7)", bright.X, bright.Y)
	}
	if math.Abs(faint.X-35.2) > 0.1 || math.Abs(faint.Y-34.6) > 0.1 {
		t.Errorf("faint spot at (%g, %g), want (35.2, 34.6)", faint.X, faint.Y)
	}

	// Energy is FWHM times the saturation-normalized peak.
	wantEnergy := bright.FWHM * bright.Peak / cfg.Detection.MaxCounts
	if math.Abs(bright.Energy-wantEnergy) > 1e-12 {
		t.Errorf("energy = %g, want %g", bright.Energy, wantEnergy)
	}

	// The parallel arrays align with the ranked spot list.
	if len(result.X) != len(result.Spots) {
		t.Fatalf("parallel arrays length %d, want %d", len(result.X), len(result.Spots))
	}
	for i, s := range result.Spots {
		if s.Rank != i {
			t.Errorf("spot %d has rank %d", i, s.Rank)
		}
		if result.Peaks[i] != s.Peak || result.X[i] != s.X || result.Y[i] != s.Y {
			t.Errorf("parallel arrays misaligned at rank %d", i)
		}
	}

	// The hook received the delivered subset.
	if len(hooked) != len(result.Accepted) {
		t.Errorf("hook received %d spots, want %d", len(hooked), len(result.Accepted))
	}

	// The input frame itself stays untouched.
	if img.At(0, 0) != 100+add.At(0, 0) {
		t.Error("input frame was mutated by the pipeline")
	}
}

func TestFindDoesNotMutateInput(t *testing.T) {
	img := gaussianFrame(40, 40, 100, 5000, 20, 20, 2.0)
	img.Set(5, 5, 30000) // isolated hot pixel
	before := img.Clone()

	finder, err := New(nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := finder.Find(img); err != nil {
		t.Fatal(err)
	}
	for i := range img.Pix {
		if img.Pix[i] != before.Pix[i] {
			t.Fatalf("input pixel %d changed: %g -> %g", i, before.Pix[i], img.Pix[i])
		}
	}
}

func TestFindOtsuRetryIsBoundedToOne(t *testing.T) {
	// One real spot, three requested, automatic thresholding on: the
	// pipeline retries exactly once in fractional mode and then returns
	// what it found instead of recursing further.
	img := gaussianFrame(50, 50, 100, 5000, 25, 25, 2.0)

	cfg := config.DefaultConfig()
	cfg.Detection.UseOtsu = true
	finder, err := New(cfg, 3)
	if err != nil {
		t.Fatal(err)
	}

	result, err := finder.Find(img)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Retried {
		t.Error("expected a single fractional-mode retry to be recorded")
	}
	if len(result.Accepted) == 0 {
		t.Error("retry returned no spots at all")
	}
	if len(result.Accepted) > 3 {
		t.Errorf("returned %d spots, more than requested", len(result.Accepted))
	}
}

func TestFinalizeRankingIsStable(t *testing.T) {
	// Peaks [100, 500, 100, 500] must order as original indices
	// [1, 3, 0, 2]: ties keep discovery order.
	spots := []models.Spot{
		{X: 0, Peak: 100},
		{X: 1, Peak: 500},
		{X: 2, Peak: 100},
		{X: 3, Peak: 500},
	}
	finalize(spots, 1<<16-1)

	wantOrder := []float64{1, 3, 0, 2}
	for i, want := range wantOrder {
		if spots[i].X != want {
			t.Errorf("rank %d holds original index %g, want %g", i, spots[i].X, want)
		}
		if spots[i].Rank != i {
			t.Errorf("rank field = %d at position %d", spots[i].Rank, i)
		}
	}
}

func TestFindReportsMaskAndLevel(t *testing.T) {
	img := gaussianFrame(40, 40, 100, 5000, 20, 20, 2.0)

	finder, err := New(nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	result, err := finder.Find(img)
	if err != nil {
		t.Fatal(err)
	}
	if result.Mask == nil {
		t.Fatal("result carries no diagnostic mask")
	}
	if result.Mask.Width != img.Width || result.Mask.Height != img.Height {
		t.Errorf("mask is %dx%d, want %dx%d", result.Mask.Width, result.Mask.Height, img.Width, img.Height)
	}
	if result.Level <= 0 {
		t.Errorf("binarization level = %g, want positive", result.Level)
	}
	if result.Mask.Foreground() == 0 {
		t.Error("mask has no foreground despite a bright spot")
	}
}
