package spotfind

import (
	"testing"

	"spotfinder/pkg/frame"
)

func TestBinarizeStrictInequality(t *testing.T) {
	f := frame.New(3, 1)
	f.Pix = []float64{100, 10, 10.1}

	mask, level := Binarize(f, 0.1, false)
	if level != 10 {
		t.Fatalf("fractional level = %g, want 10", level)
	}
	want := []uint8{1, 0, 1}
	for i, b := range want {
		if mask.Bits[i] != b {
			t.Errorf("mask[%d] = %d, want %d (strict > comparison)", i, mask.Bits[i], b)
		}
	}
}

func TestBinarizeMaskMonotonicity(t *testing.T) {
	base := frame.New(4, 2)
	base.Pix = []float64{5, 40, 90, 100, 12, 9, 55, 31}

	shifted := base.Clone()
	for i := range shifted.Pix {
		shifted.Pix[i] += 50
	}

	m1, _ := Binarize(base, 0.1, false)
	m2, _ := Binarize(shifted, 0.1, false)
	for i := range m1.Bits {
		if m1.Bits[i] == 1 && m2.Bits[i] != 1 {
			t.Errorf("pixel %d left the foreground after a constant brightness increase", i)
		}
	}
	if m2.Foreground() < m1.Foreground() {
		t.Errorf("foreground shrank from %d to %d", m1.Foreground(), m2.Foreground())
	}
}

func TestOtsuLevelBimodal(t *testing.T) {
	f := frame.New(10, 10)
	for i := range f.Pix {
		f.Pix[i] = 100
	}
	// bright island in one corner
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			f.Set(r, c, 10000)
		}
	}

	level := OtsuLevel(f)
	if level < 100 || level >= 10000 {
		t.Errorf("otsu level %g should separate the two modes", level)
	}
	mask, _ := Binarize(f, 0.001, true)
	if got := mask.Foreground(); got != 9 {
		t.Errorf("otsu mask kept %d pixels, want the 9 bright ones", got)
	}
}

func TestBinarizeOtsuPrecedence(t *testing.T) {
	// The otsu split of this frame sits far below the fractional level,
	// so the fractional level must win even in automatic mode.
	f := frame.New(10, 10)
	for i := range f.Pix {
		f.Pix[i] = 10
	}
	f.Set(0, 0, 1000)
	f.Set(5, 5, 1000)

	_, level := Binarize(f, 0.1, true)
	if level != 100 {
		t.Errorf("effective level = %g, want fractional level 100", level)
	}

	// With a genuinely bimodal frame the otsu level exceeds the
	// fractional one and takes over.
	g := frame.New(10, 10)
	for i := range g.Pix {
		g.Pix[i] = 3000
	}
	for c := 0; c < 5; c++ {
		g.Set(0, c, 10000)
	}
	_, level = Binarize(g, 0.1, true)
	if level <= 1000 {
		t.Errorf("effective level = %g, want otsu level above fractional 1000", level)
	}
}

func TestOtsuLevelEmptyFrame(t *testing.T) {
	f := frame.New(4, 4)
	if level := OtsuLevel(f); level != 0 {
		t.Errorf("otsu level of an all-zero frame = %g, want 0", level)
	}
}
