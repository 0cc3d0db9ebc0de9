package utils

import "testing"

func TestCapValue(t *testing.T) {
	tests := []struct {
		name     string
		v, lo, hi uint64
		redirect *Redirect
		want     uint64
	}{
		{"within range", 50, 10, 100, nil, 50},
		{"below floor", 5, 10, 100, nil, 10},
		{"above ceiling", 500, 10, 100, nil, 100},
		{"redirect hit", 0, 10, 100, &Redirect{From: 0, To: 64}, 64},
		{"redirect miss leaves clamp alone", 5, 10, 100, &Redirect{From: 0, To: 64}, 10},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := CapValue(test.v, test.lo, test.hi, test.redirect); got != test.want {
				t.Errorf("CapValue(%d,%d,%d) = %d, want %d", test.v, test.lo, test.hi, got, test.want)
			}
		})
	}
}

func TestRealignValue(t *testing.T) {
	floor, ceil := RealignValue(10, 8)
	if floor != 8 || ceil != 16 {
		t.Errorf("RealignValue(10,8) = (%d,%d), want (8,16)", floor, ceil)
	}
	floor, ceil = RealignValue(0, 0)
	if floor != 0 || ceil != 0 {
		t.Errorf("RealignValue(0,0) = (%d,%d), want (0,0)", floor, ceil)
	}
}

func TestAlignToPage(t *testing.T) {
	tests := []struct {
		v, page, want uint64
	}{
		{10, 8, 8},
		{12, 8, 16},
		{16, 8, 16},
		{0, 8, 0},
		{5, 0, 5},
	}
	for _, test := range tests {
		if got := AlignToPage(test.v, test.page); got != test.want {
			t.Errorf("AlignToPage(%d,%d) = %d, want %d", test.v, test.page, got, test.want)
		}
	}
}

func TestGeneralizedMean(t *testing.T) {
	if got := GeneralizedMean(nil, 1); got != 0 {
		t.Errorf("GeneralizedMean(nil) = %f, want 0", got)
	}
	if got := GeneralizedMean([]float64{2, 2, 2}, 1); got != 2 {
		t.Errorf("GeneralizedMean([2,2,2], 1) = %f, want 2", got)
	}
	// Harmonic-mean-like behavior at p == -1 should fall between min and max.
	got := GeneralizedMean([]float64{1, 4}, -1)
	if got <= 1 || got >= 4 {
		t.Errorf("GeneralizedMean([1,4], -1) = %f, want strictly between 1 and 4", got)
	}
}
