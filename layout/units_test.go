package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"54", 54},
		{"54pt", 54},
		{"0.75in", 54},
		{"1in", 72},
		{"25.4mm", 72},
		{"2.54cm", 72},
		{" 72PT ", 72},
	}
	for _, tt := range tests {
		l, err := ParseLength(tt.in)
		if err != nil {
			t.Fatalf("ParseLength(%q) error: %v", tt.in, err)
		}
		if diff := math.Abs(l.ToPT() - tt.want); diff > 1e-3 {
			t.Errorf("ParseLength(%q).ToPT() = %g, want %g", tt.in, l.ToPT(), tt.want)
		}
	}
	for _, bad := range []string{"", "abc", "-3pt", "1.2.3mm"} {
		if _, err := ParseLength(bad); err == nil {
			t.Errorf("ParseLength(%q) expected error", bad)
		}
	}
}

func TestLineHeightResolve(t *testing.T) {
	factor, err := ParseLineHeight("1.5x")
	if err != nil {
		t.Fatal(err)
	}
	if got := factor.Resolve(10); math.Abs(got-15) > 1e-9 {
		t.Fatalf("factor line height = %g", got)
	}
	abs, err := ParseLineHeight("18pt")
	if err != nil {
		t.Fatal(err)
	}
	if abs.Kind != LineHeightAbsolute || abs.Resolve(10) != 18 {
		t.Fatalf("absolute line height = %+v", abs)
	}
	if _, err := ParseLineHeight("0x"); err == nil {
		t.Fatal("expected error for zero factor")
	}
	if got := (LineHeightSpec{Kind: LineHeightFactor}).Resolve(10); got != 14 {
		t.Fatalf("default factor = %g", got)
	}
}
