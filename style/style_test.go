package style

import (
	"math"
	"testing"

	"github.com/ByLCY/notepdf/fonts"
	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/layout"
)

func TestBaseSizeTiers(t *testing.T) {
	tests := []struct {
		chars int
		want  float64
	}{
		{0, 14}, {599, 14}, {600, 12}, {2499, 12}, {2500, 11}, {7999, 11}, {8000, 10}, {100000, 10},
	}
	for _, tt := range tests {
		if got := BaseSize(tt.chars); got != tt.want {
			t.Errorf("BaseSize(%d) = %g, want %g", tt.chars, got, tt.want)
		}
	}
}

func TestWithColorOnlyTouchesColor(t *testing.T) {
	s := New(fonts.Builtin(), 100)
	base := s.Style(layout.RoleHighlight, nil)
	red := layout.Color{R: 255}
	got := WithColor(base, red)
	if got.Color != red {
		t.Fatalf("color not applied: %+v", got.Color)
	}
	got.Color = base.Color
	if got != base {
		t.Fatalf("WithColor changed other fields: %+v vs %+v", got, base)
	}
	if s.Style(layout.RoleHighlight, nil).Color == red {
		t.Fatal("WithColor mutated the sheet")
	}
}

func TestKeywordOverridesTextColor(t *testing.T) {
	s := New(fonts.Builtin(), 100)
	kw := &keywords.Entry{Keyword: "सूत्र", Label: keywords.LabelFormula, Color: keywords.ColorRed}
	plain := s.Style(layout.RoleFormula, nil)
	tinted := s.Style(layout.RoleFormula, kw)
	if tinted.Color != Palette[keywords.ColorRed] {
		t.Fatalf("keyword color not applied: %+v", tinted.Color)
	}
	if tinted.Background == nil || *tinted.Background != *plain.Background || tinted.Align != "center" {
		t.Fatalf("keyword override must keep box and alignment: %+v", tinted)
	}
	unknown := s.Style(layout.RoleParagraph, &keywords.Entry{Color: "magenta"})
	if unknown.Color != DarkBlue {
		t.Fatalf("unknown color token should keep base color, got %+v", unknown.Color)
	}
}

func TestRoleStyles(t *testing.T) {
	p := fonts.Builtin()
	s := New(p, 3000)
	if s.BaseSize() != 11 {
		t.Fatalf("base size = %g", s.BaseSize())
	}
	para := s.Style(layout.RoleParagraph, nil)
	if para.Font != p.NormalFamily || para.BoldFont != p.BoldFamily {
		t.Fatalf("paragraph font = %q/%q", para.Font, para.BoldFont)
	}
	if want := 11 * 1.4; math.Abs(para.LeadingPt-want) > 1e-9 {
		t.Fatalf("default leading = %g", para.LeadingPt)
	}
	if para.Boxed() {
		t.Fatal("paragraph must not be boxed")
	}
	hl := s.Style(layout.RoleHighlight, nil)
	if hl.Background == nil || hl.BorderWidth <= 0 {
		t.Fatalf("highlight needs fill and border: %+v", hl)
	}
	fm := s.Style(layout.RoleFormula, nil)
	if fm.Background == nil || fm.BorderWidth <= 0 || fm.Align != "center" {
		t.Fatalf("formula style = %+v", fm)
	}
	if *fm.Background == *hl.Background {
		t.Fatal("formula and highlight should be distinguishable")
	}
	if !s.Style(layout.RoleWatermark, nil).Bold || !s.Style(layout.RoleHeading, nil).Bold {
		t.Fatal("heading and watermark are bold")
	}
	if s.Style(layout.RoleTitle, nil).SizePt <= s.Style(layout.RoleHeading, nil).SizePt {
		t.Fatal("title must be larger than heading")
	}
	if got := s.Style(layout.Role(999), nil); got != para {
		t.Fatalf("unknown role should fall back to paragraph")
	}
}

func TestLineHeightOption(t *testing.T) {
	spec, err := layout.ParseLineHeight("16pt")
	if err != nil {
		t.Fatal(err)
	}
	s := New(fonts.Builtin(), 0, WithLineHeight(spec), WithTextColor(Black))
	st := s.Style(layout.RoleParagraph, nil)
	if st.LeadingPt != 16 {
		t.Fatalf("leading = %g, want 16", st.LeadingPt)
	}
	if st.Color != Black {
		t.Fatalf("text color = %+v", st.Color)
	}
}

func TestDisplayStyle(t *testing.T) {
	p := fonts.Builtin()
	s := New(p, 0)
	latin := s.DisplayStyle(layout.RoleCoverTitle, "Physics Notes")
	if latin.Font != fonts.DisplayRegular || latin.BoldFont != fonts.DisplayBold {
		t.Fatalf("latin cover title should use display face, got %q/%q", latin.Font, latin.BoldFont)
	}
	hindi := s.DisplayStyle(layout.RoleCoverTitle, "भौतिकी नोट्स")
	if hindi.Font != p.NormalFamily || hindi.BoldFont != p.BoldFamily {
		t.Fatalf("devanagari cover title should use body face, got %q/%q", hindi.Font, hindi.BoldFont)
	}
	if latin.SizePt != s.Style(layout.RoleCoverTitle, nil).SizePt {
		t.Fatal("display style must keep the role size")
	}
}
