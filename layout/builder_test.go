package layout

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/markup"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
// 每个字符宽度为半个字号，按空格贪心折行。
type stubTypesetter struct{}

func (s *stubTypesetter) LayoutLines(content string, bold []Span, width float64, st TextStyle) ([]TextLine, error) {
	charW := st.SizePt * 0.5
	measure := func(s string) float64 { return float64(utf8.RuneCountInString(s)) * charW }
	var lines []TextLine
	cur := ""
	for _, w := range strings.Fields(content) {
		next := w
		if cur != "" {
			next = cur + " " + w
		}
		if cur != "" && measure(next) > width {
			lines = append(lines, TextLine{Content: cur, Width: measure(cur), Height: st.SizePt})
			next = w
		}
		cur = next
	}
	lines = append(lines, TextLine{Content: cur, Width: measure(cur), Height: st.SizePt})
	// 不设置 GapBefore（保持 0），由 layoutLines 根据默认 leading 回填。
	return lines, nil
}

var (
	highlightFill = Color{R: 255, G: 250, B: 205}
	formulaFill   = Color{R: 230, G: 240, B: 255}
	keywordColor  = Color{R: 128, G: 0, B: 128}
)

type stubStyler struct{}

func (stubStyler) Style(role Role, kw *keywords.Entry) TextStyle {
	st := TextStyle{Font: "Body", BoldFont: "Body-Bold", SizePt: 10, LeadingPt: 14, SpaceAfter: 2}
	switch role {
	case RoleHighlight:
		bg := highlightFill
		st.Background, st.BorderWidth, st.Padding = &bg, 0.5, 3
	case RoleFormula:
		bg := formulaFill
		st.Background, st.BorderWidth, st.Padding, st.Align = &bg, 0.8, 3, "center"
	case RoleTitle, RoleHeading, RoleSubheading, RoleCoverTitle:
		st.SizePt, st.LeadingPt, st.Bold = 16, 20, true
	}
	if kw != nil {
		st.Color = keywordColor
	}
	return st
}

func build(t *testing.T, blocks []markup.Block, mutate ...func(*BuildOptions)) *Result {
	t.Helper()
	opts := BuildOptions{
		Typesetter:  &stubTypesetter{},
		Styler:      stubStyler{},
		Margin:      Margin{Top: 72, Right: 54, Bottom: 72, Left: 54},
		Watermark:   DefaultWatermark(),
		HeaderLeft:  "${title}",
		HeaderRight: "Page ${page} / ${pages}",
		Footer:      "generated notes",
		Meta:        DocumentMeta{Title: "Notes"},
	}
	for _, m := range mutate {
		m(&opts)
	}
	res, err := Build(blocks, opts)
	if err != nil {
		t.Fatalf("布局计算失败: %v", err)
	}
	return res
}

func para(text string) markup.Block {
	return markup.Block{Paragraph: &markup.Paragraph{Runs: []markup.Run{{Text: text}}}}
}

func manyParagraphs(n int) []markup.Block {
	out := make([]markup.Block, n)
	for i := range out {
		out[i] = para(strings.Repeat("word ", 30))
	}
	return out
}

// TestTextBoxTotalHeightInvariant 断言：TextBox.Height == Σ(line.Height + line.GapBefore)。
func TestTextBoxTotalHeightInvariant(t *testing.T) {
	res := build(t, []markup.Block{para(strings.Repeat("long ", 60))})
	tb := res.Pages[0].Texts[0]
	if len(tb.Lines) < 2 {
		t.Fatalf("expected wrapped text, got %d lines", len(tb.Lines))
	}
	total := 0.0
	for _, ln := range tb.Lines {
		total += ln.GapBefore + ln.Height
	}
	if diff := math.Abs(total - tb.Height); diff > 1e-6 {
		t.Fatalf("TextBox.Height 不变式不成立: got=%g want=%g", tb.Height, total)
	}
	if tb.Lines[0].GapBefore != 0 || tb.Lines[1].GapBefore != 4 {
		t.Fatalf("unexpected gaps %g %g", tb.Lines[0].GapBefore, tb.Lines[1].GapBefore)
	}
}

func TestTileCount(t *testing.T) {
	tests := []struct {
		axis, text, spacing float64
		want                int
	}{
		{612, 50, 10, 12},
		{792, 50, 10, 15},
		{100, 25, 25, 3},
		{10, 100, 0, 1},
		{0, 10, 10, 0},
		{100, 0, 0, 0},
	}
	for _, tt := range tests {
		if got := TileCount(tt.axis, tt.text, tt.spacing); got != tt.want {
			t.Errorf("TileCount(%g,%g,%g) = %d, want %d", tt.axis, tt.text, tt.spacing, got, tt.want)
		}
	}
	for axis := 1.0; axis < 900; axis += 37 {
		for text := 1.0; text < 120; text += 13 {
			for spacing := 1.0; spacing < 40; spacing += 7 {
				want := int(math.Ceil((axis + 50) / (text + spacing)))
				if got := TileCount(axis, text, spacing); got != want {
					t.Fatalf("TileCount(%g,%g,%g) = %d, want %d", axis, text, spacing, got, want)
				}
			}
		}
	}
}

func TestWatermarkOnEveryPage(t *testing.T) {
	res := build(t, manyParagraphs(40))
	if len(res.Pages) < 2 {
		t.Fatalf("expected several pages, got %d", len(res.Pages))
	}
	wm := DefaultWatermark()
	textW := float64(utf8.RuneCountInString(wm.Text)) * wm.BorderSizePt * 0.5
	want := 2*TileCount(LetterWidth, textW, wm.SpacingPt) + 2*TileCount(LetterHeight, textW, wm.SpacingPt)
	for _, p := range res.Pages {
		if len(p.Tiles) != want {
			t.Fatalf("page %d: tiles = %d, want %d", p.Number, len(p.Tiles), want)
		}
		if p.Tiles[0].X != TileOffset {
			t.Fatalf("first tile should start at %g, got %g", TileOffset, p.Tiles[0].X)
		}
		rotated := 0
		for _, tile := range p.Tiles {
			if tile.Angle == 90 {
				rotated++
			}
		}
		if rotated != 2*TileCount(LetterHeight, textW, wm.SpacingPt) {
			t.Fatalf("page %d: rotated tiles = %d", p.Number, rotated)
		}
		if p.Stamp == nil || p.Stamp.Angle != wm.CenterAngleDeg || p.Stamp.X != LetterWidth/2 || p.Stamp.Y != LetterHeight/2 {
			t.Fatalf("page %d: unexpected stamp %+v", p.Number, p.Stamp)
		}
	}
}

func TestHeaderPageCounter(t *testing.T) {
	res := build(t, manyParagraphs(40))
	n := len(res.Pages)
	for i, p := range res.Pages {
		if len(p.Header.Texts) != 2 {
			t.Fatalf("page %d: header texts = %d", i+1, len(p.Header.Texts))
		}
		if p.Header.Texts[0].Content != "Notes" {
			t.Fatalf("header title = %q", p.Header.Texts[0].Content)
		}
		want := "Page " + strconv.Itoa(i+1) + " / " + strconv.Itoa(n)
		if got := p.Header.Texts[1].Content; got != want || p.Header.Texts[1].Align != "right" {
			t.Fatalf("page %d: counter = %q (%s), want %q", i+1, got, p.Header.Texts[1].Align, want)
		}
		if len(p.Footer.Texts) != 1 || p.Footer.Texts[0].Content != "generated notes" {
			t.Fatalf("page %d: footer = %+v", i+1, p.Footer.Texts)
		}
		if p.Header.Texts[0].Y+p.Header.Texts[0].Height > p.Margin.Top {
			t.Fatalf("header overlaps content area")
		}
	}
}

func TestContentStaysInsideMarginBox(t *testing.T) {
	res := build(t, manyParagraphs(60))
	for _, p := range res.Pages {
		top, bottom := p.Margin.Top, p.Height-p.Margin.Bottom
		for _, tb := range p.Texts {
			if tb.Y < top-1e-6 || tb.Y+tb.Height > bottom+1e-6 {
				t.Fatalf("page %d: text box outside margin box: y=%g h=%g", p.Number, tb.Y, tb.Height)
			}
		}
	}
}

func TestPageBreakForcesNewPage(t *testing.T) {
	blocks := []markup.Block{
		{PageBreak: &markup.PageBreak{}},
		para("cover"),
		{PageBreak: &markup.PageBreak{}},
		para("body"),
	}
	res := build(t, blocks)
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d, want 2 (leading page break must not add a blank page)", len(res.Pages))
	}
	if res.Pages[1].Texts[0].Content != "body" {
		t.Fatalf("unexpected second page content %q", res.Pages[1].Texts[0].Content)
	}
}

func TestLongTextContinuesOnNextPage(t *testing.T) {
	res := build(t, []markup.Block{para(strings.Repeat("lorem ", 2000))})
	if len(res.Pages) < 2 {
		t.Fatalf("expected text to continue across pages, got %d page(s)", len(res.Pages))
	}
	words := 0
	for _, p := range res.Pages {
		for _, tb := range p.Texts {
			words += len(strings.Fields(tb.Content))
		}
	}
	if words != 2000 {
		t.Fatalf("lost words across page split: %d", words)
	}
}

func TestRunStyling(t *testing.T) {
	entry := &keywords.Entry{Keyword: "note", Label: "note", Color: keywords.ColorBlue}
	blocks := []markup.Block{
		{Paragraph: &markup.Paragraph{Runs: []markup.Run{{Text: "a = b", Formula: true}}}},
		{Paragraph: &markup.Paragraph{Runs: []markup.Run{{Text: "a note here", Highlight: true, Keyword: entry}}}},
		para("plain"),
	}
	res := build(t, blocks)
	p := res.Pages[0]
	if len(p.Rects) != 2 {
		t.Fatalf("expected two boxed runs, got %d", len(p.Rects))
	}
	if *p.Rects[0].FillColor != formulaFill || *p.Rects[1].FillColor != highlightFill {
		t.Fatalf("unexpected fills %+v %+v", *p.Rects[0].FillColor, *p.Rects[1].FillColor)
	}
	if p.Texts[0].Align != "center" {
		t.Fatalf("formula should be centered, got %q", p.Texts[0].Align)
	}
	if p.Texts[1].Color != keywordColor || p.Texts[2].Color == keywordColor {
		t.Fatalf("keyword color override misapplied")
	}
	if p.Texts[0].X <= p.Rects[0].X {
		t.Fatal("boxed text should be padded inside its rect")
	}
}

func TestListMarkers(t *testing.T) {
	blocks := []markup.Block{
		{List: &markup.List{Items: []markup.ListItem{
			{Marker: "-", Runs: []markup.Run{{Text: "first"}}},
			{Marker: "-", Runs: []markup.Run{{Text: "second"}}},
		}}},
		{List: &markup.List{Ordered: true, Items: []markup.ListItem{
			{Marker: "१.", Runs: []markup.Run{{Text: "पहला"}}},
		}}},
	}
	res := build(t, blocks)
	var markers, items []TextBox
	for _, tb := range res.Pages[0].Texts {
		if tb.X == res.Pages[0].Margin.Left {
			markers = append(markers, tb)
		} else {
			items = append(items, tb)
		}
	}
	if len(markers) != 3 || len(items) != 3 {
		t.Fatalf("markers=%d items=%d", len(markers), len(items))
	}
	if markers[0].Content != "•" || markers[2].Content != "१." {
		t.Fatalf("unexpected markers %q %q", markers[0].Content, markers[2].Content)
	}
	for i := range items {
		if items[i].Y != markers[i].Y {
			t.Fatalf("marker %d not aligned with its item", i)
		}
		if items[i].X != res.Pages[0].Margin.Left+listIndent {
			t.Fatalf("item %d not indented", i)
		}
	}
}

func TestTableRepeatsHeaderAcrossPages(t *testing.T) {
	table := &markup.Table{Title: "Checklist", Header: []string{"Question", "Answer"}}
	for i := 0; i < 80; i++ {
		table.Rows = append(table.Rows, []string{"why", "because"})
	}
	res := build(t, []markup.Block{{Table: table}})
	if len(res.Pages) < 2 {
		t.Fatalf("expected table to span pages, got %d", len(res.Pages))
	}
	rows := 0
	for _, p := range res.Pages {
		if len(p.Tables) != 1 {
			t.Fatalf("page %d: tables = %d", p.Number, len(p.Tables))
		}
		tb := p.Tables[0]
		if !tb.Rows[0].IsHeader {
			t.Fatalf("page %d: table does not start with header", p.Number)
		}
		for _, r := range tb.Rows {
			if !r.IsHeader {
				rows++
			}
			if r.Y+r.Height > p.Height-p.Margin.Bottom+1e-6 {
				t.Fatalf("page %d: row overflows", p.Number)
			}
		}
	}
	if rows != 80 {
		t.Fatalf("rows = %d, want 80", rows)
	}
}

func TestDividerSectionLabel(t *testing.T) {
	res := build(t, []markup.Block{para("a"), {Divider: &markup.Divider{Section: 2}}, para("b"), {Divider: &markup.Divider{}}})
	p := res.Pages[0]
	if len(p.Lines) != 2 {
		t.Fatalf("lines = %d", len(p.Lines))
	}
	found := false
	for _, tb := range p.Texts {
		if tb.Content == "Section 2" {
			found = true
		}
	}
	if !found {
		t.Fatal("section label missing")
	}
}

func TestBuildRequiresBackends(t *testing.T) {
	if _, err := Build(nil, BuildOptions{Styler: stubStyler{}}); err == nil {
		t.Fatal("expected error without typesetter")
	}
	if _, err := Build(nil, BuildOptions{Typesetter: &stubTypesetter{}}); err == nil {
		t.Fatal("expected error without styler")
	}
}

func TestEmptyDocumentHasOnePage(t *testing.T) {
	res := build(t, nil)
	if len(res.Pages) != 1 {
		t.Fatalf("pages = %d", len(res.Pages))
	}
	if res.Meta.Creator != "notepdf" {
		t.Fatalf("creator = %q", res.Meta.Creator)
	}
}
