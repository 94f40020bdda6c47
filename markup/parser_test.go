package markup_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/markup"
)

func newParser() *markup.Parser {
	return markup.NewParser(keywords.NewTagger(keywords.DefaultTable()), 40)
}

func kinds(blocks []markup.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind()
	}
	return out
}

func TestParseTopicScenario(t *testing.T) {
	p := newParser()
	blocks := p.ParseLines([]string{"# Topic", "- first", "- second", "", "परिभाषा: a definition"})

	want := []string{"heading", "list", "spacer", "heading"}
	if got := kinds(blocks); !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	if blocks[0].Heading.Text != "Topic" || blocks[0].Heading.Keyword != nil {
		t.Fatalf("unexpected first heading %+v", blocks[0].Heading)
	}
	items := blocks[1].List.Items
	if len(items) != 2 || items[0].Runs[0].Text != "first" || items[1].Runs[0].Text != "second" {
		t.Fatalf("unexpected list items %+v", items)
	}
	h := blocks[3].Heading
	if h.Text != "परिभाषा (definition)" {
		t.Fatalf("keyword heading text = %q", h.Text)
	}
	if h.Keyword == nil || h.Keyword.Color != keywords.ColorPurple {
		t.Fatalf("keyword heading lost its color override: %+v", h.Keyword)
	}
	if h.Detail != "a definition" {
		t.Fatalf("detail = %q", h.Detail)
	}
}

func TestListFlushedAtBoundaries(t *testing.T) {
	p := newParser()
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{name: "fragment end", lines: []string{"- a", "- b"}, want: []string{"list"}},
		{name: "heading", lines: []string{"- a", "# H", "- b"}, want: []string{"list", "heading", "list"}},
		{name: "paragraph", lines: []string{"1. a", "text", "2. b"}, want: []string{"list", "paragraph", "list"}},
		{name: "blank", lines: []string{"* a", "", "* b"}, want: []string{"list", "spacer", "list"}},
		{name: "divider", lines: []string{"- a", "---"}, want: []string{"list", "divider"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := p.ParseLines(tt.lines)
			if got := kinds(blocks); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("kinds = %v, want %v", got, tt.want)
			}
			items := 0
			for _, b := range blocks {
				if b.List != nil {
					items += len(b.List.Items)
				}
			}
			listLines := 0
			for _, l := range tt.lines {
				l = strings.TrimSpace(l)
				if strings.HasPrefix(l, "- a") || strings.HasPrefix(l, "- b") || strings.HasPrefix(l, "* ") || strings.HasPrefix(l, "1.") || strings.HasPrefix(l, "2.") {
					listLines++
				}
			}
			if items != listLines {
				t.Fatalf("lost list items: got %d want %d", items, listLines)
			}
		})
	}
}

func TestNativeListMarkers(t *testing.T) {
	p := newParser()
	blocks := p.ParseLines([]string{"१. पहला", "२) दूसरा", "क. तीसरा", "a) fourth"})
	if len(blocks) != 1 || blocks[0].List == nil {
		t.Fatalf("expected one list, got %v", kinds(blocks))
	}
	list := blocks[0].List
	if !list.Ordered || len(list.Items) != 4 {
		t.Fatalf("unexpected list %+v", list)
	}
	if list.Items[0].Marker != "१." || list.Items[2].Marker != "क." {
		t.Fatalf("unexpected markers %q %q", list.Items[0].Marker, list.Items[2].Marker)
	}
}

func TestMalformedMarkersDegradeToParagraph(t *testing.T) {
	p := newParser()
	for _, line := range []string{"1.2.3 version bump", "3.14 is pi", "-dash without space", "*emphasis* first"} {
		blocks := p.ParseLines([]string{line})
		if got := kinds(blocks); !reflect.DeepEqual(got, []string{"paragraph"}) {
			t.Fatalf("%q: kinds = %v", line, got)
		}
	}
}

func TestBareMarkerStaysVisible(t *testing.T) {
	blocks := newParser().ParseLines([]string{"- first", "- ", "1.  "})
	if got := kinds(blocks); !reflect.DeepEqual(got, []string{"list", "paragraph", "paragraph"}) {
		t.Fatalf("kinds = %v", got)
	}
	if len(blocks[0].List.Items) != 1 {
		t.Fatalf("list items = %d, want 1", len(blocks[0].List.Items))
	}
	for i, want := range map[int]string{1: "-", 2: "1."} {
		if runs := blocks[i].Paragraph.Runs; len(runs) != 1 || runs[0].Text != want {
			t.Fatalf("block %d runs = %+v, want %q", i, runs, want)
		}
	}
}

func TestWalkVisitsRunsInOrder(t *testing.T) {
	blocks := newParser().Parse("# Title\nalpha\n- beta\n- gamma\n---\ndelta")
	var got []string
	markup.Walk(blocks, func(b markup.Block, r markup.Run) {
		if b.Heading != nil {
			t.Fatalf("headings carry no runs")
		}
		got = append(got, r.Text)
	})
	if want := []string{"alpha", "beta", "gamma", "delta"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("walk order = %v, want %v", got, want)
	}
}

func TestHeadingClassification(t *testing.T) {
	p := newParser()
	tests := []struct {
		line string
		want bool
	}{
		{"# title", true},
		{"  ### deep", true},
		{"#hashtag", true},
		{"NOTE: remember", true},
		{"उदाहरण २", true},
		{"a note in the middle", false},
		{"- note", false},
		{"plain", false},
	}
	for _, tt := range tests {
		if got := p.IsHeading(tt.line); got != tt.want {
			t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
		blocks := p.ParseLines([]string{tt.line})
		if got := blocks[0].Heading != nil; got != tt.want {
			t.Errorf("ParseLines(%q) heading = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestLongLineYieldsOneParagraphPerChunk(t *testing.T) {
	p := markup.NewParser(nil, 12)
	line := "यह एक बहुत लंबी पंक्ति है जो कई अनुच्छेदों में बंट जाती है"
	blocks := p.ParseLines([]string{line})
	if len(blocks) < 2 {
		t.Fatalf("expected several paragraphs, got %d", len(blocks))
	}
	var texts []string
	for _, b := range blocks {
		if b.Paragraph == nil || len(b.Paragraph.Runs) != 1 {
			t.Fatalf("expected single-run paragraphs, got %+v", b)
		}
		texts = append(texts, b.Paragraph.Runs[0].Text)
	}
	if strings.Join(texts, " ") != strings.Join(strings.Fields(line), " ") {
		t.Fatalf("paragraph text lost: %q", texts)
	}
}

func TestRunTagging(t *testing.T) {
	p := newParser()
	blocks := p.ParseLines([]string{"The *key* idea: a = b"})
	r := blocks[0].Paragraph.Runs[0]
	if r.Text != "The key idea: a = b" {
		t.Fatalf("text = %q", r.Text)
	}
	if !r.Highlight || !r.Formula {
		t.Fatalf("expected highlight and formula: %+v", r)
	}
	if len(r.Bold) != 1 || r.Text[r.Bold[0].Start:r.Bold[0].End] != "key" {
		t.Fatalf("unexpected bold spans %+v", r.Bold)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := newParser()
	in := "# A\n- x\n- y\n\nनोट: याद रखें\nplain *text*\n"
	if !reflect.DeepEqual(p.Parse(in), p.Parse(in)) {
		t.Fatal("parse output differs between runs")
	}
}
