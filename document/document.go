// Package document assembles parsed fragments into one ordered block sequence:
// cover, contents, the fragments themselves and a trailing summary table.
package document

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/markup"
)

// 汇总表中单元格的最大字符数。
const maxCellRunes = 160

// Options 控制封面文字与可选部分。
type Options struct {
	Title    string
	Subtitle string
	Author   string

	Contents      bool   // 是否生成目录
	ContentsTitle string // 目录标题
	Summary       bool   // 是否生成末尾汇总表
}

// DefaultOptions 返回默认封面与可选部分配置。
func DefaultOptions() Options {
	return Options{
		Title:         "Notes",
		Contents:      true,
		ContentsTitle: "Contents",
		Summary:       true,
	}
}

// Stats 是所有片段的汇总计数。
type Stats struct {
	Fragments  int `json:"fragments"`
	Characters int `json:"characters"`
	Headings   int `json:"headings"`
	Highlights int `json:"highlights"`
	Formulas   int `json:"formulas"`
	Questions  int `json:"questions"`
}

// Progress 返回封面上的进度行。
func (s Stats) Progress() string {
	return fmt.Sprintf("%d sections · %d highlights · %d formulas", s.Fragments, s.Highlights, s.Formulas)
}

// Document 是组装结果。
type Document struct {
	Blocks   []markup.Block `json:"blocks"`
	Headings []string       `json:"headings"`
	Stats    Stats          `json:"stats"`
}

// Assembler 把片段组装为完整文档。无可变状态，可并发使用。
type Assembler struct {
	parser *markup.Parser
	opts   Options
}

// NewAssembler 创建组装器；parser 为空时使用默认关键词表与分块宽度。
func NewAssembler(parser *markup.Parser, opts Options) *Assembler {
	if parser == nil {
		parser = markup.NewParser(nil, 0)
	}
	return &Assembler{parser: parser, opts: opts}
}

// Assemble 按顺序产生封面、目录、分页符、各片段（片段之间插入分节线）与汇总表。
func (a *Assembler) Assemble(fragments []string) []markup.Block {
	return a.Build(fragments).Blocks
}

// Stats 只计算汇总计数。
func (a *Assembler) Stats(fragments []string) Stats {
	return a.Build(fragments).Stats
}

// Build 解析所有片段并返回区块、标题列表与计数。
func (a *Assembler) Build(fragments []string) Document {
	var doc Document
	parsed := make([][]markup.Block, len(fragments))
	for i, f := range fragments {
		parsed[i] = a.parser.Parse(f)
		doc.Stats.Characters += utf8.RuneCountInString(f)
	}
	doc.Stats.Fragments = len(fragments)

	var collect collector
	for _, blocks := range parsed {
		for _, b := range blocks {
			collect.visit(b)
		}
	}
	doc.Headings = collect.headings
	doc.Stats.Headings = len(collect.headings)
	doc.Stats.Highlights = len(collect.highlights)
	doc.Stats.Formulas = collect.formulas
	doc.Stats.Questions = collect.questions

	doc.Blocks = append(doc.Blocks, markup.Block{Cover: &markup.Cover{
		Title:    a.opts.Title,
		Subtitle: a.opts.Subtitle,
		Author:   a.opts.Author,
		Progress: doc.Stats.Progress(),
	}})
	if a.opts.Contents && len(collect.headings) > 0 {
		doc.Blocks = append(doc.Blocks, markup.Block{Contents: &markup.Contents{
			Title:   a.opts.ContentsTitle,
			Entries: append([]string(nil), collect.headings...),
		}})
	}
	doc.Blocks = append(doc.Blocks, markup.Block{PageBreak: &markup.PageBreak{}})

	for i, blocks := range parsed {
		if i > 0 {
			doc.Blocks = append(doc.Blocks, markup.Block{Divider: &markup.Divider{Section: i + 1}})
		}
		doc.Blocks = append(doc.Blocks, blocks...)
	}

	if a.opts.Summary {
		if t := collect.table(); t != nil {
			doc.Blocks = append(doc.Blocks, markup.Block{Table: t})
		}
	}
	return doc
}

// collector 按出现顺序收集标题、高亮与问答对。
type collector struct {
	headings   []string
	highlights []string
	formulas   int
	questions  int

	pending string // 尚未配对的问题
	hasQ    bool
	pairs   [][2]string
}

func (c *collector) visit(b markup.Block) {
	switch {
	case b.Heading != nil:
		h := b.Heading
		c.headings = append(c.headings, h.Text)
		text := h.Text
		if h.Detail != "" {
			text = h.Detail
		}
		c.tagged(h.Keyword, text)
	default:
		markup.Walk([]markup.Block{b}, func(_ markup.Block, r markup.Run) { c.run(r) })
	}
}

func (c *collector) run(r markup.Run) {
	if r.Highlight {
		c.highlights = append(c.highlights, r.Text)
	}
	if r.Formula {
		c.formulas++
	}
	c.tagged(r.Keyword, r.Text)
}

// tagged 处理问答配对：问题之后的第一个答案与之配对，新的问题覆盖未配对的旧问题。
func (c *collector) tagged(kw *keywords.Entry, text string) {
	if kw == nil {
		return
	}
	switch kw.Label {
	case keywords.LabelQuestion:
		c.questions++
		c.pending, c.hasQ = text, true
	case keywords.LabelAnswer:
		if c.hasQ {
			c.pairs = append(c.pairs, [2]string{c.pending, text})
			c.pending, c.hasQ = "", false
		}
	}
}

func (c *collector) table() *markup.Table {
	if len(c.pairs) > 0 {
		t := &markup.Table{Title: "Questions & Answers", Header: []string{"#", "Question", "Answer"}}
		for i, p := range c.pairs {
			t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), clip(p[0]), clip(p[1])})
		}
		return t
	}
	if len(c.highlights) == 0 {
		return nil
	}
	t := &markup.Table{Title: "Key points", Header: []string{"#", "Highlight"}}
	for i, h := range c.highlights {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), clip(h)})
	}
	return t
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxCellRunes-1]) + "…"
}
