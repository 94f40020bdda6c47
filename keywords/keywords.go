package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ColorToken 是调色板中的颜色名，由 style 包解析为具体 RGB。
type ColorToken string

const (
	ColorPurple ColorToken = "purple"
	ColorRed    ColorToken = "red"
	ColorGreen  ColorToken = "green"
	ColorOrange ColorToken = "orange"
	ColorBlue   ColorToken = "blue"
	ColorTeal   ColorToken = "teal"
	ColorBrown  ColorToken = "brown"
)

// 语义标签中有特殊含义的几个值。
const (
	LabelFormula  = "formula"
	LabelQuestion = "question"
	LabelAnswer   = "answer"
)

// Entry 是关键词表中的一项。
type Entry struct {
	Keyword string     `json:"keyword" yaml:"keyword"`
	Label   string     `json:"label" yaml:"label"`
	Color   ColorToken `json:"color" yaml:"color"`
}

// Table 是有序关键词表：匹配时按顺序取第一个命中项。
type Table []Entry

// DefaultTable 返回内置关键词表。天城文条目在前，英文同义词在后。
func DefaultTable() Table {
	return Table{
		{Keyword: "परिभाषा", Label: "definition", Color: ColorPurple},
		{Keyword: "सूत्र", Label: LabelFormula, Color: ColorRed},
		{Keyword: "उदाहरण", Label: "example", Color: ColorGreen},
		{Keyword: "महत्वपूर्ण", Label: "important", Color: ColorOrange},
		{Keyword: "नोट", Label: "note", Color: ColorBlue},
		{Keyword: "प्रश्न", Label: LabelQuestion, Color: ColorTeal},
		{Keyword: "उत्तर", Label: LabelAnswer, Color: ColorBrown},
		{Keyword: "definition", Label: "definition", Color: ColorPurple},
		{Keyword: "formula", Label: LabelFormula, Color: ColorRed},
		{Keyword: "example", Label: "example", Color: ColorGreen},
		{Keyword: "important", Label: "important", Color: ColorOrange},
		{Keyword: "note", Label: "note", Color: ColorBlue},
		{Keyword: "question", Label: LabelQuestion, Color: ColorTeal},
		{Keyword: "answer", Label: LabelAnswer, Color: ColorBrown},
	}
}

// Result 是一次打标的结果。
type Result struct {
	Highlight bool
	Formula   bool
	Keyword   *Entry
}

// Tagger 在文本中识别关键词。创建后只读，可并发使用。
type Tagger struct {
	entries []Entry
	folded  []string // 与 entries 一一对应的折叠形式
}

// NewTagger 复制并规范化关键词表；空关键词与重复关键词被忽略（保留第一次出现）。
func NewTagger(table Table) *Tagger {
	t := &Tagger{}
	seen := map[string]bool{}
	for _, e := range table {
		e.Keyword = norm.NFC.String(strings.TrimSpace(e.Keyword))
		if e.Keyword == "" {
			continue
		}
		f := fold(e.Keyword)
		if seen[f] {
			continue
		}
		seen[f] = true
		t.entries = append(t.entries, e)
		t.folded = append(t.folded, f)
	}
	return t
}

// Entries 返回规范化后的表（副本）。
func (t *Tagger) Entries() Table {
	out := make(Table, len(t.entries))
	copy(out, t.entries)
	return out
}

// Tag 计算 Formula / Highlight / Keyword。
// Highlight 在这里只反映关键词命中，强调标记由调用方（markup）合并。
func (t *Tagger) Tag(text string) Result {
	var res Result
	if text == "" {
		return res
	}
	folded := fold(norm.NFC.String(text))
	if strings.Contains(folded, "=") {
		res.Formula = true
	}
	for i, kw := range t.folded {
		if !strings.Contains(folded, kw) {
			continue
		}
		res.Highlight = true
		if t.entries[i].Label == LabelFormula {
			res.Formula = true
		}
		if res.Keyword == nil && containsWord(folded, kw) {
			e := t.entries[i]
			res.Keyword = &e
		}
	}
	return res
}

// HeadingKeyword 判断去掉首尾空白后的行是否以关键词开头（其后必须是词边界）。
// rest 为关键词之后去掉分隔符的剩余文本。
func (t *Tagger) HeadingKeyword(line string) (*Entry, string, bool) {
	line = norm.NFC.String(strings.TrimSpace(line))
	if line == "" {
		return nil, "", false
	}
	for i, kw := range t.folded {
		n := utf8.RuneCountInString(t.entries[i].Keyword)
		prefix, rest, ok := splitRunes(line, n)
		if !ok || fold(prefix) != kw {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); rest != "" && isWordRune(r) {
			continue
		}
		e := t.entries[i]
		return &e, strings.TrimSpace(strings.TrimLeft(rest, " \t:：-–—|।")), true
	}
	return nil, "", false
}

// HeadingText 把关键词标题改写为 "<keyword> (<label>)"。
func HeadingText(e Entry) string {
	return e.Keyword + " (" + e.Label + ")"
}

var folder = cases.Fold()

func fold(s string) string {
	return folder.String(s)
}

// splitRunes 在第 n 个 rune 处切分。
func splitRunes(s string, n int) (string, string, bool) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:], true
		}
		i++
	}
	if i == n {
		return s, "", true
	}
	return "", "", false
}

// containsWord 检查 kw 是否以完整单词出现在 s 中。
func containsWord(s, kw string) bool {
	offset := 0
	for {
		idx := strings.Index(s[offset:], kw)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(kw)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
}

// isWordRune 把天城文的元音符号、virama 等组合记号也视为词的一部分。
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc)
}
