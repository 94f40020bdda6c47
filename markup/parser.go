package markup

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/notepdf/chunker"
	"github.com/ByLCY/notepdf/keywords"
)

// DefaultSpacerPt 是空行产生的 Spacer 高度。
const DefaultSpacerPt = 6.0

var (
	headingPattern  = regexp.MustCompile(`^\s*(#+)\s*(.*?)\s*$`)
	thematicPattern = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
	// 列表标记：- * + •；阿拉伯或天城文数字 1. 1) १. १)；单个拉丁字母或天城文辅音 a) क.
	listPattern = regexp.MustCompile(`^\s*([-*+•]|(?:[0-9]{1,3}|[०-९]{1,3}|[A-Za-z]|[क-ह])[.)])\s+(.*?)\s*$`)
)

// Parser 把一个片段按行转换为 Block 序列。无内部可变状态，可并发使用。
type Parser struct {
	tagger     *keywords.Tagger
	chunkWidth int
	spacerPt   float64
}

// NewParser 创建解析器；tagger 为空时使用内置关键词表。
func NewParser(tagger *keywords.Tagger, chunkWidth int) *Parser {
	if tagger == nil {
		tagger = keywords.NewTagger(keywords.DefaultTable())
	}
	return &Parser{tagger: tagger, chunkWidth: chunkWidth, spacerPt: DefaultSpacerPt}
}

// Parse 解析一个片段。
func (p *Parser) Parse(fragment string) []Block {
	return p.ParseLines(SplitLines(fragment))
}

// ParseLines 对已切分的行运行状态机，片段结束时总会关闭未完成的列表。
func (p *Parser) ParseLines(lines []string) []Block {
	m := &machine{p: p}
	for _, line := range lines {
		m.feed(line)
	}
	m.flush()
	return m.out
}

// SplitLines 统一换行符并做 NFC 规范化；末尾的单个换行不产生额外空行。
func SplitLines(fragment string) []string {
	fragment = norm.NFC.String(fragment)
	fragment = strings.ReplaceAll(fragment, "\r\n", "\n")
	fragment = strings.ReplaceAll(fragment, "\r", "\n")
	fragment = strings.TrimSuffix(fragment, "\n")
	return strings.Split(fragment, "\n")
}

type state int

const (
	stateIdle state = iota
	stateInList
)

// machine 的状态转移：
//
//	输入        Idle                      InList
//	空行        Spacer                    flush, Spacer, → Idle
//	标题行      Heading                   flush, Heading, → Idle
//	分隔线      Divider                   flush, Divider, → Idle
//	列表行      新 List, → InList          追加 ListItem
//	其他        Paragraph × chunk         flush, Paragraph × chunk, → Idle
//	片段结束    -                         flush, → Idle
type machine struct {
	p     *Parser
	state state
	list  *List
	out   []Block
}

func (m *machine) emit(b Block) {
	m.out = append(m.out, b)
}

func (m *machine) flush() {
	if m.state == stateInList && m.list != nil {
		m.emit(Block{List: m.list})
	}
	m.list = nil
	m.state = stateIdle
}

func (m *machine) feed(line string) {
	if strings.TrimSpace(line) == "" {
		m.flush()
		m.emit(Block{Spacer: &Spacer{HeightPt: m.p.spacerPt}})
		return
	}
	if h, ok := m.p.heading(line); ok {
		m.flush()
		m.emit(Block{Heading: h})
		return
	}
	if thematicPattern.MatchString(line) {
		m.flush()
		m.emit(Block{Divider: &Divider{}})
		return
	}
	if marker, text, ordered, ok := matchListItem(line); ok {
		if m.state != stateInList {
			m.list = &List{Ordered: ordered}
			m.state = stateInList
		}
		m.list.Items = append(m.list.Items, ListItem{Marker: marker, Runs: m.p.runs(text)})
		return
	}
	m.flush()
	for _, r := range m.p.runs(strings.TrimSpace(line)) {
		m.emit(Block{Paragraph: &Paragraph{Runs: []Run{r}}})
	}
}

// IsHeading 报告一行是否会被解析为标题。
func (p *Parser) IsHeading(line string) bool {
	_, ok := p.heading(line)
	return ok
}

func (p *Parser) heading(line string) (*Heading, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		m := headingPattern.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, false
		}
		level := len(m[1])
		if level > 3 {
			level = 3
		}
		text, spans := Emphasis(m[2])
		h := &Heading{Text: text, Level: level, Bold: spans}
		if res := p.tagger.Tag(text); res.Keyword != nil {
			h.Keyword = res.Keyword
		}
		return h, true
	}
	if entry, rest, ok := p.tagger.HeadingKeyword(trimmed); ok {
		detail, _ := Emphasis(rest)
		return &Heading{
			Text:    keywords.HeadingText(*entry),
			Level:   2,
			Detail:  detail,
			Keyword: entry,
		}, true
	}
	return nil, false
}

func matchListItem(line string) (marker, text string, ordered, ok bool) {
	m := listPattern.FindStringSubmatch(line)
	if m == nil || m[2] == "" {
		return "", "", false, false
	}
	return m[1], m[2], !strings.ContainsAny(m[1], "-*+•"), true
}

// runs 对文本分块，每块识别强调并打标。
func (p *Parser) runs(text string) []Run {
	if text == "" {
		return nil
	}
	var out []Run
	for _, piece := range chunker.Chunk(text, p.chunkWidth) {
		plain, spans := Emphasis(piece)
		res := p.tagger.Tag(plain)
		out = append(out, Run{
			Text:      plain,
			Highlight: res.Highlight || len(spans) > 0,
			Formula:   res.Formula,
			Keyword:   res.Keyword,
			Bold:      spans,
		})
	}
	return out
}
