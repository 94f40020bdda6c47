package markup

import "github.com/ByLCY/notepdf/keywords"

// Block 是文档结构中的一个单元，恰好有一个字段非空（与 Section 的写法一致）。
type Block struct {
	Heading   *Heading   `json:"heading,omitempty"`
	List      *List      `json:"list,omitempty"`
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	Divider   *Divider   `json:"divider,omitempty"`
	Spacer    *Spacer    `json:"spacer,omitempty"`

	// 以下变体只由 document 组装器产生。
	Cover     *Cover     `json:"cover,omitempty"`
	Contents  *Contents  `json:"contents,omitempty"`
	PageBreak *PageBreak `json:"pageBreak,omitempty"`
	Table     *Table     `json:"table,omitempty"`
}

// Kind returns the human-readable block type.
func (b Block) Kind() string {
	switch {
	case b.Heading != nil:
		return "heading"
	case b.List != nil:
		return "list"
	case b.Paragraph != nil:
		return "paragraph"
	case b.Divider != nil:
		return "divider"
	case b.Spacer != nil:
		return "spacer"
	case b.Cover != nil:
		return "cover"
	case b.Contents != nil:
		return "contents"
	case b.PageBreak != nil:
		return "page-break"
	case b.Table != nil:
		return "table"
	default:
		return "unknown"
	}
}

// Span 是 Run.Text 中的字节区间 [Start, End)。
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Run 是一个 chunk 经过关键词打标与强调识别后的结果。
type Run struct {
	Text      string          `json:"text"`
	Highlight bool            `json:"highlight,omitempty"`
	Formula   bool            `json:"formula,omitempty"`
	Keyword   *keywords.Entry `json:"keyword,omitempty"`
	Bold      []Span          `json:"bold,omitempty"`
}

// Heading 的 Keyword 决定颜色覆盖；关键词触发的标题把行内剩余文本放在 Detail。
type Heading struct {
	Text    string          `json:"text"`
	Level   int             `json:"level"`
	Detail  string          `json:"detail,omitempty"`
	Keyword *keywords.Entry `json:"keyword,omitempty"`
	Bold    []Span          `json:"bold,omitempty"`
}

// List 由连续的列表行合并而来。
type List struct {
	Ordered bool       `json:"ordered,omitempty"`
	Items   []ListItem `json:"items"`
}

// ListItem 保留原始标记（如 "1."、"क)"），Runs 为分块后的文本。
type ListItem struct {
	Marker string `json:"marker"`
	Runs   []Run  `json:"runs"`
}

// Paragraph 由解析器产生时只包含一个 Run（每个 chunk 一个段落）。
type Paragraph struct {
	Runs []Run `json:"runs"`
}

// Divider 是分节标记；Section 为 0 表示正文中的分隔线（---）。
type Divider struct {
	Section int `json:"section,omitempty"`
}

// Spacer 表示一段垂直空白。
type Spacer struct {
	HeightPt float64 `json:"heightPt"`
}

// Cover 是封面区。
type Cover struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Author   string `json:"author,omitempty"`
	Progress string `json:"progress,omitempty"`
}

// Contents 是目录，Entries 按出现顺序排列，展示时从 1 开始编号。
type Contents struct {
	Title   string   `json:"title"`
	Entries []string `json:"entries"`
}

// PageBreak 强制换页。
type PageBreak struct{}

// Table 是唯一的汇总/检查表。
type Table struct {
	Title  string     `json:"title"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Walk 依次访问所有 Run（段落、列表项），用于统计。
func Walk(blocks []Block, fn func(b Block, r Run)) {
	for _, b := range blocks {
		switch {
		case b.Paragraph != nil:
			for _, r := range b.Paragraph.Runs {
				fn(b, r)
			}
		case b.List != nil:
			for _, it := range b.List.Items {
				for _, r := range it.Runs {
					fn(b, r)
				}
			}
		}
	}
}
