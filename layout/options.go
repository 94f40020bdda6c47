package layout

import "github.com/ByLCY/notepdf/keywords"

// Letter 页面尺寸（pt）。
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端与样式表。
type BuildOptions struct {
	Typesetter Typesetter
	Styler     Styler

	PageWidth  float64
	PageHeight float64
	Margin     Margin
	Background *Color
	Watermark  Watermark

	// HeaderLeft/HeaderRight/Footer 为 ${name} 模板，可用字段见 PageFields。
	HeaderLeft  string
	HeaderRight string
	Footer      string

	Meta DocumentMeta
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// bold 为 content 中需要加粗的字节区间，width 与返回的尺寸均为 pt。
type Typesetter interface {
	LayoutLines(content string, bold []Span, width float64, style TextStyle) ([]TextLine, error)
}

// Styler 返回某个角色的文字样式，kw 非空时只覆盖文字颜色。
type Styler interface {
	Style(role Role, kw *keywords.Entry) TextStyle
}

// Role 标识一段文字在文档中的用途。
type Role int

const (
	RoleParagraph Role = iota
	RoleListItem
	RoleHighlight
	RoleFormula
	RoleTitle
	RoleHeading
	RoleSubheading
	RoleHeadingDetail
	RoleCoverTitle
	RoleCoverSubtitle
	RoleCoverProgress
	RoleContentsTitle
	RoleContentsEntry
	RoleDivider
	RoleTableTitle
	RoleTableHeader
	RoleTableCell
	RolePageHeader
	RolePageFooter
	RoleWatermark
)

var roleNames = [...]string{
	"paragraph", "list-item", "highlight", "formula", "title", "heading", "subheading",
	"heading-detail", "cover-title", "cover-subtitle", "cover-progress", "contents-title",
	"contents-entry", "divider", "table-title", "table-header", "table-cell",
	"page-header", "page-footer", "watermark",
}

func (r Role) String() string {
	if int(r) < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// TextStyle 是解析后的文字样式，尺寸单位为 pt。
type TextStyle struct {
	Font        string  `json:"font"`
	BoldFont    string  `json:"boldFont"`
	SizePt      float64 `json:"sizePt"`
	LeadingPt   float64 `json:"leadingPt"`
	Color       Color   `json:"color"`
	Background  *Color  `json:"background,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
	BorderColor Color   `json:"borderColor"`
	Align       string  `json:"align,omitempty"`
	Padding     float64 `json:"padding,omitempty"`
	SpaceBefore float64 `json:"spaceBefore,omitempty"`
	SpaceAfter  float64 `json:"spaceAfter,omitempty"`
	Bold        bool    `json:"bold,omitempty"` // 整段使用粗体
}

// Boxed 报告样式是否需要绘制背景或边框。
func (s TextStyle) Boxed() bool {
	return s.Background != nil || s.BorderWidth > 0
}

// Watermark 描述水印文字与透明度，角度以度为单位。
type Watermark struct {
	Text           string  `json:"text"`
	Color          Color   `json:"color"`
	BorderSizePt   float64 `json:"borderSizePt"`
	BorderOpacity  float64 `json:"borderOpacity"`
	CenterSizePt   float64 `json:"centerSizePt"`
	CenterOpacity  float64 `json:"centerOpacity"`
	CenterAngleDeg float64 `json:"centerAngleDeg"`
	SpacingPt      float64 `json:"spacingPt"`
}

// DefaultWatermark 返回默认水印参数。
func DefaultWatermark() Watermark {
	return Watermark{
		Text:           "notepdf",
		Color:          Color{R: 255, G: 0, B: 0},
		BorderSizePt:   9,
		BorderOpacity:  0.15,
		CenterSizePt:   40,
		CenterOpacity:  0.3,
		CenterAngleDeg: 45,
		SpacingPt:      24,
	}
}
