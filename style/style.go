// Package style maps document roles and keyword colors to concrete text styles.
package style

import (
	"github.com/ByLCY/notepdf/fonts"
	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/layout"
)

// 常用颜色。
var (
	Black     = layout.Color{R: 0, G: 0, B: 0}
	DarkBlue  = layout.Color{R: 0, G: 0, B: 139}
	Gray      = layout.Color{R: 110, G: 110, B: 110}
	LightGray = layout.Color{R: 200, G: 200, B: 200}
	LightBlue = layout.Color{R: 173, G: 216, B: 230}

	highlightFill   = layout.Color{R: 255, G: 249, B: 196}
	highlightBorder = layout.Color{R: 230, G: 180, B: 60}
	formulaFill     = layout.Color{R: 236, G: 240, B: 255}
	formulaBorder   = layout.Color{R: 90, G: 110, B: 200}
	tableBorder     = layout.Color{R: 90, G: 90, B: 90}
)

// Palette 把关键词颜色名解析为 RGB。
var Palette = map[keywords.ColorToken]layout.Color{
	keywords.ColorPurple: {R: 128, G: 0, B: 128},
	keywords.ColorRed:    {R: 200, G: 30, B: 30},
	keywords.ColorGreen:  {R: 0, G: 128, B: 0},
	keywords.ColorOrange: {R: 230, G: 115, B: 0},
	keywords.ColorBlue:   {R: 30, G: 80, B: 200},
	keywords.ColorTeal:   {R: 0, G: 128, B: 128},
	keywords.ColorBrown:  {R: 139, G: 69, B: 19},
}

// Resolve 返回颜色名对应的 RGB，未知颜色返回 false。
func Resolve(token keywords.ColorToken) (layout.Color, bool) {
	c, ok := Palette[token]
	return c, ok
}

// BaseSize 按文档总字符数选择正文字号：内容越多字号越小。
func BaseSize(totalChars int) float64 {
	switch {
	case totalChars < 600:
		return 14
	case totalChars < 2500:
		return 12
	case totalChars < 8000:
		return 11
	default:
		return 10
	}
}

// WithColor 返回只替换了文字颜色的样式副本。
func WithColor(base layout.TextStyle, c layout.Color) layout.TextStyle {
	base.Color = c
	return base
}

// Option 调整 Sheet 的构造参数。
type Option func(*Sheet)

// WithLineHeight 指定行高规则（默认 1.4 倍字号）。
func WithLineHeight(spec layout.LineHeightSpec) Option {
	return func(s *Sheet) { s.lineHeight = spec }
}

// WithTextColor 覆盖正文颜色（默认深蓝）。
func WithTextColor(c layout.Color) Option {
	return func(s *Sheet) { s.text = c }
}

// Sheet 实现 layout.Styler。字号档位在创建时确定，之后只读。
type Sheet struct {
	profile    fonts.Profile
	base       float64
	lineHeight layout.LineHeightSpec
	text       layout.Color
	roles      map[layout.Role]layout.TextStyle
}

var (
	_ layout.Styler        = (*Sheet)(nil)
	_ layout.DisplayStyler = (*Sheet)(nil)
)

// New 根据字体配置与文档字符数创建样式表。
func New(profile fonts.Profile, totalChars int, opts ...Option) *Sheet {
	s := &Sheet{
		profile: profile,
		base:    BaseSize(totalChars),
		text:    DarkBlue,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.roles = s.build()
	return s
}

// BaseSize 返回本文档的正文字号。
func (s *Sheet) BaseSize() float64 { return s.base }

func (s *Sheet) font(size float64, c layout.Color) layout.TextStyle {
	return layout.TextStyle{
		Font:      s.profile.NormalFamily,
		BoldFont:  s.profile.BoldFamily,
		SizePt:    size,
		LeadingPt: s.lineHeight.Resolve(size),
		Color:     c,
	}
}

func (s *Sheet) build() map[layout.Role]layout.TextStyle {
	b := s.base
	roles := map[layout.Role]layout.TextStyle{}

	para := s.font(b, s.text)
	para.SpaceAfter = b * 0.3
	roles[layout.RoleParagraph] = para

	item := s.font(b, s.text)
	item.SpaceAfter = b * 0.15
	roles[layout.RoleListItem] = item

	hl := para
	fill := highlightFill
	hl.Background = &fill
	hl.BorderWidth = 0.6
	hl.BorderColor = highlightBorder
	hl.Padding = 3
	hl.SpaceBefore = 2
	roles[layout.RoleHighlight] = hl

	fm := para
	ffill := formulaFill
	fm.Background = &ffill
	fm.BorderWidth = 0.8
	fm.BorderColor = formulaBorder
	fm.Padding = 4
	fm.SpaceBefore = 3
	fm.Align = "center"
	roles[layout.RoleFormula] = fm

	title := s.font(b+8, Black)
	title.Bold, title.SpaceBefore, title.SpaceAfter = true, b, b*0.5
	roles[layout.RoleTitle] = title

	heading := s.font(b+4, Black)
	heading.Bold, heading.SpaceBefore, heading.SpaceAfter = true, b*0.8, b*0.3
	roles[layout.RoleHeading] = heading

	sub := s.font(b+2, Black)
	sub.Bold, sub.SpaceBefore, sub.SpaceAfter = true, b*0.6, b*0.2
	roles[layout.RoleSubheading] = sub

	detail := s.font(b, s.text)
	detail.SpaceAfter = b * 0.3
	roles[layout.RoleHeadingDetail] = detail

	ct := s.font(b*2+4, DarkBlue)
	ct.Bold, ct.Align, ct.SpaceAfter = true, "center", b
	roles[layout.RoleCoverTitle] = ct

	cs := s.font(b+2, Gray)
	cs.Align, cs.SpaceAfter = "center", b*0.5
	roles[layout.RoleCoverSubtitle] = cs

	cp := s.font(b-1, Gray)
	cp.Align, cp.SpaceBefore = "center", b
	roles[layout.RoleCoverProgress] = cp

	cot := s.font(b+4, Black)
	cot.Bold, cot.SpaceAfter = true, b*0.5
	roles[layout.RoleContentsTitle] = cot

	ce := s.font(b, s.text)
	ce.SpaceAfter = b * 0.2
	roles[layout.RoleContentsEntry] = ce

	div := s.font(b-2, Gray)
	div.Align, div.SpaceBefore, div.SpaceAfter = "center", b*0.8, b*0.8
	div.BorderColor = LightGray
	roles[layout.RoleDivider] = div

	tt := s.font(b+2, Black)
	tt.Bold, tt.SpaceBefore, tt.SpaceAfter = true, b, b*0.4
	roles[layout.RoleTableTitle] = tt

	th := s.font(b-1, Black)
	th.Bold = true
	thFill := LightBlue
	th.Background = &thFill
	th.BorderColor = tableBorder
	roles[layout.RoleTableHeader] = th

	tc := s.font(b-1, s.text)
	tc.BorderColor = tableBorder
	roles[layout.RoleTableCell] = tc

	roles[layout.RolePageHeader] = s.font(8, Gray)
	roles[layout.RolePageFooter] = s.font(8, Gray)

	wm := s.font(12, Black)
	wm.Bold = true
	roles[layout.RoleWatermark] = wm
	return roles
}

// Style 实现 layout.Styler。kw 只覆盖文字颜色，背景与边框保持不变。
func (s *Sheet) Style(role layout.Role, kw *keywords.Entry) layout.TextStyle {
	st, ok := s.roles[role]
	if !ok {
		st = s.roles[layout.RoleParagraph]
	}
	if kw != nil {
		if c, ok := Resolve(kw.Color); ok {
			st = WithColor(st, c)
		}
	}
	return st
}

// DisplayStyle 在展示字体覆盖文字时改用 Latin Modern，天城文标题保持正文字体。
func (s *Sheet) DisplayStyle(role layout.Role, text string) layout.TextStyle {
	st := s.Style(role, nil)
	st.Font = s.profile.DisplayFor(text, false)
	st.BoldFont = s.profile.DisplayFor(text, true)
	return st
}
