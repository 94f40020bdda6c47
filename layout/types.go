package layout

// 该文件定义布局结果，供布局计算、渲染与调试 JSON 共用。所有坐标与尺寸均为 pt，原点在页面左上角。

// Result 保存布局后的页面与元信息。
type Result struct {
	Pages []Page       `json:"pages"`
	Meta  DocumentMeta `json:"meta"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录页面尺寸、边距与最终可以直接渲染的元素。
// 绘制顺序：背景、水印平铺、中心水印、主体内容、页眉、页脚。
type Page struct {
	Number     int     `json:"number"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Margin     Margin  `json:"margin"`
	Background *Color  `json:"background,omitempty"`

	Tiles []Tile `json:"tiles,omitempty"`
	Stamp *Tile  `json:"stamp,omitempty"`

	Texts  []TextBox  `json:"texts"`
	Tables []TableBox `json:"tables,omitempty"`
	Lines  []Line     `json:"lines,omitempty"`
	Rects  []Rect     `json:"rects,omitempty"`

	Header HeaderFooter `json:"header"`
	Footer HeaderFooter `json:"footer"`
}

// Tile 是一个水印文字实例，(X, Y) 为旋转中心，Angle 以度为单位。
type Tile struct {
	Text    string  `json:"text"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Angle   float64 `json:"angle"`
	Font    string  `json:"font"`
	SizePt  float64 `json:"sizePt"`
	Color   Color   `json:"color"`
	Opacity float64 `json:"opacity"`
	Align   string  `json:"align,omitempty"`
}

// HeaderFooter 描述页眉/页脚区域的固定高度与元素集合。
type HeaderFooter struct {
	Height float64   `json:"height"`
	Texts  []TextBox `json:"texts"`
	Lines  []Line    `json:"lines,omitempty"`
}

// Margin 以 pt 为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// TextBox 表示一个已经排好坐标的文本块。
type TextBox struct {
	Content    string     `json:"content"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	LineHeight float64    `json:"lineHeight"`
	Font       string     `json:"font"`
	BoldFont   string     `json:"boldFont,omitempty"`
	Bold       bool       `json:"bold,omitempty"` // 整段使用粗体
	FontSize   float64    `json:"fontSize"`
	Color      Color      `json:"color"`
	Lines      []TextLine `json:"lines"`
	Height     float64    `json:"height"`
	Align      string     `json:"align,omitempty"` // left/center/right，默认 left
}

// TextLine 表示排版后的一行文本内容及其宽高。
// Segments 为空时整行使用常规字重。
type TextLine struct {
	Content   string    `json:"content"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	GapBefore float64   `json:"gapBefore,omitempty"`
	Segments  []Segment `json:"segments,omitempty"`
}

// Segment 是一行中字重一致的一段文字。
type Segment struct {
	Text  string  `json:"text"`
	Bold  bool    `json:"bold,omitempty"`
	Width float64 `json:"width"`
}

// Span 是 content 中以字节偏移表示的加粗区间。
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TableBox 保存简化表格布局信息（平均列宽）。
type TableBox struct {
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Width        float64    `json:"width"`
	ColumnWidths []float64  `json:"columnWidths"`
	Rows         []TableRow `json:"rows"`
	BorderColor  Color      `json:"borderColor"`
	HeaderFill   Color      `json:"headerFill"`
}

// TableRow 记录每一行的高度与单元格。
type TableRow struct {
	Y        float64     `json:"y"`
	Height   float64     `json:"height"`
	IsHeader bool        `json:"isHeader"`
	Cells    []TableCell `json:"cells"`
}

// TableCell 复用 TextBox 作为单元格内容。
type TableCell struct {
	Text TextBox `json:"text"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // <=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
