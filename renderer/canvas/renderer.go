package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/notepdf/fonts"
	"github.com/ByLCY/notepdf/layout"
	"github.com/ByLCY/notepdf/renderer"
)

const (
	defaultLineWidth = 0.5 // pt
	tableBorderWidth = 0.5 // pt
)

// Renderer draws layout results via github.com/tdewolff/canvas.
// Layout coordinates are points; canvas works in millimeters, so every value is converted at this boundary.
type Renderer struct {
	fontBlobs map[string][]byte // by family name

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ renderer.Backend  = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	Fonts map[string][]byte // font data keyed by the family name used in layout styles
}

// NewRenderer creates a renderer with the given font data.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	for name, data := range opts.Fonts {
		if name == "" || len(data) == 0 {
			continue
		}
		r.fontBlobs[name] = data
	}
	return r
}

// FromProfile registers every face of a resolved font profile under its family name.
func FromProfile(p fonts.Profile) *Renderer {
	blobs := map[string][]byte{
		p.NormalFamily: p.Regular,
		p.BoldFamily:   p.Bold,
	}
	if p.DisplayFamily != "" {
		blobs[fonts.DisplayRegular] = p.DisplayRegular
		blobs[fonts.DisplayBold] = p.DisplayBold
	}
	return NewRenderer(Options{Fonts: blobs})
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, mm(first.Width), mm(first.Height), nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(mm(page.Width), mm(page.Height))
		}
		c := canvas.New(mm(page.Width), mm(page.Height))
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：width 与返回的尺寸均为 pt；字体系统返回的 mm 宽度在这里换算回 pt。
func (r *Renderer) LayoutLines(content string, bold []layout.Span, width float64, st layout.TextStyle) ([]layout.TextLine, error) {
	regular, err := r.fontFace(st.Font, st.SizePt, st.Color)
	if err != nil {
		return nil, err
	}
	heavy := regular
	if st.BoldFont != "" {
		if heavy, err = r.fontFace(st.BoldFont, st.SizePt, st.Color); err != nil {
			return nil, err
		}
	}
	if st.Bold {
		regular = heavy
	}
	w := &wrapper{regular: regular, bold: heavy, limit: width}
	lines := w.wrap(content, bold)

	textMetrics := regular.Metrics()
	textHeight := pt(textMetrics.Ascent + textMetrics.Descent)
	if textHeight <= 0 {
		textHeight = st.SizePt
	}
	leading := math.Max(st.LeadingPt-textHeight, 0)
	for i := range lines {
		lines[i].Height = textHeight
		if i == 0 {
			lines[i].GapBefore = 0
		} else {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page) error {
	if page.Background != nil {
		ctx.SetFillColor(colorFromLayout(*page.Background, 1))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(mm(page.Width), mm(page.Height)))
	}
	for _, tile := range page.Tiles {
		if err := r.drawTile(ctx, tile); err != nil {
			return err
		}
	}
	if page.Stamp != nil {
		if err := r.drawTile(ctx, *page.Stamp); err != nil {
			return err
		}
	}

	// 背景形状（矩形、线）在主体文字之前绘制
	r.drawRects(ctx, page.Rects)
	r.drawLines(ctx, page.Lines)
	for _, tb := range page.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return err
		}
	}
	if err := r.drawTables(ctx, page.Tables); err != nil {
		return err
	}

	for _, hf := range []layout.HeaderFooter{page.Header, page.Footer} {
		r.drawLines(ctx, hf.Lines)
		for _, tb := range hf.Texts {
			if err := r.drawTextBox(ctx, tb); err != nil {
				return err
			}
		}
	}
	return nil
}

// drawTile 在 (X, Y) 处旋转坐标系后绘制一次水印文字。
func (r *Renderer) drawTile(ctx *canvas.Context, tile layout.Tile) error {
	family, err := r.family(tile.Font)
	if err != nil {
		return err
	}
	face := family.Face(tile.SizePt, colorFromLayout(tile.Color, tile.Opacity), canvas.FontRegular, canvas.FontNormal)
	align := canvas.Left
	dy := 0.0
	if tile.Align == "center" {
		align = canvas.Center
		dy = face.Metrics().XHeight / 2
	}
	ctx.Push()
	// CartesianIV 的 y 轴向下，取负角使正角度在视觉上逆时针
	ctx.ComposeView(canvas.Identity.Translate(mm(tile.X), mm(tile.Y)).Rotate(-tile.Angle))
	ctx.DrawText(0, dy, canvas.NewTextLine(face, tile.Text, align))
	ctx.Pop()
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	regular, err := r.fontFace(tb.Font, tb.FontSize, tb.Color)
	if err != nil {
		return err
	}
	heavy := regular
	if tb.BoldFont != "" {
		if heavy, err = r.fontFace(tb.BoldFont, tb.FontSize, tb.Color); err != nil {
			return err
		}
	}
	if tb.Bold {
		regular = heavy
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}
	ascent := regular.Metrics().Ascent

	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		x := tb.X
		switch strings.ToLower(tb.Align) {
		case "center":
			x += (tb.Width - line.Width) / 2
		case "right", "end":
			x += tb.Width - line.Width
		}
		// 基线位置：行顶部加上字体上升部
		baseline := mm(cursorY) + ascent
		segments := line.Segments
		if len(segments) == 0 {
			segments = []layout.Segment{{Text: line.Content, Width: line.Width}}
		}
		for _, seg := range segments {
			face := regular
			if seg.Bold {
				face = heavy
			}
			ctx.DrawText(mm(x), baseline, canvas.NewTextLine(face, seg.Text, canvas.Left))
			x += seg.Width
		}

		lineHeight := line.Height
		if lineHeight <= 0 {
			lineHeight = tb.FontSize
		}
		cursorY += lineHeight
	}
	return nil
}

func (r *Renderer) drawTables(ctx *canvas.Context, tables []layout.TableBox) error {
	for _, table := range tables {
		if len(table.ColumnWidths) == 0 {
			continue
		}
		for _, row := range table.Rows {
			x := table.X
			for idx, cell := range row.Cells {
				colIdx := idx
				if colIdx >= len(table.ColumnWidths) {
					colIdx = len(table.ColumnWidths) - 1
				}
				colWidth := table.ColumnWidths[colIdx]
				fill := color.Color(canvas.White)
				if row.IsHeader {
					fill = colorFromLayout(table.HeaderFill, 1)
				}
				ctx.SetFillColor(fill)
				ctx.SetStrokeColor(colorFromLayout(table.BorderColor, 1))
				ctx.SetStrokeWidth(mm(tableBorderWidth))
				ctx.DrawPath(mm(x), mm(row.Y), canvas.Rectangle(mm(colWidth), mm(row.Height)))

				if err := r.drawTextBox(ctx, cell.Text); err != nil {
					return err
				}
				x += colWidth
			}
		}
	}
	return nil
}

// drawLines 绘制直线列表
func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultLineWidth
		}
		ctx.SetStrokeColor(colorFromLayout(ln.Color, 1))
		ctx.SetStrokeWidth(mm(w))
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(mm(ln.X2-ln.X1), mm(ln.Y2-ln.Y1))
		ctx.DrawPath(mm(ln.X1), mm(ln.Y1), p)
	}
}

// drawRects 绘制矩形；StrokeWidth 为 0 时不描边
func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		if rc.FillColor != nil {
			ctx.SetFillColor(colorFromLayout(*rc.FillColor, 1))
		} else {
			ctx.SetFillColor(canvas.Transparent)
		}
		if rc.StrokeWidth > 0 {
			ctx.SetStrokeColor(colorFromLayout(rc.StrokeColor, 1))
			ctx.SetStrokeWidth(mm(rc.StrokeWidth))
		} else {
			ctx.SetStrokeColor(canvas.Transparent)
		}
		ctx.DrawPath(mm(rc.X), mm(rc.Y), canvas.Rectangle(mm(rc.Width), mm(rc.Height)))
	}
}

func (r *Renderer) fontFace(name string, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	family, err := r.family(name)
	if err != nil {
		return nil, err
	}
	if sizePt <= 0 {
		sizePt = 12
	}
	return family.Face(sizePt, colorFromLayout(col, 1), canvas.FontRegular, canvas.FontNormal), nil
}

// family 返回已加载的字体族；未注册或加载失败时退回内置字体。
func (r *Renderer) family(name string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if f, ok := r.fontFamilies[name]; ok {
		return f, nil
	}
	if data, ok := r.fontBlobs[name]; ok {
		family := canvas.NewFontFamily(name)
		if err := family.LoadFont(data, 0, canvas.FontRegular); err == nil {
			r.fontFamilies[name] = family
			return family, nil
		}
	}
	fallback, err := r.fallback()
	if err != nil {
		return nil, fmt.Errorf("字体 %s 不可用: %w", name, err)
	}
	r.fontFamilies[name] = fallback
	return fallback, nil
}

func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load("go/regular")
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("notepdf-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func colorFromLayout(c layout.Color, alpha float64) color.Color {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, alpha)
}

// mm 将点(pt)转换为毫米(mm)。
func mm(pt float64) float64 { return pt * layout.PtToMm }

// pt 将毫米(mm)转换为点(pt)。
func pt(mm float64) float64 { return mm * layout.MmToPt }
