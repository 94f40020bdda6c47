package layout

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/ByLCY/notepdf/binding"
	"github.com/ByLCY/notepdf/markup"
)

const (
	listIndent   = 18.0
	cellPadding  = 4.0
	headerGap    = 10.0
	dividerWidth = 0.6
	coverDrop    = 0.22 // 封面标题下移的内容区高度比例
	measureWidth = 1e6
)

var (
	errNoTypesetter = errors.New("layout: 缺少排版后端 Typesetter")
	errNoStyler     = errors.New("layout: 缺少样式表 Styler")
)

// Build 将块序列自上而下排入页面，放不下时换页；PageBreak 强制换页。
// 页面全部排好后再补上背景、水印、页眉（含总页数）与页脚。
func Build(blocks []markup.Block, opts BuildOptions) (*Result, error) {
	if opts.Typesetter == nil {
		return nil, errNoTypesetter
	}
	if opts.Styler == nil {
		return nil, errNoStyler
	}
	opts = withDefaults(opts)

	collector := newPageCollector(opts.PageWidth, opts.PageHeight, opts.Margin)
	root := &flowContext{
		x:          opts.Margin.Left,
		width:      opts.PageWidth - opts.Margin.Left - opts.Margin.Right,
		cursorY:    collector.contentTop(),
		typesetter: opts.Typesetter,
		styler:     opts.Styler,
		collector:  collector,
	}
	if root.width <= 0 || collector.contentBottom() <= collector.contentTop() {
		return nil, fmt.Errorf("页边距过大，内容区域为空（%gx%g，边距 %+v）", opts.PageWidth, opts.PageHeight, opts.Margin)
	}

	for i, b := range blocks {
		if err := root.place(b); err != nil {
			return nil, fmt.Errorf("排版第 %d 个块（%s）失败: %w", i+1, b.Kind(), err)
		}
	}

	pages := collector.pages()
	if err := decorate(pages, opts); err != nil {
		return nil, err
	}
	meta := opts.Meta
	if meta.Creator == "" {
		meta.Creator = "notepdf"
	}
	return &Result{Pages: pages, Meta: meta}, nil
}

func withDefaults(opts BuildOptions) BuildOptions {
	if opts.PageWidth <= 0 || opts.PageHeight <= 0 {
		opts.PageWidth, opts.PageHeight = LetterWidth, LetterHeight
	}
	if opts.Margin == (Margin{}) {
		opts.Margin = Margin{Top: 72, Right: 72, Bottom: 72, Left: 72}
	}
	return opts
}

// place 根据块类型分派到对应的排版函数。
func (ctx *flowContext) place(b markup.Block) error {
	switch {
	case b.Cover != nil:
		return ctx.placeCover(b.Cover)
	case b.Contents != nil:
		return ctx.placeContents(b.Contents)
	case b.PageBreak != nil:
		if !ctx.atTop() {
			ctx.pageBreak()
		}
		return nil
	case b.Heading != nil:
		return ctx.placeHeading(b.Heading)
	case b.List != nil:
		return ctx.placeList(b.List)
	case b.Paragraph != nil:
		for _, r := range b.Paragraph.Runs {
			if _, _, err := ctx.placeRun(r, RoleParagraph, 0); err != nil {
				return err
			}
		}
		return nil
	case b.Divider != nil:
		return ctx.placeDivider(b.Divider)
	case b.Spacer != nil:
		ctx.space(b.Spacer.HeightPt)
		return nil
	case b.Table != nil:
		return ctx.placeTable(b.Table)
	}
	return nil
}

func (ctx *flowContext) placeCover(c *markup.Cover) error {
	if ctx.atTop() {
		ctx.cursorY += (ctx.collector.contentBottom() - ctx.collector.contentTop()) * coverDrop
	}
	items := []struct {
		text string
		role Role
	}{
		{c.Title, RoleCoverTitle},
		{c.Subtitle, RoleCoverSubtitle},
		{c.Author, RoleCoverSubtitle},
		{c.Progress, RoleCoverProgress},
	}
	for _, it := range items {
		if it.text == "" {
			continue
		}
		st := ctx.styleFor(it.role, it.text)
		if _, _, err := ctx.placeText(it.text, nil, st, 0); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *flowContext) placeContents(c *markup.Contents) error {
	if len(c.Entries) == 0 {
		return nil
	}
	if c.Title != "" {
		st := ctx.styleFor(RoleContentsTitle, c.Title)
		ctx.ensureSpace(st.SpaceBefore + st.LeadingPt*2)
		if _, _, err := ctx.placeText(c.Title, nil, st, 0); err != nil {
			return err
		}
	}
	st := ctx.styler.Style(RoleContentsEntry, nil)
	for i, e := range c.Entries {
		line := strconv.Itoa(i+1) + ". " + e
		if _, _, err := ctx.placeText(line, nil, st, 0); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *flowContext) placeHeading(h *markup.Heading) error {
	role := RoleHeading
	switch h.Level {
	case 1:
		role = RoleTitle
	case 3:
		role = RoleSubheading
	}
	st := ctx.styler.Style(role, h.Keyword)
	// 标题至少与下一行同页
	ctx.ensureSpace(st.SpaceBefore + st.LeadingPt*2 + 2*st.Padding)
	if _, _, err := ctx.placeText(h.Text, toSpans(h.Bold), st, 0); err != nil {
		return err
	}
	if h.Detail != "" {
		dst := ctx.styler.Style(RoleHeadingDetail, h.Keyword)
		if _, _, err := ctx.placeText(h.Detail, nil, dst, 0); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *flowContext) placeList(l *markup.List) error {
	for _, item := range l.Items {
		marker := "•"
		if l.Ordered {
			marker = item.Marker
		}
		for i, r := range item.Runs {
			page, y, err := ctx.placeRun(r, RoleListItem, listIndent)
			if err != nil {
				return err
			}
			if i > 0 {
				continue
			}
			mst := ctx.styler.Style(RoleListItem, nil)
			mst.Background, mst.BorderWidth = nil, 0
			lines, err := layoutLines(ctx.typesetter, marker, nil, listIndent, mst)
			if err != nil {
				return err
			}
			ctx.collector.accs[page].appendText(TextBox{
				Content:    marker,
				X:          ctx.x,
				Y:          y,
				Width:      listIndent,
				LineHeight: mst.LeadingPt,
				Font:       mst.Font,
				BoldFont:   mst.BoldFont,
				Bold:       mst.Bold,
				FontSize:   mst.SizePt,
				Color:      mst.Color,
				Lines:      lines[:1],
				Height:     lines[0].Height,
			})
		}
	}
	return nil
}

// placeRun 按 Formula > Highlight > base 的优先级选择样式，返回首行所在页与纵坐标。
func (ctx *flowContext) placeRun(r markup.Run, base Role, indent float64) (int, float64, error) {
	role := base
	switch {
	case r.Formula:
		role = RoleFormula
	case r.Highlight:
		role = RoleHighlight
	}
	st := ctx.styler.Style(role, r.Keyword)
	return ctx.placeText(r.Text, toSpans(r.Bold), st, indent)
}

func (ctx *flowContext) placeDivider(d *markup.Divider) error {
	st := ctx.styler.Style(RoleDivider, nil)
	ctx.ensureSpace(st.SpaceBefore + dividerWidth + st.SpaceAfter)
	ctx.space(st.SpaceBefore)
	ctx.acc().lines = append(ctx.acc().lines, Line{
		X1: ctx.x, Y1: ctx.cursorY,
		X2: ctx.x + ctx.width, Y2: ctx.cursorY,
		Color: st.Color, Width: dividerWidth,
	})
	ctx.cursorY += dividerWidth
	if d.Section > 0 {
		label := "Section " + strconv.Itoa(d.Section)
		lst := st
		lst.SpaceBefore = 2
		lst.Align = "center"
		if _, _, err := ctx.placeText(label, nil, lst, 0); err != nil {
			return err
		}
		return nil
	}
	ctx.cursorY += st.SpaceAfter
	return nil
}

func (ctx *flowContext) placeTable(t *markup.Table) error {
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return nil
	}
	if t.Title != "" {
		st := ctx.styleFor(RoleTableTitle, t.Title)
		ctx.ensureSpace(st.SpaceBefore + st.LeadingPt*3)
		if _, _, err := ctx.placeText(t.Title, nil, st, 0); err != nil {
			return err
		}
	}

	hst := ctx.styler.Style(RoleTableHeader, nil)
	cst := ctx.styler.Style(RoleTableCell, nil)
	colWidth := ctx.width / float64(cols)
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = colWidth
	}
	newTable := func() TableBox {
		return TableBox{
			X: ctx.x, Y: ctx.cursorY, Width: ctx.width,
			ColumnWidths: widths,
			BorderColor:  cst.BorderColor,
			HeaderFill:   fillOr(hst.Background, Color{R: 240, G: 240, B: 240}),
		}
	}
	table := newTable()
	flush := func() {
		if len(table.Rows) > 0 {
			ctx.acc().appendTable(table)
		}
	}

	addRow := func(cells []string, header bool) error {
		st := cst
		if header {
			st = hst
		}
		row, err := ctx.buildRow(cells, cols, colWidth, header, st)
		if err != nil {
			return err
		}
		onlyHeader := len(table.Rows) == 1 && table.Rows[0].IsHeader
		if ctx.cursorY+row.Height > ctx.collector.contentBottom() && !ctx.atTop() {
			if onlyHeader {
				table.Rows = nil
			}
			flush()
			ctx.pageBreak()
			table = newTable()
			if !header && len(t.Header) > 0 {
				hrow, err := ctx.buildRow(t.Header, cols, colWidth, true, hst)
				if err != nil {
					return err
				}
				ctx.shiftRow(&hrow)
				table.Rows = append(table.Rows, hrow)
				ctx.cursorY += hrow.Height
			}
			row, err = ctx.buildRow(cells, cols, colWidth, header, st)
			if err != nil {
				return err
			}
		}
		ctx.shiftRow(&row)
		table.Rows = append(table.Rows, row)
		ctx.cursorY += row.Height
		return nil
	}

	if len(t.Header) > 0 {
		if err := addRow(t.Header, true); err != nil {
			return err
		}
	}
	for _, r := range t.Rows {
		if err := addRow(r, false); err != nil {
			return err
		}
	}
	flush()
	ctx.cursorY += cst.SpaceAfter
	return nil
}

// buildRow 以 y=0 排出一行，shiftRow 再把它移到当前游标处。
func (ctx *flowContext) buildRow(cells []string, cols int, colWidth float64, header bool, st TextStyle) (TableRow, error) {
	row := TableRow{IsHeader: header}
	maxHeight := 0.0
	for i := 0; i < cols; i++ {
		content := ""
		if i < len(cells) {
			content = cells[i]
		}
		cellWidth := colWidth - 2*cellPadding
		if cellWidth <= 0 {
			cellWidth = colWidth
		}
		lines, err := layoutLines(ctx.typesetter, content, nil, cellWidth, st)
		if err != nil {
			return row, err
		}
		h := linesHeight(lines)
		row.Cells = append(row.Cells, TableCell{Text: TextBox{
			Content:    content,
			X:          ctx.x + float64(i)*colWidth + cellPadding,
			Y:          cellPadding,
			Width:      cellWidth,
			LineHeight: st.LeadingPt,
			Font:       st.Font,
			BoldFont:   st.BoldFont,
			Bold:       st.Bold,
			FontSize:   st.SizePt,
			Color:      st.Color,
			Lines:      lines,
			Height:     h,
		}})
		if h > maxHeight {
			maxHeight = h
		}
	}
	row.Height = maxHeight + 2*cellPadding
	return row, nil
}

func (ctx *flowContext) shiftRow(row *TableRow) {
	row.Y = ctx.cursorY
	for i := range row.Cells {
		row.Cells[i].Text.Y = ctx.cursorY + cellPadding
	}
}

// placeText 排版一段文字。整段放不下时按行拆到后续页面，带背景的样式在每页各画一个框。
// 返回首行所在页的下标与首行顶部的纵坐标。
func (ctx *flowContext) placeText(content string, bold []Span, st TextStyle, indent float64) (int, float64, error) {
	pad := 0.0
	if st.Boxed() {
		pad = st.Padding
	}
	x := ctx.x + indent
	width := ctx.width - indent
	inner := width - 2*pad
	if inner <= 0 {
		inner = width
	}
	lines, err := layoutLines(ctx.typesetter, content, bold, inner, st)
	if err != nil {
		return 0, 0, err
	}

	ctx.space(st.SpaceBefore)
	firstPage, firstY := -1, 0.0
	for i := 0; i < len(lines); {
		avail := ctx.collector.contentBottom() - ctx.cursorY - 2*pad
		j, h := i, 0.0
		for j < len(lines) {
			lh := lines[j].Height
			if j > i {
				lh += lines[j].GapBefore
			}
			if h+lh > avail && !(j == i && ctx.atTop()) {
				break
			}
			h += lh
			j++
		}
		if j == i {
			ctx.pageBreak()
			continue
		}
		piece := append([]TextLine(nil), lines[i:j]...)
		piece[0].GapBefore = 0

		acc := ctx.acc()
		if st.Boxed() {
			acc.rects = append(acc.rects, Rect{
				X: x, Y: ctx.cursorY, Width: width, Height: h + 2*pad,
				StrokeColor: st.BorderColor, StrokeWidth: st.BorderWidth,
				FillColor: st.Background,
			})
		}
		if firstPage < 0 {
			firstPage, firstY = ctx.collector.current, ctx.cursorY+pad
		}
		acc.appendText(TextBox{
			Content:    joinLines(piece),
			X:          x + pad,
			Y:          ctx.cursorY + pad,
			Width:      inner,
			LineHeight: st.LeadingPt,
			Font:       st.Font,
			BoldFont:   st.BoldFont,
			Bold:       st.Bold,
			FontSize:   st.SizePt,
			Color:      st.Color,
			Lines:      piece,
			Height:     h,
			Align:      st.Align,
		})
		ctx.cursorY += h + 2*pad
		i = j
		if i < len(lines) {
			ctx.pageBreak()
		}
	}
	ctx.cursorY += st.SpaceAfter
	return firstPage, firstY, nil
}

// styleFor 在样式表支持时按文字选择展示字体。
func (ctx *flowContext) styleFor(role Role, text string) TextStyle {
	if ds, ok := ctx.styler.(DisplayStyler); ok {
		return ds.DisplayStyle(role, text)
	}
	return ctx.styler.Style(role, nil)
}

// DisplayStyler 是可选接口：封面、目录标题等展示文字可以按内容换用展示字体。
type DisplayStyler interface {
	DisplayStyle(role Role, text string) TextStyle
}

type pageAccumulator struct {
	texts  []TextBox
	tables []TableBox
	lines  []Line
	rects  []Rect
}

func (p *pageAccumulator) appendText(tb TextBox) {
	p.texts = append(p.texts, tb)
}

func (p *pageAccumulator) appendTable(t TableBox) {
	p.tables = append(p.tables, t)
}

func (p *pageAccumulator) empty() bool {
	return len(p.texts) == 0 && len(p.tables) == 0 && len(p.lines) == 0 && len(p.rects) == 0
}

type pageCollector struct {
	width   float64
	height  float64
	margin  Margin
	accs    []*pageAccumulator
	current int
}

func newPageCollector(width, height float64, margin Margin) *pageCollector {
	pc := &pageCollector{
		width:  width,
		height: height,
		margin: margin,
	}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

func (pc *pageCollector) contentTop() float64 {
	return pc.margin.Top
}

func (pc *pageCollector) contentBottom() float64 {
	return pc.height - pc.margin.Bottom
}

// pages 输出页面，末尾的空白页会被丢弃（至少保留一页）。
func (pc *pageCollector) pages() []Page {
	accs := pc.accs
	for len(accs) > 1 && accs[len(accs)-1].empty() {
		accs = accs[:len(accs)-1]
	}
	out := make([]Page, len(accs))
	for i, acc := range accs {
		out[i] = Page{
			Number: i + 1,
			Width:  pc.width,
			Height: pc.height,
			Margin: pc.margin,
			Texts:  acc.texts,
			Tables: acc.tables,
			Lines:  acc.lines,
			Rects:  acc.rects,
		}
	}
	return out
}

type flowContext struct {
	x          float64
	width      float64
	cursorY    float64
	typesetter Typesetter
	styler     Styler
	collector  *pageCollector
}

func (ctx *flowContext) atTop() bool {
	return ctx.cursorY <= ctx.collector.contentTop()+1e-6
}

// space 增加纵向间距；页面顶部不留空。
func (ctx *flowContext) space(h float64) {
	if h <= 0 || ctx.atTop() {
		return
	}
	if ctx.cursorY+h > ctx.collector.contentBottom() {
		ctx.pageBreak()
		return
	}
	ctx.cursorY += h
}

func (ctx *flowContext) ensureSpace(height float64) {
	if ctx.atTop() {
		return
	}
	if ctx.cursorY+height <= ctx.collector.contentBottom() {
		return
	}
	ctx.pageBreak()
}

func (ctx *flowContext) pageBreak() {
	ctx.collector.newPage()
	ctx.cursorY = ctx.collector.contentTop()
}

func (ctx *flowContext) acc() *pageAccumulator {
	return ctx.collector.curr()
}

// decorate 为每一页补上背景、水印、页眉与页脚。
func decorate(pages []Page, opts BuildOptions) error {
	wst := opts.Styler.Style(RoleWatermark, nil)
	tileWidth := 0.0
	if opts.Watermark.Text != "" && opts.Watermark.BorderSizePt > 0 {
		mst := wst
		mst.SizePt = opts.Watermark.BorderSizePt
		mst.LeadingPt = mst.SizePt
		w, err := measure(opts.Typesetter, opts.Watermark.Text, mst)
		if err != nil {
			return fmt.Errorf("测量水印宽度失败: %w", err)
		}
		tileWidth = w
	}
	hst := opts.Styler.Style(RolePageHeader, nil)
	fst := opts.Styler.Style(RolePageFooter, nil)

	for i := range pages {
		p := &pages[i]
		p.Background = opts.Background
		p.Tiles, p.Stamp = watermarkTiles(opts.Watermark, wst, tileWidth, *p)

		fields := PageFields(opts.Meta, i+1, len(pages))
		header, err := headerFooter(opts.Typesetter, p, hst, fields, opts.HeaderLeft, opts.HeaderRight, true)
		if err != nil {
			return err
		}
		footer, err := headerFooter(opts.Typesetter, p, fst, fields, opts.Footer, "", false)
		if err != nil {
			return err
		}
		p.Header, p.Footer = header, footer
	}
	return nil
}

// PageFields 返回页眉页脚模板可用的字段。
func PageFields(meta DocumentMeta, page, pages int) map[string]any {
	return map[string]any{
		"title":   meta.Title,
		"author":  meta.Author,
		"subject": meta.Subject,
		"page":    page,
		"pages":   pages,
	}
}

// headerFooter 页眉位于上边距内、紧贴内容区上方；页脚位于下边距内、紧贴内容区下方。
// 页眉两侧各一个模板（左对齐、右对齐），页脚只有一个居中模板。
func headerFooter(ts Typesetter, p *Page, st TextStyle, fields map[string]any, primary, secondary string, header bool) (HeaderFooter, error) {
	hf := HeaderFooter{Height: st.LeadingPt + headerGap}
	if primary == "" && secondary == "" {
		return hf, nil
	}
	width := p.Width - p.Margin.Left - p.Margin.Right
	y := p.Height - p.Margin.Bottom + headerGap
	lineY := p.Height - p.Margin.Bottom + headerGap/2
	if header {
		y = p.Margin.Top - headerGap - st.LeadingPt
		lineY = p.Margin.Top - headerGap/2
	}
	add := func(tmpl, align string) error {
		if tmpl == "" {
			return nil
		}
		text := binding.Interpolate(tmpl, fields)
		lines, err := layoutLines(ts, text, nil, width, st)
		if err != nil {
			return err
		}
		hf.Texts = append(hf.Texts, TextBox{
			Content:    text,
			X:          p.Margin.Left,
			Y:          y,
			Width:      width,
			LineHeight: st.LeadingPt,
			Font:       st.Font,
			BoldFont:   st.BoldFont,
			Bold:       st.Bold,
			FontSize:   st.SizePt,
			Color:      st.Color,
			Lines:      lines[:1],
			Height:     lines[0].Height,
			Align:      align,
		})
		return nil
	}
	if header {
		if err := add(primary, "left"); err != nil {
			return hf, err
		}
		if err := add(secondary, "right"); err != nil {
			return hf, err
		}
	} else if err := add(primary, "center"); err != nil {
		return hf, err
	}
	hf.Lines = append(hf.Lines, Line{
		X1: p.Margin.Left, Y1: lineY,
		X2: p.Width - p.Margin.Right, Y2: lineY,
		Color: st.BorderColor, Width: 0.4,
	})
	return hf, nil
}

// layoutLines 调用排版后端，并回填行高与行距，保证首行 GapBefore 为 0。
func layoutLines(ts Typesetter, content string, bold []Span, width float64, st TextStyle) ([]TextLine, error) {
	lines, err := ts.LayoutLines(content, bold, width, st)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		lines = []TextLine{{Content: "", Height: st.SizePt}}
	}
	leading := st.LeadingPt - st.SizePt
	if leading < 0 {
		leading = 0
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = st.SizePt
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

func measure(ts Typesetter, text string, st TextStyle) (float64, error) {
	lines, err := ts.LayoutLines(text, nil, measureWidth, st)
	if err != nil {
		return 0, err
	}
	w := 0.0
	for _, l := range lines {
		if l.Width > w {
			w = l.Width
		}
	}
	if w <= 0 {
		// 后端未给出宽度时按半个字号估算每个字符
		w = float64(utf8.RuneCountInString(text)) * st.SizePt * 0.5
	}
	return w, nil
}

func linesHeight(lines []TextLine) float64 {
	h := 0.0
	for i, l := range lines {
		if i > 0 {
			h += l.GapBefore
		}
		h += l.Height
	}
	return h
}

func joinLines(lines []TextLine) string {
	if len(lines) == 1 {
		return lines[0].Content
	}
	out := lines[0].Content
	for _, l := range lines[1:] {
		out += "\n" + l.Content
	}
	return out
}

func toSpans(in []markup.Span) []Span {
	if len(in) == 0 {
		return nil
	}
	out := make([]Span, len(in))
	for i, s := range in {
		out[i] = Span{Start: s.Start, End: s.End}
	}
	return out
}

func fillOr(c *Color, def Color) Color {
	if c != nil {
		return *c
	}
	return def
}
