package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/notepdf/layout"
)

// wrapper 实现带加粗区间的贪心换行：优先在空白处分割，单词超过限制时在词内按字素簇拆分。
// 所有宽度都以 pt 计。
type wrapper struct {
	regular *canvas.FontFace
	bold    *canvas.FontFace
	limit   float64

	lines []layout.TextLine
	cur   []piece
	width float64
}

// piece 是一段字重一致的文字。
type piece struct {
	text string
	bold bool
}

// token 是连续的空白或非空白文字，可能跨越加粗边界。
type token struct {
	pieces  []piece
	space   bool
	newline bool
}

func (w *wrapper) face(bold bool) *canvas.FontFace {
	if bold {
		return w.bold
	}
	return w.regular
}

func (w *wrapper) measure(s string, bold bool) float64 {
	if s == "" {
		return 0
	}
	return pt(w.face(bold).TextWidth(s))
}

func (w *wrapper) tokenWidth(t token) float64 {
	total := 0.0
	for _, p := range t.pieces {
		total += w.measure(p.text, p.bold)
	}
	return total
}

func (w *wrapper) wrap(content string, bold []layout.Span) []layout.TextLine {
	if w.limit <= 0 {
		w.limit = math.MaxFloat64
	}
	for _, t := range tokenize(content, bold) {
		switch {
		case t.newline:
			w.emit(true)
			continue
		case t.space && len(w.cur) == 0:
			continue
		}
		tw := w.tokenWidth(t)
		if w.width > 0 && w.width+tw > w.limit {
			w.emit(false)
			if t.space {
				continue
			}
		}
		if tw <= w.limit {
			for _, p := range t.pieces {
				w.append(p.text, p.bold, w.measure(p.text, p.bold))
			}
			continue
		}
		// 超长单词：按字素簇拆分，元音符号与半音符不会落到行首
		for _, p := range t.pieces {
			clusters := graphemes.FromString(p.text)
			for clusters.Next() {
				s := clusters.Value()
				rw := w.measure(s, p.bold)
				if w.width > 0 && w.width+rw > w.limit {
					w.emit(false)
				}
				w.append(s, p.bold, rw)
			}
		}
	}
	w.emit(true)
	return w.lines
}

func (w *wrapper) append(s string, bold bool, width float64) {
	if n := len(w.cur); n > 0 && w.cur[n-1].bold == bold {
		w.cur[n-1].text += s
	} else {
		w.cur = append(w.cur, piece{text: s, bold: bold})
	}
	w.width += width
}

// emit 结束当前行并去掉行尾空白；force 为 true 时空行也会输出。
func (w *wrapper) emit(force bool) {
	for len(w.cur) > 0 {
		last := &w.cur[len(w.cur)-1]
		last.text = strings.TrimRightFunc(last.text, unicode.IsSpace)
		if last.text != "" {
			break
		}
		w.cur = w.cur[:len(w.cur)-1]
	}
	if len(w.cur) == 0 {
		if force {
			w.lines = append(w.lines, layout.TextLine{})
		}
		w.width = 0
		return
	}
	line := layout.TextLine{}
	var content strings.Builder
	hasBold := false
	for _, p := range w.cur {
		sw := w.measure(p.text, p.bold)
		line.Segments = append(line.Segments, layout.Segment{Text: p.text, Bold: p.bold, Width: sw})
		line.Width += sw
		content.WriteString(p.text)
		hasBold = hasBold || p.bold
	}
	line.Content = content.String()
	if !hasBold && len(line.Segments) == 1 {
		line.Segments = nil
	}
	w.lines = append(w.lines, line)
	w.cur = nil
	w.width = 0
}

func tokenize(s string, bold []layout.Span) []token {
	var tokens []token
	var cur token
	var builder strings.Builder
	curBold := false
	started := false

	flushPiece := func() {
		if builder.Len() == 0 {
			return
		}
		cur.pieces = append(cur.pieces, piece{text: builder.String(), bold: curBold})
		builder.Reset()
	}
	flushToken := func() {
		flushPiece()
		if len(cur.pieces) > 0 {
			tokens = append(tokens, cur)
		}
		cur = token{}
		started = false
	}

	for i, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flushToken()
			tokens = append(tokens, token{newline: true})
			continue
		}
		isSpace := unicode.IsSpace(r)
		isBold := inSpans(i, bold)
		if started && cur.space != isSpace {
			flushToken()
		}
		if !started {
			cur.space = isSpace
			curBold = isBold
			started = true
		}
		if isBold != curBold {
			flushPiece()
			curBold = isBold
		}
		builder.WriteRune(r)
	}
	flushToken()
	return tokens
}

func inSpans(i int, spans []layout.Span) bool {
	for _, sp := range spans {
		if i >= sp.Start && i < sp.End {
			return true
		}
	}
	return false
}
