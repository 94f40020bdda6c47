package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/font"
	"go.uber.org/zap"
)

// ErrFontUnavailable 表示某个候选字体无法使用（缺失、损坏或缺少目标文字的字形）。
// 它只会被记录日志，最终以 Profile.Warning 的形式提示用户。
var ErrFontUnavailable = errors.New("font unavailable")

// FallbackWarning 在只能使用保底字体时返回给用户。
const FallbackWarning = "No Devanagari-capable font was found; Hindi text may render as empty boxes. " +
	"Install Noto Sans Devanagari or list a font file under fonts.candidates."

// DevanagariProbe 是验证字形覆盖时检查的字符：辅音、独立元音、元音符号、virama、anusvara、数字。
var DevanagariProbe = []rune{'अ', 'क', 'ख', 'ग', 'ह', 'ा', 'ि', 'ी', 'ु', '्', 'ं', '०', '९'}

// Profile 是一次渲染会话使用的字体配置，解析一次后不再改变。
type Profile struct {
	NormalFamily   string `json:"normalFamily"`
	BoldFamily     string `json:"boldFamily"`
	DisplayFamily  string `json:"displayFamily,omitempty"`
	UnicodeCapable bool   `json:"isUnicodeCapable"`
	Source         string `json:"source"`
	Warning        string `json:"warning,omitempty"`

	Regular        []byte `json:"-"`
	Bold           []byte `json:"-"`
	DisplayRegular []byte `json:"-"`
	DisplayBold    []byte `json:"-"`

	glyphs  *glyphSet
	display *glyphSet
}

// Covers 报告正文字体是否包含 text 中所有非空白字符的字形。
func (p Profile) Covers(text string) bool {
	return p.glyphs.covers(text)
}

// DisplayFor 在展示字体（Latin Modern）覆盖 text 时返回其字体族，否则返回正文字体族。
func (p Profile) DisplayFor(text string, bold bool) string {
	if p.DisplayFamily != "" && p.display.covers(text) {
		if bold {
			return DisplayBold
		}
		return DisplayRegular
	}
	if bold {
		return p.BoldFamily
	}
	return p.NormalFamily
}

func (p *Profile) attachDisplay() {
	p.DisplayFamily = DisplayRegular
	p.DisplayRegular, _ = Load("lmroman/regular")
	p.DisplayBold, _ = Load("lmroman/bold")
	p.display = newGlyphSet(p.DisplayRegular)
	if p.display == nil {
		p.DisplayFamily = ""
	}
}

// Candidate 是一个候选字体来源，可以是文件路径或内存数据。
type Candidate struct {
	Name        string
	Regular     string
	Bold        string
	RegularData []byte
	BoldData    []byte
}

// SystemCandidates 是常见系统中可以渲染天城文的字体位置。
func SystemCandidates() []Candidate {
	return []Candidate{
		{Name: "NotoSansDevanagari", Regular: "/usr/share/fonts/truetype/noto/NotoSansDevanagari-Regular.ttf", Bold: "/usr/share/fonts/truetype/noto/NotoSansDevanagari-Bold.ttf"},
		{Name: "NotoSansDevanagari", Regular: "/usr/share/fonts/noto/NotoSansDevanagari-Regular.ttf", Bold: "/usr/share/fonts/noto/NotoSansDevanagari-Bold.ttf"},
		{Name: "NotoSansDevanagari", Regular: "/usr/share/fonts/google-noto/NotoSansDevanagari-Regular.ttf", Bold: "/usr/share/fonts/google-noto/NotoSansDevanagari-Bold.ttf"},
		{Name: "Lohit-Devanagari", Regular: "/usr/share/fonts/truetype/lohit-devanagari/Lohit-Devanagari.ttf"},
		{Name: "FreeSans", Regular: "/usr/share/fonts/truetype/freefont/FreeSans.ttf", Bold: "/usr/share/fonts/truetype/freefont/FreeSansBold.ttf"},
		{Name: "FreeSans", Regular: "/usr/share/fonts/gnu-free/FreeSans.ttf", Bold: "/usr/share/fonts/gnu-free/FreeSansBold.ttf"},
		{Name: "ArialUnicode", Regular: "/Library/Fonts/Arial Unicode.ttf"},
		{Name: "ArialUnicode", Regular: "/System/Library/Fonts/Supplemental/Arial Unicode.ttf"},
		{Name: "Nirmala", Regular: `C:\Windows\Fonts\Nirmala.ttf`, Bold: `C:\Windows\Fonts\NirmalaB.ttf`},
		{Name: "Mangal", Regular: `C:\Windows\Fonts\mangal.ttf`, Bold: `C:\Windows\Fonts\mangalb.ttf`},
	}
}

// PathCandidates 把配置中的字体路径转换为候选项；粗体按 "-Regular" → "-Bold" 的命名习惯猜测。
func PathCandidates(paths []string) []Candidate {
	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		c := Candidate{Name: strings.TrimSuffix(name, "-Regular"), Regular: p}
		if strings.Contains(p, "-Regular") {
			c.Bold = strings.Replace(p, "-Regular", "-Bold", 1)
		}
		out = append(out, c)
	}
	return out
}

// Resolver 按顺序探测候选字体，结果只计算一次并缓存。
type Resolver struct {
	candidates []Candidate
	probe      []rune
	log        *zap.Logger
	readFile   func(string) ([]byte, error)

	once    sync.Once
	profile Profile
}

// Option 配置 Resolver。
type Option func(*Resolver)

// WithLogger 设置日志。
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithCandidates 替换系统候选列表（配置路径仍然排在最前）。
func WithCandidates(c ...Candidate) Option {
	return func(r *Resolver) { r.candidates = append(r.candidates[:0:0], c...) }
}

// WithReadFile 替换文件读取函数，主要用于测试。
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

// WithProbe 替换用于验证覆盖的字符集。
func WithProbe(runes []rune) Option {
	return func(r *Resolver) {
		if len(runes) > 0 {
			r.probe = runes
		}
	}
}

// NewResolver 创建解析器，configured 为配置中的字体路径，优先于系统字体。
func NewResolver(configured []string, opts ...Option) *Resolver {
	r := &Resolver{
		candidates: SystemCandidates(),
		probe:      DevanagariProbe,
		log:        zap.NewNop(),
		readFile:   os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.candidates = append(PathCandidates(configured), r.candidates...)
	return r
}

// Resolve 返回缓存的字体配置；并发的首次调用只会探测一次。
func (r *Resolver) Resolve() Profile {
	r.once.Do(func() {
		r.profile = r.resolve()
	})
	return r.profile
}

func (r *Resolver) resolve() Profile {
	for _, c := range r.candidates {
		p, err := r.try(c)
		if err != nil {
			r.log.Debug("font candidate rejected",
				zap.String("name", c.Name),
				zap.String("path", c.Regular),
				zap.Error(err))
			continue
		}
		r.log.Info("font resolved", zap.String("name", c.Name), zap.String("source", p.Source))
		return p
	}
	p := Builtin()
	p.Warning = FallbackWarning
	r.log.Warn("no unicode-capable font found, using builtin", zap.String("family", p.NormalFamily))
	return p
}

func (r *Resolver) try(c Candidate) (Profile, error) {
	regular, source, err := r.load(c.RegularData, c.Regular)
	if err != nil {
		return Profile{}, err
	}
	glyphs := newGlyphSet(regular)
	if glyphs == nil {
		return Profile{}, fmt.Errorf("解析字体 %s 失败: %w", source, ErrFontUnavailable)
	}
	for _, ch := range r.probe {
		if !glyphs.has(ch) {
			return Profile{}, fmt.Errorf("字体 %s 缺少字形 %q: %w", source, ch, ErrFontUnavailable)
		}
	}

	bold := regular
	boldFamily := c.Name
	if data, _, err := r.load(c.BoldData, c.Bold); err == nil && newGlyphSet(data).hasAll(r.probe) {
		bold = data
		boldFamily = c.Name + "-Bold"
	}

	p := Profile{
		NormalFamily:   c.Name,
		BoldFamily:     boldFamily,
		UnicodeCapable: true,
		Source:         source,
		Regular:        regular,
		Bold:           bold,
		glyphs:         glyphs,
	}
	p.attachDisplay()
	return p, nil
}

func (r *Resolver) load(data []byte, path string) ([]byte, string, error) {
	if len(data) > 0 {
		return data, "memory", nil
	}
	if path == "" {
		return nil, "", fmt.Errorf("候选字体缺少 src: %w", ErrFontUnavailable)
	}
	b, err := r.readFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("读取字体 %s 失败: %v: %w", path, err, ErrFontUnavailable)
	}
	return b, path, nil
}

// glyphSet 包装解析后的 SFNT，只用于字形覆盖查询。
type glyphSet struct {
	mu   sync.Mutex
	sfnt *font.SFNT
}

func newGlyphSet(data []byte) *glyphSet {
	if len(data) == 0 {
		return nil
	}
	sfnt, err := font.ParseSFNT(data, 0)
	if err != nil {
		return nil
	}
	return &glyphSet{sfnt: sfnt}
}

func (g *glyphSet) has(r rune) bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sfnt.GlyphIndex(r) != 0
}

func (g *glyphSet) hasAll(runes []rune) bool {
	if g == nil {
		return false
	}
	for _, r := range runes {
		if !g.has(r) {
			return false
		}
	}
	return true
}

func (g *glyphSet) covers(text string) bool {
	if g == nil {
		return false
	}
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		if !g.has(r) {
			return false
		}
	}
	return true
}
