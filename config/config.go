// Package config loads notepdf settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/tdewolff/canvas"
	"golang.org/x/image/colornames"

	"github.com/ByLCY/notepdf/binding"
	"github.com/ByLCY/notepdf/chunker"
	"github.com/ByLCY/notepdf/document"
	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/layout"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidConfig  = errors.New("invalid config")
)

// MaxFileSize 限制配置文件大小。
const MaxFileSize = 1 << 20

// Config 是全部可配置项。
type Config struct {
	Document   DocumentConfig  `yaml:"document"`
	Keywords   keywords.Table  `yaml:"keywords"` // 为空时使用内置表
	Watermark  WatermarkConfig `yaml:"watermark"`
	Page       PageConfig      `yaml:"page"`
	Fonts      FontsConfig     `yaml:"fonts"`
	ChunkWidth int             `yaml:"chunkWidth"` // 分块宽度（显示单元）
	Server     ServerConfig    `yaml:"server"`
}

// DocumentConfig 控制封面与可选部分。
type DocumentConfig struct {
	Title         string `yaml:"title"`
	Subtitle      string `yaml:"subtitle"`
	Author        string `yaml:"author"`
	Contents      bool   `yaml:"contents"`
	ContentsTitle string `yaml:"contentsTitle"`
	Summary       bool   `yaml:"summary"`
}

// WatermarkConfig 描述水印；透明度取值 (0, 1]。
type WatermarkConfig struct {
	Text          string  `yaml:"text"`
	Color         string  `yaml:"color"`
	BorderSize    string  `yaml:"borderSize"`
	BorderOpacity float64 `yaml:"borderOpacity"`
	CenterSize    string  `yaml:"centerSize"`
	CenterOpacity float64 `yaml:"centerOpacity"`
	Angle         float64 `yaml:"angle"`
	Spacing       string  `yaml:"spacing"`
}

// PageConfig 描述页面尺寸、边距与页眉页脚模板。
type PageConfig struct {
	Width      string        `yaml:"width"`
	Height     string        `yaml:"height"`
	Margins    MarginsConfig `yaml:"margins"`
	Background string        `yaml:"background"` // 为空表示不填充
	TextColor  string        `yaml:"textColor"`
	LineHeight string        `yaml:"lineHeight"`
	Header     HeaderConfig  `yaml:"header"`
	Footer     string        `yaml:"footer"`
}

// MarginsConfig 的每一项都是长度字符串，例如 "72"、"1in"、"20mm"。
type MarginsConfig struct {
	Top    string `yaml:"top"`
	Right  string `yaml:"right"`
	Bottom string `yaml:"bottom"`
	Left   string `yaml:"left"`
}

// HeaderConfig 页眉左右两侧的模板。
type HeaderConfig struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// FontsConfig 列出优先尝试的字体文件（*-Regular.ttf，对应的 -Bold 文件会被自动尝试）。
type FontsConfig struct {
	Candidates []string `yaml:"candidates"`
}

// ServerConfig 用于 --serve 模式。
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxBodySize int64  `yaml:"maxBodySize"`
	// SessionTTL 是会话闲置多久后被淘汰，"0" 表示永不淘汰。
	SessionTTL string `yaml:"sessionTTL"`
}

// Default 返回默认配置：Letter 纸、1 英寸边距、浅蓝背景。
func Default() *Config {
	wm := layout.DefaultWatermark()
	return &Config{
		Document: DocumentConfig{
			Title:         "Notes",
			Contents:      true,
			ContentsTitle: "Contents",
			Summary:       true,
		},
		Watermark: WatermarkConfig{
			Text:          wm.Text,
			Color:         "#ff0000",
			BorderSize:    "9pt",
			BorderOpacity: wm.BorderOpacity,
			CenterSize:    "40pt",
			CenterOpacity: wm.CenterOpacity,
			Angle:         wm.CenterAngleDeg,
			Spacing:       "24pt",
		},
		Page: PageConfig{
			Width:      "612pt",
			Height:     "792pt",
			Margins:    MarginsConfig{Top: "72pt", Right: "72pt", Bottom: "72pt", Left: "72pt"},
			Background: "lightblue",
			TextColor:  "darkblue",
			LineHeight: "1.4x",
			Header:     HeaderConfig{Left: "${title}", Right: "Page ${page} / ${pages}"},
			Footer:     "Generated by notepdf",
		},
		ChunkWidth: chunker.DefaultWidth,
		Server:     ServerConfig{Addr: ":8080", MaxBodySize: 1 << 20, SessionTTL: "30m"},
	}
}

// Load 在默认配置之上读取 YAML 文件（未知字段报错），再应用环境变量覆盖并校验。
// path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode 把 YAML 内容合并进当前配置。
func (c *Config) Decode(data []byte) error {
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: 配置文件超过 %d 字节", ErrConfigParse, MaxFileSize)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.UnmarshalWithOptions(data, c, yaml.Strict()); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return nil
}

// ApplyEnv 应用 NOTEPDF_* 环境变量；getenv 便于测试注入。
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Document.Title = envOr(getenv, "NOTEPDF_TITLE", c.Document.Title)
	c.Document.Author = envOr(getenv, "NOTEPDF_AUTHOR", c.Document.Author)
	c.Watermark.Text = envOr(getenv, "NOTEPDF_WATERMARK", c.Watermark.Text)
	c.Page.Background = envOr(getenv, "NOTEPDF_BACKGROUND", c.Page.Background)
	c.Server.Addr = envOr(getenv, "NOTEPDF_ADDR", c.Server.Addr)
	c.Server.SessionTTL = envOr(getenv, "NOTEPDF_SESSION_TTL", c.Server.SessionTTL)
	c.ChunkWidth = envInt(getenv, "NOTEPDF_CHUNK_WIDTH", c.ChunkWidth)
	if v := getenv("NOTEPDF_MARGIN"); v != "" {
		c.Page.Margins = MarginsConfig{Top: v, Right: v, Bottom: v, Left: v}
	}
	if v := getenv("NOTEPDF_FONT_CANDIDATES"); v != "" {
		c.Fonts.Candidates = filepath.SplitList(v)
	}
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(getenv func(string) string, key string, fallback int) int {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Validate 检查所有派生值能否解析，并拒绝页眉页脚中的未知字段。
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Layout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LineHeight(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TextColor(); err != nil {
		errs = append(errs, err)
	}
	fields := layout.PageFields(layout.DocumentMeta{}, 1, 1)
	for name, tmpl := range map[string]string{
		"page.header.left":  c.Page.Header.Left,
		"page.header.right": c.Page.Header.Right,
		"page.footer":       c.Page.Footer,
	} {
		if err := binding.Check(tmpl, fields); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	for i, e := range c.Keywords {
		if strings.TrimSpace(e.Keyword) == "" || e.Label == "" {
			errs = append(errs, fmt.Errorf("keywords[%d]: keyword 与 label 不能为空", i))
		}
	}
	if _, err := c.SessionTTL(); err != nil {
		errs = append(errs, err)
	}
	if c.ChunkWidth < 0 {
		errs = append(errs, fmt.Errorf("chunkWidth 不能为负数: %d", c.ChunkWidth))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SessionTTL 解析 server.sessionTTL，空值表示永不淘汰。
func (c *Config) SessionTTL() (time.Duration, error) {
	v := strings.TrimSpace(c.Server.SessionTTL)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("server.sessionTTL 无效: %q", c.Server.SessionTTL)
	}
	return d, nil
}

// KeywordTable 返回配置的关键词表，未配置时返回内置表。
func (c *Config) KeywordTable() keywords.Table {
	if len(c.Keywords) == 0 {
		return keywords.DefaultTable()
	}
	return append(keywords.Table(nil), c.Keywords...)
}

// DocumentOptions 转换为组装器参数。
func (c *Config) DocumentOptions() document.Options {
	d := c.Document
	return document.Options{
		Title:         d.Title,
		Subtitle:      d.Subtitle,
		Author:        d.Author,
		Contents:      d.Contents,
		ContentsTitle: d.ContentsTitle,
		Summary:       d.Summary,
	}
}

// Layout 把页面相关配置转换为 BuildOptions（不含排版后端与样式表）。
func (c *Config) Layout() (layout.BuildOptions, error) {
	var opts layout.BuildOptions
	var err error
	if opts.PageWidth, err = lengthPt("page.width", c.Page.Width); err != nil {
		return opts, err
	}
	if opts.PageHeight, err = lengthPt("page.height", c.Page.Height); err != nil {
		return opts, err
	}
	m := c.Page.Margins
	for _, side := range []struct {
		name string
		val  string
		dst  *float64
	}{
		{"page.margins.top", m.Top, &opts.Margin.Top},
		{"page.margins.right", m.Right, &opts.Margin.Right},
		{"page.margins.bottom", m.Bottom, &opts.Margin.Bottom},
		{"page.margins.left", m.Left, &opts.Margin.Left},
	} {
		if *side.dst, err = lengthPt(side.name, side.val); err != nil {
			return opts, err
		}
	}
	if opts.PageWidth > 0 && opts.Margin.Left+opts.Margin.Right >= opts.PageWidth {
		return opts, fmt.Errorf("page.margins: 左右边距之和超过页面宽度")
	}
	if opts.PageHeight > 0 && opts.Margin.Top+opts.Margin.Bottom >= opts.PageHeight {
		return opts, fmt.Errorf("page.margins: 上下边距之和超过页面高度")
	}
	if c.Page.Background != "" {
		bg, err := ParseColor(c.Page.Background)
		if err != nil {
			return opts, fmt.Errorf("page.background: %w", err)
		}
		opts.Background = &bg
	}
	if opts.Watermark, err = c.WatermarkSpec(); err != nil {
		return opts, err
	}
	opts.HeaderLeft = c.Page.Header.Left
	opts.HeaderRight = c.Page.Header.Right
	opts.Footer = c.Page.Footer
	opts.Meta = layout.DocumentMeta{
		Title:   c.Document.Title,
		Author:  c.Document.Author,
		Subject: c.Document.Subtitle,
	}
	return opts, nil
}

// LineHeight 解析正文行高。
func (c *Config) LineHeight() (layout.LineHeightSpec, error) {
	if c.Page.LineHeight == "" {
		return layout.LineHeightSpec{Kind: layout.LineHeightFactor, Factor: 1.4}, nil
	}
	spec, err := layout.ParseLineHeight(c.Page.LineHeight)
	if err != nil {
		return spec, fmt.Errorf("page.lineHeight: %w", err)
	}
	return spec, nil
}

// TextColor 解析正文颜色，未配置时返回 nil。
func (c *Config) TextColor() (*layout.Color, error) {
	if c.Page.TextColor == "" {
		return nil, nil
	}
	col, err := ParseColor(c.Page.TextColor)
	if err != nil {
		return nil, fmt.Errorf("page.textColor: %w", err)
	}
	return &col, nil
}

// WatermarkSpec 解析水印配置；文字为空时关闭水印。
func (c *Config) WatermarkSpec() (layout.Watermark, error) {
	w := c.Watermark
	spec := layout.Watermark{
		Text:           w.Text,
		BorderOpacity:  w.BorderOpacity,
		CenterOpacity:  w.CenterOpacity,
		CenterAngleDeg: w.Angle,
	}
	if strings.TrimSpace(w.Text) == "" {
		return layout.Watermark{}, nil
	}
	col, err := ParseColor(w.Color)
	if err != nil {
		return spec, fmt.Errorf("watermark.color: %w", err)
	}
	spec.Color = col
	for _, f := range []struct {
		name string
		val  string
		dst  *float64
	}{
		{"watermark.borderSize", w.BorderSize, &spec.BorderSizePt},
		{"watermark.centerSize", w.CenterSize, &spec.CenterSizePt},
		{"watermark.spacing", w.Spacing, &spec.SpacingPt},
	} {
		if *f.dst, err = lengthPt(f.name, f.val); err != nil {
			return spec, err
		}
	}
	for name, v := range map[string]float64{
		"watermark.borderOpacity": w.BorderOpacity,
		"watermark.centerOpacity": w.CenterOpacity,
	} {
		if v <= 0 || v > 1 {
			return spec, fmt.Errorf("%s 必须在 (0, 1] 之间: %g", name, v)
		}
	}
	return spec, nil
}

func lengthPt(name, v string) (float64, error) {
	if strings.TrimSpace(v) == "" {
		return 0, nil
	}
	l, err := layout.ParseLength(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return l.ToPT(), nil
}

var hexPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ParseColor 接受 "#rgb"、"#rrggbb" 或任意 CSS 颜色名。
func ParseColor(s string) (layout.Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if named, ok := colornames.Map[v]; ok {
		return layout.Color{R: int(named.R), G: int(named.G), B: int(named.B)}, nil
	}
	if !hexPattern.MatchString(v) {
		return layout.Color{}, fmt.Errorf("无法解析颜色 %q", s)
	}
	if len(v) == 4 {
		v = string([]byte{'#', v[1], v[1], v[2], v[2], v[3], v[3]})
	}
	c := canvas.Hex(v)
	return layout.Color{R: int(c.R), G: int(c.G), B: int(c.B)}, nil
}
