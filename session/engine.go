package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/notepdf/config"
	"github.com/ByLCY/notepdf/document"
	"github.com/ByLCY/notepdf/fonts"
	"github.com/ByLCY/notepdf/keywords"
	"github.com/ByLCY/notepdf/layout"
	"github.com/ByLCY/notepdf/markup"
	"github.com/ByLCY/notepdf/renderer"
	canvasrenderer "github.com/ByLCY/notepdf/renderer/canvas"
	"github.com/ByLCY/notepdf/style"
)

// Artifact 是一次成功渲染的结果。
type Artifact struct {
	PDF     []byte
	Pages   int
	Stats   document.Stats
	Warning string // 字体降级提示
	Blocks  []markup.Block
	Layout  *layout.Result
}

// BackendFactory 根据字体配置创建排版与渲染后端。
type BackendFactory func(fonts.Profile) renderer.Backend

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 设置日志。
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithResolver 替换字体解析器。
func WithResolver(r *fonts.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithBackend 替换渲染后端。
func WithBackend(f BackendFactory) Option {
	return func(e *Engine) {
		if f != nil {
			e.backend = f
		}
	}
}

// Engine 把会话渲染为 PDF。创建后只读，不同会话可以并发渲染。
type Engine struct {
	log       *zap.Logger
	resolver  *fonts.Resolver
	backend   BackendFactory
	assembler *document.Assembler
	base      layout.BuildOptions
	sheetOpts []style.Option
}

// NewEngine 校验配置并准备解析器、组装器与页面参数。
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		log: zap.NewNop(),
		backend: func(p fonts.Profile) renderer.Backend {
			return canvasrenderer.FromProfile(p)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = fonts.NewResolver(cfg.Fonts.Candidates, fonts.WithLogger(e.log))
	}

	table := cfg.KeywordTable()
	parser := markup.NewParser(keywords.NewTagger(table), cfg.ChunkWidth)
	e.assembler = document.NewAssembler(parser, cfg.DocumentOptions())

	base, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	for _, kw := range table {
		base.Meta.Keywords = append(base.Meta.Keywords, kw.Label)
	}
	base.Meta.Keywords = dedupe(base.Meta.Keywords)
	e.base = base

	lh, err := cfg.LineHeight()
	if err != nil {
		return nil, err
	}
	e.sheetOpts = append(e.sheetOpts, style.WithLineHeight(lh))
	tc, err := cfg.TextColor()
	if err != nil {
		return nil, err
	}
	if tc != nil {
		e.sheetOpts = append(e.sheetOpts, style.WithTextColor(*tc))
	}
	return e, nil
}

// Profile 返回（首次调用时解析的）字体配置。
func (e *Engine) Profile() fonts.Profile {
	return e.resolver.Resolve()
}

// FontWarning 返回字体降级提示，字体可用时为空。
func (e *Engine) FontWarning() string {
	return e.Profile().Warning
}

// Render 从全部片段重建文档并渲染。没有片段时返回 ErrEmptyInput。
func (e *Engine) Render(ctx context.Context, s Session) (*Artifact, error) {
	if s.Len() == 0 {
		return nil, ErrEmptyInput
	}
	start := time.Now()
	profile := e.Profile()

	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Stage: StageAssemble, Err: err}
	}
	doc := e.assembler.Build(s.Fragments())

	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Stage: StageLayout, Err: err}
	}
	backend := e.backend(profile)
	opts := e.base
	opts.Typesetter = backend
	opts.Styler = style.New(profile, doc.Stats.Characters, e.sheetOpts...)
	res, err := layout.Build(doc.Blocks, opts)
	if err != nil {
		return nil, &RenderError{Stage: StageLayout, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Stage: StageRender, Err: err}
	}
	pdf, err := backend.Render(res)
	if err != nil {
		return nil, &RenderError{Stage: StageRender, Err: err}
	}

	e.log.Info("document rendered",
		zap.Int("fragments", s.Len()),
		zap.Int("blocks", len(doc.Blocks)),
		zap.Int("pages", len(res.Pages)),
		zap.Int("bytes", len(pdf)),
		zap.String("font", profile.NormalFamily),
		zap.Duration("elapsed", time.Since(start)))

	return &Artifact{
		PDF:     pdf,
		Pages:   len(res.Pages),
		Stats:   doc.Stats,
		Warning: profile.Warning,
		Blocks:  doc.Blocks,
		Layout:  res,
	}, nil
}

// WriteFile 渲染并原子地写入 path；失败时保留原有文件。
func (e *Engine) WriteFile(ctx context.Context, s Session, path string) error {
	art, err := e.Render(ctx, s)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, art.PDF); err != nil {
		return &RenderError{Stage: StageWrite, Err: err}
	}
	return nil
}

// WriteFileAtomic 先写入同目录下的临时文件，再重命名到 path。
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".notepdf-*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("同步临时文件失败: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err = os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err = os.Rename(name, path); err != nil {
		return fmt.Errorf("重命名输出文件失败: %w", err)
	}
	return nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
