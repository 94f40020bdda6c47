package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ByLCY/notepdf/api"
	"github.com/ByLCY/notepdf/config"
	"github.com/ByLCY/notepdf/layout"
	"github.com/ByLCY/notepdf/session"
)

type options struct {
	configPath string
	output     string
	debug      string
	title      string
	author     string
	fragments  []string
	serve      bool
	addr       string
	verbose    bool
	inputs     []string
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("notepdf", pflag.ExitOnError)
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML 配置文件路径")
	flags.StringVarP(&opts.output, "out", "o", "output/notes.pdf", "PDF 输出路径（- 表示标准输出）")
	flags.StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	flags.StringVar(&opts.title, "title", "", "覆盖封面标题")
	flags.StringVar(&opts.author, "author", "", "覆盖作者")
	flags.StringArrayVarP(&opts.fragments, "text", "t", nil, "直接给出一个片段（可重复）")
	flags.BoolVar(&opts.serve, "serve", false, "启动 HTTP 接口而不是生成文件")
	flags.StringVar(&opts.addr, "addr", "", "HTTP 监听地址（覆盖配置）")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: notepdf [flags] [files...]")
		fmt.Fprintln(os.Stderr, "\nEach file (or stdin when no file and no --text is given) becomes one fragment.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	opts.inputs = flags.Args()

	log, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// 只有 GOMAXPROCS 环境变量非法时才会失败，此时沿用运行时默认值
	_, _ = maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, log); err != nil {
		log.Error("notepdf failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "生成 PDF 失败: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// run 串联配置、会话与渲染。
func run(ctx context.Context, opts options, log *zap.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.title != "" {
		cfg.Document.Title = opts.title
	}
	if opts.author != "" {
		cfg.Document.Author = opts.author
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	engine, err := session.NewEngine(cfg, session.WithLogger(log))
	if err != nil {
		return err
	}
	if w := engine.FontWarning(); w != "" {
		log.Warn(w)
	}

	if opts.serve {
		return serve(ctx, cfg, engine, log)
	}

	sess, err := collect(opts)
	if err != nil {
		return err
	}
	art, err := engine.Render(ctx, sess)
	if err != nil {
		return err
	}

	if opts.debug != "" {
		if err := layout.WriteDebugJSON(art.Layout, opts.debug); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
		sum := layout.Summarize(art.Layout)
		log.Debug("layout summary",
			zap.Int("pages", sum.Pages),
			zap.Int("texts", sum.Texts),
			zap.Int("tables", sum.Tables),
			zap.Int("tiles", sum.Tiles))
	}

	if opts.output == "-" {
		return writeStdout(os.Stdout, art.PDF)
	}
	if err := session.WriteFileAtomic(opts.output, art.PDF); err != nil {
		return &session.RenderError{Stage: session.StageWrite, Err: err}
	}
	fmt.Printf("已生成 PDF：%s（%d 页）\n", opts.output, art.Pages)
	return nil
}

// collect 把 --text、文件或标准输入依次作为片段加入会话。
func collect(opts options) (session.Session, error) {
	sess := session.New(opts.fragments...)
	for _, path := range opts.inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return sess, fmt.Errorf("无法读取输入文件 %s: %w", path, err)
		}
		sess = sess.Append(string(data))
	}
	if len(opts.inputs) == 0 && len(opts.fragments) == 0 && !isTerminal(os.Stdin) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return sess, fmt.Errorf("读取标准输入失败: %w", err)
		}
		sess = sess.Append(string(data))
	}
	return sess, nil
}

func writeStdout(f *os.File, pdf []byte) error {
	if isTerminal(f) {
		return errors.New("拒绝把 PDF 写到终端，请使用 -o 指定文件或重定向输出")
	}
	_, err := f.Write(pdf)
	return err
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func serve(ctx context.Context, cfg *config.Config, engine *session.Engine, log *zap.Logger) error {
	ttl, err := cfg.SessionTTL()
	if err != nil {
		return err
	}
	store := session.NewStore(session.WithIdleTTL(ttl))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(engine, store, log, cfg.Server.MaxBodySize),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
