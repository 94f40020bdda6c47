package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/ByLCY/notepdf/config"
	"github.com/ByLCY/notepdf/fonts"
	"github.com/ByLCY/notepdf/layout"
	"github.com/ByLCY/notepdf/renderer"
	canvasrenderer "github.com/ByLCY/notepdf/renderer/canvas"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithResolver(fonts.NewResolver(nil, fonts.WithCandidates()))}, opts...)
	e, err := NewEngine(config.Default(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestSessionValueSemantics(t *testing.T) {
	s0 := New()
	s1 := s0.Append("one")
	s2 := s1.Append("two")
	s1b := s1.Append("other")
	if s0.Len() != 0 || s1.Len() != 1 || s2.Len() != 2 {
		t.Fatalf("lengths = %d %d %d", s0.Len(), s1.Len(), s2.Len())
	}
	if got := s2.Fragments(); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("s2 = %v", got)
	}
	if got := s1b.Fragments(); !reflect.DeepEqual(got, []string{"one", "other"}) {
		t.Fatalf("s1b = %v", got)
	}
	frags := s2.Fragments()
	frags[0] = "mutated"
	if s2.Fragments()[0] != "one" {
		t.Fatal("Fragments must return a copy")
	}
	if s2.Reset().Len() != 0 || s2.Len() != 2 {
		t.Fatal("Reset must not modify the original")
	}
}

func TestRenderEmptySession(t *testing.T) {
	e := newTestEngine(t)
	art, err := e.Render(context.Background(), New())
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if art != nil {
		t.Fatal("no artifact expected for empty input")
	}
}

func TestRenderScenario(t *testing.T) {
	e := newTestEngine(t)
	s := New().
		Append("# Topic").
		Append("- first\n- second").
		Append("").
		Append("परिभाषा: a definition\nF = ma is *important*")
	art, err := e.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if art.Warning != fonts.FallbackWarning {
		t.Fatalf("expected fallback warning, got %q", art.Warning)
	}
	if art.Pages < 2 {
		t.Fatalf("expected cover page plus content, got %d pages", art.Pages)
	}
	if art.Stats.Fragments != 4 || art.Stats.Formulas != 1 {
		t.Fatalf("stats = %+v", art.Stats)
	}
	if !bytes.HasPrefix(art.PDF, []byte("%PDF-")) {
		t.Fatal("artifact is not a PDF")
	}
	r, err := lpdf.NewReader(bytes.NewReader(art.PDF), int64(len(art.PDF)))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if r.NumPage() != art.Pages {
		t.Fatalf("pdf has %d pages, artifact says %d", r.NumPage(), art.Pages)
	}
	for _, p := range art.Layout.Pages {
		if p.Stamp == nil || len(p.Tiles) == 0 {
			t.Fatalf("page %d has no watermark", p.Number)
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	s := New("# A\n- x\n- y", "नोट: यह एक नोट है", "plain")
	a1, err := e.Render(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := e.Render(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a1.Blocks, a2.Blocks) {
		t.Fatal("block structure differs between renders")
	}
	if a1.Pages != a2.Pages {
		t.Fatalf("page count differs: %d vs %d", a1.Pages, a2.Pages)
	}
}

type failingBackend struct {
	*canvasrenderer.Renderer
}

func (failingBackend) Render(*layout.Result) ([]byte, error) {
	return nil, errors.New("disk full")
}

func TestRenderErrorKeepsPreviousFile(t *testing.T) {
	e := newTestEngine(t, WithBackend(func(p fonts.Profile) renderer.Backend {
		return failingBackend{canvasrenderer.FromProfile(p)}
	}))
	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := e.WriteFile(context.Background(), New("text"), path)
	var re *RenderError
	if !errors.As(err, &re) || re.Stage != StageRender {
		t.Fatalf("expected render-stage RenderError, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "previous" {
		t.Fatalf("previous artifact was replaced: %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteFile(t *testing.T) {
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "nested", "notes.pdf")
	if err := e.WriteFile(context.Background(), New("hello"), path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("written file is not a PDF")
	}
	if err := e.WriteFile(context.Background(), New(), path); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Render(ctx, New("text"))
	var re *RenderError
	if !errors.As(err, &re) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled RenderError, got %v", err)
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Page.Footer = "${nope}"
	if _, err := NewEngine(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStore(t *testing.T) {
	st := NewStore()
	id, err := st.Create()
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Append(id, "x"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	s, err := st.Get(id)
	if err != nil || s.Len() != 20 {
		t.Fatalf("Get = %d fragments, %v", s.Len(), err)
	}
	if err := st.Reset(id); err != nil {
		t.Fatal(err)
	}
	if s, _ := st.Get(id); s.Len() != 0 {
		t.Fatal("Reset did not clear fragments")
	}
	if _, err := st.Append("missing", "x"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
	if err := st.Reset("missing"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
	other, _ := st.Create()
	if other == id || st.Len() != 2 {
		t.Fatalf("ids must be unique: %s %s", id, other)
	}
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewStore(WithIdleTTL(time.Minute), WithClock(func() time.Time { return now }))
	stale, _ := st.Create()
	fresh, _ := st.Create()

	now = now.Add(40 * time.Second)
	if _, err := st.Append(fresh, "keep"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(40 * time.Second)
	if _, err := st.Get(stale); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("idle session should be gone, got %v", err)
	}
	if s, err := st.Get(fresh); err != nil || s.Len() != 1 {
		t.Fatalf("recently used session lost: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := st.Create(); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 1 {
		t.Fatalf("expired sessions not swept, len = %d", st.Len())
	}

	forever := NewStore(WithIdleTTL(0), WithClock(func() time.Time { return now }))
	id, _ := forever.Create()
	now = now.Add(24 * time.Hour)
	if _, err := forever.Get(id); err != nil {
		t.Fatalf("ttl 0 must never evict: %v", err)
	}
}
