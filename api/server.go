// Package api exposes session operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ByLCY/notepdf/session"
)

// Welcome 是新建会话时返回的提示。
const Welcome = "Send your notes as text fragments, then request a render to receive one PDF."

// Renderer 是 HTTP 层需要的渲染能力，由 *session.Engine 实现。
type Renderer interface {
	Render(ctx context.Context, s session.Session) (*session.Artifact, error)
	FontWarning() string
}

// Server is the HTTP API server for notepdf.
type Server struct {
	router  chi.Router
	engine  Renderer
	store   *session.Store
	log     *zap.Logger
	maxBody int64
}

// NewServer creates and configures the HTTP server.
func NewServer(engine Renderer, store *session.Store, log *zap.Logger, maxBody int64) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = session.NewStore()
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	s := &Server{engine: engine, store: store, log: log, maxBody: maxBody}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/sessions", s.handleCreate)
	r.Post("/sessions/{sessionID}/fragments", s.handleAppend)
	r.Post("/sessions/{sessionID}/render", s.handleRender)
	r.Delete("/sessions/{sessionID}", s.handleReset)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type createResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.Create()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{
		ID:      id,
		Message: Welcome,
		Warning: s.engine.FontWarning(),
	})
}

type appendResponse struct {
	Fragments int `json:"fragments"`
}

// handleAppend 接受纯文本或 {"text": "..."} 形式的 JSON。
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		jsonError(w, "request body too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}
	text := string(data)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		text = body.Text
	}
	sess, err := s.store.Append(id, text)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, appendResponse{Fragments: sess.Len()})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.store.Get(id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	art, err := s.engine.Render(r.Context(), sess)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="notes.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.PDF)))
	w.Header().Set("X-Page-Count", strconv.Itoa(art.Pages))
	if art.Warning != "" {
		w.Header().Set("X-Font-Warning", art.Warning)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(art.PDF)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(chi.URLParam(r, "sessionID")); err != nil {
		s.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	var re *session.RenderError
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrEmptyInput):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &re):
		s.log.Error("render failed", zap.String("stage", re.Stage), zap.Error(re.Err))
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.log.Error("request failed", zap.Error(err))
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
