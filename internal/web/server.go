// Package web serves the HTMX study UI and a small JSON API over the session
// manager and reviewer.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/revisa/internal/metrics"
	"github.com/conorfennell/revisa/internal/review"
	"github.com/conorfennell/revisa/internal/sm2"
	"github.com/conorfennell/revisa/internal/storage"
	"github.com/conorfennell/revisa/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Deps holds the server's collaborators. Syncer may be nil, which disables the
// source management routes.
type Deps struct {
	DB          *storage.DB
	Reviewer    *review.Reviewer
	Syncer      *sync.Syncer
	NewCardEase float64
	Logger      *slog.Logger
	Now         func() time.Time
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db          *storage.DB
	reviewer    *review.Reviewer
	syncer      *sync.Syncer
	newCardEase float64
	log         *slog.Logger
	now         func() time.Time
	router      *http.ServeMux
	templates   *template.Template
	validate    *validator.Validate
}

// NewServer parses the embedded templates and registers the routes.
func NewServer(d Deps) (*Server, error) {
	tpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		db:          d.DB,
		reviewer:    d.Reviewer,
		syncer:      d.Syncer,
		newCardEase: d.NewCardEase,
		log:         d.Logger,
		now:         d.Now,
		router:      http.NewServeMux(),
		templates:   tpl,
		validate:    validator.New(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCardEase < sm2.MinEaseFactor {
		s.newCardEase = sm2.DefaultEaseFactor
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem for static assets: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("GET /static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("GET /", fileServer)
	s.router.Handle("GET /metrics", metrics.Handler())

	s.router.HandleFunc("GET /deck", s.handleGetDeck)

	s.router.HandleFunc("GET /study", s.handleGetStudy)
	s.router.HandleFunc("POST /study/start", s.handleStartStudy)
	s.router.HandleFunc("POST /study/flip", s.handleFlip)
	s.router.HandleFunc("POST /study/answer", s.handleAnswer)
	s.router.HandleFunc("POST /study/exit", s.handleExit)
	s.router.HandleFunc("POST /study/undo", s.handleUndo)
	s.router.HandleFunc("DELETE /study/current", s.handleDeleteCurrent)

	s.router.HandleFunc("POST /cards", s.handleCreateCard)
	s.router.HandleFunc("POST /cards/{id}", s.handleEditCard)

	s.router.HandleFunc("GET /api/session", s.handleAPISession)
	s.router.HandleFunc("GET /api/due", s.handleAPIDue)

	if s.syncer != nil {
		s.router.HandleFunc("GET /sources", s.handleGetSources)
		s.router.HandleFunc("POST /sources", s.handlePostSource)
		s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource)
		s.router.HandleFunc("POST /sync", s.handlePostSync)
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, 0, name, data)
}

// renderStatus writes status before the template; 0 leaves it to the first write.
func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != 0 {
		w.WriteHeader(status)
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("Failed to render template", "template", name, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

var templateFuncs = template.FuncMap{
	"elapsed": func(d time.Duration) string {
		return d.Truncate(time.Second).String()
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
}
