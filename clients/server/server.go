// Package server exposes card editing sessions over HTTP.
package server

import (
	"errors"
	"net/http"
	"os/exec"
	"runtime"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/assets"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/compositor"
	"github.com/xob0t/cardforge/pkg/engine"
	"github.com/xob0t/cardforge/pkg/export"
	"github.com/xob0t/cardforge/pkg/gallery"
	"github.com/xob0t/cardforge/pkg/scene"
)

// Config wires the server to shared collaborators.
type Config struct {
	Fonts     compositor.Fonts
	Gallery   gallery.Gallery
	NewAssets func() assets.Store // per-session asset store; assets.NewLibrary when nil
	ExportDir string
}

// ── Session Manager ──

type sessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[string]*engine.Session)}
}

func (sm *sessionManager) add(s *engine.Session) string {
	id := uuid.NewString()
	sm.mu.Lock()
	sm.sessions[id] = s
	sm.mu.Unlock()
	return id
}

func (sm *sessionManager) get(id string) (*engine.Session, bool) {
	sm.mu.RLock()
	s, ok := sm.sessions[id]
	sm.mu.RUnlock()
	return s, ok
}

func (sm *sessionManager) ids() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (sm *sessionManager) remove(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.sessions[id]
	delete(sm.sessions, id)
	return ok
}

// ── Server ──

type srv struct {
	cfg      Config
	sessions *sessionManager
}

// NewRouter builds the HTTP API.
func NewRouter(cfg Config) (*chi.Mux, error) {
	if cfg.Fonts == nil {
		fonts, _, err := compositor.LoadFonts("")
		if err != nil {
			return nil, err
		}
		cfg.Fonts = fonts
	}
	if cfg.Gallery == nil {
		cfg.Gallery = gallery.NewMemory()
	}
	if cfg.NewAssets == nil {
		cfg.NewAssets = func() assets.Store { return assets.NewLibrary() }
	}
	s := &srv{cfg: cfg, sessions: newSessionManager()}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Origin"},
		ExposedHeaders: []string{"Content-Disposition", "X-Scene-Version"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScene)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/scene", s.handleResetScene)
				r.Put("/template", s.handleSetTemplate)
				r.Put("/message", s.handleSetMessage)
				r.Put("/selection", s.handleSetSelection)
				r.Post("/card", s.handleApplyCard)

				r.Post("/layers", s.handleAddLayer)
				r.Post("/images", s.handleUploadImage)
				r.Delete("/decorations", s.handleClearDecorations)
				r.Route("/layers/{layerID}", func(r chi.Router) {
					r.Patch("/", s.handleUpdateLayer)
					r.Delete("/", s.handleRemoveLayer)
					r.Put("/filter", s.handleApplyFilter)
				})

				r.Get("/layout", s.handleLayout)
				r.Get("/preview", s.handlePreview)
				r.Post("/export", s.handleExport)
				r.Post("/save", s.handleSave)
			})
		})

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", s.handleListGallery)
			r.Get("/{entryID}", s.handleGetGalleryEntry)
		})
	})

	return r, nil
}

// RunServe starts the API on addr and optionally opens a browser on it.
func RunServe(addr string, cfg Config, open bool) error {
	r, err := NewRouter(cfg)
	if err != nil {
		return err
	}
	logrus.WithField("addr", addr).Info("starting server")
	if open {
		go openBrowser("http://localhost" + addr + "/api/catalog")
	}
	return http.ListenAndServe(addr, r)
}

func (s *srv) newSession() (*engine.Session, error) {
	return engine.NewSession(engine.Config{
		Assets:      s.cfg.NewAssets(),
		Fonts:       s.cfg.Fonts,
		Gallery:     s.cfg.Gallery,
		Permissions: engine.AllowAll{},
		ExportDir:   s.cfg.ExportDir,
	})
}

// session resolves {id} or writes a 404.
func (s *srv) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	sess, ok := s.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "session not found"})
	}
	return sess, ok
}

// ── Errors ──

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scene.ErrLayerNotFound), errors.Is(err, engine.ErrNoScene),
		errors.Is(err, gallery.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrUnknownAttribute), errors.Is(err, scene.ErrInvalidValue),
		errors.Is(err, catalog.ErrUnknownTemplate), errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrExportInProgress), errors.Is(err, engine.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, compositor.ErrFontsNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"error":   err,
			"path":    r.URL.Path,
			"session": chi.URLParam(r, "id"),
		}).Error("request failed")
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": msg})
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Debug("could not open browser")
	}
}
