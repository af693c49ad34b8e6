// Package httpapi exposes the daemon's HTTP surface: the message endpoint
// the panel and page producers talk to, the live event stream, and the
// settings endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickwhats/quickwhats/detect"
	"github.com/quickwhats/quickwhats/extract"
	"github.com/quickwhats/quickwhats/imagefetch"
	"github.com/quickwhats/quickwhats/notify"
	"github.com/quickwhats/quickwhats/settings"
)

// DelegateFunc returns the delegated-fetch handle for the tab showing
// pageURL, or nil when no browser tab can serve the fetch. Wiring it as a
// function keeps the nil check at the caller, where a typed nil would
// otherwise sneak into the interface.
type DelegateFunc func(pageURL string) imagefetch.Delegate

// Config wires the server's collaborators.
type Config struct {
	Coordinator *detect.Coordinator
	Pipeline    *extract.Pipeline
	Settings    *settings.Store
	Events      *notify.SSE

	// Scan extracts phone numbers from a raw selection, for producers that
	// send text instead of pre-scanned numbers. Selections arrive as the
	// page serialized them, which may include markup.
	Scan func(string) []string

	// Delegate may be nil when no browser is attached.
	Delegate DelegateFunc

	// AuthHash, when set, is a bcrypt hash enabling basic auth on /v1.
	AuthHash string

	Logger *slog.Logger
}

// Server handles the daemon's HTTP API.
type Server struct {
	cfg Config
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if s.cfg.AuthHash != "" {
			r.Use(s.basicAuth)
		}
		r.Post("/v1/messages", s.handleMessage)
		r.Get("/v1/events", s.handleEvents)
		r.Get("/v1/models", s.handleListModels)
		r.Get("/v1/settings", s.handleGetSettings)
		r.Put("/v1/settings", s.handlePutSettings)
	})

	return r
}

// basicAuth checks the basic-auth password against the configured bcrypt
// hash. The username is ignored; this is a single-user daemon.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, password, ok := r.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword([]byte(s.cfg.AuthHash), []byte(password)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="quickwhats"`)
			jsonErr(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
