// CLAUDE:SUMMARY Optional HTTP status surface: health, session state, audit tail and artifact files.
package statusweb

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/pagelens/audit"
)

// Status is the live session summary served at /api/status.
type Status struct {
	Connected   bool      `json:"connected"`
	Remote      bool      `json:"remote"`
	URL         string    `json:"url,omitempty"`
	HasBaseline bool      `json:"has_baseline"`
	CapturedAt  time.Time `json:"captured_at,omitempty"`
}

// Server serves the read-only status surface. It never drives the
// browser; everything it exposes is derived state.
type Server struct {
	status       func() Status
	auditLog     *audit.SQLiteLogger
	artifactsDir string
	log          *slog.Logger
}

func New(status func() Status, auditLog *audit.SQLiteLogger, artifactsDir string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{status: status, auditLog: auditLog, artifactsDir: artifactsDir, log: log}
}

// Router builds the chi router for the status surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, s.status())
	})

	r.Get("/api/audit", func(w http.ResponseWriter, r *http.Request) {
		if s.auditLog == nil {
			writeJSON(w, 200, []*audit.Entry{})
			return
		}
		entries, err := s.auditLog.Recent(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if entries == nil {
			entries = []*audit.Entry{}
		}
		writeJSON(w, 200, entries)
	})

	// Screenshots, snapshot documents and diff visualizations.
	r.Handle("/artifacts/*", http.StripPrefix("/artifacts/",
		http.FileServer(http.Dir(s.artifactsDir))))

	return r
}

// Serve blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("statusweb: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
