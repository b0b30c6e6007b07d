package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dailymanifest/internal/aggregate"
	"dailymanifest/internal/config"
	appLog "dailymanifest/internal/log"
	"dailymanifest/internal/model"
	"dailymanifest/internal/refresh"
)

const dateLayout = "2006-01-02"

// Manifest is the live batch the API serves.
type Manifest interface {
	Snapshot() refresh.Snapshot
	Now() time.Time
	Location() *time.Location
}

// Server exposes the processed manifest over HTTP.
type Server struct {
	cfg      *config.Config
	manifest Manifest
	router   *chi.Mux
}

// NewServer constructs a Server with all routes registered.
func NewServer(cfg *config.Config, m Manifest) *Server {
	s := &Server{
		cfg:      cfg,
		manifest: m,
		router:   chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if s.cfg != nil && s.cfg.BasicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled")
			r.Use(basicAuth(s.cfg.BasicAuth.Username, s.cfg.BasicAuth.Password))
		}
		r.Get("/days", s.handleDays)
		r.Get("/types", s.handleTypes)
		r.Get("/records/{id}", s.handleRecord)
	})
}

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, m Manifest) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, m).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuth guards a route group with HTTP Basic Auth.
func basicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="Daily Manifest", charset="UTF-8"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type healthResponse struct {
	Status    string     `json:"status"`
	Records   int        `json:"records"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.manifest.Snapshot()
	resp := healthResponse{Status: "ok", Records: len(snap.Records)}
	if !snap.FetchedAt.IsZero() {
		resp.FetchedAt = &snap.FetchedAt
	}
	if snap.Err != nil {
		resp.Status = "degraded"
		resp.LastError = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type daysResponse struct {
	aggregate.Result
	Timezone  string     `json:"timezone"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// handleDays returns the filtered, day-bucketed manifest.
//
// GET /api/days?type=&status=&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.manifest.Location()
	now := s.manifest.Now()

	window, err := parseWindow(q.Get("from"), q.Get("to"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window = window.OrDefault(now, s.windowDays())

	snap := s.manifest.Snapshot()
	filter := model.FilterState{Type: q.Get("type"), Status: q.Get("status")}
	res := aggregate.Build(snap.At(now), window.Days(), filter)

	resp := daysResponse{Result: res, Timezone: loc.String()}
	if !snap.FetchedAt.IsZero() {
		resp.FetchedAt = &snap.FetchedAt
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type typesResponse struct {
	Types    []string `json:"types"`
	Statuses []string `json:"statuses"`
}

// handleTypes lists the filter values available for the default window.
func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	now := s.manifest.Now()
	days := aggregate.DefaultWindow(now, s.windowDays()).Days()

	var inWindow []model.Record
	for _, b := range aggregate.BucketByDay(s.manifest.Snapshot().Records, days) {
		inWindow = append(inWindow, b.Records...)
	}

	writeJSON(w, http.StatusOK, typesResponse{
		Types:    aggregate.AvailableTypes(inWindow),
		Statuses: aggregate.AvailableStatuses(),
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, rec := range s.manifest.Snapshot().At(s.manifest.Now()) {
		if rec.ID == id {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeError(w, http.StatusNotFound, "record not found")
}

func (s *Server) windowDays() int {
	if s.cfg == nil {
		return aggregate.DefaultWindowDays
	}
	return s.cfg.WindowDays
}

func parseWindow(from, to string, loc *time.Location) (aggregate.Window, error) {
	var w aggregate.Window
	var err error
	if from != "" {
		if w.Start, err = time.ParseInLocation(dateLayout, from, loc); err != nil {
			return w, errors.New("from must be YYYY-MM-DD")
		}
	}
	if to != "" {
		if w.End, err = time.ParseInLocation(dateLayout, to, loc); err != nil {
			return w, errors.New("to must be YYYY-MM-DD")
		}
	}
	return w, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
