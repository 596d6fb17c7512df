package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"festagenda/internal/agenda"
	"festagenda/internal/config"
	"festagenda/internal/festival"
	"festagenda/internal/ics"
	appLog "festagenda/internal/log"
	"festagenda/internal/refresh"
)

// Server exposes the agenda over HTTP. Every handler goes through the
// Store, which serializes access to the underlying agenda.
type Server struct {
	cfg    *config.Config
	store  *refresh.Store
	reload func(ctx context.Context) error
	today  func() time.Time
	mux    *http.ServeMux
}

// Option customizes a Server.
type Option func(*Server)

// WithReload enables POST /api/reload.
func WithReload(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.reload = fn }
}

// WithToday overrides how the server decides the current date.
func WithToday(fn func() time.Time) Option {
	return func(s *Server) { s.today = fn }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store *refresh.Store, opts ...Option) *Server {
	loc := resolveLocationOrLocal(cfg.Timezone)
	s := &Server{
		cfg:   cfg,
		store: store,
		today: func() time.Time { return festival.Today(loc) },
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
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
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials count as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="festagenda", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	s.mux.HandleFunc("GET /api/months/{month}/count", s.handleCount)
	s.mux.HandleFunc("GET /api/styles", s.handleStyles)
	s.mux.HandleFunc("POST /api/cancel", s.handleCancel)
	s.mux.HandleFunc("POST /api/reload", s.handleReload)
	s.mux.HandleFunc("GET /agenda.txt", s.handleDump)
	s.mux.HandleFunc("GET /agenda.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// festivalDTO is a JSON-friendly view of one festival.
type festivalDTO struct {
	Name     string           `json:"name"`
	Location string           `json:"location"`
	Start    string           `json:"start"`
	End      string           `json:"end"`
	Duration int              `json:"duration_days"`
	Styles   []festival.Style `json:"styles"`
	State    string           `json:"state"`
}

type monthDTO struct {
	Month  festival.Month `json:"month"`
	Count  int            `json:"count"`
	Events []festivalDTO  `json:"events"`
}

type agendaResponse struct {
	Today  string     `json:"today"`
	Months []monthDTO `json:"months"`
}

func (s *Server) handleAgenda(w http.ResponseWriter, _ *http.Request) {
	today := s.today()
	resp := agendaResponse{Today: festival.FormatDate(today), Months: []monthDTO{}}

	s.store.View(func(ag *agenda.Agenda) {
		for _, m := range ag.Months() {
			list := ag.Events(m)
			md := monthDTO{Month: m, Count: len(list), Events: make([]festivalDTO, 0, len(list))}
			for _, ev := range list {
				md.Events = append(md.Events, toDTO(ev, today))
			}
			resp.Months = append(resp.Months, md)
		}
	})

	writeJSON(w, http.StatusOK, resp)
}

func toDTO(ev *festival.Event, today time.Time) festivalDTO {
	return festivalDTO{
		Name:     ev.Name(),
		Location: ev.Location(),
		Start:    festival.FormatDate(ev.Start()),
		End:      festival.FormatDate(ev.End()),
		Duration: ev.Duration(),
		Styles:   ev.Styles().Styles(),
		State:    ev.StateAt(today).String(),
	}
}

type countResponse struct {
	Month festival.Month `json:"month"`
	Count int            `json:"count"`
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	m, err := festival.ParseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var n int
	s.store.View(func(ag *agenda.Agenda) { n = ag.CountInMonth(m) })
	writeJSON(w, http.StatusOK, countResponse{Month: m, Count: n})
}

func (s *Server) handleStyles(w http.ResponseWriter, _ *http.Request) {
	var groups []agenda.StyleGroup
	s.store.View(func(ag *agenda.Agenda) { groups = ag.GroupByStyle() })
	writeJSON(w, http.StatusOK, groups)
}

type cancelRequest struct {
	Month     string   `json:"month"`
	Locations []string `json:"locations"`
}

type cancelResponse struct {
	Month     festival.Month `json:"month"`
	Cancelled int            `json:"cancelled"`
}

// handleCancel answers 404 with cancelled=-1 when the month holds nothing.
// Cancellations persist across reloads for the life of the server.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := festival.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := s.today()
	n := s.store.Cancel(req.Locations, m, today)

	appLog.Info("api cancel", "month", m, "locations", len(req.Locations), "cancelled", n)
	status := http.StatusOK
	if n < 0 {
		status = http.StatusNotFound
	}
	writeJSON(w, status, cancelResponse{Month: m, Cancelled: n})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload not configured")
		return
	}
	if err := s.reload(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	var n int
	s.store.View(func(ag *agenda.Agenda) { n = ag.Len() })
	writeJSON(w, http.StatusOK, map[string]int{"festivals": n})
}

func (s *Server) handleDump(w http.ResponseWriter, _ *http.Request) {
	today := s.today()
	var out string
	s.store.View(func(ag *agenda.Agenda) { out = ag.Dump(today) })
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	var out string
	s.store.View(func(ag *agenda.Agenda) {
		out = ics.Export(ag, ics.ExportOptions{Name: "Festivals"})
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="festivals.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
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
