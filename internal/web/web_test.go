package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"festagenda/internal/agenda"
	"festagenda/internal/config"
	"festagenda/internal/feed"
	"festagenda/internal/festival"
	"festagenda/internal/refresh"
)

var today = festival.Date(2022, time.March, 1)

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *refresh.Store) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ag := agenda.New()
	for _, f := range []struct {
		name, loc string
		start     time.Time
		days      int
		styles    []festival.Style
	}{
		{"benidorm fest", "BENIDORM", festival.Date(2022, time.January, 26), 3, []festival.Style{festival.Indie, festival.Pop}},
		{"guitar bcn", "BARCELONA", festival.Date(2022, time.January, 28), 170, []festival.Style{festival.Pop, festival.Fusion}},
		{"sonar", "BARCELONA", festival.Date(2022, time.June, 16), 3, []festival.Style{festival.Electronic}},
		{"primavera sound", "BARCELONA", festival.Date(2022, time.June, 2), 10, []festival.Style{festival.Indie, festival.Rock}},
		{"bbk live", "BILBAO", festival.Date(2022, time.June, 7), 3, []festival.Style{festival.Indie}},
	} {
		ev, err := festival.New(f.name, f.loc, f.start, f.days, f.styles...)
		if err != nil {
			t.Fatal(err)
		}
		ag.Add(ev)
	}

	store := refresh.NewStore(ag)
	opts = append([]Option{WithToday(func() time.Time { return today })}, opts...)
	return NewServer(cfg, store, opts...), store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAgenda(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/agenda", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/agenda = %d", rec.Code)
	}

	var resp agendaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Today != "01-03-2022" {
		t.Errorf("today = %q", resp.Today)
	}
	if len(resp.Months) != 2 || resp.Months[0].Month != festival.January || resp.Months[1].Month != festival.June {
		t.Fatalf("months = %+v", resp.Months)
	}

	jan := resp.Months[0].Events
	if jan[0].Name != "Benidorm Fest" || jan[0].State != festival.Concluded.String() {
		t.Errorf("first January event = %+v", jan[0])
	}
	if jan[1].Name != "Guitar Bcn" || jan[1].State != festival.Ongoing.String() {
		t.Errorf("second January event = %+v", jan[1])
	}

	var names []string
	for _, ev := range resp.Months[1].Events {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ","); got != "Bbk Live,Primavera Sound,Sonar" {
		t.Errorf("June order = %s", got)
	}
}

func TestCount(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	cases := []struct {
		month  string
		status int
		count  int
	}{
		{"june", http.StatusOK, 3},
		{"JAN", http.StatusOK, 2},
		{"7", http.StatusOK, 0},
		{"smarch", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.month, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/months/"+tc.month+"/count", "")
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status != http.StatusOK {
				return
			}
			var resp countResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Count != tc.count {
				t.Errorf("count = %d, want %d", resp.Count, tc.count)
			}
		})
	}
}

func TestStyles(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/styles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/styles = %d", rec.Code)
	}

	var groups []agenda.StyleGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatal(err)
	}
	indie, ok := agenda.Lookup(groups, festival.Indie)
	if !ok {
		t.Fatal("INDIE group missing")
	}
	if got := strings.Join(indie.Names, ","); got != "Benidorm Fest,Bbk Live,Primavera Sound" {
		t.Errorf("INDIE = %s", got)
	}
	if _, ok := agenda.Lookup(groups, festival.Metal); ok {
		t.Error("METAL group present with no festivals")
	}
}

func TestCancel(t *testing.T) {
	s, store := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/cancel", `{"month":"june","locations":["barcelona"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/cancel = %d %s", rec.Code, rec.Body.String())
	}
	var resp cancelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Cancelled != 2 {
		t.Errorf("cancelled = %d, want 2", resp.Cancelled)
	}
	store.View(func(ag *agenda.Agenda) {
		if ag.CountInMonth(festival.June) != 1 {
			t.Errorf("CountInMonth(JUNE) = %d after cancel", ag.CountInMonth(festival.June))
		}
	})

	rec = do(t, h, http.MethodPost, "/api/cancel", `{"month":"october","locations":["bilbao"]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cancel in empty month = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Cancelled != -1 {
		t.Errorf("cancelled = %d, want -1", resp.Cancelled)
	}
}

func TestCancel_BadRequest(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	for _, body := range []string{`not json`, `{"month":"smarch"}`} {
		if rec := do(t, h, http.MethodPost, "/api/cancel", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/api/cancel", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/cancel = %d, want 405", rec.Code)
	}
}

func TestDump(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/agenda.txt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /agenda.txt = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "JANUARY: 2\n") {
		t.Errorf("dump starts with %q", body[:min(len(body), 20)])
	}
	if !strings.Contains(body, "JUNE: 3\n") {
		t.Error("dump missing JUNE header")
	}
}

func TestICS(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/agenda.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /agenda.ics = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if n := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); n != 5 {
		t.Errorf("VEVENT count = %d, want 5", n)
	}
}

func TestReload(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		if rec := do(t, s.Handler(), http.MethodPost, "/api/reload", ""); rec.Code != http.StatusNotImplemented {
			t.Errorf("status = %d, want 501", rec.Code)
		}
	})

	t.Run("failure", func(t *testing.T) {
		s, _ := newTestServer(t, nil, WithReload(func(context.Context) error { return errors.New("source down") }))
		if rec := do(t, s.Handler(), http.MethodPost, "/api/reload", ""); rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		var store *refresh.Store
		s, st := newTestServer(t, nil, WithReload(func(context.Context) error {
			store.Replace(agenda.New())
			return nil
		}))
		store = st

		rec := do(t, s.Handler(), http.MethodPost, "/api/reload", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp map[string]int
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp["festivals"] != 0 {
			t.Errorf("festivals = %d, want 0", resp["festivals"])
		}
	})
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	s, _ := newTestServer(t, cfg)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health without credentials = %d, want 200", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/agenda", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/agenda without credentials = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/agenda", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/agenda", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid credentials = %d, want 200", rec.Code)
	}
}

func TestBasicAuth_EmptyCredentialsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	s, _ := newTestServer(t, cfg)
	if rec := do(t, s.Handler(), http.MethodGet, "/api/agenda", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with incomplete credentials", rec.Code)
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("abc", "abc") {
		t.Error("equal strings compared unequal")
	}
	if secureCompare("abc", "abd") || secureCompare("abc", "ab") {
		t.Error("unequal strings compared equal")
	}
}

func TestCancel_SurvivesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "festivals.csv")
	body := "sonar:barcelona:16-06-2022:3:electronic\nbbk live:bilbao:07-06-2022:3:indie\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	sources := []feed.Source{{ID: "festivals", Path: path}}
	fetcher := feed.NewFetcher(t.TempDir())
	build := func(ctx context.Context) (*agenda.Agenda, error) {
		return refresh.Build(ctx, fetcher, sources, refresh.Options{Strict: true, Today: today})
	}
	ag, err := build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	store := refresh.NewStore(ag)
	reloader := refresh.NewReloader(store, build, "", time.UTC)
	h := NewServer(config.DefaultConfig(), store,
		WithReload(reloader.Reload),
		WithToday(func() time.Time { return today }),
	).Handler()

	rec := do(t, h, http.MethodPost, "/api/cancel", `{"month":"june","locations":["barcelona"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/cancel = %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodPost, "/api/reload", ""); rec.Code != http.StatusOK {
		t.Fatalf("POST /api/reload = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/months/june/count", "")
	var resp countResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Errorf("JUNE count after reload = %d, want 1", resp.Count)
	}
}
