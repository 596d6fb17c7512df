package refresh

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"festagenda/internal/agenda"
	appLog "festagenda/internal/log"
)

// BuildFunc produces a fresh agenda, typically by calling Build with the
// current day.
type BuildFunc func(ctx context.Context) (*agenda.Agenda, error)

// Reloader rebuilds the agenda on a cron schedule and, optionally, when a
// watched file changes. A failed rebuild keeps the previous agenda.
type Reloader struct {
	store *Store
	build BuildFunc

	cronSpec   string
	loc        *time.Location
	watchPaths []string
	debounce   time.Duration

	mu sync.Mutex // serializes rebuilds
}

// NewReloader wires a reloader. An empty cronSpec disables scheduling.
func NewReloader(store *Store, build BuildFunc, cronSpec string, loc *time.Location) *Reloader {
	if loc == nil {
		loc = time.Local
	}
	return &Reloader{
		store:    store,
		build:    build,
		cronSpec: cronSpec,
		loc:      loc,
		debounce: 200 * time.Millisecond,
	}
}

// Watch adds local files whose changes trigger a reload.
func (r *Reloader) Watch(paths ...string) {
	r.watchPaths = append(r.watchPaths, paths...)
}

// Reload rebuilds now and installs the result.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	ag, err := r.build(ctx)
	if err != nil {
		appLog.Error("reload failed; keeping previous agenda", err)
		return err
	}
	r.store.Replace(ag)
	appLog.Info("agenda reloaded", "festivals", ag.Len(), "months", len(ag.Months()), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Run blocks until ctx is done, reloading on schedule and on file changes.
func (r *Reloader) Run(ctx context.Context) error {
	if r.cronSpec != "" {
		c := cron.New(cron.WithLocation(r.loc))
		if _, err := c.AddFunc(r.cronSpec, func() { _ = r.Reload(ctx) }); err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		appLog.Info("reload schedule active", "cron", r.cronSpec, "timezone", r.loc.String())
	}

	if len(r.watchPaths) == 0 {
		<-ctx.Done()
		return nil
	}
	return r.watch(ctx)
}

// watch follows the parent directories so editors that replace files by
// rename are still seen.
func (r *Reloader) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	wanted := make(map[string]struct{}, len(r.watchPaths))
	dirs := make(map[string]struct{})
	for _, p := range r.watchPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		wanted[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			return err
		}
	}
	appLog.Info("watching sources", "files", len(wanted))

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("refresh: watcher closed")
			}
			if _, hit := wanted[filepath.Clean(ev.Name)]; !hit {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			appLog.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			_ = r.Reload(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("refresh: watcher closed")
			}
			appLog.Error("watch error", err)
		}
	}
}
