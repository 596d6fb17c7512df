package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"festagenda/internal/agenda"
	"festagenda/internal/config"
	"festagenda/internal/feed"
	"festagenda/internal/festival"
	"festagenda/internal/ics"
	appLog "festagenda/internal/log"
	"festagenda/internal/records"
)

// Options controls how sources become an agenda.
type Options struct {
	Strict       bool
	Today        time.Time
	HorizonDays  int
	BackfillDays int
}

// OptionsFromConfig derives build options for the given day.
func OptionsFromConfig(cfg *config.Config, today time.Time) Options {
	return Options{
		Strict:       cfg.Strict,
		Today:        today,
		HorizonDays:  cfg.HorizonDays,
		BackfillDays: cfg.BackfillDays,
	}
}

// SourcesFromConfig maps configured sources onto feed sources.
func SourcesFromConfig(cfg *config.Config) []feed.Source {
	out := make([]feed.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		src := feed.Source{ID: s.ID, Format: feed.Format(s.Format)}
		if s.Path != "" {
			src.Path = s.Path
		} else {
			src.URL = s.URL
		}
		out = append(out, src)
	}
	return out
}

// Build fetches every source in order and loads its festivals into a fresh
// agenda. In strict mode the first failing source or malformed record
// aborts the build and no agenda is returned.
func Build(ctx context.Context, f *feed.Fetcher, sources []feed.Source, opts Options) (*agenda.Agenda, error) {
	ag := agenda.New()
	var skipped []error

	for _, src := range sources {
		res, err := f.Fetch(ctx, src)
		if err != nil {
			if opts.Strict {
				return nil, err
			}
			appLog.Error("source skipped", err, "id", src.ID)
			skipped = append(skipped, err)
			continue
		}

		// Each source loads into its own agenda first so a strict failure
		// halfway through a source never leaks partial results.
		part := agenda.New()
		if err := loadSource(res, part, opts); err != nil {
			if opts.Strict {
				return nil, err
			}
			appLog.Error("source skipped", err, "id", src.ID)
			skipped = append(skipped, err)
			continue
		}
		part.Each(func(_ festival.Month, ev *festival.Event) bool {
			ag.Add(ev)
			return true
		})
		appLog.Info("source loaded", "id", src.ID, "location", src.Location(), "festivals", part.Len(), "from_cache", res.FromCache)
	}

	if len(skipped) > 0 && len(skipped) == len(sources) {
		return nil, fmt.Errorf("refresh: every source failed: %w", errors.Join(skipped...))
	}
	return ag, nil
}

func loadSource(res feed.Result, ag *agenda.Agenda, opts Options) error {
	switch res.Source.Format {
	case feed.FormatICS:
		parsed, err := ics.ParseICS(res.Source.ID, res.Body)
		if err != nil {
			return fmt.Errorf("source %s: %w", res.Source.ID, err)
		}
		expanded, err := ics.Expand(parsed, ics.ExpandConfig{
			RangeStart: opts.Today.AddDate(0, 0, -opts.BackfillDays),
			RangeEnd:   opts.Today.AddDate(0, 0, opts.HorizonDays),
		})
		if err != nil {
			return fmt.Errorf("source %s: %w", res.Source.ID, err)
		}
		if len(expanded.Rejected) > 0 {
			if opts.Strict {
				return expanded.Rejected[0]
			}
			for _, rerr := range expanded.Rejected {
				appLog.Warn("skipping calendar event", "source", res.Source.ID, "err", rerr)
			}
		}
		for _, f := range expanded.Festivals {
			ag.Add(f)
		}
		return nil

	default:
		_, err := records.Load(bytes.NewReader(res.Body), ag, records.LoadOptions{
			Strict: opts.Strict,
			Source: res.Source.ID,
		})
		return err
	}
}
