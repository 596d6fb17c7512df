package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"festagenda/internal/agenda"
	"festagenda/internal/config"
	"festagenda/internal/feed"
	"festagenda/internal/festival"
	appLog "festagenda/internal/log"
	"festagenda/internal/refresh"
)

const version = "0.1.0"

// rootOptions holds persistent flag values shared by every subcommand.
type rootOptions struct {
	configPath string
	today      string
}

// runtime is what every subcommand needs after flags and config are read.
type runtime struct {
	cfg   *config.Config
	loc   *time.Location
	today time.Time
	fixed bool // today came from --today
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "festagenda",
		Short:         "Month-indexed agenda of music festivals",
		Long:          "festagenda loads festival records and calendars into a month-indexed agenda, answers queries over it and serves it over HTTP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "festagenda.yaml", "config file (created with defaults if missing)")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "reference day as DD-MM-YYYY (default: current day in the configured timezone)")

	root.AddCommand(
		newDumpCmd(opts),
		newCountCmd(opts),
		newStylesCmd(opts),
		newCancelCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// setup loads the config, applies the log level and settles on "today".
func (o *rootOptions) setup() (*runtime, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}

	rt := &runtime{cfg: cfg, loc: loc, today: festival.Today(loc)}
	if o.today != "" {
		d, err := festival.ParseDate(o.today)
		if err != nil {
			return nil, fmt.Errorf("--today: %w", err)
		}
		rt.today = d
		rt.fixed = true
	}

	appLog.Debug("effective config",
		"config_path", o.configPath,
		"timezone", loc.String(),
		"today", festival.FormatDate(rt.today),
		"strict", cfg.Strict,
		"sources", len(cfg.Sources),
	)
	return rt, nil
}

// currentDay is today as seen by long-running commands: pinned when --today
// was given, otherwise recomputed on every call.
func (rt *runtime) currentDay() time.Time {
	if rt.fixed {
		return rt.today
	}
	return festival.Today(rt.loc)
}

func (rt *runtime) fetcher() *feed.Fetcher {
	return feed.NewFetcher(rt.cfg.CacheDir)
}

// load builds the agenda from every configured source.
func (rt *runtime) load(ctx context.Context) (*agenda.Agenda, error) {
	return refresh.Build(ctx, rt.fetcher(), refresh.SourcesFromConfig(rt.cfg), refresh.OptionsFromConfig(rt.cfg, rt.currentDay()))
}

// loadFor is the common prologue of the one-shot commands.
func (o *rootOptions) loadFor(cmd *cobra.Command) (*runtime, *agenda.Agenda, error) {
	rt, err := o.setup()
	if err != nil {
		return nil, nil, err
	}
	ag, err := rt.load(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return rt, ag, nil
}
