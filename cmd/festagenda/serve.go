package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "festagenda/internal/log"
	"festagenda/internal/refresh"
	"festagenda/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agenda over HTTP and keep it fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.setup()
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				rt.cfg.Listen = listen
			}
			return serve(cmd.Context(), rt)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(parent context.Context, rt *runtime) error {
	appLog.Info("festagenda starting", "version", version)
	appLog.Info("effective config",
		"listen", rt.cfg.Listen,
		"timezone", rt.loc.String(),
		"refresh", rt.cfg.RefreshCron,
		"watch", rt.cfg.Watch,
		"strict", rt.cfg.Strict,
		"horizon_days", rt.cfg.HorizonDays,
		"sources", len(rt.cfg.Sources),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first load must succeed; later failures keep the last good agenda.
	ag, err := rt.load(ctx)
	if err != nil {
		return err
	}
	store := refresh.NewStore(ag)

	reloader := refresh.NewReloader(store, rt.load, rt.cfg.RefreshCron, rt.loc)
	if rt.cfg.Watch {
		for _, s := range rt.cfg.Sources {
			if s.Path != "" {
				reloader.Watch(s.Path)
			}
		}
	}

	srv := web.NewServer(rt.cfg, store,
		web.WithReload(reloader.Reload),
		web.WithToday(rt.currentDay),
	)

	errCh := make(chan error, 2)
	go func() { errCh <- reloader.Run(ctx) }()
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Either a component fails or the signal arrives; stop the other and
	// wait for it.
	err = <-errCh
	stop()
	if err2 := <-errCh; err == nil {
		err = err2
	}
	if err != nil {
		appLog.Error("festagenda stopped with error", err)
		return err
	}
	appLog.Info("festagenda exiting")
	return nil
}
