package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"insightedge/internal/metrics"
	"insightedge/internal/server"
	"insightedge/internal/view"
)

// Serve runs the HTTP dashboard until SIGINT or SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder *metrics.Recorder
	var observer view.Observer
	if a.Config.Metrics.Enabled {
		recorder = metrics.New()
		observer = recorder
	}

	dash, err := a.openDashboard(ctx, observer)
	if err != nil {
		return err
	}

	cfg := a.Config.Server
	srv, err := server.New(server.Options{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Mode:            cfg.Mode,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MetricsEnabled:  a.Config.Metrics.Enabled,
		MetricsPath:     a.Config.Metrics.Path,
		ChartWidth:      a.Config.Export.Width,
		ChartHeight:     a.Config.Export.Height,
	}, dash, recorder, a.Logger)
	if err != nil {
		return err
	}

	first, last := dash.Dataset().Range()
	a.Logger.Info().
		Int("records", dash.Dataset().Len()).
		Time("from", first).
		Time("to", last).
		Str("addr", srv.Addr()).
		Msg("starting dashboard")

	err = srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("dashboard terminated with error")
		return err
	}
	return nil
}
