package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run is the process entrypoint used by "playgate serve".
// It returns an error instead of calling os.Exit so deferred cleanup runs.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := SetupTracing(ctx, cfg, ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		tctx, tcancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer tcancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Error("otel.shutdown.fail", "err", err)
		}
	}()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
