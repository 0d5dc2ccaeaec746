// Command renew re-issues every expired access URL once and exits.
// It is meant to be run by an external scheduler such as cron or a Kubernetes CronJob.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"photoapi/internal/app"
	"photoapi/internal/config"
	"photoapi/internal/logging"
)

const closeTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "renew: load config: %v\n", err)
		return 1
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "renew: %v\n", err)
		return 1
	}
	log = logging.Component(log, "renew_job")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup_failed")
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	start := time.Now()
	report, err := a.Service.RenewExpired(ctx)
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.
		Int("scanned", report.Scanned).
		Int("renewed", report.Renewed).
		Int("failed", report.Failed).
		Dur("took", time.Since(start)).
		Msg("renewal_finished")

	if err != nil {
		return 1
	}
	return 0
}
