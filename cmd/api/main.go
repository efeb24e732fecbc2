package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thisisnajafi/sarvcast-backend-sub015/config"
	"github.com/thisisnajafi/sarvcast-backend-sub015/handlers"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/service"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML settings file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.InitLogger(cfg.Logging.Level)

	st, err := config.OpenStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	defer st.Close()

	svc := service.New(timeline.NewValidator(cfg.Policy()), st)
	app := handlers.NewApp(handlers.NewApplicationHandler(svc, logger), cfg.API.AdminToken)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("bind", cfg.API.Bind).Info("Starting timeline API")
		return app.Listen(cfg.API.Bind)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down timeline API")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Timeline API stopped with error")
	}
	logger.Info("Timeline API shut down gracefully")
}
