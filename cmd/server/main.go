package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"meet-server/internal/config"
	"meet-server/internal/domain/meeting"
	"meet-server/internal/infrastructure/chime"
	"meet-server/internal/infrastructure/logger"
	"meet-server/internal/infrastructure/storage"
	"meet-server/internal/interfaces/httpserver"
	"meet-server/internal/interfaces/httpserver/handlers"
	"meet-server/internal/interfaces/wsserver"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := chime.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize conferencing gateway")
	}

	locator, err := storage.NewS3Locator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize recording locator")
	}

	registry := meeting.NewRegistry()
	archive := meeting.NewArchive(locator, cfg.PresignTTL, log)
	service := meeting.NewService(gateway, registry, archive, log)

	hub := wsserver.NewHub(cfg, service, registry, log)
	provider := handlers.NewProvider(service, registry, archive, log)
	httpServer := httpserver.New(cfg, log, provider, hub)
	app := NewApplication(httpServer, log)

	if cfg.ResolveInterval > 0 {
		go runResolver(ctx, archive, cfg.ResolveInterval, log)
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// runResolver periodically sweeps the archive so recording URLs appear without
// anyone polling the query surface.
func runResolver(ctx context.Context, archive *meeting.Archive, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			archive.ResolveAll(ctx)
		}
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
