// Command server runs the daily news generator HTTP API.
//
//	@title						Go News Generator API
//	@version					1.0
//	@description				Generates one AI news post per calendar day through a remote agent and serves it as JSON, plain text, or a Word document.
//	@BasePath					/api/v1
//	@schemes					http https
//	@securityDefinitions.apikey	SessionID
//	@in							header
//	@name						X-Session-ID
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-news-generator/docs"
	"github.com/tbourn/go-news-generator/internal/agent"
	"github.com/tbourn/go-news-generator/internal/config"
	httpapi "github.com/tbourn/go-news-generator/internal/http"
	"github.com/tbourn/go-news-generator/internal/observability"
	"github.com/tbourn/go-news-generator/internal/repo"
	"github.com/tbourn/go-news-generator/internal/services"
	"github.com/tbourn/go-news-generator/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := agent.NewClient(cfg.Agent.URL, cfg.Agent.Timeout)
	client.APIKey = cfg.Agent.APIKey
	client.Match = agent.Match{
		AgentMarker: cfg.Agent.Marker,
		Tool:        cfg.Agent.Tool,
		Field:       cfg.Agent.Field,
	}

	docs.SwaggerInfo.Version = ver
	docs.SwaggerInfo.BasePath = cfg.APIBasePath

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	gate := httpapi.RegisterRoutes(r, store, client, cfg)

	// Drop records left over from earlier days before serving.
	if n, err := store.PurgeStale(ctx, gate.Today()); err != nil {
		log.Warn().Err(err).Msg("startup purge")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("purged stale records")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("cache_backend", cfg.CacheBackend).
			Str("timezone", cfg.Location.String()).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	// An in-flight generation may take up to the agent timeout.
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Agent.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore opens the cache backend selected by CACHE_BACKEND.
func openStore(cfg config.Config) (services.CacheStore, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendFile:
		fs, err := repo.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %q: %w", cfg.DBPath, err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return httpapi.NewRecordStore(db), closeDB, nil
	}
}
