// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, sessions, logging/redaction, panic recovery,
// metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → Session → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-news-generator/internal/agent"
	"github.com/tbourn/go-news-generator/internal/config"
	"github.com/tbourn/go-news-generator/internal/http/handlers"
	"github.com/tbourn/go-news-generator/internal/http/middleware"
	"github.com/tbourn/go-news-generator/internal/repo"
	"github.com/tbourn/go-news-generator/internal/services"
)

// recordStoreShim adapts the repository free functions to the
// services.CacheStore interface expected by the Gate. This keeps services
// decoupled from GORM while reusing the existing functions.
type recordStoreShim struct {
	db *gorm.DB
}

// NewRecordStore returns a CacheStore backed by the daily_records table.
func NewRecordStore(db *gorm.DB) services.CacheStore {
	return recordStoreShim{db: db}
}

// Load proxies repo.LoadRecord; a missing row is reported as found=false.
func (s recordStoreShim) Load(ctx context.Context, date string) (string, bool, error) {
	rec, err := repo.LoadRecord(ctx, s.db, date)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Text, true, nil
}

// Save proxies repo.SaveRecord.
func (s recordStoreShim) Save(ctx context.Context, date, text string) error {
	return repo.SaveRecord(ctx, s.db, date, text)
}

// Clear proxies repo.DeleteRecord.
func (s recordStoreShim) Clear(ctx context.Context, date string) error {
	return repo.DeleteRecord(ctx, s.db, date)
}

// PurgeStale proxies repo.PurgeRecordsExcept.
func (s recordStoreShim) PurgeStale(ctx context.Context, keepDate string) (int64, error) {
	return repo.PurgeRecordsExcept(ctx, s.db, keepDate)
}

// sessionShim exposes the session registry as a handlers.SessionProvider.
type sessionShim struct {
	reg *services.Sessions
}

func (s sessionShim) Session(id string) handlers.NewsSession {
	return s.reg.Get(id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), sessions,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the news API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Session: resolve or issue the session id before anything logs it
//  4. RedactingLogger: structured logs with header scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Gzip (the docx download is already compressed)
//  8. Metrics
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per client IP, bypass on replay)
//  11. CORS and Security headers
//
// The returned Gate is shared by every session.
func RegisterRoutes(r *gin.Engine, store services.CacheStore, fetcher services.Fetcher, cfg config.Config) *services.Gate {
	r.HandleMethodNotAllowed = true

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	downloadPath := joinPath(apiBase, "/news/download")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Session id from header or cookie
	r.Use(middleware.Session(middleware.SessionOptions{
		MaxAge: cfg.SessionTTL,
		Secure: cfg.Security.EnableHSTS,
	}))

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (64 KiB; no endpoint takes a body)
	r.Use(limitBody(64 << 10))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{downloadPath, "/metrics"}),
	))

	// 8) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Dependency injection: sessions ← gate ← store/agent
	gate := services.NewGate(store, fetcher, agent.DefaultPrompt, cfg.Location)
	sessions := services.NewSessions(gate, cfg.SessionTTL)

	// 9) Idempotency validation (before rate limiting). A keyed retry is a
	// replay once today's record exists.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, _, _ string, _ time.Time) (bool, error) {
			_, found, err := store.Load(ctx, gate.Today())
			if err != nil {
				return false, err
			}
			return found, nil
		},
	))

	// 10) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "If-None-Match",
		middleware.HeaderSessionID, middleware.HeaderIdempotencyKey,
	}
	exposeHeaders := []string{
		"X-Request-ID", "Content-Length", "ETag", "Content-Disposition",
		"Retry-After", "Idempotency-Replayed",
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		// Credentials let the session cookie cross origins.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		Revalidate:    true,
		EnablePolicy:  true,
		ExposeHeaders: []string{"ETag", "Content-Disposition"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "date": gate.Today()})
	})

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(sessionShim{reg: sessions})

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		api.GET("/news", h.GetNews)
		api.POST("/news", h.GenerateNews)
		api.DELETE("/news", h.ClearNews)
		api.GET("/news/text", h.GetNewsText)
		api.GET("/news/download", h.DownloadNews)
	}

	return gate
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath appends p to the API base path.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
