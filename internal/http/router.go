// Package httpapi wires the HTTP transport (Gin) to the intake engine,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, rate limiting and webhook signature
// checks.
//
// Routes:
//
//	POST /webhooks/whatsapp                                       provider webhook (signed)
//	GET  /ws/review?building_id=                                  live review notices (bearer token)
//	POST {api}/buildings/:id/messages                             submit a resident message
//	GET  {api}/buildings/:id/conversations/:conversation_id/messages
//	GET  {api}/buildings/:id/knowledge/search
//	GET  /health, /metrics, /swagger/*any
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/condohub/condo-backend/docs"
	"github.com/condohub/condo-backend/internal/config"
	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/http/handlers"
	"github.com/condohub/condo-backend/internal/http/middleware"
	"github.com/condohub/condo-backend/internal/repo"
	"github.com/condohub/condo-backend/internal/services"
)

// directoryShim adapts the repository free functions to handlers.Directory.
// Building configs go through the (possibly cached) BuildingSource.
type directoryShim struct {
	db        *gorm.DB
	buildings services.BuildingSource
}

// Building proxies the configured BuildingSource.
func (d directoryShim) Building(ctx context.Context, id string) (domain.BuildingConfig, error) {
	return d.buildings(ctx, id)
}

// BuildingByNumber proxies repo.GetBuildingByWhatsAppNumber.
func (d directoryShim) BuildingByNumber(ctx context.Context, number string) (*domain.Building, error) {
	return repo.GetBuildingByWhatsAppNumber(ctx, d.db, number)
}

// ResidentByPhone proxies repo.GetResidentByPhone.
func (d directoryShim) ResidentByPhone(ctx context.Context, buildingID, phone string) (*domain.Resident, error) {
	return repo.GetResidentByPhone(ctx, d.db, buildingID, phone)
}

// idempotencyShim adapts the idempotency repository to
// handlers.IdempotencyStore. Records expire after ttl.
type idempotencyShim struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; a missing record is not an error.
func (s idempotencyShim) Lookup(ctx context.Context, scope, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.MessageID, true, nil
}

// Record proxies repo.CreateIdempotency.
func (s idempotencyShim) Record(ctx context.Context, scope, key, messageID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, scope, key, messageID, status, s.ttl)
	return err
}

// Message proxies repo.GetMessage.
func (s idempotencyShim) Message(ctx context.Context, id string) (*domain.Message, error) {
	return repo.GetMessage(ctx, s.db, id)
}

// Deps carries what RegisterRoutes needs beyond configuration.
type Deps struct {
	DB *gorm.DB
	// Intake runs the pipeline; normally a *services.IntakeService.
	Intake handlers.IntakeService
	// Buildings resolves building configs; nil reads the database directly.
	Buildings services.BuildingSource
	// Hub serves the review feed; nil (or an empty REVIEW_TOKEN) disables
	// /ws/review.
	Hub handlers.ReviewHub
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (not for websockets or scrapes)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per sender/building/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	db := d.DB
	buildings := d.Buildings
	if buildings == nil {
		buildings = func(ctx context.Context, id string) (domain.BuildingConfig, error) {
			return repo.GetBuildingConfig(ctx, db, id)
		}
	}
	idem := idempotencyShim{db: db, ttl: cfg.IdempotencyTTL}
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(cfg.Intake.MaxBodyBytes))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws/", "/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Lookup))

	// 9) Token-bucket rate limiter per sender/building/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySenderOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
	for _, o := range cfg.CORS.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowed) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		NoStorePrefixes: []string{joinPath(apiBase, "/buildings/"), "/webhooks/"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", healthHandler(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	convSvc := services.NewConversationService(db, services.RepoConversations{})
	h := handlers.New(handlers.Deps{
		Intake:      d.Intake,
		Messages:    &services.MessageService{DB: db, Conversations: convSvc},
		Knowledge:   &services.KnowledgeService{DB: db},
		Directory:   directoryShim{db: db, buildings: buildings},
		Idempotency: idem,
		Hub:         d.Hub,
		Upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowed),
		},
		MaxTextRunes: cfg.Intake.MaxTextRunes,
	})

	// Provider webhooks
	r.POST("/webhooks/whatsapp",
		middleware.VerifyTwilioSignature(cfg.Twilio.VerifySignature, cfg.Twilio.AuthToken, cfg.Twilio.PublicURL),
		h.WhatsAppWebhook,
	)

	// Admin review feed: needs a hub and a shared admin token.
	if d.Hub != nil && cfg.Security.ReviewToken != "" {
		r.GET("/ws/review", middleware.RequireBearer(cfg.Security.ReviewToken), h.ReviewFeed)
	}

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/buildings/:id/messages", h.PostMessage)
		api.GET("/buildings/:id/conversations/:conversation_id/messages", h.ListMessages)
		api.GET("/buildings/:id/knowledge/search", h.SearchKnowledge)
	}
}

// healthHandler reports liveness plus database reachability.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}

// originChecker accepts websocket upgrades from the CORS allowlist, or from
// anywhere when the allowlist is empty.
func originChecker(allowed map[string]struct{}) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error. maxBytes <= 0 disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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

// joinPath concatenates a base path and a suffix starting with "/".
func joinPath(base, suffix string) string {
	if base == "" || base == "/" {
		return suffix
	}
	return base + suffix
}
