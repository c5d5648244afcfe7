// Command server runs the condo message intake API.
//
//	@title			Condo Intake API
//	@version		1.0
//	@description	Resident message intake: classification, routing and dispatch for condominium buildings.
//	@BasePath		/api/v1
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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/cache"
	"github.com/condohub/condo-backend/internal/classifier"
	"github.com/condohub/condo-backend/internal/config"
	"github.com/condohub/condo-backend/internal/dispatch"
	"github.com/condohub/condo-backend/internal/domain"
	httpapi "github.com/condohub/condo-backend/internal/http"
	"github.com/condohub/condo-backend/internal/notify"
	"github.com/condohub/condo-backend/internal/observability"
	"github.com/condohub/condo-backend/internal/outbound"
	"github.com/condohub/condo-backend/internal/repo"
	"github.com/condohub/condo-backend/internal/seed"
	"github.com/condohub/condo-backend/internal/services"
	"github.com/condohub/condo-backend/internal/sysutil"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	version := sysutil.Version()
	sysutil.InitLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, version); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, version string) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if cfg.SeedPath != "" {
		res, err := seed.LoadFile(ctx, db, cfg.SeedPath)
		if err != nil {
			return err
		}
		log.Info().
			Int("buildings", res.Buildings).
			Int("skipped", res.Skipped).
			Int("residents", res.Residents).
			Int("knowledge", res.Knowledge).
			Msg("seed applied")
	}

	buildings, closeRedis, err := buildingSource(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeRedis()

	hub := notify.NewHub()
	dispatcher, err := newDispatcher(ctx, cfg, db, hub)
	if err != nil {
		return err
	}

	var inf classifier.Inferrer
	if cfg.OpenAI.APIKey != "" {
		inf = classifier.NewOpenAIInferrer(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set; every message will be routed to human review")
	}

	intake := &services.IntakeService{
		DB:            db,
		Buildings:     buildings,
		Conversations: services.NewConversationService(db, services.RepoConversations{}),
		Knowledge:     &services.KnowledgeService{DB: db},
		Classifier:    classifier.New(inf, cfg.Intake.ClassifyTimeout),
		Dispatcher:    dispatcher,
		MaxTextRunes:  cfg.Intake.MaxTextRunes,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Intake: intake, Buildings: buildings, Hub: hub}, cfg)

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
		log.Info().Str("addr", srv.Addr).Str("db", cfg.DBDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// buildingSource returns the Redis-backed building cache when REDIS_URL is
// set, and a direct database read otherwise.
func buildingSource(ctx context.Context, cfg config.Config, db *gorm.DB) (services.BuildingSource, func(), error) {
	load := func(ctx context.Context, id string) (domain.BuildingConfig, error) {
		return repo.GetBuildingConfig(ctx, db, id)
	}
	if cfg.RedisURL == "" {
		return load, func() {}, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		// The cache is best-effort; reads fall through to the database.
		log.Warn().Err(err).Msg("redis unreachable at startup")
	}
	bc := cache.NewBuildingCache(client, load, cfg.BuildingCacheTTL)
	return bc.Get, func() { _ = client.Close() }, nil
}

// newDispatcher wires the outbound channels and review notifiers.
func newDispatcher(ctx context.Context, cfg config.Config, db *gorm.DB, hub *notify.Hub) (*dispatch.Dispatcher, error) {
	senders := map[domain.Channel]dispatch.Sender{
		domain.ChannelWeb: outbound.WebSender{},
	}
	notifiers := notify.Multi{hub}

	if cfg.Twilio.AccountSID != "" {
		senders[domain.ChannelWhatsApp] = outbound.NewTwilioSender(
			cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.Edge, cfg.Twilio.WhatsAppFrom, cfg.Intake.DispatchStepTimeout,
		)
	} else {
		log.Warn().Msg("TWILIO_ACCOUNT_SID not set; WhatsApp replies disabled")
	}

	if cfg.AWS.SESFrom != "" || cfg.AWS.SMSEnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		if cfg.AWS.SESFrom != "" {
			notifiers = append(notifiers, notify.NewEmailNotifier(ses.NewFromConfig(awsCfg), cfg.AWS.SESFrom, cfg.AWS.FallbackEmail))
		}
		if cfg.AWS.SMSEnabled {
			senders[domain.ChannelSMS] = outbound.NewSMSSender(sns.NewFromConfig(awsCfg), cfg.AWS.SMSSenderID)
		}
	}

	return &dispatch.Dispatcher{
		Store:       services.DispatchStore{DB: db},
		Senders:     senders,
		Notifier:    notifiers,
		StepTimeout: cfg.Intake.DispatchStepTimeout,
	}, nil
}
