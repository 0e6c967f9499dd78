package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/application"
	appai "github.com/bryanwahyu/rfp-manager/internal/application/ai"
	appinbound "github.com/bryanwahyu/rfp-manager/internal/application/inbound"
	apprfps "github.com/bryanwahyu/rfp-manager/internal/application/rfps"
	appvendors "github.com/bryanwahyu/rfp-manager/internal/application/vendors"
	"github.com/bryanwahyu/rfp-manager/internal/config"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	domainmail "github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/infra/ai/gemini"
	"github.com/bryanwahyu/rfp-manager/internal/infra/ai/openai"
	"github.com/bryanwahyu/rfp-manager/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/rfp-manager/internal/infra/httpserver"
	"github.com/bryanwahyu/rfp-manager/internal/infra/logging"
	infmail "github.com/bryanwahyu/rfp-manager/internal/infra/mail"
	"github.com/bryanwahyu/rfp-manager/internal/infra/mail/inboundmail"
	"github.com/bryanwahyu/rfp-manager/internal/infra/mail/sendgrid"
	minioStore "github.com/bryanwahyu/rfp-manager/internal/infra/storage"
	"github.com/bryanwahyu/rfp-manager/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Server.Debug)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// connect database + migrate
	db, err := sqlstore.Connect(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		logger.Fatal("database connect error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()
	if err := sqlstore.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("database migrate error", zap.Error(err))
	}

	// init repo
	vendorRepo := sqlstore.NewVendorRepository(db)
	rfpRepo := sqlstore.NewRfpRepository(db)
	errorRepo := sqlstore.NewIngestErrorRepository(db)

	// init llm
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		logger.Fatal("llm init error", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	}
	clock := application.SystemClock{}
	aiSvc := appai.NewService(client, clock, cfg.LLM.ExtractionTemperature, cfg.LLM.ChatTemperature)

	// init mail
	var sender domainmail.Sender
	if cfg.SendGrid.APIKey != "" {
		sender = sendgrid.NewSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, outbound email is logged only")
		sender = infmail.LogSender{Logger: logger.Named("mail")}
	}
	replyTo := cfg.SendGrid.InboundEmail
	if replyTo == "" {
		replyTo = cfg.SendGrid.FromEmail
	}
	notifier := &infmail.Notifier{Sender: sender, ReplyTo: replyTo}

	// init minio (optional)
	var store domainmail.AttachmentStore
	if cfg.MinioEnabled() {
		s, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		store = s
	}

	// init service
	rfpSvc := &apprfps.Service{
		Repo:     rfpRepo,
		Vendors:  vendorRepo,
		Notifier: notifier,
		Drafter:  aiSvc,
		Clock:    clock,
		Logger:   logger.Named("rfps"),
	}
	vendorSvc := &appvendors.Service{Repo: vendorRepo, Clock: clock}
	inboundSvc := &appinbound.Service{
		Vendors:  vendorRepo,
		Rfps:     rfpRepo,
		AI:       aiSvc,
		Notifier: notifier,
		Store:    store,
		Errors:   errorRepo,
		Input:    inboundmail.ExtractionInput,
		Clock:    clock,
		Logger:   logger.Named("inbound"),
	}

	stopLimiter := make(chan struct{})
	defer close(stopLimiter)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate, stopLimiter)

	// init router
	handler := httpserver.NewRouter(httpserver.Deps{
		Rfps:         rfpSvc,
		Vendors:      vendorSvc,
		Inbound:      inboundSvc,
		AI:           aiSvc,
		DB:           db,
		Logger:       logger,
		APIKeys:      cfg.Server.APIKeys,
		FrontendURLs: cfg.Server.FrontendURLs,
		Limiter:      limiter,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLLMClient(ctx context.Context, cfg *config.Config) (ai.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider openai")
		}
		return openai.NewClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.Model), nil
	default:
		if cfg.LLM.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider gemini")
		}
		return gemini.NewClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model)
	}
}
