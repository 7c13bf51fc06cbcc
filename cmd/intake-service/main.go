package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/events"
	"github.com/cvintake/cvintake-backend/internal/intake/extractor"
	"github.com/cvintake/cvintake-backend/internal/intake/followup"
	"github.com/cvintake/cvintake-backend/internal/intake/handler"
	"github.com/cvintake/cvintake-backend/internal/intake/objectstore"
	"github.com/cvintake/cvintake-backend/internal/intake/processor"
	"github.com/cvintake/cvintake-backend/internal/intake/repository"
	"github.com/cvintake/cvintake-backend/internal/intake/service"
	"github.com/cvintake/cvintake-backend/internal/intake/sheets"
	"github.com/cvintake/cvintake-backend/internal/intake/webhook"
	"github.com/cvintake/cvintake-backend/pkg/config"
	"github.com/cvintake/cvintake-backend/pkg/database"
	"github.com/cvintake/cvintake-backend/pkg/httputil"
	"github.com/cvintake/cvintake-backend/pkg/i18n"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/cvintake/cvintake-backend/pkg/messaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

const serviceName = events.ServiceName

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting CV Intake Service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Connect to RabbitMQ
	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeIntakeEvents, serviceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	intakeEvents := events.NewIntakeEventPublisherWith(publisher, log)

	// Repositories
	submissionRepo := repository.NewSubmissionRepository(db)
	followUpRepo := repository.NewFollowUpRepository(db)

	// Follow-up scheduling and delivery
	if cfg.Mail.Sender != "" {
		mailer, err := followup.NewSESMailer(ctx, cfg.Mail)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create SES mailer")
		}
		scheduler := followup.NewScheduler(followUpRepo, newGuard(ctx, cfg.Redis, log), mailer, publisher, cfg.FollowUp, log)

		followUpConsumer, err := events.NewFollowUpConsumer(rmq, scheduler, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create follow-up consumer")
		}
		if err := followUpConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start follow-up consumer")
		}

		scheduler.Start(ctx)
		defer scheduler.Stop()
	} else {
		log.Warn().Msg("mail sender not configured, follow-up emails disabled")
	}

	// Intake pipeline
	deps := service.Deps{
		Submissions: submissionRepo,
		Converter:   processor.DefaultRegistry(log),
		Extractor:   extractor.New(),
		Webhook:     webhook.New(cfg.Webhook),
		Events:      intakeEvents,
	}

	if cfg.Storage.Bucket != "" {
		store, err := objectstore.New(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create object store")
		}
		deps.Storage = store
	} else {
		log.Warn().Msg("storage bucket not configured, CVs will not be uploaded")
	}

	if cfg.Sheets.SpreadsheetID != "" {
		appender, err := sheets.New(ctx, cfg.Sheets)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create sheets client")
		}
		deps.Sheet = appender
	} else {
		log.Warn().Msg("spreadsheet not configured, rows will not be appended")
	}

	intakeService := service.NewService(deps, cfg.Webhook.Status, log)
	intakeHandler := handler.NewHandler(intakeService, cfg.Upload, log)

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	intakeHandler.Routes(r)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newGuard connects to Redis for follow-up de-duplication. Without Redis the
// follow_ups unique index is the only guard.
func newGuard(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) followup.Guard {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, follow-up guard disabled")
		_ = client.Close()
		return nil
	}

	return followup.NewRedisGuard(client, cfg.KeyPrefix)
}
