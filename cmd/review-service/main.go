package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/vitalsort/triage/pkg/common/config"
	"github.com/vitalsort/triage/pkg/common/database"
	"github.com/vitalsort/triage/pkg/common/kafka"
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/common/models"
	"github.com/vitalsort/triage/pkg/gateway/auth"
	"github.com/vitalsort/triage/pkg/gateway/middleware"
	"github.com/vitalsort/triage/pkg/observability/metrics"
	"github.com/vitalsort/triage/pkg/record"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := record.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate record tables")
	}

	producer := kafka.NewProducer(cfg.RecordEventTopic)
	defer producer.Close()

	service := record.NewService(repo, producer)
	handler := record.NewHandler(service)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure jwt manager")
	}

	// The record topic doubles as the clinical audit trail; every event is
	// written to the structured log where the hospital's collector picks
	// it up.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumer := kafka.NewConsumer(cfg.RecordEventTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		err := consumer.Consume(consumerCtx, func(ctx context.Context, event models.Event) error {
			logger.Log.WithFields(map[string]interface{}{
				"event_type": event.Type,
				"source":     event.Source,
				"data":       event.Data,
			}).Info("Record event")
			return nil
		})
		if err != nil && consumerCtx.Err() == nil {
			logger.Log.WithError(err).Error("Record event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/review").Subrouter()
	api.Use(middleware.Authenticate(jwtManager))
	api.Use(middleware.RequireRole("nurse", "admin"))
	handler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ReviewServicePort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Review service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start review service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down review service...")
	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Review service forced to shutdown")
	}
	logger.Log.Info("Review service stopped")
}
