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
	"github.com/vitalsort/triage/pkg/gateway/middleware"
	"github.com/vitalsort/triage/pkg/intake"
	"github.com/vitalsort/triage/pkg/observability/metrics"
	"github.com/vitalsort/triage/pkg/record"
	"github.com/vitalsort/triage/pkg/redact"
	"github.com/vitalsort/triage/pkg/triage"
	"github.com/vitalsort/triage/pkg/triage/llm"
	"github.com/vitalsort/triage/pkg/triage/rules"
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

	recordService := record.NewService(repo, producer)

	rulesCfg := redact.DefaultRules()
	if cfg.RedactionRulesPath != "" {
		rulesCfg, err = redact.LoadRules(cfg.RedactionRulesPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load redaction rules")
		}
	}
	redactor, err := redact.New(rulesCfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to compile redaction rules")
	}

	// Without an API key the deterministic rules engine handles triage on
	// its own; with one it becomes the safety net under the LLM.
	var classifier triage.Classifier
	if cfg.LLMAPIKey != "" {
		classifier = llm.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.ClassifierTimeout)
		logger.Log.WithField("model", cfg.LLMModelName).Info("Using LLM classifier")
	} else {
		classifier = rules.New()
		logger.Log.Info("LLM_API_KEY not set, using rules classifier")
	}

	machine := intake.NewMachine(classifier, redactor, recordService, intake.Options{
		MaxPatientTurns:    cfg.MaxPatientTurns,
		HistoryWindow:      cfg.HistoryWindow,
		MinUtteranceLength: cfg.MinUtteranceLength,
		MaxUtteranceLength: cfg.MaxUtteranceLength,
		ClassifierTimeout:  cfg.ClassifierTimeout,
	})
	sessionStore := intake.NewSessionStore(database.GetRedis(), cfg.SessionTTL)
	handler := intake.NewHandler(machine, sessionStore)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(10, 30))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/intake").Subrouter()
	handler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.IntakeServicePort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Intake service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start intake service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down intake service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Intake service forced to shutdown")
	}
	logger.Log.Info("Intake service stopped")
}
