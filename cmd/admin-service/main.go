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
	"github.com/vitalsort/triage/pkg/common/logger"
	"github.com/vitalsort/triage/pkg/gateway/auth"
	"github.com/vitalsort/triage/pkg/gateway/middleware"
	"github.com/vitalsort/triage/pkg/identity"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := identity.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate identity tables")
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure jwt manager")
	}

	var oidcAuth *auth.OIDCAuthenticator
	if cfg.OIDCIssuer != "" {
		redirectURL := fmt.Sprintf("http://%s:%s/api/v1/admin/sso/callback", cfg.ServerHost, cfg.AdminServicePort)
		oidcAuth, err = auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, redirectURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to configure oidc")
		}
		logger.Log.WithField("issuer", cfg.OIDCIssuer).Info("OIDC SSO enabled")
	}

	service := identity.NewService(repo)
	handler := identity.NewHandler(service, jwtManager, oidcAuth)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/admin").Subrouter()
	handler.RegisterPublic(api)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(jwtManager))
	protected.Use(middleware.RequireRole("admin"))
	handler.RegisterProtected(protected)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.AdminServicePort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Admin service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start admin service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down admin service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Admin service forced to shutdown")
	}
	logger.Log.Info("Admin service stopped")
}
