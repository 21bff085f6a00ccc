package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/stride/internal/api"
	"example.com/stride/internal/config"
	persistence "example.com/stride/internal/persistence/postgres"
	"example.com/stride/internal/strava"
	"example.com/stride/internal/syncer"
	"example.com/stride/internal/token"
	httptransport "example.com/stride/internal/transport/http"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "stride").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	databaseURL, err := cfg.DatabaseURL()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	tokens := persistence.NewTokenRepository(pool)
	activities := persistence.NewActivityRepository(pool)
	logbook := persistence.NewSessionLogRepository(pool)

	oauthCfg := strava.NewOAuthConfig(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaRedirectURL)
	manager := token.NewManager(oauthCfg, tokens)
	client := strava.NewClient()
	orchestrator := syncer.NewOrchestrator(manager, client, activities, logbook, logger)

	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		// Random per-process secret: sessions will not survive a restart.
		sessionSecret = uuid.NewString()
		logger.Warn().Msg("SESSION_SECRET not set, using an ephemeral secret")
	}
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	handler := api.NewHandler(oauthCfg, manager, orchestrator, activities, store, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}

	server := httptransport.NewServer(httptransport.DefaultConfig(cfg.HTTPAddress), requestLog(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
