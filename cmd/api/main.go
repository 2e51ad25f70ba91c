package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"photorestore/internal/auth"
	"photorestore/internal/domain"
	"photorestore/internal/http/handlers"
	httpapi "photorestore/internal/http/httpapi"
	"photorestore/internal/infra"
	"photorestore/internal/infra/credentials"
	"photorestore/internal/providers/replicate"
	"photorestore/internal/providers/supabase"
	"photorestore/internal/restore"
	"photorestore/internal/usage"
)

func main() {
	// Optional .env
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Postgres is optional: it backs the daily quota and the stored provider token.
	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	var (
		creds domain.CredentialRepository
		quota *usage.Quota
	)
	if dbpool != nil {
		defer dbpool.Close()
		runner := infra.NewSQLRunner(dbpool, logger)
		creds = credentials.NewStore(runner)
		quota = usage.NewQuota(usage.NewLedger(runner), cfg.DailyQuota, &logger)
		logger.Info().Int("daily_quota", cfg.DailyQuota).Msg("database configured")
	}

	lookupCtx, cancelLookup := context.WithTimeout(ctx, 5*time.Second)
	token, err := credentials.ResolveProviderToken(lookupCtx, cfg.Provider.APIToken, creds)
	cancelLookup()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load stored provider token")
	}
	if token == "" {
		logger.Warn().Msg("REPLICATE_API_TOKEN not configured; restorations will be rejected")
	}

	idClient := supabase.NewClient(supabase.Options{
		BaseURL:        cfg.Identity.BaseURL,
		AnonKey:        cfg.Identity.AnonKey,
		Logger:         &logger,
		RequestTimeout: cfg.Identity.RequestTimeout,
	})
	var validator auth.TokenValidator = auth.NewRemoteValidator(idClient)
	if cfg.Identity.JWTSecret != "" {
		validator = auth.NewLocalValidator(cfg.Identity.JWTSecret, cfg.Identity.JWTAudience)
	}
	var refresher auth.SessionRefresher
	if idClient.Configured() {
		refresher = idClient
	}
	sessions := &auth.SessionCodec{Name: cfg.Identity.SessionCookieName, Secure: cfg.IsProduction()}
	resolver := auth.NewResolver(&logger,
		auth.BearerStrategy(validator),
		auth.CookieStrategy(validator, refresher, sessions, &logger),
	)

	provider := replicate.NewClient(replicate.Options{
		APIToken:       token,
		BaseURL:        cfg.Provider.BaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.Provider.RequestTimeout,
	})

	app := &handlers.App{
		Config: cfg,
		Logger: logger,
		Restorer: restore.NewService(restore.Options{
			Provider:     provider,
			ModelVersion: cfg.Provider.ModelVersion,
			Config:       cfg.Restore,
			Logger:       &logger,
		}),
		Quota:     quota,
		Validator: validator,
		Identity:  idClient,
		Sessions:  sessions,
	}

	router := httpapi.NewRouter(app, resolver)
	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
