package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/leo/leo-picture-client/internal/config"
	"github.com/leo/leo-picture-client/internal/handler"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/service/account"
	"github.com/leo/leo-picture-client/internal/service/ai"
	"github.com/leo/leo-picture-client/internal/service/edit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", false)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	accounts := account.NewService()

	if cfg.AI.Enabled() {
		log.Info().Str("model", cfg.AI.Model).Msg("using Ark chat model")
	} else {
		log.Info().Msg("Ark 凭证未配置，使用本地 echo 模型")
	}
	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize AI service, continuing without AI functionality")
		aiService = nil
	}

	router := handler.NewRouter(accounts, aiService, edit.NewHub())

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("picture dev server listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
