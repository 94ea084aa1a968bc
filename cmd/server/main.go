package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codeduels/duel-server/internal/config"
	"github.com/codeduels/duel-server/internal/httpapi"
	"github.com/codeduels/duel-server/internal/hub"
	"github.com/codeduels/duel-server/internal/judge"
	"github.com/codeduels/duel-server/internal/lifecycle"
	"github.com/codeduels/duel-server/internal/session"
	"github.com/codeduels/duel-server/internal/store"
	"github.com/codeduels/duel-server/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	var st store.Store
	if cfg.DatabaseURL != "" {
		gs, err := store.OpenGorm(cfg.DatabaseURL)
		if err != nil {
			sugar.Fatalw("open database", "err", err)
		}
		st = gs
	} else {
		sugar.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemStore()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx)
	sessions := session.NewDirectory()
	mgr := lifecycle.NewManager(st, sessions, h, cfg.DuelDurationMs, sugar)

	engine := judge.NewHTTPEngine(cfg.JudgeURL, cfg.JudgeAuthToken)
	j := judge.New(engine, st, mgr, cfg.JudgePollInterval, cfg.JudgePollAttempts, sugar)

	wsServer := ws.NewServer(h, mgr, sugar)
	handlers := httpapi.NewHandlers(mgr, j, st, sugar)
	verifier := httpapi.NewHMACVerifier(cfg.AuthSecret)
	router := httpapi.SetupRoutes(handlers, verifier, wsServer.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("server exited", "err", err)
		os.Exit(1)
	}
}
