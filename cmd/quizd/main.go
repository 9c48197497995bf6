package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mind-engage/quizgen/internal/ai"
	api "github.com/mind-engage/quizgen/internal/api/http"
	"github.com/mind-engage/quizgen/internal/auth"
	authmw "github.com/mind-engage/quizgen/internal/auth/middleware"
	"github.com/mind-engage/quizgen/internal/config"
	"github.com/mind-engage/quizgen/internal/db"
	"github.com/mind-engage/quizgen/internal/grading"
	"github.com/mind-engage/quizgen/internal/hintcache"
	"github.com/mind-engage/quizgen/internal/platform/logger"
	"github.com/mind-engage/quizgen/internal/quiz"
	syncx "github.com/mind-engage/quizgen/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(string(cfg.Mode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	// --- Storage ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		store  quiz.Store
		events quiz.EventRecorder
		ready  func(context.Context) error
	)
	switch cfg.DBDriver {
	case "sqlite", "postgres":
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			log.Fatal("db open failed", "driver", cfg.DBDriver, "error", err)
		}
		defer closeDB(dbh, log)
		store = quiz.NewSQLStore(dbh, cfg.DBDriver)
		events = syncx.NewEventRepo(dbh)
		ready = dbh.PingContext
	case "mongo":
		ms, err := quiz.DialMongo(cfg.MongoURL, cfg.DBName, 10*time.Second)
		if err != nil {
			log.Fatal("mongo dial failed", "error", err)
		}
		defer ms.Close()
		store = ms
		ready = func(context.Context) error { return ms.Ping() }
	default:
		log.Warn("using in-memory store; data is lost on restart")
		store = quiz.NewInMemoryStore()
	}

	opts := quiz.Options{
		StrictParse:       cfg.StrictParse,
		RetakeHideAnswers: cfg.RetakeHideAnswers,
		Events:            events,
	}
	if !cfg.RetakeHideAnswers {
		log.Warn("retake responses include correct answers; set QUIZ_RETAKE_HIDE_ANSWERS=true to strip them")
	}

	// --- Hint cache (optional) ---
	if cfg.RedisAddr != "" {
		hc, err := hintcache.NewRedis(cfg.RedisAddr, cfg.HintCacheTTL, log)
		if err != nil {
			log.Warn("hint cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer hc.Close()
			opts.Hints = hc
		}
	}

	// --- Services ---
	completer := ai.NewClient(ai.Config{APIKey: cfg.AIKey, BaseURL: cfg.AIBaseURL, Model: cfg.AIModel}, log)
	svc := quiz.NewService(store, completer, grading.NewDefaultGrader(grading.WithFoldLetters(cfg.FoldLetters)), log, opts)
	tokens := authmw.NewAuthService(cfg.JWTSecret)
	accounts := auth.NewAccounts(store, tokens, cfg.AutoRegister)

	router := api.NewRouter(api.Deps{
		Log:        log,
		Quiz:       svc,
		Accounts:   accounts,
		Tokens:     tokens,
		CORSOrigin: cfg.CORSOrigin,
		Ready:      ready,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "model", cfg.AIModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("server failed", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func closeDB(dbh *sql.DB, log *logger.Logger) {
	if err := dbh.Close(); err != nil {
		log.Warn("db close", "error", err)
	}
}
