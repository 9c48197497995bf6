package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/quizgen/internal/auth"
	authmw "github.com/mind-engage/quizgen/internal/auth/middleware"
	"github.com/mind-engage/quizgen/internal/platform/logger"
	"github.com/mind-engage/quizgen/internal/quiz"
)

// Deps is everything the router needs to serve requests.
type Deps struct {
	Log        *logger.Logger
	Quiz       *quiz.Service
	Accounts   *auth.Accounts
	Tokens     *authmw.AuthService
	CORSOrigin string
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(log), middleware.Recoverer)
	r.Use(limitBody(MaxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(ar chi.Router) {
		ar.Use(middleware.Timeout(30 * time.Second))
		ar.Post("/login", LoginHandler(d.Accounts, log))
		ar.Post("/register", RegisterHandler(d.Accounts, log))
	})

	// Quiz routes wait on the model for as long as it takes; only the
	// client going away cancels them.
	r.Route("/quiz", func(qr chi.Router) {
		qr.Use(authmw.JWTMiddleware(d.Tokens))
		qr.Post("/generate", GenerateQuizHandler(d.Quiz, log))
		qr.Post("/submit", SubmitQuizHandler(d.Quiz, log))
		qr.Get("/history", HistoryHandler(d.Quiz, log))
		qr.Get("/retake", RetakeHandler(d.Quiz, log))
		qr.Post("/{quizId}/hint/{questionId}", HintHandler(d.Quiz, log))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				log.Warn("not ready", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
