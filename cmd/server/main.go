package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"safespace/internal/ai"
	"safespace/internal/config"
	"safespace/internal/db"
	"safespace/internal/handlers"
	mw "safespace/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		logger.Fatal("failed to ping db", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}

	dispatcher, err := ai.NewDispatcher(cfg.GroqAPIKeys, cfg.GroqModel, logger)
	if err != nil {
		logger.Fatal("failed to start analyzer", zap.Error(err))
	}

	authHandler := handlers.NewAuthHandler(dbConn, []byte(cfg.JWTSecret))
	journalHandler := handlers.NewJournalHandler(dbConn, dispatcher)
	insightsHandler := handlers.NewInsightsHandler(dbConn, dispatcher)
	userHandler := handlers.NewUserHandler(dbConn)
	affirmationHandler := handlers.NewAffirmationHandler(dbConn)
	manifestationHandler := handlers.NewManifestationHandler(dbConn)
	communityHandler := handlers.NewCommunityHandler(dbConn)
	adminHandler := handlers.NewAdminHandler(dbConn)
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(mw.ZapRequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Use(httprate.LimitByIP(100, 15*time.Minute))

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Post("/journal", journalHandler.Create)
			pr.Get("/journal", journalHandler.List)
			pr.Get("/journal/stats/overview", journalHandler.StatsOverview)
			pr.Get("/journal/{id}", journalHandler.Get)
			pr.Put("/journal/{id}", journalHandler.Update)
			pr.Delete("/journal/{id}", journalHandler.Delete)
			pr.Post("/journal/{id}/favorite", journalHandler.ToggleFavorite)

			pr.Get("/insights", insightsHandler.Get)
			pr.Get("/insights/mood", insightsHandler.Mood)
			pr.Get("/insights/patterns", insightsHandler.Patterns)
			pr.Get("/insights/progress", insightsHandler.Progress)
			pr.Get("/insights/comprehensive", insightsHandler.Comprehensive)

			pr.Get("/user/dashboard", userHandler.Dashboard)
			pr.Get("/user/profile", userHandler.Profile)
			pr.Put("/user/profile", userHandler.UpdateProfile)
			pr.Get("/user/leaderboard", userHandler.Leaderboard)

			pr.Get("/affirmations", affirmationHandler.List)
			pr.Post("/affirmations", affirmationHandler.Create)
			pr.Put("/affirmations/{id}", affirmationHandler.Update)
			pr.Delete("/affirmations/{id}", affirmationHandler.Delete)

			pr.Get("/manifestations", manifestationHandler.List)
			pr.Post("/manifestations", manifestationHandler.Create)
			pr.Put("/manifestations/{id}", manifestationHandler.Update)
			pr.Delete("/manifestations/{id}", manifestationHandler.Delete)

			pr.Get("/community", communityHandler.Feed)

			pr.Get("/admin/overview", adminHandler.Overview)
		})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("server stopped")
}
