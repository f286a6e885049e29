package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"postable/config"
	"postable/database"
	"postable/handlers"
	"postable/repository"
	"postable/routes"
	"postable/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load failed")
	}

	log := newLogger(cfg)

	ctx := context.Background()

	// The database may still be coming up when we are; retry a few times
	// before giving up.
	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = database.Connect(ctx, cfg.Database)
		if err == nil {
			break
		}
		if attempt == 3 {
			log.Fatal().Err(err).Msg("could not connect to postgres")
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("postgres connection failed, retrying")
		time.Sleep(2 * time.Second)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := database.Migrate(ctx, pool, log); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	files, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("could not set up the file store")
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := repository.NewUserRepository(pool, log, cfg.Auth.BcryptCost)
	postRepo := repository.NewPostRepository(pool, log)

	userHandler := handlers.NewUserHandler(userRepo, files, cfg.Auth.JWTSecret, log)
	postHandler := handlers.NewPostHandler(postRepo, log)

	router := routes.Setup(userHandler, postHandler, cfg.Auth.JWTSecret, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := zerolog.New(os.Stdout)
	if cfg.AppEnv == "development" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return out.Level(level).With().Timestamp().Logger()
}
