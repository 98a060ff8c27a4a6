package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"story-intake-go/internal/api"
	"story-intake-go/internal/config"
	"story-intake-go/internal/logger"
	"story-intake-go/internal/mailer"
	"story-intake-go/internal/pipeline"
	"story-intake-go/internal/staging"
	"story-intake-go/internal/store"
	"story-intake-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "story-intake-go").Info("starting service")

	cfg := config.FromEnv()

	st, err := store.New(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		log.WithError(err).Fatal("failed to build store")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Connect(ctx); err != nil {
		cancel()
		log.WithError(err).Fatal("failed to reach mongodb")
	}
	cancel()
	log.WithField("collection", cfg.MongoCollection).Info("store connected")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("store close failed")
		}
	}()

	holder, err := staging.New(cfg.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("failed to prepare upload staging directory")
	}
	log.WithField("upload_dir", cfg.UploadDir).Info("staging ready")

	transcriber := transcription.NewClient(cfg.TranscribeURL, cfg.TranscribeTimeout)
	notifier := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.MailTimeout)
	pipe := pipeline.New(st, transcriber, notifier, holder, cfg.TranscribeTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})
	mux.Handle("/api/stories", api.NewHandler(pipe, cfg.MaxUploadBytes))

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-done
	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
