package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"story-intake-go/internal/config"
	"story-intake-go/internal/export"
	"story-intake-go/internal/logger"
	"story-intake-go/internal/store"
)

// Operator tool: dump every stored story into an XLSX workbook for review.
func main() {
	_ = godotenv.Load()

	out := flag.String("out", "stories.xlsx", "output workbook path")
	flag.Parse()

	log := logger.New().WithField("tool", "export")
	cfg := config.FromEnv()

	st, err := store.New(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		log.WithError(err).Fatal("failed to build store")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.Connect(ctx); err != nil {
		log.WithError(err).Fatal("failed to reach mongodb")
	}
	defer st.Close(ctx)

	stories, err := st.ListStories(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to list stories")
	}
	if err := export.WriteStories(stories, *out); err != nil {
		log.WithError(err).Fatal("failed to write workbook")
	}
	log.WithField("count", len(stories)).WithField("path", *out).Info("export complete")
}
