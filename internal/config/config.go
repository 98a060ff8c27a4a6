package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the service reads from the environment. Built
// once in main and passed down; nothing else touches os.Getenv for wiring.
type Config struct {
	Port string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	UploadDir      string
	MaxUploadBytes int64

	TranscribeURL     string
	TranscribeTimeout time.Duration

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	MailFrom    string
	MailTimeout time.Duration
}

const defaultMaxUploadBytes = 15 << 20 // multipart payload cap, 15 MiB

func FromEnv() Config {
	return Config{
		Port: envOr("PORT", "8080"),

		MongoURI:        envOr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   envOr("MONGODB_DB", "goodbyecycle"),
		MongoCollection: envOr("MONGODB_COLLECTION", "stories"),

		UploadDir:      envOr("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),

		TranscribeURL:     os.Getenv("TRANSCRIBE_URL"),
		TranscribeTimeout: envDuration("TRANSCRIBE_TIMEOUT", 60*time.Second),

		SMTPHost: envOr("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort: int(envInt64("SMTP_PORT", 587)),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom:    envOr("MAIL_FROM", os.Getenv("SMTP_USER")),
		MailTimeout: envDuration("SMTP_TIMEOUT", 30*time.Second),
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
