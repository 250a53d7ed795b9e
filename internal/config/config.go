package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	// OTP challenge validity window.
	OTPTTL time.Duration

	// SMTP settings for the order-confirmation mailer. When SMTPHost is
	// empty the app falls back to the log notifier (dev mode).
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	TemplateDir string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "gardenly.db" // sqlite file in project root
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./gardenly.log"
	}

	ttl := 10 * time.Minute
	if v := os.Getenv("OTP_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Minute
		}
	}

	tmplDir := os.Getenv("TEMPLATE_DIR")
	if tmplDir == "" {
		tmplDir = "./web/templates"
	}

	cfg := Config{
		Port:        port,
		DBDSN:       dsn,
		LogFile:     logFile,
		OTPTTL:      ttl,
		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPPort:    os.Getenv("SMTP_PORT"),
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		SMTPFrom:    os.Getenv("SMTP_FROM"),
		TemplateDir: tmplDir,
	}
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587"
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = "no-reply@gardenly.test"
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s OTP_TTL=%s SMTP_HOST=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.OTPTTL, cfg.SMTPHost)
	return cfg
}
