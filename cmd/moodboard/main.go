package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"moodboard/internal/bot"
	"moodboard/internal/config"
	"moodboard/internal/scraper"
	"moodboard/internal/service"
	"moodboard/internal/storage"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.WithFields(logrus.Fields{
		"badgerdb_path":  cfg.BadgerDBPath,
		"screenshot_dir": cfg.ScreenshotDir,
	}).Info("Configuration loaded successfully")

	// --- Initialize Components ---
	log.Info("Initializing components...")

	// Database: one handle for the process lifetime, closed on teardown.
	store, err := storage.NewBadgerStore(cfg.BadgerDBPath, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		log.Info("Closing database...")
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	// Scraper + service layer
	rodScraper := scraper.NewRodScraper(cfg.ScreenshotDir, log)
	svc := service.New(store, rodScraper, service.Options{
		SimulatedLatency: time.Duration(cfg.SimulatedLatencyMS) * time.Millisecond,
		ScrapeTimeout:    time.Duration(cfg.ScrapeTimeoutSeconds) * time.Second,
	}, log)

	// Bot handler
	botHandler, err := bot.NewHandler(cfg, svc, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
	}

	// --- Application Startup ---
	log.Info("Starting Moodboard...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go botHandler.Start(ctx)

	log.Info("Moodboard is running. Press Ctrl+C to exit.")

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	// --- Graceful Shutdown ---
	log.Info("Shutting down Moodboard...")
	stop()

	// The deferred store.Close() runs now.
	log.Info("Moodboard shut down gracefully.")
}
