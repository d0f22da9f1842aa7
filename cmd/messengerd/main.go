package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/s-home/messenger-go/internal/config"
	"github.com/s-home/messenger-go/internal/httpapi"
	"github.com/s-home/messenger-go/internal/i18n"
	"github.com/s-home/messenger-go/internal/middleware"
	"github.com/s-home/messenger-go/pkg/attachment"
	"github.com/s-home/messenger-go/pkg/kvstore"
	"github.com/s-home/messenger-go/pkg/logger"
	"github.com/s-home/messenger-go/pkg/messenger"
	"github.com/s-home/messenger-go/pkg/stt"
	"github.com/s-home/messenger-go/pkg/tts"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting messenger daemon...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	storeManager, err := kvstore.NewManager(kvstore.Config{
		Type:   cfg.Storage.Type,
		File:   kvstore.FileConfig{Path: cfg.Storage.File.Path},
		Pebble: kvstore.PebbleConfig{Path: cfg.Storage.Pebble.Path},
		Redis: kvstore.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		},
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer storeManager.Close()

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg, log)

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Record every storage call the widget makes
	store := middleware.NewInstrumentedStore(storeManager, metrics)

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	lang := cfg.I18n.DefaultLanguage

	// Initialize widget. The daemon's send handler simply echoes the user
	// text back; real deployments replace this with their model backend.
	var widget *messenger.Widget
	widget, err = messenger.New(messenger.Options{
		OnSend: func(args messenger.SendArgs) {
			widget.AddMessages(messenger.Message{
				Type:    messenger.TypeBot,
				Content: args.Text,
			})
		},
		Persist:          cfg.Widget.Persist,
		Store:            store,
		StorageKey:       cfg.Widget.StorageKey,
		InputPlaceholder: localizer.Get(lang, i18n.MsgInputPlaceholder, nil),
		TTSDefaultOn:     cfg.Widget.TTSDefaultOn,
		TTS: tts.Config{
			Enabled:       cfg.Speech.Output.Enabled,
			Lang:          cfg.Speech.Output.Lang,
			VoiceName:     cfg.Speech.Output.VoiceName,
			VoiceIncludes: cfg.Speech.Output.VoiceIncludes,
			Pitch:         cfg.Speech.Output.Pitch,
			Rate:          cfg.Speech.Output.Rate,
			Volume:        cfg.Speech.Output.Volume,
			MaxChunkLen:   cfg.Speech.Output.MaxChunkLen,
			OnChunk:       func(string) { metrics.RecordUtterance() },
		},
		// no server-side recognizer exists; the config still flows through
		// so a host embedding the library sees the intended wiring
		STT: stt.Config{
			Enabled: cfg.Speech.Input.Enabled,
			Lang:    cfg.Speech.Input.Lang,
		},
		Attachment: attachment.Options{
			MaxSide:         cfg.Image.MaxSide,
			MaxBytes:        cfg.Image.MaxBytes,
			PreferredFormat: cfg.Image.PreferredFormat,
			Quality:         cfg.Image.Quality,
		},
		LabelUser: map[string]string{
			messenger.TypeBot:  localizer.Get(lang, i18n.MsgBotLabel, nil),
			messenger.TypeUser: localizer.Get(lang, i18n.MsgUserLabel, nil),
		},
		Logger: log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize widget")
	}

	if err := widget.Mount(ctx); err != nil {
		log.WithError(err).Fatal("Failed to mount widget")
	}
	metrics.SetActiveSessions(1)

	// Initialize HTTP API
	api := httpapi.NewAPI(cfg, widget, rateLimiter, metrics, localizer, log)
	server := api.Server()

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down API server")
	}

	widget.Close()
	metrics.SetActiveSessions(0)
	cancel()

	// Give background persistence writes time to finish
	time.Sleep(2 * time.Second)

	log.Info("Messenger daemon stopped")
}
