package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/app"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults to $CONFIG_FILE)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("telegram-media-downloader %s (built %s)\n", Version, BuildTime)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize configuration")
	}

	logutils.InitLoggerWithFormat(cfg.LogLevel, cfg.LogFormat)
	lang.Setup(cfg.Lang)
	logutils.Log.WithFields(map[string]any{
		"version":    Version,
		"build_time": BuildTime,
		"lang":       lang.Current(),
	}).Info("Starting Telegram Media Downloader")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, Version)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize application")
	}

	if err := application.Run(ctx); err != nil {
		logutils.Log.WithError(err).Fatal("Application stopped with error")
	}
	logutils.Log.Info("Telegram Media Downloader shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig()
	}
	return config.Load(path)
}
