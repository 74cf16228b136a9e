// Command ig-session logs in to Instagram once and stores the instaloader
// session file the bot uses for downloads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/config"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/downloader/instagram"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults to $CONFIG_FILE)")
	username := flag.String("username", "", "Instagram username (overrides IG_USERNAME)")
	flag.Parse()

	logutils.InitLogger("info")

	settings, err := loadSettings(*configPath)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to load configuration")
	}
	if *username != "" {
		settings.Username = *username
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, err := instagram.CreateSession(ctx, settings, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, explain(err))
		os.Exit(1)
	}
	fmt.Printf("Session saved to %s\n", path)
}

// loadSettings reads only the Instagram section. The bot token is not needed
// here, so a failed full validation is not fatal when the section itself is usable.
func loadSettings(path string) (config.InstagramConfig, error) {
	load := config.NewConfig
	if path != "" {
		load = func() (*config.Config, error) { return config.Load(path) }
	}
	cfg, err := load()
	if err == nil {
		return cfg.InstagramSettings, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.InstagramConfig{}, err
	}
	logutils.Log.WithError(err).Warn("Configuration is incomplete, using Instagram settings from the environment")
	return config.InstagramFromEnv()
}

func explain(err error) string {
	switch {
	case errors.Is(err, instagram.ErrNoCredentials):
		return "Set IG_USERNAME (or pass -username) before creating a session."
	case errors.Is(err, instagram.ErrTwoFactor):
		return "Two-factor authentication is required. Run again and enter the code when prompted."
	case errors.Is(err, instagram.ErrBadCredentials):
		return "Instagram rejected the username or password."
	case errors.Is(err, instagram.ErrLoginConnection):
		return "Could not reach Instagram. Check the network or proxy and try again."
	case errors.Is(err, downloader.ErrToolNotFound):
		return "instaloader is not installed. Install it with: pip install instaloader"
	default:
		return "Login failed: " + err.Error()
	}
}
