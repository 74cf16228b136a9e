package downloader

import (
	"context"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

// RunUpdaters checks every external tool for updates at startup, then once per
// interval until ctx ends. A non-positive interval means startup only. Tools
// are updated one after another so two updates never race for the network.
func RunUpdaters(ctx context.Context, interval time.Duration, updaters ...Updater) {
	if len(updaters) == 0 {
		return
	}
	runAll(ctx, updaters)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logutils.Log.WithFields(map[string]any{
		"interval": interval.String(),
		"tools":    len(updaters),
	}).Info("Scheduled external tool updates")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runAll(ctx, updaters)
		}
	}
}

func runAll(ctx context.Context, updaters []Updater) {
	for _, u := range updaters {
		if ctx.Err() != nil {
			return
		}
		if u != nil {
			u.RunUpdate(ctx)
		}
	}
}
