package config

import (
	"os"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

var (
	validLogFormats = map[string]struct{}{logutils.FormatText: {}, logutils.FormatJSON: {}}
	validBackends   = map[string]struct{}{BackendAuto: {}, BackendYtdlp: {}, BackendKkdai: {}}
	validLangs      = map[string]struct{}{"en": {}, "ru": {}}
)

func (c *Config) validate() error {
	if err := c.validateRequiredFields(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDownloadSettings(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateInstagram(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	return c.validateRateLimit()
}

func (c *Config) validateRequiredFields() error {
	var missingFields []string

	if c.BotToken == "" {
		missingFields = append(missingFields, "BOT_TOKEN")
	}
	if c.TempDir == "" {
		missingFields = append(missingFields, "TEMP_DIR")
	}

	if len(missingFields) > 0 {
		return utils.WrapError(utils.ErrConfigurationError, "missing required settings", map[string]any{
			"missing_fields": missingFields,
		})
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := validLogFormats[c.LogFormat]; !ok {
		return utils.WrapError(utils.ErrConfigurationError, "unknown log format", map[string]any{
			"log_format": c.LogFormat,
		})
	}
	if _, ok := validLangs[c.Lang]; !ok {
		logutils.Log.WithField("lang", c.Lang).Warn("Unsupported language, falling back to en")
		c.Lang = "en"
	}
	return nil
}

func (c *Config) validateDownloadSettings() error {
	d := c.DownloadSettings
	if d.MaxConcurrentDownloads <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "max concurrent downloads must be positive", nil)
	}
	if d.DownloadTimeout < 0 {
		return utils.WrapError(utils.ErrConfigurationError, "download timeout cannot be negative", nil)
	}
	if d.UploadLimitMB <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "upload limit must be positive", map[string]any{
			"upload_limit_mb": d.UploadLimitMB,
		})
	}
	if d.MaxFilesPerPost <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "max files per post must be positive", nil)
	}
	if d.SendDelay < 0 || d.ProgressUpdateInterval < 0 || d.MinFreeSpaceMB < 0 {
		return utils.WrapError(utils.ErrConfigurationError, "download intervals and sizes cannot be negative", nil)
	}
	return nil
}

func (c *Config) validateYouTube() error {
	y := c.YouTubeSettings
	if _, ok := validBackends[y.Backend]; !ok {
		return utils.WrapError(utils.ErrConfigurationError, "unknown youtube backend", map[string]any{
			"backend": y.Backend,
		})
	}
	if y.MaxDownloadMB < c.DownloadSettings.UploadLimitMB {
		return utils.WrapError(utils.ErrConfigurationError, "youtube max download size is below the upload limit", map[string]any{
			"max_download_mb": y.MaxDownloadMB,
			"upload_limit_mb": c.DownloadSettings.UploadLimitMB,
		})
	}
	if y.CookiesFile != "" {
		if _, err := os.Stat(y.CookiesFile); err != nil {
			return utils.WrapError(utils.ErrConfigurationError, "youtube cookies file is not readable", map[string]any{
				"path": y.CookiesFile,
			})
		}
	}
	return nil
}

func (c *Config) validateInstagram() error {
	ig := c.InstagramSettings
	if ig.Password != "" && ig.Username == "" {
		return utils.WrapError(utils.ErrConfigurationError, "IG_PASSWORD requires IG_USERNAME", nil)
	}
	if ig.Username != "" && ig.Password == "" {
		if _, err := os.Stat(ig.SessionFile()); err != nil {
			return utils.WrapError(utils.ErrConfigurationError,
				"IG_USERNAME is set without IG_PASSWORD and no saved session exists", map[string]any{
					"session_file": ig.SessionFile(),
				})
		}
	}
	if ig.CaptionLimit < 0 {
		return utils.WrapError(utils.ErrConfigurationError, "caption limit cannot be negative", nil)
	}
	return nil
}

func (c *Config) validateCompression() error {
	cc := c.CompressionSettings
	if !cc.Enabled {
		return nil
	}
	if cc.AudioBitrateKbps <= 0 || cc.MaxHeight <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "compression audio bitrate and max height must be positive", map[string]any{
			"audio_bitrate_kbps": cc.AudioBitrateKbps,
			"max_height":         cc.MaxHeight,
		})
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimitSettings.Requests < 0 {
		return utils.WrapError(utils.ErrConfigurationError, "rate limit requests cannot be negative", nil)
	}
	if c.RateLimitSettings.Requests > 0 && c.RateLimitSettings.Window <= 0 {
		return utils.WrapError(utils.ErrConfigurationError, "rate limit window must be positive", nil)
	}
	return nil
}
