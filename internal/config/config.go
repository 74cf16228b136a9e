package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

const (
	DefaultTempDir                = "/tmp/telegram_downloader"
	DefaultDownloadTimeout        = 15 * time.Minute
	DefaultProgressUpdateInterval = 5 * time.Second
	DefaultUploadLimitMB          = 50
	DefaultMaxFilesPerPost        = 10
	DefaultSendDelay              = 500 * time.Millisecond
	DefaultCaptionLimit           = 300
	DefaultInstagramUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	BackendAuto  = "auto"
	BackendYtdlp = "ytdlp"
	BackendKkdai = "kkdai"
)

type Config struct {
	BotToken     string  `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	LogLevel     string  `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat    string  `yaml:"log_format" envconfig:"LOG_FORMAT"`
	Lang         string  `yaml:"lang" envconfig:"BOT_LANG"`
	TempDir      string  `yaml:"temp_dir" envconfig:"TEMP_DIR"`
	AllowedUsers []int64 `yaml:"allowed_users" envconfig:"ALLOWED_USERS"`
	Proxy        string  `yaml:"proxy" envconfig:"PROXY"`
	ProxyDomains string  `yaml:"proxy_domains" envconfig:"PROXY_DOMAINS"`
	DatabasePath string  `yaml:"db_path" envconfig:"DB_PATH"`
	HealthAddr   string  `yaml:"health_addr" envconfig:"HEALTH_ADDR"`

	DownloadSettings    DownloadConfig    `yaml:"download"`
	YouTubeSettings     YouTubeConfig     `yaml:"youtube"`
	InstagramSettings   InstagramConfig   `yaml:"instagram"`
	CompressionSettings CompressionConfig `yaml:"compression"`
	RateLimitSettings   RateLimitConfig   `yaml:"rate_limit"`
}

type DownloadConfig struct {
	MaxConcurrentDownloads int           `yaml:"max_concurrent" envconfig:"MAX_CONCURRENT_DOWNLOADS"`
	DownloadTimeout        time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT"`
	ProgressUpdateInterval time.Duration `yaml:"progress_interval" envconfig:"PROGRESS_UPDATE_INTERVAL"`
	UploadLimitMB          int64         `yaml:"upload_limit_mb" envconfig:"UPLOAD_LIMIT_MB"`
	MaxFilesPerPost        int           `yaml:"max_files_per_post" envconfig:"MAX_FILES_PER_POST"`
	SendDelay              time.Duration `yaml:"send_delay" envconfig:"SEND_DELAY"`
	MinFreeSpaceMB         int64         `yaml:"min_free_space_mb" envconfig:"MIN_FREE_SPACE_MB"`
}

type YouTubeConfig struct {
	YtdlpPath      string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	CookiesFile    string        `yaml:"cookies_file" envconfig:"YT_COOKIES_FILE"`
	PlayerClients  string        `yaml:"player_clients" envconfig:"YT_PLAYER_CLIENTS"`
	Format         string        `yaml:"format" envconfig:"YT_FORMAT"`
	MaxDownloadMB  int64         `yaml:"max_download_mb" envconfig:"YT_MAX_DOWNLOAD_MB"`
	UpdateInterval time.Duration `yaml:"update_interval" envconfig:"YTDLP_UPDATE_INTERVAL"`
	Backend        string        `yaml:"backend" envconfig:"YT_BACKEND"`
}

type InstagramConfig struct {
	Username        string        `yaml:"username" envconfig:"IG_USERNAME"`
	Password        string        `yaml:"password" envconfig:"IG_PASSWORD"`
	SessionDir      string        `yaml:"session_dir" envconfig:"IG_SESSION_DIR"`
	InstaloaderPath string        `yaml:"instaloader_path" envconfig:"INSTALOADER_PATH"`
	CookiesFile     string        `yaml:"cookies_file" envconfig:"IG_COOKIES_FILE"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"IG_REQUEST_TIMEOUT"`
	UserAgent       string        `yaml:"user_agent" envconfig:"IG_USER_AGENT"`
	CaptionLimit    int           `yaml:"caption_limit" envconfig:"IG_CAPTION_LIMIT"`
}

type CompressionConfig struct {
	Enabled          bool          `yaml:"enabled" envconfig:"COMPRESSION_ENABLED"`
	FFmpegPath       string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	FFprobePath      string        `yaml:"ffprobe_path" envconfig:"FFPROBE_PATH"`
	Preset           string        `yaml:"preset" envconfig:"FFMPEG_PRESET"`
	AudioBitrateKbps int           `yaml:"audio_bitrate_kbps" envconfig:"FFMPEG_AUDIO_BITRATE_KBPS"`
	MaxHeight        int           `yaml:"max_height" envconfig:"FFMPEG_MAX_HEIGHT"`
	Timeout          time.Duration `yaml:"timeout" envconfig:"COMPRESSION_TIMEOUT"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests" envconfig:"RATE_LIMIT_REQUESTS"`
	Window   time.Duration `yaml:"window" envconfig:"RATE_LIMIT_WINDOW"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: logutils.FormatText,
		Lang:      "en",
		TempDir:   DefaultTempDir,

		DownloadSettings: DownloadConfig{
			MaxConcurrentDownloads: 3,
			DownloadTimeout:        DefaultDownloadTimeout,
			ProgressUpdateInterval: DefaultProgressUpdateInterval,
			UploadLimitMB:          DefaultUploadLimitMB,
			MaxFilesPerPost:        DefaultMaxFilesPerPost,
			SendDelay:              DefaultSendDelay,
			MinFreeSpaceMB:         200,
		},

		YouTubeSettings: YouTubeConfig{
			YtdlpPath:      "yt-dlp",
			PlayerClients:  "ios,android,web",
			MaxDownloadMB:  300,
			UpdateInterval: 24 * time.Hour,
			Backend:        BackendAuto,
		},

		InstagramSettings: InstagramConfig{
			SessionDir:      ".",
			InstaloaderPath: "instaloader",
			RequestTimeout:  60 * time.Second,
			UserAgent:       DefaultInstagramUserAgent,
			CaptionLimit:    DefaultCaptionLimit,
		},

		CompressionSettings: CompressionConfig{
			Enabled:          true,
			FFmpegPath:       "ffmpeg",
			FFprobePath:      "ffprobe",
			Preset:           "fast",
			AudioBitrateKbps: 128,
			MaxHeight:        720,
			Timeout:          15 * time.Minute,
		},

		RateLimitSettings: RateLimitConfig{
			Requests: 5,
			Window:   time.Minute,
		},
	}
}

// NewConfig loads configuration using CONFIG_FILE, if set, as the YAML source.
func NewConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load builds the configuration in order of precedence: defaults, YAML file, environment.
// A .env file in the working directory is loaded into the environment first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logutils.Log.WithError(err).Warn("Failed to load .env file")
	}

	cfg := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, utils.WrapError(err, "read config file", map[string]any{"path": configPath})
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, utils.WrapError(err, "parse config file", map[string]any{"path": configPath})
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, utils.WrapError(utils.ErrConfigurationError, "process environment: "+err.Error(), nil)
	}

	if err := cfg.validate(); err != nil {
		return nil, utils.WrapError(err, "configuration validation failed", map[string]any{
			"config_file": configPath,
		})
	}

	logutils.Log.Debug("Configuration loaded successfully")
	return cfg, nil
}

func (c *Config) GetDownloadSettings() DownloadConfig {
	return c.DownloadSettings
}

// UploadLimit is the largest file, in bytes, the bot will try to send.
func (c *Config) UploadLimit() int64 {
	return utils.MBToBytes(c.DownloadSettings.UploadLimitMB)
}

func (c *Config) MinFreeSpace() int64 {
	return utils.MBToBytes(c.DownloadSettings.MinFreeSpaceMB)
}

func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (y YouTubeConfig) MaxDownloadSize() int64 {
	return utils.MBToBytes(y.MaxDownloadMB)
}

// SessionFile is the instaloader session path for the configured account, empty when anonymous.
func (i InstagramConfig) SessionFile() string {
	if i.Username == "" {
		return ""
	}
	return filepath.Join(i.SessionDir, "session-"+i.Username)
}

func (i InstagramConfig) HasCredentials() bool {
	return i.Username != ""
}

// InstagramFromEnv returns the Instagram section built from defaults and the
// environment alone, for tools that do not need the rest of the configuration.
func InstagramFromEnv() (InstagramConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logutils.Log.WithError(err).Warn("Failed to load .env file")
	}
	settings := defaultConfig().InstagramSettings
	if err := envconfig.Process("", &settings); err != nil {
		return InstagramConfig{}, utils.WrapError(utils.ErrConfigurationError, "process environment: "+err.Error(), nil)
	}
	return settings, nil
}
