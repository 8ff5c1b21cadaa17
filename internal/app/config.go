package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/minzhou/babydraw/internal/database"
	"github.com/minzhou/babydraw/internal/providers/image"
	"github.com/minzhou/babydraw/internal/providers/speech"
)

// Config represents the runtime configuration for the BabyDraw backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Providers ProviderConfig  `mapstructure:"providers"`
	Uploads   UploadConfig    `mapstructure:"uploads"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	LogLevel    string   `mapstructure:"log_level"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig tunes the database-backed cache.
type CacheConfig struct {
	DefaultTTL         time.Duration `mapstructure:"default_ttl"`
	ImageTTLMultiplier int           `mapstructure:"image_ttl_multiplier"`
	SweepSchedule      string        `mapstructure:"sweep_schedule"`
}

// ProviderConfig gathers external AI provider credentials.
type ProviderConfig struct {
	AllowMock bool         `mapstructure:"allow_mock"`
	XFYun     XFYunConfig  `mapstructure:"xfyun"`
	Aliyun    AliyunConfig `mapstructure:"aliyun"`
	Tongyi    TongyiConfig `mapstructure:"tongyi"`
}

// XFYunConfig holds iFlytek speech recognition credentials.
type XFYunConfig struct {
	AppID     string `mapstructure:"app_id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Host      string `mapstructure:"host"`
}

// AliyunConfig holds Alibaba NLS speech recognition credentials.
type AliyunConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	AppKey          string `mapstructure:"app_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

// TongyiConfig holds DashScope image generation settings.
type TongyiConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// UploadConfig caps incoming uploads.
type UploadConfig struct {
	MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
}

// RateLimitConfig tunes the fixed-window request limiter.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("BABYDRAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/babydraw.sqlite")

	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.image_ttl_multiplier", 24)
	v.SetDefault("cache.sweep_schedule", "@hourly")

	v.SetDefault("providers.allow_mock", false)
	v.SetDefault("providers.xfyun.host", "iat-api.xfyun.cn")
	v.SetDefault("providers.aliyun.endpoint", "https://nls-gateway.cn-shanghai.aliyuncs.com")
	v.SetDefault("providers.tongyi.base_url", "https://dashscope.aliyuncs.com")
	v.SetDefault("providers.tongyi.model", "wanx-v1")
	v.SetDefault("providers.tongyi.timeout", "30s")
	v.SetDefault("providers.tongyi.poll_interval", "1s")
	v.SetDefault("providers.tongyi.poll_timeout", "60s")

	v.SetDefault("uploads.max_audio_bytes", 10<<20)

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", "1m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// DatabaseConfig converts the app-level settings into the database package form.
func (c *Config) DatabaseConfig() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "postgres", "postgresql":
		cfg.Host = c.Database.Postgres.Host
		cfg.Port = c.Database.Postgres.Port
		cfg.Name = c.Database.Postgres.Database
		cfg.User = c.Database.Postgres.Username
		cfg.Password = c.Database.Postgres.Password
	case "mysql", "mariadb":
		cfg.Host = c.Database.MySQL.Host
		cfg.Port = c.Database.MySQL.Port
		cfg.Name = c.Database.MySQL.Database
		cfg.User = c.Database.MySQL.Username
		cfg.Password = c.Database.MySQL.Password
	}

	return cfg
}

// SpeechConfig converts provider settings into the speech package form.
func (c *Config) SpeechConfig() speech.Config {
	return speech.Config{
		AllowMock: c.Providers.AllowMock,
		XFYun: speech.XFYunConfig{
			AppID:     c.Providers.XFYun.AppID,
			APIKey:    c.Providers.XFYun.APIKey,
			APISecret: c.Providers.XFYun.APISecret,
			Host:      c.Providers.XFYun.Host,
		},
		Aliyun: speech.AliyunConfig{
			AccessKeyID:     c.Providers.Aliyun.AccessKeyID,
			AccessKeySecret: c.Providers.Aliyun.AccessKeySecret,
			AppKey:          c.Providers.Aliyun.AppKey,
			Endpoint:        c.Providers.Aliyun.Endpoint,
		},
	}
}

// ImageConfig converts provider settings into the image package form.
func (c *Config) ImageConfig() image.Config {
	return image.Config{
		AllowMock: c.Providers.AllowMock,
		Tongyi: image.TongyiConfig{
			APIKey:  c.Providers.Tongyi.APIKey,
			BaseURL: c.Providers.Tongyi.BaseURL,
			Model:   c.Providers.Tongyi.Model,
			Timeout: c.Providers.Tongyi.Timeout,
		},
	}
}
