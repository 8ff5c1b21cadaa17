package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/babydraw.sqlite", cfg.Database.Path)

	require.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	require.Equal(t, 24, cfg.Cache.ImageTTLMultiplier)
	require.Equal(t, "@hourly", cfg.Cache.SweepSchedule)

	require.False(t, cfg.Providers.AllowMock)
	require.Equal(t, "iat-api.xfyun.cn", cfg.Providers.XFYun.Host)
	require.Equal(t, "https://dashscope.aliyuncs.com", cfg.Providers.Tongyi.BaseURL)
	require.Equal(t, "wanx-v1", cfg.Providers.Tongyi.Model)
	require.Equal(t, 30*time.Second, cfg.Providers.Tongyi.Timeout)
	require.Equal(t, time.Second, cfg.Providers.Tongyi.PollInterval)
	require.Equal(t, time.Minute, cfg.Providers.Tongyi.PollTimeout)

	require.Equal(t, int64(10<<20), cfg.Uploads.MaxAudioBytes)

	require.Equal(t, 100, cfg.RateLimit.MaxRequests)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("BABYDRAW_SERVER_PORT", "9000")
	t.Setenv("BABYDRAW_PROVIDERS_ALLOW_MOCK", "true")
	t.Setenv("BABYDRAW_CACHE_DEFAULT_TTL", "30m")
	t.Setenv("BABYDRAW_PROVIDERS_TONGYI_API_KEY", "sk-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.True(t, cfg.Providers.AllowMock)
	require.Equal(t, 30*time.Minute, cfg.Cache.DefaultTTL)
	require.Equal(t, "sk-env", cfg.Providers.Tongyi.APIKey)
}

func TestConfigProviderConversions(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.Providers.AllowMock = true
	cfg.Providers.XFYun.AppID = "app"
	cfg.Providers.XFYun.APIKey = "key"
	cfg.Providers.Tongyi.APIKey = "sk-test"

	speechCfg := cfg.SpeechConfig()
	require.True(t, speechCfg.AllowMock)
	require.Equal(t, "app", speechCfg.XFYun.AppID)
	require.Equal(t, "iat-api.xfyun.cn", speechCfg.XFYun.Host)

	imageCfg := cfg.ImageConfig()
	require.Equal(t, "sk-test", imageCfg.Tongyi.APIKey)
	require.Equal(t, "wanx-v1", imageCfg.Tongyi.Model)

	dbCfg := cfg.DatabaseConfig()
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "./data/babydraw.sqlite", dbCfg.Path)
}
