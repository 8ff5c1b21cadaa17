package speech

import (
	"context"
	"strings"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

// Recognizer converts raw audio bytes into recognised text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// Config carries the credentials used to choose the active speech provider.
// Presence of credentials, not their validity, drives selection.
type Config struct {
	AllowMock bool
	XFYun     XFYunConfig
	Aliyun    AliyunConfig
}

// XFYunConfig holds iFLYTEK open-platform credentials.
type XFYunConfig struct {
	AppID     string
	APIKey    string
	APISecret string
	Host      string
}

func (c XFYunConfig) configured() bool {
	return strings.TrimSpace(c.AppID) != "" && strings.TrimSpace(c.APIKey) != ""
}

// AliyunConfig holds Alibaba Cloud NLS credentials.
type AliyunConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	AppKey          string
	Endpoint        string
}

func (c AliyunConfig) configured() bool {
	return strings.TrimSpace(c.AccessKeyID) != "" && strings.TrimSpace(c.AccessKeySecret) != ""
}

// Select resolves the active recogniser from configuration. The priority order
// is fixed: xfyun, then aliyun, then the mock provider when explicitly allowed.
// With no candidate the capability fails fast with a configuration error.
func Select(cfg Config) (Recognizer, error) {
	switch {
	case cfg.XFYun.configured():
		return NewXFYunRecognizer(cfg.XFYun), nil
	case cfg.Aliyun.configured():
		return NewAliyunRecognizer(cfg.Aliyun), nil
	case cfg.AllowMock:
		return NewMockRecognizer(), nil
	default:
		return nil, apperrors.ErrSpeechNotConfigured
	}
}
