package image

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

// Status is the lifecycle state an asynchronous generation task reports.
type Status string

// Task states. Pending and Running continue the poll loop; Succeeded and
// Failed are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends the submit/poll protocol.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// PollResult is one observation of an asynchronous generation task.
type PollResult struct {
	Status   Status
	ImageURL string
	Message  string
}

// Generator drives one asynchronous text-to-image job: Submit hands the
// rendered prompt to the provider and returns a task identifier, Poll reports
// the task state until it becomes terminal.
type Generator interface {
	Name() string
	Submit(ctx context.Context, prompt string) (string, error)
	Poll(ctx context.Context, taskID string) (PollResult, error)
}

// Config carries the credentials used to choose the active image provider.
type Config struct {
	AllowMock bool
	Tongyi    TongyiConfig
}

// TongyiConfig holds DashScope (Tongyi Wanxiang) settings.
type TongyiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func (c TongyiConfig) configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Select resolves the active generator from configuration: tongyi when its
// API key is present, else the mock provider when explicitly allowed, else a
// configuration error. Selection happens once per orchestrator instance.
func Select(cfg Config) (Generator, error) {
	switch {
	case cfg.Tongyi.configured():
		return NewTongyiGenerator(cfg.Tongyi), nil
	case cfg.AllowMock:
		return NewMockGenerator(), nil
	default:
		return nil, apperrors.ErrImageNotConfigured
	}
}
