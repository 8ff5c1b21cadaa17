package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

const (
	defaultTongyiBaseURL = "https://dashscope.aliyuncs.com"
	defaultTongyiModel   = "wanx-v1"

	tongyiSynthesisPath = "/api/v1/services/aigc/text2image/image-synthesis"
	tongyiTaskPath      = "/api/v1/tasks/"
)

// TongyiGenerator drives the DashScope (Tongyi Wanxiang) asynchronous
// text-to-image API: a submit call returns a task id, and the task endpoint
// is polled until it reports a terminal state.
type TongyiGenerator struct {
	cfg    TongyiConfig
	client *http.Client
}

// NewTongyiGenerator constructs the DashScope generator.
func NewTongyiGenerator(cfg TongyiConfig) *TongyiGenerator {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultTongyiBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultTongyiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &TongyiGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the provider in results and logs.
func (g *TongyiGenerator) Name() string { return "tongyi" }

type tongyiSubmitRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
	Parameters struct {
		N    int    `json:"n"`
		Size string `json:"size"`
	} `json:"parameters"`
}

type tongyiResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Output    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Message    string `json:"message"`
		Results    []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"output"`
}

// Submit enqueues one generation task. Any initial state other than an
// accepted (pending/running) status is an immediate failure.
func (g *TongyiGenerator) Submit(ctx context.Context, prompt string) (string, error) {
	payload := tongyiSubmitRequest{Model: g.cfg.Model}
	payload.Input.Prompt = prompt
	payload.Parameters.N = 1
	payload.Parameters.Size = "1024*1024"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewProviderFailure(g.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+tongyiSynthesisPath, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewProviderFailure(g.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DashScope-Async", "enable")

	resp, err := g.do(req)
	if err != nil {
		return "", err
	}

	if resp.Output.TaskID == "" {
		return "", apperrors.NewProviderFailure(g.Name(), fmt.Errorf("submit rejected: %s %s", resp.Code, resp.Message))
	}
	status := mapTongyiStatus(resp.Output.TaskStatus)
	if status != StatusPending && status != StatusRunning {
		return "", apperrors.NewProviderFailure(g.Name(), fmt.Errorf("submit returned status %s", resp.Output.TaskStatus))
	}

	return resp.Output.TaskID, nil
}

// Poll reports the current state of a generation task. On success the first
// result URL is extracted; an empty result list is a provider failure.
func (g *TongyiGenerator) Poll(ctx context.Context, taskID string) (PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+tongyiTaskPath+taskID, nil)
	if err != nil {
		return PollResult{}, apperrors.NewProviderFailure(g.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.do(req)
	if err != nil {
		return PollResult{}, err
	}

	status := mapTongyiStatus(resp.Output.TaskStatus)
	result := PollResult{Status: status, Message: resp.Output.Message}

	if status == StatusSucceeded {
		if len(resp.Output.Results) == 0 {
			return PollResult{}, apperrors.NewProviderFailure(g.Name(), fmt.Errorf("task %s succeeded with no results", taskID))
		}
		result.ImageURL = resp.Output.Results[0].URL
	}

	return result, nil
}

func (g *TongyiGenerator) do(req *http.Request) (*tongyiResponse, error) {
	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderFailure(g.Name(), err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewProviderFailure(g.Name(), fmt.Errorf("read response: %w", err))
	}

	var resp tongyiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewProviderFailure(g.Name(), fmt.Errorf("decode response: %w", err))
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, apperrors.NewProviderFailure(g.Name(),
			fmt.Errorf("http %d: %s %s", httpResp.StatusCode, resp.Code, resp.Message))
	}

	return &resp, nil
}

func mapTongyiStatus(status string) Status {
	switch strings.ToUpper(status) {
	case "PENDING":
		return StatusPending
	case "RUNNING":
		return StatusRunning
	case "SUCCEEDED":
		return StatusSucceeded
	case "FAILED", "CANCELED", "UNKNOWN":
		return StatusFailed
	default:
		return StatusFailed
	}
}
