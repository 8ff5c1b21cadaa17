package image

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

func newTongyiTestServer(t *testing.T, handler http.HandlerFunc) *TongyiGenerator {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewTongyiGenerator(TongyiConfig{
		APIKey:  "sk-test",
		BaseURL: server.URL,
	})
}

func TestTongyiSubmit(t *testing.T) {
	generator := newTongyiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, tongyiSynthesisPath, r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.Equal(t, "enable", r.Header.Get("X-DashScope-Async"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "wanx-v1", payload["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":{"task_id":"task-1","task_status":"PENDING"}}`))
	})

	taskID, err := generator.Submit(context.Background(), "小猫咪, simple line drawing")
	require.NoError(t, err)
	require.Equal(t, "task-1", taskID)
}

func TestTongyiSubmitRejection(t *testing.T) {
	generator := newTongyiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"InvalidParameter","message":"prompt required"}`))
	})

	_, err := generator.Submit(context.Background(), "")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.ErrProviderFailure))
}

func TestTongyiPollLifecycle(t *testing.T) {
	statuses := []string{"PENDING", "RUNNING", "SUCCEEDED"}
	calls := 0

	generator := newTongyiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, tongyiTaskPath+"task-1", r.URL.Path)

		status := statuses[calls]
		calls++

		w.Header().Set("Content-Type", "application/json")
		if status == "SUCCEEDED" {
			w.Write([]byte(`{"output":{"task_id":"task-1","task_status":"SUCCEEDED","results":[{"url":"https://cdn.example.com/cat.png"}]}}`))
			return
		}
		w.Write([]byte(`{"output":{"task_id":"task-1","task_status":"` + status + `"}}`))
	})

	ctx := context.Background()

	result, err := generator.Poll(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, result.Status)

	result, err = generator.Poll(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, result.Status)

	result, err = generator.Poll(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, result.Status)
	require.Equal(t, "https://cdn.example.com/cat.png", result.ImageURL)
}

func TestTongyiPollSucceededWithoutResults(t *testing.T) {
	generator := newTongyiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":{"task_id":"task-1","task_status":"SUCCEEDED","results":[]}}`))
	})

	_, err := generator.Poll(context.Background(), "task-1")
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.ErrProviderFailure))
}

func TestTongyiPollFailedTask(t *testing.T) {
	generator := newTongyiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":{"task_id":"task-1","task_status":"FAILED","message":"content rejected"}}`))
	})

	result, err := generator.Poll(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.Equal(t, "content rejected", result.Message)
}
