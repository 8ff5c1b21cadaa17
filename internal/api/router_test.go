package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/minzhou/babydraw/internal/app"
	"github.com/minzhou/babydraw/internal/cache"
	testutil "github.com/minzhou/babydraw/internal/database/testutil"
	"github.com/minzhou/babydraw/internal/providers/image"
	"github.com/minzhou/babydraw/internal/providers/speech"
	"github.com/minzhou/babydraw/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	speechSvc, err := services.NewSpeechService(store, speech.Config{AllowMock: true})
	require.NoError(t, err)

	imageSvc, err := services.NewImageService(store, image.Config{AllowMock: true},
		services.WithPollInterval(time.Millisecond),
		services.WithPollBudget(100*time.Millisecond),
	)
	require.NoError(t, err)

	drawingSvc, err := services.NewDrawingService(db, speechSvc, imageSvc)
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, cfg, Services{
		Store:    store,
		Speech:   speechSvc,
		Images:   imageSvc,
		Drawings: drawingSvc,
	})
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := doJSON(t, router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"status":"ok"`)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)
}

func TestRouterCacheEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/cache", `{"key":"demo","value":"payload","ttl":60}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/cache/demo", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"value":"payload"`)

	w = doJSON(t, router, http.MethodGet, "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_count"`)

	w = doJSON(t, router, http.MethodDelete, "/api/cache/demo", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/cache/demo", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterCacheValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/cache", `{"value":"missing key"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterImageGeneration(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/images/generate", `{"prompt":"小猫咪","style":"简笔画","steps":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			FinalImageURL string   `json:"final_image_url"`
			StepImages    []string `json:"step_images"`
			FromCache     bool     `json:"from_cache"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NotEmpty(t, envelope.Data.FinalImageURL)
	require.Len(t, envelope.Data.StepImages, 2)
	require.False(t, envelope.Data.FromCache)
}

func TestRouterImageGenerationValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/images/generate", `{"style":"简笔画"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/images/generate", `{"prompt":"小猫咪","steps":99}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterDrawingLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/drawings", `{"text":"小猫咪","steps":2}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID         string   `json:"id"`
			OwnerID    string   `json:"owner_id"`
			StepImages []string `json:"step_images"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)
	require.Equal(t, "anonymous", created.Data.OwnerID)
	require.Len(t, created.Data.StepImages, 2)

	w = doJSON(t, router, http.MethodGet, "/api/drawings", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), created.Data.ID)

	w = doJSON(t, router, http.MethodGet, "/api/drawings/"+created.Data.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	// A different owner cannot delete the drawing.
	req := httptest.NewRequest(http.MethodDelete, "/api/drawings/"+created.Data.ID, nil)
	req.Header.Set("X-Owner-ID", "someone-else")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/drawings/"+created.Data.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/drawings/"+created.Data.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterStatusEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"speech_provider":"mock"`)
	require.Contains(t, w.Body.String(), `"image_provider":"mock"`)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "babydraw_")
}
