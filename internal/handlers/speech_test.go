package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/minzhou/babydraw/internal/cache"
	testutil "github.com/minzhou/babydraw/internal/database/testutil"
	"github.com/minzhou/babydraw/internal/providers/speech"
	"github.com/minzhou/babydraw/internal/services"
)

func newSpeechTestRouter(t *testing.T, maxBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	svc, err := services.NewSpeechService(store, speech.Config{AllowMock: true})
	require.NoError(t, err)

	handler, err := NewSpeechHandler(svc, maxBytes)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/speech/recognize", handler.Recognize)
	return r
}

func postAudio(t *testing.T, router *gin.Engine, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/speech/recognize", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSpeechRecognizeEndpoint(t *testing.T) {
	router := newSpeechTestRouter(t, 0)

	audio := make([]byte, 20)
	copy(audio, "RIFF")

	w := postAudio(t, router, audio)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"text":"小猫咪"`)
	require.Contains(t, w.Body.String(), `"provider":"mock"`)
	require.Contains(t, w.Body.String(), `"from_cache":false`)

	// The identical clip is served from the cache.
	w = postAudio(t, router, audio)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"from_cache":true`)
}

func TestSpeechRecognizeRejectsMissingFile(t *testing.T) {
	router := newSpeechTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/speech/recognize", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpeechRecognizeEnforcesSizeCap(t *testing.T) {
	router := newSpeechTestRouter(t, 16)

	w := postAudio(t, router, make([]byte, 64))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
