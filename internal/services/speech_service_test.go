package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minzhou/babydraw/internal/cache"
	testutil "github.com/minzhou/babydraw/internal/database/testutil"
	"github.com/minzhou/babydraw/internal/providers/speech"
	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

type countingRecognizer struct {
	calls int
	text  string
	err   error
}

func (r *countingRecognizer) Name() string { return "stub" }

func (r *countingRecognizer) Recognize(_ context.Context, _ []byte) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.text, nil
}

func newTestSpeechService(t *testing.T, recognizer speech.Recognizer) *SpeechService {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	svc, err := NewSpeechService(store, speech.Config{AllowMock: true}, WithRecognizer(recognizer))
	require.NoError(t, err)
	return svc
}

func TestSpeechServiceCachesRecognitions(t *testing.T) {
	recognizer := &countingRecognizer{text: "小猫咪"}
	svc := newTestSpeechService(t, recognizer)
	ctx := context.Background()

	audio := []byte("RIFF fake wav payload")

	first, err := svc.Recognize(ctx, audio)
	require.NoError(t, err)
	require.Equal(t, "小猫咪", first.Text)
	require.False(t, first.FromCache)
	require.Equal(t, 1, recognizer.calls)

	second, err := svc.Recognize(ctx, audio)
	require.NoError(t, err)
	require.Equal(t, "小猫咪", second.Text)
	require.True(t, second.FromCache)
	require.Equal(t, 1, recognizer.calls)
}

func TestSpeechServiceDistinctAudioMisses(t *testing.T) {
	recognizer := &countingRecognizer{text: "小狗狗"}
	svc := newTestSpeechService(t, recognizer)
	ctx := context.Background()

	_, err := svc.Recognize(ctx, []byte("first clip"))
	require.NoError(t, err)

	_, err = svc.Recognize(ctx, []byte("second clip"))
	require.NoError(t, err)
	require.Equal(t, 2, recognizer.calls)
}

func TestSpeechServiceProviderErrorsPropagate(t *testing.T) {
	recognizer := &countingRecognizer{err: apperrors.NewProviderFailure("stub", context.DeadlineExceeded)}
	svc := newTestSpeechService(t, recognizer)

	_, err := svc.Recognize(context.Background(), []byte("audio"))
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.ErrProviderFailure))

	// Failures are not cached; the provider is consulted again.
	_, err = svc.Recognize(context.Background(), []byte("audio"))
	require.Error(t, err)
	require.Equal(t, 2, recognizer.calls)
}

func TestSpeechServiceUnconfiguredFailsFast(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	svc, err := NewSpeechService(store, speech.Config{})
	require.NoError(t, err)
	require.Equal(t, "none", svc.Provider())

	_, err = svc.Recognize(context.Background(), []byte("audio"))
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.ErrSpeechNotConfigured))
}
