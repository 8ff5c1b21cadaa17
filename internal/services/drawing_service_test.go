package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/minzhou/babydraw/internal/cache"
	testutil "github.com/minzhou/babydraw/internal/database/testutil"
	"github.com/minzhou/babydraw/internal/models"
	"github.com/minzhou/babydraw/internal/providers/image"
	"github.com/minzhou/babydraw/internal/providers/speech"
)

func newTestDrawingService(t *testing.T) (*DrawingService, *gorm.DB, cache.Store) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	speechSvc, err := NewSpeechService(store, speech.Config{AllowMock: true})
	require.NoError(t, err)

	imageSvc, err := NewImageService(store, image.Config{AllowMock: true},
		WithPollInterval(time.Millisecond),
		WithPollBudget(100*time.Millisecond),
	)
	require.NoError(t, err)

	svc, err := NewDrawingService(db, speechSvc, imageSvc)
	require.NoError(t, err)
	return svc, db, store
}

func TestDrawingServiceCreateFromText(t *testing.T) {
	svc, db, _ := newTestDrawingService(t)
	ctx := context.Background()

	outcome, err := svc.CreateFromText(ctx, CreateDrawingInput{
		Text:    "小猫咪",
		OwnerID: "parent-1",
		Style:   "简笔画",
		Steps:   3,
	})
	require.NoError(t, err)

	drawing := outcome.Drawing
	require.NotEmpty(t, drawing.ID)
	require.Equal(t, "小猫咪", drawing.Title)
	require.Equal(t, "小猫咪", drawing.Prompt)
	require.Equal(t, "使用简笔画风格绘制的小猫咪", drawing.Description)
	require.Equal(t, "parent-1", drawing.OwnerID)
	require.Equal(t, "简笔画", drawing.Style)
	require.Equal(t, 3, drawing.Steps)
	require.NotEmpty(t, drawing.ImageURL)
	require.Len(t, drawing.StepImageURLs(), 3)

	var count int64
	require.NoError(t, db.Model(&models.Drawing{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestDrawingServiceCreateDefaultsOwnerAndStyle(t *testing.T) {
	svc, _, _ := newTestDrawingService(t)

	outcome, err := svc.CreateFromText(context.Background(), CreateDrawingInput{Text: "小狗狗"})
	require.NoError(t, err)
	require.Equal(t, models.AnonymousOwner, outcome.Drawing.OwnerID)
	require.Equal(t, image.DefaultStyle, outcome.Drawing.Style)
	require.Equal(t, 1, outcome.Drawing.Steps)
}

func TestDrawingServiceCreateRequiresText(t *testing.T) {
	svc, db, _ := newTestDrawingService(t)

	_, err := svc.CreateFromText(context.Background(), CreateDrawingInput{Text: "   "})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Drawing{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestDrawingServiceCreateFromAudio(t *testing.T) {
	svc, _, _ := newTestDrawingService(t)

	// The mock recogniser maps payload length to a fixed word list.
	audio := make([]byte, 20)
	outcome, err := svc.CreateFromAudio(context.Background(), CreateFromAudioInput{
		Audio: audio,
		Steps: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "小猫咪", outcome.Drawing.Prompt)
	require.Len(t, outcome.Drawing.StepImageURLs(), 2)
}

func TestDrawingServiceListNewestFirst(t *testing.T) {
	svc, db, _ := newTestDrawingService(t)
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	titles := []string{"第一", "第二", "第三"}
	for i, title := range titles {
		drawing := models.Drawing{
			Title:    title,
			Prompt:   title,
			ImageURL: "https://img.example.com/seed.png",
			OwnerID:  "parent-1",
			Style:    image.DefaultStyle,
			Steps:    1,
		}
		require.NoError(t, db.Create(&drawing).Error)
		require.NoError(t, db.Model(&drawing).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	drawings, total, err := svc.List(ctx, ListDrawingsOptions{OwnerID: "parent-1"})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, drawings, 3)
	require.Equal(t, "第三", drawings[0].Title)
	require.Equal(t, "第一", drawings[2].Title)

	// Pagination keeps the same ordering.
	page, total, err := svc.List(ctx, ListDrawingsOptions{OwnerID: "parent-1", Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	require.Equal(t, "第二", page[0].Title)
}

func TestDrawingServiceListCapsLimit(t *testing.T) {
	svc, _, _ := newTestDrawingService(t)

	_, _, err := svc.List(context.Background(), ListDrawingsOptions{Limit: 1000})
	require.NoError(t, err)
}

func TestDrawingServiceGet(t *testing.T) {
	svc, _, _ := newTestDrawingService(t)
	ctx := context.Background()

	outcome, err := svc.CreateFromText(ctx, CreateDrawingInput{Text: "小兔子"})
	require.NoError(t, err)

	found, err := svc.Get(ctx, outcome.Drawing.ID)
	require.NoError(t, err)
	require.Equal(t, outcome.Drawing.ID, found.ID)

	_, err = svc.Get(ctx, "missing-id")
	require.ErrorIs(t, err, ErrDrawingNotFound)
}

func TestDrawingServiceDeleteOwnerScoped(t *testing.T) {
	svc, db, _ := newTestDrawingService(t)
	ctx := context.Background()

	outcome, err := svc.CreateFromText(ctx, CreateDrawingInput{
		Text:    "小花朵",
		OwnerID: "parent-1",
	})
	require.NoError(t, err)

	// A mismatched owner must not delete the record.
	deleted, err := svc.Delete(ctx, outcome.Drawing.ID, "parent-2")
	require.NoError(t, err)
	require.False(t, deleted)

	var count int64
	require.NoError(t, db.Model(&models.Drawing{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	deleted, err = svc.Delete(ctx, outcome.Drawing.ID, "parent-1")
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, db.Model(&models.Drawing{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestDrawingServiceStatus(t *testing.T) {
	svc, _, store := newTestDrawingService(t)
	ctx := context.Background()

	_, err := svc.CreateFromText(ctx, CreateDrawingInput{Text: "小汽车", Steps: 2})
	require.NoError(t, err)

	status, err := svc.Status(ctx, store)
	require.NoError(t, err)
	require.Equal(t, "mock", status.SpeechProvider)
	require.Equal(t, "mock", status.ImageProvider)
	require.Equal(t, int64(1), status.TotalDrawings)
	require.Positive(t, status.CacheStats.Total)
}
