package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	logx "newsplaces/pkg/logx"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "data", "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetSetting(ctx, "EMAIL_SEND_TIME"); err != nil || ok {
		t.Fatalf("GetSetting on empty db = ok:%v err:%v", ok, err)
	}
	if err := db.PutSetting(ctx, "EMAIL_SEND_TIME", "09:30"); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if err := db.PutSetting(ctx, "EMAIL_SEND_TIME", "10:15"); err != nil {
		t.Fatalf("PutSetting overwrite: %v", err)
	}
	v, ok, err := db.GetSetting(ctx, "EMAIL_SEND_TIME")
	if err != nil || !ok || v != "10:15" {
		t.Fatalf("GetSetting = %q ok:%v err:%v", v, ok, err)
	}

	all, err := db.ListSettings(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListSettings = %v err:%v", all, err)
	}

	if err := db.DeleteSetting(ctx, "EMAIL_SEND_TIME"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if _, ok, _ := db.GetSetting(ctx, "EMAIL_SEND_TIME"); ok {
		t.Fatalf("expected setting to be gone")
	}
}

func TestNewsPublishedBetween(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	items := []News{
		{Title: "yesterday", PublishedAt: day.Add(-time.Hour)},
		{Title: "morning", PublishedAt: day.Add(7 * time.Hour), MainImage: []byte{1, 2, 3}},
		{Title: "evening", PublishedAt: day.Add(20 * time.Hour), Author: "ed"},
		{Title: "tomorrow", PublishedAt: day.Add(24 * time.Hour)},
	}
	for i := range items {
		if err := db.CreateNews(ctx, &items[i]); err != nil {
			t.Fatalf("CreateNews: %v", err)
		}
		if items[i].ID == 0 {
			t.Fatalf("expected ID to be assigned")
		}
	}

	got, err := db.NewsPublishedBetween(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("NewsPublishedBetween: %v", err)
	}
	if len(got) != 2 || got[0].Title != "morning" || got[1].Title != "evening" {
		t.Fatalf("unexpected news: %+v", got)
	}
	if string(got[0].MainImage) != "\x01\x02\x03" || got[0].PreviewImage != nil {
		t.Fatalf("image blobs not preserved: %+v", got[0])
	}
	if got[1].Author != "ed" {
		t.Fatalf("author = %q", got[1].Author)
	}

	all, err := db.ListNews(ctx)
	if err != nil || len(all) != 4 || all[0].Title != "tomorrow" {
		t.Fatalf("ListNews = %+v err:%v", all, err)
	}
}

func TestNewsNotFound(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	if _, err := db.GetNews(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetNews err = %v, want ErrNotFound", err)
	}
	err := db.UpdateNews(context.Background(), &News{ID: 42, Title: "x", PublishedAt: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateNews err = %v, want ErrNotFound", err)
	}
}

func TestPlacesAndWeather(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	p := Place{Name: "Red Square", Longitude: 37.62, Latitude: 55.75, Rating: 20}
	if err := db.CreatePlace(ctx, &p); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		w := WeatherSummary{PlaceID: p.ID, Timestamp: base.Add(time.Duration(i) * time.Hour), Temperature: float64(i)}
		if err := db.AddWeatherSummary(ctx, &w); err != nil {
			t.Fatalf("AddWeatherSummary: %v", err)
		}
	}

	got, err := db.ListWeatherSummaries(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("ListWeatherSummaries: %v", err)
	}
	if len(got) != 2 || got[0].Temperature != 2 || got[1].Temperature != 1 {
		t.Fatalf("expected newest first, got %+v", got)
	}

	if err := db.DeletePlace(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlace: %v", err)
	}
	got, err = db.ListWeatherSummaries(ctx, p.ID, 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected weather history to cascade, got %d err:%v", len(got), err)
	}
}

func TestLastRun(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.LastRun(ctx, "weather"); ok || err != nil {
		t.Fatalf("LastRun on empty db ok:%v err:%v", ok, err)
	}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	if err := db.SetLastRun(ctx, "weather", at); err != nil {
		t.Fatalf("SetLastRun: %v", err)
	}
	if err := db.SetLastRun(ctx, "weather", at.Add(time.Hour)); err != nil {
		t.Fatalf("SetLastRun: %v", err)
	}
	got, ok, err := db.LastRun(ctx, "weather")
	if err != nil || !ok || !got.Equal(at.Add(time.Hour)) {
		t.Fatalf("LastRun = %v ok:%v err:%v", got, ok, err)
	}
}

func TestTaskRunsPrune(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	db.pruneEvery = 5
	db.keepRuns = 3
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := db.AppendTaskRun(ctx, TaskRun{
			ID:         uuid.NewString(),
			Name:       "send_digest",
			Status:     "ok",
			Attempts:   1,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AppendTaskRun: %v", err)
		}
	}

	runs, err := db.ListTaskRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListTaskRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected prune to keep 3 runs, got %d", len(runs))
	}
	if !runs[0].FinishedAt.After(runs[1].FinishedAt) {
		t.Fatalf("expected newest first")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{}, logx.Nop()); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
