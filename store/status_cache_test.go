package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"videogen/models"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		delete(f.ttls, key)
	}
	return nil
}

func TestStatusCache_SetGetRoundtrip(t *testing.T) {
	kv := newFakeKV()
	sc := &StatusCache{cache: kv}
	ctx := context.Background()

	job := &models.Job{
		ID:              "vid_abc",
		Status:          models.StatusGeneratingVideos,
		ProgressPercent: 48,
		CurrentStep:     "Generating video for scene 2/5...",
		CreatedAt:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if err := sc.Set(ctx, job); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok := kv.values["job:status:vid_abc"]; !ok {
		t.Fatal("Snapshot not stored under the job status key")
	}
	if ttl := kv.ttls["job:status:vid_abc"]; ttl != 10*time.Minute {
		t.Errorf("Expected 10m expiry, got %s", ttl)
	}

	snap, err := sc.Get(ctx, "vid_abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Status != models.StatusGeneratingVideos {
		t.Errorf("Expected generating_videos, got %s", snap.Status)
	}
	if snap.ProgressPercent != 48 {
		t.Errorf("Expected progress 48, got %d", snap.ProgressPercent)
	}
	if snap.CurrentStep != job.CurrentStep {
		t.Errorf("Unexpected step: %s", snap.CurrentStep)
	}
	if !snap.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("CreatedAt changed across the roundtrip: %s", snap.CreatedAt)
	}
}

func TestStatusCache_ErrorMessageSurvives(t *testing.T) {
	kv := newFakeKV()
	sc := &StatusCache{cache: kv}
	ctx := context.Background()

	job := &models.Job{
		ID:           "vid_err",
		Status:       models.StatusError,
		ErrorMessage: "script generation failed: model unavailable",
	}
	if err := sc.Set(ctx, job); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	snap, err := sc.Get(ctx, "vid_err")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.ErrorMessage != job.ErrorMessage {
		t.Errorf("Expected error message to survive, got %q", snap.ErrorMessage)
	}
}

func TestStatusCache_MissAndDelete(t *testing.T) {
	kv := newFakeKV()
	sc := &StatusCache{cache: kv}
	ctx := context.Background()

	if _, err := sc.Get(ctx, "vid_missing"); err == nil {
		t.Error("Expected an error on cache miss")
	}

	job := &models.Job{ID: "vid_gone", Status: models.StatusPending}
	if err := sc.Set(ctx, job); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := sc.Delete(ctx, "vid_gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := sc.Get(ctx, "vid_gone"); err == nil {
		t.Error("Expected an error after delete")
	}
}
