package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/assetverse/assetverse/internal/model"
)

type mockSessionRepo struct {
	DeleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error         { return nil }
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }
func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return m.DeleteExpiredFn(ctx)
}

type mockMetrics struct {
	purged []int64
}

func (m *mockMetrics) RecordSessionsPurged(count int64) {
	m.purged = append(m.purged, count)
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

// TestRun_DeletesExpiredSessions は期限切れセッションの削除件数が記録されることを検証する。
func TestRun_DeletesExpiredSessions(t *testing.T) {
	repo := &mockSessionRepo{
		DeleteExpiredFn: func(ctx context.Context) (int64, error) { return 7, nil },
	}
	metrics := &mockMetrics{}
	var buf bytes.Buffer

	job := NewSessionCleanupJob(repo, testLogger(&buf), metrics)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(metrics.purged) != 1 || metrics.purged[0] != 7 {
		t.Errorf("purged = %v, want [7]", metrics.purged)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["deleted_count"] != float64(7) {
		t.Errorf("deleted_count = %v, want 7", entry["deleted_count"])
	}
}

// TestRun_NoExpiredSessions は削除対象ゼロ件でもエラーにならないことを検証する。
func TestRun_NoExpiredSessions(t *testing.T) {
	repo := &mockSessionRepo{
		DeleteExpiredFn: func(ctx context.Context) (int64, error) { return 0, nil },
	}
	var buf bytes.Buffer

	job := NewSessionCleanupJob(repo, testLogger(&buf), nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

// TestRun_RepositoryError はリポジトリのエラーが伝播することを検証する。
func TestRun_RepositoryError(t *testing.T) {
	repo := &mockSessionRepo{
		DeleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	var buf bytes.Buffer

	job := NewSessionCleanupJob(repo, testLogger(&buf), nil)
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
