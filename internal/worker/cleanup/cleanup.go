// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// expires_atを超過したセッション行を定期バッチで削除する。
// セッション行の削除がサインアウト通知そのものであるため、
// 削除後のCookie提示は全て匿名に解決される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assetverse/assetverse/internal/repository"
)

// MetricsRecorder は削除件数のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSessionsPurged(count int64)
}

// SessionCleanupJob は期限切れセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SessionCleanupJob struct {
	sessionRepo repository.SessionRepository
	logger      *slog.Logger
	metrics     MetricsRecorder
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。metricsはnilを許容する。
func NewSessionCleanupJob(sessionRepo repository.SessionRepository, logger *slog.Logger, metrics MetricsRecorder) *SessionCleanupJob {
	return &SessionCleanupJob{
		sessionRepo: sessionRepo,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run は期限切れセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsPurged(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start はジョブを起動直後に1回実行し、以後intervalごとに繰り返す。
// ctxのキャンセルで停止する。
func (j *SessionCleanupJob) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}
