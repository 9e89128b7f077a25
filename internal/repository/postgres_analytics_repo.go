package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresAnalyticsRepo はPostgreSQLを使用した集計リポジトリ。
type PostgresAnalyticsRepo struct {
	db *sql.DB
}

// NewPostgresAnalyticsRepo はPostgresAnalyticsRepoを生成する。
func NewPostgresAnalyticsRepo(db *sql.DB) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{db: db}
}

// CountAssetsByType はHRの資産を区分ごとに集計する。
func (r *PostgresAnalyticsRepo) CountAssetsByType(ctx context.Context, hrUserID string) ([]model.AssetTypeCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(quantity), 0)
		 FROM assets
		 WHERE hr_user_id = $1
		 GROUP BY type
		 ORDER BY type`,
		hrUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("資産区分の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	var counts []model.AssetTypeCount
	for rows.Next() {
		var c model.AssetTypeCount
		if err := rows.Scan(&c.Type, &c.AssetCount, &c.TotalQuantity); err != nil {
			return nil, fmt.Errorf("集計行の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("集計結果の走査に失敗しました: %w", err)
	}

	return counts, nil
}

// TopRequestedAssets はリクエスト数上位の資産をlimit件返す。
// 取り消されたリクエストは集計から除外する。
func (r *PostgresAnalyticsRepo) TopRequestedAssets(ctx context.Context, hrUserID string, limit int) ([]model.TopRequestedAsset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.name, COUNT(req.id) AS request_count
		 FROM assets a
		 JOIN requests req ON req.asset_id = a.id AND req.status != 'cancelled'
		 WHERE a.hr_user_id = $1
		 GROUP BY a.id, a.name
		 ORDER BY request_count DESC, a.name ASC
		 LIMIT $2`,
		hrUserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("リクエスト上位資産の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	var top []model.TopRequestedAsset
	for rows.Next() {
		var t model.TopRequestedAsset
		if err := rows.Scan(&t.AssetID, &t.AssetName, &t.RequestCount); err != nil {
			return nil, fmt.Errorf("集計行の読み取りに失敗しました: %w", err)
		}
		top = append(top, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("集計結果の走査に失敗しました: %w", err)
	}

	return top, nil
}

// compile-time interface check
var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
