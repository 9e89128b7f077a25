package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresAssignedAssetRepo はPostgreSQLを使用した割り当て済み資産リポジトリ。
type PostgresAssignedAssetRepo struct {
	db *sql.DB
}

// NewPostgresAssignedAssetRepo はPostgresAssignedAssetRepoを生成する。
func NewPostgresAssignedAssetRepo(db *sql.DB) *PostgresAssignedAssetRepo {
	return &PostgresAssignedAssetRepo{db: db}
}

// Create は割り当てを作成する。リクエスト承認トランザクション内で呼ばれる。
func (r *PostgresAssignedAssetRepo) Create(ctx context.Context, tx *sql.Tx, assigned *model.AssignedAsset) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO assigned_assets (id, asset_id, user_id, hr_user_id, assigned_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		assigned.ID, assigned.AssetID, assigned.UserID, assigned.HRUserID, assigned.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("割り当ての作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの割り当てを資産情報付きで取得する。見つからない場合はnilを返す。
func (r *PostgresAssignedAssetRepo) FindByID(ctx context.Context, id string) (*model.AssignedAsset, error) {
	assigned := &model.AssignedAsset{}
	var returnedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT aa.id, aa.asset_id, a.name, a.type, aa.user_id, aa.hr_user_id,
		        aa.assigned_at, aa.returned_at
		 FROM assigned_assets aa
		 JOIN assets a ON a.id = aa.asset_id
		 WHERE aa.id = $1`,
		id,
	).Scan(&assigned.ID, &assigned.AssetID, &assigned.AssetName, &assigned.AssetType,
		&assigned.UserID, &assigned.HRUserID, &assigned.AssignedAt, &returnedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("割り当ての取得に失敗しました: %w", err)
	}
	if returnedAt.Valid {
		assigned.ReturnedAt = &returnedAt.Time
	}
	return assigned, nil
}

// FindActiveByUserAndAsset は従業員の未返却の割り当てを資産IDで検索する。
// 見つからない場合はnilを返す。
func (r *PostgresAssignedAssetRepo) FindActiveByUserAndAsset(ctx context.Context, userID, assetID string) (*model.AssignedAsset, error) {
	assigned := &model.AssignedAsset{}
	var returnedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT aa.id, aa.asset_id, a.name, a.type, aa.user_id, aa.hr_user_id,
		        aa.assigned_at, aa.returned_at
		 FROM assigned_assets aa
		 JOIN assets a ON a.id = aa.asset_id
		 WHERE aa.user_id = $1 AND aa.asset_id = $2 AND aa.returned_at IS NULL
		 ORDER BY aa.assigned_at DESC
		 LIMIT 1`,
		userID, assetID,
	).Scan(&assigned.ID, &assigned.AssetID, &assigned.AssetName, &assigned.AssetType,
		&assigned.UserID, &assigned.HRUserID, &assigned.AssignedAt, &returnedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("割り当ての取得に失敗しました: %w", err)
	}
	if returnedAt.Valid {
		assigned.ReturnedAt = &returnedAt.Time
	}
	return assigned, nil
}

// ListByUser は従業員の未返却の割り当て一覧を資産情報付きで返す。
func (r *PostgresAssignedAssetRepo) ListByUser(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error) {
	where := ` WHERE aa.user_id = $1 AND aa.returned_at IS NULL`
	args := []interface{}{userID}
	argIndex := 2

	if q.Search != "" {
		where += fmt.Sprintf(" AND a.name ILIKE $%d", argIndex)
		args = append(args, "%"+q.Search+"%")
		argIndex++
	}
	if q.Type != "" {
		where += fmt.Sprintf(" AND a.type = $%d", argIndex)
		args = append(args, q.Type)
		argIndex++
	}

	fromClause := ` FROM assigned_assets aa JOIN assets a ON a.id = aa.asset_id`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)`+fromClause+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("割り当て件数の取得に失敗しました: %w", err)
	}

	query := `SELECT aa.id, aa.asset_id, a.name, a.type, aa.user_id, aa.hr_user_id,
		        aa.assigned_at, aa.returned_at` + fromClause + where +
		" ORDER BY aa.assigned_at DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("割り当て一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var list []*model.AssignedAsset
	for rows.Next() {
		assigned := &model.AssignedAsset{}
		var returnedAt sql.NullTime
		if err := rows.Scan(&assigned.ID, &assigned.AssetID, &assigned.AssetName,
			&assigned.AssetType, &assigned.UserID, &assigned.HRUserID,
			&assigned.AssignedAt, &returnedAt); err != nil {
			return nil, 0, fmt.Errorf("割り当て行の読み取りに失敗しました: %w", err)
		}
		if returnedAt.Valid {
			assigned.ReturnedAt = &returnedAt.Time
		}
		list = append(list, assigned)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("割り当て一覧の走査に失敗しました: %w", err)
	}

	return list, total, nil
}

// MarkReturned は割り当てを返却済みにする。返却トランザクション内で呼ばれる。
func (r *PostgresAssignedAssetRepo) MarkReturned(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE assigned_assets SET returned_at = now()
		 WHERE id = $1 AND returned_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("返却記録の更新に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "assigned asset", id)
}

// compile-time interface check
var _ AssignedAssetRepository = (*PostgresAssignedAssetRepo)(nil)
