package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresAssetRepo はPostgreSQLを使用した資産リポジトリ。
type PostgresAssetRepo struct {
	db *sql.DB
}

// NewPostgresAssetRepo はPostgresAssetRepoを生成する。
func NewPostgresAssetRepo(db *sql.DB) *PostgresAssetRepo {
	return &PostgresAssetRepo{db: db}
}

// FindByID は指定IDの資産を取得する。見つからない場合はnilを返す。
func (r *PostgresAssetRepo) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	asset := &model.Asset{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, hr_user_id, name, type, quantity, created_at, updated_at
		 FROM assets WHERE id = $1`,
		id,
	).Scan(&asset.ID, &asset.HRUserID, &asset.Name, &asset.Type, &asset.Quantity,
		&asset.CreatedAt, &asset.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("資産の取得に失敗しました: %w", err)
	}
	return asset, nil
}

// Create は資産を作成する。
func (r *PostgresAssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, hr_user_id, name, type, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		asset.ID, asset.HRUserID, asset.Name, asset.Type, asset.Quantity,
		asset.CreatedAt, asset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("資産の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は資産の名前・区分・在庫数を更新する。
func (r *PostgresAssetRepo) Update(ctx context.Context, asset *model.Asset) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE assets SET name = $2, type = $3, quantity = $4, updated_at = now()
		 WHERE id = $1`,
		asset.ID, asset.Name, asset.Type, asset.Quantity,
	)
	if err != nil {
		return fmt.Errorf("資産の更新に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "asset", asset.ID)
}

// Delete は指定IDの資産を削除する。
func (r *PostgresAssetRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM assets WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("資産の削除に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "asset", id)
}

// ListByHR はHRユーザーの資産一覧を検索条件付きで返す。
// 総件数はページネーションのために別クエリで取得する。
func (r *PostgresAssetRepo) ListByHR(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
	where := ` WHERE hr_user_id = $1`
	args := []interface{}{hrUserID}
	argIndex := 2

	if q.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", argIndex)
		args = append(args, "%"+q.Search+"%")
		argIndex++
	}
	if q.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", argIndex)
		args = append(args, q.Type)
		argIndex++
	}
	if q.AvailableOnly {
		where += " AND quantity > 0"
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("資産件数の取得に失敗しました: %w", err)
	}

	query := `SELECT id, hr_user_id, name, type, quantity, created_at, updated_at
		 FROM assets` + where + assetOrderBy(q.SortByQty)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("資産一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	assets, err := scanAssets(rows)
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// ListAvailableForEmployee は従業員が所属する企業の在庫あり資産を返す。
// 未所属の従業員には全HRの在庫あり資産を返す。
func (r *PostgresAssetRepo) ListAvailableForEmployee(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
	// 所属がある場合はそのHRの資産に限定する。EXISTSの否定で未所属を判定する。
	where := ` WHERE a.quantity > 0
		 AND (
		   a.hr_user_id IN (SELECT hr_user_id FROM affiliations WHERE employee_id = $1)
		   OR NOT EXISTS (SELECT 1 FROM affiliations WHERE employee_id = $1)
		 )`
	args := []interface{}{employeeID}
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

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets a`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("資産件数の取得に失敗しました: %w", err)
	}

	query := `SELECT a.id, a.hr_user_id, a.name, a.type, a.quantity, a.created_at, a.updated_at
		 FROM assets a` + where + assetOrderBy(q.SortByQty)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("資産一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	assets, err := scanAssets(rows)
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// DecrementQuantity は在庫を1減算する。在庫0の場合は減算せずfalseを返す。
// WHERE句の在庫条件によりチェックと減算を単一文で原子的に行う。
func (r *PostgresAssetRepo) DecrementQuantity(ctx context.Context, tx *sql.Tx, assetID string) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET quantity = quantity - 1, updated_at = now()
		 WHERE id = $1 AND quantity > 0`,
		assetID,
	)
	if err != nil {
		return false, fmt.Errorf("在庫の減算に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// IncrementQuantity は在庫を1加算する。資産返却時に使用する。
func (r *PostgresAssetRepo) IncrementQuantity(ctx context.Context, tx *sql.Tx, assetID string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET quantity = quantity + 1, updated_at = now() WHERE id = $1`,
		assetID,
	)
	if err != nil {
		return fmt.Errorf("在庫の加算に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "asset", assetID)
}

// assetOrderBy は在庫数ソート指定をORDER BY句に変換する。
// 指定なしの場合は作成日時降順。
func assetOrderBy(sortByQty string) string {
	switch sortByQty {
	case "asc":
		return " ORDER BY quantity ASC, created_at DESC"
	case "desc":
		return " ORDER BY quantity DESC, created_at DESC"
	}
	return " ORDER BY created_at DESC"
}

// scanAssets は結果セットを資産スライスに変換する。
func scanAssets(rows *sql.Rows) ([]*model.Asset, error) {
	var assets []*model.Asset
	for rows.Next() {
		asset := &model.Asset{}
		if err := rows.Scan(&asset.ID, &asset.HRUserID, &asset.Name, &asset.Type,
			&asset.Quantity, &asset.CreatedAt, &asset.UpdatedAt); err != nil {
			return nil, fmt.Errorf("資産行の読み取りに失敗しました: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("資産一覧の走査に失敗しました: %w", err)
	}
	return assets, nil
}

// compile-time interface check
var _ AssetRepository = (*PostgresAssetRepo)(nil)
