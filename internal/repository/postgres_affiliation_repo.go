package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresAffiliationRepo はPostgreSQLを使用した所属リポジトリ。
type PostgresAffiliationRepo struct {
	db *sql.DB
}

// NewPostgresAffiliationRepo はPostgresAffiliationRepoを生成する。
func NewPostgresAffiliationRepo(db *sql.DB) *PostgresAffiliationRepo {
	return &PostgresAffiliationRepo{db: db}
}

// FindByEmployeeAndHR は従業員とHRの所属関係を検索する。見つからない場合はnilを返す。
func (r *PostgresAffiliationRepo) FindByEmployeeAndHR(ctx context.Context, employeeID, hrUserID string) (*model.Affiliation, error) {
	aff := &model.Affiliation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT af.id, af.employee_id, af.hr_user_id, u.company_name, af.created_at
		 FROM affiliations af
		 JOIN users u ON u.id = af.hr_user_id
		 WHERE af.employee_id = $1 AND af.hr_user_id = $2`,
		employeeID, hrUserID,
	).Scan(&aff.ID, &aff.EmployeeID, &aff.HRUserID, &aff.CompanyName, &aff.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("所属の検索に失敗しました: %w", err)
	}
	return aff, nil
}

// FindByEmployee は従業員の所属を企業情報付きで返す。未所属の場合はnilを返す。
func (r *PostgresAffiliationRepo) FindByEmployee(ctx context.Context, employeeID string) (*model.Affiliation, error) {
	aff := &model.Affiliation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT af.id, af.employee_id, af.hr_user_id, u.company_name, af.created_at
		 FROM affiliations af
		 JOIN users u ON u.id = af.hr_user_id
		 WHERE af.employee_id = $1
		 ORDER BY af.created_at ASC
		 LIMIT 1`,
		employeeID,
	).Scan(&aff.ID, &aff.EmployeeID, &aff.HRUserID, &aff.CompanyName, &aff.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("所属の取得に失敗しました: %w", err)
	}
	return aff, nil
}

// Create は所属を作成する。リクエスト承認トランザクション内で呼ばれる。
func (r *PostgresAffiliationRepo) Create(ctx context.Context, tx *sql.Tx, aff *model.Affiliation) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO affiliations (id, employee_id, hr_user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		aff.ID, aff.EmployeeID, aff.HRUserID, aff.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("所属の作成に失敗しました: %w", err)
	}
	return nil
}

// CountByHR はHRの所属従業員数を返す。
// 上限判定に使う場合はHRユーザー行をロックしたトランザクションのtxを渡す。
func (r *PostgresAffiliationRepo) CountByHR(ctx context.Context, tx *sql.Tx, hrUserID string) (int, error) {
	const query = `SELECT COUNT(*) FROM affiliations WHERE hr_user_id = $1`

	var count int
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, hrUserID).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, query, hrUserID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("所属従業員数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ListByHR はHRの所属従業員一覧を返す。
func (r *PostgresAffiliationRepo) ListByHR(ctx context.Context, hrUserID string, page, perPage int) ([]*model.Affiliation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM affiliations WHERE hr_user_id = $1`,
		hrUserID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("所属件数の取得に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT af.id, af.employee_id, af.hr_user_id, u.company_name, af.created_at
		 FROM affiliations af
		 JOIN users u ON u.id = af.hr_user_id
		 WHERE af.hr_user_id = $1
		 ORDER BY af.created_at DESC
		 LIMIT $2 OFFSET $3`,
		hrUserID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("所属一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var affs []*model.Affiliation
	for rows.Next() {
		aff := &model.Affiliation{}
		if err := rows.Scan(&aff.ID, &aff.EmployeeID, &aff.HRUserID, &aff.CompanyName, &aff.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("所属行の読み取りに失敗しました: %w", err)
		}
		affs = append(affs, aff)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("所属一覧の走査に失敗しました: %w", err)
	}

	return affs, total, nil
}

// Delete は所属を削除し、パッケージ枠を解放する。
func (r *PostgresAffiliationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM affiliations WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("所属の削除に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "affiliation", id)
}

// compile-time interface check
var _ AffiliationRepository = (*PostgresAffiliationRepo)(nil)
