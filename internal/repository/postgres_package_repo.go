package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresPackageRepo はPostgreSQLを使用したパッケージリポジトリ。
type PostgresPackageRepo struct {
	db *sql.DB
}

// NewPostgresPackageRepo はPostgresPackageRepoを生成する。
func NewPostgresPackageRepo(db *sql.DB) *PostgresPackageRepo {
	return &PostgresPackageRepo{db: db}
}

// List は全パッケージをmember_limit昇順で返す。
func (r *PostgresPackageRepo) List(ctx context.Context) ([]*model.Package, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, member_limit, price_cents, created_at
		 FROM packages
		 ORDER BY member_limit ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("パッケージ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var packages []*model.Package
	for rows.Next() {
		pkg := &model.Package{}
		if err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.MemberLimit, &pkg.PriceCents, &pkg.CreatedAt); err != nil {
			return nil, fmt.Errorf("パッケージ行の読み取りに失敗しました: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("パッケージ一覧の走査に失敗しました: %w", err)
	}

	return packages, nil
}

// FindByID は指定IDのパッケージを取得する。見つからない場合はnilを返す。
func (r *PostgresPackageRepo) FindByID(ctx context.Context, id string) (*model.Package, error) {
	pkg := &model.Package{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, member_limit, price_cents, created_at
		 FROM packages WHERE id = $1`,
		id,
	).Scan(&pkg.ID, &pkg.Name, &pkg.MemberLimit, &pkg.PriceCents, &pkg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("パッケージの取得に失敗しました: %w", err)
	}
	return pkg, nil
}

// compile-time interface check
var _ PackageRepository = (*PostgresPackageRepo)(nil)
