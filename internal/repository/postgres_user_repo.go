package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/assetverse/assetverse/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表すセンチネルエラー。
var ErrDuplicateEmail = errors.New("email already registered")

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// isUniqueViolation はpqエラーが一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, name, role, password_hash, date_of_birth,
	company_name, company_logo_url, company_logo_data, company_logo_mime,
	member_limit, created_at, updated_at`

// scanUser は1行をmodel.Userにスキャンする。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var dob sql.NullTime
	var logoData []byte
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &dob,
		&user.CompanyName, &user.CompanyLogoURL, &logoData, &user.CompanyLogoMime,
		&user.MemberLimit, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		t := dob.Time
		user.DateOfBirth = &t
	}
	user.CompanyLogoData = logoData
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// FindByIDForUpdate は指定IDのユーザー行をFOR UPDATEでロックして取得する。
// 見つからない場合はnilを返す。同一ユーザー行への競合する更新・集計を
// トランザクションのコミットまで直列化する。
func (r *PostgresUserRepo) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error) {
	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーのロック取得に失敗しました: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, date_of_birth,
		   company_name, company_logo_url, company_logo_data, company_logo_mime,
		   member_limit, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.DateOfBirth,
		user.CompanyName, user.CompanyLogoURL, user.CompanyLogoData, user.CompanyLogoMime,
		user.MemberLimit, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, date_of_birth,
		   company_name, company_logo_url, company_logo_data, company_logo_mime,
		   member_limit, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.DateOfBirth,
		user.CompanyName, user.CompanyLogoURL, user.CompanyLogoData, user.CompanyLogoMime,
		user.MemberLimit, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("identityの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// Update はプロフィールの更新可能フィールドを更新する。
// ロールとメールアドレスは変更不可。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET name = $2, date_of_birth = $3, company_name = $4, company_logo_url = $5,
		     updated_at = now()
		 WHERE id = $1`,
		user.ID, user.Name, user.DateOfBirth, user.CompanyName, user.CompanyLogoURL,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "user", user.ID)
}

// UpdateMemberLimit はHRユーザーの従業員数上限を更新する。
func (r *PostgresUserRepo) UpdateMemberLimit(ctx context.Context, userID string, limit int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET member_limit = $2, updated_at = now() WHERE id = $1`,
		userID, limit,
	)
	if err != nil {
		return fmt.Errorf("メンバー上限の更新に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "user", userID)
}

// UpdateCompanyLogo はHRユーザーの企業ロゴデータを更新する。
func (r *PostgresUserRepo) UpdateCompanyLogo(ctx context.Context, userID string, data []byte, mime string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET company_logo_data = $2, company_logo_mime = $3, updated_at = now()
		 WHERE id = $1`,
		userID, data, mime,
	)
	if err != nil {
		return fmt.Errorf("企業ロゴの更新に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "user", userID)
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するidentities、sessions等はCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "user", id)
}

// requireRowsAffected は更新・削除が1行以上に作用したことを検証する。
func requireRowsAffected(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
