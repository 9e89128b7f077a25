package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用した決済リポジトリ。
type PostgresPaymentRepo struct {
	db *sql.DB
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

const paymentColumns = `id, hr_user_id, package_id, amount_cents, currency,
	provider_intent_id, status, created_at, updated_at`

// scanPayment は1行をmodel.Paymentにスキャンする。
func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	payment := &model.Payment{}
	err := row.Scan(
		&payment.ID, &payment.HRUserID, &payment.PackageID, &payment.AmountCents,
		&payment.Currency, &payment.ProviderIntentID, &payment.Status,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Create は決済記録を作成する。
func (r *PostgresPaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, hr_user_id, package_id, amount_cents, currency,
		   provider_intent_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		payment.ID, payment.HRUserID, payment.PackageID, payment.AmountCents,
		payment.Currency, payment.ProviderIntentID, payment.Status,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("決済記録の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの決済を取得する。見つからない場合はnilを返す。
func (r *PostgresPaymentRepo) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	payment, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("決済の取得に失敗しました: %w", err)
	}
	return payment, nil
}

// FindByIntentID はプロバイダーのintent IDで決済を検索する。見つからない場合はnilを返す。
func (r *PostgresPaymentRepo) FindByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	payment, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_intent_id = $1`, intentID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("intent IDによる決済の検索に失敗しました: %w", err)
	}
	return payment, nil
}

// UpdateStatus は決済状態を更新する。
func (r *PostgresPaymentRepo) UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("決済状態の更新に失敗しました: %w", err)
	}
	return requireRowsAffected(result, "payment", id)
}

// ListByHR はHRユーザーの決済履歴を作成日時降順で返す。
func (r *PostgresPaymentRepo) ListByHR(ctx context.Context, hrUserID string) ([]*model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE hr_user_id = $1
		 ORDER BY created_at DESC`,
		hrUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("決済履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("決済行の読み取りに失敗しました: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("決済履歴の走査に失敗しました: %w", err)
	}

	return payments, nil
}

// compile-time interface check
var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
