package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresContactRepo はPostgreSQLを使用した問い合わせリポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

// Create は問い合わせを保存する。
func (r *PostgresContactRepo) Create(ctx context.Context, msg *model.ContactMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, email, message, created_at)
		 VALUES ($1, $2, $3, $4)`,
		msg.ID, msg.Email, msg.Message, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("問い合わせの保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ContactRepository = (*PostgresContactRepo)(nil)
