package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresPackageRepoはPackageRepositoryインターフェースを満たすことを検証
func TestPostgresPackageRepo_ImplementsInterface(t *testing.T) {
	var _ PackageRepository = (*PostgresPackageRepo)(nil)
}

// PostgresPaymentRepoはPaymentRepositoryインターフェースを満たすことを検証
func TestPostgresPaymentRepo_ImplementsInterface(t *testing.T) {
	var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
}

// PostgresContactRepoはContactRepositoryインターフェースを満たすことを検証
func TestPostgresContactRepo_ImplementsInterface(t *testing.T) {
	var _ ContactRepository = (*PostgresContactRepo)(nil)
}

// Listがmember_limit昇順でパッケージを返すことを検証
func TestPostgresPackageRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM packages`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "member_limit", "price_cents", "created_at"}).
			AddRow("pkg-1", "Starter", 5, int64(500), now).
			AddRow("pkg-2", "Team", 10, int64(800), now))

	repo := NewPostgresPackageRepo(db)
	packages, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(packages) != 2 {
		t.Fatalf("len(packages) = %d, want 2", len(packages))
	}
	if packages[0].MemberLimit != 5 {
		t.Errorf("packages[0].MemberLimit = %d, want 5", packages[0].MemberLimit)
	}
}

// FindByIntentIDが該当なしでnilを返すことを検証
func TestPostgresPaymentRepo_FindByIntentID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM payments WHERE provider_intent_id = \$1`).
		WithArgs("pi_missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "hr_user_id", "package_id", "amount_cents", "currency",
			"provider_intent_id", "status", "created_at", "updated_at",
		}))

	repo := NewPostgresPaymentRepo(db)
	payment, err := repo.FindByIntentID(context.Background(), "pi_missing")
	if err != nil {
		t.Fatalf("FindByIntentID error: %v", err)
	}
	if payment != nil {
		t.Errorf("expected nil, got %+v", payment)
	}
}

// UpdateStatusが決済状態を更新することを検証
func TestPostgresPaymentRepo_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs("pay-1", string(model.PaymentStatusSucceeded)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresPaymentRepo(db)
	if err := repo.UpdateStatus(context.Background(), "pay-1", model.PaymentStatusSucceeded); err != nil {
		t.Errorf("UpdateStatus error: %v", err)
	}
}
