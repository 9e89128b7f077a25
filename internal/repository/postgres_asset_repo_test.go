package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresAssetRepoはAssetRepositoryインターフェースを満たすことを検証
func TestPostgresAssetRepo_ImplementsInterface(t *testing.T) {
	var _ AssetRepository = (*PostgresAssetRepo)(nil)
}

// PostgresAssignedAssetRepoはAssignedAssetRepositoryインターフェースを満たすことを検証
func TestPostgresAssignedAssetRepo_ImplementsInterface(t *testing.T) {
	var _ AssignedAssetRepository = (*PostgresAssignedAssetRepo)(nil)
}

// PostgresRequestRepoはRequestRepositoryインターフェースを満たすことを検証
func TestPostgresRequestRepo_ImplementsInterface(t *testing.T) {
	var _ RequestRepository = (*PostgresRequestRepo)(nil)
}

// PostgresAffiliationRepoはAffiliationRepositoryインターフェースを満たすことを検証
func TestPostgresAffiliationRepo_ImplementsInterface(t *testing.T) {
	var _ AffiliationRepository = (*PostgresAffiliationRepo)(nil)
}

// DecrementQuantityが在庫ありの場合にtrueを返すことを検証
func TestPostgresAssetRepo_DecrementQuantity_StockAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE assets SET quantity = quantity - 1`).
		WithArgs("asset-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTx error: %v", err)
	}

	repo := NewPostgresAssetRepo(db)
	ok, err := repo.DecrementQuantity(context.Background(), tx, "asset-1")
	if err != nil {
		t.Fatalf("DecrementQuantity error: %v", err)
	}
	if !ok {
		t.Error("expected true when stock available")
	}
}

// DecrementQuantityが在庫0の場合にfalseを返し減算しないことを検証
func TestPostgresAssetRepo_DecrementQuantity_OutOfStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE assets SET quantity = quantity - 1`).
		WithArgs("asset-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTx error: %v", err)
	}

	repo := NewPostgresAssetRepo(db)
	ok, err := repo.DecrementQuantity(context.Background(), tx, "asset-1")
	if err != nil {
		t.Fatalf("DecrementQuantity error: %v", err)
	}
	if ok {
		t.Error("expected false when out of stock")
	}
}

// UpdateStatusが現在状態の一致する行を更新しtrueを返すことを検証
func TestPostgresRequestRepo_UpdateStatus_FromMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE requests SET status = \$3, processed_at = now\(\)`).
		WithArgs("req-1", "pending", "approved").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTx error: %v", err)
	}

	repo := NewPostgresRequestRepo(db)
	ok, err := repo.UpdateStatus(context.Background(), tx, "req-1", model.RequestStatusPending, model.RequestStatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if !ok {
		t.Error("expected true when the current status matches")
	}
}

// UpdateStatusが別の遷移で先に状態が変わっていた場合にfalseを返すことを検証
func TestPostgresRequestRepo_UpdateStatus_FromMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE requests SET status = \$3, processed_at = now\(\)`).
		WithArgs("req-1", "pending", "approved").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRequestRepo(db)
	ok, err := repo.UpdateStatus(context.Background(), nil, "req-1", model.RequestStatusPending, model.RequestStatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if ok {
		t.Error("expected false when the status was already changed")
	}
}

// CountPendingByHRがステータス条件付きでカウントすることを検証
func TestPostgresRequestRepo_CountPendingByHR(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM requests WHERE hr_user_id = \$1 AND status = \$2`).
		WithArgs("hr-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	repo := NewPostgresRequestRepo(db)
	count, err := repo.CountPendingByHR(context.Background(), "hr-1")
	if err != nil {
		t.Fatalf("CountPendingByHR error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}

// assetOrderByがソート指定をORDER BY句に変換することを検証
func TestAssetOrderBy(t *testing.T) {
	tests := []struct {
		sortByQty string
		want      string
	}{
		{"asc", " ORDER BY quantity ASC, created_at DESC"},
		{"desc", " ORDER BY quantity DESC, created_at DESC"},
		{"", " ORDER BY created_at DESC"},
		{"bogus", " ORDER BY created_at DESC"},
	}
	for _, tt := range tests {
		if got := assetOrderBy(tt.sortByQty); got != tt.want {
			t.Errorf("assetOrderBy(%q) = %q, want %q", tt.sortByQty, got, tt.want)
		}
	}
}
