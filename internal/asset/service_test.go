package asset

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/assetverse/assetverse/internal/model"
)

// --- モック定義 ---

type mockAssetRepo struct {
	findByIDFn                 func(ctx context.Context, id string) (*model.Asset, error)
	createFn                   func(ctx context.Context, asset *model.Asset) error
	updateFn                   func(ctx context.Context, asset *model.Asset) error
	deleteFn                   func(ctx context.Context, id string) error
	listByHRFn                 func(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error)
	listAvailableForEmployeeFn func(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error)
}

func (m *mockAssetRepo) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	if m.createFn != nil {
		return m.createFn(ctx, asset)
	}
	return nil
}

func (m *mockAssetRepo) Update(ctx context.Context, asset *model.Asset) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, asset)
	}
	return nil
}

func (m *mockAssetRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAssetRepo) ListByHR(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
	if m.listByHRFn != nil {
		return m.listByHRFn(ctx, hrUserID, q)
	}
	return nil, 0, nil
}

func (m *mockAssetRepo) ListAvailableForEmployee(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
	if m.listAvailableForEmployeeFn != nil {
		return m.listAvailableForEmployeeFn(ctx, employeeID, q)
	}
	return nil, 0, nil
}

func (m *mockAssetRepo) DecrementQuantity(ctx context.Context, tx *sql.Tx, assetID string) (bool, error) {
	return true, nil
}

func (m *mockAssetRepo) IncrementQuantity(ctx context.Context, tx *sql.Tx, assetID string) error {
	return nil
}

type mockAssignedRepo struct {
	listByUserFn func(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error)
}

func (m *mockAssignedRepo) Create(ctx context.Context, tx *sql.Tx, assigned *model.AssignedAsset) error {
	return nil
}

func (m *mockAssignedRepo) FindByID(ctx context.Context, id string) (*model.AssignedAsset, error) {
	return nil, nil
}

func (m *mockAssignedRepo) FindActiveByUserAndAsset(ctx context.Context, userID, assetID string) (*model.AssignedAsset, error) {
	return nil, nil
}

func (m *mockAssignedRepo) ListByUser(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, q)
	}
	return nil, 0, nil
}

func (m *mockAssignedRepo) MarkReturned(ctx context.Context, tx *sql.Tx, id string) error {
	return nil
}

// --- テスト ---

func TestCreateAsset_Success(t *testing.T) {
	var created *model.Asset
	repo := &mockAssetRepo{
		createFn: func(ctx context.Context, asset *model.Asset) error {
			created = asset
			return nil
		},
	}
	svc := NewService(repo, &mockAssignedRepo{})

	asset, err := svc.CreateAsset(context.Background(), "hr-1", CreateAssetInput{
		Name:     "MacBook Pro 14",
		Type:     model.AssetTypeReturnable,
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if asset.ID == "" {
		t.Error("asset ID should be generated")
	}
	if asset.HRUserID != "hr-1" {
		t.Errorf("hrUserID = %q, want %q", asset.HRUserID, "hr-1")
	}
	if created == nil {
		t.Error("repo.Create should be called")
	}
}

func TestCreateAsset_Validation(t *testing.T) {
	svc := NewService(&mockAssetRepo{}, &mockAssignedRepo{})

	tests := []struct {
		name  string
		input CreateAssetInput
	}{
		{"empty name", CreateAssetInput{Name: "", Type: model.AssetTypeReturnable, Quantity: 1}},
		{"invalid type", CreateAssetInput{Name: "Monitor", Type: "broken", Quantity: 1}},
		{"negative quantity", CreateAssetInput{Name: "Monitor", Type: model.AssetTypeReturnable, Quantity: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAsset(context.Background(), "hr-1", tt.input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
		})
	}
}

func TestGetAsset_OtherHRsAsset_NotFound(t *testing.T) {
	repo := &mockAssetRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, HRUserID: "hr-other"}, nil
		},
	}
	svc := NewService(repo, &mockAssignedRepo{})

	_, err := svc.GetAsset(context.Background(), "hr-1", "asset-1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeAssetNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeAssetNotFound)
	}
}

func TestUpdateAsset_Success(t *testing.T) {
	repo := &mockAssetRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Asset, error) {
			return &model.Asset{ID: id, HRUserID: "hr-1", Name: "Old", Type: model.AssetTypeReturnable, Quantity: 1}, nil
		},
	}
	svc := NewService(repo, &mockAssignedRepo{})

	asset, err := svc.UpdateAsset(context.Background(), "hr-1", "asset-1", CreateAssetInput{
		Name:     "New Name",
		Type:     model.AssetTypeNonReturnable,
		Quantity: 10,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if asset.Name != "New Name" {
		t.Errorf("name = %q, want %q", asset.Name, "New Name")
	}
	if asset.Quantity != 10 {
		t.Errorf("quantity = %d, want 10", asset.Quantity)
	}
}

func TestDeleteAsset_NotFound(t *testing.T) {
	svc := NewService(&mockAssetRepo{}, &mockAssignedRepo{})

	err := svc.DeleteAsset(context.Background(), "hr-1", "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeAssetNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeAssetNotFound)
	}
}

func TestListAssets_NormalizesPagination(t *testing.T) {
	var capturedQuery model.AssetListQuery
	repo := &mockAssetRepo{
		listByHRFn: func(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
			capturedQuery = q
			return []*model.Asset{}, 0, nil
		},
	}
	svc := NewService(repo, &mockAssignedRepo{})

	_, _, err := svc.ListAssets(context.Background(), "hr-1", model.AssetListQuery{Page: 0, PerPage: 1000})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if capturedQuery.Page != 1 {
		t.Errorf("page = %d, want 1", capturedQuery.Page)
	}
	if capturedQuery.PerPage != maxPerPage {
		t.Errorf("perPage = %d, want %d", capturedQuery.PerPage, maxPerPage)
	}
}

func TestListAvailable_ForcesAvailableOnly(t *testing.T) {
	var capturedQuery model.AssetListQuery
	repo := &mockAssetRepo{
		listAvailableForEmployeeFn: func(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
			capturedQuery = q
			return []*model.Asset{}, 0, nil
		},
	}
	svc := NewService(repo, &mockAssignedRepo{})

	_, _, err := svc.ListAvailable(context.Background(), "emp-1", model.AssetListQuery{AvailableOnly: false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !capturedQuery.AvailableOnly {
		t.Error("AvailableOnly should be forced to true")
	}
}

func TestListAssigned_PropagatesError(t *testing.T) {
	repo := &mockAssignedRepo{
		listByUserFn: func(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error) {
			return nil, 0, errors.New("db down")
		},
	}
	svc := NewService(&mockAssetRepo{}, repo)

	_, _, err := svc.ListAssigned(context.Background(), "emp-1", model.AssetListQuery{})
	if err == nil {
		t.Error("expected error")
	}
}
