// Package asset は資産在庫管理のドメインロジックを提供する。
package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

const (
	// maxAssetNameLength は資産名の最大文字数。
	maxAssetNameLength = 200

	// defaultPerPage は一覧のデフォルトページサイズ。
	defaultPerPage = 20

	// maxPerPage は一覧の最大ページサイズ。
	maxPerPage = 100
)

// CreateAssetInput は資産作成の入力。
type CreateAssetInput struct {
	Name     string
	Type     model.AssetType
	Quantity int
}

// Service は資産CRUDと一覧のサービス層。
// 資産はHRユーザーごとに所有され、他HRの資産は見えない。
type Service struct {
	assetRepo    repository.AssetRepository
	assignedRepo repository.AssignedAssetRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(assetRepo repository.AssetRepository, assignedRepo repository.AssignedAssetRepository) *Service {
	return &Service{
		assetRepo:    assetRepo,
		assignedRepo: assignedRepo,
	}
}

// CreateAsset はHRユーザーの資産を作成する。
func (s *Service) CreateAsset(ctx context.Context, hrUserID string, input CreateAssetInput) (*model.Asset, error) {
	if err := validateAssetInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	asset := &model.Asset{
		ID:        uuid.New().String(),
		HRUserID:  hrUserID,
		Name:      input.Name,
		Type:      input.Type,
		Quantity:  input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.assetRepo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("資産の作成に失敗しました: %w", err)
	}

	return asset, nil
}

// GetAsset はHRユーザー自身の資産を取得する。
// 他HRの資産IDを指定した場合も未発見として扱う。
func (s *Service) GetAsset(ctx context.Context, hrUserID, assetID string) (*model.Asset, error) {
	asset, err := s.findOwnedAsset(ctx, hrUserID, assetID)
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// UpdateAsset は資産の名前・区分・在庫数を更新する。
func (s *Service) UpdateAsset(ctx context.Context, hrUserID, assetID string, input CreateAssetInput) (*model.Asset, error) {
	if err := validateAssetInput(input); err != nil {
		return nil, err
	}

	asset, err := s.findOwnedAsset(ctx, hrUserID, assetID)
	if err != nil {
		return nil, err
	}

	asset.Name = input.Name
	asset.Type = input.Type
	asset.Quantity = input.Quantity
	asset.UpdatedAt = time.Now()

	if err := s.assetRepo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("資産の更新に失敗しました: %w", err)
	}

	return asset, nil
}

// DeleteAsset は資産を削除する。割り当て・リクエストはCASCADE削除される。
func (s *Service) DeleteAsset(ctx context.Context, hrUserID, assetID string) error {
	if _, err := s.findOwnedAsset(ctx, hrUserID, assetID); err != nil {
		return err
	}

	if err := s.assetRepo.Delete(ctx, assetID); err != nil {
		return fmt.Errorf("資産の削除に失敗しました: %w", err)
	}

	return nil
}

// ListAssets はHRユーザーの資産一覧を返す。
func (s *Service) ListAssets(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
	normalizeQuery(&q)
	assets, total, err := s.assetRepo.ListByHR(ctx, hrUserID, q)
	if err != nil {
		return nil, 0, fmt.Errorf("資産一覧の取得に失敗しました: %w", err)
	}
	return assets, total, nil
}

// ListAvailable は従業員がリクエスト可能な在庫あり資産の一覧を返す。
// 所属企業の資産のみ。未所属の従業員には全HRの資産が見える。
func (s *Service) ListAvailable(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error) {
	normalizeQuery(&q)
	q.AvailableOnly = true

	assets, total, err := s.assetRepo.ListAvailableForEmployee(ctx, employeeID, q)
	if err != nil {
		return nil, 0, fmt.Errorf("利用可能資産の取得に失敗しました: %w", err)
	}
	return assets, total, nil
}

// ListAssigned は従業員に割り当て済み（未返却）の資産一覧を返す。
func (s *Service) ListAssigned(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error) {
	normalizeQuery(&q)
	assigned, total, err := s.assignedRepo.ListByUser(ctx, userID, q)
	if err != nil {
		return nil, 0, fmt.Errorf("割り当て一覧の取得に失敗しました: %w", err)
	}
	return assigned, total, nil
}

// findOwnedAsset は資産を取得し、HRユーザーの所有を検証する。
func (s *Service) findOwnedAsset(ctx context.Context, hrUserID, assetID string) (*model.Asset, error) {
	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("資産の取得に失敗しました: %w", err)
	}
	if asset == nil || asset.HRUserID != hrUserID {
		return nil, model.NewAssetNotFoundError(assetID)
	}
	return asset, nil
}

// validateAssetInput は資産入力を検証する。
func validateAssetInput(input CreateAssetInput) error {
	if input.Name == "" {
		return model.NewValidationError("資産名は必須です")
	}
	if len(input.Name) > maxAssetNameLength {
		return model.NewValidationError("資産名が長すぎます")
	}
	if !input.Type.IsValid() {
		return model.NewValidationError("資産区分が不正です")
	}
	if input.Quantity < 0 {
		return model.NewValidationError("在庫数は0以上である必要があります")
	}
	return nil
}

// normalizeQuery はページネーションパラメータをデフォルト値に正規化する。
func normalizeQuery(q *model.AssetListQuery) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
}
