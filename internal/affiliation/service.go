// Package affiliation は従業員と企業の所属関係を管理する。
package affiliation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

const (
	// defaultPerPage は一覧のデフォルトページサイズ。
	defaultPerPage = 20

	// maxPerPage は一覧の最大ページサイズ。
	maxPerPage = 100
)

// Service は所属関係のサービス層。
// 所属の作成はリクエスト承認フローの中でのみ行われ、
// このサービスは参照と解除を担当する。
type Service struct {
	affRepo repository.AffiliationRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(affRepo repository.AffiliationRepository) *Service {
	return &Service{affRepo: affRepo}
}

// ListEmployees はHRの所属従業員一覧を返す。
func (s *Service) ListEmployees(ctx context.Context, hrUserID string, page, perPage int) ([]*model.Affiliation, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	list, total, err := s.affRepo.ListByHR(ctx, hrUserID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("所属一覧の取得に失敗しました: %w", err)
	}
	return list, total, nil
}

// GetMyCompany は従業員の所属を企業情報付きで返す。未所属の場合はnilを返す。
func (s *Service) GetMyCompany(ctx context.Context, employeeID string) (*model.Affiliation, error) {
	aff, err := s.affRepo.FindByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("所属の取得に失敗しました: %w", err)
	}
	return aff, nil
}

// RemoveEmployee はHRが従業員の所属を解除する。
// 解除によりパッケージの従業員枠が1つ解放される。
func (s *Service) RemoveEmployee(ctx context.Context, hrUserID, employeeID string) error {
	aff, err := s.affRepo.FindByEmployeeAndHR(ctx, employeeID, hrUserID)
	if err != nil {
		return fmt.Errorf("所属の確認に失敗しました: %w", err)
	}
	if aff == nil {
		return model.NewValidationError("指定された従業員は所属していません")
	}

	if err := s.affRepo.Delete(ctx, aff.ID); err != nil {
		return fmt.Errorf("所属の削除に失敗しました: %w", err)
	}

	slog.Info("affiliation removed",
		slog.String("hr_user_id", hrUserID),
		slog.String("employee_id", employeeID),
	)

	return nil
}
