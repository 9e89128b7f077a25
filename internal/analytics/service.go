// Package analytics はHRダッシュボードの集計を提供する。
package analytics

import (
	"context"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

// topRequestedLimit はダッシュボードに表示するリクエスト上位資産の件数。
const topRequestedLimit = 5

// Service はダッシュボード集計のサービス層。
// 集計はすべてSQL側で行い、このサービスは結果を合成するだけ。
type Service struct {
	analyticsRepo repository.AnalyticsRepository
	requestRepo   repository.RequestRepository
	affRepo       repository.AffiliationRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	analyticsRepo repository.AnalyticsRepository,
	requestRepo repository.RequestRepository,
	affRepo repository.AffiliationRepository,
) *Service {
	return &Service{
		analyticsRepo: analyticsRepo,
		requestRepo:   requestRepo,
		affRepo:       affRepo,
	}
}

// Dashboard はHRダッシュボードの集計結果を返す。
func (s *Service) Dashboard(ctx context.Context, hrUserID string) (*model.DashboardSummary, error) {
	byType, err := s.analyticsRepo.CountAssetsByType(ctx, hrUserID)
	if err != nil {
		return nil, fmt.Errorf("資産区分の集計に失敗しました: %w", err)
	}

	totalAssets := 0
	for _, c := range byType {
		totalAssets += c.AssetCount
	}

	pending, err := s.requestRepo.CountPendingByHR(ctx, hrUserID)
	if err != nil {
		return nil, fmt.Errorf("未処理リクエスト数の取得に失敗しました: %w", err)
	}

	employees, err := s.affRepo.CountByHR(ctx, nil, hrUserID)
	if err != nil {
		return nil, fmt.Errorf("所属従業員数の取得に失敗しました: %w", err)
	}

	top, err := s.analyticsRepo.TopRequestedAssets(ctx, hrUserID, topRequestedLimit)
	if err != nil {
		return nil, fmt.Errorf("リクエスト上位資産の取得に失敗しました: %w", err)
	}

	return &model.DashboardSummary{
		TotalAssets:         totalAssets,
		AssetsByType:        byType,
		PendingRequests:     pending,
		AffiliatedEmployees: employees,
		TopRequested:        top,
	}, nil
}
