package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assetverse/assetverse/internal/model"
)

type mockAnalyticsService struct {
	DashboardFn func(ctx context.Context, hrUserID string) (*model.DashboardSummary, error)
}

func (m *mockAnalyticsService) Dashboard(ctx context.Context, hrUserID string) (*model.DashboardSummary, error) {
	return m.DashboardFn(ctx, hrUserID)
}

// TestDashboard_ReturnsSummary はダッシュボード集計が返ることを検証する。
func TestDashboard_ReturnsSummary(t *testing.T) {
	service := &mockAnalyticsService{
		DashboardFn: func(ctx context.Context, hrUserID string) (*model.DashboardSummary, error) {
			return &model.DashboardSummary{
				TotalAssets: 7,
				AssetsByType: []model.AssetTypeCount{
					{Type: model.AssetTypeReturnable, AssetCount: 2, TotalQuantity: 12},
					{Type: model.AssetTypeNonReturnable, AssetCount: 5, TotalQuantity: 40},
				},
				PendingRequests:     4,
				AffiliatedEmployees: 17,
				TopRequested: []model.TopRequestedAsset{
					{AssetID: "asset-1", AssetName: "MacBook Pro", RequestCount: 9},
				},
			}, nil
		},
	}
	h := NewAnalyticsHandler(service)

	req := principalRequest(t, http.MethodGet, "/api/hr/analytics/dashboard", "", model.RoleHR)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.TotalAssets != 7 || resp.PendingRequests != 4 || resp.AffiliatedEmployees != 17 {
		t.Errorf("unexpected summary: %+v", resp)
	}
	if len(resp.TopRequested) != 1 || resp.TopRequested[0].RequestCount != 9 {
		t.Errorf("unexpected top requested: %+v", resp.TopRequested)
	}
}

// TestDashboard_ServiceError_Returns500 は集計エラーが500になることを検証する。
func TestDashboard_ServiceError_Returns500(t *testing.T) {
	service := &mockAnalyticsService{
		DashboardFn: func(ctx context.Context, hrUserID string) (*model.DashboardSummary, error) {
			return nil, errors.New("query timeout")
		},
	}
	h := NewAnalyticsHandler(service)

	req := principalRequest(t, http.MethodGet, "/api/hr/analytics/dashboard", "", model.RoleHR)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
