package handler

import (
	"context"
	"net/http"

	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// AnalyticsServiceInterface は分析ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	Dashboard(ctx context.Context, hrUserID string) (*model.DashboardSummary, error)
}

// AnalyticsHandler はHRダッシュボード分析のHTTPハンドラー。
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// assetTypeCountResponse は区分別の資産集計。
type assetTypeCountResponse struct {
	Type          string `json:"type"`
	AssetCount    int    `json:"asset_count"`
	TotalQuantity int    `json:"total_quantity"`
}

// topRequestedAssetResponse はリクエスト数上位の資産。
type topRequestedAssetResponse struct {
	AssetID      string `json:"asset_id"`
	AssetName    string `json:"asset_name"`
	RequestCount int    `json:"request_count"`
}

// dashboardResponse はダッシュボード集計のAPIレスポンス。
type dashboardResponse struct {
	TotalAssets         int                         `json:"total_assets"`
	AssetsByType        []assetTypeCountResponse    `json:"assets_by_type"`
	PendingRequests     int                         `json:"pending_requests"`
	AffiliatedEmployees int                         `json:"affiliated_employees"`
	TopRequested        []topRequestedAssetResponse `json:"top_requested"`
}

// Dashboard はHRダッシュボードの集計を返す。
// GET /api/hr/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	summary, err := h.service.Dashboard(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	byType := make([]assetTypeCountResponse, len(summary.AssetsByType))
	for i, c := range summary.AssetsByType {
		byType[i] = assetTypeCountResponse{
			Type:          string(c.Type),
			AssetCount:    c.AssetCount,
			TotalQuantity: c.TotalQuantity,
		}
	}
	topRequested := make([]topRequestedAssetResponse, len(summary.TopRequested))
	for i, t := range summary.TopRequested {
		topRequested[i] = topRequestedAssetResponse{
			AssetID:      t.AssetID,
			AssetName:    t.AssetName,
			RequestCount: t.RequestCount,
		}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TotalAssets:         summary.TotalAssets,
		AssetsByType:        byType,
		PendingRequests:     summary.PendingRequests,
		AffiliatedEmployees: summary.AffiliatedEmployees,
		TopRequested:        topRequested,
	})
}
