package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/asset"
	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// AssetServiceInterface は資産ハンドラーが必要とするサービスインターフェース。
type AssetServiceInterface interface {
	CreateAsset(ctx context.Context, hrUserID string, input asset.CreateAssetInput) (*model.Asset, error)
	GetAsset(ctx context.Context, hrUserID, assetID string) (*model.Asset, error)
	UpdateAsset(ctx context.Context, hrUserID, assetID string, input asset.CreateAssetInput) (*model.Asset, error)
	DeleteAsset(ctx context.Context, hrUserID, assetID string) error
	ListAssets(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error)
	ListAvailable(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error)
	ListAssigned(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error)
}

// AssetHandler は資産管理のHTTPハンドラー。
type AssetHandler struct {
	service AssetServiceInterface
}

// NewAssetHandler はAssetHandlerを生成する。
func NewAssetHandler(service AssetServiceInterface) *AssetHandler {
	return &AssetHandler{service: service}
}

// assetRequest は資産作成・更新リクエストのボディ。
type assetRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// assetResponse は資産情報のAPIレスポンス。
type assetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// assignedAssetResponse は割り当て済み資産のAPIレスポンス。
type assignedAssetResponse struct {
	ID         string     `json:"id"`
	AssetID    string     `json:"asset_id"`
	AssetName  string     `json:"asset_name"`
	AssetType  string     `json:"asset_type"`
	AssignedAt time.Time  `json:"assigned_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

func toAssetResponse(a *model.Asset) assetResponse {
	return assetResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Quantity:  a.Quantity,
		Available: a.Available(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAssetResponses(assets []*model.Asset) []assetResponse {
	results := make([]assetResponse, len(assets))
	for i, a := range assets {
		results[i] = toAssetResponse(a)
	}
	return results
}

// Create は資産作成を処理する。
// POST /api/hr/assets
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	created, err := h.service.CreateAsset(r.Context(), principal.UserID, asset.CreateAssetInput{
		Name:     req.Name,
		Type:     model.AssetType(req.Type),
		Quantity: req.Quantity,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssetResponse(created))
}

// Get は資産詳細を取得する。
// GET /api/hr/assets/{id}
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	found, err := h.service.GetAsset(r.Context(), principal.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetResponse(found))
}

// Update は資産更新を処理する。
// PUT /api/hr/assets/{id}
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	updated, err := h.service.UpdateAsset(r.Context(), principal.UserID, chi.URLParam(r, "id"), asset.CreateAssetInput{
		Name:     req.Name,
		Type:     model.AssetType(req.Type),
		Quantity: req.Quantity,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetResponse(updated))
}

// Delete は資産削除を処理する。
// DELETE /api/hr/assets/{id}
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	if err := h.service.DeleteAsset(r.Context(), principal.UserID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List はHRの資産一覧を返す。
// GET /api/hr/assets
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	q := parseAssetListQuery(r)
	assets, total, err := h.service.ListAssets(r.Context(), principal.UserID, q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:   toAssetResponses(assets),
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

// ListAvailable は従業員がリクエスト可能な資産一覧を返す。
// GET /api/assets/available
func (h *AssetHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	q := parseAssetListQuery(r)
	assets, total, err := h.service.ListAvailable(r.Context(), principal.UserID, q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:   toAssetResponses(assets),
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

// ListAssigned は従業員の割り当て済み資産一覧を返す。
// GET /api/assets/assigned
func (h *AssetHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	q := parseAssetListQuery(r)
	assigned, total, err := h.service.ListAssigned(r.Context(), principal.UserID, q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]assignedAssetResponse, len(assigned))
	for i, a := range assigned {
		results[i] = assignedAssetResponse{
			ID:         a.ID,
			AssetID:    a.AssetID,
			AssetName:  a.AssetName,
			AssetType:  string(a.AssetType),
			AssignedAt: a.AssignedAt,
			ReturnedAt: a.ReturnedAt,
		}
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:   results,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

// parseAssetListQuery はクエリパラメータから資産一覧の検索条件を組み立てる。
func parseAssetListQuery(r *http.Request) model.AssetListQuery {
	q := model.AssetListQuery{
		Search:    r.URL.Query().Get("search"),
		Type:      model.AssetType(r.URL.Query().Get("type")),
		SortByQty: r.URL.Query().Get("sort_by_qty"),
	}
	q.AvailableOnly = r.URL.Query().Get("available") == "true"
	q.Page, q.PerPage = parsePagination(r)
	return q
}
