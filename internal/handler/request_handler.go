package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// RequestServiceInterface はリクエストハンドラーが必要とするサービスインターフェース。
type RequestServiceInterface interface {
	CreateRequest(ctx context.Context, requesterID, assetID, note string) (*model.Request, error)
	Approve(ctx context.Context, hrUserID, requestID string) (*model.Request, error)
	Reject(ctx context.Context, hrUserID, requestID string) (*model.Request, error)
	Cancel(ctx context.Context, requesterID, requestID string) (*model.Request, error)
	Return(ctx context.Context, requesterID, requestID string) (*model.Request, error)
	ListMine(ctx context.Context, requesterID string, q model.RequestListQuery) ([]*model.Request, int, error)
	ListForHR(ctx context.Context, hrUserID string, q model.RequestListQuery) ([]*model.Request, int, error)
}

// RequestHandler は資産リクエストのHTTPハンドラー。
type RequestHandler struct {
	service RequestServiceInterface
}

// NewRequestHandler はRequestHandlerを生成する。
func NewRequestHandler(service RequestServiceInterface) *RequestHandler {
	return &RequestHandler{service: service}
}

// createRequestRequest はリクエスト作成のボディ。
type createRequestRequest struct {
	AssetID string `json:"asset_id"`
	Note    string `json:"note"`
}

// requestResponse はリクエスト情報のAPIレスポンス。
type requestResponse struct {
	ID            string     `json:"id"`
	AssetID       string     `json:"asset_id"`
	AssetName     string     `json:"asset_name"`
	AssetType     string     `json:"asset_type"`
	RequesterID   string     `json:"requester_id"`
	RequesterName string     `json:"requester_name"`
	Note          string     `json:"note"`
	Status        string     `json:"status"`
	RequestedAt   time.Time  `json:"requested_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func toRequestResponse(req *model.Request) requestResponse {
	return requestResponse{
		ID:            req.ID,
		AssetID:       req.AssetID,
		AssetName:     req.AssetName,
		AssetType:     string(req.AssetType),
		RequesterID:   req.RequesterID,
		RequesterName: req.RequesterName,
		Note:          req.Note,
		Status:        string(req.Status),
		RequestedAt:   req.RequestedAt,
		ProcessedAt:   req.ProcessedAt,
	}
}

func toRequestResponses(requests []*model.Request) []requestResponse {
	results := make([]requestResponse, len(requests))
	for i, req := range requests {
		results[i] = toRequestResponse(req)
	}
	return results
}

// Create は資産リクエスト作成を処理する。
// POST /api/requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	created, err := h.service.CreateRequest(r.Context(), principal.UserID, req.AssetID, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestResponse(created))
}

// ListMine は従業員自身のリクエスト一覧を返す。
// GET /api/requests
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	q := parseRequestListQuery(r)
	requests, total, err := h.service.ListMine(r.Context(), principal.UserID, q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:   toRequestResponses(requests),
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

// ListForHR はHRが受け取ったリクエスト一覧を返す。
// GET /api/hr/requests
func (h *RequestHandler) ListForHR(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	q := parseRequestListQuery(r)
	requests, total, err := h.service.ListForHR(r.Context(), principal.UserID, q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:   toRequestResponses(requests),
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

// Approve はリクエスト承認を処理する。
// POST /api/hr/requests/{id}/approve
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

// Reject はリクエスト却下を処理する。
// POST /api/hr/requests/{id}/reject
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// Cancel はリクエスト取り消しを処理する。
// POST /api/requests/{id}/cancel
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

// Return は資産返却を処理する。
// POST /api/requests/{id}/return
func (h *RequestHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Return)
}

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, requestID string) (*model.Request, error)) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	updated, err := fn(r.Context(), principal.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponse(updated))
}

// parseRequestListQuery はクエリパラメータからリクエスト一覧の検索条件を組み立てる。
func parseRequestListQuery(r *http.Request) model.RequestListQuery {
	q := model.RequestListQuery{
		Search: r.URL.Query().Get("search"),
		Status: model.RequestStatus(r.URL.Query().Get("status")),
	}
	q.Page, q.PerPage = parsePagination(r)
	return q
}
