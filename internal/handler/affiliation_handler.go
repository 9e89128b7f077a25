package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// AffiliationServiceInterface は所属ハンドラーが必要とするサービスインターフェース。
type AffiliationServiceInterface interface {
	ListEmployees(ctx context.Context, hrUserID string, page, perPage int) ([]*model.Affiliation, int, error)
	GetMyCompany(ctx context.Context, employeeID string) (*model.Affiliation, error)
	RemoveEmployee(ctx context.Context, hrUserID, employeeID string) error
}

// AffiliationHandler は従業員所属のHTTPハンドラー。
type AffiliationHandler struct {
	service AffiliationServiceInterface
}

// NewAffiliationHandler はAffiliationHandlerを生成する。
func NewAffiliationHandler(service AffiliationServiceInterface) *AffiliationHandler {
	return &AffiliationHandler{service: service}
}

// affiliationResponse は所属情報のAPIレスポンス。
type affiliationResponse struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employee_id"`
	HRUserID    string    `json:"hr_user_id"`
	CompanyName string    `json:"company_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAffiliationResponse(a *model.Affiliation) affiliationResponse {
	return affiliationResponse{
		ID:          a.ID,
		EmployeeID:  a.EmployeeID,
		HRUserID:    a.HRUserID,
		CompanyName: a.CompanyName,
		CreatedAt:   a.CreatedAt,
	}
}

// ListEmployees はHRに所属する従業員一覧を返す。
// GET /api/hr/employees
func (h *AffiliationHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	page, perPage := parsePagination(r)
	affiliations, total, err := h.service.ListEmployees(r.Context(), principal.UserID, page, perPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]affiliationResponse, len(affiliations))
	for i, a := range affiliations {
		results[i] = toAffiliationResponse(a)
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:   results,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// GetMyCompany は従業員の現在の所属企業を返す。未所属の場合はnullを返す。
// GET /api/my-company
func (h *AffiliationHandler) GetMyCompany(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	affiliation, err := h.service.GetMyCompany(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if affiliation == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"affiliation": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"affiliation": toAffiliationResponse(affiliation)})
}

// RemoveEmployee は従業員の所属を解除する。
// DELETE /api/hr/employees/{id}
func (h *AffiliationHandler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	if err := h.service.RemoveEmployee(r.Context(), principal.UserID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
