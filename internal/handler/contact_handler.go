package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/assetverse/assetverse/internal/model"
)

// ContactServiceInterface は問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, email, message string) (*model.ContactMessage, error)
}

// ContactHandler は問い合わせフォームのHTTPハンドラー。認証不要。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// contactRequest は問い合わせ投稿のボディ。
type contactRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit は問い合わせ投稿を処理する。
// POST /contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	created, err := h.service.Submit(r.Context(), req.Email, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": created.ID})
}
