package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error)
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
// 退会時のCookie削除で認証ハンドラーと同じCookie設定を共有する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{service: service, config: config}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 省略されたフィールドは更新しない。
type updateProfileRequest struct {
	Name           *string `json:"name"`
	DateOfBirth    *string `json:"date_of_birth"`
	CompanyName    *string `json:"company_name"`
	CompanyLogoURL *string `json:"company_logo_url"`
	CompanySiteURL *string `json:"company_site_url"`
}

// Me は自分のプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	profile, err := h.service.GetProfile(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(profile))
}

// UpdateMe は自分のプロフィールを更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	input := user.UpdateProfileInput{
		Name:           req.Name,
		CompanyName:    req.CompanyName,
		CompanyLogoURL: req.CompanyLogoURL,
		CompanySiteURL: req.CompanySiteURL,
	}
	if req.DateOfBirth != nil {
		dob, ok := parseDateOfBirth(w, *req.DateOfBirth)
		if !ok {
			return
		}
		input.DateOfBirth = dob
	}

	updated, err := h.service.UpdateProfile(r.Context(), principal.UserID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// CompanyLogo は保存済みの企業ロゴ画像を返す。
// GET /api/users/me/logo
func (h *UserHandler) CompanyLogo(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	profile, err := h.service.GetProfile(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if len(profile.CompanyLogoData) == 0 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	mime := profile.CompanyLogoMime
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	w.Write(profile.CompanyLogoData)
}

// Withdraw は退会処理を行う。全セッションを破棄しアカウントを削除する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	if err := h.service.Withdraw(r.Context(), principal.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
