package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/assetverse/assetverse/internal/auth"
	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// oauthStateCookie はOAuth stateを保持するCookieの名前。
const oauthStateCookie = "assetverse_oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	RegisterEmployee(ctx context.Context, input auth.RegisterEmployeeInput) (*model.User, error)
	RegisterHR(ctx context.Context, input auth.RegisterHRInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	GetLoginURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*auth.GoogleLoginResult, error)
	CompleteGoogleSignupEmployee(ctx context.Context, token string, input auth.OnboardingInput) (*model.User, *model.Session, error)
	CompleteGoogleSignupHR(ctx context.Context, token string, input auth.OnboardingInput) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	RefreshSession(ctx context.Context, sessionID string) (*model.Session, *model.User, error)
	IssueSessionToken(session *model.Session, email string) (string, error)
	ParseSessionToken(token string) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL   string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証関連のHTTPハンドラー。
// ローカル認証（メール+パスワード）とGoogle OAuthの両方を提供する。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// --- リクエスト・レスポンス型 ---

type registerEmployeeRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
}

type registerHRRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	CompanyName    string `json:"company_name"`
	CompanyLogoURL string `json:"company_logo_url,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type completeSignupRequest struct {
	Token          string `json:"token"`
	Role           string `json:"role"`
	Name           string `json:"name"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
	CompanyLogoURL string `json:"company_logo_url,omitempty"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name,omitempty"`
	MemberLimit int    `json:"member_limit,omitempty"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        string(user.Role),
		CompanyName: user.CompanyName,
		MemberLimit: user.MemberLimit,
	}
}

// --- ハンドラー ---

// RegisterEmployee は従業員のローカル登録を処理する。
// POST /auth/register/employee
// 登録はセッションを発行しない。完了後もログアウト状態のまま。
func (h *AuthHandler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var req registerEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	dob, ok := parseDateOfBirth(w, req.DateOfBirth)
	if !ok {
		return
	}

	user, err := h.service.RegisterEmployee(r.Context(), auth.RegisterEmployeeInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: dob,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// RegisterHR はHRマネージャーのローカル登録を処理する。
// POST /auth/register/hr
func (h *AuthHandler) RegisterHR(w http.ResponseWriter, r *http.Request) {
	var req registerHRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	dob, ok := parseDateOfBirth(w, req.DateOfBirth)
	if !ok {
		return
	}

	user, err := h.service.RegisterHR(r.Context(), auth.RegisterHRInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		DateOfBirth:    dob,
		CompanyName:    req.CompanyName,
		CompanyLogoURL: req.CompanyLogoURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login はローカル認証を処理し、セッションCookieを設定する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !h.setSessionCookie(w, session, user.Email) {
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
//
// 登録済みメール: セッションを発行しフロントエンドへリダイレクト。
// 未登録メール: オンボーディングトークン付きでオンボーディング画面へリダイレクト。
// 未登録はエラーではなく正常な分岐として扱う。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("stateパラメータが不正です"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("認可コードがありません"))
		return
	}

	result, err := h.service.HandleGoogleCallback(r.Context(), code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Status == auth.GoogleLoginNeedsOnboarding {
		// セッションは発行せず、オンボーディングトークンを付けて誘導する
		http.Redirect(w, r,
			h.config.FrontendURL+"/onboarding?token="+result.OnboardingToken,
			http.StatusTemporaryRedirect)
		return
	}

	if !h.setSessionCookie(w, result.Session, result.User.Email) {
		return
	}

	http.Redirect(w, r, h.config.FrontendURL, http.StatusTemporaryRedirect)
}

// CompleteSignup はGoogleオンボーディングを完了し、セッションを発行する。
// POST /auth/google/complete-signup
func (h *AuthHandler) CompleteSignup(w http.ResponseWriter, r *http.Request) {
	var req completeSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	dob, ok := parseDateOfBirth(w, req.DateOfBirth)
	if !ok {
		return
	}

	input := auth.OnboardingInput{
		Name:           req.Name,
		DateOfBirth:    dob,
		CompanyName:    req.CompanyName,
		CompanyLogoURL: req.CompanyLogoURL,
	}

	var (
		user    *model.User
		session *model.Session
		err     error
	)
	switch model.Role(req.Role) {
	case model.RoleEmployee:
		user, session, err = h.service.CompleteGoogleSignupEmployee(r.Context(), req.Token, input)
	case model.RoleHR:
		user, session, err = h.service.CompleteGoogleSignupHR(r.Context(), req.Token, input)
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRoleError(req.Role))
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !h.setSessionCookie(w, session, user.Email) {
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// RefreshSession はセッションをローテーションし、新しいJWTをCookieに設定する。
// POST /auth/jwt
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDFromCookie(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	session, user, err := h.service.RefreshSession(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	// セッション行が消えている場合は(nil, nil, nil)が返る契約。
	if session == nil || user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	if !h.setSessionCookie(w, session, user.Email) {
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout はセッションを破棄する。
// POST /auth/logout
// サーバー側の削除に失敗してもCookieはクリアし、成功として扱う。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := h.sessionIDFromCookie(r); ok {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// --- Cookieヘルパー ---

// setSessionCookie はセッションJWTをHTTP Only Cookieに設定する。
// トークン発行に失敗した場合はエラーレスポンスを書き込みfalseを返す。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session, email string) bool {
	token, err := h.service.IssueSessionToken(session, email)
	if err != nil {
		slog.Error("failed to issue session token", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
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
}

// sessionIDFromCookie はCookieのJWTからセッションIDを取り出す。
func (h *AuthHandler) sessionIDFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	sessionID, err := h.service.ParseSessionToken(cookie.Value)
	if err != nil {
		return "", false
	}
	return sessionID, true
}

// parseDateOfBirth はYYYY-MM-DD形式の生年月日を解析する。
// 不正な形式の場合はエラーレスポンスを書き込みfalseを返す。
func parseDateOfBirth(w http.ResponseWriter, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("生年月日はYYYY-MM-DD形式で指定してください"))
		return nil, false
	}
	return &t, true
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
