// Package auth は登録、ローカル/Googleログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// GoogleLoginStatus はGoogleログインの分岐結果を表す。
type GoogleLoginStatus string

const (
	// GoogleLoginExisting は登録済みユーザーの通常ログイン。
	GoogleLoginExisting GoogleLoginStatus = "existing"
	// GoogleLoginNeedsOnboarding はプロフィール未登録でオンボーディングが必要な状態。
	// エラーではなく正常な分岐として扱う。
	GoogleLoginNeedsOnboarding GoogleLoginStatus = "needs_onboarding"
)

// GoogleLoginResult はGoogleコールバックの処理結果。
// 未登録メールはNeedsOnboardingの成功値になり、エラーには決してならない。
type GoogleLoginResult struct {
	Status GoogleLoginStatus

	// Status == GoogleLoginExisting の場合のみ設定される
	User    *model.User
	Session *model.Session

	// Status == GoogleLoginNeedsOnboarding の場合のみ設定される
	Email           string
	Name            string
	OnboardingToken string
}

// RegisterEmployeeInput は従業員登録の入力。
type RegisterEmployeeInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth *time.Time
}

// RegisterHRInput はHR登録の入力。
type RegisterHRInput struct {
	Name           string
	Email          string
	Password       string
	DateOfBirth    *time.Time
	CompanyName    string
	CompanyLogoURL string
}

// OnboardingInput はGoogleオンボーディング完了の入力。
// メールアドレスはトークン側から取得するため含まない。
type OnboardingInput struct {
	Name           string
	DateOfBirth    *time.Time
	CompanyName    string // HRのみ
	CompanyLogoURL string // HRのみ
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge      int           // セッション有効期間（秒）
	OnboardingTokenTTL time.Duration // オンボーディングトークンの有効期間
	DefaultMemberLimit int           // 新規HRの初期従業員数上限
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	tokens      *TokenManager
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	tokens *TokenManager,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		tokens:      tokens,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// RegisterEmployee は従業員プロフィールを作成する。
// セッションは発行しない。登録完了後もログアウト状態のまま。
func (s *Service) RegisterEmployee(ctx context.Context, input RegisterEmployeeInput) (*model.User, error) {
	if err := validateRegistration(input.Name, input.Email, input.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		Name:         input.Name,
		Role:         model.RoleEmployee,
		PasswordHash: hash,
		DateOfBirth:  input.DateOfBirth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError(input.Email)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("employee registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// RegisterHR はHRプロフィールを作成する。
// セッションは発行しない。
func (s *Service) RegisterHR(ctx context.Context, input RegisterHRInput) (*model.User, error) {
	if err := validateRegistration(input.Name, input.Email, input.Password); err != nil {
		return nil, err
	}
	if input.CompanyName == "" {
		return nil, model.NewValidationError("会社名は必須です")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:             uuid.New().String(),
		Email:          input.Email,
		Name:           input.Name,
		Role:           model.RoleHR,
		PasswordHash:   hash,
		DateOfBirth:    input.DateOfBirth,
		CompanyName:    input.CompanyName,
		CompanyLogoURL: input.CompanyLogoURL,
		MemberLimit:    s.config.DefaultMemberLimit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError(input.Email)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("hr registered",
		slog.String("user_id", user.ID),
		slog.String("company", user.CompanyName),
	)
	return user, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	// 未登録・Google連携のみ・パスワード不一致をすべて同一エラーにする
	if user == nil || user.PasswordHash == "" || !checkPassword(user.PasswordHash, password) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, session, nil
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleGoogleCallback はGoogleコールバックを処理する。
// プロバイダーがメールアドレスを返さない場合のみエラー。
// 登録済みメールならセッションを発行し、未登録メールなら
// オンボーディングトークンを含むNeedsOnboarding結果を返す。
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*GoogleLoginResult, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("認可コードの交換に失敗しました: %w", err)
	}
	if info.Email == "" {
		return nil, model.NewNoEmailFromProviderError()
	}

	user, err := s.userRepo.FindByEmail(ctx, info.Email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	if user == nil {
		// 未登録メールは成功値としてオンボーディングへ分岐する。エラーではない。
		token, err := s.tokens.IssueOnboardingToken(info, s.config.OnboardingTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("オンボーディングトークンの発行に失敗しました: %w", err)
		}
		slog.Info("google login needs onboarding", slog.String("email", info.Email))
		return &GoogleLoginResult{
			Status:          GoogleLoginNeedsOnboarding,
			Email:           info.Email,
			Name:            info.Name,
			OnboardingToken: token,
		}, nil
	}

	// 初回のGoogleログインであればidentityを紐付ける
	if err := s.ensureIdentity(ctx, user.ID, info); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("google login succeeded",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return &GoogleLoginResult{
		Status:  GoogleLoginExisting,
		User:    user,
		Session: session,
	}, nil
}

// CompleteGoogleSignupEmployee はオンボーディングトークンを検証し、
// 従業員プロフィールとidentityを作成してセッションを発行する。
func (s *Service) CompleteGoogleSignupEmployee(ctx context.Context, token string, input OnboardingInput) (*model.User, *model.Session, error) {
	info, err := s.tokens.ParseOnboardingToken(token)
	if err != nil {
		return nil, nil, model.NewInvalidOnboardingError()
	}

	user := s.newOnboardedUser(info, input, model.RoleEmployee)
	return s.completeSignup(ctx, user, info)
}

// CompleteGoogleSignupHR はオンボーディングトークンを検証し、
// HRプロフィールとidentityを作成してセッションを発行する。
func (s *Service) CompleteGoogleSignupHR(ctx context.Context, token string, input OnboardingInput) (*model.User, *model.Session, error) {
	info, err := s.tokens.ParseOnboardingToken(token)
	if err != nil {
		return nil, nil, model.NewInvalidOnboardingError()
	}
	if input.CompanyName == "" {
		return nil, nil, model.NewValidationError("会社名は必須です")
	}

	user := s.newOnboardedUser(info, input, model.RoleHR)
	user.CompanyName = input.CompanyName
	user.CompanyLogoURL = input.CompanyLogoURL
	user.MemberLimit = s.config.DefaultMemberLimit
	return s.completeSignup(ctx, user, info)
}

// Logout はセッションを破棄する。
// 呼び出し側はエラー時も警告ログのみでクッキーを必ず失効させること。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションから現在のユーザーを解決する。
// セッション行が存在しない（削除済み・期限切れ）場合は(nil, nil)を返す。
// 行の削除がサインアウト通知そのものであり、以後の参照は匿名に解決される。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// RefreshSession は有効なセッションを新しいIDにローテーションする。
// 無効なセッションに対しては新規発行せずnilを返す。
func (s *Service) RefreshSession(ctx context.Context, sessionID string) (*model.Session, *model.User, error) {
	user, err := s.CurrentUser(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, nil
	}

	newSession, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		// 旧セッションの削除失敗は致命的ではない。期限切れで回収される。
		slog.Warn("failed to delete rotated session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	return newSession, user, nil
}

// SessionTTL はセッショントークンの有効期間を返す。
func (s *Service) SessionTTL() time.Duration {
	return time.Duration(s.config.SessionMaxAge) * time.Second
}

// IssueSessionToken はセッションを包むJWTを発行する。
func (s *Service) IssueSessionToken(session *model.Session, email string) (string, error) {
	return s.tokens.IssueSessionToken(session.ID, email, s.SessionTTL())
}

// ParseSessionToken はセッションJWTからセッションIDを取り出す。
func (s *Service) ParseSessionToken(token string) (string, error) {
	sessionID, _, err := s.tokens.ParseSessionToken(token)
	return sessionID, err
}

// newOnboardedUser はオンボーディング情報から新規ユーザーを構築する。
// 表示名は入力を優先し、未入力ならプロバイダーの名前を使う。
func (s *Service) newOnboardedUser(info *OAuthUserInfo, input OnboardingInput, role model.Role) *model.User {
	name := input.Name
	if name == "" {
		name = info.Name
	}
	now := time.Now()
	return &model.User{
		ID:          uuid.New().String(),
		Email:       info.Email,
		Name:        name,
		Role:        role,
		DateOfBirth: input.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// completeSignup はユーザーとidentityを作成し、セッションを発行する。
func (s *Service) completeSignup(ctx context.Context, user *model.User, info *OAuthUserInfo) (*model.User, *model.Session, error) {
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      time.Now(),
	}

	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, model.NewDuplicateEmailError(user.Email)
		}
		return nil, nil, fmt.Errorf("ユーザーとidentityの作成に失敗しました: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("google signup completed",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, session, nil
}

// ensureIdentity はGoogleログイン時にidentityの紐付けを保証する。
func (s *Service) ensureIdentity(ctx context.Context, userID string, info *OAuthUserInfo) error {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return fmt.Errorf("identityの検索に失敗しました: %w", err)
	}
	if identity != nil {
		return nil
	}

	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         userID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      time.Now(),
	}
	if err := s.identRepo.Create(ctx, newIdentity); err != nil {
		return fmt.Errorf("identityの作成に失敗しました: %w", err)
	}
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.SessionTTL()),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	return session, nil
}

// validateRegistration は登録入力の共通検証。
func validateRegistration(name, email, password string) error {
	if name == "" {
		return model.NewValidationError("名前は必須です")
	}
	if email == "" {
		return model.NewValidationError("メールアドレスは必須です")
	}
	if len(password) < 8 {
		return model.NewValidationError("パスワードは8文字以上必要です")
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
