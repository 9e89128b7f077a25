package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	createFn             func(ctx context.Context, user *model.User) error
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) FindByIDForUpdate(ctx context.Context, _ *sql.Tx, id string) (*model.User, error) {
	return m.FindByID(ctx, id)
}

func (m *mockUserRepo) Update(_ context.Context, _ *model.User) error          { return nil }
func (m *mockUserRepo) UpdateMemberLimit(_ context.Context, _ string, _ int) error { return nil }
func (m *mockUserRepo) UpdateCompanyLogo(_ context.Context, _ string, _ []byte, _ string) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error { return nil }

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	createFn         func(ctx context.Context, identity *model.Identity) error
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	if m.createFn != nil {
		return m.createFn(ctx, identity)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

func newTestService(oauth OAuthProvider, userRepo *mockUserRepo, identRepo *mockIdentityRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(oauth, NewTokenManager("test-secret"), userRepo, identRepo, sessionRepo, ServiceConfig{
		SessionMaxAge:      3600,
		OnboardingTokenTTL: 15 * time.Minute,
		DefaultMemberLimit: 5,
	})
}

// --- 登録 ---

// 従業員登録が成功してもセッションを発行しないことを検証
func TestRegisterEmployee_DoesNotCreateSession(t *testing.T) {
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, _ *model.Session) error {
			sessionCreated = true
			return nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	user, err := svc.RegisterEmployee(context.Background(), RegisterEmployeeInput{
		Name:     "Tanaka Taro",
		Email:    "taro@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("RegisterEmployee error: %v", err)
	}
	if user.Role != model.RoleEmployee {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleEmployee)
	}
	if sessionCreated {
		t.Error("registration must not create a session")
	}
}

// HR登録が初期MemberLimitを設定することを検証
func TestRegisterHR_SetsDefaultMemberLimit(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, &mockSessionRepo{})

	_, err := svc.RegisterHR(context.Background(), RegisterHRInput{
		Name:        "Yamada Hanako",
		Email:       "hr@example.com",
		Password:    "password123",
		CompanyName: "Example Inc",
	})
	if err != nil {
		t.Fatalf("RegisterHR error: %v", err)
	}
	if created.MemberLimit != 5 {
		t.Errorf("MemberLimit = %d, want 5", created.MemberLimit)
	}
	if created.Role != model.RoleHR {
		t.Errorf("Role = %q, want %q", created.Role, model.RoleHR)
	}
}

// メールアドレス重複がDUPLICATE_EMAILに変換されることを検証
func TestRegisterEmployee_DuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, &mockSessionRepo{})

	_, err := svc.RegisterEmployee(context.Background(), RegisterEmployeeInput{
		Name:     "Tanaka Taro",
		Email:    "dup@example.com",
		Password: "password123",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("expected DUPLICATE_EMAIL, got %v", err)
	}
}

// パスワードが短すぎる場合に検証エラーになることを検証
func TestRegisterEmployee_ShortPassword(t *testing.T) {
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})

	_, err := svc.RegisterEmployee(context.Background(), RegisterEmployeeInput{
		Name:     "Tanaka Taro",
		Email:    "taro@example.com",
		Password: "short",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

// --- ローカルログイン ---

// 正しい認証情報でセッションが発行されることを検証
func TestLogin_Success(t *testing.T) {
	hash, err := hashPassword("password123")
	if err != nil {
		t.Fatalf("hashPassword error: %v", err)
	}
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: "taro@example.com", Role: model.RoleEmployee, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, &mockSessionRepo{})

	user, session, err := svc.Login(context.Background(), "taro@example.com", "password123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want user-1", user.ID)
	}
	if session == nil || session.UserID != "user-1" {
		t.Errorf("unexpected session: %+v", session)
	}
}

// パスワード不一致と未登録メールが同一のエラーになることを検証
func TestLogin_InvalidCredentials(t *testing.T) {
	hash, _ := hashPassword("password123")
	tests := []struct {
		name string
		user *model.User
	}{
		{"unknown email", nil},
		{"wrong password", &model.User{ID: "user-1", PasswordHash: hash}},
		{"google-only user", &model.User{ID: "user-2", PasswordHash: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
					return tt.user, nil
				},
			}
			svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, &mockSessionRepo{})

			_, _, err := svc.Login(context.Background(), "taro@example.com", "wrongpassword")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("expected INVALID_CREDENTIALS, got %v", err)
			}
		})
	}
}

// --- Googleログイン ---

// 登録済みメールで通常ログインになることを検証
func TestHandleGoogleCallback_ExistingUser(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{ProviderUserID: "google-123", Email: "hr@example.com", Name: "Yamada", Provider: "google"}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: "hr@example.com", Role: model.RoleHR}, nil
		},
	}
	svc := newTestService(oauth, userRepo, &mockIdentityRepo{}, &mockSessionRepo{})

	result, err := svc.HandleGoogleCallback(context.Background(), "code")
	if err != nil {
		t.Fatalf("HandleGoogleCallback error: %v", err)
	}
	if result.Status != GoogleLoginExisting {
		t.Errorf("Status = %q, want existing", result.Status)
	}
	if result.Session == nil {
		t.Error("expected session for existing user")
	}
	if result.User.Role != model.RoleHR {
		t.Errorf("Role = %q, want hr", result.User.Role)
	}
}

// 未登録メールがエラーではなくオンボーディング分岐になることを検証
func TestHandleGoogleCallback_UnknownEmail_NeedsOnboarding(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{ProviderUserID: "google-456", Email: "new@example.com", Name: "Newcomer", Provider: "google"}, nil
		},
	}
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, _ *model.Session) error {
			sessionCreated = true
			return nil
		},
	}
	svc := newTestService(oauth, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	result, err := svc.HandleGoogleCallback(context.Background(), "code")
	if err != nil {
		t.Fatalf("unknown email must not be an error, got: %v", err)
	}
	if result.Status != GoogleLoginNeedsOnboarding {
		t.Errorf("Status = %q, want needs_onboarding", result.Status)
	}
	if result.OnboardingToken == "" {
		t.Error("expected onboarding token")
	}
	if sessionCreated {
		t.Error("onboarding branch must not create a session")
	}

	// トークンからプロバイダー情報が復元できること
	info, err := svc.tokens.ParseOnboardingToken(result.OnboardingToken)
	if err != nil {
		t.Fatalf("ParseOnboardingToken error: %v", err)
	}
	if info.Email != "new@example.com" || info.ProviderUserID != "google-456" {
		t.Errorf("unexpected token payload: %+v", info)
	}
}

// プロバイダーがメールアドレスを返さない場合にエラーになることを検証
func TestHandleGoogleCallback_NoEmail(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{ProviderUserID: "google-789", Provider: "google"}, nil
		},
	}
	svc := newTestService(oauth, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})

	_, err := svc.HandleGoogleCallback(context.Background(), "code")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNoEmailFromProvider {
		t.Errorf("expected NO_EMAIL_FROM_PROVIDER, got %v", err)
	}
}

// --- オンボーディング完了 ---

// 従業員オンボーディングがプロフィール・identity・セッションを作成することを検証
func TestCompleteGoogleSignupEmployee(t *testing.T) {
	tokens := NewTokenManager("test-secret")
	token, err := tokens.IssueOnboardingToken(&OAuthUserInfo{
		ProviderUserID: "google-456",
		Email:          "new@example.com",
		Name:           "Newcomer",
		Provider:       "google",
	}, 15*time.Minute)
	if err != nil {
		t.Fatalf("IssueOnboardingToken error: %v", err)
	}

	var createdUser *model.User
	var createdIdentity *model.Identity
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, _ *model.Session) error {
			sessionCreated = true
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, tokens, userRepo, &mockIdentityRepo{}, sessionRepo, ServiceConfig{
		SessionMaxAge:      3600,
		OnboardingTokenTTL: 15 * time.Minute,
		DefaultMemberLimit: 5,
	})

	user, session, err := svc.CompleteGoogleSignupEmployee(context.Background(), token, OnboardingInput{Name: "Newcomer"})
	if err != nil {
		t.Fatalf("CompleteGoogleSignupEmployee error: %v", err)
	}
	if user.Role != model.RoleEmployee {
		t.Errorf("Role = %q, want employee", user.Role)
	}
	if createdUser.Email != "new@example.com" {
		t.Errorf("Email = %q, want new@example.com", createdUser.Email)
	}
	if createdIdentity.ProviderUserID != "google-456" {
		t.Errorf("ProviderUserID = %q, want google-456", createdIdentity.ProviderUserID)
	}
	if !sessionCreated || session == nil {
		t.Error("expected session after onboarding completion")
	}
}

// 無効なトークンでINVALID_ONBOARDING_TOKENになることを検証
func TestCompleteGoogleSignup_InvalidToken(t *testing.T) {
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})

	_, _, err := svc.CompleteGoogleSignupEmployee(context.Background(), "garbage", OnboardingInput{})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidOnboarding {
		t.Errorf("expected INVALID_ONBOARDING_TOKEN, got %v", err)
	}
}

// HRオンボーディングで会社名が必須なことを検証
func TestCompleteGoogleSignupHR_RequiresCompanyName(t *testing.T) {
	tokens := NewTokenManager("test-secret")
	token, _ := tokens.IssueOnboardingToken(&OAuthUserInfo{
		Email: "new@example.com", Provider: "google", ProviderUserID: "g-1",
	}, 15*time.Minute)

	svc := NewService(&mockOAuthProvider{}, tokens, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{
		SessionMaxAge: 3600, OnboardingTokenTTL: 15 * time.Minute, DefaultMemberLimit: 5,
	})

	_, _, err := svc.CompleteGoogleSignupHR(context.Background(), token, OnboardingInput{Name: "X"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

// --- ログアウト・セッション解決 ---

// ログアウトがセッションを削除することを検証
func TestLogout_DeletesSession(t *testing.T) {
	deletedID := ""
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if deletedID != "session-1" {
		t.Errorf("deleted session = %q, want session-1", deletedID)
	}
}

// セッションIDなしのログアウトがエラーにならないことを検証
func TestLogout_EmptySessionID(t *testing.T) {
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Errorf("Logout with empty ID should be a no-op, got: %v", err)
	}
}

// 削除済みセッションの参照が匿名（nil）に解決されることを検証
func TestCurrentUser_DeletedSession_ResolvesAnonymous(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, nil // 行が存在しない
		},
	}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	user, err := svc.CurrentUser(context.Background(), "deleted-session")
	if err != nil {
		t.Fatalf("CurrentUser error: %v", err)
	}
	if user != nil {
		t.Errorf("deleted session must resolve to anonymous, got %+v", user)
	}
}

// 無効なセッションのリフレッシュが新規セッションを発行しないことを検証
func TestRefreshSession_InvalidSession(t *testing.T) {
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, nil
		},
		createFn: func(_ context.Context, _ *model.Session) error {
			sessionCreated = true
			return nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	session, user, err := svc.RefreshSession(context.Background(), "expired")
	if err != nil {
		t.Fatalf("RefreshSession error: %v", err)
	}
	if session != nil || user != nil || sessionCreated {
		t.Error("invalid session must not be refreshed")
	}
}

// 有効なセッションのリフレッシュがIDをローテーションすることを検証
func TestRefreshSession_RotatesID(t *testing.T) {
	deletedID := ""
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: "taro@example.com", Role: model.RoleEmployee}, nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, sessionRepo)

	session, user, err := svc.RefreshSession(context.Background(), "old-session")
	if err != nil {
		t.Fatalf("RefreshSession error: %v", err)
	}
	if session == nil || session.ID == "old-session" {
		t.Error("expected a new session ID")
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("unexpected user: %+v", user)
	}
	if deletedID != "old-session" {
		t.Errorf("old session not deleted, deletedID = %q", deletedID)
	}
}
