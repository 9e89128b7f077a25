package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/assetverse/assetverse/internal/model"
)

// --- モック定義 ---

type mockTokenParser struct {
	parseFn func(token string) (string, error)
}

func (m *mockTokenParser) ParseSessionToken(token string) (string, error) {
	if m.parseFn != nil {
		return m.parseFn(token)
	}
	return "", errors.New("invalid token")
}

type mockResolver struct {
	currentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockResolver) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func validParser() *mockTokenParser {
	return &mockTokenParser{
		parseFn: func(token string) (string, error) {
			if token == "valid-jwt" {
				return "session-1", nil
			}
			return "", errors.New("invalid token")
		},
	}
}

func employeeResolver() *mockResolver {
	return &mockResolver{
		currentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID == "session-1" {
				return &model.User{
					ID:    "user-123",
					Email: "taro@example.com",
					Name:  "Taro",
					Role:  model.RoleEmployee,
				}, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsPrincipal(t *testing.T) {
	mw := NewSessionMiddleware(validParser(), employeeResolver())

	var captured *Principal
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := PrincipalFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = principal
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-jwt"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if captured == nil {
		t.Fatal("principal not captured")
	}
	if captured.UserID != "user-123" {
		t.Errorf("userID = %q, want %q", captured.UserID, "user-123")
	}
	if captured.SessionID != "session-1" {
		t.Errorf("sessionID = %q, want %q", captured.SessionID, "session-1")
	}
	if captured.Role != model.RoleEmployee {
		t.Errorf("role = %q, want %q", captured.Role, model.RoleEmployee)
	}
}

func TestSessionMiddleware_NoCookie_Returns401WithAttemptedPath(t *testing.T) {
	mw := NewSessionMiddleware(validParser(), employeeResolver())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
	// 401メッセージには拒否されたパスが含まれる
	if !strings.Contains(body.Message, "/api/assets") {
		t.Errorf("message %q should contain attempted path", body.Message)
	}
}

func TestSessionMiddleware_InvalidJWT_Returns401(t *testing.T) {
	mw := NewSessionMiddleware(validParser(), employeeResolver())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered-jwt"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_DeletedSession_Returns401(t *testing.T) {
	// JWTは有効だがセッション行が削除済み（サインアウト済み）のケース。
	resolver := &mockResolver{
		currentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, nil
		},
	}
	mw := NewSessionMiddleware(validParser(), resolver)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-jwt"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_ResolverError_Returns401(t *testing.T) {
	resolver := &mockResolver{
		currentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	mw := NewSessionMiddleware(validParser(), resolver)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-jwt"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestPrincipalFromContext_NotSet_ReturnsError(t *testing.T) {
	_, err := PrincipalFromContext(context.Background())
	if err == nil {
		t.Error("expected error for missing principal")
	}
}
