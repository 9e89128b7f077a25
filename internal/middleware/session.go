// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/assetverse/assetverse/internal/model"
)

// SessionCookieName はセッションJWTを保持するCookieの名前。
const SessionCookieName = "assetverse_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var principalContextKey = contextKey("principal")

// Principal は認証済みリクエストの主体を表す。
// ロールはバックエンドプロフィールから導出された値であり、
// 毎リクエストのセッション解決で取得される。
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Name      string
	Role      model.Role
}

// SessionTokenParser はセッションJWTの検証インターフェース。
type SessionTokenParser interface {
	ParseSessionToken(token string) (sessionID string, err error)
}

// PrincipalResolver はセッションIDからユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
// セッション行が存在しない場合は(nil, nil)を返す契約。
type PrincipalResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only CookieのJWTからセッションを解決し、
// プリンシパルをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieなし・JWT不正・セッション行なしはすべて401に解決される。
// 401レスポンスには拒否されたパスがメッセージに含まれる。
func NewSessionMiddleware(parser SessionTokenParser, resolver PrincipalResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
				return
			}

			sessionID, err := parser.ParseSessionToken(cookie.Value)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
				return
			}

			// セッション行が消えていれば user == nil（サインアウト済み）。
			// 途中状態はなく、コミット済みの参照結果だけで判定する。
			user, err := resolver.CurrentUser(r.Context(), sessionID)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
				return
			}
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
				return
			}

			principal := &Principal{
				UserID:    user.ID,
				SessionID: sessionID,
				Email:     user.Email,
				Name:      user.Name,
				Role:      user.Role,
			}
			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok || principal == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return principal, nil
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
