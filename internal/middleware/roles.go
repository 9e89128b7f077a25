package middleware

import (
	"net/http"

	"github.com/assetverse/assetverse/internal/model"
)

// RequireRole は指定ロールのプリンシパルのみを通過させるミドルウェアを返す。
// セッションミドルウェアの後段に配置すること。
// 認証済みだがロールが一致しない場合は403を返す。
// 未認証の401とは必ず区別される。
func RequireRole(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				// セッションミドルウェアを経由していない構成ミス。401に倒す。
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
				return
			}

			if principal.Role != role {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenRoleError(r.URL.Path))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
