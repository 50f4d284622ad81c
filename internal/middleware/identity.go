// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hitoshi/venturex/internal/auth"
	"github.com/hitoshi/venturex/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに呼び出し元IDを格納するためのキー。
var identityContextKey = contextKey("identity")

// Identity はリクエストの呼び出し元。
// Verifiedがtrueの場合はIdPトークンで検証済みで、userIdパラメータより優先される。
type Identity struct {
	ID       string
	Verified bool
}

// NewIdentityMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// subを呼び出し元IDとしてコンテキストに注入するミドルウェアを返す。
// verifierがnilの場合はトークン検証を行わず、ハンドラーがuserIdパラメータから呼び出し元を決める。
func NewIdentityMiddleware(verifier auth.Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			// 1. Bearerトークンを取り出す
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. 検証
			id, err := verifier.Verify(token)
			if err != nil {
				slog.Warn("identity token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 検証済みIDをコンテキストに注入
			ctx := ContextWithIdentity(r.Context(), Identity{ID: id.ID, Verified: true})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityFromContext はリクエストコンテキストから呼び出し元を取得する。
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

// ContextWithIdentity はコンテキストに呼び出し元を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// clientKey はレート制限やログに使う呼び出し元キーを返す。
// 検証済みIDがあればそれを、なければuserIdクエリ、最後にクライアントIPを使う。
func clientKey(r *http.Request) string {
	if id, ok := IdentityFromContext(r.Context()); ok {
		return "id:" + id.ID
	}
	if userID := strings.TrimSpace(r.URL.Query().Get("userId")); userID != "" {
		return "id:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
