package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
	"github.com/pribylovaa/locations-gateway/pkg/redact"
)

// AuthBearer извлекает Bearer-токен из Authorization и кладёт в контекст:
//   - сырой токен по ключу transport.CtxAuthToken (уходит в апстрим как есть);
//   - идентификатор администратора по ключу transport.CtxActor.
//
// Подпись токена не проверяется: это делает marketplace API. Actor нужен
// только для разделения сессий дерева и журнала: claim "sub", если токен
// разбирается как JWT, иначе отпечаток токена.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "

			auth := r.Header.Get("Authorization")
			if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
				if token := strings.TrimSpace(auth[len(prefix):]); token != "" {
					ctx := transport.WithRequestContext(r.Context(), "", token, Actor(token))
					r = r.WithContext(ctx)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Actor — идентификатор администратора по токену.
func Actor(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			return sub
		}
	}

	return "token:" + redact.Fingerprint(token)
}
