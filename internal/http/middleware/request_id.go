package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
)

// maxRequestIDLen — входящие id длиннее считаются мусором и заменяются.
const maxRequestIDLen = 128

// RequestID обеспечивает наличие X-Request-Id:
//  1. читает заголовок X-Request-Id, если он есть и не длиннее maxRequestIDLen;
//  2. иначе генерирует UUID v4;
//  3. кладёт id в Response Header, Request Header и в контекст по ключу
//     transport.CtxRequestID (его читает транспорт апстрима и журнал).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
				r.Header.Set("X-Request-Id", id)
			}
			w.Header().Set("X-Request-Id", id)

			ctx := transport.WithRequestContext(r.Context(), id, "", "")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
