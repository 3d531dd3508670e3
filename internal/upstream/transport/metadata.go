package transport

import "net/http"

// Device — заголовки устройства, которые marketplace API ждёт от админки.
type Device struct {
	ID    string
	Type  string
	Model string
}

// WithMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте),
//   - Authorization: Bearer <token> (если есть в контексте),
//   - User-Agent (если передан параметром),
//   - X-Device-ID / X-Device-Type / X-Device-Model (непустые поля dev).
//
// Заголовки, уже выставленные вызывающим, не перезаписываются.
func WithMetadata(userAgent string, dev Device) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			r = r.Clone(ctx)

			set := func(k, v string) {
				if v != "" && r.Header.Get(k) == "" {
					r.Header.Set(k, v)
				}
			}

			set("X-Request-Id", RequestIDFrom(ctx))
			if tok := TokenFrom(ctx); tok != "" {
				set("Authorization", "Bearer "+tok)
			}
			set("User-Agent", userAgent)
			set("X-Device-ID", dev.ID)
			set("X-Device-Type", dev.Type)
			set("X-Device-Model", dev.Model)

			return next.RoundTrip(r)
		})
	}
}
