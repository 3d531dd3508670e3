package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/locations-gateway/pkg/log"
	"github.com/pribylovaa/locations-gateway/pkg/redact"
)

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - берёт X-Request-Id из запроса или контекста (или генерирует новый и добавляет);
//   - прокладывает обогащённый логгер в контекст запроса (pkg/log);
//   - пишет одну финальную запись: msg="upstream", status, dur.
//
// Безопасность: тело не логируется, Authorization маскируется.
func WithLogging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get("X-Request-Id")
			if rid == "" {
				rid = RequestIDFrom(r.Context())
			}
			if rid == "" {
				rid = uuid.NewString()
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("host", r.URL.Host),
			)

			r = r.Clone(log.Into(r.Context(), l))
			r.Header.Set("X-Request-Id", rid)

			resp, err := next.RoundTrip(r)

			attrs := []any{slog.Duration("dur", time.Since(start))}
			if auth := r.Header.Get("Authorization"); auth != "" {
				attrs = append(attrs, slog.String("auth", redact.Authorization(auth)))
			}

			if err != nil {
				l.Warn("upstream", append(attrs, slog.String("err", err.Error()))...)
				return nil, err
			}

			l.Info("upstream", append(attrs, slog.Int("status", resp.StatusCode))...)

			return resp, nil
		})
	}
}
