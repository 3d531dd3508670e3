// transport предоставляет цепочку http.RoundTripper-обёрток для исходящих
// запросов к marketplace API: заголовки, логирование, таймаут, метрики.
package transport

import (
	"context"
	"net/http"
)

type CtxKey string

const (
	CtxRequestID CtxKey = "request_id"
	CtxAuthToken CtxKey = "auth_token"
	CtxActor     CtxKey = "actor"
)

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Middleware — обёртка над RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain собирает обёртки так, что первая в списке выполняется первой.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}

	return base
}

// WithRequestContext кладёт в ctx данные входящего запроса, которые уходят в апстрим.
// Пустые значения не записываются.
func WithRequestContext(ctx context.Context, requestID, token, actor string) context.Context {
	if requestID != "" {
		ctx = context.WithValue(ctx, CtxRequestID, requestID)
	}
	if token != "" {
		ctx = context.WithValue(ctx, CtxAuthToken, token)
	}
	if actor != "" {
		ctx = context.WithValue(ctx, CtxActor, actor)
	}

	return ctx
}

// RequestIDFrom — request id из ctx или "".
func RequestIDFrom(ctx context.Context) string { return stringValue(ctx, CtxRequestID) }

// TokenFrom — bearer-токен из ctx или "".
func TokenFrom(ctx context.Context) string { return stringValue(ctx, CtxAuthToken) }

// ActorFrom — идентификатор администратора из ctx или "".
func ActorFrom(ctx context.Context) string { return stringValue(ctx, CtxActor) }

func stringValue(ctx context.Context, k CtxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(k).(string)
	return s
}
