// log — request-scoped логгер в context.Context.
//
// Логгер кладётся в контекст HTTP-мидлваром (request_id, actor) и
// достаётся ниже по стеку: сервис, дерево локаций, upstream-клиент.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	return slog.Default()
}

// With — сокращение для Into(ctx, From(ctx).With(args...)).
// Возвращает обогащённый контекст и сам логгер.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	l := From(ctx).With(args...)
	return Into(ctx, l), l
}
