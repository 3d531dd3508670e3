package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WithTimeout навешивает таймаут d на исходящий запрос, если у его контекста
// ещё нет дедлайна. Существующий дедлайн не переопределяется.
//
// Контракт:
//  1. d <= 0 — запрос уходит как есть;
//  2. у ctx уже есть deadline — оставляет как есть;
//  3. иначе — context.WithTimeout(ctx, d); cancel вызывается при ошибке
//     или при закрытии тела ответа.
func WithTimeout(d time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if d <= 0 {
				return next.RoundTrip(r)
			}
			if _, ok := r.Context().Deadline(); ok {
				return next.RoundTrip(r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// WithMetrics — счётчик и гистограмма исходящих запросов (метки code, method).
// nil-коллекторы пропускаются.
func WithMetrics(requests *prometheus.CounterVec, duration prometheus.ObserverVec) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if duration != nil {
			next = promhttp.InstrumentRoundTripperDuration(duration, next)
		}
		if requests != nil {
			next = promhttp.InstrumentRoundTripperCounter(requests, next)
		}

		return next
	}
}
