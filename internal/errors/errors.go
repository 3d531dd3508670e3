// errors стандартизирует ответы об ошибках HTTP-слоя locations-gateway.
// На вход он принимает ошибку сервисного слоя, а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Исключение: сообщение апстрима для 4xx (например, "District already exists")
// отдаётся как есть, его показывает админка.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/locations-gateway/internal/service"
	"github.com/pribylovaa/locations-gateway/internal/upstream"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и ответ для фронта.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - неизвестная ошибка — 500/internal (без утечки деталей);
//   - сентинел сервиса — по таблице fromService;
//   - 4xx апстрима — message апстрима, если он непустой.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error: APIError{
				Code:    "internal",
				Message: "internal error",
			},
		}
	}

	httpStatus, code, msg := fromService(err)

	var se *upstream.StatusError
	if stderrors.As(err, &se) && se.Status >= 400 && se.Status < 500 && se.Message != "" {
		msg = se.Message
	}

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// BadRequest — ошибка разбора запроса в самом хендлере (путь, тело, форма).
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	resp := ErrorResponse{Error: APIError{Code: "invalid_argument", Message: msg}}
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(resp)
}

// fromService — маппинг ошибок сервиса на HTTP/FE-код/сообщение:
//   - ErrInvalidArgument -> 400
//   - ErrNotFound -> 404
//   - ErrConflict (дубликат в апстриме или узел уже грузится) -> 409
//   - ErrPrecondition (load more до загрузки или после исчерпания) -> 412
//   - ErrUnauthenticated -> 401
//   - ErrPermissionDenied -> 403
//   - context.Canceled -> 499
//   - context.DeadlineExceeded -> 504
//   - ErrUnavailable -> 503
//   - прочее -> 500/internal
func fromService(err error) (int, string, string) {
	switch {
	case stderrors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict", "conflict"
	case stderrors.Is(err, service.ErrPrecondition):
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case stderrors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied", "permission denied"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case stderrors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
