package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("upstream: unauthenticated")
	ErrForbidden       = errors.New("upstream: forbidden")
	ErrNotFound        = errors.New("upstream: not found")
	ErrInvalidArgument = errors.New("upstream: invalid argument")
	ErrConflict        = errors.New("upstream: conflict")
	ErrUnavailable     = errors.New("upstream: unavailable")
	ErrBadResponse     = errors.New("upstream: bad response")
)

// StatusError — не-2xx ответ marketplace API.
// Message — поле message из тела ответа, если оно было.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream: http status %d", e.Status)
	}

	return fmt.Sprintf("upstream: http status %d: %s", e.Status, e.Message)
}

// Unwrap сводит статус к одной из сентинел-ошибок пакета.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return ErrInvalidArgument
	case e.Status >= 500:
		return ErrUnavailable
	default:
		return ErrBadResponse
	}
}
