package http

import (
	"errors"
	"net/http"

	"bilancio/internal/core"
)

// statusFor maps the error taxonomy onto response codes.
func statusFor(err error) int {
	var (
		verr   *core.ValidationError
		aerr   *core.AuthError
		serr   *core.StoreError
		adverr *core.AdviceError
		cerr   *core.ConfigError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &aerr):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &serr):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAdviceBusy):
		return http.StatusConflict
	case errors.As(err, &adverr):
		return http.StatusServiceUnavailable
	case errors.As(err, &cerr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
