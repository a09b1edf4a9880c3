package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/repositories/users"
)

// errorStatus lists the classified errors in match order. Anything not
// listed is a server fault.
var errorStatus = []struct {
	err    error
	status int
}{
	{common.ErrMissingCredentials, http.StatusBadRequest},
	{common.ErrMissingToken, http.StatusBadRequest},
	{common.ErrInvalidInput, http.StatusBadRequest},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrMissingUser, http.StatusUnauthorized},
	{common.ErrNotFound, http.StatusNotFound},
	{common.ErrExists, http.StatusConflict},
	{common.ErrContentTooLarge, http.StatusRequestEntityTooLarge},
	{common.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
	{common.ErrReadContent, http.StatusUnprocessableEntity},
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// statusText renders a code the way every response body reports it, e.g. "200 OK".
func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

func statusFor(err error) int {
	status, _ := classify(err)
	return status
}

// classify returns the status for err and the sentinel it matched, nil for
// server faults.
func classify(err error) (int, error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge, common.ErrContentTooLarge
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err
		}
	}
	return http.StatusInternalServerError, nil
}

// clientMessage is the text a client sees for err. Only conflicts and
// field validation failures say more than the matched sentinel.
func clientMessage(err, sentinel error) string {
	var conflict *users.ConflictError
	if errors.As(err, &conflict) {
		return conflict.Error()
	}
	var invalid *validationError
	if errors.As(err, &invalid) {
		return invalid.Error()
	}
	return sentinel.Error()
}

// abortWithError writes the classified response for err and stops the
// handler chain. Server faults are logged with full detail and answered
// with a generic message; client errors keep their detail in the debug log.
func abortWithError(c *gin.Context, logger logging.Logger, err error) {
	status, sentinel := classify(err)
	var message string
	if sentinel == nil {
		logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		message = common.ErrInternal.Error()
	} else {
		message = clientMessage(err, sentinel)
		if message != err.Error() {
			logger.Debug(c.Request.Context(), "request rejected",
				"method", c.Request.Method, "path", c.Request.URL.Path, "status", status, "error", err)
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Status: statusText(status), Message: message})
}
