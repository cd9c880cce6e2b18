package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	Unranked []int  `json:"unranked,omitempty"`
}

// statusFor maps an error to its HTTP status and machine-readable code.
func statusFor(err error) (int, string) {
	code := middleware.Classify(err)
	switch code {
	case middleware.StatusInputError:
		return http.StatusBadRequest, code
	case middleware.StatusStateError, middleware.StatusDuplicate:
		return http.StatusConflict, code
	case middleware.StatusConsistencyError:
		return http.StatusUnprocessableEntity, code
	case middleware.StatusForbidden:
		return http.StatusForbidden, code
	default:
		return http.StatusInternalServerError, code
	}
}

// writeError renders err. Details of unexpected errors are logged, not
// returned to the client.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: err.Error(), Code: code}

	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		body.Field = inputErr.Field
	}
	var dce *domain.DataConsistencyError
	if errors.As(err, &dce) {
		body.Unranked = dce.Unranked
	}

	if status == http.StatusInternalServerError {
		if !errors.Is(err, context.Canceled) {
			logger.ErrorContext(c.Request.Context(), "request failed",
				"path", c.Request.URL.Path,
				"error", err,
			)
		}
		body.Error = http.StatusText(status)
	}

	c.AbortWithStatusJSON(status, body)
}
