package handler

import (
	"errors"
	"net/http"
	"strconv"

	"billing/internal/service"
	"billing/pkg/response"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error kind onto an HTTP status. Persistence
// failures are reported to Sentry when it is configured.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, response.CodePersistenceFailure
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, service.ErrInvalidAmount):
		status, code = http.StatusBadRequest, response.CodeInvalidAmount
	case errors.Is(err, service.ErrInvalidRequest):
		status, code = http.StatusBadRequest, response.CodeInvalidRequest
	case errors.Is(err, service.ErrConflictingState):
		status, code = http.StatusConflict, response.CodeConflictingState
	}

	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	}

	c.JSON(status, response.Fail(status, code, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, response.CodeInvalidRequest, msg))
}

// parseID reads the :id path parameter as an invoice id.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid invoice id: "+c.Param("id"))
		return 0, false
	}
	return uint(id), true
}
