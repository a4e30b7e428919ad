package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyohosu/translate-nudge/models"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, models.Response{Success: true, Data: data})
}

func respondError(c *gin.Context, err error) {
	var nudgeErr *models.NudgeError
	if !errors.As(err, &nudgeErr) {
		nudgeErr = models.NewNudgeError("", models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(nudgeErr), models.Response{
		Success: false,
		Error:   nudgeErr.Detail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.NudgeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeDocument:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
