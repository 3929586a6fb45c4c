package api

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/auth"
	"github.com/sh1zzle/activetime-project/internal/response"
	"github.com/sh1zzle/activetime-project/internal/telemetry"
)

// HandleError logs err and writes the error envelope. An *internal.AppError
// anywhere in the chain overrides status and msg. Validation failures (400)
// carry the underlying error text; anything else stays server-side.
func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString(requestIDKey)

	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		status, msg = appErr.Code, appErr.Message
	} else if status == http.StatusBadRequest && err != nil {
		msg = msg + ": " + err.Error()
	}

	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	if status >= http.StatusInternalServerError {
		reportError(c, err)
	}
	c.JSON(status, response.NewAppError(status, msg))
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString(requestIDKey)
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(http.StatusOK, response.Success(data, meta))
}

func HandleCreated(c *gin.Context, logger internal.Logger, data interface{}) {
	requestID := c.GetString(requestIDKey)
	logger.Infof("[request_id=%s] Created", requestID)
	c.JSON(http.StatusCreated, response.Success(data, nil))
}

func reportError(c *gin.Context, err error) {
	tags := map[string]string{
		"request_id": c.GetString(requestIDKey),
		"route":      c.FullPath(),
	}
	telemetry.CaptureException(sentrygin.GetHubFromContext(c), err, tags)
}

func currentUser(c *gin.Context) *internal.User {
	return c.MustGet(auth.UserKey).(*internal.User)
}
