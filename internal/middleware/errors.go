package middleware

import (
	"net/http"

	"batball/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the single error envelope of the API.
type ErrorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope builds the response for err. In production internal messages
// and details are replaced by a generic text. A no-cache error over a
// surfaced provider error is reported as the provider error.
func Envelope(err error, production bool) (int, ErrorBody) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Status: "error", Code: apperr.KindInternal.String(), Message: "Internal server error"}

	appErr, ok := apperr.As(err)
	if ok && appErr.Kind == apperr.KindNoCacheAvailable {
		// ошибку провайдера с Surface отдаем как есть
		if cause, causeOK := apperr.As(appErr.Cause); causeOK && cause.Surface {
			appErr = cause
		}
	}
	if ok {
		body.Code = appErr.Kind.String()
		if appErr.Message != "" {
			body.Message = appErr.Message
		}
		body.Details = appErr.Details
	} else if !production {
		body.Message = err.Error()
	}

	if production && status >= http.StatusInternalServerError && body.Code == apperr.KindInternal.String() {
		body.Message = "Internal server error"
		body.Details = nil
	}
	return status, body
}

// ErrorHandler пишет конверт для последней ошибки из c.Errors
func ErrorHandler(production bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := Envelope(err, production)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		c.JSON(status, body)
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(production bool, logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		_, body := Envelope(apperr.New(apperr.KindInternal, "Internal server error"), production)
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

// Fail records err for ErrorHandler and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
