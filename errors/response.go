package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

const serverErrorMessage = "Server error. Please try again."

var errorStatusMap = map[ErrorCode]int{
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,

	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrInvalidCredentials: http.StatusBadRequest,

	ErrValidation:    http.StatusBadRequest,
	ErrMissingFields: http.StatusBadRequest,
	ErrNotFound:      http.StatusNotFound,
	ErrConflict:      http.StatusBadRequest,

	ErrInvalidGoal:       http.StatusBadRequest,
	ErrInvalidDonation:   http.StatusBadRequest,
	ErrExceedsRemaining:  http.StatusBadRequest,
	ErrInvalidRecipient:  http.StatusBadRequest,
	ErrInvalidTransition: http.StatusBadRequest,
}

// StatusCode maps code to its HTTP status. Unknown codes are 500.
func StatusCode(code ErrorCode) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err as a JSON {message} body. Server-side failures are
// logged with their cause and answered with a generic message.
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Wrap(ErrInternal, serverErrorMessage, err)
	}

	status := StatusCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Int("code", int(appErr.Code)),
			zap.Error(err))
		c.JSON(status, ErrorResponse{Message: serverErrorMessage})
		return
	}

	c.JSON(status, ErrorResponse{Message: appErr.Message})
}
