package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meet-server/internal/utils/apperrors"
)

// ErrorResponse is the error payload for every endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError maps application errors to HTTP responses
func HandleError(reqCtx *gin.Context, err error, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		statusCode := apperrors.ErrorTypeToHTTPStatus(appErr.GetErrorType())

		errorMessage := appErr.Message
		if errorMessage == "" {
			errorMessage = message
		}

		reqCtx.AbortWithStatusJSON(statusCode, ErrorResponse{
			Error:   errorMessage,
			Message: errorMessage,
		})
		return
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:   message,
		Message: message,
	})
}
