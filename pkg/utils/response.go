package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
}

// statusByCode maps application error codes onto HTTP statuses. Transient
// store failures answer 503 so callers know a retry is reasonable.
var statusByCode = map[string]int{
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTransient:    http.StatusServiceUnavailable,
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func SendError(c *gin.Context, statusCode int, err *AppError) {
	c.JSON(statusCode, Response{Success: false, Error: err})
}

func SendValidationError(c *gin.Context, message string, details string) {
	SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, message, details))
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, message))
}

func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, NewAppError(ErrCodeUnauthorized, message))
}

func SendInternalError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, NewAppError(ErrCodeInternal, message))
}

// SendAppError maps a service-layer error onto its HTTP status; anything
// without a known code is treated as internal.
func SendAppError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		SendInternalError(c, err.Error())
		return
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	SendError(c, status, appErr)
}
