package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps application errors to HTTP status codes.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code.String(), Message: msg})
}

//Personal.AI order the ending
