// Package handlers implements the RiskOverlay HTTP endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps err onto its HTTP status. Errors without a code are
// masked as internal errors.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
		return
	}

	resp := ErrorResponse{Code: string(code), Message: err.Error()}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), resp)
}
