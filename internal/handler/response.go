package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/reviewboost/review-api/pkg/errors"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewSuccessResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func NewErrorResponse(message string) Response {
	return Response{Success: false, Error: message}
}

// RespondError maps service errors onto HTTP statuses. Unrecognized errors
// collapse to a plain 500 so internals never leak to clients.
func RespondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(apperrors.HTTPStatus(appErr.Code), NewErrorResponse(appErr.Message))
		return
	}
	c.JSON(500, NewErrorResponse("internal server error"))
}
