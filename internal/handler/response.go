package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pledgedesk/internal/models"
	"pledgedesk/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// FromError maps service-layer failures onto the response envelope:
// validation rejections are 400, missing records 404, lost status races 409,
// anything else is treated as a gateway problem.
func FromError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var it *models.ErrIllegalTransition
	switch {
	case errors.As(err, &ve):
		Error(c, http.StatusBadRequest, ve.Msg, nil)
	case errors.As(err, &it):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrExecutionInProgress):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
