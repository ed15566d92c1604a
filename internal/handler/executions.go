package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

type ExecutionHandler struct {
	Repo repository.Repository
}

func (h *ExecutionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/executions")
	group.GET("", h.list)
	group.GET("/:id", h.get)
}

// @Summary List execution ledger entries
// @Tags executions
// @Param session_id query int false "session id"
// @Param batch_ref query string false "batch reference"
// @Success 200 {object} map[string]any
// @Router /api/v1/executions [get]
func (h *ExecutionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListExecutionRecordsParams{
		SessionID: uint64QueryPtr(c, "session_id"),
		PledgeID:  uint64QueryPtr(c, "pledge_id"),
		BatchRef:  strQueryPtr(c, "batch_ref"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := strings.TrimSpace(c.Query("side")); v != "" {
		side := models.PledgeSide(v)
		params.Side = &side
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := models.ExecutionStatus(v)
		params.Status = &status
	}
	items, err := h.Repo.ListExecutionRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountExecutionRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *ExecutionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetExecutionRecordByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "execution record not found", nil)
		return
	}
	Ok(c, item, nil)
}
