package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pledgedesk/internal/repository"
)

type AuditHandler struct {
	Repo repository.Repository
}

func (h *AuditHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/audit-logs")
	group.GET("", h.list)
}

// @Summary List audit log entries
// @Tags audit
// @Param session_id query int false "session id"
// @Param action query string false "action name"
// @Success 200 {object} map[string]any
// @Router /api/v1/audit-logs [get]
func (h *AuditHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAuditLogsParams{
		SessionID: uint64QueryPtr(c, "session_id"),
		PledgeID:  uint64QueryPtr(c, "pledge_id"),
		ActorID:   strQueryPtr(c, "actor_id"),
		Action:    strQueryPtr(c, "action"),
		Success:   boolQueryPtr(c, "success"),
		Since:     timeQueryPtr(c, "since"),
		Limit:     limit,
		Offset:    offset,
	}
	items, err := h.Repo.ListAuditLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAuditLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
