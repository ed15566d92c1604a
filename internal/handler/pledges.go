package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
	"pledgedesk/internal/service"
)

type PledgeHandler struct {
	Repo   repository.Repository
	Stats  *service.StatsService
	Logger *zap.Logger
}

func (h *PledgeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pledges")
	group.GET("", h.list)
	group.POST("", h.create)
	group.GET("/:id", h.get)
	group.POST("/:id/cancel", h.cancel)
}

func (h *PledgeHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListPledgesParams{
		SessionID: uint64QueryPtr(c, "session_id"),
		UserID:    strQueryPtr(c, "user_id"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := models.PledgeStatus(v)
		params.Status = &status
	}
	if v := strings.TrimSpace(c.Query("side")); v != "" {
		side := models.PledgeSide(v)
		params.Side = &side
	}
	items, err := h.Repo.ListPledges(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPledges(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type createPledgeRequest struct {
	SessionID      uint64           `json:"session_id" binding:"required"`
	UserID         string           `json:"user_id" binding:"required"`
	Side           string           `json:"side"`
	Qty            decimal.Decimal  `json:"qty"`
	PriceTarget    *decimal.Decimal `json:"price_target"`
	DematAccountID string           `json:"demat_account_id"`
}

// Pledges normally arrive from the member platform; this endpoint is the
// intake for that flow and for manual backfills.
func (h *PledgeHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createPledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !req.Qty.IsPositive() {
		Error(c, http.StatusBadRequest, "qty must be greater than zero", nil)
		return
	}
	side := models.SideBuy
	if req.Side != "" {
		side = models.PledgeSide(strings.ToLower(req.Side))
		if side != models.SideBuy && side != models.SideSell {
			Error(c, http.StatusBadRequest, "side must be buy or sell", nil)
			return
		}
	}
	session, err := h.Repo.GetSessionByID(c.Request.Context(), req.SessionID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if session == nil {
		Error(c, http.StatusNotFound, "session not found", nil)
		return
	}
	if session.Status != models.SessionActive && session.Status != models.SessionApproved {
		Error(c, http.StatusConflict, "session is not accepting pledges", map[string]any{
			"status": session.Status,
		})
		return
	}
	pledge := &models.Pledge{
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		StockSymbol:    session.StockSymbol,
		Side:           side,
		Qty:            req.Qty,
		PriceTarget:    req.PriceTarget,
		Status:         models.PledgeReadyForExecution,
		DematAccountID: req.DematAccountID,
	}
	if err := h.Repo.InsertPledge(c.Request.Context(), pledge); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	h.refreshStats(c, req.SessionID)
	Ok(c, pledge, nil)
}

func (h *PledgeHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetPledgeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "pledge not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *PledgeHandler) cancel(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetPledgeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "pledge not found", nil)
		return
	}
	if item.Status != models.PledgeReadyForExecution {
		Error(c, http.StatusConflict, "only pledges awaiting execution can be cancelled", map[string]any{
			"status": item.Status,
		})
		return
	}
	if err := h.Repo.UpdatePledgeStatus(c.Request.Context(), id, models.PledgeCancelled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item.Status = models.PledgeCancelled
	h.refreshStats(c, item.SessionID)
	Ok(c, item, nil)
}

func (h *PledgeHandler) refreshStats(c *gin.Context, sessionID uint64) {
	if h.Stats == nil {
		return
	}
	if _, err := h.Stats.Recompute(c.Request.Context(), sessionID); err != nil && h.Logger != nil {
		h.Logger.Warn("stats refresh after pledge change failed",
			zap.Uint64("session_id", sessionID), zap.Error(err))
	}
}
