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

type SessionHandler struct {
	Repo      repository.Repository
	Lifecycle *service.LifecycleService
	Executor  *service.ExecutionEngine
	Stats     *service.StatsService
	Flags     *service.SystemSettingsService
	Logger    *zap.Logger
}

var sessionOrderColumns = map[string]string{
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"stock_symbol":     "stock_symbol",
	"status":           "status",
	"last_executed_at": "last_executed_at",
}

func (h *SessionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/sessions")
	group.GET("", h.list)
	group.POST("", h.create)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.remove)
	group.GET("/:id/pledges", h.pledges)
	group.POST("/:id/submit", h.submit)
	group.POST("/:id/approve", h.approve)
	group.POST("/:id/reject", h.reject)
	group.POST("/:id/activate", h.activate)
	group.POST("/:id/close", h.close)
	group.POST("/:id/cancel", h.cancel)
	group.POST("/:id/execute", h.execute)
	group.POST("/:id/recalculate-stats", h.recalculateStats)
}

// @Summary List pledge sessions
// @Tags sessions
// @Param status query string false "session status"
// @Param stock_symbol query string false "stock symbol"
// @Success 200 {object} map[string]any
// @Router /api/v1/sessions [get]
func (h *SessionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSessionsParams{
		Limit:       limit,
		Offset:      offset,
		StockSymbol: strQueryPtr(c, "stock_symbol"),
		AdvisorID:   strQueryPtr(c, "advisor_id"),
		CreatedBy:   strQueryPtr(c, "created_by"),
		OrderBy:     parseOrder(c.Query("order_by"), sessionOrderColumns),
		Asc:         boolQueryPtr(c, "asc"),
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := models.SessionStatus(v)
		params.Status = &status
	}
	items, err := h.Repo.ListSessions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSessions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type createSessionRequest struct {
	StockSymbol          string          `json:"stock_symbol" binding:"required"`
	StockName            string          `json:"stock_name" binding:"required"`
	Description          string          `json:"description"`
	SessionMode          string          `json:"session_mode"`
	StockPrice           decimal.Decimal `json:"stock_price"`
	ConvenienceFeeType   string          `json:"convenience_fee_type"`
	ConvenienceFeeAmount decimal.Decimal `json:"convenience_fee_amount"`
	CreatedByAdvisorID   *string         `json:"created_by_advisor_id"`
}

// @Summary Create a pledge session in draft
// @Tags sessions
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/sessions [post]
func (h *SessionHandler) create(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle service unavailable", nil)
		return
	}
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Lifecycle.Create(c.Request.Context(), service.CreateSessionInput{
		StockSymbol:          req.StockSymbol,
		StockName:            req.StockName,
		Description:          req.Description,
		SessionMode:          models.SessionMode(req.SessionMode),
		StockPrice:           req.StockPrice,
		ConvenienceFeeType:   models.FeeType(req.ConvenienceFeeType),
		ConvenienceFeeAmount: req.ConvenienceFeeAmount,
		CreatedByAdvisorID:   req.CreatedByAdvisorID,
	}, actorFrom(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *SessionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetSessionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "session not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *SessionHandler) remove(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Lifecycle.Delete(c.Request.Context(), id); err != nil {
		FromError(c, err)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}

func (h *SessionHandler) pledges(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	params := repository.ListPledgesParams{
		SessionID: &id,
		Limit:     limit,
		Offset:    offset,
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := models.PledgeStatus(v)
		params.Status = &status
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

func (h *SessionHandler) submit(c *gin.Context) {
	h.lifecycleAction(c, func(id uint64) (*models.PledgeSession, error) {
		return h.Lifecycle.Submit(c.Request.Context(), id, actorFrom(c))
	})
}

func (h *SessionHandler) approve(c *gin.Context) {
	h.lifecycleAction(c, func(id uint64) (*models.PledgeSession, error) {
		return h.Lifecycle.Approve(c.Request.Context(), id, actorFrom(c))
	})
}

type rejectSessionRequest struct {
	Reason string `json:"reason"`
}

func (h *SessionHandler) reject(c *gin.Context) {
	var req rejectSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	h.lifecycleAction(c, func(id uint64) (*models.PledgeSession, error) {
		return h.Lifecycle.Reject(c.Request.Context(), id, req.Reason, actorFrom(c))
	})
}

func (h *SessionHandler) activate(c *gin.Context) {
	h.lifecycleAction(c, func(id uint64) (*models.PledgeSession, error) {
		return h.Lifecycle.Activate(c.Request.Context(), id, actorFrom(c))
	})
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *SessionHandler) close(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		Error(c, http.StatusBadRequest, "closing a session requires confirm=true", nil)
		return
	}
	h.lifecycleAction(c, func(id uint64) (*models.PledgeSession, error) {
		return h.Lifecycle.Close(c.Request.Context(), id, actorFrom(c))
	})
}

func (h *SessionHandler) cancel(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		Error(c, http.StatusBadRequest, "cancelling a session requires confirm=true", nil)
		return
	}
	h.lifecycleAction(c, func(id uint64) (*models.PledgeSession, error) {
		return h.Lifecycle.Cancel(c.Request.Context(), id, actorFrom(c))
	})
}

func (h *SessionHandler) lifecycleAction(c *gin.Context, fn func(id uint64) (*models.PledgeSession, error)) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := fn(id)
	if err != nil {
		FromError(c, err)
		return
	}
	Ok(c, item, nil)
}

type executeSessionRequest struct {
	// Confirm must name the phase being executed: "BUY" for an active
	// session, "SELL" for one awaiting sell execution.
	Confirm string `json:"confirm"`
}

// @Summary Execute a session's pledge batch
// @Tags sessions
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/sessions/{id}/execute [post]
func (h *SessionHandler) execute(c *gin.Context) {
	if h.Repo == nil || h.Executor == nil {
		Error(c, http.StatusInternalServerError, "executor unavailable", nil)
		return
	}
	if h.Flags != nil && !h.Flags.IsEnabled(c.Request.Context(), service.FeatureExecution, true) {
		Error(c, http.StatusServiceUnavailable, "execution is disabled", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req executeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	session, err := h.Repo.GetSessionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if session == nil {
		Error(c, http.StatusNotFound, "session not found", nil)
		return
	}
	expected := "BUY"
	if session.Status == models.SessionAwaitingSellExec {
		expected = "SELL"
	}
	if !strings.EqualFold(strings.TrimSpace(req.Confirm), expected) {
		Error(c, http.StatusBadRequest, "execution requires confirm="+expected, map[string]any{
			"status": session.Status,
		})
		return
	}
	summary, err := h.Executor.Execute(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		FromError(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("session batch executed",
			zap.Uint64("session_id", id),
			zap.String("phase", string(summary.Phase)),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
		)
	}
	Ok(c, summary, nil)
}

func (h *SessionHandler) recalculateStats(c *gin.Context) {
	if h.Stats == nil {
		Error(c, http.StatusInternalServerError, "stats service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	stats, err := h.Stats.Recompute(c.Request.Context(), id)
	if err != nil {
		FromError(c, err)
		return
	}
	Ok(c, stats, nil)
}
