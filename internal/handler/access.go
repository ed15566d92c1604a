package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
	"pledgedesk/internal/service"
)

type AccessHandler struct {
	Repo   repository.Repository
	Review *service.AccessReviewService
}

func (h *AccessHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/access-requests")
	group.GET("", h.list)
	group.POST("", h.create)
	group.GET("/:id", h.get)
	group.POST("/:id/approve", h.approve)
	group.POST("/:id/reject", h.reject)
}

func (h *AccessHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAccessRequestsParams{
		AdvisorID: strQueryPtr(c, "advisor_id"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := models.AccessStatus(v)
		params.Status = &status
	}
	items, err := h.Repo.ListAccessRequests(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAccessRequests(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type createAccessRequest struct {
	AdvisorID               string          `json:"advisor_id" binding:"required"`
	AdvisorName             string          `json:"advisor_name" binding:"required"`
	SEBIRegistration        string          `json:"sebi_registration" binding:"required"`
	ExperienceYears         int             `json:"experience_years"`
	TradingVolumeEstimate   string          `json:"trading_volume_estimate"`
	CommissionRateRequested decimal.Decimal `json:"commission_rate_requested"`
	Reason                  string          `json:"reason"`
}

func (h *AccessHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.CommissionRateRequested.IsNegative() {
		Error(c, http.StatusBadRequest, "commission_rate_requested must not be negative", nil)
		return
	}
	volume := models.VolumeLow
	if req.TradingVolumeEstimate != "" {
		volume = models.TradingVolume(strings.ToLower(req.TradingVolumeEstimate))
		switch volume {
		case models.VolumeLow, models.VolumeMedium, models.VolumeHigh, models.VolumeVeryHigh:
		default:
			Error(c, http.StatusBadRequest, "unknown trading_volume_estimate", nil)
			return
		}
	}
	item := &models.AdvisorPledgeAccessRequest{
		AdvisorID:               req.AdvisorID,
		AdvisorName:             req.AdvisorName,
		SEBIRegistration:        req.SEBIRegistration,
		ExperienceYears:         req.ExperienceYears,
		TradingVolumeEstimate:   volume,
		CommissionRateRequested: req.CommissionRateRequested,
		Reason:                  req.Reason,
		Status:                  models.AccessPending,
	}
	if err := h.Repo.InsertAccessRequest(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *AccessHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetAccessRequestByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "access request not found", nil)
		return
	}
	Ok(c, item, nil)
}

type approveAccessRequest struct {
	ApprovedCommissionRate decimal.Decimal `json:"approved_commission_rate"`
	AdminNotes             string          `json:"admin_notes"`
}

func (h *AccessHandler) approve(c *gin.Context) {
	if h.Review == nil {
		Error(c, http.StatusInternalServerError, "review service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req approveAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Review.Approve(c.Request.Context(), id, req.ApprovedCommissionRate, req.AdminNotes, actorFrom(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Ok(c, item, nil)
}

type rejectAccessRequest struct {
	Reason     string `json:"reason"`
	AdminNotes string `json:"admin_notes"`
}

func (h *AccessHandler) reject(c *gin.Context) {
	if h.Review == nil {
		Error(c, http.StatusInternalServerError, "review service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req rejectAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Review.Reject(c.Request.Context(), id, req.Reason, req.AdminNotes, actorFrom(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Ok(c, item, nil)
}
