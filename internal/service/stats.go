package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// SessionStats is the recomputed aggregate over a session's pledges.
type SessionStats struct {
	TotalPledges     int64           `json:"total_pledges"`
	TotalPledgeValue decimal.Decimal `json:"total_pledge_value"`
	BuyPledgesCount  int64           `json:"buy_pledges_count"`
	SellPledgesCount int64           `json:"sell_pledges_count"`
	BuyPledgesValue  decimal.Decimal `json:"buy_pledges_value"`
	SellPledgesValue decimal.Decimal `json:"sell_pledges_value"`
}

// ComputeSessionStats sums qty*price_target over pledges that count toward a
// session: those in ready_for_execution or executed status. Pure function;
// callers persist the result explicitly.
func ComputeSessionStats(pledges []models.Pledge) SessionStats {
	stats := SessionStats{
		TotalPledgeValue: decimal.Zero,
		BuyPledgesValue:  decimal.Zero,
		SellPledgesValue: decimal.Zero,
	}
	for _, p := range pledges {
		if p.Status != models.PledgeReadyForExecution && p.Status != models.PledgeExecuted {
			continue
		}
		value := decimal.Zero
		if p.PriceTarget != nil {
			value = p.Qty.Mul(*p.PriceTarget)
		}
		stats.TotalPledges++
		stats.TotalPledgeValue = stats.TotalPledgeValue.Add(value)
		switch p.Side {
		case models.SideBuy:
			stats.BuyPledgesCount++
			stats.BuyPledgesValue = stats.BuyPledgesValue.Add(value)
		case models.SideSell:
			stats.SellPledgesCount++
			stats.SellPledgesValue = stats.SellPledgesValue.Add(value)
		}
	}
	return stats
}

// StatsService recomputes and persists session aggregates on demand. It is
// not triggered automatically by pledge mutations; callers invoke it after
// any pledge-status change, and a cron job sweeps active sessions as a net.
type StatsService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *StatsService) Recompute(ctx context.Context, sessionID uint64) (*SessionStats, error) {
	if s == nil || s.Repo == nil || sessionID == 0 {
		return nil, nil
	}
	session, err := s.Repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	pledges, err := listAllPledges(ctx, s.Repo, repository.ListPledgesParams{
		SessionID: &sessionID,
	})
	if err != nil {
		return nil, err
	}
	stats := ComputeSessionStats(pledges)
	err = s.Repo.UpdateSessionFields(ctx, sessionID, map[string]any{
		"total_pledges":      stats.TotalPledges,
		"total_pledge_value": stats.TotalPledgeValue,
		"buy_pledges_count":  stats.BuyPledgesCount,
		"sell_pledges_count": stats.SellPledgesCount,
		"buy_pledges_value":  stats.BuyPledgesValue,
		"sell_pledges_value": stats.SellPledgesValue,
		"updated_at":         time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// RefreshActive recomputes stats for sessions currently accepting or holding
// pledges. Used by the cron sweep.
func (s *StatsService) RefreshActive(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	for _, status := range []models.SessionStatus{models.SessionActive, models.SessionAwaitingSellExec} {
		st := status
		sessions, err := listAllSessions(ctx, s.Repo, repository.ListSessionsParams{Status: &st})
		if err != nil {
			return err
		}
		for _, session := range sessions {
			if _, err := s.Recompute(ctx, session.ID); err != nil && s.Logger != nil {
				s.Logger.Warn("stats recompute failed",
					zap.Uint64("session_id", session.ID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}
