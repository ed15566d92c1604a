package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pledgedesk/internal/models"
	"pledgedesk/internal/notify"
	"pledgedesk/internal/repository"
)

// LifecycleService owns admin actions on the session state machine. Every
// status write goes through the transition table plus a compare-and-swap, so
// a racing admin sees ErrConflict instead of clobbering the other's move.
type LifecycleService struct {
	Repo     repository.Repository
	Audit    *AuditRecorder
	Notifier *notify.Client
	Logger   *zap.Logger
}

type CreateSessionInput struct {
	StockSymbol          string
	StockName            string
	Description          string
	SessionMode          models.SessionMode
	StockPrice           decimal.Decimal
	ConvenienceFeeType   models.FeeType
	ConvenienceFeeAmount decimal.Decimal
	CreatedByAdvisorID   *string
}

func (s *LifecycleService) Create(ctx context.Context, in CreateSessionInput, actor Actor) (*models.PledgeSession, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	symbol := strings.ToUpper(strings.TrimSpace(in.StockSymbol))
	name := strings.TrimSpace(in.StockName)
	if symbol == "" || name == "" {
		return nil, invalid("stock_symbol and stock_name are required")
	}
	mode := in.SessionMode
	if mode == "" {
		mode = models.ModeSingleExecution
	}
	if mode != models.ModeSingleExecution && mode != models.ModeBuySellCycle {
		return nil, invalid("unknown session_mode")
	}
	feeType := in.ConvenienceFeeType
	if feeType == "" {
		feeType = models.FeeFlat
	}
	if feeType != models.FeeFlat && feeType != models.FeePercentage {
		return nil, invalid("unknown convenience_fee_type")
	}
	if in.StockPrice.IsNegative() || in.ConvenienceFeeAmount.IsNegative() {
		return nil, invalid("stock_price and convenience_fee_amount must not be negative")
	}
	item := &models.PledgeSession{
		StockSymbol:          symbol,
		StockName:            name,
		Description:          strings.TrimSpace(in.Description),
		SessionMode:          mode,
		Status:               models.SessionDraft,
		StockPrice:           in.StockPrice,
		ConvenienceFeeType:   feeType,
		ConvenienceFeeAmount: in.ConvenienceFeeAmount,
		CreatedBy:            actor.ID,
		CreatedByAdvisorID:   in.CreatedByAdvisorID,
	}
	if err := s.Repo.InsertSession(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *LifecycleService) Submit(ctx context.Context, id uint64, actor Actor) (*models.PledgeSession, error) {
	return s.transition(ctx, id, actor,
		[]models.SessionStatus{models.SessionDraft},
		models.SessionPendingApproval, nil,
		models.ActionSessionSubmitted, nil)
}

func (s *LifecycleService) Approve(ctx context.Context, id uint64, actor Actor) (*models.PledgeSession, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, actor,
		[]models.SessionStatus{models.SessionDraft, models.SessionPendingApproval},
		models.SessionApproved,
		map[string]any{"approved_by": actor.ID, "approved_at": &now},
		models.ActionSessionApproved, nil)
}

func (s *LifecycleService) Reject(ctx context.Context, id uint64, reason string, actor Actor) (*models.PledgeSession, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("rejected_reason is required")
	}
	return s.transition(ctx, id, actor,
		[]models.SessionStatus{models.SessionDraft, models.SessionPendingApproval},
		models.SessionRejected,
		map[string]any{"rejected_reason": reason},
		models.ActionSessionRejected,
		map[string]any{"rejected_reason": reason})
}

func (s *LifecycleService) Activate(ctx context.Context, id uint64, actor Actor) (*models.PledgeSession, error) {
	session, err := s.transition(ctx, id, actor,
		[]models.SessionStatus{models.SessionApproved},
		models.SessionActive,
		map[string]any{"notification_sent": false},
		models.ActionSessionActivated, nil)
	if err != nil {
		return nil, err
	}
	if s.Notifier != nil && session != nil {
		s.notifyBestEffort(ctx, session, "session_activated")
	}
	return session, nil
}

func (s *LifecycleService) Close(ctx context.Context, id uint64, actor Actor) (*models.PledgeSession, error) {
	return s.transition(ctx, id, actor,
		[]models.SessionStatus{models.SessionActive},
		models.SessionClosed, nil,
		models.ActionSessionClosed, nil)
}

func (s *LifecycleService) Cancel(ctx context.Context, id uint64, actor Actor) (*models.PledgeSession, error) {
	return s.transition(ctx, id, actor,
		[]models.SessionStatus{models.SessionActive},
		models.SessionCancelled, nil,
		models.ActionSessionCancelled, nil)
}

// Delete removes a session that no pledge references. There is no cascading
// delete: a session with pledges keeps its ledger and must be cancelled
// instead.
func (s *LifecycleService) Delete(ctx context.Context, id uint64) error {
	if s == nil || s.Repo == nil || id == 0 {
		return nil
	}
	session, err := s.Repo.GetSessionByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNotFound
	}
	count, err := s.Repo.CountPledges(ctx, repository.ListPledgesParams{SessionID: &id})
	if err != nil {
		return err
	}
	if count > 0 {
		return invalid("session has pledges; cancel it instead of deleting")
	}
	return s.Repo.DeleteSession(ctx, id)
}

func (s *LifecycleService) transition(ctx context.Context, id uint64, actor Actor, from []models.SessionStatus, to models.SessionStatus, updates map[string]any, action string, payload map[string]any) (*models.PledgeSession, error) {
	if s == nil || s.Repo == nil || id == 0 {
		return nil, nil
	}
	session, err := s.Repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	if err := models.CheckSessionTransition(session.Status, to); err != nil {
		return nil, err
	}
	ok, err := s.Repo.CASSessionStatus(ctx, id, from, to, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if s.Audit != nil {
		s.Audit.RecordBestEffort(ctx, AuditEntry{
			Actor:     actor,
			Action:    action,
			Target:    "pledge_session",
			SessionID: &id,
			Payload:   payload,
			Success:   true,
		})
	}
	return s.Repo.GetSessionByID(ctx, id)
}

func (s *LifecycleService) notifyBestEffort(ctx context.Context, session *models.PledgeSession, event string) {
	err := s.Notifier.Send(ctx, notify.Notification{
		Event:     event,
		SessionID: session.ID,
		Subject:   session.StockSymbol,
		Details: map[string]any{
			"stock_name":   session.StockName,
			"session_mode": session.SessionMode,
			"status":       session.Status,
		},
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("notification send failed",
				zap.Uint64("session_id", session.ID),
				zap.String("event", event),
				zap.Error(err),
			)
		}
		return
	}
	_ = s.Repo.UpdateSessionFields(ctx, session.ID, map[string]any{"notification_sent": true})
}
