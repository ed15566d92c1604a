package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pledgedesk/internal/config"
	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// ReconcilerService sweeps sessions stuck in `executing`. A crash mid-batch
// leaves the session in that state forever, because the terminal status write
// only happens after the last pledge; the sweep reverts such sessions to
// `active` so an operator can re-trigger execution. Execution records already
// written stay in the ledger, and re-execution only picks up pledges still in
// ready_for_execution.
type ReconcilerService struct {
	Repo   repository.Repository
	Audit  *AuditRecorder
	Logger *zap.Logger
	Config config.ReconcilerConfig
	Flags  *SystemSettingsService
}

func (s *ReconcilerService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureReconciler, true) {
		return nil
	}
	stuckAfter := s.Config.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = 15 * time.Minute
	}
	before := time.Now().UTC().Add(-stuckAfter)
	sessions, err := s.Repo.ListSessionsExecutingSince(ctx, before, s.Config.BatchLimit)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		id := session.ID
		ok, err := s.Repo.CASSessionStatus(ctx, id,
			[]models.SessionStatus{models.SessionExecuting}, models.SessionActive, nil)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("stuck session revert failed", zap.Uint64("session_id", id), zap.Error(err))
			}
			continue
		}
		if !ok {
			// Batch finished between the list and the CAS.
			continue
		}
		if s.Logger != nil {
			s.Logger.Info("reverted stuck executing session",
				zap.Uint64("session_id", id),
				zap.Duration("stuck_after", stuckAfter),
			)
		}
		if s.Audit != nil {
			s.Audit.RecordBestEffort(ctx, AuditEntry{
				Actor:     Actor{ID: "system", Role: "reconciler"},
				Action:    models.ActionSessionExecutionRevert,
				Target:    "pledge_session",
				SessionID: &id,
				Payload:   map[string]any{"reason": "stuck in executing"},
				Success:   false,
			})
		}
	}
	return nil
}
