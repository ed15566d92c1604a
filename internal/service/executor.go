package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pledgedesk/internal/config"
	"pledgedesk/internal/models"
	"pledgedesk/internal/notify"
	"pledgedesk/internal/repository"
)

// ExecutionEngine runs one batch per "execute" action on a session. Pledges
// are processed sequentially; each pledge succeeds or fails on its own, and
// every outcome leaves both an execution record and an audit entry. One
// investor's failed trade never blocks the rest of the pool.
type ExecutionEngine struct {
	Repo     repository.Repository
	Audit    *AuditRecorder
	Notifier *notify.Client
	Logger   *zap.Logger
	Config   config.ExecutorConfig

	mu      sync.Mutex
	running map[uint64]struct{}
}

// ExecutionSummary is reported back to the operator after a batch.
type ExecutionSummary struct {
	SessionID   uint64               `json:"session_id"`
	BatchRef    string               `json:"batch_ref"`
	Phase       models.PledgeSide    `json:"phase"`
	FinalStatus models.SessionStatus `json:"final_status"`
	Attempted   int                  `json:"attempted"`
	Succeeded   int                  `json:"succeeded"`
	Failed      int                  `json:"failed"`
	Skipped     int                  `json:"skipped"`
}

// Execute drives one BUY or SELL batch depending on where the session stands:
// active -> BUY, awaiting_sell_execution -> SELL. The status flip to
// `executing` is a compare-and-swap, so a concurrent execute on the same
// session loses the race instead of double-processing pledges.
func (e *ExecutionEngine) Execute(ctx context.Context, sessionID uint64, actor Actor) (*ExecutionSummary, error) {
	if e == nil || e.Repo == nil || sessionID == 0 {
		return nil, nil
	}
	if !e.acquire(sessionID) {
		return nil, ErrExecutionInProgress
	}
	defer e.release(sessionID)

	session, err := e.Repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}

	var phase models.PledgeSide
	switch session.Status {
	case models.SessionActive:
		phase = models.SideBuy
	case models.SessionAwaitingSellExec:
		phase = models.SideSell
	default:
		return nil, fmt.Errorf("session %d is %s, not executable: %w", sessionID, session.Status, ErrConflict)
	}

	ok, err := e.Repo.CASSessionStatus(ctx, sessionID,
		[]models.SessionStatus{session.Status}, models.SessionExecuting, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	revertTo := session.Status

	summary := &ExecutionSummary{
		SessionID: sessionID,
		BatchRef:  uuid.NewString(),
		Phase:     phase,
	}

	if phase == models.SideBuy {
		err = e.runBuyBatch(ctx, session, actor, summary)
	} else {
		err = e.runSellBatch(ctx, session, actor, summary)
	}
	if err != nil {
		// Batch-level failure: put the session back where it was. Best
		// effort; a failed revert is picked up by the reconciler.
		reverted, revertErr := e.Repo.CASSessionStatus(ctx, sessionID,
			[]models.SessionStatus{models.SessionExecuting}, revertTo, nil)
		if revertErr != nil || !reverted {
			if e.Logger != nil {
				e.Logger.Error("session status revert failed",
					zap.Uint64("session_id", sessionID),
					zap.Error(revertErr),
				)
			}
		} else {
			e.auditBestEffort(ctx, actor, models.ActionSessionExecutionRevert, &sessionID, nil, map[string]any{
				"batch_ref": summary.BatchRef,
				"error":     err.Error(),
			}, false)
		}
		return nil, err
	}

	if e.Notifier != nil {
		e.notifyBestEffort(ctx, session, summary)
	}
	return summary, nil
}

// runBuyBatch executes every eligible pledge once at its target price,
// falling back to the session's stock price. The pledge list is filtered by
// session and status only unless executor.buy_side_filter is set; the legacy
// dashboard never filtered by side here, so sell pledges that reach
// ready_for_execution before the BUY phase are bought too.
func (e *ExecutionEngine) runBuyBatch(ctx context.Context, session *models.PledgeSession, actor Actor, summary *ExecutionSummary) error {
	status := models.PledgeReadyForExecution
	params := repository.ListPledgesParams{
		SessionID: &session.ID,
		Status:    &status,
	}
	if e.Config.BuySideFilter {
		side := models.SideBuy
		params.Side = &side
	}
	pledges, err := listAllPledges(ctx, e.Repo, params)
	if err != nil {
		return fmt.Errorf("list eligible pledges: %w", err)
	}
	if len(pledges) == 0 {
		return e.finishPhase(ctx, session, summary)
	}
	e.auditBestEffort(ctx, actor, models.ActionSessionExecutionStart, &session.ID, nil, map[string]any{
		"batch_ref": summary.BatchRef,
		"phase":     models.SideBuy,
		"eligible":  len(pledges),
	}, true)

	for i, pledge := range pledges {
		if i > 0 {
			if err := e.pause(ctx); err != nil {
				return err
			}
		}
		summary.Attempted++
		price := e.buyPrice(session, pledge)
		record, execErr := e.executeOne(ctx, session, pledge, models.SideBuy, price, summary.BatchRef)
		if execErr != nil {
			summary.Failed++
			e.recordFailure(ctx, session, pledge, models.SideBuy, summary.BatchRef, execErr, actor)
			continue
		}
		if err := e.Repo.UpdatePledgeStatus(ctx, pledge.ID, models.PledgeExecuted); err != nil {
			summary.Failed++
			e.recordFailure(ctx, session, pledge, models.SideBuy, summary.BatchRef, err, actor)
			continue
		}
		summary.Succeeded++
		e.auditBestEffort(ctx, actor, models.ActionBuyExecutionCompleted, &session.ID, &pledge.ID, map[string]any{
			"execution_record_id": record.ID,
			"executed_qty":        record.ExecutedQty,
			"executed_price":      record.ExecutedPrice,
			"batch_ref":           summary.BatchRef,
		}, true)
	}

	return e.finishPhase(ctx, session, summary)
}

// runSellBatch sells pledges that already went through a BUY. A pledge with
// no completed BUY record is skipped with an audit entry, never sold.
func (e *ExecutionEngine) runSellBatch(ctx context.Context, session *models.PledgeSession, actor Actor, summary *ExecutionSummary) error {
	status := models.PledgeExecuted
	pledges, err := listAllPledges(ctx, e.Repo, repository.ListPledgesParams{
		SessionID: &session.ID,
		Status:    &status,
	})
	if err != nil {
		return fmt.Errorf("list sell-eligible pledges: %w", err)
	}
	if len(pledges) == 0 {
		return e.finishPhase(ctx, session, summary)
	}
	e.auditBestEffort(ctx, actor, models.ActionSessionExecutionStart, &session.ID, nil, map[string]any{
		"batch_ref": summary.BatchRef,
		"phase":     models.SideSell,
		"eligible":  len(pledges),
	}, true)

	side := models.SideBuy
	completed := models.ExecutionCompleted
	buyRecords, err := listAllExecutionRecords(ctx, e.Repo, repository.ListExecutionRecordsParams{
		SessionID: &session.ID,
		Side:      &side,
		Status:    &completed,
	})
	if err != nil {
		return fmt.Errorf("list buy execution records: %w", err)
	}
	boughtBy := make(map[uint64]models.PledgeExecutionRecord, len(buyRecords))
	for _, rec := range buyRecords {
		boughtBy[rec.PledgeID] = rec
	}

	for i, pledge := range pledges {
		if i > 0 {
			if err := e.pause(ctx); err != nil {
				return err
			}
		}
		if _, ok := boughtBy[pledge.ID]; !ok {
			summary.Skipped++
			e.auditBestEffort(ctx, actor, models.ActionSellExecutionSkipped, &session.ID, &pledge.ID, map[string]any{
				"reason":    "no completed buy execution record",
				"batch_ref": summary.BatchRef,
			}, false)
			continue
		}
		summary.Attempted++
		price := e.sellPrice(session, pledge)
		record, execErr := e.executeOne(ctx, session, pledge, models.SideSell, price, summary.BatchRef)
		if execErr != nil {
			summary.Failed++
			e.recordFailure(ctx, session, pledge, models.SideSell, summary.BatchRef, execErr, actor)
			continue
		}
		summary.Succeeded++
		e.auditBestEffort(ctx, actor, models.ActionSellExecutionCompleted, &session.ID, &pledge.ID, map[string]any{
			"execution_record_id": record.ID,
			"executed_qty":        record.ExecutedQty,
			"executed_price":      record.ExecutedPrice,
			"batch_ref":           summary.BatchRef,
		}, true)
	}

	return e.finishPhase(ctx, session, summary)
}

// executeOne writes the completed ledger entry for a single pledge side.
func (e *ExecutionEngine) executeOne(ctx context.Context, session *models.PledgeSession, pledge models.Pledge, side models.PledgeSide, price decimal.Decimal, batchRef string) (*models.PledgeExecutionRecord, error) {
	now := time.Now().UTC()
	value := pledge.Qty.Mul(price)
	commission, rate := e.commission(session, value)
	record := &models.PledgeExecutionRecord{
		BatchRef:            batchRef,
		PledgeID:            pledge.ID,
		SessionID:           session.ID,
		UserID:              pledge.UserID,
		Side:                side,
		PledgedQty:          pledge.Qty,
		ExecutedQty:         pledge.Qty,
		ExecutedPrice:       price,
		TotalExecutionValue: value,
		PlatformCommission:  commission,
		CommissionRate:      rate,
		NetAmount:           value.Sub(commission),
		Status:              models.ExecutionCompleted,
		ExecutedAt:          now,
		SettlementDate:      now.AddDate(0, 0, e.settlementDays()),
	}
	if err := e.Repo.InsertExecutionRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// recordFailure writes the failed ledger entry and audit line for one pledge.
// The batch keeps going afterwards.
func (e *ExecutionEngine) recordFailure(ctx context.Context, session *models.PledgeSession, pledge models.Pledge, side models.PledgeSide, batchRef string, cause error, actor Actor) {
	now := time.Now().UTC()
	record := &models.PledgeExecutionRecord{
		BatchRef:       batchRef,
		PledgeID:       pledge.ID,
		SessionID:      session.ID,
		UserID:         pledge.UserID,
		Side:           side,
		PledgedQty:     pledge.Qty,
		ExecutedQty:    decimal.Zero,
		Status:         models.ExecutionFailed,
		ErrorMessage:   cause.Error(),
		ExecutedAt:     now,
		SettlementDate: now.AddDate(0, 0, e.settlementDays()),
	}
	if err := e.Repo.InsertExecutionRecord(ctx, record); err != nil && e.Logger != nil {
		e.Logger.Error("failed execution record insert failed",
			zap.Uint64("pledge_id", pledge.ID),
			zap.Error(err),
		)
	}
	action := models.ActionBuyExecutionFailed
	if side == models.SideSell {
		action = models.ActionSellExecutionFailed
	}
	e.auditBestEffort(ctx, actor, action, &session.ID, &pledge.ID, map[string]any{
		"error":     cause.Error(),
		"batch_ref": batchRef,
	}, false)
}

// finishPhase advances the session out of `executing`: to
// awaiting_sell_execution after a BUY in cycle mode, otherwise to completed.
// An empty batch takes the same path as a successful one.
func (e *ExecutionEngine) finishPhase(ctx context.Context, session *models.PledgeSession, summary *ExecutionSummary) error {
	next := models.SessionCompleted
	if summary.Phase == models.SideBuy && session.SessionMode == models.ModeBuySellCycle {
		next = models.SessionAwaitingSellExec
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"last_executed_at":  &now,
		"notification_sent": true,
	}
	ok, err := e.Repo.CASSessionStatus(ctx, session.ID,
		[]models.SessionStatus{models.SessionExecuting}, next, updates)
	if err != nil {
		return fmt.Errorf("advance session to %s: %w", next, err)
	}
	if !ok {
		return fmt.Errorf("advance session to %s: %w", next, ErrConflict)
	}
	summary.FinalStatus = next
	return nil
}

func (e *ExecutionEngine) buyPrice(session *models.PledgeSession, pledge models.Pledge) decimal.Decimal {
	if pledge.PriceTarget != nil && pledge.PriceTarget.IsPositive() {
		return *pledge.PriceTarget
	}
	if session.StockPrice.IsPositive() {
		return session.StockPrice
	}
	return decimal.Zero
}

// sellPrice prefers the session's stock price: the sell leg is a coordinated
// liquidation at the price the advisor set, not per-pledge targets.
func (e *ExecutionEngine) sellPrice(session *models.PledgeSession, pledge models.Pledge) decimal.Decimal {
	if session.StockPrice.IsPositive() {
		return session.StockPrice
	}
	if pledge.PriceTarget != nil && pledge.PriceTarget.IsPositive() {
		return *pledge.PriceTarget
	}
	return decimal.Zero
}

func (e *ExecutionEngine) commission(session *models.PledgeSession, value decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !e.Config.ApplyCommission {
		return decimal.Zero, decimal.Zero
	}
	switch session.ConvenienceFeeType {
	case models.FeePercentage:
		rate := session.ConvenienceFeeAmount
		return value.Mul(rate).Div(decimal.NewFromInt(100)), rate
	default:
		return session.ConvenienceFeeAmount, decimal.Zero
	}
}

func (e *ExecutionEngine) settlementDays() int {
	if e.Config.SettlementDays > 0 {
		return e.Config.SettlementDays
	}
	return 2
}

// pause spaces out per-pledge writes; returns early when the process is
// shutting down.
func (e *ExecutionEngine) pause(ctx context.Context) error {
	delay := e.Config.PerPledgeDelay
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (e *ExecutionEngine) acquire(sessionID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running == nil {
		e.running = make(map[uint64]struct{})
	}
	if _, held := e.running[sessionID]; held {
		return false
	}
	e.running[sessionID] = struct{}{}
	return true
}

func (e *ExecutionEngine) release(sessionID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, sessionID)
}

func (e *ExecutionEngine) auditBestEffort(ctx context.Context, actor Actor, action string, sessionID, pledgeID *uint64, payload map[string]any, success bool) {
	if e.Audit == nil {
		return
	}
	target := "pledge"
	if pledgeID == nil {
		target = "pledge_session"
	}
	e.Audit.RecordBestEffort(ctx, AuditEntry{
		Actor:     actor,
		Action:    action,
		Target:    target,
		PledgeID:  pledgeID,
		SessionID: sessionID,
		Payload:   payload,
		Success:   success,
	})
}

func (e *ExecutionEngine) notifyBestEffort(ctx context.Context, session *models.PledgeSession, summary *ExecutionSummary) {
	err := e.Notifier.Send(ctx, notify.Notification{
		Event:     "session_execution_finished",
		SessionID: session.ID,
		Subject:   session.StockSymbol,
		Details: map[string]any{
			"phase":        summary.Phase,
			"final_status": summary.FinalStatus,
			"attempted":    summary.Attempted,
			"succeeded":    summary.Succeeded,
			"failed":       summary.Failed,
			"skipped":      summary.Skipped,
		},
	})
	if err != nil && e.Logger != nil {
		e.Logger.Warn("execution notification failed",
			zap.Uint64("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func boolPtr(v bool) *bool { return &v }
