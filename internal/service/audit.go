package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// AuditRecorder appends compliance entries. Writes are best effort by
// default: a failed audit insert is logged, never silently dropped, and never
// aborts the operation it describes.
type AuditRecorder struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type AuditEntry struct {
	Actor     Actor
	Action    string
	Target    string
	PledgeID  *uint64
	SessionID *uint64
	Payload   map[string]any
	Success   bool
}

func (a *AuditRecorder) Record(ctx context.Context, entry AuditEntry) error {
	if a == nil || a.Repo == nil {
		return nil
	}
	var payload datatypes.JSON
	if entry.Payload != nil {
		raw, err := json.Marshal(entry.Payload)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}
	return a.Repo.InsertAuditLog(ctx, &models.PledgeAuditLog{
		ActorID:         entry.Actor.ID,
		ActorRole:       entry.Actor.Role,
		Action:          entry.Action,
		TargetType:      entry.Target,
		TargetPledgeID:  entry.PledgeID,
		TargetSessionID: entry.SessionID,
		PayloadJSON:     payload,
		Success:         entry.Success,
		CreatedAt:       time.Now().UTC(),
	})
}

func (a *AuditRecorder) RecordBestEffort(ctx context.Context, entry AuditEntry) {
	if err := a.Record(ctx, entry); err != nil && a != nil && a.Logger != nil {
		a.Logger.Warn("audit append failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
