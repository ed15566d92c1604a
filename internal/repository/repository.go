package repository

import (
	"context"
	"time"

	"pledgedesk/internal/models"
)

// Repository is the persistence gateway for the pledge desk. Services take
// this interface so tests can substitute an in-memory stub.
type Repository interface {
	// Sessions.
	InsertSession(ctx context.Context, item *models.PledgeSession) error
	GetSessionByID(ctx context.Context, id uint64) (*models.PledgeSession, error)
	ListSessions(ctx context.Context, params ListSessionsParams) ([]models.PledgeSession, error)
	CountSessions(ctx context.Context, params ListSessionsParams) (int64, error)
	UpdateSessionFields(ctx context.Context, id uint64, updates map[string]any) error
	// CASSessionStatus flips the session status only when the current status
	// is one of `from`, applying `updates` in the same write. Returns false
	// when the precondition did not hold (someone else moved the session).
	CASSessionStatus(ctx context.Context, id uint64, from []models.SessionStatus, to models.SessionStatus, updates map[string]any) (bool, error)
	DeleteSession(ctx context.Context, id uint64) error
	ListSessionsExecutingSince(ctx context.Context, before time.Time, limit int) ([]models.PledgeSession, error)

	// Pledges.
	InsertPledge(ctx context.Context, item *models.Pledge) error
	GetPledgeByID(ctx context.Context, id uint64) (*models.Pledge, error)
	ListPledges(ctx context.Context, params ListPledgesParams) ([]models.Pledge, error)
	CountPledges(ctx context.Context, params ListPledgesParams) (int64, error)
	UpdatePledgeStatus(ctx context.Context, id uint64, status models.PledgeStatus) error

	// Execution ledger (append-only; no update or delete).
	InsertExecutionRecord(ctx context.Context, item *models.PledgeExecutionRecord) error
	GetExecutionRecordByID(ctx context.Context, id uint64) (*models.PledgeExecutionRecord, error)
	ListExecutionRecords(ctx context.Context, params ListExecutionRecordsParams) ([]models.PledgeExecutionRecord, error)
	CountExecutionRecords(ctx context.Context, params ListExecutionRecordsParams) (int64, error)

	// Audit trail (append-only).
	InsertAuditLog(ctx context.Context, item *models.PledgeAuditLog) error
	ListAuditLogs(ctx context.Context, params ListAuditLogsParams) ([]models.PledgeAuditLog, error)
	CountAuditLogs(ctx context.Context, params ListAuditLogsParams) (int64, error)

	// Advisor access requests.
	InsertAccessRequest(ctx context.Context, item *models.AdvisorPledgeAccessRequest) error
	GetAccessRequestByID(ctx context.Context, id uint64) (*models.AdvisorPledgeAccessRequest, error)
	ListAccessRequests(ctx context.Context, params ListAccessRequestsParams) ([]models.AdvisorPledgeAccessRequest, error)
	CountAccessRequests(ctx context.Context, params ListAccessRequestsParams) (int64, error)
	// CASAccessStatus resolves a pending request exactly once; returns false
	// when the request was already reviewed.
	CASAccessStatus(ctx context.Context, id uint64, to models.AccessStatus, updates map[string]any) (bool, error)

	// System settings.
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

type ListSessionsParams struct {
	Limit       int
	Offset      int
	Status      *models.SessionStatus
	StockSymbol *string
	AdvisorID   *string
	CreatedBy   *string
	OrderBy     string
	Asc         *bool
}

type ListPledgesParams struct {
	Limit     int
	Offset    int
	SessionID *uint64
	UserID    *string
	Status    *models.PledgeStatus
	Side      *models.PledgeSide
	OrderBy   string
	Asc       *bool
}

type ListExecutionRecordsParams struct {
	Limit     int
	Offset    int
	SessionID *uint64
	PledgeID  *uint64
	Side      *models.PledgeSide
	Status    *models.ExecutionStatus
	BatchRef  *string
	OrderBy   string
	Asc       *bool
}

type ListAuditLogsParams struct {
	Limit     int
	Offset    int
	SessionID *uint64
	PledgeID  *uint64
	ActorID   *string
	Action    *string
	Success   *bool
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}

type ListAccessRequestsParams struct {
	Limit     int
	Offset    int
	Status    *models.AccessStatus
	AdvisorID *string
	OrderBy   string
	Asc       *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
