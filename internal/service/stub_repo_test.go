package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// CAS semantics mirror the SQL store: status flips only apply when the
// current status matches the precondition.
type stubRepo struct {
	mu       sync.Mutex
	sessions map[uint64]*models.PledgeSession
	pledges  map[uint64]*models.Pledge
	records  []*models.PledgeExecutionRecord
	audits   []models.PledgeAuditLog
	access   map[uint64]*models.AdvisorPledgeAccessRequest
	settings map[string]*models.SystemSetting
	nextID   uint64

	// pledge IDs whose completed-record insert should error, to force
	// per-pledge execution failures.
	failCompletedInsert map[uint64]struct{}
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		sessions:            make(map[uint64]*models.PledgeSession),
		pledges:             make(map[uint64]*models.Pledge),
		access:              make(map[uint64]*models.AdvisorPledgeAccessRequest),
		settings:            make(map[string]*models.SystemSetting),
		failCompletedInsert: make(map[uint64]struct{}),
	}
}

func (s *stubRepo) nextIDLocked() uint64 {
	s.nextID++
	return s.nextID
}

// pageBounds mirrors the SQL store's limit normalization: default and cap at
// 500 rows per call.
func pageBounds(n, limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		return n, n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}

func (s *stubRepo) InsertSession(ctx context.Context, item *models.PledgeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.nextIDLocked()
	}
	cp := *item
	s.sessions[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetSessionByID(ctx context.Context, id uint64) (*models.PledgeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) matchSessionsLocked(params repository.ListSessionsParams) []models.PledgeSession {
	var out []models.PledgeSession
	for _, item := range s.sessions {
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *stubRepo) ListSessions(ctx context.Context, params repository.ListSessionsParams) ([]models.PledgeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.matchSessionsLocked(params)
	start, end := pageBounds(len(out), params.Limit, params.Offset)
	return out[start:end], nil
}

func (s *stubRepo) CountSessions(ctx context.Context, params repository.ListSessionsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matchSessionsLocked(params))), nil
}

func (s *stubRepo) UpdateSessionFields(ctx context.Context, id uint64, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	applySessionUpdates(item, updates)
	return nil
}

func (s *stubRepo) CASSessionStatus(ctx context.Context, id uint64, from []models.SessionStatus, to models.SessionStatus, updates map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if item.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	item.Status = to
	item.UpdatedAt = time.Now().UTC()
	applySessionUpdates(item, updates)
	return true, nil
}

func applySessionUpdates(item *models.PledgeSession, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "approved_by":
			item.ApprovedBy, _ = value.(string)
		case "approved_at":
			item.ApprovedAt, _ = value.(*time.Time)
		case "rejected_reason":
			item.RejectedReason, _ = value.(string)
		case "last_executed_at":
			item.LastExecutedAt, _ = value.(*time.Time)
		case "notification_sent":
			item.NotificationSent, _ = value.(bool)
		case "total_pledges":
			item.TotalPledges, _ = value.(int64)
		case "total_pledge_value":
			item.TotalPledgeValue, _ = value.(decimal.Decimal)
		case "buy_pledges_count":
			item.BuyPledgesCount, _ = value.(int64)
		case "sell_pledges_count":
			item.SellPledgesCount, _ = value.(int64)
		case "buy_pledges_value":
			item.BuyPledgesValue, _ = value.(decimal.Decimal)
		case "sell_pledges_value":
			item.SellPledgesValue, _ = value.(decimal.Decimal)
		}
	}
}

func (s *stubRepo) DeleteSession(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) ListSessionsExecutingSince(ctx context.Context, before time.Time, limit int) ([]models.PledgeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PledgeSession
	for _, item := range s.sessions {
		if item.Status != models.SessionExecuting {
			continue
		}
		if !item.UpdatedAt.Before(before) {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) InsertPledge(ctx context.Context, item *models.Pledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.nextIDLocked()
	}
	cp := *item
	s.pledges[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetPledgeByID(ctx context.Context, id uint64) (*models.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.pledges[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) matchPledgesLocked(params repository.ListPledgesParams) []models.Pledge {
	var out []models.Pledge
	for _, item := range s.pledges {
		if params.SessionID != nil && item.SessionID != *params.SessionID {
			continue
		}
		if params.UserID != nil && item.UserID != *params.UserID {
			continue
		}
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		if params.Side != nil && item.Side != *params.Side {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *stubRepo) ListPledges(ctx context.Context, params repository.ListPledgesParams) ([]models.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.matchPledgesLocked(params)
	start, end := pageBounds(len(out), params.Limit, params.Offset)
	return out[start:end], nil
}

func (s *stubRepo) CountPledges(ctx context.Context, params repository.ListPledgesParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matchPledgesLocked(params))), nil
}

func (s *stubRepo) UpdatePledgeStatus(ctx context.Context, id uint64, status models.PledgeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.pledges[id]
	if !ok {
		return errors.New("pledge not found")
	}
	item.Status = status
	return nil
}

func (s *stubRepo) InsertExecutionRecord(ctx context.Context, item *models.PledgeExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.Status == models.ExecutionCompleted {
		if _, fail := s.failCompletedInsert[item.PledgeID]; fail {
			return errors.New("broker rejected order")
		}
	}
	if item.ID == 0 {
		item.ID = s.nextIDLocked()
	}
	cp := *item
	s.records = append(s.records, &cp)
	return nil
}

func (s *stubRepo) GetExecutionRecordByID(ctx context.Context, id uint64) (*models.PledgeExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.records {
		if item.ID == id {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) matchExecutionRecordsLocked(params repository.ListExecutionRecordsParams) []models.PledgeExecutionRecord {
	var out []models.PledgeExecutionRecord
	for _, item := range s.records {
		if params.SessionID != nil && item.SessionID != *params.SessionID {
			continue
		}
		if params.PledgeID != nil && item.PledgeID != *params.PledgeID {
			continue
		}
		if params.Side != nil && item.Side != *params.Side {
			continue
		}
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		if params.BatchRef != nil && item.BatchRef != *params.BatchRef {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *stubRepo) ListExecutionRecords(ctx context.Context, params repository.ListExecutionRecordsParams) ([]models.PledgeExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.matchExecutionRecordsLocked(params)
	start, end := pageBounds(len(out), params.Limit, params.Offset)
	return out[start:end], nil
}

func (s *stubRepo) CountExecutionRecords(ctx context.Context, params repository.ListExecutionRecordsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matchExecutionRecordsLocked(params))), nil
}

func (s *stubRepo) InsertAuditLog(ctx context.Context, item *models.PledgeAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.nextIDLocked()
	}
	s.audits = append(s.audits, *item)
	return nil
}

func (s *stubRepo) ListAuditLogs(ctx context.Context, params repository.ListAuditLogsParams) ([]models.PledgeAuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PledgeAuditLog
	for _, item := range s.audits {
		if params.SessionID != nil && (item.TargetSessionID == nil || *item.TargetSessionID != *params.SessionID) {
			continue
		}
		if params.PledgeID != nil && (item.TargetPledgeID == nil || *item.TargetPledgeID != *params.PledgeID) {
			continue
		}
		if params.Action != nil && item.Action != *params.Action {
			continue
		}
		if params.Success != nil && item.Success != *params.Success {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *stubRepo) CountAuditLogs(ctx context.Context, params repository.ListAuditLogsParams) (int64, error) {
	items, _ := s.ListAuditLogs(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) InsertAccessRequest(ctx context.Context, item *models.AdvisorPledgeAccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.nextIDLocked()
	}
	cp := *item
	s.access[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetAccessRequestByID(ctx context.Context, id uint64) (*models.AdvisorPledgeAccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.access[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) ListAccessRequests(ctx context.Context, params repository.ListAccessRequestsParams) ([]models.AdvisorPledgeAccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AdvisorPledgeAccessRequest
	for _, item := range s.access {
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountAccessRequests(ctx context.Context, params repository.ListAccessRequestsParams) (int64, error) {
	items, _ := s.ListAccessRequests(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) CASAccessStatus(ctx context.Context, id uint64, to models.AccessStatus, updates map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.access[id]
	if !ok || item.Status != models.AccessPending {
		return false, nil
	}
	item.Status = to
	for key, value := range updates {
		switch key {
		case "approved_commission_rate":
			if rate, ok := value.(decimal.Decimal); ok {
				item.ApprovedCommissionRate = &rate
			}
		case "rejection_reason":
			item.RejectionReason, _ = value.(string)
		case "admin_notes":
			item.AdminNotes, _ = value.(string)
		case "reviewed_by":
			item.ReviewedBy, _ = value.(string)
		case "reviewed_at":
			item.ReviewedAt, _ = value.(*time.Time)
		}
	}
	return true, nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.settings[item.Key] = &cp
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) matchSystemSettingsLocked(params repository.ListSystemSettingsParams) []models.SystemSetting {
	var out []models.SystemSetting
	for _, item := range s.settings {
		if params.Prefix != nil && !strings.HasPrefix(item.Key, *params.Prefix) {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.matchSystemSettingsLocked(params)
	start, end := pageBounds(len(out), params.Limit, params.Offset)
	return out[start:end], nil
}

func (s *stubRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matchSystemSettingsLocked(params))), nil
}
