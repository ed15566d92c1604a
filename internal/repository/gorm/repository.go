package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Sessions ----------------------------------------------------------------

func (s *Store) InsertSession(ctx context.Context, item *models.PledgeSession) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSessionByID(ctx context.Context, id uint64) (*models.PledgeSession, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.PledgeSession
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSessions(ctx context.Context, params repository.ListSessionsParams) ([]models.PledgeSession, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySessionFilters(s.db.WithContext(ctx).Model(&models.PledgeSession{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.PledgeSession
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSessions(ctx context.Context, params repository.ListSessionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applySessionFilters(s.db.WithContext(ctx).Model(&models.PledgeSession{}), params).Count(&total).Error
	return total, err
}

func applySessionFilters(query *gorm.DB, params repository.ListSessionsParams) *gorm.DB {
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.StockSymbol != nil && strings.TrimSpace(*params.StockSymbol) != "" {
		query = query.Where("stock_symbol = ?", strings.TrimSpace(*params.StockSymbol))
	}
	if params.AdvisorID != nil && strings.TrimSpace(*params.AdvisorID) != "" {
		query = query.Where("created_by_advisor_id = ?", strings.TrimSpace(*params.AdvisorID))
	}
	if params.CreatedBy != nil && strings.TrimSpace(*params.CreatedBy) != "" {
		query = query.Where("created_by = ?", strings.TrimSpace(*params.CreatedBy))
	}
	return query
}

func (s *Store) UpdateSessionFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.PledgeSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) CASSessionStatus(ctx context.Context, id uint64, from []models.SessionStatus, to models.SessionStatus, updates map[string]any) (bool, error) {
	if s == nil || s.db == nil || id == 0 || len(from) == 0 {
		return false, nil
	}
	set := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		set[k] = v
	}
	res := s.db.WithContext(ctx).
		Model(&models.PledgeSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteSession(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.PledgeSession{}, "id = ?", id).Error
}

func (s *Store) ListSessionsExecutingSince(ctx context.Context, before time.Time, limit int) ([]models.PledgeSession, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PledgeSession
	err := s.db.WithContext(ctx).
		Model(&models.PledgeSession{}).
		Where("status = ?", models.SessionExecuting).
		Where("updated_at < ?", before).
		Order("updated_at asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Pledges -----------------------------------------------------------------

func (s *Store) InsertPledge(ctx context.Context, item *models.Pledge) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPledgeByID(ctx context.Context, id uint64) (*models.Pledge, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Pledge
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPledges(ctx context.Context, params repository.ListPledgesParams) ([]models.Pledge, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPledgeFilters(s.db.WithContext(ctx).Model(&models.Pledge{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Pledge
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPledges(ctx context.Context, params repository.ListPledgesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyPledgeFilters(s.db.WithContext(ctx).Model(&models.Pledge{}), params).Count(&total).Error
	return total, err
}

func applyPledgeFilters(query *gorm.DB, params repository.ListPledgesParams) *gorm.DB {
	if params.SessionID != nil && *params.SessionID > 0 {
		query = query.Where("session_id = ?", *params.SessionID)
	}
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Side != nil && *params.Side != "" {
		query = query.Where("side = ?", *params.Side)
	}
	return query
}

func (s *Store) UpdatePledgeStatus(ctx context.Context, id uint64, status models.PledgeStatus) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Pledge{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

// --- Execution ledger --------------------------------------------------------

func (s *Store) InsertExecutionRecord(ctx context.Context, item *models.PledgeExecutionRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetExecutionRecordByID(ctx context.Context, id uint64) (*models.PledgeExecutionRecord, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.PledgeExecutionRecord
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListExecutionRecords(ctx context.Context, params repository.ListExecutionRecordsParams) ([]models.PledgeExecutionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyExecutionFilters(s.db.WithContext(ctx).Model(&models.PledgeExecutionRecord{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "executed_at")
	var items []models.PledgeExecutionRecord
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountExecutionRecords(ctx context.Context, params repository.ListExecutionRecordsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyExecutionFilters(s.db.WithContext(ctx).Model(&models.PledgeExecutionRecord{}), params).Count(&total).Error
	return total, err
}

func applyExecutionFilters(query *gorm.DB, params repository.ListExecutionRecordsParams) *gorm.DB {
	if params.SessionID != nil && *params.SessionID > 0 {
		query = query.Where("session_id = ?", *params.SessionID)
	}
	if params.PledgeID != nil && *params.PledgeID > 0 {
		query = query.Where("pledge_id = ?", *params.PledgeID)
	}
	if params.Side != nil && *params.Side != "" {
		query = query.Where("side = ?", *params.Side)
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BatchRef != nil && strings.TrimSpace(*params.BatchRef) != "" {
		query = query.Where("batch_ref = ?", strings.TrimSpace(*params.BatchRef))
	}
	return query
}

// --- Audit trail -------------------------------------------------------------

func (s *Store) InsertAuditLog(ctx context.Context, item *models.PledgeAuditLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListAuditLogs(ctx context.Context, params repository.ListAuditLogsParams) ([]models.PledgeAuditLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAuditFilters(s.db.WithContext(ctx).Model(&models.PledgeAuditLog{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.PledgeAuditLog
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAuditLogs(ctx context.Context, params repository.ListAuditLogsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyAuditFilters(s.db.WithContext(ctx).Model(&models.PledgeAuditLog{}), params).Count(&total).Error
	return total, err
}

func applyAuditFilters(query *gorm.DB, params repository.ListAuditLogsParams) *gorm.DB {
	if params.SessionID != nil && *params.SessionID > 0 {
		query = query.Where("target_session_id = ?", *params.SessionID)
	}
	if params.PledgeID != nil && *params.PledgeID > 0 {
		query = query.Where("target_pledge_id = ?", *params.PledgeID)
	}
	if params.ActorID != nil && strings.TrimSpace(*params.ActorID) != "" {
		query = query.Where("actor_id = ?", strings.TrimSpace(*params.ActorID))
	}
	if params.Action != nil && strings.TrimSpace(*params.Action) != "" {
		query = query.Where("action = ?", strings.TrimSpace(*params.Action))
	}
	if params.Success != nil {
		query = query.Where("success = ?", *params.Success)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

// --- Access requests ---------------------------------------------------------

func (s *Store) InsertAccessRequest(ctx context.Context, item *models.AdvisorPledgeAccessRequest) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAccessRequestByID(ctx context.Context, id uint64) (*models.AdvisorPledgeAccessRequest, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.AdvisorPledgeAccessRequest
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAccessRequests(ctx context.Context, params repository.ListAccessRequestsParams) ([]models.AdvisorPledgeAccessRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAccessFilters(s.db.WithContext(ctx).Model(&models.AdvisorPledgeAccessRequest{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.AdvisorPledgeAccessRequest
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAccessRequests(ctx context.Context, params repository.ListAccessRequestsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyAccessFilters(s.db.WithContext(ctx).Model(&models.AdvisorPledgeAccessRequest{}), params).Count(&total).Error
	return total, err
}

func applyAccessFilters(query *gorm.DB, params repository.ListAccessRequestsParams) *gorm.DB {
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.AdvisorID != nil && strings.TrimSpace(*params.AdvisorID) != "" {
		query = query.Where("advisor_id = ?", strings.TrimSpace(*params.AdvisorID))
	}
	return query
}

func (s *Store) CASAccessStatus(ctx context.Context, id uint64, to models.AccessStatus, updates map[string]any) (bool, error) {
	if s == nil || s.db == nil || id == 0 {
		return false, nil
	}
	set := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		set[k] = v
	}
	res := s.db.WithContext(ctx).
		Model(&models.AdvisorPledgeAccessRequest{}).
		Where("id = ? AND status = ?", id, models.AccessPending).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// --- System settings ---------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil || strings.TrimSpace(key) == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).First(&item, "key = ?", strings.TrimSpace(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySystemSettingFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	var items []models.SystemSetting
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applySystemSettingFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params).Count(&total).Error
	return total, err
}

func applySystemSettingFilters(query *gorm.DB, params repository.ListSystemSettingsParams) *gorm.DB {
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	return query
}

// --- Helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
