package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

const (
	FeatureExecution     = "feature.execution"
	FeatureNotifications = "feature.notifications"
	FeatureReconciler    = "feature.reconciler"
	FeatureStatsRefresh  = "feature.stats_refresh"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureExecution:     true,
		FeatureNotifications: true,
		FeatureReconciler:    true,
		FeatureStatsRefresh:  true,
	}
}

// SystemSettingsService exposes DB-backed feature switches so operators can
// pause execution or background jobs without a redeploy.
type SystemSettingsService struct {
	Repo repository.Repository
}

func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// IsEnabled reads a boolean switch, falling back to `def` when the row is
// missing or unreadable.
func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, def bool) bool {
	if s == nil || s.Repo == nil {
		return def
	}
	row, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || row == nil || len(row.Value) == 0 {
		return def
	}
	var enabled bool
	if err := json.Unmarshal(row.Value, &enabled); err != nil {
		return def
	}
	return enabled
}

func (s *SystemSettingsService) Set(ctx context.Context, key string, value any, description string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: description,
		UpdatedAt:   time.Now().UTC(),
	})
}
