package service

import (
	"context"
	"encoding/json"
	"testing"
)

func TestEnsureDefaultSwitchesKeepsOverrides(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}

	if err := svc.Set(context.Background(), FeatureExecution, false, "paused for audit"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// The operator override survives the bootstrap pass.
	if svc.IsEnabled(context.Background(), FeatureExecution, true) {
		t.Fatalf("override clobbered by defaults")
	}
	// Switches without overrides are seeded on.
	if !svc.IsEnabled(context.Background(), FeatureReconciler, false) {
		t.Fatalf("default switch not seeded")
	}
}

func TestIsEnabledFallsBackOnBadValue(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}

	if svc.IsEnabled(context.Background(), "feature.missing", true) != true {
		t.Fatalf("missing key should use default")
	}
	if err := svc.Set(context.Background(), "feature.broken", map[string]any{"not": "a bool"}, ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if svc.IsEnabled(context.Background(), "feature.broken", false) != false {
		t.Fatalf("unreadable value should use default")
	}

	row, _ := repo.GetSystemSettingByKey(context.Background(), "feature.broken")
	var decoded map[string]any
	if err := json.Unmarshal(row.Value, &decoded); err != nil {
		t.Fatalf("stored value not json: %v", err)
	}
}
