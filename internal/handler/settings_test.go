package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// settingsRepoStub covers only the repo methods the settings handler calls.
type settingsRepoStub struct {
	repository.Repository
	items []models.SystemSetting
	total int64
}

func (s *settingsRepoStub) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	start, end := params.Offset, params.Offset+params.Limit
	if start > len(s.items) {
		start = len(s.items)
	}
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[start:end], nil
}

func (s *settingsRepoStub) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	return s.total, nil
}

func TestSettingsListMetaReportsFullTotal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	items := make([]models.SystemSetting, 5)
	for i := range items {
		items[i] = models.SystemSetting{Key: "feature_" + string(rune('a'+i))}
	}
	h := &SettingsHandler{Repo: &settingsRepoStub{items: items, total: int64(len(items))}}
	engine := gin.New()
	h.Register(engine)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings?limit=2&offset=0", nil)
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []models.SystemSetting `json:"data"`
		Meta map[string]any         `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("page size = %d", len(resp.Data))
	}
	if total, _ := resp.Meta["total"].(float64); total != 5 {
		t.Fatalf("total = %v", resp.Meta["total"])
	}
	if hasNext, _ := resp.Meta["has_next"].(bool); !hasNext {
		t.Fatalf("has_next should be true on a partial page: %v", resp.Meta)
	}
}
