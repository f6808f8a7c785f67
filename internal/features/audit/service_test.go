package audit

import (
	"context"
	"errors"
	"testing"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/pkg/utils"

	"go.uber.org/zap"
)

type mockAuditRepo struct {
	logs []common_models.AuditLog
	err  error
}

func (m *mockAuditRepo) Create(ctx context.Context, log common_models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return &query.Page[common_models.AuditLog]{Data: m.logs, Total: int64(len(m.logs))}, nil
}

func (m *mockAuditRepo) EnsureIndexes(ctx context.Context) error { return nil }

func TestLogChangeUsesActorFromContext(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())

	ctx := utils.WithClaims(context.Background(), &utils.UserClaims{UserID: "rep-3"})
	_ = svc.LogChange(ctx, common_models.AuditActionCreate, "deals", "abc", nil)
	_ = svc.LogChange(context.Background(), common_models.AuditActionCapture, "pipeline_snapshots", "2024-01-01", nil)

	if len(repo.logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(repo.logs))
	}
	if repo.logs[0].ActorID != "rep-3" {
		t.Errorf("actor = %s, want rep-3", repo.logs[0].ActorID)
	}
	if repo.logs[1].ActorID != utils.SystemActor {
		t.Errorf("actor = %s, want system", repo.logs[1].ActorID)
	}
}

func TestLogChangeSwallowsRepoErrors(t *testing.T) {
	svc := NewAuditService(&mockAuditRepo{err: errors.New("down")}, zap.NewNop())
	if err := svc.LogChange(context.Background(), common_models.AuditActionDelete, "tags", "x", nil); err != nil {
		t.Errorf("LogChange() error = %v, want nil", err)
	}
}

func TestDiff(t *testing.T) {
	type rec struct {
		Name      string `json:"name"`
		Stage     string `json:"stage"`
		Notes     string `json:"notes,omitempty"`
		UpdatedAt string `json:"updated_at"`
	}

	before := rec{Name: "Renewal", Stage: "proposal", Notes: "call back", UpdatedAt: "t1"}
	after := rec{Name: "Renewal", Stage: "negotiation", UpdatedAt: "t2"}

	changes := Diff(before, after)
	if len(changes) != 2 {
		t.Fatalf("got %d changes (%v), want 2", len(changes), changes)
	}
	if c := changes["stage"]; c.Old != "proposal" || c.New != "negotiation" {
		t.Errorf("stage change = %+v", c)
	}
	if c := changes["notes"]; c.Old != "call back" || c.New != nil {
		t.Errorf("notes change = %+v", c)
	}
}
