package deal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockDealRepo struct {
	items map[primitive.ObjectID]*Deal
}

func newMockRepo() *mockDealRepo {
	return &mockDealRepo{items: map[primitive.ObjectID]*Deal{}}
}

func (m *mockDealRepo) Create(ctx context.Context, d *Deal) error {
	d.ID = primitive.NewObjectID()
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDealRepo) Get(ctx context.Context, id primitive.ObjectID) (*Deal, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("deal")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDealRepo) Update(ctx context.Context, d *Deal) error {
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDealRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *mockDealRepo) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		delete(m.items, id)
	}
	return nil
}

func (m *mockDealRepo) List(ctx context.Context, params query.ListParams) (*query.Page[Deal], error) {
	return &query.Page[Deal]{}, nil
}

func (m *mockDealRepo) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]Deal, error) {
	var out []Deal
	for _, d := range m.items {
		if v, ok := filter["is_active"]; ok && v != d.IsActive {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDealRepo) IDsWhere(ctx context.Context, field string, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for _, d := range m.items {
		for _, id := range ids {
			if field == "contact_id" && d.ContactID == id {
				out = append(out, d.ID)
			}
		}
	}
	return out, nil
}

func (m *mockDealRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := m.items[id]
	return ok, nil
}

func (m *mockDealRepo) ClearCompany(ctx context.Context, companyID primitive.ObjectID) error {
	return nil
}

func (m *mockDealRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	var n int64
	for _, d := range m.items {
		if v, ok := filter["is_active"]; ok && v != d.IsActive {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockDealRepo) SumAmount(ctx context.Context, filter bson.M) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *mockDealRepo) StageTotals(ctx context.Context) ([]StageTotal, error) {
	return []StageTotal{}, nil
}

func (m *mockDealRepo) CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return nil, nil
}

func (m *mockDealRepo) EnsureIndexes(ctx context.Context) error { return nil }

type knownTargets map[primitive.ObjectID]common_models.EntityKind

func (k knownTargets) Exists(ctx context.Context, ref common_models.EntityRef) (bool, error) {
	kind, ok := k[ref.ID]
	return ok && kind == ref.Kind, nil
}

type recorder struct {
	calls []string
}

func (r *recorder) DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error {
	r.calls = append(r.calls, "activities:"+field)
	return nil
}

func (r *recorder) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	r.calls = append(r.calls, "clean:"+string(kind))
	return nil
}

type fixedOrder map[string]int

func (f fixedOrder) StageOrder(ctx context.Context, pipelineID primitive.ObjectID) (map[string]int, error) {
	return f, nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return nil, nil
}

func newTestService() (*DealServiceImpl, *mockDealRepo, *recorder, primitive.ObjectID) {
	repo := newMockRepo()
	rec := &recorder{}
	contactID := primitive.NewObjectID()
	targets := knownTargets{contactID: common_models.EntityContact}
	order := fixedOrder{StageProspecting: 1, StageNegotiation: 2}
	svc := NewDealService(repo, targets, rec, order, common_models.Cleaners{rec}, nopAudit{}, nil).(*DealServiceImpl)
	return svc, repo, rec, contactID
}

func validDeal(contactID primitive.ObjectID) *Deal {
	d := New()
	d.Name = "Renewal"
	d.Amount = decimal.NewFromInt(1000)
	d.Probability = 25
	d.ContactID = contactID
	d.ExpectedCloseDate = common_models.DateOf(2026, time.December, 31)
	return d
}

func TestCreateDeal(t *testing.T) {
	svc, repo, _, contactID := newTestService()

	created, err := svc.Create(context.Background(), validDeal(contactID))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Stage != StageProspecting || created.Currency != "USD" || created.Priority != "medium" {
		t.Errorf("defaults not applied: %+v", created)
	}
	if _, ok := repo.items[created.ID]; !ok {
		t.Error("deal not stored")
	}
	if !created.WeightedAmount().Equal(decimal.NewFromInt(250)) {
		t.Errorf("weighted = %s, want 250", created.WeightedAmount())
	}
}

func TestCreateDealValidation(t *testing.T) {
	svc, _, _, contactID := newTestService()

	tests := []struct {
		name  string
		edit  func(*Deal)
		field string
	}{
		{"probability above 100", func(d *Deal) { d.Probability = 101 }, "probability"},
		{"negative probability", func(d *Deal) { d.Probability = -1 }, "probability"},
		{"negative amount", func(d *Deal) { d.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"unknown stage", func(d *Deal) { d.Stage = "won" }, "stage"},
		{"unknown priority", func(d *Deal) { d.Priority = "urgent" }, "priority"},
		{"missing close date", func(d *Deal) { d.ExpectedCloseDate = common_models.Date{} }, "expected_close_date"},
		{"missing contact", func(d *Deal) { d.ContactID = primitive.NilObjectID }, "contact_id"},
		{"unknown contact", func(d *Deal) { d.ContactID = primitive.NewObjectID() }, "contact_id"},
		{"unknown company", func(d *Deal) { id := primitive.NewObjectID(); d.CompanyID = &id }, "company_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDeal(contactID)
			tt.edit(d)
			_, err := svc.Create(context.Background(), d)

			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := ae.Fields[tt.field]; !ok {
				t.Errorf("missing field error for %s in %v", tt.field, ae.Fields)
			}
		})
	}
}

func TestDeleteDealCascades(t *testing.T) {
	svc, repo, rec, contactID := newTestService()
	created, _ := svc.Create(context.Background(), validDeal(contactID))

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(repo.items) != 0 {
		t.Error("deal still stored")
	}
	if got := strings.Join(rec.calls, ","); got != "activities:deal_id,clean:deal" {
		t.Errorf("cascade calls = %s", got)
	}
}

func TestDeleteByRelatedRemovesContactDeals(t *testing.T) {
	svc, repo, rec, contactID := newTestService()
	svc.Create(context.Background(), validDeal(contactID))
	svc.Create(context.Background(), validDeal(contactID))
	other := primitive.NewObjectID()
	repo.items[primitive.NewObjectID()] = &Deal{ContactID: other}

	if err := svc.DeleteByRelated(context.Background(), "contact_id", []primitive.ObjectID{contactID}); err != nil {
		t.Fatalf("DeleteByRelated() error = %v", err)
	}
	if len(repo.items) != 1 {
		t.Errorf("%d deals left, want 1", len(repo.items))
	}
	if got := strings.Join(rec.calls, ","); got != "activities:deal_id,clean:deal" {
		t.Errorf("cascade calls = %s", got)
	}

	rec.calls = nil
	if err := svc.DeleteByRelated(context.Background(), "contact_id", []primitive.ObjectID{primitive.NewObjectID()}); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("no deals matched but cascade ran: %v", rec.calls)
	}
}

func TestPipelineUsesStageOrder(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.items[primitive.NewObjectID()] = &Deal{Stage: StageNegotiation, Amount: decimal.NewFromInt(1000), Probability: 80, IsActive: true}
	repo.items[primitive.NewObjectID()] = &Deal{Stage: StageProspecting, Amount: decimal.NewFromInt(100), Probability: 50, IsActive: true}
	repo.items[primitive.NewObjectID()] = &Deal{Stage: StageProspecting, Amount: decimal.NewFromInt(300), Probability: 50, IsActive: true}

	lexical, err := svc.Pipeline(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if lexical.Stages[0].Stage != StageNegotiation {
		t.Errorf("first lexical stage = %s", lexical.Stages[0].Stage)
	}

	pipelineID := primitive.NewObjectID()
	ordered, err := svc.Pipeline(context.Background(), &pipelineID)
	if err != nil {
		t.Fatal(err)
	}
	if ordered.Stages[0].Stage != StageProspecting {
		t.Errorf("first ordered stage = %s", ordered.Stages[0].Stage)
	}
	if !ordered.WeightedAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("weighted pipeline = %s, want 1000", ordered.WeightedAmount)
	}
}
