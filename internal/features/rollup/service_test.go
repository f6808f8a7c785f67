package rollup

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type upsertCall struct {
	key, set, setOnInsert bson.M
}

// memStore is an in-memory RowStore that records writes
type memStore[T any, P row[T]] struct {
	items   map[primitive.ObjectID]*T
	upserts []upsertCall
	deletes []bson.M
	updates []bson.M
}

func newMemStore[T any, P row[T]]() *memStore[T, P] {
	return &memStore[T, P]{items: map[primitive.ObjectID]*T{}}
}

func (m *memStore[T, P]) Create(ctx context.Context, doc *T) error {
	id := primitive.NewObjectID()
	P(doc).setID(id)
	cp := *doc
	m.items[id] = &cp
	return nil
}

func (m *memStore[T, P]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	doc, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("row")
	}
	cp := *doc
	return &cp, nil
}

func (m *memStore[T, P]) Replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	cp := *doc
	m.items[id] = &cp
	return nil
}

func (m *memStore[T, P]) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *memStore[T, P]) List(ctx context.Context, params query.ListParams) (*query.Page[T], error) {
	return &query.Page[T]{}, nil
}

func (m *memStore[T, P]) Upsert(ctx context.Context, key bson.M, set bson.M, setOnInsert bson.M) error {
	m.upserts = append(m.upserts, upsertCall{key, set, setOnInsert})
	return nil
}

func (m *memStore[T, P]) DeleteWhere(ctx context.Context, filter bson.M) error {
	m.deletes = append(m.deletes, filter)
	return nil
}

func (m *memStore[T, P]) UpdateWhere(ctx context.Context, filter bson.M, set bson.M) error {
	m.updates = append(m.updates, filter)
	return nil
}

func (m *memStore[T, P]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	return nil, nil
}

func (m *memStore[T, P]) EnsureIndexes(ctx context.Context) error { return nil }

type stubDeals struct {
	deal.DealRepository
	active []deal.Deal
}

func (s stubDeals) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]deal.Deal, error) {
	if _, ok := filter["is_active"]; ok {
		return s.active, nil
	}
	return nil, nil
}

type stubActivities struct {
	activity.ActivityRepository
	items []activity.Activity
}

func (s stubActivities) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]activity.Activity, error) {
	return s.items, nil
}

type stubContacts struct{ contact.ContactRepository }

func (stubContacts) Find(ctx context.Context, filter bson.M, limit int64) ([]contact.Contact, error) {
	return nil, nil
}

type stubCompanies struct{ company.CompanyRepository }

func (stubCompanies) Find(ctx context.Context, filter bson.M, limit int64) ([]company.Company, error) {
	return nil, nil
}

type recordingExporter struct {
	snapshots int
	err       error
}

func (r *recordingExporter) Export(ctx context.Context, snapshots []PipelineSnapshot, summaries []ActivitySummary) error {
	r.snapshots += len(snapshots)
	return r.err
}

type knownTargets map[primitive.ObjectID]common_models.EntityKind

func (k knownTargets) Exists(ctx context.Context, ref common_models.EntityRef) (bool, error) {
	kind, ok := k[ref.ID]
	return ok && kind == ref.Kind, nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return nil, nil
}

type fixture struct {
	svc        *RollupService
	summaries  *memStore[ActivitySummary, *ActivitySummary]
	snapshots  *memStore[PipelineSnapshot, *PipelineSnapshot]
	engagement *memStore[ContactEngagement, *ContactEngagement]
	forecasts  *memStore[DealForecast, *DealForecast]
	exporter   *recordingExporter
	dealID     primitive.ObjectID
	contactID  primitive.ObjectID
}

func newFixture(active []deal.Deal, activities []activity.Activity) *fixture {
	f := &fixture{
		summaries:  newMemStore[ActivitySummary, *ActivitySummary](),
		snapshots:  newMemStore[PipelineSnapshot, *PipelineSnapshot](),
		engagement: newMemStore[ContactEngagement, *ContactEngagement](),
		forecasts:  newMemStore[DealForecast, *DealForecast](),
		exporter:   &recordingExporter{},
		dealID:     primitive.NewObjectID(),
		contactID:  primitive.NewObjectID(),
	}
	repo := &RollupRepository{Summaries: f.summaries, Snapshots: f.snapshots, Engagement: f.engagement, Forecasts: f.forecasts}
	targets := knownTargets{f.dealID: common_models.EntityDeal, f.contactID: common_models.EntityContact}
	f.svc = NewRollupService(repo,
		stubDeals{active: active},
		stubActivities{items: activities},
		stubContacts{},
		stubCompanies{},
		targets, f.exporter, nopAudit{}, nil, zap.NewNop())
	return f
}

func TestCaptureUpsertsEveryRow(t *testing.T) {
	contactID := primitive.NewObjectID()
	active := []deal.Deal{
		{ID: primitive.NewObjectID(), Stage: deal.StageProposal, Amount: decimal.NewFromInt(100), Probability: 50, IsActive: true},
	}
	activities := []activity.Activity{
		{ActivityType: activity.TypeMeeting, OwnerID: "ana", ContactID: &contactID, CreatedAt: captureDay.Time.Add(time.Hour)},
	}
	f := newFixture(active, activities)

	res, err := f.svc.Capture(context.Background(), captureDay)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if len(res.Snapshots) != 1 || len(res.Forecasts) != 1 || len(res.Summaries) != 1 || len(res.Engagement) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(f.snapshots.upserts) != 1 || f.snapshots.upserts[0].key["stage"] != deal.StageProposal {
		t.Errorf("snapshot upserts = %+v", f.snapshots.upserts)
	}
	if len(f.snapshots.deletes) != 1 {
		t.Errorf("stale snapshot cleanup not issued")
	}
	if len(f.engagement.upserts) != 1 {
		t.Fatalf("engagement upserts = %+v", f.engagement.upserts)
	}
	eng := f.engagement.upserts[0]
	if _, ok := eng.set["email_opens"]; ok {
		t.Error("capture must not overwrite externally fed counters")
	}
	if eng.setOnInsert["email_opens"] != 0 {
		t.Errorf("setOnInsert = %v", eng.setOnInsert)
	}
	if f.forecasts.upserts[0].set["confidence_level"] != ConfidenceMedium {
		t.Errorf("forecast upsert = %+v", f.forecasts.upserts[0])
	}
	if f.exporter.snapshots != 1 {
		t.Errorf("exporter saw %d snapshots", f.exporter.snapshots)
	}
}

func TestCapturePrunesRowsThatNoLongerApply(t *testing.T) {
	contactID := primitive.NewObjectID()
	dealID := primitive.NewObjectID()
	active := []deal.Deal{
		{ID: dealID, Stage: deal.StageProposal, Amount: decimal.NewFromInt(100), Probability: 50, IsActive: true},
	}
	activities := []activity.Activity{
		{ActivityType: activity.TypeCall, OwnerID: "ana", ContactID: &contactID, CreatedAt: captureDay.Time.Add(time.Hour)},
	}
	f := newFixture(active, activities)

	if _, err := f.svc.Capture(context.Background(), captureDay); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	if len(f.summaries.deletes) != 1 {
		t.Fatalf("summary deletes = %v", f.summaries.deletes)
	}
	sumFilter := f.summaries.deletes[0]
	if sumFilter["date"] != captureDay || !reflect.DeepEqual(sumFilter["owner_id"], bson.M{"$nin": bson.A{"ana"}}) {
		t.Errorf("summary prune filter = %v", sumFilter)
	}

	if len(f.forecasts.deletes) != 1 {
		t.Fatalf("forecast deletes = %v", f.forecasts.deletes)
	}
	fcFilter := f.forecasts.deletes[0]
	if fcFilter["forecast_date"] != captureDay || !reflect.DeepEqual(fcFilter["deal_id"], bson.M{"$nin": bson.A{dealID}}) {
		t.Errorf("forecast prune filter = %v", fcFilter)
	}

	if len(f.engagement.deletes) != 1 || len(f.engagement.updates) != 1 {
		t.Fatalf("engagement deletes = %v, updates = %v", f.engagement.deletes, f.engagement.updates)
	}
	del := f.engagement.deletes[0]
	if del["email_opens"] != 0 || del["website_visits"] != 0 {
		t.Errorf("engagement delete must spare externally fed counters: %v", del)
	}
	want := bson.M{"$nin": bson.A{contactID}}
	if !reflect.DeepEqual(del["contact_id"], want) || !reflect.DeepEqual(f.engagement.updates[0]["contact_id"], want) {
		t.Errorf("engagement prune filters = %v / %v", del, f.engagement.updates[0])
	}
	if _, ok := f.engagement.updates[0]["email_opens"]; ok {
		t.Error("engagement reset must cover rows with external counters too")
	}
}

func TestCaptureOfEmptyDayPrunesEverything(t *testing.T) {
	f := newFixture(nil, nil)

	if _, err := f.svc.Capture(context.Background(), captureDay); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	empty := bson.M{"$nin": bson.A{}}
	if !reflect.DeepEqual(f.summaries.deletes[0]["owner_id"], empty) {
		t.Errorf("summary prune = %v", f.summaries.deletes[0])
	}
	if !reflect.DeepEqual(f.forecasts.deletes[0]["deal_id"], empty) {
		t.Errorf("forecast prune = %v", f.forecasts.deletes[0])
	}
}

func TestCaptureIgnoresExportFailure(t *testing.T) {
	f := newFixture(nil, nil)
	f.exporter.err = errors.New("warehouse offline")

	if _, err := f.svc.Capture(context.Background(), captureDay); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
}

func TestCaptureRequiresDate(t *testing.T) {
	f := newFixture(nil, nil)
	_, err := f.svc.Capture(context.Background(), common_models.Date{})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
		t.Errorf("Capture() error = %v, want validation error", err)
	}
}

func TestForecastRowsValidateAndDefault(t *testing.T) {
	f := newFixture(nil, nil)
	ctx := context.Background()

	created, err := f.svc.Forecasts.Create(ctx, &DealForecast{
		DealID:           f.dealID,
		ForecastDate:     captureDay,
		ForecastedAmount: decimal.NewFromInt(10),
		Probability:      80,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID.IsZero() || created.ConfidenceLevel != ConfidenceHigh {
		t.Errorf("created = %+v", created)
	}

	_, err = f.svc.Forecasts.Create(ctx, &DealForecast{
		DealID:          primitive.NewObjectID(),
		ForecastDate:    captureDay,
		Probability:     120,
		ConfidenceLevel: "certain",
	})
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("Create() error = %v, want validation error", err)
	}
	for _, field := range []string{"deal_id", "probability", "confidence_level"} {
		if _, ok := ae.Fields[field]; !ok {
			t.Errorf("missing error for %s in %v", field, ae.Fields)
		}
	}
}

func TestUpdateRowKeepsID(t *testing.T) {
	f := newFixture(nil, nil)
	ctx := context.Background()

	row, err := f.svc.Engagement.Create(ctx, &ContactEngagement{ContactID: f.contactID, Date: captureDay})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	updated, err := f.svc.Engagement.Update(ctx, row.ID, func(e *ContactEngagement) error {
		e.ID = primitive.NewObjectID()
		e.EmailOpens = 4
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != row.ID || updated.EmailOpens != 4 {
		t.Errorf("updated = %+v", updated)
	}

	_, err = f.svc.Engagement.Update(ctx, row.ID, func(e *ContactEngagement) error {
		e.WebsiteVisits = -1
		return nil
	})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Fields["website_visits"] == "" {
		t.Errorf("Update() error = %v", err)
	}
}

func TestDeleteForTargets(t *testing.T) {
	f := newFixture(nil, nil)
	ids := []primitive.ObjectID{primitive.NewObjectID()}

	var cleaner common_models.DependentCleaner = f.svc
	cleaner.DeleteForTargets(context.Background(), common_models.EntityContact, ids)
	cleaner.DeleteForTargets(context.Background(), common_models.EntityDeal, ids)
	cleaner.DeleteForTargets(context.Background(), common_models.EntityCompany, ids)

	if len(f.engagement.deletes) != 1 || len(f.forecasts.deletes) != 1 {
		t.Errorf("engagement deletes = %v, forecast deletes = %v", f.engagement.deletes, f.forecasts.deletes)
	}
}
