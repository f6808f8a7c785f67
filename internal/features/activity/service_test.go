package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockActivityRepo struct {
	items     map[primitive.ObjectID]*Activity
	lastQuery bson.M
	lastLimit int64
}

func newMockRepo() *mockActivityRepo {
	return &mockActivityRepo{items: map[primitive.ObjectID]*Activity{}}
}

func (m *mockActivityRepo) Create(ctx context.Context, a *Activity) error {
	a.ID = primitive.NewObjectID()
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockActivityRepo) Get(ctx context.Context, id primitive.ObjectID) (*Activity, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("activity")
	}
	cp := *a
	return &cp, nil
}

func (m *mockActivityRepo) Update(ctx context.Context, a *Activity) error {
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockActivityRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *mockActivityRepo) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		delete(m.items, id)
	}
	return nil
}

func (m *mockActivityRepo) List(ctx context.Context, params query.ListParams) (*query.Page[Activity], error) {
	return &query.Page[Activity]{}, nil
}

func (m *mockActivityRepo) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]Activity, error) {
	m.lastQuery = filter
	m.lastLimit = limit
	return []Activity{}, nil
}

func (m *mockActivityRepo) IDsWhere(ctx context.Context, field string, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for _, a := range m.items {
		if field != "deal_id" || a.DealID == nil {
			continue
		}
		for _, id := range ids {
			if *a.DealID == id {
				out = append(out, a.ID)
			}
		}
	}
	return out, nil
}

func (m *mockActivityRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := m.items[id]
	return ok, nil
}

func (m *mockActivityRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	var n int64
	for _, a := range m.items {
		if v, ok := filter["status"]; ok && v != a.Status {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockActivityRepo) CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error) {
	return []query.Bucket{{Key: "call", Count: 1}}, nil
}

func (m *mockActivityRepo) EnsureIndexes(ctx context.Context) error { return nil }

type knownTargets map[primitive.ObjectID]common_models.EntityKind

func (k knownTargets) Exists(ctx context.Context, ref common_models.EntityRef) (bool, error) {
	kind, ok := k[ref.ID]
	return ok && kind == ref.Kind, nil
}

type cleanLog struct {
	kinds []common_models.EntityKind
	ids   int
}

func (c *cleanLog) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	c.kinds = append(c.kinds, kind)
	c.ids += len(ids)
	return nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return nil, nil
}

var fixedNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func newTestService(targets knownTargets) (*ActivityServiceImpl, *mockActivityRepo, *cleanLog) {
	repo := newMockRepo()
	cleaner := &cleanLog{}
	svc := NewActivityService(repo, targets, common_models.Cleaners{cleaner}, nopAudit{}, nil).(*ActivityServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, cleaner
}

func TestCreateCompletedActivitySetsCompletedDate(t *testing.T) {
	svc, _, _ := newTestService(nil)

	a := New()
	a.ActivityType = "call"
	a.Subject = "Intro call"
	a.Status = StatusCompleted
	created, err := svc.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.CompletedDate == nil || !created.CompletedDate.Equal(fixedNow) {
		t.Errorf("CompletedDate = %v, want %v", created.CompletedDate, fixedNow)
	}

	p := New()
	p.ActivityType = "task"
	p.Subject = "Follow up"
	pending, _ := svc.Create(context.Background(), p)
	if pending.CompletedDate != nil {
		t.Errorf("pending activity has CompletedDate %v", pending.CompletedDate)
	}
}

func TestUpdateCompletesOnce(t *testing.T) {
	svc, _, _ := newTestService(nil)
	a := New()
	a.ActivityType = "meeting"
	a.Subject = "Kickoff"
	created, _ := svc.Create(context.Background(), a)

	updated, err := svc.Update(context.Background(), created.ID, func(a *Activity) error {
		return json.Unmarshal([]byte(`{"status":"completed","completed_date":"2020-01-01T00:00:00Z"}`), a)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.CompletedDate == nil || !updated.CompletedDate.Equal(fixedNow) {
		t.Fatalf("CompletedDate = %v, want %v", updated.CompletedDate, fixedNow)
	}

	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	again, _ := svc.Update(context.Background(), created.ID, func(a *Activity) error {
		a.Outcome = "signed"
		return nil
	})
	if !again.CompletedDate.Equal(fixedNow) {
		t.Errorf("CompletedDate moved to %v", again.CompletedDate)
	}
}

func TestCreateActivityValidation(t *testing.T) {
	contactID := primitive.NewObjectID()
	svc, _, _ := newTestService(knownTargets{contactID: common_models.EntityContact})

	dealID := primitive.NewObjectID()
	neg := -5
	a := &Activity{ActivityType: "fax", Status: "done", ContactID: &contactID, DealID: &dealID, DurationMinutes: &neg}
	_, err := svc.Create(context.Background(), a)

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"activity_type", "subject", "status", "deal_id", "duration_minutes"} {
		if _, ok := ae.Fields[f]; !ok {
			t.Errorf("missing field error for %s", f)
		}
	}
	if _, ok := ae.Fields["contact_id"]; ok {
		t.Error("known contact reported as missing")
	}
}

func TestDeleteByRelated(t *testing.T) {
	svc, repo, cleaner := newTestService(nil)
	dealID := primitive.NewObjectID()
	other := primitive.NewObjectID()
	for _, d := range []primitive.ObjectID{dealID, dealID, other} {
		a := &Activity{ID: primitive.NewObjectID(), DealID: &d}
		repo.items[a.ID] = a
	}
	var kept primitive.ObjectID
	for id, a := range repo.items {
		if *a.DealID == other {
			kept = id
		}
	}

	if err := svc.DeleteByRelated(context.Background(), "deal_id", []primitive.ObjectID{dealID}); err != nil {
		t.Fatalf("DeleteByRelated() error = %v", err)
	}
	if len(repo.items) != 1 {
		t.Errorf("%d activities left, want 1", len(repo.items))
	}
	if _, ok := repo.items[kept]; !ok {
		t.Error("activity of the other deal was removed")
	}
	if cleaner.ids != 2 || cleaner.kinds[0] != common_models.EntityActivity {
		t.Errorf("cleaner saw %d ids of %v", cleaner.ids, cleaner.kinds)
	}
}

func TestUpcomingQuery(t *testing.T) {
	svc, repo, _ := newTestService(nil)

	if _, err := svc.Upcoming(context.Background(), 500); err != nil {
		t.Fatal(err)
	}
	if repo.lastLimit != upcomingLimit {
		t.Errorf("limit = %d, want %d", repo.lastLimit, upcomingLimit)
	}
	if repo.lastQuery["status"] != StatusPending {
		t.Errorf("status filter = %v", repo.lastQuery["status"])
	}
	due := repo.lastQuery["due_date"].(bson.M)
	if from, ok := due["$gte"].(time.Time); !ok || !from.Equal(fixedNow) {
		t.Errorf("due_date filter = %v", due)
	}
}

func TestActivityStats(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	repo.items[primitive.NewObjectID()] = &Activity{Status: StatusCompleted}
	repo.items[primitive.NewObjectID()] = &Activity{Status: StatusPending}
	repo.items[primitive.NewObjectID()] = &Activity{Status: StatusPending}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalActivities != 3 || stats.CompletedActivities != 1 || stats.PendingActivities != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TypeBreakdown[0]["activity_type"] != "call" {
		t.Errorf("type breakdown = %v", stats.TypeBreakdown)
	}
}
