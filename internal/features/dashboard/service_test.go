package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"salescrm/internal/cache"
	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/deal"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockWidgetRepo struct {
	items map[primitive.ObjectID]*Widget
}

func (m *mockWidgetRepo) Create(ctx context.Context, w *Widget) error {
	w.ID = primitive.NewObjectID()
	cp := *w
	m.items[w.ID] = &cp
	return nil
}

func (m *mockWidgetRepo) Get(ctx context.Context, id primitive.ObjectID) (*Widget, error) {
	w, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("dashboard widget")
	}
	cp := *w
	return &cp, nil
}

func (m *mockWidgetRepo) Update(ctx context.Context, w *Widget) error {
	cp := *w
	m.items[w.ID] = &cp
	return nil
}

func (m *mockWidgetRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *mockWidgetRepo) List(ctx context.Context, params query.ListParams) (*query.Page[Widget], error) {
	return &query.Page[Widget]{}, nil
}

type fixedCounter struct {
	n     int64
	calls int
}

func (f *fixedCounter) Count(ctx context.Context, filter bson.M) (int64, error) {
	f.calls++
	return f.n, nil
}

type fakeContacts struct {
	fixedCounter
	status []query.Bucket
}

func (f *fakeContacts) CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error) {
	return f.status, nil
}

func (f *fakeContacts) CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return nil, nil
}

type fakeDeals struct {
	fixedCounter
	found   []deal.Deal
	filters []bson.M
}

func (f *fakeDeals) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]deal.Deal, error) {
	f.filters = append(f.filters, filter)
	return f.found, nil
}

func (f *fakeDeals) StageTotals(ctx context.Context) ([]deal.StageTotal, error) {
	return []deal.StageTotal{{Stage: "proposal", Count: 3}}, nil
}

func (f *fakeDeals) CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeDeals) Pipeline(ctx context.Context, pipelineID *primitive.ObjectID) (*deal.PipelineSummary, error) {
	return &deal.PipelineSummary{Stages: []deal.StageSummary{}}, nil
}

type fakeFeed struct {
	upcomingLimit int64
}

func (f *fakeFeed) Upcoming(ctx context.Context, limit int64) ([]activity.Activity, error) {
	f.upcomingLimit = limit
	return []activity.Activity{}, nil
}

func (f *fakeFeed) Recent(ctx context.Context, limit int64) ([]activity.Activity, error) {
	return []activity.Activity{}, nil
}

// memCache keeps JSON in a map
type memCache struct {
	entries map[string][]byte
}

func (m *memCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return nil, nil
}

type fixture struct {
	svc      *DashboardServiceImpl
	contacts *fakeContacts
	deals    *fakeDeals
	feed     *fakeFeed
	cache    *memCache
}

func newFixture() *fixture {
	f := &fixture{
		contacts: &fakeContacts{fixedCounter: fixedCounter{n: 4}},
		deals:    &fakeDeals{fixedCounter: fixedCounter{n: 12}},
		feed:     &fakeFeed{},
		cache:    &memCache{entries: map[string][]byte{}},
	}
	f.svc = &DashboardServiceImpl{
		Widgets:    &mockWidgetRepo{items: map[primitive.ObjectID]*Widget{}},
		Contacts:   f.contacts,
		Companies:  &fixedCounter{n: 2},
		Deals:      f.deals,
		Pipelines:  f.deals,
		Activities: &fixedCounter{n: 30},
		Feed:       f.feed,
		Cache:      f.cache,
		CacheTTL:   time.Minute,
		Audit:      nopAudit{},
		logger:     zap.NewNop(),
		now:        func() time.Time { return trendNow },
	}
	return f
}

func (f *fixture) widget(t *testing.T, widgetType string, config map[string]interface{}) *Widget {
	t.Helper()
	w := New()
	w.Name = "tile"
	w.WidgetType = widgetType
	w.Config = config
	created, err := f.svc.CreateWidget(context.Background(), w)
	if err != nil {
		t.Fatalf("CreateWidget() error = %v", err)
	}
	return created
}

func TestOverviewIsCached(t *testing.T) {
	f := newFixture()

	first, err := f.svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if first.Contacts != 4 || first.Deals != 12 || first.Companies != 2 || first.Activities != 30 {
		t.Errorf("totals = %+v", first.Totals)
	}
	if len(first.MonthlyTrend) != 6 {
		t.Errorf("trend has %d buckets", len(first.MonthlyTrend))
	}
	if f.feed.upcomingLimit != 5 {
		t.Errorf("upcoming limit = %d, want 5", f.feed.upcomingLimit)
	}

	calls := f.contacts.calls
	second, err := f.svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if f.contacts.calls != calls {
		t.Error("second overview should be served from cache")
	}
	if second.Contacts != first.Contacts {
		t.Errorf("cached totals = %+v", second.Totals)
	}
}

func TestTrendBoundsWonDealsToWindow(t *testing.T) {
	tests := []struct {
		mode  string
		from  time.Time
		to    time.Time
		field string
	}{
		{BucketingRolling, trendNow.AddDate(0, 0, -180), trendNow, "created_at"},
		{BucketingCalendar, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), ""},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			f := newFixture()
			if _, err := f.svc.Trend(context.Background(), tt.mode); err != nil {
				t.Fatalf("Trend() error = %v", err)
			}
			if len(f.deals.filters) != 1 {
				t.Fatalf("deal queries = %v", f.deals.filters)
			}
			got := f.deals.filters[0]
			if got["stage"] != deal.StageClosedWon {
				t.Errorf("stage filter = %v", got["stage"])
			}
			window := bson.M{"$gte": tt.from, "$lt": tt.to}
			if tt.field != "" {
				if !reflect.DeepEqual(got[tt.field], window) {
					t.Errorf("%s = %v, want %v", tt.field, got[tt.field], window)
				}
				return
			}
			want := bson.A{
				bson.M{"actual_close_date": window},
				bson.M{"actual_close_date": nil, "created_at": window},
			}
			if !reflect.DeepEqual(got["$or"], want) {
				t.Errorf("$or = %v, want %v", got["$or"], want)
			}
		})
	}
}

func TestTrendRejectsUnknownBucketing(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Trend(context.Background(), "weekly"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("Trend() error = %v, want validation", err)
	}
}

func TestCreateWidgetValidation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name   string
		typ    string
		config map[string]interface{}
		field  string
	}{
		{"bad type", "gauge", nil, "widget_type"},
		{"chart source", WidgetChart, map[string]interface{}{"source": "weather"}, "config.source"},
		{"table source", WidgetTable, map[string]interface{}{"source": "pipeline"}, "config.source"},
		{"metric missing", WidgetMetric, map[string]interface{}{}, "config"},
		{"metric unknown", WidgetMetric, map[string]interface{}{"metric": "total_tickets"}, "config.metric"},
		{"script syntax", WidgetMetric, map[string]interface{}{"script": "value := ("}, "config.script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New()
			w.Name = "tile"
			w.WidgetType = tt.typ
			w.Config = tt.config
			_, err := f.svc.CreateWidget(context.Background(), w)

			var ae *apperr.Error
			if !errors.As(err, &ae) {
				t.Fatalf("CreateWidget() error = %v", err)
			}
			if _, ok := ae.Fields[tt.field]; !ok {
				t.Errorf("missing error for %s in %v", tt.field, ae.Fields)
			}
		})
	}
}

func TestWidgetDataMetric(t *testing.T) {
	f := newFixture()

	named := f.widget(t, WidgetMetric, map[string]interface{}{"metric": "total_deals"})
	data, err := f.svc.WidgetData(context.Background(), named.ID)
	if err != nil {
		t.Fatalf("WidgetData() error = %v", err)
	}
	if got := data.Data.(map[string]interface{})["value"]; got != int64(12) {
		t.Errorf("metric value = %v", got)
	}

	scripted := f.widget(t, WidgetMetric, map[string]interface{}{"script": "value := total_deals / total_contacts"})
	data, err = f.svc.WidgetData(context.Background(), scripted.ID)
	if err != nil {
		t.Fatalf("WidgetData() error = %v", err)
	}
	if got := data.Data.(map[string]interface{})["value"]; got != int64(3) {
		t.Errorf("script value = %v", got)
	}
}

func TestWidgetDataChartAndTable(t *testing.T) {
	f := newFixture()
	f.contacts.status = []query.Bucket{{Key: "lead", Count: 3}}

	status := f.widget(t, WidgetChart, map[string]interface{}{"source": SourceContactStatus})
	data, err := f.svc.WidgetData(context.Background(), status.ID)
	if err != nil {
		t.Fatalf("WidgetData() error = %v", err)
	}
	rows := data.Data.([]map[string]interface{})
	if len(rows) != 1 || rows[0]["status"] != "lead" {
		t.Errorf("contact status rows = %v", rows)
	}

	trend := f.widget(t, WidgetChart, map[string]interface{}{"source": SourceTrend, "bucketing": "rolling"})
	data, err = f.svc.WidgetData(context.Background(), trend.ID)
	if err != nil {
		t.Fatalf("WidgetData() error = %v", err)
	}
	if buckets := data.Data.([]TrendBucket); len(buckets) != 6 {
		t.Errorf("trend buckets = %d", len(buckets))
	}

	upcoming := f.widget(t, WidgetList, map[string]interface{}{"source": SourceUpcomingActivities, "limit": float64(3)})
	if _, err := f.svc.WidgetData(context.Background(), upcoming.ID); err != nil {
		t.Fatalf("WidgetData() error = %v", err)
	}
	if f.feed.upcomingLimit != 3 {
		t.Errorf("limit = %d, want 3", f.feed.upcomingLimit)
	}
}
