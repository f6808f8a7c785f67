package dashboard

import (
	"context"
	"strings"
	"time"

	"salescrm/internal/cache"
	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/config"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/audit"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"
	"salescrm/internal/realtime"
	"salescrm/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	overviewKey      = "dashboard:overview"
	recentActivities = 10
	upcomingLimit    = 5
	recentDeals      = 5
	maxTableRows     = 50
)

type DashboardService interface {
	Overview(ctx context.Context) (*Overview, error)
	Trend(ctx context.Context, bucketing string) ([]TrendBucket, error)
	CreateWidget(ctx context.Context, widget *Widget) (*Widget, error)
	GetWidget(ctx context.Context, id primitive.ObjectID) (*Widget, error)
	UpdateWidget(ctx context.Context, id primitive.ObjectID, apply func(*Widget) error) (*Widget, error)
	DeleteWidget(ctx context.Context, id primitive.ObjectID) error
	ListWidgets(ctx context.Context, params query.ListParams) (*query.Page[Widget], error)
	WidgetData(ctx context.Context, id primitive.ObjectID) (*WidgetData, error)
}

type counter interface {
	Count(ctx context.Context, filter bson.M) (int64, error)
}

type contactSource interface {
	counter
	CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error)
	CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

type dealSource interface {
	counter
	Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]deal.Deal, error)
	StageTotals(ctx context.Context) ([]deal.StageTotal, error)
	CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

type pipelineSource interface {
	Pipeline(ctx context.Context, pipelineID *primitive.ObjectID) (*deal.PipelineSummary, error)
}

type activityFeed interface {
	Upcoming(ctx context.Context, limit int64) ([]activity.Activity, error)
	Recent(ctx context.Context, limit int64) ([]activity.Activity, error)
}

type DashboardServiceImpl struct {
	Widgets    WidgetRepository
	Contacts   contactSource
	Companies  counter
	Deals      dealSource
	Pipelines  pipelineSource
	Activities counter
	Feed       activityFeed
	Cache      cache.Cache
	CacheTTL   time.Duration
	Audit      audit.AuditService
	Publisher  common_models.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewDashboardService(
	widgets WidgetRepository,
	contacts contact.ContactRepository,
	companies company.CompanyRepository,
	deals deal.DealRepository,
	dealService deal.DealService,
	activities activity.ActivityRepository,
	activityService activity.ActivityService,
	c cache.Cache,
	cfg *config.Config,
	auditService audit.AuditService,
	publisher common_models.Publisher,
	logger *zap.Logger,
) DashboardService {
	return &DashboardServiceImpl{
		Widgets:    widgets,
		Contacts:   contacts,
		Companies:  companies,
		Deals:      deals,
		Pipelines:  dealService,
		Activities: activities,
		Feed:       activityService,
		Cache:      c,
		CacheTTL:   cfg.DashboardCacheTTL,
		Audit:      auditService,
		Publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Overview assembles the dashboard landing payload, serving it from the
// cache while fresh.
func (s *DashboardServiceImpl) Overview(ctx context.Context) (*Overview, error) {
	var cached Overview
	if err := s.Cache.GetJSON(ctx, overviewKey, &cached); err == nil {
		return &cached, nil
	}

	totals, err := s.totals(ctx)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.Pipelines.Pipeline(ctx, nil)
	if err != nil {
		return nil, err
	}
	recent, err := s.Feed.Recent(ctx, recentActivities)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.Feed.Upcoming(ctx, upcomingLimit)
	if err != nil {
		return nil, err
	}
	deals, err := s.Deals.Find(ctx, bson.M{"is_active": true}, bson.D{{Key: "created_at", Value: -1}}, recentDeals)
	if err != nil {
		return nil, err
	}
	trend, err := s.Trend(ctx, BucketingCalendar)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		Totals:             *totals,
		Pipeline:           pipeline,
		RecentActivities:   recent,
		UpcomingActivities: upcoming,
		RecentDeals:        deals,
		MonthlyTrend:       trend,
		GeneratedAt:        s.now().UTC(),
	}
	if s.CacheTTL > 0 {
		if err := s.Cache.SetJSON(ctx, overviewKey, overview, s.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache dashboard overview", zap.Error(err))
		}
	}
	return overview, nil
}

// Trend returns six monthly buckets of new contacts, new deals and won
// revenue. An unknown bucketing mode is rejected.
func (s *DashboardServiceImpl) Trend(ctx context.Context, bucketing string) ([]TrendBucket, error) {
	bucketing = strings.ToLower(strings.TrimSpace(bucketing))
	if bucketing == "" {
		bucketing = BucketingCalendar
	}
	if !utils.OneOf(bucketing, BucketingCalendar, BucketingRolling) {
		return nil, apperr.Invalid("bucketing", "must be calendar or rolling")
	}

	buckets := TrendWindows(s.now(), bucketing)
	from, to := buckets[0].Start, buckets[len(buckets)-1].End

	contactTimes, err := s.Contacts.CreatedTimes(ctx, from, to)
	if err != nil {
		return nil, err
	}
	dealTimes, err := s.Deals.CreatedTimes(ctx, from, to)
	if err != nil {
		return nil, err
	}
	won, err := s.Deals.Find(ctx, WonFilter(bucketing, from, to), nil, 0)
	if err != nil {
		return nil, err
	}
	return Tally(buckets, bucketing, contactTimes, dealTimes, won), nil
}

func (s *DashboardServiceImpl) totals(ctx context.Context) (*Totals, error) {
	var t Totals
	var err error
	if t.Contacts, err = s.Contacts.Count(ctx, bson.M{"is_active": true}); err != nil {
		return nil, err
	}
	if t.Companies, err = s.Companies.Count(ctx, bson.M{"is_active": true}); err != nil {
		return nil, err
	}
	if t.Deals, err = s.Deals.Count(ctx, bson.M{"is_active": true}); err != nil {
		return nil, err
	}
	if t.Activities, err = s.Activities.Count(ctx, bson.M{}); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DashboardServiceImpl) CreateWidget(ctx context.Context, widget *Widget) (*Widget, error) {
	widget.Name = strings.TrimSpace(widget.Name)
	if widget.Config == nil {
		widget.Config = map[string]interface{}{}
	}
	if widget.UserID == "" {
		if claims, ok := utils.ClaimsFromContext(ctx); ok {
			widget.UserID = claims.UserID
		}
	}
	if err := validateWidget(widget); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	widget.ID = primitive.NilObjectID
	widget.CreatedAt = now
	widget.UpdatedAt = now
	if err := s.Widgets.Create(ctx, widget); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "dashboard_widgets", widget.ID.Hex(), audit.Snapshot(widget, true))
	realtime.Notify(s.Publisher, "created", "dashboard_widget", widget.ID.Hex())
	return widget, nil
}

func (s *DashboardServiceImpl) GetWidget(ctx context.Context, id primitive.ObjectID) (*Widget, error) {
	return s.Widgets.Get(ctx, id)
}

func (s *DashboardServiceImpl) UpdateWidget(ctx context.Context, id primitive.ObjectID, apply func(*Widget) error) (*Widget, error) {
	widget, err := s.Widgets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *widget

	if err := apply(widget); err != nil {
		return nil, err
	}
	widget.ID = before.ID
	widget.CreatedAt = before.CreatedAt
	widget.Name = strings.TrimSpace(widget.Name)
	if widget.Config == nil {
		widget.Config = map[string]interface{}{}
	}
	if err := validateWidget(widget); err != nil {
		return nil, err
	}
	widget.UpdatedAt = s.now().UTC()
	if err := s.Widgets.Update(ctx, widget); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "dashboard_widgets", id.Hex(), audit.Diff(before, widget))
	realtime.Notify(s.Publisher, "updated", "dashboard_widget", id.Hex())
	return widget, nil
}

func (s *DashboardServiceImpl) DeleteWidget(ctx context.Context, id primitive.ObjectID) error {
	widget, err := s.Widgets.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Widgets.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "dashboard_widgets", id.Hex(), audit.Snapshot(widget, false))
	realtime.Notify(s.Publisher, "deleted", "dashboard_widget", id.Hex())
	return nil
}

func (s *DashboardServiceImpl) ListWidgets(ctx context.Context, params query.ListParams) (*query.Page[Widget], error) {
	return s.Widgets.List(ctx, params)
}

// WidgetData renders a widget from live data
func (s *DashboardServiceImpl) WidgetData(ctx context.Context, id primitive.ObjectID) (*WidgetData, error) {
	widget, err := s.Widgets.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &WidgetData{WidgetID: widget.ID, WidgetType: widget.WidgetType, Source: widget.source()}
	switch widget.WidgetType {
	case WidgetMetric:
		out.Data, err = s.metric(ctx, widget)
	case WidgetChart:
		out.Data, err = s.chart(ctx, widget)
	case WidgetTable, WidgetList:
		out.Data, err = s.table(ctx, widget)
	default:
		err = apperr.Invalid("widget_type", "\""+widget.WidgetType+"\" is not a valid choice")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardServiceImpl) metric(ctx context.Context, w *Widget) (interface{}, error) {
	totals, err := s.totals(ctx)
	if err != nil {
		return nil, err
	}
	values := totals.Map()

	if script, _ := w.Config["script"].(string); script != "" {
		value, err := RunMetricScript(ctx, script, values)
		if err != nil {
			return nil, apperr.Invalid("config.script", err.Error())
		}
		return map[string]interface{}{"value": value}, nil
	}

	name, _ := w.Config["metric"].(string)
	value, ok := values[name]
	if !ok {
		return nil, apperr.Invalid("config.metric", "unknown metric \""+name+"\"")
	}
	return map[string]interface{}{"metric": name, "value": value}, nil
}

func (s *DashboardServiceImpl) chart(ctx context.Context, w *Widget) (interface{}, error) {
	switch w.source() {
	case SourcePipeline:
		var pipelineID *primitive.ObjectID
		if raw, _ := w.Config["pipeline_id"].(string); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				return nil, apperr.Invalid("config.pipeline_id", "must be a valid id")
			}
			pipelineID = &id
		}
		return s.Pipelines.Pipeline(ctx, pipelineID)
	case SourceTrend:
		bucketing, _ := w.Config["bucketing"].(string)
		return s.Trend(ctx, bucketing)
	case SourceContactStatus:
		buckets, err := s.Contacts.CountBy(ctx, "status", bson.M{"is_active": true})
		if err != nil {
			return nil, err
		}
		return query.Buckets(buckets, "status"), nil
	case SourceDealStage:
		return s.Deals.StageTotals(ctx)
	}
	return nil, apperr.Invalid("config.source", "unknown chart source \""+w.source()+"\"")
}

func (s *DashboardServiceImpl) table(ctx context.Context, w *Widget) (interface{}, error) {
	limit := int64(10)
	if raw, ok := w.Config["limit"]; ok {
		limit = utils.ParseInt64(raw, limit)
	}
	if limit < 1 || limit > maxTableRows {
		limit = maxTableRows
	}

	switch w.source() {
	case SourceRecentDeals:
		return s.Deals.Find(ctx, bson.M{"is_active": true}, bson.D{{Key: "created_at", Value: -1}}, limit)
	case SourceUpcomingActivities:
		return s.Feed.Upcoming(ctx, limit)
	case SourceRecentActivities:
		return s.Feed.Recent(ctx, limit)
	}
	return nil, apperr.Invalid("config.source", "unknown table source \""+w.source()+"\"")
}

func validateWidget(w *Widget) error {
	fe := apperr.FieldErrors{}
	switch {
	case w.Name == "":
		fe.Add("name", "This field may not be blank.")
	case len(w.Name) > 200:
		fe.Add("name", "Ensure this field has no more than 200 characters.")
	}
	if w.Order < 0 {
		fe.Add("order", "Ensure this value is greater than or equal to 0.")
	}

	switch w.WidgetType {
	case WidgetMetric:
		script, _ := w.Config["script"].(string)
		metric, _ := w.Config["metric"].(string)
		switch {
		case script != "":
			if err := CompileMetricScript(script); err != nil {
				fe.Add("config.script", err.Error())
			}
		case metric == "":
			fe.Add("config", "metric widgets need a metric or a script.")
		default:
			if _, ok := (Totals{}).Map()[metric]; !ok {
				fe.Add("config.metric", "\""+metric+"\" is not a valid choice.")
			}
		}
	case WidgetChart:
		if !utils.OneOf(w.source(), ChartSources...) {
			fe.Add("config.source", "\""+w.source()+"\" is not a valid choice.")
		}
	case WidgetTable, WidgetList:
		if !utils.OneOf(w.source(), TableSources...) {
			fe.Add("config.source", "\""+w.source()+"\" is not a valid choice.")
		}
	default:
		fe.Add("widget_type", "\""+w.WidgetType+"\" is not a valid choice.")
	}
	return fe.Err()
}
