package dashboard

import (
	"time"

	"salescrm/internal/features/activity"
	"salescrm/internal/features/deal"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	WidgetChart  = "chart"
	WidgetMetric = "metric"
	WidgetTable  = "table"
	WidgetList   = "list"
)

var WidgetTypes = []string{WidgetChart, WidgetMetric, WidgetTable, WidgetList}

// Chart sources
const (
	SourcePipeline      = "pipeline"
	SourceTrend         = "trend"
	SourceContactStatus = "contact_status"
	SourceDealStage     = "deal_stage"
)

// Table and list sources
const (
	SourceRecentDeals        = "recent_deals"
	SourceUpcomingActivities = "upcoming_activities"
	SourceRecentActivities   = "recent_activities"
)

var (
	ChartSources = []string{SourcePipeline, SourceTrend, SourceContactStatus, SourceDealStage}
	TableSources = []string{SourceRecentDeals, SourceUpcomingActivities, SourceRecentActivities}
)

// Widget is a user-configured dashboard tile. Config carries "source" for
// chart, table and list widgets, and "metric" or "script" for metrics.
type Widget struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Name        string                 `json:"name" bson:"name"`
	WidgetType  string                 `json:"widget_type" bson:"widget_type"`
	Description string                 `json:"description" bson:"description"`
	Config      map[string]interface{} `json:"config" bson:"config"`
	Order       int                    `json:"order" bson:"order"`
	IsActive    bool                   `json:"is_active" bson:"is_active"`
	UserID      string                 `json:"user_id" bson:"user_id"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" bson:"updated_at"`
}

func New() *Widget {
	return &Widget{IsActive: true, Config: map[string]interface{}{}}
}

func (w *Widget) source() string {
	s, _ := w.Config["source"].(string)
	return s
}

type Totals struct {
	Contacts   int64 `json:"total_contacts"`
	Companies  int64 `json:"total_companies"`
	Deals      int64 `json:"total_deals"`
	Activities int64 `json:"total_activities"`
}

// Map exposes the totals by name for metric widgets and scripts
func (t Totals) Map() map[string]int64 {
	return map[string]int64{
		"total_contacts":   t.Contacts,
		"total_companies":  t.Companies,
		"total_deals":      t.Deals,
		"total_activities": t.Activities,
	}
}

type Overview struct {
	Totals
	Pipeline           *deal.PipelineSummary `json:"pipeline"`
	RecentActivities   []activity.Activity   `json:"recent_activities"`
	UpcomingActivities []activity.Activity   `json:"upcoming_activities"`
	RecentDeals        []deal.Deal           `json:"recent_deals"`
	MonthlyTrend       []TrendBucket         `json:"monthly_trend"`
	GeneratedAt        time.Time             `json:"generated_at"`
}

type TrendBucket struct {
	Month    string          `json:"month"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Contacts int64           `json:"contacts"`
	Deals    int64           `json:"deals"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// WidgetData is the rendered payload of one widget
type WidgetData struct {
	WidgetID   primitive.ObjectID `json:"widget_id"`
	WidgetType string             `json:"widget_type"`
	Source     string             `json:"source,omitempty"`
	Data       interface{}        `json:"data"`
}
