package rollup

import (
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

var ConfidenceLevels = []string{ConfidenceLow, ConfidenceMedium, ConfidenceHigh}

// ConfidenceFor maps a win probability to a forecast confidence level
func ConfidenceFor(probability int) string {
	switch {
	case probability < 30:
		return ConfidenceLow
	case probability < 70:
		return ConfidenceMedium
	}
	return ConfidenceHigh
}

// ActivitySummary is one owner's activity and sales counters for one day
type ActivitySummary struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Date             common_models.Date `json:"date" bson:"date"`
	OwnerID          string             `json:"owner_id" bson:"owner_id"`
	CallsMade        int                `json:"calls_made" bson:"calls_made"`
	EmailsSent       int                `json:"emails_sent" bson:"emails_sent"`
	MeetingsHeld     int                `json:"meetings_held" bson:"meetings_held"`
	TasksCompleted   int                `json:"tasks_completed" bson:"tasks_completed"`
	NotesAdded       int                `json:"notes_added" bson:"notes_added"`
	DealsCreated     int                `json:"deals_created" bson:"deals_created"`
	DealsClosedWon   int                `json:"deals_closed_won" bson:"deals_closed_won"`
	DealsClosedLost  int                `json:"deals_closed_lost" bson:"deals_closed_lost"`
	RevenueClosed    decimal.Decimal    `json:"revenue_closed" bson:"revenue_closed"`
	ContactsCreated  int                `json:"contacts_created" bson:"contacts_created"`
	CompaniesCreated int                `json:"companies_created" bson:"companies_created"`
}

// PipelineSnapshot freezes one stage of the pipeline aggregation for a day
type PipelineSnapshot struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Date          common_models.Date `json:"date" bson:"date"`
	Stage         string             `json:"stage" bson:"stage"`
	Count         int64              `json:"count" bson:"count"`
	TotalValue    decimal.Decimal    `json:"total_value" bson:"total_value"`
	WeightedValue decimal.Decimal    `json:"weighted_value" bson:"weighted_value"`
}

// ContactEngagement holds per-day engagement counters of a contact. The
// email and web counters are fed from outside; capture only touches the
// activity counters.
type ContactEngagement struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ContactID          primitive.ObjectID `json:"contact_id" bson:"contact_id"`
	Date               common_models.Date `json:"date" bson:"date"`
	EmailOpens         int                `json:"email_opens" bson:"email_opens"`
	EmailClicks        int                `json:"email_clicks" bson:"email_clicks"`
	WebsiteVisits      int                `json:"website_visits" bson:"website_visits"`
	SocialInteractions int                `json:"social_interactions" bson:"social_interactions"`
	ActivitiesCount    int                `json:"activities_count" bson:"activities_count"`
	LastActivityDate   *time.Time         `json:"last_activity_date" bson:"last_activity_date"`
}

type DealForecast struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DealID           primitive.ObjectID `json:"deal_id" bson:"deal_id"`
	ForecastDate     common_models.Date `json:"forecast_date" bson:"forecast_date"`
	ForecastedAmount decimal.Decimal    `json:"forecasted_amount" bson:"forecasted_amount"`
	Probability      int                `json:"probability" bson:"probability"`
	ConfidenceLevel  string             `json:"confidence_level" bson:"confidence_level"`
	Notes            string             `json:"notes" bson:"notes"`
}

// CaptureResult is everything computed for one day
type CaptureResult struct {
	Date       common_models.Date  `json:"date"`
	Snapshots  []PipelineSnapshot  `json:"pipeline_snapshots"`
	Summaries  []ActivitySummary   `json:"activity_summaries"`
	Engagement []ContactEngagement `json:"contact_engagement"`
	Forecasts  []DealForecast      `json:"deal_forecasts"`
}

func (r *ActivitySummary) setID(id primitive.ObjectID) { r.ID = id }
func (r *ActivitySummary) getID() primitive.ObjectID { return r.ID }
func (r *ActivitySummary) target() *common_models.EntityRef { return nil }

func (r *ActivitySummary) check(fe apperr.FieldErrors) {
	if r.Date.IsZero() {
		fe.Add("date", "this field is required")
	}
	if r.OwnerID == "" {
		fe.Add("owner_id", "this field is required")
	}
	counters := map[string]int{
		"calls_made":        r.CallsMade,
		"emails_sent":       r.EmailsSent,
		"meetings_held":     r.MeetingsHeld,
		"tasks_completed":   r.TasksCompleted,
		"notes_added":       r.NotesAdded,
		"deals_created":     r.DealsCreated,
		"deals_closed_won":  r.DealsClosedWon,
		"deals_closed_lost": r.DealsClosedLost,
		"contacts_created":  r.ContactsCreated,
		"companies_created": r.CompaniesCreated,
	}
	nonNegative(fe, counters)
	if r.RevenueClosed.IsNegative() {
		fe.Add("revenue_closed", "must not be negative")
	}
}

func (r *PipelineSnapshot) setID(id primitive.ObjectID) { r.ID = id }
func (r *PipelineSnapshot) getID() primitive.ObjectID { return r.ID }
func (r *PipelineSnapshot) target() *common_models.EntityRef { return nil }

func (r *PipelineSnapshot) check(fe apperr.FieldErrors) {
	if r.Date.IsZero() {
		fe.Add("date", "this field is required")
	}
	if r.Stage == "" {
		fe.Add("stage", "this field is required")
	} else if len(r.Stage) > 50 {
		fe.Add("stage", "ensure this field has no more than 50 characters")
	}
	if r.Count < 0 {
		fe.Add("count", "must not be negative")
	}
	if r.TotalValue.IsNegative() {
		fe.Add("total_value", "must not be negative")
	}
	if r.WeightedValue.IsNegative() {
		fe.Add("weighted_value", "must not be negative")
	}
}

func (r *ContactEngagement) setID(id primitive.ObjectID) { r.ID = id }
func (r *ContactEngagement) getID() primitive.ObjectID { return r.ID }

func (r *ContactEngagement) target() *common_models.EntityRef {
	return &common_models.EntityRef{Kind: common_models.EntityContact, ID: r.ContactID}
}

func (r *ContactEngagement) check(fe apperr.FieldErrors) {
	if r.ContactID.IsZero() {
		fe.Add("contact_id", "this field is required")
	}
	if r.Date.IsZero() {
		fe.Add("date", "this field is required")
	}
	nonNegative(fe, map[string]int{
		"email_opens":         r.EmailOpens,
		"email_clicks":        r.EmailClicks,
		"website_visits":      r.WebsiteVisits,
		"social_interactions": r.SocialInteractions,
		"activities_count":    r.ActivitiesCount,
	})
}

func (r *DealForecast) setID(id primitive.ObjectID) { r.ID = id }
func (r *DealForecast) getID() primitive.ObjectID { return r.ID }

func (r *DealForecast) target() *common_models.EntityRef {
	return &common_models.EntityRef{Kind: common_models.EntityDeal, ID: r.DealID}
}

// check also fills an empty confidence level from the probability
func (r *DealForecast) check(fe apperr.FieldErrors) {
	if r.DealID.IsZero() {
		fe.Add("deal_id", "this field is required")
	}
	if r.ForecastDate.IsZero() {
		fe.Add("forecast_date", "this field is required")
	}
	if r.ForecastedAmount.IsNegative() {
		fe.Add("forecasted_amount", "must not be negative")
	}
	if r.Probability < 0 || r.Probability > 100 {
		fe.Add("probability", "must be between 0 and 100")
	}
	if r.ConfidenceLevel == "" {
		r.ConfidenceLevel = ConfidenceFor(r.Probability)
	}
	valid := false
	for _, c := range ConfidenceLevels {
		if r.ConfidenceLevel == c {
			valid = true
		}
	}
	if !valid {
		fe.Add("confidence_level", "\""+r.ConfidenceLevel+"\" is not a valid choice")
	}
}

func nonNegative(fe apperr.FieldErrors, counters map[string]int) {
	for name, n := range counters {
		if n < 0 {
			fe.Add(name, "must not be negative")
		}
	}
}
