package report

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TypeContacts   = "contacts"
	TypeCompanies  = "companies"
	TypeDeals      = "deals"
	TypeActivities = "activities"
	TypeSales      = "sales"
	TypePipeline   = "pipeline"
)

var ReportTypes = []string{TypeContacts, TypeCompanies, TypeDeals, TypeActivities, TypeSales, TypePipeline}

// DefaultColumns are used when a report does not list its own
var DefaultColumns = map[string][]string{
	TypeContacts:   {"id", "full_name", "email", "phone", "status", "company_id", "owner_id", "created_at"},
	TypeCompanies:  {"id", "name", "industry", "city", "country", "annual_revenue", "is_active"},
	TypeDeals:      {"id", "name", "stage", "amount", "currency", "probability", "weighted_amount", "expected_close_date", "owner_id"},
	TypeActivities: {"id", "activity_type", "subject", "status", "due_date", "owner_id"},
	TypeSales:      {"owner_id", "deals", "revenue"},
	TypePipeline:   {"stage", "count", "total_amount", "weighted_amount", "avg_probability", "avg_weighted_amount"},
}

// Report is a saved report configuration. Filters use the same parameter
// names as the list endpoint of the report's entity.
type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	ReportType  string             `json:"report_type" bson:"report_type"`
	Filters     map[string]string  `json:"filters" bson:"filters"`
	Columns     []string           `json:"columns" bson:"columns"`
	CreatedBy   string             `json:"created_by" bson:"created_by"`
	IsPublic    bool               `json:"is_public" bson:"is_public"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func New() *Report {
	return &Report{IsActive: true, Filters: map[string]string{}, Columns: []string{}}
}

// Result is one execution of a report
type Result struct {
	ReportID    primitive.ObjectID       `json:"report_id"`
	Name        string                   `json:"name"`
	ReportType  string                   `json:"report_type"`
	Columns     []string                 `json:"columns"`
	Rows        []map[string]interface{} `json:"rows"`
	Total       int                      `json:"total"`
	Truncated   bool                     `json:"truncated"`
	GeneratedAt time.Time                `json:"generated_at"`
}
