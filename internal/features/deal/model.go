package deal

import (
	"encoding/json"
	"time"

	common_models "salescrm/internal/common/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StageProspecting   = "prospecting"
	StageQualification = "qualification"
	StageProposal      = "proposal"
	StageNegotiation   = "negotiation"
	StageClosedWon     = "closed_won"
	StageClosedLost    = "closed_lost"
)

var (
	Stages     = []string{StageProspecting, StageQualification, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}
	Priorities = []string{"low", "medium", "high"}
)

var hundred = decimal.NewFromInt(100)

type Deal struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name              string              `json:"name" bson:"name"`
	Description       string              `json:"description" bson:"description"`
	Amount            decimal.Decimal     `json:"amount" bson:"amount"`
	Currency          string              `json:"currency" bson:"currency"`
	Stage             string              `json:"stage" bson:"stage"`
	Probability       int                 `json:"probability" bson:"probability"`
	Priority          string              `json:"priority" bson:"priority"`
	ContactID         primitive.ObjectID  `json:"contact_id" bson:"contact_id"`
	CompanyID         *primitive.ObjectID `json:"company_id" bson:"company_id"`
	OwnerID           string              `json:"owner_id" bson:"owner_id"`
	ExpectedCloseDate common_models.Date  `json:"expected_close_date" bson:"expected_close_date"`
	ActualCloseDate   *common_models.Date `json:"actual_close_date" bson:"actual_close_date,omitempty"`
	Notes             string              `json:"notes" bson:"notes"`
	IsActive          bool                `json:"is_active" bson:"is_active"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" bson:"updated_at"`
}

func New() *Deal {
	return &Deal{
		Currency: "USD",
		Stage:    StageProspecting,
		Priority: "medium",
		IsActive: true,
	}
}

// WeightedAmount is amount × probability / 100, computed exactly
func (d Deal) WeightedAmount() decimal.Decimal {
	return d.Amount.Mul(decimal.NewFromInt(int64(d.Probability))).Div(hundred)
}

// DaysToClose counts days from now until the expected close date; nil when
// no date is set.
func (d Deal) DaysToClose(now time.Time) *int {
	if d.ExpectedCloseDate.IsZero() {
		return nil
	}
	days := d.ExpectedCloseDate.DaysUntil(now)
	return &days
}

// ClosedOn is the day revenue is recognised: the actual close date, or the
// creation day when it was never recorded.
func (d Deal) ClosedOn() time.Time {
	if d.ActualCloseDate != nil && !d.ActualCloseDate.IsZero() {
		return d.ActualCloseDate.Time
	}
	return d.CreatedAt
}

func (d Deal) MarshalJSON() ([]byte, error) {
	type alias Deal
	return json.Marshal(struct {
		alias
		WeightedAmount decimal.Decimal `json:"weighted_amount"`
		DaysToClose    *int            `json:"days_to_close"`
	}{alias(d), d.WeightedAmount(), d.DaysToClose(time.Now())})
}

type Stats struct {
	TotalDeals          int64           `json:"total_deals"`
	ActiveDeals         int64           `json:"active_deals"`
	RecentDeals         int64           `json:"recent_deals"`
	TotalPipeline       decimal.Decimal `json:"total_pipeline"`
	WeightedPipeline    decimal.Decimal `json:"weighted_pipeline"`
	AvgWeightedPipeline decimal.Decimal `json:"avg_weighted_pipeline"`
	StageBreakdown      []StageTotal    `json:"stage_breakdown"`
}

type StageTotal struct {
	Stage       string          `json:"stage" bson:"_id"`
	Count       int64           `json:"count" bson:"count"`
	TotalAmount decimal.Decimal `json:"total_amount" bson:"total_amount"`
}
