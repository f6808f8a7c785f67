package goal

import (
	"time"

	common_models "salescrm/internal/common/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	GoalRevenue    = "revenue"
	GoalDeals      = "deals"
	GoalContacts   = "contacts"
	GoalActivities = "activities"
)

var (
	GoalTypes   = []string{GoalRevenue, GoalDeals, GoalContacts, GoalActivities}
	PeriodTypes = []string{"daily", "weekly", "monthly", "quarterly", "yearly"}
)

// SalesGoal is a target for one metric over a date range. An empty OwnerID
// makes it a team goal.
type SalesGoal struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	GoalType    string             `json:"goal_type" bson:"goal_type"`
	PeriodType  string             `json:"period_type" bson:"period_type"`
	TargetValue decimal.Decimal    `json:"target_value" bson:"target_value"`
	Currency    string             `json:"currency" bson:"currency"`
	StartDate   common_models.Date `json:"start_date" bson:"start_date"`
	EndDate     common_models.Date `json:"end_date" bson:"end_date"`
	OwnerID     string             `json:"owner_id" bson:"owner_id"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func New() *SalesGoal {
	return &SalesGoal{Currency: "USD", IsActive: true}
}

type Progress struct {
	GoalID    primitive.ObjectID `json:"goal_id"`
	GoalType  string             `json:"goal_type"`
	Value     decimal.Decimal    `json:"value"`
	Target    decimal.Decimal    `json:"target"`
	Percent   decimal.Decimal    `json:"percent"`
	StartDate common_models.Date `json:"start_date"`
	EndDate   common_models.Date `json:"end_date"`
}

var hundred = decimal.NewFromInt(100)

// Percent is value/target as a percentage rounded to 2 places. It is not
// capped at 100 and is zero for a zero target.
func Percent(value, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return value.Mul(hundred).DivRound(target, 2)
}
