package activity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	TypeCall     = "call"
	TypeEmail    = "email"
	TypeMeeting  = "meeting"
	TypeTask     = "task"
	TypeNote     = "note"
	TypeDemo     = "demo"
	TypeProposal = "proposal"
)

var (
	Types    = []string{TypeCall, TypeEmail, TypeMeeting, TypeTask, TypeNote, TypeDemo, TypeProposal}
	Statuses = []string{StatusPending, StatusCompleted, StatusCancelled}
)

type Activity struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ActivityType    string              `json:"activity_type" bson:"activity_type"`
	Subject         string              `json:"subject" bson:"subject"`
	Description     string              `json:"description" bson:"description"`
	Status          string              `json:"status" bson:"status"`
	ContactID       *primitive.ObjectID `json:"contact_id" bson:"contact_id"`
	CompanyID       *primitive.ObjectID `json:"company_id" bson:"company_id"`
	DealID          *primitive.ObjectID `json:"deal_id" bson:"deal_id"`
	OwnerID         string              `json:"owner_id" bson:"owner_id"`
	DueDate         *time.Time          `json:"due_date" bson:"due_date"`
	CompletedDate   *time.Time          `json:"completed_date" bson:"completed_date"`
	DurationMinutes *int                `json:"duration_minutes" bson:"duration_minutes"`
	Outcome         string              `json:"outcome" bson:"outcome"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}

func New() *Activity {
	return &Activity{Status: StatusPending}
}

// markCompleted stamps completed_date the first time the activity is seen in
// the completed state.
func (a *Activity) markCompleted(now time.Time) {
	if a.Status == StatusCompleted && a.CompletedDate == nil {
		t := now.UTC()
		a.CompletedDate = &t
	}
}

type Stats struct {
	TotalActivities     int64                    `json:"total_activities"`
	CompletedActivities int64                    `json:"completed_activities"`
	PendingActivities   int64                    `json:"pending_activities"`
	RecentActivities    int64                    `json:"recent_activities"`
	TypeBreakdown       []map[string]interface{} `json:"type_breakdown"`
}
