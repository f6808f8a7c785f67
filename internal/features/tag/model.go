package tag

import (
	"encoding/json"
	"time"

	common_models "salescrm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultColor = "#007bff"

type Tag struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Color       string             `json:"color" bson:"color"`
	Description string             `json:"description" bson:"description"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func New() *Tag {
	return &Tag{Color: DefaultColor}
}

// Assignment attaches a tag to one contact, company or deal
type Assignment struct {
	ID        primitive.ObjectID      `bson:"_id,omitempty"`
	TagID     primitive.ObjectID      `bson:"tag_id"`
	Target    common_models.EntityRef `bson:"target"`
	CreatedAt time.Time               `bson:"created_at"`

	Tag *Tag `bson:"-"`
}

// MarshalJSON names the target id after its kind ("contact_id")
func (a Assignment) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"id":                          a.ID,
		"tag_id":                      a.TagID,
		string(a.Target.Kind) + "_id": a.Target.ID,
		"created_at":                  a.CreatedAt,
	}
	if a.Tag != nil {
		out["tag"] = a.Tag
	}
	return json.Marshal(out)
}

// AssignmentInput is the create body for every assignment route; only the
// id matching the route's kind is read.
type AssignmentInput struct {
	TagID     string `json:"tag_id"`
	ContactID string `json:"contact_id"`
	CompanyID string `json:"company_id"`
	DealID    string `json:"deal_id"`
}

func (in AssignmentInput) TargetHex(kind common_models.EntityKind) string {
	switch kind {
	case common_models.EntityContact:
		return in.ContactID
	case common_models.EntityCompany:
		return in.CompanyID
	case common_models.EntityDeal:
		return in.DealID
	}
	return ""
}
