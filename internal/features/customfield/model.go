package customfield

import (
	"time"

	common_models "salescrm/internal/common/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FieldType string

const (
	TypeText        FieldType = "text"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeBoolean     FieldType = "boolean"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeURL         FieldType = "url"
	TypeEmail       FieldType = "email"
)

var FieldTypes = []FieldType{TypeText, TypeNumber, TypeDate, TypeBoolean, TypeSelect, TypeMultiselect, TypeURL, TypeEmail}

// CustomField defines a dynamic attribute for one entity kind. FieldType and
// EntityType are fixed once created.
type CustomField struct {
	ID          primitive.ObjectID       `json:"id" bson:"_id,omitempty"`
	Name        string                   `json:"name" bson:"name"`
	FieldType   FieldType                `json:"field_type" bson:"field_type"`
	EntityType  common_models.EntityKind `json:"entity_type" bson:"entity_type"`
	Label       string                   `json:"label" bson:"label"`
	Description string                   `json:"description" bson:"description"`
	IsRequired  bool                     `json:"is_required" bson:"is_required"`
	IsActive    bool                     `json:"is_active" bson:"is_active"`
	Options     []string                 `json:"options" bson:"options"`
	Order       int                      `json:"order" bson:"order"`
	CreatedAt   time.Time                `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at" bson:"updated_at"`
}

func NewField() *CustomField {
	return &CustomField{IsActive: true, Options: []string{}}
}

// CustomFieldValue stores one value of a field for one target record in the
// slot matching the field's type. Resolved is filled on read.
type CustomFieldValue struct {
	ID            primitive.ObjectID      `json:"id" bson:"_id,omitempty"`
	CustomFieldID primitive.ObjectID      `json:"custom_field_id" bson:"custom_field_id"`
	Target        common_models.EntityRef `json:"target" bson:"target"`
	TextValue     string                  `json:"text_value" bson:"text_value"`
	NumberValue   *decimal.Decimal        `json:"number_value" bson:"number_value"`
	DateValue     *common_models.Date     `json:"date_value" bson:"date_value"`
	BooleanValue  *bool                   `json:"boolean_value" bson:"boolean_value"`
	JSONValue     []string                `json:"json_value" bson:"json_value"`
	CreatedAt     time.Time               `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at" bson:"updated_at"`

	Resolved interface{} `json:"value" bson:"-"`
}
