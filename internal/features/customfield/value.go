package customfield

import (
	"bytes"
	"encoding/json"
	"fmt"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/pkg/utils"

	"github.com/shopspring/decimal"
)

// Value is the resolved content of a CustomFieldValue, one concrete type per
// field type family.
type Value interface {
	// Raw is the value as rendered in API responses
	Raw() interface{}
	isValue()
}

type Text string

type Number struct{ Amount *decimal.Decimal }

type Date struct{ Day *common_models.Date }

// Boolean is tri-state: nil means unset
type Boolean struct{ Set *bool }

type Choices []string

func (v Text) Raw() interface{} { return string(v) }

func (v Number) Raw() interface{} {
	if v.Amount == nil {
		return nil
	}
	return *v.Amount
}

func (v Date) Raw() interface{} {
	if v.Day == nil {
		return nil
	}
	return *v.Day
}

func (v Boolean) Raw() interface{} {
	if v.Set == nil {
		return nil
	}
	return *v.Set
}

func (v Choices) Raw() interface{} { return []string(v) }

func (Text) isValue()    {}
func (Number) isValue()  {}
func (Date) isValue()    {}
func (Boolean) isValue() {}
func (Choices) isValue() {}

// Resolve returns the value held in the slot that ft selects. Other slots are
// ignored whatever they contain. An unknown field type yields ok == false.
func Resolve(ft FieldType, v *CustomFieldValue) (Value, bool) {
	switch ft {
	case TypeText, TypeURL, TypeEmail:
		return Text(v.TextValue), true
	case TypeNumber:
		return Number{Amount: v.NumberValue}, true
	case TypeDate:
		return Date{Day: v.DateValue}, true
	case TypeBoolean:
		return Boolean{Set: v.BooleanValue}, true
	case TypeSelect, TypeMultiselect:
		choices := make(Choices, len(v.JSONValue))
		copy(choices, v.JSONValue)
		return choices, true
	}
	return nil, false
}

// Apply writes val into the slot for ft and clears every other slot. val must
// be the variant that ft resolves to.
func (v *CustomFieldValue) Apply(ft FieldType, val Value) error {
	v.TextValue = ""
	v.NumberValue = nil
	v.DateValue = nil
	v.BooleanValue = nil
	v.JSONValue = []string{}

	switch x := val.(type) {
	case Text:
		if ft != TypeText && ft != TypeURL && ft != TypeEmail {
			return mismatch(ft, val)
		}
		v.TextValue = string(x)
	case Number:
		if ft != TypeNumber {
			return mismatch(ft, val)
		}
		v.NumberValue = x.Amount
	case Date:
		if ft != TypeDate {
			return mismatch(ft, val)
		}
		v.DateValue = x.Day
	case Boolean:
		if ft != TypeBoolean {
			return mismatch(ft, val)
		}
		v.BooleanValue = x.Set
	case Choices:
		if ft != TypeSelect && ft != TypeMultiselect {
			return mismatch(ft, val)
		}
		v.JSONValue = append([]string{}, x...)
	case nil:
	default:
		return mismatch(ft, val)
	}
	return nil
}

func mismatch(ft FieldType, val Value) error {
	return apperr.Invalid("value", fmt.Sprintf("%T cannot be stored in a %s field", val, ft))
}

var maxNumber = decimal.New(1, 13)

// Parse converts a JSON value into the variant for ft. JSON null yields the
// empty variant. Select options are not checked against the field's options.
func Parse(ft FieldType, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	isNull := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	switch ft {
	case TypeText, TypeURL, TypeEmail:
		var s string
		if !isNull {
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, apperr.Invalid("value", "must be a string")
			}
		}
		if s != "" && ft == TypeEmail && !utils.IsEmail(s) {
			return nil, apperr.Invalid("value", "enter a valid email address")
		}
		if s != "" && ft == TypeURL && !utils.IsURL(s) {
			return nil, apperr.Invalid("value", "enter a valid URL")
		}
		return Text(s), nil

	case TypeNumber:
		if isNull {
			return Number{}, nil
		}
		var d decimal.Decimal
		if err := d.UnmarshalJSON(raw); err != nil {
			return nil, apperr.Invalid("value", "must be a number")
		}
		if d.Exponent() < -2 {
			return nil, apperr.Invalid("value", "ensure there are no more than 2 decimal places")
		}
		if d.Abs().GreaterThanOrEqual(maxNumber) {
			return nil, apperr.Invalid("value", "ensure there are no more than 15 digits in total")
		}
		return Number{Amount: &d}, nil

	case TypeDate:
		if isNull {
			return Date{}, nil
		}
		var day common_models.Date
		if err := day.UnmarshalJSON(raw); err != nil {
			return nil, apperr.Invalid("value", "must be a date in YYYY-MM-DD format")
		}
		if day.IsZero() {
			return Date{}, nil
		}
		return Date{Day: &day}, nil

	case TypeBoolean:
		if isNull {
			return Boolean{}, nil
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, apperr.Invalid("value", "must be true, false or null")
		}
		return Boolean{Set: &b}, nil

	case TypeSelect, TypeMultiselect:
		if isNull {
			return Choices{}, nil
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			return Choices{one}, nil
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, apperr.Invalid("value", "must be a string or a list of strings")
		}
		if many == nil {
			many = []string{}
		}
		return Choices(many), nil
	}
	return nil, apperr.Invalid("field_type", "\""+string(ft)+"\" is not a valid choice")
}
