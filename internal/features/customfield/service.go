package customfield

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/audit"
	"salescrm/internal/realtime"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValueBody is the write shape of a value: the stored slots, or a single
// "value" that is parsed according to the field type.
type ValueBody struct {
	CustomFieldValue
	Value json.RawMessage `json:"value"`
}

type CustomFieldService interface {
	CreateField(ctx context.Context, f *CustomField) (*CustomField, error)
	GetField(ctx context.Context, id primitive.ObjectID) (*CustomField, error)
	UpdateField(ctx context.Context, id primitive.ObjectID, apply func(*CustomField) error) (*CustomField, error)
	DeleteField(ctx context.Context, id primitive.ObjectID) error
	ListFields(ctx context.Context, params query.ListParams) (*query.Page[CustomField], error)

	CreateValue(ctx context.Context, body *ValueBody) (*CustomFieldValue, error)
	GetValue(ctx context.Context, id primitive.ObjectID) (*CustomFieldValue, error)
	UpdateValue(ctx context.Context, id primitive.ObjectID, apply func(*ValueBody) error) (*CustomFieldValue, error)
	DeleteValue(ctx context.Context, id primitive.ObjectID) error
	ListValues(ctx context.Context, params query.ListParams) (*query.Page[CustomFieldValue], error)

	SetValue(ctx context.Context, ref common_models.EntityRef, fieldID primitive.ObjectID, raw json.RawMessage) (*CustomFieldValue, error)
	ValuesFor(ctx context.Context, ref common_models.EntityRef) (map[string]interface{}, error)
	DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error
}

type CustomFieldServiceImpl struct {
	Fields    FieldRepository
	Values    ValueRepository
	Targets   common_models.TargetChecker
	Audit     audit.AuditService
	Publisher common_models.Publisher
}

func NewCustomFieldService(
	fields FieldRepository,
	values ValueRepository,
	targets common_models.TargetChecker,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) CustomFieldService {
	return &CustomFieldServiceImpl{
		Fields:    fields,
		Values:    values,
		Targets:   targets,
		Audit:     auditService,
		Publisher: publisher,
	}
}

func (s *CustomFieldServiceImpl) CreateField(ctx context.Context, f *CustomField) (*CustomField, error) {
	normalizeField(f)
	if err := validateField(f); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	f.ID = primitive.NilObjectID
	f.CreatedAt = now
	f.UpdatedAt = now
	if err := s.Fields.Create(ctx, f); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "custom_fields", f.ID.Hex(), audit.Snapshot(f, true))
	realtime.Notify(s.Publisher, "created", "custom_field", f.ID.Hex())
	return f, nil
}

func (s *CustomFieldServiceImpl) GetField(ctx context.Context, id primitive.ObjectID) (*CustomField, error) {
	return s.Fields.Get(ctx, id)
}

// UpdateField rejects changes to field_type and entity_type
func (s *CustomFieldServiceImpl) UpdateField(ctx context.Context, id primitive.ObjectID, apply func(*CustomField) error) (*CustomField, error) {
	f, err := s.Fields.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *f

	if err := apply(f); err != nil {
		return nil, err
	}
	f.ID = before.ID
	f.CreatedAt = before.CreatedAt
	normalizeField(f)

	fe := apperr.FieldErrors{}
	if f.FieldType != before.FieldType {
		fe.Add("field_type", "cannot be changed once the field is created")
	}
	if f.EntityType != before.EntityType {
		fe.Add("entity_type", "cannot be changed once the field is created")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	if err := validateField(f); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now().UTC()
	if err := s.Fields.Update(ctx, f); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "custom_fields", id.Hex(), audit.Diff(before, f))
	realtime.Notify(s.Publisher, "updated", "custom_field", id.Hex())
	return f, nil
}

// DeleteField removes the field and every value stored for it
func (s *CustomFieldServiceImpl) DeleteField(ctx context.Context, id primitive.ObjectID) error {
	f, err := s.Fields.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Values.DeleteByField(ctx, id); err != nil {
		return err
	}
	if err := s.Fields.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "custom_fields", id.Hex(), audit.Snapshot(f, false))
	realtime.Notify(s.Publisher, "deleted", "custom_field", id.Hex())
	return nil
}

func (s *CustomFieldServiceImpl) ListFields(ctx context.Context, params query.ListParams) (*query.Page[CustomField], error) {
	return s.Fields.List(ctx, params)
}

func (s *CustomFieldServiceImpl) CreateValue(ctx context.Context, body *ValueBody) (*CustomFieldValue, error) {
	v := &body.CustomFieldValue
	field, err := s.fieldFor(ctx, v.CustomFieldID)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, field, v, body.Value); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	v.ID = primitive.NilObjectID
	v.CreatedAt = now
	v.UpdatedAt = now
	if err := s.Values.Create(ctx, v); err != nil {
		return nil, err
	}
	resolveInto(field, v)

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "custom_field_values", v.ID.Hex(), audit.Snapshot(v, true))
	realtime.Notify(s.Publisher, "created", "custom_field_value", v.ID.Hex())
	return v, nil
}

func (s *CustomFieldServiceImpl) GetValue(ctx context.Context, id primitive.ObjectID) (*CustomFieldValue, error) {
	v, err := s.Values.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAll(ctx, []*CustomFieldValue{v}); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateValue keeps the value attached to its original field and target
func (s *CustomFieldServiceImpl) UpdateValue(ctx context.Context, id primitive.ObjectID, apply func(*ValueBody) error) (*CustomFieldValue, error) {
	existing, err := s.Values.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *existing

	body := &ValueBody{CustomFieldValue: *existing}
	if err := apply(body); err != nil {
		return nil, err
	}
	v := &body.CustomFieldValue
	v.ID = before.ID
	v.CustomFieldID = before.CustomFieldID
	v.Target = before.Target
	v.CreatedAt = before.CreatedAt

	field, err := s.Fields.Get(ctx, v.CustomFieldID)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, field, v, body.Value); err != nil {
		return nil, err
	}
	v.UpdatedAt = time.Now().UTC()
	if err := s.Values.Update(ctx, v); err != nil {
		return nil, err
	}
	resolveInto(field, v)

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "custom_field_values", id.Hex(), audit.Diff(before, v))
	realtime.Notify(s.Publisher, "updated", "custom_field_value", id.Hex())
	return v, nil
}

func (s *CustomFieldServiceImpl) DeleteValue(ctx context.Context, id primitive.ObjectID) error {
	v, err := s.Values.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Values.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "custom_field_values", id.Hex(), audit.Snapshot(v, false))
	realtime.Notify(s.Publisher, "deleted", "custom_field_value", id.Hex())
	return nil
}

func (s *CustomFieldServiceImpl) ListValues(ctx context.Context, params query.ListParams) (*query.Page[CustomFieldValue], error) {
	page, err := s.Values.List(ctx, params)
	if err != nil {
		return nil, err
	}
	refs := make([]*CustomFieldValue, len(page.Data))
	for i := range page.Data {
		refs[i] = &page.Data[i]
	}
	if err := s.resolveAll(ctx, refs); err != nil {
		return nil, err
	}
	return page, nil
}

// SetValue creates or replaces the value of one field on one record
func (s *CustomFieldServiceImpl) SetValue(ctx context.Context, ref common_models.EntityRef, fieldID primitive.ObjectID, raw json.RawMessage) (*CustomFieldValue, error) {
	if _, err := s.Fields.Get(ctx, fieldID); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}

	existing, err := s.Values.Find(ctx, fieldID, ref)
	switch {
	case apperr.IsNotFound(err):
		body := &ValueBody{Value: raw}
		body.CustomFieldID = fieldID
		body.Target = ref
		return s.CreateValue(ctx, body)
	case err != nil:
		return nil, err
	}
	return s.UpdateValue(ctx, existing.ID, func(b *ValueBody) error {
		b.Value = raw
		return nil
	})
}

// ValuesFor returns every stored value of a record keyed by field name
func (s *CustomFieldServiceImpl) ValuesFor(ctx context.Context, ref common_models.EntityRef) (map[string]interface{}, error) {
	values, err := s.Values.ForTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.CustomFieldID)
	}
	fields, err := s.Fields.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(values))
	for i := range values {
		field, ok := fields[values[i].CustomFieldID]
		if !ok {
			continue
		}
		if val, ok := Resolve(field.FieldType, &values[i]); ok {
			out[field.Name] = val.Raw()
		}
	}
	return out, nil
}

func (s *CustomFieldServiceImpl) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	return s.Values.DeleteForTargets(ctx, kind, ids)
}

func (s *CustomFieldServiceImpl) fieldFor(ctx context.Context, id primitive.ObjectID) (*CustomField, error) {
	if id.IsZero() {
		return nil, apperr.Invalid("custom_field_id", "this field is required")
	}
	field, err := s.Fields.Get(ctx, id)
	if apperr.IsNotFound(err) {
		return nil, apperr.Invalid("custom_field_id", "invalid pk \""+id.Hex()+"\" - object does not exist")
	}
	return field, err
}

// prepare checks the target and stores the value in the field's slot,
// clearing the others. Without a "value" the submitted slot is re-validated.
func (s *CustomFieldServiceImpl) prepare(ctx context.Context, field *CustomField, v *CustomFieldValue, raw json.RawMessage) error {
	fe := apperr.FieldErrors{}
	switch {
	case !v.Target.Kind.Valid():
		fe.Add("target.kind", "\""+string(v.Target.Kind)+"\" is not a valid choice")
	case v.Target.Kind != field.EntityType:
		fe.Add("target.kind", "field applies to "+string(field.EntityType)+" records")
	case v.Target.ID.IsZero():
		fe.Add("target.id", "this field is required")
	default:
		if err := common_models.RequireRef(ctx, s.Targets, fe, "target.id", v.Target.Kind, v.Target.ID); err != nil {
			return err
		}
	}
	if err := fe.Err(); err != nil {
		return err
	}

	if raw == nil {
		current, ok := Resolve(field.FieldType, v)
		if !ok {
			return apperr.Invalid("field_type", "\""+string(field.FieldType)+"\" is not a valid choice")
		}
		b, err := json.Marshal(current.Raw())
		if err != nil {
			return err
		}
		raw = b
	}

	val, err := Parse(field.FieldType, raw)
	if err != nil {
		return err
	}
	return v.Apply(field.FieldType, val)
}

func (s *CustomFieldServiceImpl) resolveAll(ctx context.Context, values []*CustomFieldValue) error {
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.CustomFieldID)
	}
	fields, err := s.Fields.GetMany(ctx, ids)
	if err != nil {
		return err
	}
	for _, v := range values {
		if field, ok := fields[v.CustomFieldID]; ok {
			resolveInto(field, v)
		}
	}
	return nil
}

func resolveInto(field *CustomField, v *CustomFieldValue) {
	v.Resolved = nil
	if val, ok := Resolve(field.FieldType, v); ok {
		v.Resolved = val.Raw()
	}
}

func normalizeField(f *CustomField) {
	f.Name = strings.TrimSpace(f.Name)
	f.Label = strings.TrimSpace(f.Label)
	if f.Options == nil {
		f.Options = []string{}
	}
}

func validateField(f *CustomField) error {
	fe := apperr.FieldErrors{}
	if f.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(f.Name) > 100 {
		fe.Add("name", "ensure this field has no more than 100 characters")
	}
	if f.Label == "" {
		fe.Add("label", "this field is required")
	} else if len(f.Label) > 200 {
		fe.Add("label", "ensure this field has no more than 200 characters")
	}

	known := false
	for _, ft := range FieldTypes {
		if f.FieldType == ft {
			known = true
			break
		}
	}
	if !known {
		fe.Add("field_type", "\""+string(f.FieldType)+"\" is not a valid choice")
	}
	if !f.EntityType.Valid() {
		fe.Add("entity_type", "\""+string(f.EntityType)+"\" is not a valid choice")
	}
	if f.Order < 0 {
		fe.Add("order", "must not be negative")
	}
	return fe.Err()
}
