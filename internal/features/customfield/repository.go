package customfield

import (
	"context"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FieldRepository interface {
	Create(ctx context.Context, f *CustomField) error
	Get(ctx context.Context, id primitive.ObjectID) (*CustomField, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*CustomField, error)
	FindByName(ctx context.Context, kind common_models.EntityKind, name string) (*CustomField, error)
	Update(ctx context.Context, f *CustomField) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[CustomField], error)
	EnsureIndexes(ctx context.Context) error
}

type ValueRepository interface {
	Create(ctx context.Context, v *CustomFieldValue) error
	Get(ctx context.Context, id primitive.ObjectID) (*CustomFieldValue, error)
	Find(ctx context.Context, fieldID primitive.ObjectID, ref common_models.EntityRef) (*CustomFieldValue, error)
	ForTarget(ctx context.Context, ref common_models.EntityRef) ([]CustomFieldValue, error)
	Update(ctx context.Context, v *CustomFieldValue) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[CustomFieldValue], error)
	DeleteByField(ctx context.Context, fieldID primitive.ObjectID) error
	DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

var FieldListSpec = query.Spec{
	Filters: map[string]query.Field{
		"field_type":  {Kind: query.Text},
		"entity_type": {Kind: query.Text},
		"is_required": {Kind: query.Bool},
		"is_active":   {Kind: query.Bool},
	},
	Search:       []string{"name", "label"},
	Ordering:     []string{"entity_type", "order", "name"},
	DefaultOrder: []string{"entity_type", "order", "name"},
}

var ValueListSpec = query.Spec{
	Filters: map[string]query.Field{
		"custom_field_id": {Kind: query.ObjectID},
		"target_kind":     {Path: "target.kind", Kind: query.Text},
		"target_id":       {Path: "target.id", Kind: query.ObjectID},
	},
	Search:       []string{"text_value"},
	Ordering:     []string{"created_at", "updated_at"},
	DefaultOrder: []string{"custom_field_id"},
}

type FieldRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewFieldRepository(mongodb *database.MongodbDB) FieldRepository {
	return &FieldRepositoryImpl{Collection: mongodb.DB.Collection("custom_fields")}
}

func (r *FieldRepositoryImpl) Create(ctx context.Context, f *CustomField) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, f)
	return apperr.FromMongo(err, "custom field")
}

func (r *FieldRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*CustomField, error) {
	var f CustomField
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, apperr.FromMongo(err, "custom field")
	}
	return &f, nil
}

func (r *FieldRepositoryImpl) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*CustomField, error) {
	out := make(map[primitive.ObjectID]*CustomField, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var fields []CustomField
	if err := cursor.All(ctx, &fields); err != nil {
		return nil, err
	}
	for i := range fields {
		out[fields[i].ID] = &fields[i]
	}
	return out, nil
}

func (r *FieldRepositoryImpl) FindByName(ctx context.Context, kind common_models.EntityKind, name string) (*CustomField, error) {
	var f CustomField
	if err := r.Collection.FindOne(ctx, bson.M{"entity_type": kind, "name": name}).Decode(&f); err != nil {
		return nil, apperr.FromMongo(err, "custom field")
	}
	return &f, nil
}

func (r *FieldRepositoryImpl) Update(ctx context.Context, f *CustomField) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": f.ID}, f)
	if err != nil {
		return apperr.FromMongo(err, "custom field")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("custom field")
	}
	return nil
}

func (r *FieldRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("custom field")
	}
	return nil
}

func (r *FieldRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[CustomField], error) {
	return query.List[CustomField](ctx, r.Collection, FieldListSpec, params)
}

func (r *FieldRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "order", Value: 1}, {Key: "name", Value: 1}},
	})
	return err
}

type ValueRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewValueRepository(mongodb *database.MongodbDB) ValueRepository {
	return &ValueRepositoryImpl{Collection: mongodb.DB.Collection("custom_field_values")}
}

func (r *ValueRepositoryImpl) Create(ctx context.Context, v *CustomFieldValue) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, v)
	return valueErr(err)
}

func (r *ValueRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*CustomFieldValue, error) {
	var v CustomFieldValue
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		return nil, apperr.FromMongo(err, "custom field value")
	}
	return &v, nil
}

func (r *ValueRepositoryImpl) Find(ctx context.Context, fieldID primitive.ObjectID, ref common_models.EntityRef) (*CustomFieldValue, error) {
	var v CustomFieldValue
	err := r.Collection.FindOne(ctx, bson.M{
		"custom_field_id": fieldID,
		"target.kind":     ref.Kind,
		"target.id":       ref.ID,
	}).Decode(&v)
	if err != nil {
		return nil, apperr.FromMongo(err, "custom field value")
	}
	return &v, nil
}

func (r *ValueRepositoryImpl) ForTarget(ctx context.Context, ref common_models.EntityRef) ([]CustomFieldValue, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"target.kind": ref.Kind, "target.id": ref.ID})
	if err != nil {
		return nil, err
	}
	values := make([]CustomFieldValue, 0)
	if err := cursor.All(ctx, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *ValueRepositoryImpl) Update(ctx context.Context, v *CustomFieldValue) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": v.ID}, v)
	if err != nil {
		return valueErr(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("custom field value")
	}
	return nil
}

func (r *ValueRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("custom field value")
	}
	return nil
}

func (r *ValueRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[CustomFieldValue], error) {
	return query.List[CustomFieldValue](ctx, r.Collection, ValueListSpec, params)
}

func (r *ValueRepositoryImpl) DeleteByField(ctx context.Context, fieldID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"custom_field_id": fieldID})
	return err
}

func (r *ValueRepositoryImpl) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.Collection.DeleteMany(ctx, bson.M{"target.kind": kind, "target.id": bson.M{"$in": ids}})
	return err
}

// EnsureIndexes creates the one-value-per-(field, target) unique index
func (r *ValueRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "custom_field_id", Value: 1},
				{Key: "target.kind", Value: 1},
				{Key: "target.id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("custom_field_target_unique"),
		},
		{Keys: bson.D{{Key: "target.kind", Value: 1}, {Key: "target.id", Value: 1}}},
	})
	return err
}

func valueErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("a value for this custom field already exists on the target")
	}
	return apperr.FromMongo(err, "custom field value")
}
