package tag

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

type TagRepository interface {
	Create(ctx context.Context, tag *Tag) error
	Get(ctx context.Context, id primitive.ObjectID) (*Tag, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*Tag, error)
	FindByName(ctx context.Context, name string) (*Tag, error)
	Update(ctx context.Context, tag *Tag) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Tag], error)
	EnsureIndexes(ctx context.Context) error
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *Assignment) error
	Get(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) (*Assignment, error)
	Delete(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) error
	List(ctx context.Context, kind common_models.EntityKind, params query.ListParams) (*query.Page[Assignment], error)
	DeleteByTag(ctx context.Context, tagID primitive.ObjectID) error
	DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

var TagListSpec = query.Spec{
	Search:       []string{"name", "description"},
	Ordering:     []string{"name"},
	DefaultOrder: []string{"name"},
}

var AssignmentListSpec = query.Spec{
	Filters: map[string]query.Field{
		"tag_id":     {Kind: query.ObjectID},
		"target_id":  {Path: "target.id", Kind: query.ObjectID},
		"contact_id": {Path: "target.id", Kind: query.ObjectID},
		"company_id": {Path: "target.id", Kind: query.ObjectID},
		"deal_id":    {Path: "target.id", Kind: query.ObjectID},
	},
	Ordering:     []string{"created_at"},
	DefaultOrder: []string{"created_at"},
}

type TagRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTagRepository(mongodb *database.MongodbDB) TagRepository {
	return &TagRepositoryImpl{Collection: mongodb.DB.Collection("tags")}
}

func (r *TagRepositoryImpl) Create(ctx context.Context, tag *Tag) error {
	if tag.ID.IsZero() {
		tag.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, tag)
	return apperr.FromMongo(err, "tag")
}

func (r *TagRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Tag, error) {
	var tag Tag
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tag); err != nil {
		return nil, apperr.FromMongo(err, "tag")
	}
	return &tag, nil
}

func (r *TagRepositoryImpl) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*Tag, error) {
	out := make(map[primitive.ObjectID]*Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var tags []Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, err
	}
	for i := range tags {
		out[tags[i].ID] = &tags[i]
	}
	return out, nil
}

func (r *TagRepositoryImpl) FindByName(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	if err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&tag); err != nil {
		return nil, apperr.FromMongo(err, "tag")
	}
	return &tag, nil
}

func (r *TagRepositoryImpl) Update(ctx context.Context, tag *Tag) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": tag.ID}, tag)
	if err != nil {
		return apperr.FromMongo(err, "tag")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("tag")
	}
	return nil
}

func (r *TagRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("tag")
	}
	return nil
}

func (r *TagRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Tag], error) {
	return query.List[Tag](ctx, r.Collection, TagListSpec, params)
}

func (r *TagRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type AssignmentRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAssignmentRepository(mongodb *database.MongodbDB) AssignmentRepository {
	return &AssignmentRepositoryImpl{Collection: mongodb.DB.Collection("tag_assignments")}
}

func (r *AssignmentRepositoryImpl) Create(ctx context.Context, a *Assignment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, a)
	return apperr.FromMongo(err, "tag assignment")
}

func (r *AssignmentRepositoryImpl) Get(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) (*Assignment, error) {
	var a Assignment
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id, "target.kind": kind}).Decode(&a); err != nil {
		return nil, apperr.FromMongo(err, "tag assignment")
	}
	return &a, nil
}

func (r *AssignmentRepositoryImpl) Delete(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id, "target.kind": kind})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("tag assignment")
	}
	return nil
}

func (r *AssignmentRepositoryImpl) List(ctx context.Context, kind common_models.EntityKind, params query.ListParams) (*query.Page[Assignment], error) {
	filter, err := AssignmentListSpec.Filter(params)
	if err != nil {
		return nil, err
	}
	filter["target.kind"] = kind
	return query.Find[Assignment](ctx, r.Collection, filter, AssignmentListSpec.Sort(params.Ordering), params)
}

func (r *AssignmentRepositoryImpl) DeleteByTag(ctx context.Context, tagID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"tag_id": tagID})
	return err
}

func (r *AssignmentRepositoryImpl) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.Collection.DeleteMany(ctx, bson.M{"target.kind": kind, "target.id": bson.M{"$in": ids}})
	return err
}

func (r *AssignmentRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tag_id", Value: 1}, {Key: "target.kind", Value: 1}, {Key: "target.id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "target.kind", Value: 1}, {Key: "target.id", Value: 1}}},
	})
	return err
}
