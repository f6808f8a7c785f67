package activity

import (
	"context"
	"time"

	"salescrm/internal/common/apperr"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) error
	Get(ctx context.Context, id primitive.ObjectID) (*Activity, error)
	Update(ctx context.Context, activity *Activity) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Activity], error)
	Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]Activity, error)
	IDsWhere(ctx context.Context, field string, ids []primitive.ObjectID) ([]primitive.ObjectID, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error)
	EnsureIndexes(ctx context.Context) error
}

type ActivityRepositoryImpl struct {
	Collection *mongo.Collection
}

var ListSpec = query.Spec{
	Filters: map[string]query.Field{
		"activity_type": {Kind: query.Text},
		"status":        {Kind: query.Text},
		"owner_id":      {Kind: query.Text},
		"contact_id":    {Kind: query.ObjectID},
		"company_id":    {Kind: query.ObjectID},
		"deal_id":       {Kind: query.ObjectID},
	},
	Search: []string{"subject", "description"},
	Related: []query.Related{
		{Field: "contact_id", Collection: "contacts", Search: []string{"first_name", "last_name"}},
	},
	Ordering:     []string{"due_date", "created_at", "subject"},
	DefaultOrder: []string{"-due_date", "-created_at"},
}

func NewActivityRepository(mongodb *database.MongodbDB) ActivityRepository {
	return &ActivityRepositoryImpl{
		Collection: mongodb.DB.Collection("activities"),
	}
}

func (r *ActivityRepositoryImpl) Create(ctx context.Context, activity *Activity) error {
	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, activity)
	return apperr.FromMongo(err, "activity")
}

func (r *ActivityRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Activity, error) {
	var activity Activity
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&activity); err != nil {
		return nil, apperr.FromMongo(err, "activity")
	}
	return &activity, nil
}

func (r *ActivityRepositoryImpl) Update(ctx context.Context, activity *Activity) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": activity.ID}, activity)
	if err != nil {
		return apperr.FromMongo(err, "activity")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("activity")
	}
	return nil
}

func (r *ActivityRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("activity")
	}
	return nil
}

func (r *ActivityRepositoryImpl) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.Collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *ActivityRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Activity], error) {
	return query.List[Activity](ctx, r.Collection, ListSpec, params)
}

func (r *ActivityRepositoryImpl) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]Activity, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	activities := make([]Activity, 0)
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *ActivityRepositoryImpl) IDsWhere(ctx context.Context, field string, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{field: bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		out[i] = row.ID
	}
	return out, nil
}

func (r *ActivityRepositoryImpl) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.Collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *ActivityRepositoryImpl) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return r.Collection.CountDocuments(ctx, filter)
}

func (r *ActivityRepositoryImpl) CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error) {
	return query.CountBy(ctx, r.Collection, field, filter, 0)
}

func (r *ActivityRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "contact_id", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
		{Keys: bson.D{{Key: "deal_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		{Keys: bson.D{{Key: "due_date", Value: -1}, {Key: "created_at", Value: -1}}},
	})
	return err
}
