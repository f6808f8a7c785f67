package rollup

import (
	"context"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// row is implemented by pointers to the rollup documents
type row[T any] interface {
	*T
	setID(id primitive.ObjectID)
	getID() primitive.ObjectID
	target() *common_models.EntityRef
	check(fe apperr.FieldErrors)
}

// RowStore is the storage a rollup collection needs
type RowStore[T any] interface {
	Create(ctx context.Context, doc *T) error
	Get(ctx context.Context, id primitive.ObjectID) (*T, error)
	Replace(ctx context.Context, id primitive.ObjectID, doc *T) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[T], error)
	Upsert(ctx context.Context, key bson.M, set bson.M, setOnInsert bson.M) error
	DeleteWhere(ctx context.Context, filter bson.M) error
	UpdateWhere(ctx context.Context, filter bson.M, set bson.M) error
	Find(ctx context.Context, filter bson.M) ([]T, error)
	EnsureIndexes(ctx context.Context) error
}

// Store keeps one rollup collection. Key is the unique natural key.
type Store[T any, P row[T]] struct {
	Collection *mongo.Collection
	Spec       query.Spec
	Resource   string
	Key        bson.D
}

func (s *Store[T, P]) Create(ctx context.Context, doc *T) error {
	res, err := s.Collection.InsertOne(ctx, doc)
	if err != nil {
		return apperr.FromMongo(err, s.Resource)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		P(doc).setID(id)
	}
	return nil
}

func (s *Store[T, P]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var doc T
	if err := s.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, apperr.FromMongo(err, s.Resource)
	}
	return &doc, nil
}

func (s *Store[T, P]) Replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	res, err := s.Collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return apperr.FromMongo(err, s.Resource)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(s.Resource)
	}
	return nil
}

func (s *Store[T, P]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(s.Resource)
	}
	return nil
}

func (s *Store[T, P]) List(ctx context.Context, params query.ListParams) (*query.Page[T], error) {
	return query.List[T](ctx, s.Collection, s.Spec, params)
}

// Upsert sets fields on the document matching key, inserting it when missing
func (s *Store[T, P]) Upsert(ctx context.Context, key bson.M, set bson.M, setOnInsert bson.M) error {
	update := bson.M{"$set": set}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = setOnInsert
	}
	_, err := s.Collection.UpdateOne(ctx, key, update, options.Update().SetUpsert(true))
	return apperr.FromMongo(err, s.Resource)
}

func (s *Store[T, P]) DeleteWhere(ctx context.Context, filter bson.M) error {
	_, err := s.Collection.DeleteMany(ctx, filter)
	return err
}

func (s *Store[T, P]) UpdateWhere(ctx context.Context, filter bson.M, set bson.M) error {
	_, err := s.Collection.UpdateMany(ctx, filter, bson.M{"$set": set})
	return err
}

func (s *Store[T, P]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	cursor, err := s.Collection.Find(ctx, filter, options.Find().SetSort(s.Key))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store[T, P]) EnsureIndexes(ctx context.Context) error {
	_, err := s.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    s.Key,
		Options: options.Index().SetUnique(true),
	})
	return err
}

// RollupRepository groups the four rollup collections
type RollupRepository struct {
	Summaries  RowStore[ActivitySummary]
	Snapshots  RowStore[PipelineSnapshot]
	Engagement RowStore[ContactEngagement]
	Forecasts  RowStore[DealForecast]
}

func NewRollupRepository(mongodb *database.MongodbDB) *RollupRepository {
	return &RollupRepository{
		Summaries: &Store[ActivitySummary, *ActivitySummary]{
			Collection: mongodb.DB.Collection("activity_summaries"),
			Resource:   "activity summary",
			Key:        bson.D{{Key: "date", Value: 1}, {Key: "owner_id", Value: 1}},
			Spec: query.Spec{
				Filters: map[string]query.Field{
					"date":     {Kind: query.Day},
					"owner_id": {Kind: query.Text},
				},
				Ordering:     []string{"date"},
				DefaultOrder: []string{"-date"},
			},
		},
		Snapshots: &Store[PipelineSnapshot, *PipelineSnapshot]{
			Collection: mongodb.DB.Collection("pipeline_snapshots"),
			Resource:   "pipeline snapshot",
			Key:        bson.D{{Key: "date", Value: 1}, {Key: "stage", Value: 1}},
			Spec: query.Spec{
				Filters: map[string]query.Field{
					"date":  {Kind: query.Day},
					"stage": {Kind: query.Text},
				},
				Ordering:     []string{"date", "stage"},
				DefaultOrder: []string{"-date", "stage"},
			},
		},
		Engagement: &Store[ContactEngagement, *ContactEngagement]{
			Collection: mongodb.DB.Collection("contact_engagement"),
			Resource:   "contact engagement",
			Key:        bson.D{{Key: "contact_id", Value: 1}, {Key: "date", Value: 1}},
			Spec: query.Spec{
				Filters: map[string]query.Field{
					"date":       {Kind: query.Day},
					"contact_id": {Kind: query.ObjectID},
				},
				Ordering:     []string{"date"},
				DefaultOrder: []string{"-date"},
			},
		},
		Forecasts: &Store[DealForecast, *DealForecast]{
			Collection: mongodb.DB.Collection("deal_forecasts"),
			Resource:   "deal forecast",
			Key:        bson.D{{Key: "deal_id", Value: 1}, {Key: "forecast_date", Value: 1}},
			Spec: query.Spec{
				Filters: map[string]query.Field{
					"forecast_date":    {Kind: query.Day},
					"confidence_level": {Kind: query.Text},
					"deal_id":          {Kind: query.ObjectID},
				},
				Ordering:     []string{"forecast_date"},
				DefaultOrder: []string{"-forecast_date"},
			},
		},
	}
}

func (r *RollupRepository) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		r.Summaries.EnsureIndexes,
		r.Snapshots.EnsureIndexes,
		r.Engagement.EnsureIndexes,
		r.Forecasts.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
