package pipeline

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

type PipelineRepository interface {
	Create(ctx context.Context, p *Pipeline) error
	Get(ctx context.Context, id primitive.ObjectID) (*Pipeline, error)
	FindByName(ctx context.Context, name string) (*Pipeline, error)
	Update(ctx context.Context, p *Pipeline) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Pipeline], error)
	ClearDefault(ctx context.Context, except primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type StageRepository interface {
	Create(ctx context.Context, s *Stage) error
	Get(ctx context.Context, id primitive.ObjectID) (*Stage, error)
	Update(ctx context.Context, s *Stage) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Stage], error)
	ForPipeline(ctx context.Context, pipelineID primitive.ObjectID) ([]Stage, error)
	DeleteByPipeline(ctx context.Context, pipelineID primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

var PipelineListSpec = query.Spec{
	Filters: map[string]query.Field{
		"is_active":  {Kind: query.Bool},
		"is_default": {Kind: query.Bool},
	},
	Search:       []string{"name", "description"},
	Ordering:     []string{"name", "created_at"},
	DefaultOrder: []string{"name"},
}

var StageListSpec = query.Spec{
	Filters: map[string]query.Field{
		"pipeline_id": {Kind: query.ObjectID},
	},
	Ordering:     []string{"order", "name"},
	DefaultOrder: []string{"pipeline_id", "order"},
}

type PipelineRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewPipelineRepository(mongodb *database.MongodbDB) PipelineRepository {
	return &PipelineRepositoryImpl{Collection: mongodb.DB.Collection("pipelines")}
}

func (r *PipelineRepositoryImpl) Create(ctx context.Context, p *Pipeline) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, p)
	return apperr.FromMongo(err, "pipeline")
}

func (r *PipelineRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Pipeline, error) {
	var p Pipeline
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, apperr.FromMongo(err, "pipeline")
	}
	return &p, nil
}

func (r *PipelineRepositoryImpl) FindByName(ctx context.Context, name string) (*Pipeline, error) {
	var p Pipeline
	if err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&p); err != nil {
		return nil, apperr.FromMongo(err, "pipeline")
	}
	return &p, nil
}

func (r *PipelineRepositoryImpl) Update(ctx context.Context, p *Pipeline) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return apperr.FromMongo(err, "pipeline")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("pipeline")
	}
	return nil
}

func (r *PipelineRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("pipeline")
	}
	return nil
}

func (r *PipelineRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Pipeline], error) {
	return query.List[Pipeline](ctx, r.Collection, PipelineListSpec, params)
}

// ClearDefault unsets is_default on every pipeline except one
func (r *PipelineRepositoryImpl) ClearDefault(ctx context.Context, except primitive.ObjectID) error {
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$ne": except}, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": time.Now().UTC()}})
	return err
}

func (r *PipelineRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type StageRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewStageRepository(mongodb *database.MongodbDB) StageRepository {
	return &StageRepositoryImpl{Collection: mongodb.DB.Collection("pipeline_stages")}
}

func (r *StageRepositoryImpl) Create(ctx context.Context, s *Stage) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, s)
	return stageErr(err)
}

func (r *StageRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Stage, error) {
	var s Stage
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, apperr.FromMongo(err, "pipeline stage")
	}
	return &s, nil
}

func (r *StageRepositoryImpl) Update(ctx context.Context, s *Stage) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return stageErr(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("pipeline stage")
	}
	return nil
}

func (r *StageRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("pipeline stage")
	}
	return nil
}

func (r *StageRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Stage], error) {
	return query.List[Stage](ctx, r.Collection, StageListSpec, params)
}

func (r *StageRepositoryImpl) ForPipeline(ctx context.Context, pipelineID primitive.ObjectID) ([]Stage, error) {
	cursor, err := r.Collection.Find(ctx,
		bson.M{"pipeline_id": pipelineID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	stages := make([]Stage, 0)
	if err := cursor.All(ctx, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

func (r *StageRepositoryImpl) DeleteByPipeline(ctx context.Context, pipelineID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"pipeline_id": pipelineID})
	return err
}

func (r *StageRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pipeline_id", Value: 1}, {Key: "order", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func stageErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("a stage with this order already exists in the pipeline")
	}
	return apperr.FromMongo(err, "pipeline stage")
}
