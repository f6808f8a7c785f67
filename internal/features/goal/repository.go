package goal

import (
	"context"

	"salescrm/internal/common/apperr"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type GoalRepository interface {
	Create(ctx context.Context, goal *SalesGoal) error
	Get(ctx context.Context, id primitive.ObjectID) (*SalesGoal, error)
	Update(ctx context.Context, goal *SalesGoal) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[SalesGoal], error)
}

var GoalListSpec = query.Spec{
	Filters: map[string]query.Field{
		"goal_type":   {Kind: query.Text},
		"period_type": {Kind: query.Text},
		"is_active":   {Kind: query.Bool},
		"owner_id":    {Kind: query.Text},
	},
	Search:       []string{"name"},
	Ordering:     []string{"start_date", "end_date", "target_value"},
	DefaultOrder: []string{"-start_date"},
}

type GoalRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewGoalRepository(mongodb *database.MongodbDB) GoalRepository {
	return &GoalRepositoryImpl{Collection: mongodb.DB.Collection("sales_goals")}
}

func (r *GoalRepositoryImpl) Create(ctx context.Context, goal *SalesGoal) error {
	if goal.ID.IsZero() {
		goal.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, goal)
	return apperr.FromMongo(err, "sales goal")
}

func (r *GoalRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*SalesGoal, error) {
	var goal SalesGoal
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&goal); err != nil {
		return nil, apperr.FromMongo(err, "sales goal")
	}
	return &goal, nil
}

func (r *GoalRepositoryImpl) Update(ctx context.Context, goal *SalesGoal) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": goal.ID}, goal)
	if err != nil {
		return apperr.FromMongo(err, "sales goal")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("sales goal")
	}
	return nil
}

func (r *GoalRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("sales goal")
	}
	return nil
}

func (r *GoalRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[SalesGoal], error) {
	return query.List[SalesGoal](ctx, r.Collection, GoalListSpec, params)
}
