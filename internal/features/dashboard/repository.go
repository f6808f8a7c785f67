package dashboard

import (
	"context"

	"salescrm/internal/common/apperr"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type WidgetRepository interface {
	Create(ctx context.Context, widget *Widget) error
	Get(ctx context.Context, id primitive.ObjectID) (*Widget, error)
	Update(ctx context.Context, widget *Widget) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Widget], error)
}

var WidgetListSpec = query.Spec{
	Filters: map[string]query.Field{
		"widget_type": {Kind: query.Text},
		"is_active":   {Kind: query.Bool},
		"user_id":     {Kind: query.Text},
	},
	Search:       []string{"name", "description"},
	Ordering:     []string{"order", "name"},
	DefaultOrder: []string{"order", "name"},
}

type WidgetRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewWidgetRepository(mongodb *database.MongodbDB) WidgetRepository {
	return &WidgetRepositoryImpl{Collection: mongodb.DB.Collection("dashboard_widgets")}
}

func (r *WidgetRepositoryImpl) Create(ctx context.Context, widget *Widget) error {
	if widget.ID.IsZero() {
		widget.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, widget)
	return apperr.FromMongo(err, "dashboard widget")
}

func (r *WidgetRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Widget, error) {
	var widget Widget
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&widget); err != nil {
		return nil, apperr.FromMongo(err, "dashboard widget")
	}
	return &widget, nil
}

func (r *WidgetRepositoryImpl) Update(ctx context.Context, widget *Widget) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": widget.ID}, widget)
	if err != nil {
		return apperr.FromMongo(err, "dashboard widget")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("dashboard widget")
	}
	return nil
}

func (r *WidgetRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("dashboard widget")
	}
	return nil
}

func (r *WidgetRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Widget], error) {
	return query.List[Widget](ctx, r.Collection, WidgetListSpec, params)
}
