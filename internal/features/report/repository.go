package report

import (
	"context"

	"salescrm/internal/common/apperr"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	Get(ctx context.Context, id primitive.ObjectID) (*Report, error)
	Update(ctx context.Context, report *Report) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Report], error)
}

var ReportListSpec = query.Spec{
	Filters: map[string]query.Field{
		"report_type": {Kind: query.Text},
		"is_public":   {Kind: query.Bool},
		"is_active":   {Kind: query.Bool},
		"created_by":  {Kind: query.Text},
	},
	Search:       []string{"name", "description"},
	Ordering:     []string{"name", "created_at"},
	DefaultOrder: []string{"-created_at"},
}

type ReportRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewReportRepository(mongodb *database.MongodbDB) ReportRepository {
	return &ReportRepositoryImpl{Collection: mongodb.DB.Collection("reports")}
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *Report) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, report)
	return apperr.FromMongo(err, "report")
}

func (r *ReportRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Report, error) {
	var report Report
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report); err != nil {
		return nil, apperr.FromMongo(err, "report")
	}
	return &report, nil
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, report *Report) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": report.ID}, report)
	if err != nil {
		return apperr.FromMongo(err, "report")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("report")
	}
	return nil
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("report")
	}
	return nil
}

func (r *ReportRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Report], error) {
	return query.List[Report](ctx, r.Collection, ReportListSpec, params)
}
