package company

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

type CompanyRepository interface {
	Create(ctx context.Context, company *Company) error
	Get(ctx context.Context, id primitive.ObjectID) (*Company, error)
	Update(ctx context.Context, company *Company) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Company], error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	FindByName(ctx context.Context, name string) (*Company, error)
	Find(ctx context.Context, filter bson.M, limit int64) ([]Company, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	CountBy(ctx context.Context, field string, limit int64) ([]query.Bucket, error)
	EnsureIndexes(ctx context.Context) error
}

type CompanyRepositoryImpl struct {
	Collection *mongo.Collection
}

var ListSpec = query.Spec{
	Filters: map[string]query.Field{
		"industry":  {Kind: query.Text},
		"is_active": {Kind: query.Bool},
		"owner_id":  {Kind: query.Text},
	},
	Search:       []string{"name", "email", "phone", "city", "state"},
	Ordering:     []string{"name", "created_at", "annual_revenue"},
	DefaultOrder: []string{"name"},
}

func NewCompanyRepository(mongodb *database.MongodbDB) CompanyRepository {
	return &CompanyRepositoryImpl{
		Collection: mongodb.DB.Collection("companies"),
	}
}

func (r *CompanyRepositoryImpl) Create(ctx context.Context, company *Company) error {
	if company.ID.IsZero() {
		company.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, company)
	return apperr.FromMongo(err, "company")
}

func (r *CompanyRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Company, error) {
	var company Company
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&company)
	if err != nil {
		return nil, apperr.FromMongo(err, "company")
	}
	return &company, nil
}

func (r *CompanyRepositoryImpl) Update(ctx context.Context, company *Company) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": company.ID}, company)
	if err != nil {
		return apperr.FromMongo(err, "company")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("company")
	}
	return nil
}

func (r *CompanyRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("company")
	}
	return nil
}

func (r *CompanyRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Company], error) {
	return query.List[Company](ctx, r.Collection, ListSpec, params)
}

func (r *CompanyRepositoryImpl) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.Collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *CompanyRepositoryImpl) FindByName(ctx context.Context, name string) (*Company, error) {
	var company Company
	if err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&company); err != nil {
		return nil, apperr.FromMongo(err, "company")
	}
	return &company, nil
}

func (r *CompanyRepositoryImpl) Find(ctx context.Context, filter bson.M, limit int64) ([]Company, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	companies := make([]Company, 0)
	if err := cursor.All(ctx, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *CompanyRepositoryImpl) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return r.Collection.CountDocuments(ctx, filter)
}

func (r *CompanyRepositoryImpl) CountBy(ctx context.Context, field string, limit int64) ([]query.Bucket, error) {
	return query.CountBy(ctx, r.Collection, field, nil, limit)
}

func (r *CompanyRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "industry", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})
	return err
}
