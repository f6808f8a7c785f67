package deal

import (
	"context"
	"time"

	"salescrm/internal/common/apperr"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DealRepository interface {
	Create(ctx context.Context, deal *Deal) error
	Get(ctx context.Context, id primitive.ObjectID) (*Deal, error)
	Update(ctx context.Context, deal *Deal) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Deal], error)
	Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]Deal, error)
	IDsWhere(ctx context.Context, field string, ids []primitive.ObjectID) ([]primitive.ObjectID, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	ClearCompany(ctx context.Context, companyID primitive.ObjectID) error
	Count(ctx context.Context, filter bson.M) (int64, error)
	SumAmount(ctx context.Context, filter bson.M) (decimal.Decimal, error)
	StageTotals(ctx context.Context) ([]StageTotal, error)
	CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
	EnsureIndexes(ctx context.Context) error
}

type DealRepositoryImpl struct {
	Collection *mongo.Collection
}

var ListSpec = query.Spec{
	Filters: map[string]query.Field{
		"stage":      {Kind: query.Text},
		"priority":   {Kind: query.Text},
		"is_active":  {Kind: query.Bool},
		"owner_id":   {Kind: query.Text},
		"contact_id": {Kind: query.ObjectID},
		"company_id": {Kind: query.ObjectID},
	},
	Search: []string{"name", "description"},
	Related: []query.Related{
		{Field: "contact_id", Collection: "contacts", Search: []string{"first_name", "last_name"}},
		{Field: "company_id", Collection: "companies", Search: []string{"name"}},
	},
	Ordering:     []string{"name", "amount", "expected_close_date", "created_at"},
	DefaultOrder: []string{"-expected_close_date"},
}

func NewDealRepository(mongodb *database.MongodbDB) DealRepository {
	return &DealRepositoryImpl{
		Collection: mongodb.DB.Collection("deals"),
	}
}

func (r *DealRepositoryImpl) Create(ctx context.Context, deal *Deal) error {
	if deal.ID.IsZero() {
		deal.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, deal)
	return apperr.FromMongo(err, "deal")
}

func (r *DealRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Deal, error) {
	var deal Deal
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&deal); err != nil {
		return nil, apperr.FromMongo(err, "deal")
	}
	return &deal, nil
}

func (r *DealRepositoryImpl) Update(ctx context.Context, deal *Deal) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": deal.ID}, deal)
	if err != nil {
		return apperr.FromMongo(err, "deal")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("deal")
	}
	return nil
}

func (r *DealRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("deal")
	}
	return nil
}

func (r *DealRepositoryImpl) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.Collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *DealRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Deal], error) {
	return query.List[Deal](ctx, r.Collection, ListSpec, params)
}

func (r *DealRepositoryImpl) Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]Deal, error) {
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
	deals := make([]Deal, 0)
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *DealRepositoryImpl) IDsWhere(ctx context.Context, field string, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
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

func (r *DealRepositoryImpl) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.Collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *DealRepositoryImpl) ClearCompany(ctx context.Context, companyID primitive.ObjectID) error {
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"company_id": companyID},
		bson.M{"$set": bson.M{"company_id": nil, "updated_at": time.Now().UTC()}})
	return err
}

func (r *DealRepositoryImpl) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return r.Collection.CountDocuments(ctx, filter)
}

func (r *DealRepositoryImpl) SumAmount(ctx context.Context, filter bson.M) (decimal.Decimal, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := r.Collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return decimal.Zero, err
	}
	var rows []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, err
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].Total, nil
}

// StageTotals counts and sums every deal by stage, ordered by stage
func (r *DealRepositoryImpl) StageTotals(ctx context.Context) ([]StageTotal, error) {
	cursor, err := r.Collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          "$stage",
			"count":        bson.M{"$sum": 1},
			"total_amount": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	totals := make([]StageTotal, 0)
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *DealRepositoryImpl) CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return query.Times(ctx, r.Collection, "created_at", bson.M{"created_at": bson.M{"$gte": from, "$lt": to}})
}

func (r *DealRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "contact_id", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "stage", Value: 1}}},
		{Keys: bson.D{{Key: "expected_close_date", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}
