package contact

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

type ContactRepository interface {
	Create(ctx context.Context, contact *Contact) error
	Get(ctx context.Context, id primitive.ObjectID) (*Contact, error)
	Update(ctx context.Context, contact *Contact) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Contact], error)
	Find(ctx context.Context, filter bson.M, limit int64) ([]Contact, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	FindByEmail(ctx context.Context, email string) (*Contact, error)
	ClearCompany(ctx context.Context, companyID primitive.ObjectID) error
	Count(ctx context.Context, filter bson.M) (int64, error)
	CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error)
	CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
	EnsureIndexes(ctx context.Context) error
}

type ContactRepositoryImpl struct {
	Collection *mongo.Collection
}

var ListSpec = query.Spec{
	Filters: map[string]query.Field{
		"status":     {Kind: query.Text},
		"is_active":  {Kind: query.Bool},
		"owner_id":   {Kind: query.Text},
		"company_id": {Kind: query.ObjectID},
	},
	Search: []string{"first_name", "last_name", "email", "phone"},
	Related: []query.Related{
		{Field: "company_id", Collection: "companies", Search: []string{"name"}},
	},
	Ordering:     []string{"last_name", "first_name", "created_at"},
	DefaultOrder: []string{"last_name", "first_name"},
}

func NewContactRepository(mongodb *database.MongodbDB) ContactRepository {
	return &ContactRepositoryImpl{
		Collection: mongodb.DB.Collection("contacts"),
	}
}

func (r *ContactRepositoryImpl) Create(ctx context.Context, contact *Contact) error {
	if contact.ID.IsZero() {
		contact.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, contact)
	return apperr.FromMongo(err, "contact")
}

func (r *ContactRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Contact, error) {
	var contact Contact
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contact); err != nil {
		return nil, apperr.FromMongo(err, "contact")
	}
	return &contact, nil
}

func (r *ContactRepositoryImpl) Update(ctx context.Context, contact *Contact) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": contact.ID}, contact)
	if err != nil {
		return apperr.FromMongo(err, "contact")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("contact")
	}
	return nil
}

func (r *ContactRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("contact")
	}
	return nil
}

func (r *ContactRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Contact], error) {
	return query.List[Contact](ctx, r.Collection, ListSpec, params)
}

func (r *ContactRepositoryImpl) Find(ctx context.Context, filter bson.M, limit int64) ([]Contact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	contacts := make([]Contact, 0)
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepositoryImpl) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.Collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *ContactRepositoryImpl) FindByEmail(ctx context.Context, email string) (*Contact, error) {
	var contact Contact
	if err := r.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&contact); err != nil {
		return nil, apperr.FromMongo(err, "contact")
	}
	return &contact, nil
}

// ClearCompany detaches contacts from a deleted company
func (r *ContactRepositoryImpl) ClearCompany(ctx context.Context, companyID primitive.ObjectID) error {
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"company_id": companyID},
		bson.M{"$set": bson.M{"company_id": nil, "updated_at": time.Now().UTC()}})
	return err
}

func (r *ContactRepositoryImpl) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return r.Collection.CountDocuments(ctx, filter)
}

func (r *ContactRepositoryImpl) CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error) {
	return query.CountBy(ctx, r.Collection, field, filter, 0)
}

func (r *ContactRepositoryImpl) CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return query.Times(ctx, r.Collection, "created_at", bson.M{"created_at": bson.M{"$gte": from, "$lt": to}})
}

func (r *ContactRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
		{Keys: bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}
