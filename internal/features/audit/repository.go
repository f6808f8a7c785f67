package audit

import (
	"context"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRepository interface {
	Create(ctx context.Context, log common_models.AuditLog) error
	List(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error)
	EnsureIndexes(ctx context.Context) error
}

type AuditRepositoryImpl struct {
	Collection *mongo.Collection
}

var listSpec = query.Spec{
	Filters: map[string]query.Field{
		"module":    {Kind: query.Text},
		"record_id": {Kind: query.Text},
		"action":    {Kind: query.Text},
		"actor_id":  {Kind: query.Text},
	},
	Ordering:     []string{"timestamp"},
	DefaultOrder: []string{"-timestamp"},
}

func NewAuditRepository(mongodb *database.MongodbDB) AuditRepository {
	return &AuditRepositoryImpl{
		Collection: mongodb.DB.Collection("audit_logs"),
	}
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, log common_models.AuditLog) error {
	_, err := r.Collection.InsertOne(ctx, log)
	return err
}

func (r *AuditRepositoryImpl) List(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return query.List[common_models.AuditLog](ctx, r.Collection, listSpec, params)
}

func (r *AuditRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "module", Value: 1}, {Key: "record_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("timestamp_desc")},
	})
	return err
}
