package customfield

import (
	"context"
	"testing"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/testutil"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValueRepositoryUniquePerTarget(t *testing.T) {
	db := testutil.MongoDB(t)
	ctx := context.Background()

	repo := NewValueRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	target := common_models.EntityRef{Kind: common_models.EntityContact, ID: primitive.NewObjectID()}
	fieldID := primitive.NewObjectID()

	if err := repo.Create(ctx, &CustomFieldValue{CustomFieldID: fieldID, Target: target, JSONValue: []string{}}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, &CustomFieldValue{CustomFieldID: fieldID, Target: target, JSONValue: []string{}})
	if !apperr.IsConflict(err) {
		t.Fatalf("second Create() error = %v, want conflict", err)
	}

	found, err := repo.Find(ctx, fieldID, target)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found.Target != target {
		t.Errorf("target = %v, want %v", found.Target, target)
	}
}
