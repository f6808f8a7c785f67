package target

import (
	"context"
	"testing"

	common_models "salescrm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegistryDispatchesByKind(t *testing.T) {
	contactID := primitive.NewObjectID()
	dealID := primitive.NewObjectID()

	r := &Registry{lookups: map[common_models.EntityKind]existsFunc{
		common_models.EntityContact: func(ctx context.Context, id primitive.ObjectID) (bool, error) {
			return id == contactID, nil
		},
		common_models.EntityDeal: func(ctx context.Context, id primitive.ObjectID) (bool, error) {
			return id == dealID, nil
		},
	}}

	tests := []struct {
		name string
		ref  common_models.EntityRef
		want bool
	}{
		{"known contact", common_models.EntityRef{Kind: common_models.EntityContact, ID: contactID}, true},
		{"deal id as contact", common_models.EntityRef{Kind: common_models.EntityContact, ID: dealID}, false},
		{"known deal", common_models.EntityRef{Kind: common_models.EntityDeal, ID: dealID}, true},
		{"unknown kind", common_models.EntityRef{Kind: "invoice", ID: dealID}, false},
		{"zero id", common_models.EntityRef{Kind: common_models.EntityContact}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Exists(context.Background(), tt.ref)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Exists(%s) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}
