// Package target resolves typed entity references against the repositories
// that own each kind.
package target

import (
	"context"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type existsFunc func(ctx context.Context, id primitive.ObjectID) (bool, error)

// Registry implements common_models.TargetChecker
type Registry struct {
	lookups map[common_models.EntityKind]existsFunc
}

func NewRegistry(
	companies company.CompanyRepository,
	contacts contact.ContactRepository,
	deals deal.DealRepository,
	activities activity.ActivityRepository,
) *Registry {
	return &Registry{lookups: map[common_models.EntityKind]existsFunc{
		common_models.EntityCompany:  companies.Exists,
		common_models.EntityContact:  contacts.Exists,
		common_models.EntityDeal:     deals.Exists,
		common_models.EntityActivity: activities.Exists,
	}}
}

// Exists reports false for unknown kinds and zero ids
func (r *Registry) Exists(ctx context.Context, ref common_models.EntityRef) (bool, error) {
	lookup, ok := r.lookups[ref.Kind]
	if !ok || ref.ID.IsZero() {
		return false, nil
	}
	return lookup(ctx, ref.ID)
}
