package models

import (
	"context"

	"salescrm/internal/common/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TargetChecker reports whether a referenced record exists
type TargetChecker interface {
	Exists(ctx context.Context, ref EntityRef) (bool, error)
}

// RequireRef adds a field error when the referenced record does not exist.
// The returned error is only for lookup failures.
func RequireRef(ctx context.Context, checker TargetChecker, fe apperr.FieldErrors, field string, kind EntityKind, id primitive.ObjectID) error {
	ok, err := checker.Exists(ctx, EntityRef{Kind: kind, ID: id})
	if err != nil {
		return err
	}
	if !ok {
		fe.Add(field, "invalid pk \""+id.Hex()+"\" - object does not exist")
	}
	return nil
}
