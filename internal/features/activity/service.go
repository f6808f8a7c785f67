package activity

import (
	"context"
	"strings"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/audit"
	"salescrm/internal/realtime"
	"salescrm/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const upcomingLimit = 20

type ActivityService interface {
	Create(ctx context.Context, activity *Activity) (*Activity, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Activity, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Activity) error) (*Activity, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Activity], error)
	Upcoming(ctx context.Context, limit int64) ([]Activity, error)
	Recent(ctx context.Context, limit int64) ([]Activity, error)
	Stats(ctx context.Context) (*Stats, error)
}

type ActivityServiceImpl struct {
	Repo      ActivityRepository
	Targets   common_models.TargetChecker
	Cleaners  common_models.Cleaners
	Audit     audit.AuditService
	Publisher common_models.Publisher
	now       func() time.Time
}

func NewActivityService(
	repo ActivityRepository,
	targets common_models.TargetChecker,
	cleaners common_models.Cleaners,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) ActivityService {
	return &ActivityServiceImpl{
		Repo:      repo,
		Targets:   targets,
		Cleaners:  cleaners,
		Audit:     auditService,
		Publisher: publisher,
		now:       time.Now,
	}
}

func (s *ActivityServiceImpl) Create(ctx context.Context, activity *Activity) (*Activity, error) {
	if activity.OwnerID == "" {
		if claims, ok := utils.ClaimsFromContext(ctx); ok {
			activity.OwnerID = claims.UserID
		}
	}
	activity.Subject = strings.TrimSpace(activity.Subject)
	if err := s.validate(ctx, activity); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	activity.ID = primitive.NilObjectID
	activity.CompletedDate = nil
	activity.markCompleted(now)
	activity.CreatedAt = now
	activity.UpdatedAt = now

	if err := s.Repo.Create(ctx, activity); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "activities", activity.ID.Hex(), audit.Snapshot(activity, true))
	realtime.Notify(s.Publisher, "created", string(common_models.EntityActivity), activity.ID.Hex())
	return activity, nil
}

func (s *ActivityServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Activity, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ActivityServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Activity) error) (*Activity, error) {
	activity, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *activity

	if err := apply(activity); err != nil {
		return nil, err
	}
	activity.ID = before.ID
	activity.CreatedAt = before.CreatedAt
	activity.CompletedDate = before.CompletedDate
	activity.Subject = strings.TrimSpace(activity.Subject)
	if err := s.validate(ctx, activity); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	activity.markCompleted(now)
	activity.UpdatedAt = now

	if err := s.Repo.Update(ctx, activity); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "activities", id.Hex(), audit.Diff(before, activity))
	realtime.Notify(s.Publisher, "updated", string(common_models.EntityActivity), id.Hex())
	return activity, nil
}

func (s *ActivityServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	activity, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Cleaners.DeleteForTargets(ctx, common_models.EntityActivity, []primitive.ObjectID{id}); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "activities", id.Hex(), audit.Snapshot(activity, false))
	realtime.Notify(s.Publisher, "deleted", string(common_models.EntityActivity), id.Hex())
	return nil
}

// DeleteByRelated removes activities whose field (contact_id, company_id or
// deal_id) references one of ids.
func (s *ActivityServiceImpl) DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	activityIDs, err := s.Repo.IDsWhere(ctx, field, ids)
	if err != nil || len(activityIDs) == 0 {
		return err
	}
	if err := s.Cleaners.DeleteForTargets(ctx, common_models.EntityActivity, activityIDs); err != nil {
		return err
	}
	if err := s.Repo.DeleteMany(ctx, activityIDs); err != nil {
		return err
	}

	for _, id := range activityIDs {
		s.Audit.LogChange(ctx, common_models.AuditActionDelete, "activities", id.Hex(), nil)
		realtime.Notify(s.Publisher, "deleted", string(common_models.EntityActivity), id.Hex())
	}
	return nil
}

func (s *ActivityServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Activity], error) {
	return s.Repo.List(ctx, params)
}

// Upcoming returns pending activities due from now on, soonest first
func (s *ActivityServiceImpl) Upcoming(ctx context.Context, limit int64) ([]Activity, error) {
	if limit <= 0 || limit > upcomingLimit {
		limit = upcomingLimit
	}
	return s.Repo.Find(ctx,
		bson.M{"status": StatusPending, "due_date": bson.M{"$gte": s.now().UTC()}},
		bson.D{{Key: "due_date", Value: 1}},
		limit)
}

func (s *ActivityServiceImpl) Recent(ctx context.Context, limit int64) ([]Activity, error) {
	return s.Repo.Find(ctx, bson.M{}, bson.D{{Key: "created_at", Value: -1}}, limit)
}

func (s *ActivityServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.Repo.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	completed, err := s.Repo.Count(ctx, bson.M{"status": StatusCompleted})
	if err != nil {
		return nil, err
	}
	pending, err := s.Repo.Count(ctx, bson.M{"status": StatusPending})
	if err != nil {
		return nil, err
	}
	recent, err := s.Repo.Count(ctx, bson.M{"created_at": bson.M{"$gte": s.now().UTC().AddDate(0, 0, -30)}})
	if err != nil {
		return nil, err
	}
	types, err := s.Repo.CountBy(ctx, "activity_type", nil)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalActivities:     total,
		CompletedActivities: completed,
		PendingActivities:   pending,
		RecentActivities:    recent,
		TypeBreakdown:       query.Buckets(types, "activity_type"),
	}, nil
}

func (s *ActivityServiceImpl) validate(ctx context.Context, a *Activity) error {
	fe := apperr.FieldErrors{}
	if a.ActivityType == "" {
		fe.Add("activity_type", "this field is required")
	} else if !utils.OneOf(a.ActivityType, Types...) {
		fe.Add("activity_type", "\""+a.ActivityType+"\" is not a valid choice")
	}
	if a.Subject == "" {
		fe.Add("subject", "this field is required")
	} else if len(a.Subject) > 255 {
		fe.Add("subject", "ensure this field has no more than 255 characters")
	}
	if !utils.OneOf(a.Status, Statuses...) {
		fe.Add("status", "\""+a.Status+"\" is not a valid choice")
	}
	if a.DurationMinutes != nil && *a.DurationMinutes < 0 {
		fe.Add("duration_minutes", "must not be negative")
	}

	refs := []struct {
		field string
		kind  common_models.EntityKind
		id    *primitive.ObjectID
	}{
		{"contact_id", common_models.EntityContact, a.ContactID},
		{"company_id", common_models.EntityCompany, a.CompanyID},
		{"deal_id", common_models.EntityDeal, a.DealID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if err := common_models.RequireRef(ctx, s.Targets, fe, ref.field, ref.kind, *ref.id); err != nil {
			return err
		}
	}
	return fe.Err()
}
