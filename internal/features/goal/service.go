package goal

import (
	"context"
	"strings"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/audit"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"
	"salescrm/internal/realtime"
	"salescrm/pkg/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GoalService interface {
	Create(ctx context.Context, goal *SalesGoal) (*SalesGoal, error)
	Get(ctx context.Context, id primitive.ObjectID) (*SalesGoal, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*SalesGoal) error) (*SalesGoal, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[SalesGoal], error)
	Progress(ctx context.Context, id primitive.ObjectID) (*Progress, error)
}

type counter interface {
	Count(ctx context.Context, filter bson.M) (int64, error)
}

type dealSource interface {
	counter
	Find(ctx context.Context, filter bson.M, sort bson.D, limit int64) ([]deal.Deal, error)
}

type GoalServiceImpl struct {
	Repo       GoalRepository
	Deals      dealSource
	Contacts   counter
	Activities counter
	Audit      audit.AuditService
	Publisher  common_models.Publisher
}

func NewGoalService(
	repo GoalRepository,
	deals deal.DealRepository,
	contacts contact.ContactRepository,
	activities activity.ActivityRepository,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) GoalService {
	return &GoalServiceImpl{
		Repo:       repo,
		Deals:      deals,
		Contacts:   contacts,
		Activities: activities,
		Audit:      auditService,
		Publisher:  publisher,
	}
}

func (s *GoalServiceImpl) Create(ctx context.Context, goal *SalesGoal) (*SalesGoal, error) {
	goal.Name = strings.TrimSpace(goal.Name)
	goal.Currency = strings.ToUpper(goal.Currency)
	if err := validateGoal(goal); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	goal.ID = primitive.NilObjectID
	goal.CreatedAt = now
	goal.UpdatedAt = now
	if err := s.Repo.Create(ctx, goal); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "sales_goals", goal.ID.Hex(), audit.Snapshot(goal, true))
	realtime.Notify(s.Publisher, "created", "sales_goal", goal.ID.Hex())
	return goal, nil
}

func (s *GoalServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*SalesGoal, error) {
	return s.Repo.Get(ctx, id)
}

func (s *GoalServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*SalesGoal) error) (*SalesGoal, error) {
	goal, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *goal

	if err := apply(goal); err != nil {
		return nil, err
	}
	goal.ID = before.ID
	goal.CreatedAt = before.CreatedAt
	goal.Name = strings.TrimSpace(goal.Name)
	goal.Currency = strings.ToUpper(goal.Currency)
	if err := validateGoal(goal); err != nil {
		return nil, err
	}
	goal.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "sales_goals", id.Hex(), audit.Diff(before, goal))
	realtime.Notify(s.Publisher, "updated", "sales_goal", id.Hex())
	return goal, nil
}

func (s *GoalServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	goal, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "sales_goals", id.Hex(), audit.Snapshot(goal, false))
	realtime.Notify(s.Publisher, "deleted", "sales_goal", id.Hex())
	return nil
}

func (s *GoalServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[SalesGoal], error) {
	return s.Repo.List(ctx, params)
}

// Progress measures the goal's metric over [start_date, end_date], both
// days inclusive, scoped to the owner when one is set.
func (s *GoalServiceImpl) Progress(ctx context.Context, id primitive.ObjectID) (*Progress, error) {
	goal, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := goal.StartDate.Time
	to := goal.EndDate.Time.AddDate(0, 0, 1)
	window := bson.M{"$gte": from, "$lt": to}
	scoped := func(filter bson.M) bson.M {
		if goal.OwnerID != "" {
			filter["owner_id"] = goal.OwnerID
		}
		return filter
	}

	var value decimal.Decimal
	switch goal.GoalType {
	case GoalRevenue:
		won, err := s.Deals.Find(ctx, scoped(bson.M{"stage": deal.StageClosedWon}), nil, 0)
		if err != nil {
			return nil, err
		}
		value = decimal.Zero
		for _, d := range won {
			closed := d.ClosedOn()
			if !closed.Before(from) && closed.Before(to) {
				value = value.Add(d.Amount)
			}
		}
	case GoalDeals:
		n, err := s.Deals.Count(ctx, scoped(bson.M{"created_at": window}))
		if err != nil {
			return nil, err
		}
		value = decimal.NewFromInt(n)
	case GoalContacts:
		n, err := s.Contacts.Count(ctx, scoped(bson.M{"created_at": window}))
		if err != nil {
			return nil, err
		}
		value = decimal.NewFromInt(n)
	case GoalActivities:
		n, err := s.Activities.Count(ctx, scoped(bson.M{"status": activity.StatusCompleted, "completed_date": window}))
		if err != nil {
			return nil, err
		}
		value = decimal.NewFromInt(n)
	default:
		return nil, apperr.Invalid("goal_type", "\""+goal.GoalType+"\" is not a valid choice")
	}

	return &Progress{
		GoalID:    goal.ID,
		GoalType:  goal.GoalType,
		Value:     value,
		Target:    goal.TargetValue,
		Percent:   Percent(value, goal.TargetValue),
		StartDate: goal.StartDate,
		EndDate:   goal.EndDate,
	}, nil
}

func validateGoal(g *SalesGoal) error {
	fe := apperr.FieldErrors{}
	if g.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(g.Name) > 200 {
		fe.Add("name", "ensure this field has no more than 200 characters")
	}
	if !utils.OneOf(g.GoalType, GoalTypes...) {
		fe.Add("goal_type", "\""+g.GoalType+"\" is not a valid choice")
	}
	if !utils.OneOf(g.PeriodType, PeriodTypes...) {
		fe.Add("period_type", "\""+g.PeriodType+"\" is not a valid choice")
	}
	if g.TargetValue.IsNegative() {
		fe.Add("target_value", "must not be negative")
	}
	if len(g.Currency) != 3 {
		fe.Add("currency", "must be a 3-letter currency code")
	}
	if g.StartDate.IsZero() {
		fe.Add("start_date", "this field is required")
	}
	if g.EndDate.IsZero() {
		fe.Add("end_date", "this field is required")
	}
	if !g.StartDate.IsZero() && !g.EndDate.IsZero() && g.EndDate.Before(g.StartDate.Time) {
		fe.Add("end_date", "must not be before start_date")
	}
	return fe.Err()
}
