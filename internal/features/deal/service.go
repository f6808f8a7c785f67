package deal

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

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityRemover deletes activities whose field references one of ids
type ActivityRemover interface {
	DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error
}

// StageOrderer maps stage keys of a configured pipeline to their position
type StageOrderer interface {
	StageOrder(ctx context.Context, pipelineID primitive.ObjectID) (map[string]int, error)
}

type DealService interface {
	Create(ctx context.Context, deal *Deal) (*Deal, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Deal, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Deal) error) (*Deal, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Deal], error)
	Pipeline(ctx context.Context, pipelineID *primitive.ObjectID) (*PipelineSummary, error)
	Stats(ctx context.Context) (*Stats, error)
}

type DealServiceImpl struct {
	Repo       DealRepository
	Targets    common_models.TargetChecker
	Activities ActivityRemover
	Stages     StageOrderer
	Cleaners   common_models.Cleaners
	Audit      audit.AuditService
	Publisher  common_models.Publisher
	now        func() time.Time
}

func NewDealService(
	repo DealRepository,
	targets common_models.TargetChecker,
	activities ActivityRemover,
	stages StageOrderer,
	cleaners common_models.Cleaners,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) DealService {
	return &DealServiceImpl{
		Repo:       repo,
		Targets:    targets,
		Activities: activities,
		Stages:     stages,
		Cleaners:   cleaners,
		Audit:      auditService,
		Publisher:  publisher,
		now:        time.Now,
	}
}

func (s *DealServiceImpl) Create(ctx context.Context, deal *Deal) (*Deal, error) {
	if deal.OwnerID == "" {
		if claims, ok := utils.ClaimsFromContext(ctx); ok {
			deal.OwnerID = claims.UserID
		}
	}
	deal.Name = strings.TrimSpace(deal.Name)
	if err := s.validate(ctx, deal); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	deal.ID = primitive.NilObjectID
	deal.CreatedAt = now
	deal.UpdatedAt = now

	if err := s.Repo.Create(ctx, deal); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "deals", deal.ID.Hex(), audit.Snapshot(deal, true))
	realtime.Notify(s.Publisher, "created", string(common_models.EntityDeal), deal.ID.Hex())
	return deal, nil
}

func (s *DealServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Deal, error) {
	return s.Repo.Get(ctx, id)
}

func (s *DealServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Deal) error) (*Deal, error) {
	deal, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *deal

	if err := apply(deal); err != nil {
		return nil, err
	}
	deal.ID = before.ID
	deal.CreatedAt = before.CreatedAt
	deal.Name = strings.TrimSpace(deal.Name)
	if err := s.validate(ctx, deal); err != nil {
		return nil, err
	}
	deal.UpdatedAt = s.now().UTC()

	if err := s.Repo.Update(ctx, deal); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "deals", id.Hex(), audit.Diff(before, deal))
	realtime.Notify(s.Publisher, "updated", string(common_models.EntityDeal), id.Hex())
	return deal, nil
}

func (s *DealServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	deal, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.removeDependents(ctx, []primitive.ObjectID{id}); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "deals", id.Hex(), audit.Snapshot(deal, false))
	realtime.Notify(s.Publisher, "deleted", string(common_models.EntityDeal), id.Hex())
	return nil
}

// DeleteByRelated removes every deal whose field references one of ids,
// along with the deals' own dependents.
func (s *DealServiceImpl) DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	dealIDs, err := s.Repo.IDsWhere(ctx, field, ids)
	if err != nil || len(dealIDs) == 0 {
		return err
	}
	if err := s.removeDependents(ctx, dealIDs); err != nil {
		return err
	}
	if err := s.Repo.DeleteMany(ctx, dealIDs); err != nil {
		return err
	}

	for _, id := range dealIDs {
		s.Audit.LogChange(ctx, common_models.AuditActionDelete, "deals", id.Hex(), nil)
		realtime.Notify(s.Publisher, "deleted", string(common_models.EntityDeal), id.Hex())
	}
	return nil
}

func (s *DealServiceImpl) removeDependents(ctx context.Context, ids []primitive.ObjectID) error {
	if s.Activities != nil {
		if err := s.Activities.DeleteByRelated(ctx, "deal_id", ids); err != nil {
			return err
		}
	}
	return s.Cleaners.DeleteForTargets(ctx, common_models.EntityDeal, ids)
}

func (s *DealServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Deal], error) {
	return s.Repo.List(ctx, params)
}

// Pipeline aggregates active deals by stage. Groups are lexical unless a
// pipeline is selected; the default pipeline is not looked up.
func (s *DealServiceImpl) Pipeline(ctx context.Context, pipelineID *primitive.ObjectID) (*PipelineSummary, error) {
	var order map[string]int
	if pipelineID != nil && s.Stages != nil {
		var err error
		if order, err = s.Stages.StageOrder(ctx, *pipelineID); err != nil {
			return nil, err
		}
	}

	deals, err := s.Repo.Find(ctx, bson.M{"is_active": true}, nil, 0)
	if err != nil {
		return nil, err
	}
	summary := Summarize(deals, order)
	return &summary, nil
}

func (s *DealServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.Repo.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	active, err := s.Repo.Count(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	recent, err := s.Repo.Count(ctx, bson.M{"created_at": bson.M{"$gte": s.now().UTC().AddDate(0, 0, -30)}})
	if err != nil {
		return nil, err
	}
	stages, err := s.Repo.StageTotals(ctx)
	if err != nil {
		return nil, err
	}
	deals, err := s.Repo.Find(ctx, bson.M{"is_active": true}, nil, 0)
	if err != nil {
		return nil, err
	}
	pipeline := Summarize(deals, nil)

	return &Stats{
		TotalDeals:          total,
		ActiveDeals:         active,
		RecentDeals:         recent,
		TotalPipeline:       pipeline.TotalAmount,
		WeightedPipeline:    pipeline.WeightedAmount,
		AvgWeightedPipeline: pipeline.AvgWeightedAmount,
		StageBreakdown:      stages,
	}, nil
}

func (s *DealServiceImpl) validate(ctx context.Context, d *Deal) error {
	fe := apperr.FieldErrors{}
	if d.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(d.Name) > 255 {
		fe.Add("name", "ensure this field has no more than 255 characters")
	}
	if d.Amount.LessThan(decimal.Zero) {
		fe.Add("amount", "must not be negative")
	}
	if len(d.Currency) != 3 {
		fe.Add("currency", "must be a 3-letter currency code")
	}
	if !utils.OneOf(d.Stage, Stages...) {
		fe.Add("stage", "\""+d.Stage+"\" is not a valid choice")
	}
	if !utils.OneOf(d.Priority, Priorities...) {
		fe.Add("priority", "\""+d.Priority+"\" is not a valid choice")
	}
	if d.Probability < 0 || d.Probability > 100 {
		fe.Add("probability", "must be between 0 and 100")
	}
	if d.ExpectedCloseDate.IsZero() {
		fe.Add("expected_close_date", "this field is required")
	}
	if d.ContactID.IsZero() {
		fe.Add("contact_id", "this field is required")
	} else if err := common_models.RequireRef(ctx, s.Targets, fe, "contact_id", common_models.EntityContact, d.ContactID); err != nil {
		return err
	}
	if d.CompanyID != nil {
		if err := common_models.RequireRef(ctx, s.Targets, fe, "company_id", common_models.EntityCompany, *d.CompanyID); err != nil {
			return err
		}
	}
	return fe.Err()
}
