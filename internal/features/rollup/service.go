package rollup

import (
	"context"
	"fmt"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/audit"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"
	"salescrm/internal/realtime"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Exporter receives each captured day for the reporting warehouse
type Exporter interface {
	Export(ctx context.Context, snapshots []PipelineSnapshot, summaries []ActivitySummary) error
}

// Rows is the CRUD service of one rollup collection
type Rows[T any, P row[T]] struct {
	Store     RowStore[T]
	Targets   common_models.TargetChecker
	Audit     audit.AuditService
	Publisher common_models.Publisher
	Module    string
}

func (s *Rows[T, P]) Create(ctx context.Context, doc *T) (*T, error) {
	P(doc).setID(primitive.NilObjectID)
	if err := s.validate(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.Store.Create(ctx, doc); err != nil {
		return nil, err
	}

	id := P(doc).getID().Hex()
	s.Audit.LogChange(ctx, common_models.AuditActionCreate, s.Module, id, audit.Snapshot(doc, true))
	realtime.Notify(s.Publisher, "created", s.Module, id)
	return doc, nil
}

func (s *Rows[T, P]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return s.Store.Get(ctx, id)
}

func (s *Rows[T, P]) Update(ctx context.Context, id primitive.ObjectID, apply func(*T) error) (*T, error) {
	doc, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *doc

	if err := apply(doc); err != nil {
		return nil, err
	}
	P(doc).setID(id)
	if err := s.validate(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.Store.Replace(ctx, id, doc); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, s.Module, id.Hex(), audit.Diff(before, doc))
	realtime.Notify(s.Publisher, "updated", s.Module, id.Hex())
	return doc, nil
}

func (s *Rows[T, P]) Delete(ctx context.Context, id primitive.ObjectID) error {
	doc, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, s.Module, id.Hex(), audit.Snapshot(doc, false))
	realtime.Notify(s.Publisher, "deleted", s.Module, id.Hex())
	return nil
}

func (s *Rows[T, P]) List(ctx context.Context, params query.ListParams) (*query.Page[T], error) {
	return s.Store.List(ctx, params)
}

func (s *Rows[T, P]) validate(ctx context.Context, doc *T) error {
	fe := apperr.FieldErrors{}
	P(doc).check(fe)
	if ref := P(doc).target(); ref != nil && !ref.ID.IsZero() {
		field := string(ref.Kind) + "_id"
		if err := common_models.RequireRef(ctx, s.Targets, fe, field, ref.Kind, ref.ID); err != nil {
			return err
		}
	}
	return fe.Err()
}

type RollupService struct {
	Summaries  *Rows[ActivitySummary, *ActivitySummary]
	Snapshots  *Rows[PipelineSnapshot, *PipelineSnapshot]
	Engagement *Rows[ContactEngagement, *ContactEngagement]
	Forecasts  *Rows[DealForecast, *DealForecast]

	repo       *RollupRepository
	deals      deal.DealRepository
	activities activity.ActivityRepository
	contacts   contact.ContactRepository
	companies  company.CompanyRepository
	exporter   Exporter
	audit      audit.AuditService
	publisher  common_models.Publisher
	logger     *zap.Logger
}

func NewRollupService(
	repo *RollupRepository,
	deals deal.DealRepository,
	activities activity.ActivityRepository,
	contacts contact.ContactRepository,
	companies company.CompanyRepository,
	targets common_models.TargetChecker,
	exporter Exporter,
	auditService audit.AuditService,
	publisher common_models.Publisher,
	logger *zap.Logger,
) *RollupService {
	return &RollupService{
		Summaries:  &Rows[ActivitySummary, *ActivitySummary]{Store: repo.Summaries, Targets: targets, Audit: auditService, Publisher: publisher, Module: "activity_summaries"},
		Snapshots:  &Rows[PipelineSnapshot, *PipelineSnapshot]{Store: repo.Snapshots, Targets: targets, Audit: auditService, Publisher: publisher, Module: "pipeline_snapshots"},
		Engagement: &Rows[ContactEngagement, *ContactEngagement]{Store: repo.Engagement, Targets: targets, Audit: auditService, Publisher: publisher, Module: "contact_engagement"},
		Forecasts:  &Rows[DealForecast, *DealForecast]{Store: repo.Forecasts, Targets: targets, Audit: auditService, Publisher: publisher, Module: "deal_forecasts"},
		repo:       repo,
		deals:      deals,
		activities: activities,
		contacts:   contacts,
		companies:  companies,
		exporter:   exporter,
		audit:      auditService,
		publisher:  publisher,
		logger:     logger,
	}
}

// Capture computes and stores the rollup rows of day. Running it twice for
// the same day leaves the same rows behind: rows of that day whose stage,
// owner, contact or deal no longer appear are pruned.
func (s *RollupService) Capture(ctx context.Context, day common_models.Date) (*CaptureResult, error) {
	if day.IsZero() {
		return nil, apperr.Invalid("date", "this field is required")
	}
	in, err := s.load(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load capture input: %w", err)
	}

	res := Compute(day, in)
	if err := s.persist(ctx, res); err != nil {
		return nil, fmt.Errorf("store rollups for %s: %w", day, err)
	}

	if s.exporter != nil {
		if err := s.exporter.Export(ctx, res.Snapshots, res.Summaries); err != nil {
			s.logger.Warn("Warehouse export failed", zap.String("date", day.String()), zap.Error(err))
		}
	}

	s.audit.LogChange(ctx, common_models.AuditActionCapture, "rollups", day.String(), map[string]common_models.Change{
		"pipeline_snapshots": {New: len(res.Snapshots)},
		"activity_summaries": {New: len(res.Summaries)},
		"contact_engagement": {New: len(res.Engagement)},
		"deal_forecasts":     {New: len(res.Forecasts)},
	})
	realtime.Notify(s.publisher, "captured", "rollup", day.String())
	return res, nil
}

func (s *RollupService) load(ctx context.Context, day common_models.Date) (Input, error) {
	from, to := dayWindow(day)
	window := bson.M{"$gte": from, "$lt": to}

	var in Input
	var err error
	if in.Deals, err = s.deals.Find(ctx, bson.M{"is_active": true}, nil, 0); err != nil {
		return in, err
	}
	touched := bson.M{"$or": bson.A{
		bson.M{"created_at": window},
		bson.M{"actual_close_date": day},
	}}
	if in.Touched, err = s.deals.Find(ctx, touched, nil, 0); err != nil {
		return in, err
	}
	occurred := bson.M{"$or": bson.A{
		bson.M{"completed_date": window},
		bson.M{"created_at": window},
	}}
	if in.Activities, err = s.activities.Find(ctx, occurred, nil, 0); err != nil {
		return in, err
	}
	if in.Contacts, err = s.contacts.Find(ctx, bson.M{"created_at": window}, 0); err != nil {
		return in, err
	}
	if in.Companies, err = s.companies.Find(ctx, bson.M{"created_at": window}, 0); err != nil {
		return in, err
	}
	return in, nil
}

func (s *RollupService) persist(ctx context.Context, res *CaptureResult) error {
	stages := make(bson.A, 0, len(res.Snapshots))
	for _, snap := range res.Snapshots {
		stages = append(stages, snap.Stage)
		err := s.repo.Snapshots.Upsert(ctx,
			bson.M{"date": snap.Date, "stage": snap.Stage},
			bson.M{"count": snap.Count, "total_value": snap.TotalValue, "weighted_value": snap.WeightedValue},
			nil)
		if err != nil {
			return err
		}
	}
	// stages that emptied since an earlier capture of the same day
	if err := s.repo.Snapshots.DeleteWhere(ctx, bson.M{"date": res.Date, "stage": bson.M{"$nin": stages}}); err != nil {
		return err
	}

	owners := make(bson.A, 0, len(res.Summaries))
	for _, sum := range res.Summaries {
		owners = append(owners, sum.OwnerID)
		err := s.repo.Summaries.Upsert(ctx,
			bson.M{"date": sum.Date, "owner_id": sum.OwnerID},
			bson.M{
				"calls_made":        sum.CallsMade,
				"emails_sent":       sum.EmailsSent,
				"meetings_held":     sum.MeetingsHeld,
				"tasks_completed":   sum.TasksCompleted,
				"notes_added":       sum.NotesAdded,
				"deals_created":     sum.DealsCreated,
				"deals_closed_won":  sum.DealsClosedWon,
				"deals_closed_lost": sum.DealsClosedLost,
				"revenue_closed":    sum.RevenueClosed,
				"contacts_created":  sum.ContactsCreated,
				"companies_created": sum.CompaniesCreated,
			},
			nil)
		if err != nil {
			return err
		}
	}

	if err := s.repo.Summaries.DeleteWhere(ctx, bson.M{"date": res.Date, "owner_id": bson.M{"$nin": owners}}); err != nil {
		return err
	}

	contacts := make(bson.A, 0, len(res.Engagement))
	for _, e := range res.Engagement {
		contacts = append(contacts, e.ContactID)
		err := s.repo.Engagement.Upsert(ctx,
			bson.M{"contact_id": e.ContactID, "date": e.Date},
			bson.M{"activities_count": e.ActivitiesCount, "last_activity_date": e.LastActivityDate},
			bson.M{"email_opens": 0, "email_clicks": 0, "website_visits": 0, "social_interactions": 0})
		if err != nil {
			return err
		}
	}

	if err := s.pruneEngagement(ctx, res.Date, contacts); err != nil {
		return err
	}

	deals := make(bson.A, 0, len(res.Forecasts))
	for _, f := range res.Forecasts {
		deals = append(deals, f.DealID)
		err := s.repo.Forecasts.Upsert(ctx,
			bson.M{"deal_id": f.DealID, "forecast_date": f.ForecastDate},
			bson.M{"forecasted_amount": f.ForecastedAmount, "probability": f.Probability, "confidence_level": f.ConfidenceLevel},
			bson.M{"notes": ""})
		if err != nil {
			return err
		}
	}
	// deals closed or deactivated since an earlier capture of the same day
	return s.repo.Forecasts.DeleteWhere(ctx, bson.M{"forecast_date": res.Date, "deal_id": bson.M{"$nin": deals}})
}

// pruneEngagement handles contacts with no activity left on day. Rows that
// only held captured counters are removed; rows with externally fed
// counters keep them and get their activity count reset.
func (s *RollupService) pruneEngagement(ctx context.Context, day common_models.Date, contacts bson.A) error {
	stale := bson.M{"date": day, "contact_id": bson.M{"$nin": contacts}}

	captureOnly := bson.M{"email_opens": 0, "email_clicks": 0, "website_visits": 0, "social_interactions": 0}
	for k, v := range stale {
		captureOnly[k] = v
	}
	if err := s.repo.Engagement.DeleteWhere(ctx, captureOnly); err != nil {
		return err
	}
	return s.repo.Engagement.UpdateWhere(ctx, stale, bson.M{"activities_count": 0, "last_activity_date": nil})
}

// DeleteForTargets drops engagement rows of deleted contacts and forecasts
// of deleted deals
func (s *RollupService) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	switch kind {
	case common_models.EntityContact:
		return s.repo.Engagement.DeleteWhere(ctx, bson.M{"contact_id": bson.M{"$in": ids}})
	case common_models.EntityDeal:
		return s.repo.Forecasts.DeleteWhere(ctx, bson.M{"deal_id": bson.M{"$in": ids}})
	}
	return nil
}
