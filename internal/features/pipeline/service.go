package pipeline

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

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PipelineService interface {
	Create(ctx context.Context, p *Pipeline) (*Pipeline, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Pipeline, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Pipeline) error) (*Pipeline, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Pipeline], error)
	Stages(ctx context.Context, id primitive.ObjectID) ([]Stage, error)
	StageOrder(ctx context.Context, id primitive.ObjectID) (map[string]int, error)

	CreateStage(ctx context.Context, s *Stage) (*Stage, error)
	GetStage(ctx context.Context, id primitive.ObjectID) (*Stage, error)
	UpdateStage(ctx context.Context, id primitive.ObjectID, apply func(*Stage) error) (*Stage, error)
	DeleteStage(ctx context.Context, id primitive.ObjectID) error
	ListStages(ctx context.Context, params query.ListParams) (*query.Page[Stage], error)
}

type PipelineServiceImpl struct {
	Repo      PipelineRepository
	StageRepo StageRepository
	Audit     audit.AuditService
	Publisher common_models.Publisher
}

func NewPipelineService(repo PipelineRepository, stages StageRepository, auditService audit.AuditService, publisher common_models.Publisher) PipelineService {
	return &PipelineServiceImpl{
		Repo:      repo,
		StageRepo: stages,
		Audit:     auditService,
		Publisher: publisher,
	}
}

func (s *PipelineServiceImpl) Create(ctx context.Context, p *Pipeline) (*Pipeline, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validatePipeline(p); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.ID = primitive.NilObjectID
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}
	if err := s.exclusiveDefault(ctx, p); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "pipelines", p.ID.Hex(), audit.Snapshot(p, true))
	realtime.Notify(s.Publisher, "created", "pipeline", p.ID.Hex())
	return p, nil
}

func (s *PipelineServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Pipeline, error) {
	return s.Repo.Get(ctx, id)
}

func (s *PipelineServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Pipeline) error) (*Pipeline, error) {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *p

	if err := apply(p); err != nil {
		return nil, err
	}
	p.ID = before.ID
	p.CreatedAt = before.CreatedAt
	p.Name = strings.TrimSpace(p.Name)
	if err := validatePipeline(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := s.exclusiveDefault(ctx, p); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "pipelines", id.Hex(), audit.Diff(before, p))
	realtime.Notify(s.Publisher, "updated", "pipeline", id.Hex())
	return p, nil
}

// Delete removes the pipeline and all of its stages
func (s *PipelineServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.StageRepo.DeleteByPipeline(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "pipelines", id.Hex(), audit.Snapshot(p, false))
	realtime.Notify(s.Publisher, "deleted", "pipeline", id.Hex())
	return nil
}

func (s *PipelineServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Pipeline], error) {
	return s.Repo.List(ctx, params)
}

func (s *PipelineServiceImpl) Stages(ctx context.Context, id primitive.ObjectID) ([]Stage, error) {
	if _, err := s.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.StageRepo.ForPipeline(ctx, id)
}

// StageOrder maps each stage of the pipeline, keyed the way deals store
// their stage, to its configured order.
func (s *PipelineServiceImpl) StageOrder(ctx context.Context, id primitive.ObjectID) (map[string]int, error) {
	stages, err := s.Stages(ctx, id)
	if err != nil {
		return nil, err
	}
	order := make(map[string]int, len(stages))
	for _, st := range stages {
		key := utils.StageKey(st.Name)
		if _, seen := order[key]; !seen {
			order[key] = st.Order
		}
	}
	return order, nil
}

func (s *PipelineServiceImpl) exclusiveDefault(ctx context.Context, p *Pipeline) error {
	if !p.IsDefault {
		return nil
	}
	return s.Repo.ClearDefault(ctx, p.ID)
}

func (s *PipelineServiceImpl) CreateStage(ctx context.Context, st *Stage) (*Stage, error) {
	st.Name = strings.TrimSpace(st.Name)
	if err := s.validateStage(ctx, st); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	st.ID = primitive.NilObjectID
	st.CreatedAt = now
	st.UpdatedAt = now
	if err := s.StageRepo.Create(ctx, st); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "pipeline_stages", st.ID.Hex(), audit.Snapshot(st, true))
	realtime.Notify(s.Publisher, "created", "pipeline_stage", st.ID.Hex())
	return st, nil
}

func (s *PipelineServiceImpl) GetStage(ctx context.Context, id primitive.ObjectID) (*Stage, error) {
	return s.StageRepo.Get(ctx, id)
}

func (s *PipelineServiceImpl) UpdateStage(ctx context.Context, id primitive.ObjectID, apply func(*Stage) error) (*Stage, error) {
	st, err := s.StageRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *st

	if err := apply(st); err != nil {
		return nil, err
	}
	st.ID = before.ID
	st.CreatedAt = before.CreatedAt
	st.Name = strings.TrimSpace(st.Name)
	if err := s.validateStage(ctx, st); err != nil {
		return nil, err
	}
	st.UpdatedAt = time.Now().UTC()
	if err := s.StageRepo.Update(ctx, st); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "pipeline_stages", id.Hex(), audit.Diff(before, st))
	realtime.Notify(s.Publisher, "updated", "pipeline_stage", id.Hex())
	return st, nil
}

func (s *PipelineServiceImpl) DeleteStage(ctx context.Context, id primitive.ObjectID) error {
	st, err := s.StageRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.StageRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "pipeline_stages", id.Hex(), audit.Snapshot(st, false))
	realtime.Notify(s.Publisher, "deleted", "pipeline_stage", id.Hex())
	return nil
}

func (s *PipelineServiceImpl) ListStages(ctx context.Context, params query.ListParams) (*query.Page[Stage], error) {
	return s.StageRepo.List(ctx, params)
}

func validatePipeline(p *Pipeline) error {
	fe := apperr.FieldErrors{}
	if p.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(p.Name) > 100 {
		fe.Add("name", "ensure this field has no more than 100 characters")
	}
	return fe.Err()
}

func (s *PipelineServiceImpl) validateStage(ctx context.Context, st *Stage) error {
	fe := apperr.FieldErrors{}
	if st.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(st.Name) > 100 {
		fe.Add("name", "ensure this field has no more than 100 characters")
	}
	if st.Order < 0 {
		fe.Add("order", "must not be negative")
	}
	if st.Probability < 0 || st.Probability > 100 {
		fe.Add("probability", "must be between 0 and 100")
	}
	if st.PipelineID.IsZero() {
		fe.Add("pipeline_id", "this field is required")
	} else if _, err := s.Repo.Get(ctx, st.PipelineID); apperr.IsNotFound(err) {
		fe.Add("pipeline_id", "invalid pk \""+st.PipelineID.Hex()+"\" - object does not exist")
	} else if err != nil {
		return err
	}
	return fe.Err()
}
