package tag

import (
	"context"
	"regexp"
	"strings"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/audit"
	"salescrm/internal/realtime"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type TagService interface {
	Create(ctx context.Context, tag *Tag) (*Tag, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Tag, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Tag) error) (*Tag, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Tag], error)
}

type TagServiceImpl struct {
	Repo        TagRepository
	Assignments AssignmentRepository
	Audit       audit.AuditService
	Publisher   common_models.Publisher
}

func NewTagService(repo TagRepository, assignments AssignmentRepository, auditService audit.AuditService, publisher common_models.Publisher) TagService {
	return &TagServiceImpl{
		Repo:        repo,
		Assignments: assignments,
		Audit:       auditService,
		Publisher:   publisher,
	}
}

func (s *TagServiceImpl) Create(ctx context.Context, tag *Tag) (*Tag, error) {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Color == "" {
		tag.Color = DefaultColor
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tag.ID = primitive.NilObjectID
	tag.CreatedAt = now
	tag.UpdatedAt = now
	if err := s.Repo.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "tags", tag.ID.Hex(), audit.Snapshot(tag, true))
	realtime.Notify(s.Publisher, "created", "tag", tag.ID.Hex())
	return tag, nil
}

func (s *TagServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Tag, error) {
	return s.Repo.Get(ctx, id)
}

func (s *TagServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Tag) error) (*Tag, error) {
	tag, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *tag

	if err := apply(tag); err != nil {
		return nil, err
	}
	tag.ID = before.ID
	tag.CreatedAt = before.CreatedAt
	tag.Name = strings.TrimSpace(tag.Name)
	if err := validateTag(tag); err != nil {
		return nil, err
	}
	tag.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, tag); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "tags", id.Hex(), audit.Diff(before, tag))
	realtime.Notify(s.Publisher, "updated", "tag", id.Hex())
	return tag, nil
}

// Delete removes the tag and every assignment of it
func (s *TagServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	tag, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Assignments.DeleteByTag(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "tags", id.Hex(), audit.Snapshot(tag, false))
	realtime.Notify(s.Publisher, "deleted", "tag", id.Hex())
	return nil
}

func (s *TagServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Tag], error) {
	return s.Repo.List(ctx, params)
}

func validateTag(t *Tag) error {
	fe := apperr.FieldErrors{}
	if t.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(t.Name) > 50 {
		fe.Add("name", "ensure this field has no more than 50 characters")
	}
	if !colorPattern.MatchString(t.Color) {
		fe.Add("color", "must be a hex color code like #007bff")
	}
	return fe.Err()
}

type AssignmentService interface {
	Assign(ctx context.Context, kind common_models.EntityKind, in AssignmentInput) (*Assignment, error)
	Get(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) (*Assignment, error)
	Unassign(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) error
	List(ctx context.Context, kind common_models.EntityKind, params query.ListParams) (*query.Page[Assignment], error)
	DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error
}

type AssignmentServiceImpl struct {
	Repo    AssignmentRepository
	Tags    TagRepository
	Targets common_models.TargetChecker
	Audit   audit.AuditService
}

func NewAssignmentService(repo AssignmentRepository, tags TagRepository, targets common_models.TargetChecker, auditService audit.AuditService) AssignmentService {
	return &AssignmentServiceImpl{
		Repo:    repo,
		Tags:    tags,
		Targets: targets,
		Audit:   auditService,
	}
}

// Assign tags one record. Assigning the same tag twice is a Conflict.
func (s *AssignmentServiceImpl) Assign(ctx context.Context, kind common_models.EntityKind, in AssignmentInput) (*Assignment, error) {
	fe := apperr.FieldErrors{}
	targetField := string(kind) + "_id"

	tagID, err := primitive.ObjectIDFromHex(in.TagID)
	if err != nil {
		fe.Add("tag_id", "must be a valid id")
	}
	targetID, err := primitive.ObjectIDFromHex(in.TargetHex(kind))
	if err != nil {
		fe.Add(targetField, "must be a valid id")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	tag, err := s.Tags.Get(ctx, tagID)
	if apperr.IsNotFound(err) {
		fe.Add("tag_id", "invalid pk \""+tagID.Hex()+"\" - object does not exist")
	} else if err != nil {
		return nil, err
	}
	if err := common_models.RequireRef(ctx, s.Targets, fe, targetField, kind, targetID); err != nil {
		return nil, err
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	a := &Assignment{
		TagID:     tagID,
		Target:    common_models.EntityRef{Kind: kind, ID: targetID},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, err
	}
	a.Tag = tag

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, string(kind)+"_tags", a.ID.Hex(), map[string]common_models.Change{
		"tag_id":    {New: tagID.Hex()},
		targetField: {New: targetID.Hex()},
	})
	return a, nil
}

func (s *AssignmentServiceImpl) Get(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) (*Assignment, error) {
	a, err := s.Repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, []*Assignment{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssignmentServiceImpl) Unassign(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) error {
	if err := s.Repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionDelete, string(kind)+"_tags", id.Hex(), nil)
	return nil
}

func (s *AssignmentServiceImpl) List(ctx context.Context, kind common_models.EntityKind, params query.ListParams) (*query.Page[Assignment], error) {
	page, err := s.Repo.List(ctx, kind, params)
	if err != nil {
		return nil, err
	}
	refs := make([]*Assignment, len(page.Data))
	for i := range page.Data {
		refs[i] = &page.Data[i]
	}
	if err := s.attachTags(ctx, refs); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *AssignmentServiceImpl) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	return s.Repo.DeleteForTargets(ctx, kind, ids)
}

func (s *AssignmentServiceImpl) attachTags(ctx context.Context, as []*Assignment) error {
	ids := make([]primitive.ObjectID, 0, len(as))
	for _, a := range as {
		ids = append(ids, a.TagID)
	}
	tags, err := s.Tags.GetMany(ctx, ids)
	if err != nil {
		return err
	}
	for _, a := range as {
		a.Tag = tags[a.TagID]
	}
	return nil
}
