package contact

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

// RelatedRemover deletes records whose field references one of ids
type RelatedRemover interface {
	DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error
}

// RelatedRemovers run in order on contact delete: deals first, then activities
type RelatedRemovers []RelatedRemover

type ContactService interface {
	Create(ctx context.Context, contact *Contact) (*Contact, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Contact, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Contact) error) (*Contact, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Contact], error)
	Stats(ctx context.Context) (*Stats, error)
}

type ContactServiceImpl struct {
	Repo      ContactRepository
	Targets   common_models.TargetChecker
	Removers  RelatedRemovers
	Cleaners  common_models.Cleaners
	Audit     audit.AuditService
	Publisher common_models.Publisher
	now       func() time.Time
}

func NewContactService(
	repo ContactRepository,
	targets common_models.TargetChecker,
	removers RelatedRemovers,
	cleaners common_models.Cleaners,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) ContactService {
	return &ContactServiceImpl{
		Repo:      repo,
		Targets:   targets,
		Removers:  removers,
		Cleaners:  cleaners,
		Audit:     auditService,
		Publisher: publisher,
		now:       time.Now,
	}
}

func (s *ContactServiceImpl) Create(ctx context.Context, contact *Contact) (*Contact, error) {
	if contact.OwnerID == "" {
		if claims, ok := utils.ClaimsFromContext(ctx); ok {
			contact.OwnerID = claims.UserID
		}
	}
	normalize(contact)
	if err := s.validate(ctx, contact); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	contact.ID = primitive.NilObjectID
	contact.CreatedAt = now
	contact.UpdatedAt = now

	if err := s.Repo.Create(ctx, contact); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "contacts", contact.ID.Hex(), audit.Snapshot(contact, true))
	realtime.Notify(s.Publisher, "created", string(common_models.EntityContact), contact.ID.Hex())
	return contact, nil
}

func (s *ContactServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Contact, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ContactServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Contact) error) (*Contact, error) {
	contact, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *contact

	if err := apply(contact); err != nil {
		return nil, err
	}
	contact.ID = before.ID
	contact.CreatedAt = before.CreatedAt
	normalize(contact)
	if err := s.validate(ctx, contact); err != nil {
		return nil, err
	}
	contact.UpdatedAt = s.now().UTC()

	if err := s.Repo.Update(ctx, contact); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "contacts", id.Hex(), audit.Diff(before, contact))
	realtime.Notify(s.Publisher, "updated", string(common_models.EntityContact), id.Hex())
	return contact, nil
}

// Delete removes a contact together with its deals, its activities and every
// row attached to it.
func (s *ContactServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	contact, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}

	ids := []primitive.ObjectID{id}
	for _, r := range s.Removers {
		if err := r.DeleteByRelated(ctx, "contact_id", ids); err != nil {
			return err
		}
	}
	if err := s.Cleaners.DeleteForTargets(ctx, common_models.EntityContact, ids); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "contacts", id.Hex(), audit.Snapshot(contact, false))
	realtime.Notify(s.Publisher, "deleted", string(common_models.EntityContact), id.Hex())
	return nil
}

func (s *ContactServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Contact], error) {
	return s.Repo.List(ctx, params)
}

func (s *ContactServiceImpl) Stats(ctx context.Context) (*Stats, error) {
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
	statuses, err := s.Repo.CountBy(ctx, "status", nil)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalContacts:   total,
		ActiveContacts:  active,
		RecentContacts:  recent,
		StatusBreakdown: query.Buckets(statuses, "status"),
	}, nil
}

func normalize(c *Contact) {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

func (s *ContactServiceImpl) validate(ctx context.Context, c *Contact) error {
	fe := apperr.FieldErrors{}
	if c.FirstName == "" {
		fe.Add("first_name", "this field is required")
	}
	if c.LastName == "" {
		fe.Add("last_name", "this field is required")
	}
	if c.Email == "" {
		fe.Add("email", "this field is required")
	} else if !utils.IsEmail(c.Email) {
		fe.Add("email", "enter a valid email address")
	}
	if !utils.OneOf(c.Salutation, Salutations...) {
		fe.Add("salutation", "\""+c.Salutation+"\" is not a valid choice")
	}
	if !utils.OneOf(c.Status, Statuses...) {
		fe.Add("status", "\""+c.Status+"\" is not a valid choice")
	}
	if c.LinkedinURL != "" && !utils.IsURL(c.LinkedinURL) {
		fe.Add("linkedin_url", "enter a valid URL")
	}
	if c.CompanyID != nil {
		if err := common_models.RequireRef(ctx, s.Targets, fe, "company_id", common_models.EntityCompany, *c.CompanyID); err != nil {
			return err
		}
	}
	return fe.Err()
}
