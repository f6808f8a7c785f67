package company

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

// CompanyUnlinker clears references to a deleted company (contacts, deals)
type CompanyUnlinker interface {
	ClearCompany(ctx context.Context, companyID primitive.ObjectID) error
}

type CompanyUnlinkers []CompanyUnlinker

// ActivityRemover deletes activities whose field references one of ids
type ActivityRemover interface {
	DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error
}

type CompanyService interface {
	Create(ctx context.Context, company *Company) (*Company, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Company, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Company) error) (*Company, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Company], error)
	Stats(ctx context.Context) (*Stats, error)
}

type CompanyServiceImpl struct {
	Repo       CompanyRepository
	Unlinkers  CompanyUnlinkers
	Activities ActivityRemover
	Cleaners   common_models.Cleaners
	Audit      audit.AuditService
	Publisher  common_models.Publisher
}

func NewCompanyService(
	repo CompanyRepository,
	unlinkers CompanyUnlinkers,
	activities ActivityRemover,
	cleaners common_models.Cleaners,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) CompanyService {
	return &CompanyServiceImpl{
		Repo:       repo,
		Unlinkers:  unlinkers,
		Activities: activities,
		Cleaners:   cleaners,
		Audit:      auditService,
		Publisher:  publisher,
	}
}

func (s *CompanyServiceImpl) Create(ctx context.Context, company *Company) (*Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.OwnerID == "" {
		if claims, ok := utils.ClaimsFromContext(ctx); ok {
			company.OwnerID = claims.UserID
		}
	}
	if err := validate(company); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	company.ID = primitive.NilObjectID
	company.CreatedAt = now
	company.UpdatedAt = now

	if err := s.Repo.Create(ctx, company); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "companies", company.ID.Hex(), audit.Snapshot(company, true))
	realtime.Notify(s.Publisher, "created", string(common_models.EntityCompany), company.ID.Hex())
	return company, nil
}

func (s *CompanyServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Company, error) {
	return s.Repo.Get(ctx, id)
}

func (s *CompanyServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Company) error) (*Company, error) {
	company, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *company

	if err := apply(company); err != nil {
		return nil, err
	}
	company.ID = before.ID
	company.CreatedAt = before.CreatedAt
	company.Name = strings.TrimSpace(company.Name)
	if err := validate(company); err != nil {
		return nil, err
	}
	company.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, company); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "companies", id.Hex(), audit.Diff(before, company))
	realtime.Notify(s.Publisher, "updated", string(common_models.EntityCompany), id.Hex())
	return company, nil
}

// Delete removes a company. Contacts and deals keep existing with their
// company cleared; the company's activities and attached rows are deleted.
func (s *CompanyServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	company, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, u := range s.Unlinkers {
		if err := u.ClearCompany(ctx, id); err != nil {
			return err
		}
	}
	if err := s.Activities.DeleteByRelated(ctx, "company_id", []primitive.ObjectID{id}); err != nil {
		return err
	}
	if err := s.Cleaners.DeleteForTargets(ctx, common_models.EntityCompany, []primitive.ObjectID{id}); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "companies", id.Hex(), audit.Snapshot(company, false))
	realtime.Notify(s.Publisher, "deleted", string(common_models.EntityCompany), id.Hex())
	return nil
}

func (s *CompanyServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Company], error) {
	return s.Repo.List(ctx, params)
}

func (s *CompanyServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.Repo.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	active, err := s.Repo.Count(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	industries, err := s.Repo.CountBy(ctx, "industry", 10)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalCompanies:    total,
		ActiveCompanies:   active,
		IndustryBreakdown: query.Buckets(industries, "industry"),
	}, nil
}

func validate(c *Company) error {
	fe := apperr.FieldErrors{}
	if c.Name == "" {
		fe.Add("name", "this field is required")
	} else if len(c.Name) > 255 {
		fe.Add("name", "ensure this field has no more than 255 characters")
	}
	if c.Email != "" && !utils.IsEmail(c.Email) {
		fe.Add("email", "enter a valid email address")
	}
	if c.Website != "" && !utils.IsURL(c.Website) {
		fe.Add("website", "enter a valid URL")
	}
	if c.AnnualRevenue != nil && c.AnnualRevenue.IsNegative() {
		fe.Add("annual_revenue", "must not be negative")
	}
	if c.EmployeeCount != nil && *c.EmployeeCount < 0 {
		fe.Add("employee_count", "must not be negative")
	}
	return fe.Err()
}
