package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/config"
	"salescrm/internal/database"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/customfield"
	"salescrm/internal/features/deal"
	"salescrm/internal/features/pipeline"
	"salescrm/internal/features/tag"
	"salescrm/internal/logger"
	"salescrm/pkg/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type seedStage struct {
	Name        string `json:"name"`
	Probability int    `json:"probability"`
	IsClosed    bool   `json:"is_closed"`
	IsWon       bool   `json:"is_won"`
}

type seedDeal struct {
	Name        string          `json:"name"`
	Contact     string          `json:"contact"`
	Amount      decimal.Decimal `json:"amount"`
	Stage       string          `json:"stage"`
	Probability int             `json:"probability"`
	CloseInDays int             `json:"close_in_days"`
}

type seedActivity struct {
	ActivityType string `json:"activity_type"`
	Subject      string `json:"subject"`
	Contact      string `json:"contact"`
	Deal         string `json:"deal"`
	DueInDays    int    `json:"due_in_days"`
	Completed    bool   `json:"completed"`
}

type seedTag struct {
	tag.Tag
	Contacts []string `json:"contacts"`
}

type seedContact struct {
	contact.Contact
	Company string `json:"company"`
}

type demoData struct {
	Pipeline struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Stages      []seedStage `json:"stages"`
	} `json:"pipeline"`
	Companies    []company.Company         `json:"companies"`
	Contacts     []seedContact             `json:"contacts"`
	Deals        []seedDeal                `json:"deals"`
	Activities   []seedActivity            `json:"activities"`
	Tags         []seedTag                 `json:"tags"`
	CustomFields []customfield.CustomField `json:"custom_fields"`
}

// Seed loads demo CRM data. Records that already exist (by name or email)
// are left untouched, so running it twice is safe.
func Seed(
	lc fx.Lifecycle,
	pipelines pipeline.PipelineRepository,
	stages pipeline.StageRepository,
	companies company.CompanyRepository,
	contacts contact.ContactRepository,
	deals deal.DealRepository,
	activities activity.ActivityRepository,
	tags tag.TagRepository,
	assignments tag.AssignmentRepository,
	fields customfield.FieldRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx := context.Background()
				path := "cmd/seed/data/demo.json"
				if len(os.Args) > 1 {
					path = os.Args[1]
				}

				logger.Info("Starting database seeding", zap.String("file", path))

				raw, err := os.ReadFile(path)
				if err != nil {
					logger.Fatal("Failed to read seed data", zap.Error(err))
				}
				var data demoData
				if err := json.Unmarshal(raw, &data); err != nil {
					logger.Fatal("Failed to parse seed data", zap.Error(err))
				}

				for _, idx := range []interface{ EnsureIndexes(context.Context) error }{pipelines, companies, contacts, tags, assignments, fields} {
					if err := idx.EnsureIndexes(ctx); err != nil {
						logger.Fatal("Failed to ensure indexes", zap.Error(err))
					}
				}

				now := time.Now().UTC()
				owner := utils.SystemActor

				// 1. Pipeline and stages
				if _, err := pipelines.FindByName(ctx, data.Pipeline.Name); err == nil {
					logger.Info("Pipeline exists, skipping", zap.String("pipeline", data.Pipeline.Name))
				} else {
					p := pipeline.New()
					p.Name = data.Pipeline.Name
					p.Description = data.Pipeline.Description
					p.IsDefault = true
					p.CreatedAt, p.UpdatedAt = now, now
					if err := pipelines.Create(ctx, p); err != nil {
						logger.Fatal("Failed to create pipeline", zap.Error(err))
					}
					for i, s := range data.Pipeline.Stages {
						stage := &pipeline.Stage{
							PipelineID:  p.ID,
							Name:        s.Name,
							Order:       i + 1,
							Probability: s.Probability,
							IsClosed:    s.IsClosed,
							IsWon:       s.IsWon,
							CreatedAt:   now,
							UpdatedAt:   now,
						}
						if err := stages.Create(ctx, stage); err != nil {
							logger.Error("Failed to create stage", zap.String("stage", s.Name), zap.Error(err))
						}
					}
					logger.Info("Pipeline created", zap.String("pipeline", p.Name), zap.Int("stages", len(data.Pipeline.Stages)))
				}

				// 2. Companies
				companyIDs := map[string]primitive.ObjectID{}
				for _, c := range data.Companies {
					if existing, err := companies.FindByName(ctx, c.Name); err == nil {
						companyIDs[c.Name] = existing.ID
						continue
					}
					c.IsActive = true
					c.OwnerID = owner
					c.CreatedAt, c.UpdatedAt = now, now
					if err := companies.Create(ctx, &c); err != nil {
						logger.Error("Failed to create company", zap.String("company", c.Name), zap.Error(err))
						continue
					}
					companyIDs[c.Name] = c.ID
				}
				logger.Info("Companies seeded", zap.Int("count", len(companyIDs)))

				// 3. Contacts
				contactIDs := map[string]primitive.ObjectID{}
				for _, sc := range data.Contacts {
					if existing, err := contacts.FindByEmail(ctx, sc.Email); err == nil {
						contactIDs[sc.Email] = existing.ID
						continue
					}
					c := sc.Contact
					if id, ok := companyIDs[sc.Company]; ok {
						c.CompanyID = &id
					}
					c.IsActive = true
					c.OwnerID = owner
					c.CreatedAt, c.UpdatedAt = now, now
					if err := contacts.Create(ctx, &c); err != nil {
						logger.Error("Failed to create contact", zap.String("email", sc.Email), zap.Error(err))
						continue
					}
					contactIDs[sc.Email] = c.ID
				}
				logger.Info("Contacts seeded", zap.Int("count", len(contactIDs)))

				// 4. Deals
				dealIDs := map[string]primitive.ObjectID{}
				for _, sd := range data.Deals {
					if found, err := deals.Find(ctx, bson.M{"name": sd.Name}, nil, 1); err == nil && len(found) > 0 {
						dealIDs[sd.Name] = found[0].ID
						continue
					}
					contactID, ok := contactIDs[sd.Contact]
					if !ok {
						logger.Warn("Deal contact not found, skipping", zap.String("deal", sd.Name), zap.String("contact", sd.Contact))
						continue
					}
					closeOn := now.AddDate(0, 0, sd.CloseInDays)
					d := deal.New()
					d.Name = sd.Name
					d.ContactID = contactID
					d.Amount = sd.Amount
					d.Stage = sd.Stage
					d.Probability = sd.Probability
					d.OwnerID = owner
					d.ExpectedCloseDate = common_models.NewDate(closeOn)
					if sd.Stage == deal.StageClosedWon || sd.Stage == deal.StageClosedLost {
						actual := common_models.NewDate(closeOn)
						d.ActualCloseDate = &actual
					}
					d.CreatedAt, d.UpdatedAt = now, now
					if err := deals.Create(ctx, d); err != nil {
						logger.Error("Failed to create deal", zap.String("deal", sd.Name), zap.Error(err))
						continue
					}
					dealIDs[sd.Name] = d.ID
				}
				logger.Info("Deals seeded", zap.Int("count", len(dealIDs)))

				// 5. Activities
				created := 0
				for _, sa := range data.Activities {
					if n, err := activities.Count(ctx, bson.M{"subject": sa.Subject}); err == nil && n > 0 {
						continue
					}
					a := activity.New()
					a.ActivityType = sa.ActivityType
					a.Subject = sa.Subject
					a.OwnerID = owner
					if id, ok := contactIDs[sa.Contact]; ok {
						a.ContactID = &id
					}
					if id, ok := dealIDs[sa.Deal]; ok {
						a.DealID = &id
					}
					due := now.AddDate(0, 0, sa.DueInDays)
					a.DueDate = &due
					if sa.Completed {
						a.Status = activity.StatusCompleted
						a.CompletedDate = &due
					}
					a.CreatedAt, a.UpdatedAt = now, now
					if err := activities.Create(ctx, a); err != nil {
						logger.Error("Failed to create activity", zap.String("subject", sa.Subject), zap.Error(err))
						continue
					}
					created++
				}
				logger.Info("Activities seeded", zap.Int("count", created))

				// 6. Tags and their contact assignments
				for _, st := range data.Tags {
					t, err := tags.FindByName(ctx, st.Name)
					if err != nil {
						t = tag.New()
						t.Name = st.Name
						t.Description = st.Description
						if st.Color != "" {
							t.Color = st.Color
						}
						t.CreatedAt, t.UpdatedAt = now, now
						if err := tags.Create(ctx, t); err != nil {
							logger.Error("Failed to create tag", zap.String("tag", st.Name), zap.Error(err))
							continue
						}
					}
					for _, email := range st.Contacts {
						id, ok := contactIDs[email]
						if !ok {
							continue
						}
						a := &tag.Assignment{
							TagID:     t.ID,
							Target:    common_models.EntityRef{Kind: common_models.EntityContact, ID: id},
							CreatedAt: now,
						}
						// duplicates are rejected by the unique index on re-runs
						if err := assignments.Create(ctx, a); err != nil && apperr.KindOf(err) != apperr.KindConflict {
							logger.Error("Failed to assign tag", zap.String("tag", st.Name), zap.String("contact", email), zap.Error(err))
						}
					}
				}
				logger.Info("Tags seeded", zap.Int("count", len(data.Tags)))

				// 7. Custom field definitions
				for _, f := range data.CustomFields {
					if _, err := fields.FindByName(ctx, f.EntityType, f.Name); err == nil {
						continue
					}
					f.IsActive = true
					if f.Options == nil {
						f.Options = []string{}
					}
					f.CreatedAt, f.UpdatedAt = now, now
					if err := fields.Create(ctx, &f); err != nil {
						logger.Error("Failed to create custom field", zap.String("field", f.Name), zap.Error(err))
					}
				}
				logger.Info("Custom fields seeded", zap.Int("count", len(data.CustomFields)))

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			pipeline.NewPipelineRepository,
			pipeline.NewStageRepository,
			company.NewCompanyRepository,
			contact.NewContactRepository,
			deal.NewDealRepository,
			activity.NewActivityRepository,
			tag.NewTagRepository,
			tag.NewAssignmentRepository,
			customfield.NewFieldRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()
}
