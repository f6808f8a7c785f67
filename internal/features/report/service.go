package report

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/audit"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"
	"salescrm/internal/realtime"
	"salescrm/pkg/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxRows caps how many records a single run collects
const MaxRows = 5000

type ReportService interface {
	Create(ctx context.Context, report *Report) (*Report, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Report, error)
	Update(ctx context.Context, id primitive.ObjectID, apply func(*Report) error) (*Report, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params query.ListParams) (*query.Page[Report], error)
	Run(ctx context.Context, id primitive.ObjectID) (*Result, error)
	Export(ctx context.Context, id primitive.ObjectID, format string) ([]byte, string, string, error)
}

type lister[T any] interface {
	List(ctx context.Context, params query.ListParams) (*query.Page[T], error)
}

type pipelineSource interface {
	lister[deal.Deal]
	Pipeline(ctx context.Context, pipelineID *primitive.ObjectID) (*deal.PipelineSummary, error)
}

type ReportServiceImpl struct {
	Repo       ReportRepository
	Contacts   lister[contact.Contact]
	Companies  lister[company.Company]
	Deals      pipelineSource
	Activities lister[activity.Activity]
	Audit      audit.AuditService
	Publisher  common_models.Publisher
	now        func() time.Time
}

func NewReportService(
	repo ReportRepository,
	contacts contact.ContactService,
	companies company.CompanyService,
	deals deal.DealService,
	activities activity.ActivityService,
	auditService audit.AuditService,
	publisher common_models.Publisher,
) ReportService {
	return &ReportServiceImpl{
		Repo:       repo,
		Contacts:   contacts,
		Companies:  companies,
		Deals:      deals,
		Activities: activities,
		Audit:      auditService,
		Publisher:  publisher,
		now:        time.Now,
	}
}

func (s *ReportServiceImpl) Create(ctx context.Context, report *Report) (*Report, error) {
	normalize(report)
	if err := validateReport(report); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	report.ID = primitive.NilObjectID
	report.CreatedBy = utils.ActorID(ctx)
	report.CreatedAt = now
	report.UpdatedAt = now
	if err := s.Repo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "reports", report.ID.Hex(), audit.Snapshot(report, true))
	realtime.Notify(s.Publisher, "created", "report", report.ID.Hex())
	return report, nil
}

func (s *ReportServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Report, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ReportServiceImpl) Update(ctx context.Context, id primitive.ObjectID, apply func(*Report) error) (*Report, error) {
	report, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *report

	if err := apply(report); err != nil {
		return nil, err
	}
	report.ID = before.ID
	report.CreatedBy = before.CreatedBy
	report.CreatedAt = before.CreatedAt
	normalize(report)
	if err := validateReport(report); err != nil {
		return nil, err
	}
	report.UpdatedAt = s.now().UTC()
	if err := s.Repo.Update(ctx, report); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "reports", id.Hex(), audit.Diff(before, report))
	realtime.Notify(s.Publisher, "updated", "report", id.Hex())
	return report, nil
}

func (s *ReportServiceImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	report, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "reports", id.Hex(), audit.Snapshot(report, false))
	realtime.Notify(s.Publisher, "deleted", "report", id.Hex())
	return nil
}

func (s *ReportServiceImpl) List(ctx context.Context, params query.ListParams) (*query.Page[Report], error) {
	return s.Repo.List(ctx, params)
}

// Run executes the report against live data and projects each row onto the
// report's columns.
func (s *ReportServiceImpl) Run(ctx context.Context, id primitive.ObjectID) (*Result, error) {
	report, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	truncated := false
	switch report.ReportType {
	case TypeContacts:
		rows, truncated, err = collect(ctx, s.Contacts, report.Filters)
	case TypeCompanies:
		rows, truncated, err = collect(ctx, s.Companies, report.Filters)
	case TypeDeals:
		rows, truncated, err = collect(ctx, s.Deals, report.Filters)
	case TypeActivities:
		rows, truncated, err = collect(ctx, s.Activities, report.Filters)
	case TypeSales:
		rows, truncated, err = s.sales(ctx, report.Filters)
	case TypePipeline:
		rows, err = s.pipeline(ctx, report.Filters)
	default:
		err = apperr.Invalid("report_type", "\""+report.ReportType+"\" is not a valid choice")
	}
	if err != nil {
		return nil, err
	}

	columns := report.Columns
	if len(columns) == 0 {
		columns = DefaultColumns[report.ReportType]
	}
	return &Result{
		ReportID:    report.ID,
		Name:        report.Name,
		ReportType:  report.ReportType,
		Columns:     columns,
		Rows:        project(rows, columns),
		Total:       len(rows),
		Truncated:   truncated,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Export runs the report and encodes it as xlsx or csv. It returns the file
// body, its content type and a download filename.
func (s *ReportServiceImpl) Export(ctx context.Context, id primitive.ObjectID, format string) ([]byte, string, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}
	if !utils.OneOf(format, FormatXLSX, FormatCSV) {
		return nil, "", "", apperr.Invalid("format", "must be xlsx or csv")
	}

	result, err := s.Run(ctx, id)
	if err != nil {
		return nil, "", "", err
	}

	var buf *bytes.Buffer
	contentType := ContentTypeXLSX
	if format == FormatCSV {
		buf, err = ToCSV(result)
		contentType = ContentTypeCSV
	} else {
		buf, err = ToExcel(result)
	}
	if err != nil {
		return nil, "", "", err
	}

	name := utils.Slugify(result.Name)
	if name == "" {
		name = "report"
	}
	s.Audit.LogChange(ctx, common_models.AuditActionExport, "reports", id.Hex(), map[string]common_models.Change{
		"format": {New: format},
		"rows":   {New: result.Total},
	})
	return buf.Bytes(), contentType, name + "." + format, nil
}

// sales groups closed-won deals by owner, highest revenue first
func (s *ReportServiceImpl) sales(ctx context.Context, filters map[string]string) ([]map[string]interface{}, bool, error) {
	scoped := make(map[string]string, len(filters)+1)
	for k, v := range filters {
		scoped[k] = v
	}
	scoped["stage"] = deal.StageClosedWon

	deals, truncated, err := pages(ctx, s.Deals, scoped)
	if err != nil {
		return nil, false, err
	}

	type acc struct {
		deals   int64
		revenue decimal.Decimal
	}
	byOwner := map[string]*acc{}
	for _, d := range deals {
		a, ok := byOwner[d.OwnerID]
		if !ok {
			a = &acc{}
			byOwner[d.OwnerID] = a
		}
		a.deals++
		a.revenue = a.revenue.Add(d.Amount)
	}

	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool {
		a, b := byOwner[owners[i]], byOwner[owners[j]]
		if c := a.revenue.Cmp(b.revenue); c != 0 {
			return c > 0
		}
		return owners[i] < owners[j]
	})

	rows := make([]map[string]interface{}, 0, len(owners))
	for _, owner := range owners {
		a := byOwner[owner]
		rows = append(rows, map[string]interface{}{
			"owner_id": owner,
			"deals":    a.deals,
			"revenue":  a.revenue.StringFixed(2),
		})
	}
	return rows, truncated, nil
}

func (s *ReportServiceImpl) pipeline(ctx context.Context, filters map[string]string) ([]map[string]interface{}, error) {
	var pipelineID *primitive.ObjectID
	if raw := filters["pipeline_id"]; raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, apperr.Invalid("filters.pipeline_id", "must be a valid id")
		}
		pipelineID = &id
	}

	summary, err := s.Deals.Pipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, 0, len(summary.Stages))
	for _, st := range summary.Stages {
		rows = append(rows, map[string]interface{}{
			"stage":               st.Stage,
			"count":               st.Count,
			"total_amount":        st.TotalAmount.StringFixed(2),
			"weighted_amount":     st.WeightedAmount.StringFixed(2),
			"avg_probability":     st.AvgProbability.StringFixed(2),
			"avg_weighted_amount": st.AvgWeightedAmount.StringFixed(2),
		})
	}
	return rows, nil
}

// pages walks every page of a list until it runs out or hits MaxRows
func pages[T any](ctx context.Context, src lister[T], filters map[string]string) ([]T, bool, error) {
	var out []T
	params := query.ListParams{Page: 1, Limit: query.MaxLimit, Filters: filters}
	for {
		page, err := src.List(ctx, params)
		if err != nil {
			return nil, false, err
		}
		out = append(out, page.Data...)
		if len(out) >= MaxRows {
			return out[:MaxRows], true, nil
		}
		if int64(len(page.Data)) < params.Limit || int64(len(out)) >= page.Total {
			return out, false, nil
		}
		params.Page++
	}
}

func collect[T any](ctx context.Context, src lister[T], filters map[string]string) ([]map[string]interface{}, bool, error) {
	items, truncated, err := pages(ctx, src, filters)
	if err != nil {
		return nil, false, err
	}
	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		row, err := toRow(item)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, row)
	}
	return rows, truncated, nil
}

// toRow flattens a record through its JSON form so derived fields such as
// full_name and weighted_amount are available as columns.
func toRow(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row map[string]interface{}
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

func project(rows []map[string]interface{}, columns []string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		p := make(map[string]interface{}, len(columns))
		for _, col := range columns {
			p[col] = row[col]
		}
		out = append(out, p)
	}
	return out
}

func normalize(r *Report) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Filters == nil {
		r.Filters = map[string]string{}
	}
	if r.Columns == nil {
		r.Columns = []string{}
	}
}

func validateReport(r *Report) error {
	fe := apperr.FieldErrors{}
	switch {
	case r.Name == "":
		fe.Add("name", "This field may not be blank.")
	case len(r.Name) > 200:
		fe.Add("name", "Ensure this field has no more than 200 characters.")
	}
	if !utils.OneOf(r.ReportType, ReportTypes...) {
		fe.Add("report_type", "\""+r.ReportType+"\" is not a valid choice.")
	}
	for i, col := range r.Columns {
		if strings.TrimSpace(col) == "" {
			fe.Add("columns", "column "+strconv.Itoa(i)+" may not be blank.")
			break
		}
	}
	return fe.Err()
}
