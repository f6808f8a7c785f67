package rollup

import (
	"testing"
	"time"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var captureDay = common_models.DateOf(2026, time.March, 9)

func at(hour int) time.Time {
	return captureDay.Time.Add(time.Duration(hour) * time.Hour)
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		p    int
		want string
	}{
		{0, ConfidenceLow},
		{29, ConfidenceLow},
		{30, ConfidenceMedium},
		{69, ConfidenceMedium},
		{70, ConfidenceHigh},
		{100, ConfidenceHigh},
	}
	for _, tt := range tests {
		if got := ConfidenceFor(tt.p); got != tt.want {
			t.Errorf("ConfidenceFor(%d) = %s, want %s", tt.p, got, tt.want)
		}
	}
}

func TestComputeEmptyDay(t *testing.T) {
	res := Compute(captureDay, Input{})
	if res.Snapshots == nil || res.Summaries == nil || res.Engagement == nil || res.Forecasts == nil {
		t.Fatal("slices must be non-nil")
	}
	if len(res.Snapshots)+len(res.Summaries)+len(res.Engagement)+len(res.Forecasts) != 0 {
		t.Errorf("expected no rows, got %+v", res)
	}
}

func TestComputeSnapshotsAndForecasts(t *testing.T) {
	deals := []deal.Deal{
		{ID: primitive.NewObjectID(), Stage: deal.StageProposal, Amount: decimal.NewFromInt(1000), Probability: 25, IsActive: true},
		{ID: primitive.NewObjectID(), Stage: deal.StageProposal, Amount: decimal.NewFromInt(3000), Probability: 75, IsActive: true},
		{ID: primitive.NewObjectID(), Stage: deal.StageClosedWon, Amount: decimal.NewFromInt(500), Probability: 100, IsActive: true},
		{ID: primitive.NewObjectID(), Stage: deal.StageProposal, Amount: decimal.NewFromInt(9999), Probability: 50, IsActive: false},
	}

	res := Compute(captureDay, Input{Deals: deals})

	if len(res.Snapshots) != 2 {
		t.Fatalf("snapshots = %+v", res.Snapshots)
	}
	var proposal PipelineSnapshot
	for _, s := range res.Snapshots {
		if s.Stage == deal.StageProposal {
			proposal = s
		}
	}
	if proposal.Count != 2 || !proposal.TotalValue.Equal(decimal.NewFromInt(4000)) || !proposal.WeightedValue.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("proposal snapshot = %+v", proposal)
	}

	if len(res.Forecasts) != 2 {
		t.Fatalf("forecasts = %+v, want the two open active deals", res.Forecasts)
	}
	levels := map[primitive.ObjectID]string{}
	for _, f := range res.Forecasts {
		levels[f.DealID] = f.ConfidenceLevel
		if !f.ForecastDate.Equal(captureDay.Time) {
			t.Errorf("forecast date = %s", f.ForecastDate)
		}
	}
	if levels[deals[0].ID] != ConfidenceLow || levels[deals[1].ID] != ConfidenceHigh {
		t.Errorf("confidence levels = %v", levels)
	}
}

func TestComputeActivitySummaries(t *testing.T) {
	contactID := primitive.NewObjectID()
	completedYesterday := at(-3)
	completedToday := at(15)
	closed := captureDay

	in := Input{
		Activities: []activity.Activity{
			{ActivityType: activity.TypeCall, OwnerID: "ana", CreatedAt: at(9), ContactID: &contactID},
			{ActivityType: activity.TypeCall, OwnerID: "ana", CreatedAt: at(-48), CompletedDate: &completedToday, Status: activity.StatusCompleted, ContactID: &contactID},
			{ActivityType: activity.TypeTask, OwnerID: "ana", CreatedAt: at(10), Status: activity.StatusPending},
			{ActivityType: activity.TypeTask, OwnerID: "bo", CreatedAt: at(-48), CompletedDate: &completedToday, Status: activity.StatusCompleted},
			{ActivityType: activity.TypeEmail, OwnerID: "bo", CreatedAt: at(-48), CompletedDate: &completedYesterday, Status: activity.StatusCompleted},
		},
		Touched: []deal.Deal{
			{OwnerID: "ana", CreatedAt: at(11), Stage: deal.StageProspecting},
			{OwnerID: "bo", CreatedAt: at(-200), Stage: deal.StageClosedWon, Amount: decimal.RequireFromString("1200.50"), ActualCloseDate: &closed},
			{OwnerID: "bo", CreatedAt: at(-200), Stage: deal.StageClosedLost, ActualCloseDate: &closed},
		},
		Contacts:  []contact.Contact{{OwnerID: "ana", CreatedAt: at(8)}},
		Companies: []company.Company{{OwnerID: "bo", CreatedAt: at(23)}, {OwnerID: "bo", CreatedAt: at(24)}},
	}

	res := Compute(captureDay, in)
	if len(res.Summaries) != 2 {
		t.Fatalf("summaries = %+v", res.Summaries)
	}

	ana, bo := res.Summaries[0], res.Summaries[1]
	if ana.OwnerID != "ana" || ana.CallsMade != 2 || ana.TasksCompleted != 0 || ana.DealsCreated != 1 || ana.ContactsCreated != 1 {
		t.Errorf("ana = %+v", ana)
	}
	if bo.TasksCompleted != 1 || bo.EmailsSent != 0 || bo.DealsClosedWon != 1 || bo.DealsClosedLost != 1 || bo.CompaniesCreated != 1 {
		t.Errorf("bo = %+v", bo)
	}
	if !bo.RevenueClosed.Equal(decimal.RequireFromString("1200.5")) {
		t.Errorf("revenue = %s", bo.RevenueClosed)
	}

	if len(res.Engagement) != 1 {
		t.Fatalf("engagement = %+v", res.Engagement)
	}
	e := res.Engagement[0]
	if e.ContactID != contactID || e.ActivitiesCount != 2 || e.LastActivityDate == nil || !e.LastActivityDate.Equal(completedToday) {
		t.Errorf("engagement = %+v", e)
	}
}
