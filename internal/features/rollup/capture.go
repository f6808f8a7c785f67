package rollup

import (
	"sort"
	"time"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/deal"

	"github.com/shopspring/decimal"
)

// Input is the raw data one day's capture is computed from. Deals holds
// every active deal; the other slices only need to cover the day.
type Input struct {
	Deals      []deal.Deal
	Touched    []deal.Deal
	Activities []activity.Activity
	Contacts   []contact.Contact
	Companies  []company.Company
}

// Compute derives every rollup row for day. It does not read the clock.
func Compute(day common_models.Date, in Input) *CaptureResult {
	from, to := dayWindow(day)
	res := &CaptureResult{
		Date:       day,
		Snapshots:  make([]PipelineSnapshot, 0),
		Summaries:  make([]ActivitySummary, 0),
		Engagement: make([]ContactEngagement, 0),
		Forecasts:  make([]DealForecast, 0),
	}

	for _, s := range deal.AggregatePipeline(in.Deals, nil) {
		res.Snapshots = append(res.Snapshots, PipelineSnapshot{
			Date:          day,
			Stage:         s.Stage,
			Count:         s.Count,
			TotalValue:    s.TotalAmount,
			WeightedValue: s.WeightedAmount.Round(2),
		})
	}

	for _, d := range in.Deals {
		if !d.IsActive || d.Stage == deal.StageClosedWon || d.Stage == deal.StageClosedLost {
			continue
		}
		res.Forecasts = append(res.Forecasts, DealForecast{
			DealID:           d.ID,
			ForecastDate:     day,
			ForecastedAmount: d.WeightedAmount().Round(2),
			Probability:      d.Probability,
			ConfidenceLevel:  ConfidenceFor(d.Probability),
		})
	}

	owners := map[string]*ActivitySummary{}
	summary := func(owner string) *ActivitySummary {
		s, ok := owners[owner]
		if !ok {
			s = &ActivitySummary{Date: day, OwnerID: owner, RevenueClosed: decimal.Zero}
			owners[owner] = s
		}
		return s
	}

	engagement := map[string]*ContactEngagement{}
	for _, a := range in.Activities {
		when := occurredAt(a)
		if when.Before(from) || !when.Before(to) {
			continue
		}
		s := summary(a.OwnerID)
		switch a.ActivityType {
		case activity.TypeCall:
			s.CallsMade++
		case activity.TypeEmail:
			s.EmailsSent++
		case activity.TypeMeeting:
			s.MeetingsHeld++
		case activity.TypeNote:
			s.NotesAdded++
		case activity.TypeTask:
			if a.Status == activity.StatusCompleted {
				s.TasksCompleted++
			}
		}

		if a.ContactID == nil {
			continue
		}
		e, ok := engagement[a.ContactID.Hex()]
		if !ok {
			e = &ContactEngagement{ContactID: *a.ContactID, Date: day}
			engagement[a.ContactID.Hex()] = e
		}
		e.ActivitiesCount++
		if e.LastActivityDate == nil || when.After(*e.LastActivityDate) {
			w := when
			e.LastActivityDate = &w
		}
	}

	for _, d := range in.Touched {
		if within(d.CreatedAt, from, to) {
			summary(d.OwnerID).DealsCreated++
		}
		if d.ActualCloseDate == nil || !d.ActualCloseDate.Equal(day.Time) {
			continue
		}
		switch d.Stage {
		case deal.StageClosedWon:
			s := summary(d.OwnerID)
			s.DealsClosedWon++
			s.RevenueClosed = s.RevenueClosed.Add(d.Amount)
		case deal.StageClosedLost:
			summary(d.OwnerID).DealsClosedLost++
		}
	}

	for _, c := range in.Contacts {
		if within(c.CreatedAt, from, to) {
			summary(c.OwnerID).ContactsCreated++
		}
	}
	for _, c := range in.Companies {
		if within(c.CreatedAt, from, to) {
			summary(c.OwnerID).CompaniesCreated++
		}
	}

	for _, s := range owners {
		res.Summaries = append(res.Summaries, *s)
	}
	sort.Slice(res.Summaries, func(i, j int) bool { return res.Summaries[i].OwnerID < res.Summaries[j].OwnerID })

	for _, e := range engagement {
		res.Engagement = append(res.Engagement, *e)
	}
	sort.Slice(res.Engagement, func(i, j int) bool {
		return res.Engagement[i].ContactID.Hex() < res.Engagement[j].ContactID.Hex()
	})

	return res
}

// occurredAt is when an activity counts: its completion, else its creation
func occurredAt(a activity.Activity) time.Time {
	if a.CompletedDate != nil {
		return a.CompletedDate.UTC()
	}
	return a.CreatedAt.UTC()
}

func dayWindow(day common_models.Date) (time.Time, time.Time) {
	from := day.Time.UTC()
	return from, from.AddDate(0, 0, 1)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
