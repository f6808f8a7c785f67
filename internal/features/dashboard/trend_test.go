package dashboard

import (
	"testing"
	"time"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/features/deal"

	"github.com/shopspring/decimal"
)

var trendNow = time.Date(2026, time.May, 20, 15, 0, 0, 0, time.UTC)

func TestTrendEmptyDataHasSixZeroBuckets(t *testing.T) {
	for _, mode := range []string{BucketingCalendar, BucketingRolling} {
		buckets := Tally(TrendWindows(trendNow, mode), mode, nil, nil, nil)
		if len(buckets) != 6 {
			t.Fatalf("%s: %d buckets, want 6", mode, len(buckets))
		}
		for _, b := range buckets {
			if b.Contacts != 0 || b.Deals != 0 || !b.Revenue.IsZero() {
				t.Errorf("%s: bucket %s = %+v, want zeros", mode, b.Month, b)
			}
		}
	}
}

func TestCalendarWindows(t *testing.T) {
	buckets := TrendWindows(trendNow, BucketingCalendar)
	want := []string{"2025-12", "2026-01", "2026-02", "2026-03", "2026-04", "2026-05"}
	for i, b := range buckets {
		if b.Month != want[i] {
			t.Errorf("bucket %d = %s, want %s", i, b.Month, want[i])
		}
	}
	if !buckets[5].End.Equal(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last bucket ends %s", buckets[5].End)
	}
}

func TestRollingWindows(t *testing.T) {
	buckets := TrendWindows(trendNow, BucketingRolling)
	if !buckets[0].Start.Equal(trendNow.AddDate(0, 0, -180)) {
		t.Errorf("first bucket starts %s", buckets[0].Start)
	}
	if !buckets[5].End.Equal(trendNow) {
		t.Errorf("last bucket ends %s, want now", buckets[5].End)
	}
	for _, b := range buckets {
		if b.End.Sub(b.Start) != 30*24*time.Hour {
			t.Errorf("bucket %s spans %s", b.Month, b.End.Sub(b.Start))
		}
	}
}

func TestTallyRevenueByCloseDate(t *testing.T) {
	closed := common_models.DateOf(2026, time.May, 2)
	won := deal.Deal{
		Stage:           deal.StageClosedWon,
		Amount:          decimal.NewFromInt(500),
		CreatedAt:       time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		ActualCloseDate: &closed,
	}
	lost := deal.Deal{
		Stage:     deal.StageClosedLost,
		Amount:    decimal.NewFromInt(900),
		CreatedAt: time.Date(2026, time.May, 3, 0, 0, 0, 0, time.UTC),
	}
	contacts := []time.Time{
		time.Date(2026, time.April, 30, 23, 59, 0, 0, time.UTC),
		time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}

	calendar := Tally(TrendWindows(trendNow, BucketingCalendar), BucketingCalendar, contacts, nil, []deal.Deal{won, lost})
	if !calendar[5].Revenue.Equal(decimal.NewFromInt(500)) || !calendar[1].Revenue.IsZero() {
		t.Errorf("calendar revenue May = %s Jan = %s", calendar[5].Revenue, calendar[1].Revenue)
	}
	if calendar[4].Contacts != 1 || calendar[5].Contacts != 1 {
		t.Errorf("contacts Apr = %d May = %d", calendar[4].Contacts, calendar[5].Contacts)
	}

	rolling := Tally(TrendWindows(trendNow, BucketingRolling), BucketingRolling, nil, nil, []deal.Deal{won})
	var total decimal.Decimal
	var at int
	for i, b := range rolling {
		total = total.Add(b.Revenue)
		if !b.Revenue.IsZero() {
			at = i
		}
	}
	if !total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("rolling revenue total = %s", total)
	}
	b := rolling[at]
	if won.CreatedAt.Before(b.Start) || !won.CreatedAt.Before(b.End) {
		t.Errorf("rolling revenue landed in %s..%s, want the bucket holding created_at", b.Start, b.End)
	}
}
