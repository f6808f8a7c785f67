package dashboard

import (
	"time"

	"salescrm/internal/features/deal"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	BucketingCalendar = "calendar"
	BucketingRolling  = "rolling"

	trendBuckets = 6
)

// TrendWindows returns six [Start, End) buckets ending at now.
//
// Calendar buckets are the current month and the five before it. Rolling
// buckets slice now-180d into six 30-day windows; the last one ends at now.
func TrendWindows(now time.Time, bucketing string) []TrendBucket {
	now = now.UTC()
	out := make([]TrendBucket, 0, trendBuckets)

	if bucketing == BucketingRolling {
		start := now.AddDate(0, 0, -30*trendBuckets)
		for i := 0; i < trendBuckets; i++ {
			from := start.AddDate(0, 0, 30*i)
			to := from.AddDate(0, 0, 30)
			out = append(out, TrendBucket{Month: from.Format("2006-01"), Start: from, End: to, Revenue: decimal.Zero})
		}
		return out
	}

	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := trendBuckets - 1; i >= 0; i-- {
		from := current.AddDate(0, -i, 0)
		out = append(out, TrendBucket{Month: from.Format("2006-01"), Start: from, End: from.AddDate(0, 1, 0), Revenue: decimal.Zero})
	}
	return out
}

// WonFilter selects the closed-won deals that can land in [from, to): by
// creation time for rolling buckets, by close day (creation time when no
// close day is recorded) for calendar buckets.
func WonFilter(bucketing string, from, to time.Time) bson.M {
	window := bson.M{"$gte": from, "$lt": to}
	if bucketing == BucketingRolling {
		return bson.M{"stage": deal.StageClosedWon, "created_at": window}
	}
	return bson.M{
		"stage": deal.StageClosedWon,
		"$or": bson.A{
			bson.M{"actual_close_date": window},
			bson.M{"actual_close_date": nil, "created_at": window},
		},
	}
}

// Tally fills bucket counts from creation times and revenue from closed-won
// deals. Calendar bucketing recognises revenue on the close day, rolling on
// the creation time.
func Tally(buckets []TrendBucket, bucketing string, contacts, deals []time.Time, won []deal.Deal) []TrendBucket {
	for _, t := range contacts {
		if i := bucketOf(buckets, t); i >= 0 {
			buckets[i].Contacts++
		}
	}
	for _, t := range deals {
		if i := bucketOf(buckets, t); i >= 0 {
			buckets[i].Deals++
		}
	}
	for _, d := range won {
		if d.Stage != deal.StageClosedWon {
			continue
		}
		at := d.CreatedAt
		if bucketing != BucketingRolling {
			at = d.ClosedOn()
		}
		if i := bucketOf(buckets, at); i >= 0 {
			buckets[i].Revenue = buckets[i].Revenue.Add(d.Amount)
		}
	}
	return buckets
}

func bucketOf(buckets []TrendBucket, t time.Time) int {
	for i, b := range buckets {
		if !t.Before(b.Start) && t.Before(b.End) {
			return i
		}
	}
	return -1
}
