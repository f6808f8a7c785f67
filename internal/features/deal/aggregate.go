package deal

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StageSummary is one group of the pipeline aggregation.
//
// WeightedAmount is the true Σ(amount × probability / 100).
// AvgWeightedAmount is Σamount × avg(probability) / 100 rounded to cents,
// which only matches WeightedAmount when amounts in the group are uniform.
type StageSummary struct {
	Stage             string          `json:"stage"`
	Order             *int            `json:"order,omitempty"`
	Count             int64           `json:"count"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	WeightedAmount    decimal.Decimal `json:"weighted_amount"`
	AvgProbability    decimal.Decimal `json:"avg_probability"`
	AvgWeightedAmount decimal.Decimal `json:"avg_weighted_amount"`
}

type PipelineSummary struct {
	Stages            []StageSummary  `json:"stages"`
	Count             int64           `json:"count"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	WeightedAmount    decimal.Decimal `json:"weighted_amount"`
	AvgWeightedAmount decimal.Decimal `json:"avg_weighted_amount"`
}

type stageAcc struct {
	count       int64
	total       decimal.Decimal
	weighted    decimal.Decimal
	probability int64
}

// AggregatePipeline groups active deals by stage. Inactive deals are
// skipped. Groups are ordered lexically by stage unless stageOrder is given,
// in which case configured stages come first by their order and any others
// follow lexically. An empty input yields an empty, non-nil slice.
func AggregatePipeline(deals []Deal, stageOrder map[string]int) []StageSummary {
	groups := map[string]*stageAcc{}
	for _, d := range deals {
		if !d.IsActive {
			continue
		}
		acc, ok := groups[d.Stage]
		if !ok {
			acc = &stageAcc{}
			groups[d.Stage] = acc
		}
		acc.count++
		acc.total = acc.total.Add(d.Amount)
		acc.weighted = acc.weighted.Add(d.WeightedAmount())
		acc.probability += int64(d.Probability)
	}

	out := make([]StageSummary, 0, len(groups))
	for stage, acc := range groups {
		avgProb := decimal.NewFromInt(acc.probability).Div(decimal.NewFromInt(acc.count))
		s := StageSummary{
			Stage:             stage,
			Count:             acc.count,
			TotalAmount:       acc.total,
			WeightedAmount:    acc.weighted,
			AvgProbability:    avgProb.Round(2),
			AvgWeightedAmount: acc.total.Mul(avgProb).Div(hundred).Round(2),
		}
		if o, ok := stageOrder[stage]; ok {
			order := o
			s.Order = &order
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Order != nil && b.Order != nil && *a.Order != *b.Order:
			return *a.Order < *b.Order
		case a.Order != nil && b.Order == nil:
			return true
		case a.Order == nil && b.Order != nil:
			return false
		}
		return a.Stage < b.Stage
	})
	return out
}

// Summarize aggregates and adds pipeline-wide totals
func Summarize(deals []Deal, stageOrder map[string]int) PipelineSummary {
	stages := AggregatePipeline(deals, stageOrder)
	sum := PipelineSummary{Stages: stages}
	for _, s := range stages {
		sum.Count += s.Count
		sum.TotalAmount = sum.TotalAmount.Add(s.TotalAmount)
		sum.WeightedAmount = sum.WeightedAmount.Add(s.WeightedAmount)
		sum.AvgWeightedAmount = sum.AvgWeightedAmount.Add(s.AvgWeightedAmount)
	}
	return sum
}
