package deal

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mkDeal(stage string, amount string, probability int, active bool) Deal {
	return Deal{
		Stage:       stage,
		Amount:      decimal.RequireFromString(amount),
		Probability: probability,
		IsActive:    active,
	}
}

func TestWeightedAmountIsExact(t *testing.T) {
	d := mkDeal(StageProposal, "1000", 25, true)
	if got := d.WeightedAmount(); !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("WeightedAmount() = %s, want 250", got)
	}

	d = mkDeal(StageProposal, "0.10", 33, true)
	if got := d.WeightedAmount(); !got.Equal(decimal.RequireFromString("0.033")) {
		t.Errorf("WeightedAmount() = %s, want 0.033", got)
	}
}

func TestAggregatePipelineGroups(t *testing.T) {
	deals := []Deal{
		mkDeal(StageProspecting, "100", 50, true),
		mkDeal(StageProspecting, "300", 50, true),
		mkDeal(StageNegotiation, "1000", 80, true),
		mkDeal(StageNegotiation, "5000", 90, false),
	}

	got := AggregatePipeline(deals, nil)
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}

	tests := []struct {
		stage    string
		count    int64
		total    int64
		weighted int64
	}{
		{StageNegotiation, 1, 1000, 800},
		{StageProspecting, 2, 400, 200},
	}
	for i, tt := range tests {
		g := got[i]
		if g.Stage != tt.stage {
			t.Errorf("group %d stage = %s, want %s", i, g.Stage, tt.stage)
			continue
		}
		if g.Count != tt.count {
			t.Errorf("%s count = %d, want %d", tt.stage, g.Count, tt.count)
		}
		if !g.TotalAmount.Equal(decimal.NewFromInt(tt.total)) {
			t.Errorf("%s total = %s, want %d", tt.stage, g.TotalAmount, tt.total)
		}
		if !g.WeightedAmount.Equal(decimal.NewFromInt(tt.weighted)) {
			t.Errorf("%s weighted = %s, want %d", tt.stage, g.WeightedAmount, tt.weighted)
		}
		if !g.AvgWeightedAmount.Equal(decimal.NewFromInt(tt.weighted)) {
			t.Errorf("%s avg weighted = %s, want %d", tt.stage, g.AvgWeightedAmount, tt.weighted)
		}
		if g.Order != nil {
			t.Errorf("%s order = %d, want nil", tt.stage, *g.Order)
		}
	}
}

func TestAggregatePipelineMixedProbabilities(t *testing.T) {
	deals := []Deal{
		mkDeal(StageProposal, "100", 10, true),
		mkDeal(StageProposal, "300", 70, true),
	}

	got := AggregatePipeline(deals, nil)[0]
	if !got.WeightedAmount.Equal(decimal.NewFromInt(220)) {
		t.Errorf("weighted = %s, want 220", got.WeightedAmount)
	}
	if !got.AvgProbability.Equal(decimal.NewFromInt(40)) {
		t.Errorf("avg probability = %s, want 40", got.AvgProbability)
	}
	if !got.AvgWeightedAmount.Equal(decimal.NewFromInt(160)) {
		t.Errorf("avg weighted = %s, want 160", got.AvgWeightedAmount)
	}
}

func TestAggregatePipelineEmpty(t *testing.T) {
	got := AggregatePipeline(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("AggregatePipeline(nil) = %#v, want empty slice", got)
	}

	sum := Summarize([]Deal{mkDeal(StageProspecting, "10", 10, false)}, nil)
	if len(sum.Stages) != 0 || sum.Count != 0 || !sum.TotalAmount.IsZero() || !sum.WeightedAmount.IsZero() {
		t.Errorf("Summarize(inactive only) = %+v", sum)
	}
}

func TestAggregatePipelineStageOrder(t *testing.T) {
	deals := []Deal{
		mkDeal("custom_b", "1", 1, true),
		mkDeal(StageProspecting, "1", 1, true),
		mkDeal(StageNegotiation, "1", 1, true),
		mkDeal("custom_a", "1", 1, true),
	}
	order := map[string]int{StageNegotiation: 1, StageProspecting: 2}

	got := AggregatePipeline(deals, order)
	want := []string{StageNegotiation, StageProspecting, "custom_a", "custom_b"}
	for i, stage := range want {
		if got[i].Stage != stage {
			t.Errorf("position %d = %s, want %s", i, got[i].Stage, stage)
		}
	}
	if got[0].Order == nil || *got[0].Order != 1 {
		t.Errorf("negotiation order = %v, want 1", got[0].Order)
	}
}

func TestSummarizeTotals(t *testing.T) {
	sum := Summarize([]Deal{
		mkDeal(StageProspecting, "100", 50, true),
		mkDeal(StageClosedWon, "200.50", 100, true),
	}, nil)

	if sum.Count != 2 {
		t.Errorf("count = %d, want 2", sum.Count)
	}
	if !sum.TotalAmount.Equal(decimal.RequireFromString("300.50")) {
		t.Errorf("total = %s, want 300.50", sum.TotalAmount)
	}
	if !sum.WeightedAmount.Equal(decimal.RequireFromString("250.50")) {
		t.Errorf("weighted = %s, want 250.50", sum.WeightedAmount)
	}
}
