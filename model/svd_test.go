package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
	"github.com/rushteam/reckit-trainer/eval"
)

// biasedTable 评分 = 3 + 用户偏移 + 物品偏移，隐含明显的用户/物品偏置结构
func biasedTable(users, items int) *dataset.Table {
	rows := make([]core.Interaction, 0, users*items)
	for u := 0; u < users; u++ {
		for i := 0; i < items; i++ {
			r := 3.0 + float64(u%3-1) + 0.5*float64(i%3-1)
			rows = append(rows, core.Interaction{
				UserID: fmt.Sprintf("u%d", u),
				ItemID: fmt.Sprintf("i%d", i),
				Rating: core.DefaultRatingScale.Clip(r),
			})
		}
	}
	return dataset.NewTable(rows)
}

func TestSVD_EmptyTable(t *testing.T) {
	_, err := NewSVD(SVDConfig{}).Fit(dataset.NewTable(nil))
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("Fit(empty) error = %v, want ErrInsufficientData", err)
	}
	if !core.IsInsufficientData(err) {
		t.Error("IsInsufficientData() = false")
	}
}

func TestSVD_InvalidScale(t *testing.T) {
	_, err := NewSVD(SVDConfig{Scale: core.RatingScale{Min: 5, Max: 1}}).Fit(biasedTable(2, 2))
	if !core.IsInvalidInput(err) {
		t.Fatalf("Fit() error = %v, want INVALID_INPUT", err)
	}
}

func TestSVD_Defaults(t *testing.T) {
	cfg := NewSVD(SVDConfig{}).Config
	want := DefaultSVDConfig()
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("NewSVD(zero).Config = %+v, want %+v", cfg, want)
	}
	if cfg.Factors != 50 || cfg.Epochs != 20 || cfg.LearningRate != 0.005 || *cfg.Regularization != 0.02 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestSVD_PredictClipped(t *testing.T) {
	scales := []core.RatingScale{
		{Min: 1, Max: 5},
		{Min: 0.5, Max: 5},
		{Min: 0, Max: 1},
		{Min: -10, Max: 10},
	}
	for _, scale := range scales {
		t.Run(fmt.Sprintf("%v-%v", scale.Min, scale.Max), func(t *testing.T) {
			rows := make([]core.Interaction, 0, 40)
			for u := 0; u < 5; u++ {
				for i := 0; i < 8; i++ {
					r := scale.Max
					if (u+i)%2 == 0 {
						r = scale.Min
					}
					rows = append(rows, core.Interaction{UserID: fmt.Sprint("u", u), ItemID: fmt.Sprint("i", i), Rating: r})
				}
			}
			m, err := NewSVD(SVDConfig{Factors: 4, Epochs: 200, LearningRate: 0.02, Scale: scale, Seed: 3}).Fit(dataset.NewTable(rows))
			if err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			for u := 0; u < 6; u++ {
				for i := 0; i < 9; i++ {
					p := m.Predict(fmt.Sprint("u", u), fmt.Sprint("i", i))
					if p < scale.Min || p > scale.Max || math.IsNaN(p) {
						t.Fatalf("Predict(u%d, i%d) = %v outside [%v, %v]", u, i, p, scale.Min, scale.Max)
					}
				}
			}
		})
	}
}

func TestSVD_ExplicitZeroKept(t *testing.T) {
	cfg := NewSVD(SVDConfig{Regularization: Float(0), InitStdDev: Float(0)}).Config
	if *cfg.Regularization != 0 || *cfg.InitStdDev != 0 {
		t.Errorf("explicit zeros replaced: regularization=%v init_std_dev=%v", *cfg.Regularization, *cfg.InitStdDev)
	}

	// 因子全为 0 时梯度为 0，模型退化为纯偏置模型
	m, err := NewSVD(SVDConfig{Factors: 2, Epochs: 5, InitStdDev: Float(0)}).Fit(biasedTable(3, 3))
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	for _, row := range m.Snapshot().UserFactors {
		for _, v := range row {
			if v != 0 {
				t.Fatalf("user factor = %v, want 0 with zero init", v)
			}
		}
	}

	_, err = NewSVD(SVDConfig{Regularization: Float(-0.1)}).Fit(biasedTable(2, 2))
	if !core.IsInvalidInput(err) {
		t.Errorf("Fit(negative regularization) error = %v, want INVALID_INPUT", err)
	}
}

func TestSVD_ColdStart(t *testing.T) {
	table := biasedTable(4, 4)
	m, err := NewSVD(SVDConfig{Factors: 3, Seed: 1}).Fit(table)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	tests := []struct {
		name       string
		user, item string
		impossible bool
	}{
		{"known pair", "u0", "i0", false},
		{"unknown user", "nobody", "i0", true},
		{"unknown item", "u0", "nothing", true},
		{"both unknown", "nobody", "nothing", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, impossible := m.PredictDetail(tt.user, tt.item)
			if impossible != tt.impossible {
				t.Errorf("impossible = %v, want %v", impossible, tt.impossible)
			}
			if tt.impossible && est != m.Scale().Clip(m.GlobalMean()) {
				t.Errorf("cold start estimate = %v, want global mean %v", est, m.GlobalMean())
			}
		})
	}
	if m.KnowsUser("nobody") || !m.KnowsUser("u1") || !m.KnowsItem("i3") {
		t.Error("KnowsUser/KnowsItem mismatch")
	}
}

func TestSVD_Deterministic(t *testing.T) {
	table := biasedTable(6, 5)
	cfg := SVDConfig{Factors: 5, Epochs: 10, Seed: 42}

	a, err := NewSVD(cfg).Fit(table)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	b, err := NewSVD(cfg).Fit(table)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	sa, sb := a.Snapshot(), b.Snapshot()
	sa.TrainedAt, sb.TrainedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(sa, sb) {
		t.Error("same table and seed produced different parameters")
	}
}

func TestSVD_LearnsBiases(t *testing.T) {
	table := biasedTable(9, 9)
	m, err := NewSVD(SVDConfig{Factors: 5, Epochs: 60, Seed: 7}).Fit(table)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	fitted, err := eval.RegressionMetrics(m.Test(table.Interactions()))
	if err != nil {
		t.Fatalf("RegressionMetrics() error = %v", err)
	}

	baseline := make([]core.PredictionRecord, 0, table.Len())
	for _, r := range table.Interactions() {
		baseline = append(baseline, core.PredictionRecord{TrueRating: core.Rating(r.Rating), Estimate: m.GlobalMean()})
	}
	base, err := eval.RegressionMetrics(baseline)
	if err != nil {
		t.Fatalf("RegressionMetrics() error = %v", err)
	}
	if fitted.RMSE >= base.RMSE {
		t.Errorf("training RMSE %v not below global-mean baseline %v", fitted.RMSE, base.RMSE)
	}
}

func TestSVDModel_Test(t *testing.T) {
	table := biasedTable(3, 3)
	m, err := NewSVD(SVDConfig{Factors: 2, Seed: 1}).Fit(table)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pairs := []core.Interaction{
		{UserID: "u0", ItemID: "i0", Rating: 4},
		{UserID: "ghost", ItemID: "i0", Rating: 2},
	}
	got := m.Test(pairs)
	if len(got) != 2 {
		t.Fatalf("Test() returned %d records, want 2", len(got))
	}
	if *got[0].TrueRating != 4 || got[0].Impossible {
		t.Errorf("record 0 = %+v", got[0])
	}
	if *got[1].TrueRating != 2 || !got[1].Impossible {
		t.Errorf("record 1 = %+v", got[1])
	}
}

func TestSVDModel_StateRoundTrip(t *testing.T) {
	m, err := NewSVD(SVDConfig{Factors: 3, Epochs: 5, Seed: 9}).Fit(biasedTable(4, 6))
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	restored, err := FromState(m.Snapshot())
	if err != nil {
		t.Fatalf("FromState() error = %v", err)
	}
	for _, u := range append(m.Users(), "ghost") {
		for _, i := range m.Items() {
			if a, b := m.Predict(u, i), restored.Predict(u, i); a != b {
				t.Fatalf("Predict(%s, %s) = %v after restore, want %v", u, i, b, a)
			}
		}
	}
	if !restored.TrainedAt().Equal(m.TrainedAt()) {
		t.Error("TrainedAt not preserved")
	}
}

func TestFromState_Invalid(t *testing.T) {
	m, err := NewSVD(SVDConfig{Factors: 2, Epochs: 1}).Fit(biasedTable(2, 2))
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *SVDState)
	}{
		{"user bias length", func(s *SVDState) { s.UserBias = s.UserBias[:1] }},
		{"item factors length", func(s *SVDState) { s.ItemFactors = s.ItemFactors[:1] }},
		{"factor width", func(s *SVDState) { s.UserFactors[0] = []float64{1} }},
		{"duplicate user", func(s *SVDState) { s.UserIDs[1] = s.UserIDs[0] }},
		{"duplicate item", func(s *SVDState) { s.ItemIDs[1] = s.ItemIDs[0] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := m.Snapshot()
			tt.mutate(&s)
			if _, err := FromState(s); !core.IsInvalidInput(err) {
				t.Errorf("FromState() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestCrossValidate(t *testing.T) {
	table := biasedTable(6, 6)
	cfg := SVDConfig{Factors: 3, Epochs: 10, Seed: 1}

	res, err := CrossValidate(context.Background(), table, cfg, 0, 42)
	if err != nil {
		t.Fatalf("CrossValidate() error = %v", err)
	}
	if res.Folds != 3 || len(res.FoldRMSE) != 3 || len(res.FoldMAE) != 3 {
		t.Fatalf("unexpected fold layout %+v", res)
	}
	var sum float64
	for _, v := range res.FoldRMSE {
		if v <= 0 || math.IsNaN(v) {
			t.Errorf("fold RMSE = %v", v)
		}
		sum += v
	}
	if math.Abs(sum/3-res.MeanRMSE) > 1e-12 {
		t.Errorf("MeanRMSE = %v, want %v", res.MeanRMSE, sum/3)
	}

	again, err := CrossValidate(context.Background(), table, cfg, 3, 42)
	if err != nil {
		t.Fatalf("CrossValidate() error = %v", err)
	}
	if !reflect.DeepEqual(res.FoldRMSE, again.FoldRMSE) {
		t.Error("cross validation is not reproducible")
	}
}

func TestCrossValidate_TooFewRows(t *testing.T) {
	_, err := CrossValidate(context.Background(), biasedTable(1, 2), SVDConfig{}, 3, 1)
	if !core.IsInsufficientData(err) {
		t.Errorf("CrossValidate() error = %v, want INSUFFICIENT_DATA", err)
	}
}
