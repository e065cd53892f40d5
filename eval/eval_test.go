package eval

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-trainer/core"
)

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRegressionMetrics(t *testing.T) {
	got, err := RegressionMetrics([]core.PredictionRecord{
		{TrueRating: core.Rating(4), Estimate: 4},
		{TrueRating: core.Rating(2), Estimate: 3},
	})
	if err != nil {
		t.Fatalf("RegressionMetrics() error = %v", err)
	}
	if !approx(got.RMSE, math.Sqrt(0.5)) {
		t.Errorf("RMSE = %v, want %v", got.RMSE, math.Sqrt(0.5))
	}
	if !approx(got.MAE, 0.5) {
		t.Errorf("MAE = %v, want 0.5", got.MAE)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2", got.Count)
	}
}

func TestRegressionMetrics_NoPredictions(t *testing.T) {
	tests := []struct {
		name  string
		preds []core.PredictionRecord
	}{
		{"nil", nil},
		{"empty", []core.PredictionRecord{}},
		{"no true ratings", []core.PredictionRecord{{UserID: "u", ItemID: "i", Estimate: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RegressionMetrics(tt.preds)
			if !errors.Is(err, core.ErrNoPredictions) || !core.IsNoPredictions(err) {
				t.Errorf("error = %v, want ErrNoPredictions", err)
			}
		})
	}
}

func TestRegressionMetrics_SkipsMissingTruth(t *testing.T) {
	got, err := RegressionMetrics([]core.PredictionRecord{
		{TrueRating: core.Rating(3), Estimate: 5},
		{Estimate: 1},
	})
	if err != nil {
		t.Fatalf("RegressionMetrics() error = %v", err)
	}
	if got.Count != 1 || !approx(got.RMSE, 2) || !approx(got.MAE, 2) {
		t.Errorf("got %+v, want one record with error 2", got)
	}
}

func TestPrecisionRecallAtK(t *testing.T) {
	recs := []string{"A", "B", "C", "D", "E"}
	relevant := set("B", "D", "Z")

	tests := []struct {
		name      string
		recs      []string
		k         int
		precision float64
		recall    float64
	}{
		{"top3", recs, 3, 1.0 / 3, 1.0 / 3},
		{"top5", recs, 5, 2.0 / 5, 2.0 / 3},
		{"k beyond list", recs, 10, 2.0 / 5, 2.0 / 3},
		{"short list uses list length", []string{"B", "X"}, 10, 1.0 / 2, 1.0 / 3},
		{"empty recs", nil, 3, 0, 0},
		{"duplicate recs counted once", []string{"B", "B", "D"}, 3, 2.0 / 3, 2.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrecisionAtK(tt.recs, relevant, tt.k); !approx(got, tt.precision) {
				t.Errorf("PrecisionAtK() = %v, want %v", got, tt.precision)
			}
			if got := RecallAtK(tt.recs, relevant, tt.k); !approx(got, tt.recall) {
				t.Errorf("RecallAtK() = %v, want %v", got, tt.recall)
			}
		})
	}
}

func TestPrecisionAtK_EmptyRecsAlwaysZero(t *testing.T) {
	for _, rel := range []map[string]struct{}{nil, set(), set("A"), set("A", "B", "C")} {
		for k := 1; k <= 5; k++ {
			if got := PrecisionAtK(nil, rel, k); got != 0 {
				t.Errorf("PrecisionAtK(nil, %v, %d) = %v, want 0", rel, k, got)
			}
		}
	}
}

func TestRecallAtK_MonotoneInK(t *testing.T) {
	recs := []string{"C", "A", "X", "B", "Y", "D", "Z", "E"}
	relevant := set("A", "B", "D", "E", "Q")
	prev := -1.0
	for k := 1; k <= len(recs)+2; k++ {
		got := RecallAtK(recs, relevant, k)
		if got < prev {
			t.Fatalf("RecallAtK(k=%d) = %v < RecallAtK(k=%d) = %v", k, got, k-1, prev)
		}
		prev = got
	}
	if !approx(prev, 4.0/5) {
		t.Errorf("final recall = %v, want 0.8", prev)
	}
}

func TestRecallAtK_EmptyRelevant(t *testing.T) {
	if got := RecallAtK([]string{"A"}, set(), 3); got != 0 {
		t.Errorf("RecallAtK() = %v, want 0", got)
	}
}

func TestRankingMetrics_InvalidK(t *testing.T) {
	for _, k := range []int{0, -1} {
		if _, err := RankingMetrics(nil, nil, k); !core.IsInvalidInput(err) {
			t.Errorf("RankingMetrics(k=%d) error = %v, want INVALID_INPUT", k, err)
		}
	}
}

func TestRankingMetrics_ExcludesZeroRelevant(t *testing.T) {
	recs := map[string][]string{
		"u1": {"A", "B", "C"},
		"u2": {"D", "E", "F"},
		"u3": {"G", "H"},
	}
	relevant := map[string]map[string]struct{}{
		"u1": set("A", "C"),
		"u2": set("F", "X"),
	}
	withoutEmpty, err := RankingMetrics(recs, relevant, 3)
	if err != nil {
		t.Fatalf("RankingMetrics() error = %v", err)
	}

	relevant["u3"] = set()
	withEmpty, err := RankingMetrics(recs, relevant, 3)
	if err != nil {
		t.Fatalf("RankingMetrics() error = %v", err)
	}

	if withEmpty.Users != 2 || withoutEmpty.Users != 2 {
		t.Errorf("Users = %d / %d, want 2", withEmpty.Users, withoutEmpty.Users)
	}
	if !reflect.DeepEqual(withEmpty.Metrics(), withoutEmpty.Metrics()) {
		t.Errorf("aggregate changed by zero-relevant user: %v vs %v", withEmpty.Metrics(), withoutEmpty.Metrics())
	}
	if len(withEmpty.PerUser) != 3 || !withEmpty.PerUser[2].Excluded {
		t.Errorf("PerUser = %+v, want u3 reported and excluded", withEmpty.PerUser)
	}

	// u1: P=2/3 R=1；u2: P=1/3 R=1/2
	if !approx(withEmpty.MeanPrecision, 0.5) || !approx(withEmpty.StdPrecision, 1.0/6) {
		t.Errorf("precision mean/std = %v/%v, want 0.5/%v", withEmpty.MeanPrecision, withEmpty.StdPrecision, 1.0/6)
	}
	if !approx(withEmpty.MeanRecall, 0.75) || !approx(withEmpty.StdRecall, 0.25) {
		t.Errorf("recall mean/std = %v/%v, want 0.75/0.25", withEmpty.MeanRecall, withEmpty.StdRecall)
	}
}

func TestRankingMetrics_SkipsUnmatchedUsers(t *testing.T) {
	recs := map[string][]string{"only-recs": {"A"}, "both": {"A", "B"}}
	relevant := map[string]map[string]struct{}{"only-rel": set("A"), "both": set("B")}

	got, err := RankingMetrics(recs, relevant, 1)
	if err != nil {
		t.Fatalf("RankingMetrics() error = %v", err)
	}
	if len(got.PerUser) != 1 || got.PerUser[0].UserID != "both" {
		t.Fatalf("PerUser = %+v, want only 'both'", got.PerUser)
	}
	if got.MeanPrecision != 0 || got.MeanRecall != 0 {
		t.Errorf("means = %v/%v, want 0/0", got.MeanPrecision, got.MeanRecall)
	}
}

func TestRankingMetrics_NoUsers(t *testing.T) {
	got, err := RankingMetrics(map[string][]string{}, map[string]map[string]struct{}{}, 10)
	if err != nil {
		t.Fatalf("RankingMetrics() error = %v", err)
	}
	for key, v := range got.Metrics() {
		if v != 0 {
			t.Errorf("%s = %v, want 0", key, v)
		}
	}
}

func TestRanking_MetricKeysCarryK(t *testing.T) {
	keys := Ranking{K: 7}.Metrics()
	for _, want := range []string{"mean_precision@7", "std_precision@7", "mean_recall@7", "std_recall@7"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("missing metric key %q in %v", want, keys)
		}
	}
}

func TestGroupPredictions(t *testing.T) {
	preds := []core.PredictionRecord{
		{UserID: "u1", ItemID: "b", TrueRating: core.Rating(5), Estimate: 3.0},
		{UserID: "u1", ItemID: "a", TrueRating: core.Rating(2), Estimate: 4.5},
		{UserID: "u1", ItemID: "c", TrueRating: core.Rating(4), Estimate: 3.0},
		{UserID: "u2", ItemID: "a", TrueRating: core.Rating(1), Estimate: 2.0},
	}
	g, err := GroupPredictions(preds, NewThresholdRelevance(4.0))
	if err != nil {
		t.Fatalf("GroupPredictions() error = %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(g.Recommendations["u1"], want) {
		t.Errorf("u1 ranking = %v, want %v", g.Recommendations["u1"], want)
	}
	if !reflect.DeepEqual(g.Relevant["u1"], set("b", "c")) {
		t.Errorf("u1 relevant = %v", g.Relevant["u1"])
	}
	if rel, ok := g.Relevant["u2"]; !ok || len(rel) != 0 {
		t.Errorf("u2 relevant = %v (present=%v), want empty set", rel, ok)
	}

	rk, err := RankingMetrics(g.Recommendations, g.Relevant, 2)
	if err != nil {
		t.Fatalf("RankingMetrics() error = %v", err)
	}
	if rk.Users != 1 || !approx(rk.MeanPrecision, 0.5) || !approx(rk.MeanRecall, 0.5) {
		t.Errorf("ranking = %+v", rk)
	}
}

func TestExprRelevance(t *testing.T) {
	rel, err := NewExprRelevance(`rating >= 4.0 && !impossible`)
	if err != nil {
		t.Fatalf("NewExprRelevance() error = %v", err)
	}
	tests := []struct {
		name string
		p    core.PredictionRecord
		want bool
	}{
		{"high rating", core.PredictionRecord{TrueRating: core.Rating(4.5)}, true},
		{"low rating", core.PredictionRecord{TrueRating: core.Rating(3)}, false},
		{"cold start", core.PredictionRecord{TrueRating: core.Rating(5), Impossible: true}, false},
		{"no truth", core.PredictionRecord{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rel.Relevant(tt.p)
			if err != nil {
				t.Fatalf("Relevant() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Relevant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprRelevance_Invalid(t *testing.T) {
	for _, expr := range []string{`rating >=`, `rating + 1.0`, `unknown_var > 1`} {
		if _, err := NewExprRelevance(expr); !core.IsInvalidInput(err) {
			t.Errorf("NewExprRelevance(%q) error = %v, want INVALID_INPUT", expr, err)
		}
	}
}

func TestNewReport(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	r := NewReport(now)
	if r.ID == "" || NewReport(now).ID == r.ID {
		t.Error("report ids must be unique and non-empty")
	}
	if !r.Timestamp.Equal(now) || r.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v in UTC", r.Timestamp, now)
	}
	if r.ContentBased.Note != ContentBasedNote {
		t.Errorf("ContentBased.Note = %q", r.ContentBased.Note)
	}

	r.SetRegression(Regression{RMSE: 1, MAE: 0.5, Count: 3})
	r.SetRanking(Ranking{K: 10, MeanPrecision: 0.2})
	if r.CollaborativeFiltering.Metrics["mean_precision@10"] != 0.2 || r.CollaborativeFiltering.TestCount != 3 {
		t.Errorf("CollaborativeFiltering = %+v", r.CollaborativeFiltering)
	}
}

func TestReport_RegressionOmittedUntilSet(t *testing.T) {
	r := NewReport(time.Now())
	cf := func() map[string]any {
		t.Helper()
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var out struct {
			CF map[string]any `json:"collaborative_filtering"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		return out.CF
	}

	for _, key := range []string{"rmse", "mae", "test_count"} {
		if v, ok := cf()[key]; ok {
			t.Errorf("%s = %v in report without regression metrics", key, v)
		}
	}

	r.SetRegression(Regression{RMSE: 0, MAE: 0, Count: 2})
	got := cf()
	if got["rmse"] != 0.0 || got["mae"] != 0.0 || got["test_count"] != 2.0 {
		t.Errorf("collaborative_filtering = %v, want rmse=0 mae=0 test_count=2", got)
	}
	if c := r.Clone(); *c.CollaborativeFiltering.RMSE != 0 {
		t.Errorf("Clone() RMSE = %v", *c.CollaborativeFiltering.RMSE)
	}
}
