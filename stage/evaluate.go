package stage

import (
	"context"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/eval"
	"github.com/rushteam/reckit-trainer/pipeline"
	"github.com/rushteam/reckit-trainer/pkg/logging"
	"github.com/rushteam/reckit-trainer/recall"
)

// RegressionEval 计算留出集 RMSE/MAE。
type RegressionEval struct{}

func (n *RegressionEval) Name() string        { return "eval.regression" }
func (n *RegressionEval) Kind() pipeline.Kind { return pipeline.KindEvaluate }

func (n *RegressionEval) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	m, err := eval.RegressionMetrics(in.Predictions)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.Report.SetRegression(m)
	logging.Info().Float64("rmse", m.RMSE).Float64("mae", m.MAE).Int("count", m.Count).Msg("stage: 留出集误差")
	return out, nil
}

// RankingEval 按用户对留出集物品排序，计算 Precision@K / Recall@K。
//
// 每个用户的候选集是其留出集物品，由 recall.MFRecall 按预测评分排序取前 K；
// 相关集合由 Relevance 决定（默认真实评分 >= 4.0）。
type RankingEval struct {
	K         int
	Relevance eval.Relevance
}

func (n *RankingEval) Name() string        { return "eval.ranking" }
func (n *RankingEval) Kind() pipeline.Kind { return pipeline.KindEvaluate }

func (n *RankingEval) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	if in.Model == nil {
		return nil, missing(core.ModuleEval, "model")
	}
	if len(in.Predictions) == 0 {
		return nil, core.ErrNoPredictions
	}
	g, err := eval.GroupPredictions(in.Predictions, n.Relevance)
	if err != nil {
		return nil, err
	}

	mf := &recall.MFRecall{Model: in.Model, TopK: n.K}
	recs := make(map[string][]string, len(g.Recommendations))
	for u, candidates := range g.Recommendations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs[u] = recall.IDs(mf.Recommend(u, candidates))
	}

	rk, err := eval.RankingMetrics(recs, g.Relevant, n.K)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.Report.SetRanking(rk)
	logging.Info().
		Int("k", rk.K).
		Int("users", rk.Users).
		Float64("mean_precision", rk.MeanPrecision).
		Float64("mean_recall", rk.MeanRecall).
		Msg("stage: 排序指标")
	return out, nil
}
