// Package eval 是排序评估器（RankingEvaluator）：回归误差 RMSE/MAE 与按用户聚合的 Precision@K/Recall@K。
//
// 指标都是纯函数：输入是显式的预测列表、推荐列表与相关集合，与预测如何产生无关。
package eval

import (
	"math"

	"github.com/rushteam/reckit-trainer/core"
)

// Regression 回归误差
type Regression struct {
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
	Count int     `json:"count"`
}

// RegressionMetrics 计算 RMSE = sqrt(mean((true-pred)²)) 与 MAE = mean(|true-pred|)。
// 没有真实评分的记录被跳过；可用记录为 0 时返回 core.ErrNoPredictions。
func RegressionMetrics(preds []core.PredictionRecord) (Regression, error) {
	var sq, abs float64
	n := 0
	for _, p := range preds {
		if p.TrueRating == nil {
			continue
		}
		d := *p.TrueRating - p.Estimate
		sq += d * d
		abs += math.Abs(d)
		n++
	}
	if n == 0 {
		return Regression{}, core.ErrNoPredictions
	}
	return Regression{
		RMSE:  math.Sqrt(sq / float64(n)),
		MAE:   abs / float64(n),
		Count: n,
	}, nil
}
