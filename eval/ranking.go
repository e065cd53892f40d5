package eval

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/reckit-trainer/core"
)

// PrecisionAtK = |topK ∩ relevant| / min(K, |recs|)。
// 推荐列表为空时为 0（不是错误）。
func PrecisionAtK(recs []string, relevant map[string]struct{}, k int) float64 {
	if len(recs) == 0 || k <= 0 {
		return 0
	}
	hits := hitsAtK(recs, relevant, k)
	return float64(hits) / float64(min(k, len(recs)))
}

// RecallAtK = |topK ∩ relevant| / |relevant|。
// 相关集合为空时为 0。
func RecallAtK(recs []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	hits := hitsAtK(recs, relevant, k)
	return float64(hits) / float64(len(relevant))
}

// hitsAtK 统计前 K 个推荐中命中相关集合的物品数；推荐列表中重复的物品只计一次。
func hitsAtK(recs []string, relevant map[string]struct{}, k int) int {
	top := recs
	if len(top) > k {
		top = top[:k]
	}
	seen := make(map[string]struct{}, len(top))
	hits := 0
	for _, id := range top {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevant[id]; ok {
			hits++
		}
	}
	return hits
}

// UserRanking 单个用户的排序指标
type UserRanking struct {
	UserID    string  `json:"user_id"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`

	// Excluded 相关集合为空的用户：指标照常给出（均为 0 或仅 Precision），但不参与聚合
	Excluded bool `json:"excluded"`
}

// Ranking 是按用户聚合后的排序指标，所有 key 都带 K。
type Ranking struct {
	K int `json:"k"`

	MeanPrecision float64 `json:"mean_precision"`
	StdPrecision  float64 `json:"std_precision"`
	MeanRecall    float64 `json:"mean_recall"`
	StdRecall     float64 `json:"std_recall"`

	// Users 参与聚合的用户数
	Users int `json:"users"`

	// PerUser 两边都出现的用户（含 Excluded），按 UserID 排序
	PerUser []UserRanking `json:"per_user"`
}

// Metrics 返回带 K 标记的指标，如 "mean_precision@10"，避免不同 K 的结果被混在一起比较。
func (r Ranking) Metrics() map[string]float64 {
	return map[string]float64{
		MetricKey("mean_precision", r.K): r.MeanPrecision,
		MetricKey("std_precision", r.K):  r.StdPrecision,
		MetricKey("mean_recall", r.K):    r.MeanRecall,
		MetricKey("std_recall", r.K):     r.StdRecall,
	}
}

// MetricKey 生成 "name@K"
func MetricKey(name string, k int) string {
	return fmt.Sprintf("%s@%d", name, k)
}

// RankingMetrics 计算每个用户的 Precision@K / Recall@K 并聚合均值和标准差。
//
//   - k 必须 >= 1，聚合层没有默认值
//   - 只统计同时出现在 recsByUser 与 relevantByUser 中的用户，其余静默跳过
//   - 相关集合为空的用户不参与聚合（它们对推荐质量没有信号）
//   - 标准差为总体标准差；没有可聚合用户时均值与标准差都为 0
func RankingMetrics(recsByUser map[string][]string, relevantByUser map[string]map[string]struct{}, k int) (Ranking, error) {
	if k < 1 {
		return Ranking{}, core.NewDomainError(core.ModuleEval, core.ErrorCodeInvalidInput,
			fmt.Sprintf("eval: k must be >= 1, got %d", k))
	}

	users := make([]string, 0, len(recsByUser))
	for u := range recsByUser {
		if _, ok := relevantByUser[u]; ok {
			users = append(users, u)
		}
	}
	sort.Strings(users)

	res := Ranking{K: k, PerUser: make([]UserRanking, 0, len(users))}
	precisions := make([]float64, 0, len(users))
	recalls := make([]float64, 0, len(users))
	for _, u := range users {
		recs, relevant := recsByUser[u], relevantByUser[u]
		ur := UserRanking{
			UserID:    u,
			Precision: PrecisionAtK(recs, relevant, k),
			Recall:    RecallAtK(recs, relevant, k),
			Excluded:  len(relevant) == 0,
		}
		res.PerUser = append(res.PerUser, ur)
		if ur.Excluded {
			continue
		}
		precisions = append(precisions, ur.Precision)
		recalls = append(recalls, ur.Recall)
	}

	res.Users = len(precisions)
	if res.Users > 0 {
		res.MeanPrecision, res.StdPrecision = stat.PopMeanStdDev(precisions, nil)
		res.MeanRecall, res.StdRecall = stat.PopMeanStdDev(recalls, nil)
	}
	return res, nil
}
