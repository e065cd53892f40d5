package eval

import (
	"sort"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pkg/dsl"
)

// Relevance 判断一条留出集预测记录对应的物品是否与该用户"相关"。
type Relevance interface {
	Relevant(p core.PredictionRecord) (bool, error)
}

// ThresholdRelevance 真实评分 >= Threshold 即相关。
type ThresholdRelevance struct {
	Threshold float64
}

// NewThresholdRelevance 创建阈值相关性，常用 4.0
func NewThresholdRelevance(threshold float64) ThresholdRelevance {
	return ThresholdRelevance{Threshold: threshold}
}

func (r ThresholdRelevance) Relevant(p core.PredictionRecord) (bool, error) {
	if p.TrueRating == nil {
		return false, nil
	}
	return *p.TrueRating >= r.Threshold, nil
}

// ExprRelevance 使用 CEL 表达式判断相关性，如 `rating >= 4.0 && !impossible`。
type ExprRelevance struct {
	eval *dsl.Eval
}

// NewExprRelevance 编译表达式，语法错误或返回值不是 bool 时报错。
func NewExprRelevance(expr string) (*ExprRelevance, error) {
	e, err := dsl.NewEval(expr)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeInvalidInput,
			"eval: relevance expression: "+err.Error())
	}
	return &ExprRelevance{eval: e}, nil
}

func (r *ExprRelevance) Relevant(p core.PredictionRecord) (bool, error) {
	if p.TrueRating == nil {
		return false, nil
	}
	return r.eval.Evaluate(dsl.Input{
		UserID:     p.UserID,
		ItemID:     p.ItemID,
		Rating:     *p.TrueRating,
		Estimate:   p.Estimate,
		Impossible: p.Impossible,
	})
}

// Grouped 是按用户分组后的排序输入
type Grouped struct {
	// Recommendations 每个用户按预测评分降序的物品列表（同分按物品 ID 升序）
	Recommendations map[string][]string

	// Relevant 每个用户的相关物品集合；出现过预测的用户都有条目（可能为空集合）
	Relevant map[string]map[string]struct{}
}

// GroupPredictions 把留出集预测记录转换为 RankingMetrics 的两个输入。
func GroupPredictions(preds []core.PredictionRecord, rel Relevance) (Grouped, error) {
	byUser := make(map[string][]core.PredictionRecord)
	g := Grouped{
		Recommendations: make(map[string][]string),
		Relevant:        make(map[string]map[string]struct{}),
	}
	for _, p := range preds {
		byUser[p.UserID] = append(byUser[p.UserID], p)
		if _, ok := g.Relevant[p.UserID]; !ok {
			g.Relevant[p.UserID] = make(map[string]struct{})
		}
		ok, err := rel.Relevant(p)
		if err != nil {
			return Grouped{}, err
		}
		if ok {
			g.Relevant[p.UserID][p.ItemID] = struct{}{}
		}
	}

	for u, list := range byUser {
		sort.SliceStable(list, func(a, b int) bool {
			if list[a].Estimate != list[b].Estimate {
				return list[a].Estimate > list[b].Estimate
			}
			return list[a].ItemID < list[b].ItemID
		})
		ids := make([]string, 0, len(list))
		seen := make(map[string]struct{}, len(list))
		for _, p := range list {
			if _, dup := seen[p.ItemID]; dup {
				continue
			}
			seen[p.ItemID] = struct{}{}
			ids = append(ids, p.ItemID)
		}
		g.Recommendations[u] = ids
	}
	return g, nil
}
