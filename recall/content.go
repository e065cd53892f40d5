package recall

import (
	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
)

// ContentRecall 是基于内容的召回：在相似度矩阵中查找与给定物品最相似的物品。
type ContentRecall struct {
	Matrix *content.SimilarityMatrix

	// TopK 返回 TopK 个物品，<= 0 时使用默认值 10
	TopK int

	// MinScore 低于该相似度的物品不返回
	MinScore float64
}

func (r *ContentRecall) Name() string {
	return "recall.content"
}

// Similar 返回与 itemID 最相似的物品（不含自身）；物品不在矩阵中时返回 NOT_FOUND。
func (r *ContentRecall) Similar(itemID string) ([]Scored, error) {
	if r.Matrix == nil {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeUnavailable, "recall: similarity matrix not loaded")
	}
	row, ok := r.Matrix.Row(itemID)
	if !ok {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeNotFound, "recall: unknown item "+itemID)
	}

	ids := r.Matrix.ItemIDs()
	out := make([]Scored, 0, len(ids))
	for i, id := range ids {
		if id == itemID || row[i] < r.MinScore {
			continue
		}
		out = append(out, Scored{ItemID: id, Score: row[i]})
	}

	k := r.TopK
	if k <= 0 {
		k = core.DefaultTrainDefaults{}.DefaultTopK()
	}
	return topK(out, k), nil
}

// ForUser 基于用户历史物品聚合相似度：每个候选物品取与历史物品相似度之和，历史物品本身不返回。
func (r *ContentRecall) ForUser(history []string) ([]Scored, error) {
	if r.Matrix == nil {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeUnavailable, "recall: similarity matrix not loaded")
	}
	ids := r.Matrix.ItemIDs()
	sums := make([]float64, len(ids))
	seen := make(map[string]struct{}, len(history))
	hit := false
	for _, h := range history {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		row, ok := r.Matrix.Row(h)
		if !ok {
			continue
		}
		hit = true
		for i, v := range row {
			sums[i] += v
		}
	}
	if !hit {
		return nil, nil
	}

	out := make([]Scored, 0, len(ids))
	for i, id := range ids {
		if _, own := seen[id]; own || sums[i] < r.MinScore {
			continue
		}
		out = append(out, Scored{ItemID: id, Score: sums[i]})
	}
	k := r.TopK
	if k <= 0 {
		k = core.DefaultTrainDefaults{}.DefaultTopK()
	}
	return topK(out, k), nil
}
