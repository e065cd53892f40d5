package recall

import (
	"github.com/rushteam/reckit-trainer/model"
)

// MFRecall 是基于矩阵分解的召回：用预测评分给候选物品打分，取 TopK。
//
// 预测分数 = 全局均值 + 用户偏置 + 物品偏置 + 用户隐向量 · 物品隐向量
//
// 候选集由调用方给出（例如留出集中该用户的物品），模型不认识的用户/物品按冷启动分支打分。
type MFRecall struct {
	Model model.Predictor

	// TopK 返回 TopK 个物品，<= 0 时返回全部候选
	TopK int

	// Exclude 不参与排序的物品（例如训练集中已评分的物品）
	Exclude map[string]struct{}
}

func (r *MFRecall) Name() string {
	return "recall.mf"
}

// Recommend 对候选物品打分排序；重复的候选只保留一次。
func (r *MFRecall) Recommend(userID string, candidates []string) []Scored {
	if r.Model == nil || userID == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(candidates))
	scores := make([]Scored, 0, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, skip := r.Exclude[id]; skip {
			continue
		}
		scores = append(scores, Scored{ItemID: id, Score: r.Model.Predict(userID, id)})
	}
	return topK(scores, r.TopK)
}
