package model

// Predictor 是评分预测的最小抽象：输入 (用户, 物品)，输出一个落在评分区间内的分数。
// recall.MFRecall 通过它给候选物品打分，不关心具体模型。
type Predictor interface {
	Name() string
	Predict(userID, itemID string) float64
}
