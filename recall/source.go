// Package recall 在训练产物上做离线 TopK 查询：隐因子模型给候选物品打分排序，
// 相似度矩阵给出某个物品的近邻。评估阶段用它为每个用户生成有序推荐列表。
package recall

import "sort"

// Scored 一个带分数的物品
type Scored struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// IDs 提取物品 ID，保持顺序
func IDs(items []Scored) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.ItemID
	}
	return out
}

// topK 按分数降序（同分按物品 ID 升序）排序并截断，k <= 0 表示不截断
func topK(items []Scored, k int) []Scored {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID < items[j].ItemID
	})
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items
}
