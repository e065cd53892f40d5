package content

import (
	"fmt"

	"github.com/rushteam/reckit-trainer/core"
)

// SimilarityMatrix 是物品两两相似度矩阵及其索引映射，二者总是一起创建和持久化。
type SimilarityMatrix struct {
	itemIDs []string
	index   map[string]int
	values  [][]float64
}

// NewSimilarityMatrix 校验形状后创建矩阵：values 必须是 len(ids)×len(ids)，ids 不能重复。
func NewSimilarityMatrix(ids []string, values [][]float64) (*SimilarityMatrix, error) {
	if len(values) != len(ids) {
		return nil, invalidMatrix(fmt.Sprintf("%d rows for %d items", len(values), len(ids)))
	}
	m := &SimilarityMatrix{
		itemIDs: append([]string(nil), ids...),
		index:   make(map[string]int, len(ids)),
		values:  make([][]float64, len(values)),
	}
	for i, id := range ids {
		if _, dup := m.index[id]; dup {
			return nil, invalidMatrix("duplicate item id " + id)
		}
		m.index[id] = i
		if len(values[i]) != len(ids) {
			return nil, invalidMatrix(fmt.Sprintf("row %d has %d columns, want %d", i, len(values[i]), len(ids)))
		}
		m.values[i] = append([]float64(nil), values[i]...)
	}
	return m, nil
}

func invalidMatrix(msg string) error {
	return core.NewDomainError(core.ModuleContent, core.ErrorCodeInvalidInput, "content: invalid similarity matrix: "+msg)
}

// Len 物品数
func (m *SimilarityMatrix) Len() int { return len(m.itemIDs) }

// ItemIDs 行列顺序（拷贝）
func (m *SimilarityMatrix) ItemIDs() []string { return append([]string(nil), m.itemIDs...) }

// Index 物品 ID → 行号（拷贝）
func (m *SimilarityMatrix) Index() map[string]int {
	out := make(map[string]int, len(m.index))
	for k, v := range m.index {
		out[k] = v
	}
	return out
}

// Position 物品所在行号
func (m *SimilarityMatrix) Position(itemID string) (int, bool) {
	i, ok := m.index[itemID]
	return i, ok
}

// At 按行列号取值
func (m *SimilarityMatrix) At(i, j int) float64 { return m.values[i][j] }

// Similarity 按物品 ID 取相似度，任一物品不存在时 ok = false
func (m *SimilarityMatrix) Similarity(a, b string) (float64, bool) {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return 0, false
	}
	return m.values[i][j], true
}

// Row 某个物品与所有物品的相似度（拷贝），顺序同 ItemIDs
func (m *SimilarityMatrix) Row(itemID string) ([]float64, bool) {
	i, ok := m.index[itemID]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), m.values[i]...), true
}

// Values 完整矩阵（深拷贝）
func (m *SimilarityMatrix) Values() [][]float64 {
	out := make([][]float64, len(m.values))
	for i, row := range m.values {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
