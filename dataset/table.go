package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rushteam/reckit-trainer/core"
)

// Table 是去重后的交互表：每个 (用户, 物品) 最多一条评分。
// 构造后只读，所有访问器都返回副本。
type Table struct {
	rows   []core.Interaction
	origin string
}

// 交互表来源
const (
	OriginLog       = "log"
	OriginSynthetic = "synthetic"
)

type pairKey struct {
	user string
	item string
}

// NewTable 从原始记录构建交互表。
// 同一 (用户, 物品) 出现多次时保留时间戳最新的一条；时间戳相同则保留日志中靠后的一条。
// 输出顺序为每个 pair 首次出现的顺序，保证相同输入得到相同的表。
func NewTable(records []core.Interaction) *Table {
	index := make(map[pairKey]int, len(records))
	rows := make([]core.Interaction, 0, len(records))
	for _, r := range records {
		k := pairKey{user: r.UserID, item: r.ItemID}
		if i, ok := index[k]; ok {
			if !r.Timestamp.Before(rows[i].Timestamp) {
				rows[i] = r
			}
			continue
		}
		index[k] = len(rows)
		rows = append(rows, r)
	}
	return &Table{rows: rows, origin: OriginLog}
}

// Origin 返回数据来源：OriginLog 或 OriginSynthetic
func (t *Table) Origin() string {
	if t == nil {
		return ""
	}
	return t.origin
}

// Len 记录数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Interactions 返回所有记录的副本
func (t *Table) Interactions() []core.Interaction {
	if t == nil {
		return nil
	}
	out := make([]core.Interaction, len(t.rows))
	copy(out, t.rows)
	return out
}

// At 返回第 i 条记录
func (t *Table) At(i int) core.Interaction {
	return t.rows[i]
}

// Users 返回去重后的用户 ID（按字典序）
func (t *Table) Users() []string {
	return t.distinct(func(r core.Interaction) string { return r.UserID })
}

// Items 返回去重后的物品 ID（按字典序）
func (t *Table) Items() []string {
	return t.distinct(func(r core.Interaction) string { return r.ItemID })
}

func (t *Table) distinct(key func(core.Interaction) string) []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range t.rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Split 按 testSize 比例切分训练/测试集。
// 用 seed 打乱后取前 ceil(testSize*n) 条作为测试集，相同 seed 得到相同切分。
func (t *Table) Split(testSize float64, seed int64) (train, test *Table, err error) {
	n := t.Len()
	if n == 0 {
		return nil, nil, core.ErrInsufficientData
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: test size must be in (0, 1)")
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return nil, nil, core.ErrInsufficientData
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testRows := make([]core.Interaction, 0, nTest)
	trainRows := make([]core.Interaction, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			testRows = append(testRows, t.rows[idx])
		} else {
			trainRows = append(trainRows, t.rows[idx])
		}
	}
	return &Table{rows: trainRows, origin: t.origin}, &Table{rows: testRows, origin: t.origin}, nil
}

// Fold 是一次 K 折中的训练/测试划分
type Fold struct {
	Index int
	Train *Table
	Test  *Table
}

// KFold 打乱后切成 k 折；前 n%k 折各多一条。
func (t *Table) KFold(k int, seed int64) ([]Fold, error) {
	n := t.Len()
	if k < 2 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: k-fold needs k >= 2")
	}
	if n < k {
		return nil, core.ErrInsufficientData
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([]Fold, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		stop := start + size

		testRows := make([]core.Interaction, 0, size)
		trainRows := make([]core.Interaction, 0, n-size)
		for i, idx := range perm {
			if i >= start && i < stop {
				testRows = append(testRows, t.rows[idx])
			} else {
				trainRows = append(trainRows, t.rows[idx])
			}
		}
		folds = append(folds, Fold{Index: f, Train: &Table{rows: trainRows, origin: t.origin}, Test: &Table{rows: testRows, origin: t.origin}})
		start = stop
	}
	return folds, nil
}
