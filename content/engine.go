package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pkg/logging"
)

// CompositeText 拼接物品的类型、标签与简介，缺失字段视为空字符串。
func CompositeText(item core.ItemFeature) string {
	parts := []string{
		strings.Join(item.Genres, " "),
		strings.Join(item.Tags, " "),
		item.Description,
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Engine 是内容相似度引擎（ContentSimilarityEngine）。
type Engine struct {
	Vectorizer VectorizerConfig

	// Workers 并行计算相似度行的 goroutine 上限，<= 0 时为 GOMAXPROCS
	Workers int
}

// NewEngine 创建引擎
func NewEngine(cfg VectorizerConfig) *Engine {
	return &Engine{Vectorizer: cfg.withDefaults()}
}

// Fit 向量化物品文本并计算两两相似度。
// 矩阵行列顺序与输入一致；物品为空返回 core.ErrEmptyCatalog，物品 ID 重复返回 INVALID_INPUT。
func (e *Engine) Fit(ctx context.Context, items []core.ItemFeature) (*SimilarityMatrix, *Vectorizer, error) {
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("content: no items to vectorize: %w", core.ErrEmptyCatalog)
	}

	ids := make([]string, len(items))
	docs := make([]string, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if _, dup := seen[it.ItemID]; dup {
			return nil, nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeInvalidInput,
				fmt.Sprintf("content: duplicate item id %q", it.ItemID))
		}
		seen[it.ItemID] = struct{}{}
		ids[i] = it.ItemID
		docs[i] = CompositeText(it)
	}

	start := time.Now()
	vec := FitVectorizer(docs, e.Vectorizer)
	vecs := vec.TransformAll(docs)

	values, err := pairwise(ctx, vecs, e.Workers)
	if err != nil {
		return nil, nil, fmt.Errorf("content: similarity: %w", err)
	}
	m, err := NewSimilarityMatrix(ids, values)
	if err != nil {
		return nil, nil, err
	}

	logging.Debug().
		Int("items", len(ids)).
		Int("vocabulary", len(vec.vocab)).
		Dur("elapsed", time.Since(start)).
		Msg("content: 相似度矩阵计算完成")
	return m, vec, nil
}
