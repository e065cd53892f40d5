package stage

import (
	"context"
	"fmt"

	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pipeline"
)

// ContentSimilarity 读取物品目录，构建 TF-IDF 向量与物品相似度矩阵。
type ContentSimilarity struct {
	Catalog core.CatalogReader
	Engine  *content.Engine

	// Limit 最多读取的物品数，<= 0 表示全部
	Limit int
}

func (n *ContentSimilarity) Name() string        { return "content.tfidf" }
func (n *ContentSimilarity) Kind() pipeline.Kind { return pipeline.KindContent }

func (n *ContentSimilarity) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	if n.Catalog == nil {
		return nil, core.ErrEmptyCatalog
	}
	items, err := n.Catalog.ReadCatalog(ctx, n.Limit)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	sim, vec, err := n.Engine.Fit(ctx, items)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.Catalog = items
	out.Similarity = sim
	out.Vectorizer = vec
	out.Report.SetContent(sim.Len())
	return out, nil
}
