// Package source 实现 core.InteractionReader / core.CatalogReader。
//
// MongoDB 实现读取线上文档库；Memory 实现用于测试和离线样例数据。
package source

import (
	"context"

	"github.com/rushteam/reckit-trainer/core"
)

// MemoryInteractionReader 基于切片的交互日志
type MemoryInteractionReader struct {
	Records []core.RawInteraction
}

// NewMemoryInteractionReader 创建内存交互日志
func NewMemoryInteractionReader(records ...core.RawInteraction) *MemoryInteractionReader {
	return &MemoryInteractionReader{Records: records}
}

func (r *MemoryInteractionReader) ReadInteractions(ctx context.Context, limit int) ([]core.RawInteraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return head(r.Records, limit), nil
}

// MemoryCatalogReader 基于切片的物品目录
type MemoryCatalogReader struct {
	Items []core.ItemFeature
}

// NewMemoryCatalogReader 创建内存物品目录
func NewMemoryCatalogReader(items ...core.ItemFeature) *MemoryCatalogReader {
	return &MemoryCatalogReader{Items: items}
}

func (r *MemoryCatalogReader) ReadCatalog(ctx context.Context, limit int) ([]core.ItemFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return head(r.Items, limit), nil
}

// head 返回前 limit 个元素的副本；limit <= 0 返回全部
func head[T any](s []T, limit int) []T {
	n := len(s)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	copy(out, s[:n])
	return out
}

var (
	_ core.InteractionReader = (*MemoryInteractionReader)(nil)
	_ core.CatalogReader     = (*MemoryCatalogReader)(nil)
)
