// Package dataset 构建训练用的 (用户, 物品, 评分) 交互表。
//
// 数据来源优先级：
//  1. 真实交互日志（显式评分直接使用，隐式点击映射为评分）
//  2. 日志为空时，基于物品目录合成一份数据，保证训练链路在空库下仍可运行和测试
package dataset

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pkg/logging"
)

// Config 数据集构建配置，零值字段使用默认值。
type Config struct {
	// BatchSize 单次训练最多读取的交互条数，默认 10000
	BatchSize int

	// CatalogLimit 合成数据时最多使用的物品数，默认 100
	CatalogLimit int

	// SyntheticUsers 合成用户数，默认 200
	SyntheticUsers int

	// MinItemsPerUser / MaxItemsPerUser 每个合成用户评分的物品数区间（闭区间），默认 [10, 50]
	MinItemsPerUser int
	MaxItemsPerUser int

	// RatingMean / RatingStdDev 合成评分的正态分布参数，默认 N(3.5, 1.0)
	RatingMean   float64
	RatingStdDev float64

	// ImplicitMin / ImplicitMax 隐式行为映射的评分区间，默认 [3.5, 5.0]
	ImplicitMin float64
	ImplicitMax float64

	// Scale 评分区间，默认 [1, 5]
	Scale core.RatingScale

	// Seed 随机种子；合成数据与隐式映射都由它决定
	Seed int64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BatchSize:       10000,
		CatalogLimit:    100,
		SyntheticUsers:  200,
		MinItemsPerUser: 10,
		MaxItemsPerUser: 50,
		RatingMean:      3.5,
		RatingStdDev:    1.0,
		ImplicitMin:     3.5,
		ImplicitMax:     5.0,
		Scale:           core.DefaultRatingScale,
		Seed:            42,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.CatalogLimit <= 0 {
		c.CatalogLimit = d.CatalogLimit
	}
	if c.SyntheticUsers <= 0 {
		c.SyntheticUsers = d.SyntheticUsers
	}
	if c.MinItemsPerUser <= 0 {
		c.MinItemsPerUser = d.MinItemsPerUser
	}
	if c.MaxItemsPerUser < c.MinItemsPerUser {
		c.MaxItemsPerUser = max(d.MaxItemsPerUser, c.MinItemsPerUser)
	}
	if c.RatingMean == 0 {
		c.RatingMean = d.RatingMean
	}
	if c.RatingStdDev <= 0 {
		c.RatingStdDev = d.RatingStdDev
	}
	if c.ImplicitMin == 0 && c.ImplicitMax == 0 {
		c.ImplicitMin, c.ImplicitMax = d.ImplicitMin, d.ImplicitMax
	}
	c.Scale = c.Scale.OrDefault()
	return c
}

// Builder 是交互数据集构建器（InteractionDatasetBuilder）。
// 数据访问通过构造时注入的 Reader 完成，不持有全局连接。
type Builder struct {
	Interactions core.InteractionReader
	Catalog      core.CatalogReader
	Config       Config
}

// NewBuilder 创建构建器；interactions 可以为 nil（直接走合成路径）
func NewBuilder(interactions core.InteractionReader, catalog core.CatalogReader, cfg Config) *Builder {
	return &Builder{
		Interactions: interactions,
		Catalog:      catalog,
		Config:       cfg,
	}
}

// Build 构建交互表。
// 日志为空时合成数据；目录也为空时返回 core.ErrEmptyCatalog，调用方不应继续训练。
func (b *Builder) Build(ctx context.Context) (*Table, error) {
	cfg := b.Config.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	if b.Interactions != nil {
		raws, err := b.Interactions.ReadInteractions(ctx, cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("read interactions: %w", err)
		}
		if len(raws) > 0 {
			table := NewTable(normalize(raws, cfg, rng))
			logging.Info().
				Int("raw", len(raws)).
				Int("interactions", table.Len()).
				Msg("dataset: 已从交互日志加载")
			return table, nil
		}
	}

	logging.Info().Msg("dataset: 交互日志为空，生成合成数据")
	return b.synthesize(ctx, cfg, rng)
}

// normalize 把原始日志映射为评分，并按 (用户, 物品) 合并。
// 显式评分裁剪到评分区间；隐式行为映射为 [ImplicitMin, ImplicitMax) 上的均匀采样。
// 同一 pair 上显式评分总是优先于隐式行为；同类记录保留时间戳最新的一条，相同时取日志中靠后的一条。
func normalize(raws []core.RawInteraction, cfg Config, rng *rand.Rand) []core.Interaction {
	type entry struct {
		row      core.Interaction
		explicit bool
	}
	index := make(map[pairKey]int, len(raws))
	entries := make([]entry, 0, len(raws))
	for _, r := range raws {
		if r.UserID == "" || r.ItemID == "" {
			continue
		}
		e := entry{explicit: r.IsExplicit()}
		var rating float64
		if e.explicit {
			rating = cfg.Scale.Clip(*r.Rating)
		} else {
			rating = cfg.Scale.Clip(ImplicitRating(rng, cfg.ImplicitMin, cfg.ImplicitMax))
		}
		e.row = core.Interaction{
			UserID:    r.UserID,
			ItemID:    r.ItemID,
			Rating:    rating,
			Timestamp: r.Timestamp,
		}

		k := pairKey{user: r.UserID, item: r.ItemID}
		i, ok := index[k]
		if !ok {
			index[k] = len(entries)
			entries = append(entries, e)
			continue
		}
		cur := entries[i]
		if cur.explicit != e.explicit {
			if e.explicit {
				entries[i] = e
			}
			continue
		}
		if !e.row.Timestamp.Before(cur.row.Timestamp) {
			entries[i] = e
		}
	}

	out := make([]core.Interaction, len(entries))
	for i, e := range entries {
		out[i] = e.row
	}
	return out
}

// ImplicitRating 把一次隐式点击映射为 [lo, hi) 上的均匀分布评分，偏向正反馈。
func ImplicitRating(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
