package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pkg/logging"
)

// synthesize 基于物品目录合成交互数据。
//
// 每个用户 ID 为 "1".."SyntheticUsers"，随机选 [MinItemsPerUser, MaxItemsPerUser] 个不重复物品
// （目录不足时取全部），评分服从 N(RatingMean, RatingStdDev) 并裁剪到评分区间。
// 相同 Seed + 相同目录得到完全相同的表。
func (b *Builder) synthesize(ctx context.Context, cfg Config, rng *rand.Rand) (*Table, error) {
	if b.Catalog == nil {
		return nil, core.ErrEmptyCatalog
	}
	items, err := b.Catalog.ReadCatalog(ctx, cfg.CatalogLimit)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(items) == 0 {
		return nil, core.ErrEmptyCatalog
	}

	rows := Synthesize(items, cfg, rng)
	table := NewTable(rows)
	table.origin = OriginSynthetic

	logging.Info().
		Int("users", cfg.SyntheticUsers).
		Int("items", len(items)).
		Int("interactions", table.Len()).
		Msg("dataset: 合成数据已生成")
	return table, nil
}

// Synthesize 是合成逻辑本身，不访问外部数据源。
func Synthesize(items []core.ItemFeature, cfg Config, rng *rand.Rand) []core.Interaction {
	cfg = cfg.withDefaults()
	span := cfg.MaxItemsPerUser - cfg.MinItemsPerUser + 1

	rows := make([]core.Interaction, 0, cfg.SyntheticUsers*(cfg.MinItemsPerUser+span/2))
	for u := 1; u <= cfg.SyntheticUsers; u++ {
		userID := strconv.Itoa(u)
		n := cfg.MinItemsPerUser + rng.Intn(span)
		if n > len(items) {
			n = len(items)
		}
		// 无放回采样：随机排列取前 n 个
		picked := rng.Perm(len(items))[:n]
		for _, idx := range picked {
			rating := cfg.Scale.Clip(rng.NormFloat64()*cfg.RatingStdDev + cfg.RatingMean)
			rows = append(rows, core.Interaction{
				UserID: userID,
				ItemID: items[idx].ItemID,
				Rating: rating,
			})
		}
	}
	return rows
}
