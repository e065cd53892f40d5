package core

import (
	"math"
	"time"
)

// Interaction 是训练表中的一条 (用户, 物品, 评分) 记录。
// 进入训练后不可修改；Table 对外只暴露副本。
type Interaction struct {
	UserID    string
	ItemID    string
	Rating    float64
	Timestamp time.Time
}

// RawInteraction 是外部交互日志中的原始记录。
//
// Rating 非空表示显式评分；为空时是隐式行为（view / watch / click），
// 由 dataset.Builder 映射为评分，而不是当作 0 分。
type RawInteraction struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Rating    *float64  `json:"rating,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsExplicit 是否为显式评分
func (r RawInteraction) IsExplicit() bool {
	return r.Rating != nil
}

// ItemFeature 是内容相似度的输入：物品的类型、标签和描述。
type ItemFeature struct {
	ItemID      string   `json:"item_id"`
	Genres      []string `json:"genres,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// PredictionRecord 是一次预测的结果，只在 model 与 eval 之间传递，不持久化。
type PredictionRecord struct {
	UserID string
	ItemID string

	// TrueRating 为空表示没有真实评分（只用于排序，不参与 RMSE/MAE）
	TrueRating *float64

	// Estimate 是裁剪到评分区间后的预测值
	Estimate float64

	// Impossible 表示冷启动回退（用户或物品在训练集中不存在，Estimate = 全局均值）
	Impossible bool
}

// Rating 返回一个评分指针，便于构造 RawInteraction / PredictionRecord。
func Rating(v float64) *float64 {
	return &v
}

// RatingScale 是评分区间 [Min, Max]。
type RatingScale struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultRatingScale 默认 1~5 分
var DefaultRatingScale = RatingScale{Min: 1, Max: 5}

// Clip 把 v 裁剪到 [Min, Max]
func (s RatingScale) Clip(v float64) float64 {
	return math.Max(s.Min, math.Min(s.Max, v))
}

// Valid 区间是否合法（Min < Max 且都是有限数）
func (s RatingScale) Valid() bool {
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return false
	}
	return s.Min < s.Max
}

// OrDefault 零值时返回 DefaultRatingScale
func (s RatingScale) OrDefault() RatingScale {
	if s.Min == 0 && s.Max == 0 {
		return DefaultRatingScale
	}
	return s
}
