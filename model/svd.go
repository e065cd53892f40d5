package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
)

// SVDConfig 是隐因子模型的训练参数，零值字段使用默认值。
type SVDConfig struct {
	// Factors 隐因子维度，默认 50
	Factors int `json:"factors"`

	// Epochs SGD 完整遍历次数，默认 20
	Epochs int `json:"epochs"`

	// LearningRate 学习率，默认 0.005
	LearningRate float64 `json:"learning_rate"`

	// Regularization L2 正则系数（偏置与因子共用），nil 时为 0.02；显式 0 表示不做正则
	Regularization *float64 `json:"regularization,omitempty"`

	// InitMean / InitStdDev 因子初始化的正态分布参数，InitStdDev 为 nil 时为 N(0, 0.1)
	InitMean   float64  `json:"init_mean"`
	InitStdDev *float64 `json:"init_std_dev,omitempty"`

	// Seed 因子初始化种子
	Seed int64 `json:"seed"`

	// Scale 评分区间，预测时裁剪
	Scale core.RatingScale `json:"scale"`
}

// DefaultSVDConfig 默认训练参数
func DefaultSVDConfig() SVDConfig {
	d := core.DefaultTrainDefaults{}
	return SVDConfig{
		Factors:        d.DefaultFactors(),
		Epochs:         d.DefaultEpochs(),
		LearningRate:   0.005,
		Regularization: Float(0.02),
		InitStdDev:     Float(0.1),
		Scale:          core.DefaultRatingScale,
	}
}

func (c SVDConfig) withDefaults() SVDConfig {
	d := DefaultSVDConfig()
	if c.Factors <= 0 {
		c.Factors = d.Factors
	}
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Regularization == nil {
		c.Regularization = d.Regularization
	}
	if c.InitStdDev == nil {
		c.InitStdDev = d.InitStdDev
	}
	c.Scale = c.Scale.OrDefault()
	return c
}

// Float 返回 v 的指针，用于设置 Regularization / InitStdDev
func Float(v float64) *float64 { return &v }

// SVD 是基于 SGD 的偏置矩阵分解（LatentFactorEngine）。
//
// 预测分数 = 全局均值 + 用户偏置 + 物品偏置 + 用户隐向量 · 物品隐向量
//
// 训练目标：最小化带 L2 正则的平方重构误差
//
//	min Σ (r_ui − r̂_ui)² + λ(b_u² + b_i² + ‖p_u‖² + ‖q_i‖²)
type SVD struct {
	Config SVDConfig
}

// NewSVD 创建训练器
func NewSVD(cfg SVDConfig) *SVD {
	return &SVD{Config: cfg.withDefaults()}
}

// Fit 在交互表上训练模型，表为空时返回 core.ErrInsufficientData。
// 相同的表 + 相同的 Seed 训练出完全相同的参数。
func (s *SVD) Fit(table *dataset.Table) (*SVDModel, error) {
	cfg := s.Config.withDefaults()
	if !cfg.Scale.Valid() {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: invalid rating scale [%v, %v]", cfg.Scale.Min, cfg.Scale.Max))
	}
	if *cfg.Regularization < 0 || *cfg.InitStdDev < 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: negative regularization %v or init std dev %v", *cfg.Regularization, *cfg.InitStdDev))
	}
	n := table.Len()
	if n == 0 {
		return nil, core.ErrInsufficientData
	}

	m := &SVDModel{
		config:    cfg,
		userIndex: make(map[string]int),
		itemIndex: make(map[string]int),
	}

	// 索引按首次出现顺序分配
	type triple struct {
		u, i int
		r    float64
	}
	ratings := make([]triple, 0, n)
	var sum float64
	for k := 0; k < n; k++ {
		row := table.At(k)
		u, ok := m.userIndex[row.UserID]
		if !ok {
			u = len(m.userIDs)
			m.userIndex[row.UserID] = u
			m.userIDs = append(m.userIDs, row.UserID)
		}
		i, ok := m.itemIndex[row.ItemID]
		if !ok {
			i = len(m.itemIDs)
			m.itemIndex[row.ItemID] = i
			m.itemIDs = append(m.itemIDs, row.ItemID)
		}
		ratings = append(ratings, triple{u: u, i: i, r: row.Rating})
		sum += row.Rating
	}
	m.globalMean = sum / float64(n)

	rng := rand.New(rand.NewSource(cfg.Seed))
	m.userBias = make([]float64, len(m.userIDs))
	m.itemBias = make([]float64, len(m.itemIDs))
	m.userFactors = initFactors(rng, len(m.userIDs), cfg)
	m.itemFactors = initFactors(rng, len(m.itemIDs), cfg)

	lr, reg := cfg.LearningRate, *cfg.Regularization
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, t := range ratings {
			pu, qi := m.userFactors[t.u], m.itemFactors[t.i]
			err := t.r - (m.globalMean + m.userBias[t.u] + m.itemBias[t.i] + floats.Dot(pu, qi))

			m.userBias[t.u] += lr * (err - reg*m.userBias[t.u])
			m.itemBias[t.i] += lr * (err - reg*m.itemBias[t.i])

			// p_u 与 q_i 同时更新，使用更新前的值
			for f := range pu {
				puf, qif := pu[f], qi[f]
				pu[f] += lr * (err*qif - reg*puf)
				qi[f] += lr * (err*puf - reg*qif)
			}
		}
	}

	m.trainedAt = time.Now().UTC()
	return m, nil
}

func initFactors(rng *rand.Rand, rows int, cfg SVDConfig) [][]float64 {
	std := *cfg.InitStdDev
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cfg.Factors)
		for f := range out[r] {
			out[r][f] = rng.NormFloat64()*std + cfg.InitMean
		}
	}
	return out
}

// SVDModel 是训练好的隐因子模型，训练完成后不可修改。
type SVDModel struct {
	config SVDConfig

	globalMean float64

	userIndex map[string]int
	itemIndex map[string]int
	userIDs   []string
	itemIDs   []string

	userBias    []float64
	itemBias    []float64
	userFactors [][]float64
	itemFactors [][]float64

	trainedAt time.Time
}

func (m *SVDModel) Name() string { return "svd" }

// Config 训练时使用的参数
func (m *SVDModel) Config() SVDConfig { return m.config }

// GlobalMean 训练集全局均值
func (m *SVDModel) GlobalMean() float64 { return m.globalMean }

// Scale 评分区间
func (m *SVDModel) Scale() core.RatingScale { return m.config.Scale }

// TrainedAt 训练完成时间
func (m *SVDModel) TrainedAt() time.Time { return m.trainedAt }

// Users 训练集中的用户（按索引顺序）
func (m *SVDModel) Users() []string { return append([]string(nil), m.userIDs...) }

// Items 训练集中的物品（按索引顺序）
func (m *SVDModel) Items() []string { return append([]string(nil), m.itemIDs...) }

// KnowsUser 用户是否出现在训练集中
func (m *SVDModel) KnowsUser(userID string) bool {
	_, ok := m.userIndex[userID]
	return ok
}

// KnowsItem 物品是否出现在训练集中
func (m *SVDModel) KnowsItem(itemID string) bool {
	_, ok := m.itemIndex[itemID]
	return ok
}

// Predict 预测评分，结果裁剪到评分区间。
func (m *SVDModel) Predict(userID, itemID string) float64 {
	est, _ := m.PredictDetail(userID, itemID)
	return est
}

// PredictDetail 预测评分，并返回是否走了冷启动分支。
// 用户或物品不在训练集中时返回全局均值，impossible = true。
func (m *SVDModel) PredictDetail(userID, itemID string) (est float64, impossible bool) {
	u, okU := m.userIndex[userID]
	i, okI := m.itemIndex[itemID]
	if !okU || !okI {
		return m.config.Scale.Clip(m.globalMean), true
	}
	est = m.globalMean + m.userBias[u] + m.itemBias[i] + floats.Dot(m.userFactors[u], m.itemFactors[i])
	if math.IsNaN(est) {
		// 学习率过大导致发散
		est = m.globalMean
	}
	return m.config.Scale.Clip(est), false
}

// Test 对留出的 (用户, 物品, 真实评分) 逐条预测。
func (m *SVDModel) Test(pairs []core.Interaction) []core.PredictionRecord {
	out := make([]core.PredictionRecord, 0, len(pairs))
	for _, p := range pairs {
		est, impossible := m.PredictDetail(p.UserID, p.ItemID)
		out = append(out, core.PredictionRecord{
			UserID:     p.UserID,
			ItemID:     p.ItemID,
			TrueRating: core.Rating(p.Rating),
			Estimate:   est,
			Impossible: impossible,
		})
	}
	return out
}

var _ Predictor = (*SVDModel)(nil)
