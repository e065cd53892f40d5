package model

import (
	"fmt"
	"time"

	"github.com/rushteam/reckit-trainer/core"
)

// SVDState 是 SVDModel 的持久化结构：所有参数都是具名字段，不依赖语言相关的对象序列化。
type SVDState struct {
	Config      SVDConfig   `json:"config"`
	GlobalMean  float64     `json:"global_mean"`
	UserIDs     []string    `json:"user_ids"`
	ItemIDs     []string    `json:"item_ids"`
	UserBias    []float64   `json:"user_bias"`
	ItemBias    []float64   `json:"item_bias"`
	UserFactors [][]float64 `json:"user_factors"`
	ItemFactors [][]float64 `json:"item_factors"`
	TrainedAt   time.Time   `json:"trained_at"`
}

// Snapshot 导出模型参数（深拷贝）
func (m *SVDModel) Snapshot() SVDState {
	return SVDState{
		Config:      m.config,
		GlobalMean:  m.globalMean,
		UserIDs:     append([]string(nil), m.userIDs...),
		ItemIDs:     append([]string(nil), m.itemIDs...),
		UserBias:    append([]float64(nil), m.userBias...),
		ItemBias:    append([]float64(nil), m.itemBias...),
		UserFactors: copyMatrix(m.userFactors),
		ItemFactors: copyMatrix(m.itemFactors),
		TrainedAt:   m.trainedAt,
	}
}

// FromState 从持久化结构恢复模型，维度不一致时返回错误。
func FromState(s SVDState) (*SVDModel, error) {
	if len(s.UserIDs) != len(s.UserBias) || len(s.UserIDs) != len(s.UserFactors) {
		return nil, invalidState("user dimensions mismatch")
	}
	if len(s.ItemIDs) != len(s.ItemBias) || len(s.ItemIDs) != len(s.ItemFactors) {
		return nil, invalidState("item dimensions mismatch")
	}
	for _, rows := range [][][]float64{s.UserFactors, s.ItemFactors} {
		for _, row := range rows {
			if len(row) != s.Config.Factors {
				return nil, invalidState(fmt.Sprintf("factor row has %d values, want %d", len(row), s.Config.Factors))
			}
		}
	}

	m := &SVDModel{
		config:      s.Config,
		globalMean:  s.GlobalMean,
		userIndex:   make(map[string]int, len(s.UserIDs)),
		itemIndex:   make(map[string]int, len(s.ItemIDs)),
		userIDs:     append([]string(nil), s.UserIDs...),
		itemIDs:     append([]string(nil), s.ItemIDs...),
		userBias:    append([]float64(nil), s.UserBias...),
		itemBias:    append([]float64(nil), s.ItemBias...),
		userFactors: copyMatrix(s.UserFactors),
		itemFactors: copyMatrix(s.ItemFactors),
		trainedAt:   s.TrainedAt,
	}
	for i, id := range m.userIDs {
		if _, dup := m.userIndex[id]; dup {
			return nil, invalidState("duplicate user id " + id)
		}
		m.userIndex[id] = i
	}
	for i, id := range m.itemIDs {
		if _, dup := m.itemIndex[id]; dup {
			return nil, invalidState("duplicate item id " + id)
		}
		m.itemIndex[id] = i
	}
	return m, nil
}

func invalidState(msg string) error {
	return core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "model: invalid state: "+msg)
}

func copyMatrix(src [][]float64) [][]float64 {
	out := make([][]float64, len(src))
	for i, row := range src {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
