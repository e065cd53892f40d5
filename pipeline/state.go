package pipeline

import (
	"time"

	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
	"github.com/rushteam/reckit-trainer/eval"
	"github.com/rushteam/reckit-trainer/model"
)

// State 是一次训练运行在各阶段之间传递的结果集合。
// 各阶段只读入参，通过 Clone 得到副本后再写入自己的产出。
type State struct {
	RunID     string
	StartedAt time.Time

	// 数据集
	Table *dataset.Table
	Train *dataset.Table
	Test  *dataset.Table

	// 协同过滤
	Model       *model.SVDModel
	ModelKey    string
	CV          *model.CVResult
	Predictions []core.PredictionRecord

	// 内容相似度
	Catalog    []core.ItemFeature
	Similarity *content.SimilarityMatrix
	Vectorizer *content.Vectorizer

	// 评估
	Report    *eval.Report
	ReportKey string

	// Warnings 可选阶段的失败记录，由 Pipeline 追加
	Warnings []string
}

// NewState 创建一次运行的初始状态，报告的时间戳与 ID 即本次运行的时间戳与 ID。
func NewState(now time.Time) *State {
	r := eval.NewReport(now)
	return &State{
		RunID:     r.ID,
		StartedAt: r.Timestamp,
		Report:    r,
	}
}

// Clone 浅拷贝：指针字段共享（它们指向的产物本身不可变），切片字段重新分配。
func (s *State) Clone() *State {
	out := *s
	out.Predictions = append([]core.PredictionRecord(nil), s.Predictions...)
	out.Catalog = append([]core.ItemFeature(nil), s.Catalog...)
	out.Warnings = append([]string(nil), s.Warnings...)
	if s.Report != nil {
		out.Report = s.Report.Clone()
	}
	return &out
}

// TrainingTable 训练用的表：切分过则为训练集，否则为全表
func (s *State) TrainingTable() *dataset.Table {
	if s.Train != nil {
		return s.Train
	}
	return s.Table
}
