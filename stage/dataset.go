// Package stage 提供训练 Pipeline 的各个 Node 实现。
//
// 每个 Node 只读入参 State，产出写入 Clone 后的副本；
// 由 config/builders 从 {type, config} 配置构建。
package stage

import (
	"context"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
	"github.com/rushteam/reckit-trainer/pipeline"
)

// BuildDataset 读取交互日志（或合成数据）构建交互表。
type BuildDataset struct {
	Builder *dataset.Builder
}

func (n *BuildDataset) Name() string        { return "dataset.build" }
func (n *BuildDataset) Kind() pipeline.Kind { return pipeline.KindDataset }

func (n *BuildDataset) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	table, err := n.Builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, core.ErrInsufficientData
	}
	out := in.Clone()
	out.Table = table
	out.Train, out.Test = nil, nil
	out.Report.DatasetOrigin = table.Origin()
	return out, nil
}

// SplitDataset 按比例切分训练集与留出测试集。
type SplitDataset struct {
	TestSize float64
	Seed     int64
}

func (n *SplitDataset) Name() string        { return "dataset.split" }
func (n *SplitDataset) Kind() pipeline.Kind { return pipeline.KindDataset }

func (n *SplitDataset) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	if in.Table == nil {
		return nil, missing(core.ModuleDataset, "dataset")
	}
	train, test, err := in.Table.Split(n.TestSize, n.Seed)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.Train, out.Test = train, test
	return out, nil
}

// missing 上游阶段没有产出时返回
func missing(module, what string) error {
	return core.NewDomainError(module, core.ErrorCodeInvalidInput, "stage: no "+what+" in state, check stage order")
}
