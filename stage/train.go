package stage

import (
	"context"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/model"
	"github.com/rushteam/reckit-trainer/pipeline"
	"github.com/rushteam/reckit-trainer/pkg/logging"
)

// TrainSVD 在训练集上拟合隐因子模型，并对留出集逐条预测。
// 没有切分时在全表上训练，此时不产生留出集预测。
type TrainSVD struct {
	Config model.SVDConfig
}

func (n *TrainSVD) Name() string        { return "model.svd" }
func (n *TrainSVD) Kind() pipeline.Kind { return pipeline.KindTrain }

func (n *TrainSVD) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	table := in.TrainingTable()
	if table == nil {
		return nil, missing(core.ModuleModel, "dataset")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := model.NewSVD(n.Config).Fit(table)
	if err != nil {
		return nil, err
	}

	out := in.Clone()
	out.Model = m
	out.Predictions = nil
	if in.Test != nil {
		out.Predictions = m.Test(in.Test.Interactions())
	}
	logging.Info().
		Int("train", table.Len()).
		Int("predictions", len(out.Predictions)).
		Int("users", len(m.Users())).
		Int("items", len(m.Items())).
		Msg("stage: 隐因子模型训练完成")
	return out, nil
}

// CrossValidate 在全表上做 k 折交叉验证，结果写入报告。
type CrossValidate struct {
	Config model.SVDConfig
	Folds  int
	Seed   int64
}

func (n *CrossValidate) Name() string        { return "model.cv" }
func (n *CrossValidate) Kind() pipeline.Kind { return pipeline.KindTrain }

func (n *CrossValidate) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	if in.Table == nil {
		return nil, missing(core.ModuleModel, "dataset")
	}
	res, err := model.CrossValidate(ctx, in.Table, n.Config, n.Folds, n.Seed)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.CV = res
	cf := &out.Report.CollaborativeFiltering
	cf.CVRMSE = res.MeanRMSE
	cf.CVMAE = res.MeanMAE
	cf.CVFoldRMSE = append([]float64(nil), res.FoldRMSE...)
	cf.CVFoldMAE = append([]float64(nil), res.FoldMAE...)
	return out, nil
}
