package model

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
	"github.com/rushteam/reckit-trainer/eval"
)

// CVResult 是 K 折交叉验证结果，FoldRMSE[i] 对应第 i 折。
type CVResult struct {
	Folds    int       `json:"folds"`
	FoldRMSE []float64 `json:"fold_rmse"`
	FoldMAE  []float64 `json:"fold_mae"`
	MeanRMSE float64   `json:"mean_rmse"`
	MeanMAE  float64   `json:"mean_mae"`
}

// CrossValidate 对交互表做 K 折交叉验证，每折独立训练一个模型。
// folds <= 0 时使用默认值 3。各折并行训练，结果按折序号写入，聚合顺序固定。
func CrossValidate(ctx context.Context, table *dataset.Table, cfg SVDConfig, folds int, seed int64) (*CVResult, error) {
	if folds <= 0 {
		folds = core.DefaultTrainDefaults{}.DefaultFolds()
	}
	splits, err := table.KFold(folds, seed)
	if err != nil {
		return nil, err
	}

	res := &CVResult{
		Folds:    folds,
		FoldRMSE: make([]float64, folds),
		FoldMAE:  make([]float64, folds),
	}
	trainer := NewSVD(cfg)

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range splits {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := trainer.Fit(f.Train)
			if err != nil {
				return fmt.Errorf("fold %d: %w", f.Index, err)
			}
			reg, err := eval.RegressionMetrics(m.Test(f.Test.Interactions()))
			if err != nil {
				return fmt.Errorf("fold %d: %w", f.Index, err)
			}
			res.FoldRMSE[f.Index] = reg.RMSE
			res.FoldMAE[f.Index] = reg.MAE
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.MeanRMSE = stat.Mean(res.FoldRMSE, nil)
	res.MeanMAE = stat.Mean(res.FoldMAE, nil)
	return res, nil
}
