// Package builders 注册内置训练 Node 的构建器。
//
// 入口处匿名导入即可：import _ "github.com/rushteam/reckit-trainer/config/builders"
package builders

import (
	"fmt"

	"github.com/rushteam/reckit-trainer/config"
	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
	"github.com/rushteam/reckit-trainer/eval"
	"github.com/rushteam/reckit-trainer/model"
	"github.com/rushteam/reckit-trainer/pipeline"
	"github.com/rushteam/reckit-trainer/pkg/conv"
	"github.com/rushteam/reckit-trainer/stage"
)

func init() {
	config.Register("dataset.build", BuildDatasetNode)
	config.Register("dataset.split", BuildSplitNode)
	config.Register("model.svd", BuildSVDNode)
	config.Register("model.cv", BuildCVNode)
	config.Register("content.tfidf", BuildContentNode)
	config.Register("eval.regression", BuildRegressionNode)
	config.Register("eval.ranking", BuildRankingNode)
	config.Register("persist.model", BuildSaveModelNode)
	config.Register("persist.content", BuildSaveContentNode)
	config.Register("persist.report", BuildSaveReportNode)
}

func BuildDatasetNode(cfg map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Interactions == nil && deps.Catalog == nil {
		return nil, fmt.Errorf("dataset.build: no interaction or catalog reader")
	}
	d := dataset.DefaultConfig()
	dc := dataset.Config{
		BatchSize:       conv.ConfigGetInt(cfg, "batch_size", d.BatchSize),
		CatalogLimit:    conv.ConfigGetInt(cfg, "catalog_limit", d.CatalogLimit),
		SyntheticUsers:  conv.ConfigGetInt(cfg, "synthetic_users", d.SyntheticUsers),
		MinItemsPerUser: conv.ConfigGetInt(cfg, "min_items_per_user", d.MinItemsPerUser),
		MaxItemsPerUser: conv.ConfigGetInt(cfg, "max_items_per_user", d.MaxItemsPerUser),
		RatingMean:      conv.ConfigGetFloat64(cfg, "rating_mean", d.RatingMean),
		RatingStdDev:    conv.ConfigGetFloat64(cfg, "rating_std_dev", d.RatingStdDev),
		ImplicitMin:     conv.ConfigGetFloat64(cfg, "implicit_min", d.ImplicitMin),
		ImplicitMax:     conv.ConfigGetFloat64(cfg, "implicit_max", d.ImplicitMax),
		Scale:           ratingScale(cfg),
		Seed:            conv.ConfigGetInt64(cfg, "seed", d.Seed),
	}
	if dc.ImplicitMax < dc.ImplicitMin {
		return nil, fmt.Errorf("dataset.build: implicit_max %v < implicit_min %v", dc.ImplicitMax, dc.ImplicitMin)
	}
	return &stage.BuildDataset{Builder: dataset.NewBuilder(deps.Interactions, deps.Catalog, dc)}, nil
}

func BuildSplitNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	testSize := conv.ConfigGetFloat64(cfg, "test_size", core.DefaultTrainDefaults{}.DefaultTestSize())
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("dataset.split: test_size must be in (0, 1), got %v", testSize)
	}
	return &stage.SplitDataset{
		TestSize: testSize,
		Seed:     conv.ConfigGetInt64(cfg, "seed", 42),
	}, nil
}

func BuildSVDNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	sc, err := svdConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("model.svd: %w", err)
	}
	return &stage.TrainSVD{Config: sc}, nil
}

func BuildCVNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	sc, err := svdConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("model.cv: %w", err)
	}
	folds := conv.ConfigGetInt(cfg, "folds", core.DefaultTrainDefaults{}.DefaultFolds())
	if folds < 2 {
		return nil, fmt.Errorf("model.cv: folds must be >= 2, got %d", folds)
	}
	return &stage.CrossValidate{
		Config: sc,
		Folds:  folds,
		Seed:   conv.ConfigGetInt64(cfg, "cv_seed", 42),
	}, nil
}

// svdConfig 解析隐因子模型参数，未配置的字段保留零值（或 nil），由 model.SVD 填默认值。
// regularization / init_std_dev 显式配置为 0 时按 0 生效。
func svdConfig(cfg map[string]any) (model.SVDConfig, error) {
	sc := model.SVDConfig{
		Factors:      conv.ConfigGetInt(cfg, "factors", 0),
		Epochs:       conv.ConfigGetInt(cfg, "epochs", 0),
		LearningRate: conv.ConfigGetFloat64(cfg, "learning_rate", 0),
		InitMean:     conv.ConfigGetFloat64(cfg, "init_mean", 0),
		Seed:         conv.ConfigGetInt64(cfg, "seed", 0),
		Scale:        ratingScale(cfg),
	}
	if sc.Factors < 0 || sc.Epochs < 0 || sc.LearningRate < 0 {
		return sc, fmt.Errorf("negative hyper-parameter: factors=%d epochs=%d learning_rate=%v",
			sc.Factors, sc.Epochs, sc.LearningRate)
	}
	for key, dst := range map[string]**float64{
		"regularization": &sc.Regularization,
		"init_std_dev":   &sc.InitStdDev,
	} {
		v, ok := cfg[key]
		if !ok {
			continue
		}
		f, ok := conv.ToFloat64(v)
		if !ok || f < 0 {
			return sc, fmt.Errorf("%s must be a non-negative number, got %v", key, v)
		}
		*dst = model.Float(f)
	}
	if !sc.Scale.OrDefault().Valid() {
		return sc, fmt.Errorf("invalid rating scale [%v, %v]", sc.Scale.Min, sc.Scale.Max)
	}
	return sc, nil
}

// ratingScale 读取 rating_min / rating_max；两者都未配置时返回零值（使用默认 [1, 5]）
func ratingScale(cfg map[string]any) core.RatingScale {
	return core.RatingScale{
		Min: conv.ConfigGetFloat64(cfg, "rating_min", 0),
		Max: conv.ConfigGetFloat64(cfg, "rating_max", 0),
	}
}

func BuildContentNode(cfg map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("content.tfidf: no catalog reader")
	}
	vc := content.DefaultVectorizerConfig()
	if conv.ConfigGet(cfg, "preset", "") == "preprocess" {
		vc = content.PreprocessConfig()
	}
	vc.MaxFeatures = conv.ConfigGetInt(cfg, "max_features", vc.MaxFeatures)
	vc.NGramMin = conv.ConfigGetInt(cfg, "ngram_min", vc.NGramMin)
	vc.NGramMax = conv.ConfigGetInt(cfg, "ngram_max", vc.NGramMax)
	if vc.NGramMin < 1 || vc.NGramMax < vc.NGramMin {
		return nil, fmt.Errorf("content.tfidf: invalid ngram range (%d, %d)", vc.NGramMin, vc.NGramMax)
	}

	engine := content.NewEngine(vc)
	engine.Workers = conv.ConfigGetInt(cfg, "workers", 0)
	return &stage.ContentSimilarity{
		Catalog: deps.Catalog,
		Engine:  engine,
		Limit:   conv.ConfigGetInt(cfg, "limit", 0),
	}, nil
}

func BuildRegressionNode(_ map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	return &stage.RegressionEval{}, nil
}

// BuildRankingNode 相关性优先使用 expr（CEL），否则使用 threshold。
func BuildRankingNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	k := conv.ConfigGetInt(cfg, "k", core.DefaultTrainDefaults{}.DefaultTopK())
	if k < 1 {
		return nil, fmt.Errorf("eval.ranking: k must be >= 1, got %d", k)
	}
	var rel eval.Relevance = eval.NewThresholdRelevance(conv.ConfigGetFloat64(cfg, "threshold", 4.0))
	if expr := conv.ConfigGet(cfg, "expr", ""); expr != "" {
		er, err := eval.NewExprRelevance(expr)
		if err != nil {
			return nil, fmt.Errorf("eval.ranking: %w", err)
		}
		rel = er
	}
	return &stage.RankingEval{K: k, Relevance: rel}, nil
}

func BuildSaveModelNode(_ map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Artifacts == nil {
		return nil, fmt.Errorf("persist.model: no artifact store")
	}
	return &stage.SaveModel{Artifacts: deps.Artifacts}, nil
}

func BuildSaveContentNode(_ map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Artifacts == nil {
		return nil, fmt.Errorf("persist.content: no artifact store")
	}
	return &stage.SaveContent{Artifacts: deps.Artifacts}, nil
}

func BuildSaveReportNode(_ map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Artifacts == nil {
		return nil, fmt.Errorf("persist.report: no artifact store")
	}
	return &stage.SaveReport{Artifacts: deps.Artifacts}, nil
}
