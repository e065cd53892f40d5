package stage

import (
	"context"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pipeline"
	"github.com/rushteam/reckit-trainer/pkg/logging"
	"github.com/rushteam/reckit-trainer/store"
)

// SaveModel 把模型写入产物存储，并更新 latest 指针。
type SaveModel struct {
	Artifacts *store.ArtifactStore
}

func (n *SaveModel) Name() string        { return "persist.model" }
func (n *SaveModel) Kind() pipeline.Kind { return pipeline.KindPersist }

func (n *SaveModel) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	if in.Model == nil {
		return nil, missing(core.ModuleStore, "model")
	}
	key, err := n.Artifacts.SaveModel(ctx, in.Model)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	out.ModelKey = key
	out.Report.ModelKey = key
	logging.Info().Str("key", key).Msg("stage: 模型已保存")
	return out, nil
}

// SaveContent 保存相似度矩阵与向量化器。
type SaveContent struct {
	Artifacts *store.ArtifactStore
}

func (n *SaveContent) Name() string        { return "persist.content" }
func (n *SaveContent) Kind() pipeline.Kind { return pipeline.KindPersist }

func (n *SaveContent) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	if in.Similarity == nil || in.Vectorizer == nil {
		return nil, missing(core.ModuleStore, "similarity matrix")
	}
	if err := n.Artifacts.SaveSimilarity(ctx, in.Similarity); err != nil {
		return nil, err
	}
	if err := n.Artifacts.SaveVectorizer(ctx, in.Vectorizer); err != nil {
		return nil, err
	}
	logging.Info().Int("items", in.Similarity.Len()).Msg("stage: 相似度矩阵已保存")
	return in, nil
}

// SaveReport 追加评估报告，跳过的可选阶段记录在报告的 Warnings 中。
type SaveReport struct {
	Artifacts *store.ArtifactStore
}

func (n *SaveReport) Name() string        { return "persist.report" }
func (n *SaveReport) Kind() pipeline.Kind { return pipeline.KindPersist }

func (n *SaveReport) Process(ctx context.Context, in *pipeline.State) (*pipeline.State, error) {
	out := in.Clone()
	out.Report.Warnings = append([]string(nil), in.Warnings...)
	key, err := n.Artifacts.AppendReport(ctx, out.Report)
	if err != nil {
		return nil, err
	}
	out.ReportKey = key
	logging.Info().Str("key", key).Str("report_id", out.Report.ID).Msg("stage: 评估报告已保存")
	return out, nil
}
