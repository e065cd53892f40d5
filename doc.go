// Package trainer 是推荐模型的离线训练工具包（reckit trainer）。
//
// 设计要点：
//   - Pipeline-first: 训练按 Node 串联（Dataset → Train → Content → Evaluate → Persist）
//   - 必选阶段失败终止运行，可选阶段失败记录告警并保持状态不变
//   - 数据访问通过注入的 Reader / Store 完成，不持有全局连接
package trainer

import (
	"context"
	"time"

	"github.com/rushteam/reckit-trainer/config"
	_ "github.com/rushteam/reckit-trainer/config/builders"
	"github.com/rushteam/reckit-trainer/pipeline"
)

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type State = pipeline.State
type Deps = pipeline.Deps

const (
	KindDataset  = pipeline.KindDataset
	KindTrain    = pipeline.KindTrain
	KindContent  = pipeline.KindContent
	KindEvaluate = pipeline.KindEvaluate
	KindPersist  = pipeline.KindPersist
)

// Run 按配置构建 Pipeline 并执行一次训练；cfg 为 nil 时使用 pipeline.DefaultConfig。
func Run(ctx context.Context, cfg *pipeline.Config, deps Deps) (*State, error) {
	if cfg == nil {
		cfg = pipeline.DefaultConfig()
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory(), deps)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, pipeline.NewState(time.Now()))
}
