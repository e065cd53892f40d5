package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/reckit-trainer/pkg/logging"
)

// Step 是 Pipeline 中的一个 Node 及其失败策略。
type Step struct {
	Node Node

	// Optional 为 true 时失败只记录告警，状态保持该阶段执行前的样子；
	// 为 false 时失败终止整个运行。
	Optional bool
}

// Pipeline 把一次训练拆成有序的 Node 链：dataset → train → content → evaluate → persist。
type Pipeline struct {
	Name  string
	Steps []Step
}

// Run 依次执行各阶段。必选阶段失败时返回错误（同时返回失败前的状态，便于诊断）。
func (p *Pipeline) Run(ctx context.Context, in *State) (*State, error) {
	cur := in
	for i, step := range p.Steps {
		node := step.Node
		log := logging.With().
			Str("pipeline", p.Name).
			Str("run_id", cur.RunID).
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("step", i).
			Logger()

		start := time.Now()
		next, err := node.Process(ctx, cur)
		elapsed := time.Since(start)
		if err != nil {
			if !step.Optional {
				log.Error().Err(err).Dur("elapsed", elapsed).Msg("pipeline: 必选阶段失败，终止运行")
				return cur, fmt.Errorf("%s: %w", node.Name(), err)
			}
			log.Warn().Err(err).Dur("elapsed", elapsed).Msg("pipeline: 可选阶段失败，跳过")
			skipped := cur.Clone()
			skipped.Warnings = append(skipped.Warnings, fmt.Sprintf("%s: %v", node.Name(), err))
			cur = skipped
			continue
		}
		if next == nil {
			next = cur
		}
		log.Info().Dur("elapsed", elapsed).Msg("pipeline: 阶段完成")
		cur = next
	}
	return cur, nil
}
