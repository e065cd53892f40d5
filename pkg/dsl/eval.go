package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义预测记录上可用的变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("user_id", cel.StringType),
		cel.Variable("item_id", cel.StringType),
		cel.Variable("rating", cel.DoubleType),
		cel.Variable("estimate", cel.DoubleType),
		cel.Variable("impossible", cel.BoolType),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Input 是表达式求值时可见的一条预测记录。
type Input struct {
	UserID     string
	ItemID     string
	Rating     float64
	Estimate   float64
	Impossible bool
}

func (in Input) vars() map[string]any {
	return map[string]any{
		"user_id":    in.UserID,
		"item_id":    in.ItemID,
		"rating":     in.Rating,
		"estimate":   in.Estimate,
		"impossible": in.Impossible,
	}
}

// Eval 是相关性 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// 表达式在 NewEval 时编译一次，之后 Evaluate 可并发调用。
//
// 可用变量：
//   - rating：真实评分
//   - estimate：模型预测评分
//   - user_id / item_id
//   - impossible：是否走了冷启动分支
//
// 示例：
//   - `rating >= 4.0` → 真实评分达到 4 分即相关
//   - `rating >= 4.0 && !impossible`
//   - `rating >= 3.5 && item_id != "0"`
type Eval struct {
	expr string
	prg  cel.Program
}

// NewEval 编译表达式。表达式为空时永远返回 true。
func NewEval(expr string) (*Eval, error) {
	e := &Eval{expr: expr}
	if expr == "" {
		return e, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return boolean, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	e.prg = prg
	return e, nil
}

// Expr 原始表达式
func (e *Eval) Expr() string { return e.expr }

// Evaluate 对一条记录求值，返回布尔结果。
func (e *Eval) Evaluate(in Input) (bool, error) {
	if e.prg == nil {
		return true, nil
	}
	out, _, err := e.prg.Eval(in.vars())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}
