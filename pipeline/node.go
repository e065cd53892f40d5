package pipeline

import (
	"context"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindDataset  Kind = "dataset"  // 数据集阶段：读取交互日志或合成数据，切分训练/测试集
	KindTrain    Kind = "train"    // 训练阶段：隐因子模型拟合、交叉验证
	KindContent  Kind = "content"  // 内容阶段：TF-IDF 向量化与相似度矩阵
	KindEvaluate Kind = "evaluate" // 评估阶段：RMSE/MAE 与 Precision@K/Recall@K
	KindPersist  Kind = "persist"  // 持久化阶段：模型、相似度矩阵、评估报告写入产物存储
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 State -> 输出 State"的形态：Node 不修改入参，而是返回一个新的 State，
// 可选阶段失败时 Pipeline 直接沿用入参继续执行。
type Node interface {
	Name() string
	Kind() Kind

	Process(ctx context.Context, in *State) (*State, error)
}
