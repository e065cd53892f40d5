package core

// TrainDefaults 提供训练链路的默认值，各组件在零值配置时使用。
type TrainDefaults interface {
	// DefaultFactors 隐因子维度
	DefaultFactors() int

	// DefaultEpochs SGD 完整遍历次数
	DefaultEpochs() int

	// DefaultTestSize 留出测试集比例
	DefaultTestSize() float64

	// DefaultFolds 交叉验证折数
	DefaultFolds() int

	// DefaultTopK 排序指标的 K
	DefaultTopK() int

	// DefaultMaxFeatures TF-IDF 词表上限
	DefaultMaxFeatures() int
}

// DefaultTrainDefaults 是默认实现。
type DefaultTrainDefaults struct{}

func (DefaultTrainDefaults) DefaultFactors() int { return 50 }

func (DefaultTrainDefaults) DefaultEpochs() int { return 20 }

func (DefaultTrainDefaults) DefaultTestSize() float64 { return 0.2 }

func (DefaultTrainDefaults) DefaultFolds() int { return 3 }

func (DefaultTrainDefaults) DefaultTopK() int { return 10 }

func (DefaultTrainDefaults) DefaultMaxFeatures() int { return 1000 }

var _ TrainDefaults = DefaultTrainDefaults{}
