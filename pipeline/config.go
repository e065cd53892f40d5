package pipeline

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/store"
)

// Config 是 Pipeline 的配置结构（支持 YAML/JSON）。
type Config struct {
	Name  string       `yaml:"name" json:"name" koanf:"name"`
	Nodes []NodeConfig `yaml:"nodes" json:"nodes" koanf:"nodes"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type     string         `yaml:"type" json:"type" koanf:"type"`             // dataset.build / model.svd / eval.ranking 等
	Optional bool           `yaml:"optional" json:"optional" koanf:"optional"` // 失败时跳过而不是终止
	Config   map[string]any `yaml:"config" json:"config" koanf:"config"`       // Node 特定配置
}

// Deps 是构建 Node 时注入的外部协作者，测试时替换为内存实现。
type Deps struct {
	Interactions core.InteractionReader
	Catalog      core.CatalogReader
	Artifacts    *store.ArtifactStore
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// BuildPipeline 根据配置构建 Pipeline（需要 NodeFactory 注册 Node 构建器）。
// factory 由 config 包提供，避免循环依赖。
func (c *Config) BuildPipeline(factory *NodeFactory, deps Deps) (*Pipeline, error) {
	steps := make([]Step, 0, len(c.Nodes))
	for i, nc := range c.Nodes {
		node, err := factory.Build(nc.Type, nc.Config, deps)
		if err != nil {
			return nil, fmt.Errorf("build node %d (%s): %w", i, nc.Type, err)
		}
		steps = append(steps, Step{Node: node, Optional: nc.Optional})
	}
	return &Pipeline{Name: c.Name, Steps: steps}, nil
}

// NodeBuilder 根据 config 与依赖构建 Node。
type NodeBuilder func(cfg map[string]any, deps Deps) (Node, error)

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, cfg map[string]any, deps Deps) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported, "unknown node type: "+nodeType)
	}
	return builder(cfg, deps)
}

// DefaultConfig 是完整训练流程的默认阶段：
// 数据集与协同过滤训练为必选；内容模型、排序评估为可选；模型先于评估落盘。
func DefaultConfig() *Config {
	return &Config{
		Name: "train",
		Nodes: []NodeConfig{
			{Type: "dataset.build"},
			{Type: "dataset.split"},
			{Type: "model.svd"},
			{Type: "persist.model"},
			{Type: "model.cv", Optional: true},
			{Type: "content.tfidf", Optional: true},
			{Type: "persist.content", Optional: true},
			{Type: "eval.regression", Optional: true},
			{Type: "eval.ranking", Optional: true},
			{Type: "persist.report"},
		},
	}
}
