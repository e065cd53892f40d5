// Package config 加载训练任务配置。
//
// 配置分三层，后者覆盖前者：
//  1. 代码中的默认值（structs provider）
//  2. YAML 配置文件（可选）
//  3. 环境变量，前缀 RECKIT_，如 RECKIT_STORE_TYPE -> store.type、RECKIT_SOURCE_MONGO_URI -> source.mongo.uri
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/rushteam/reckit-trainer/pipeline"
	"github.com/rushteam/reckit-trainer/pkg/logging"
	"github.com/rushteam/reckit-trainer/source"
	"github.com/rushteam/reckit-trainer/store"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "RECKIT_"

// 数据源类型
const (
	SourceMongo  = "mongo"
	SourceMemory = "memory" // 读取 Fixture 文件；未配置文件时为空库，走合成路径也会因目录为空失败
)

// 产物存储类型
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

// Config 是训练任务的完整配置。
type Config struct {
	Log      logging.Config  `koanf:"log" yaml:"log"`
	Source   SourceConfig    `koanf:"source" yaml:"source"`
	Store    StoreConfig     `koanf:"store" yaml:"store"`
	Pipeline pipeline.Config `koanf:"pipeline" yaml:"pipeline"`
}

// SourceConfig 交互日志与物品目录的来源
type SourceConfig struct {
	Type  string             `koanf:"type" yaml:"type" validate:"required,oneof=mongo memory"`
	Mongo source.MongoConfig `koanf:"mongo" yaml:"mongo"`

	// Fixture memory 类型使用的 JSON 样例文件
	Fixture string `koanf:"fixture" yaml:"fixture"`
}

// StoreConfig 产物存储
type StoreConfig struct {
	Type   string             `koanf:"type" yaml:"type" validate:"required,oneof=memory redis badger"`
	Redis  store.RedisConfig  `koanf:"redis" yaml:"redis"`
	Badger store.BadgerConfig `koanf:"badger" yaml:"badger"`
}

// Default 返回默认配置：内存数据源 + 本地 badger 存储 + 完整训练流程。
func Default() *Config {
	lc := logging.DefaultConfig()
	lc.Output = nil
	return &Config{
		Log: lc,
		Source: SourceConfig{
			Type: SourceMemory,
			Mongo: source.MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "movie_recommendation",
			},
		},
		Store: StoreConfig{
			Type:   StoreBadger,
			Redis:  store.RedisConfig{Addr: "localhost:6379"},
			Badger: store.BadgerConfig{Dir: "data/artifacts"},
		},
		Pipeline: *pipeline.DefaultConfig(),
	}
}

var validate = validator.New()

// Load 按 默认值 -> 文件 -> 环境变量 的顺序加载配置；path 为空时跳过文件层。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		// 配置文件中的 pipeline.nodes 整体替换默认阶段列表
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	known := envIndex(k.Keys())
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// envIndex 把已知配置路径映射为环境变量形式：store.redis.addr -> store_redis_addr。
// 未知的环境变量映射为空串，被 env provider 忽略。
func envIndex(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, "pipeline.") {
			continue
		}
		out[strings.ReplaceAll(key, ".", "_")] = key
	}
	return out
}

// Validate 校验结构体标签与跨字段约束
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Source.Type == SourceMongo && c.Source.Mongo.URI == "" {
		return fmt.Errorf("source.mongo.uri is required for mongo source")
	}
	switch c.Store.Type {
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for redis store")
		}
	case StoreBadger:
		if c.Store.Badger.Dir == "" && !c.Store.Badger.InMemory {
			return fmt.Errorf("store.badger.dir is required unless in_memory is set")
		}
	}
	if len(c.Pipeline.Nodes) == 0 {
		return fmt.Errorf("pipeline has no nodes")
	}
	return ValidatePipelineConfig(&c.Pipeline)
}

// Dump 以 YAML 输出生效配置，便于排查覆盖顺序
func Dump(c *Config) ([]byte, error) {
	return yamlv3.Marshal(c)
}
