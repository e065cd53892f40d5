// Command trainer 运行一次离线训练，或查询已落盘的训练产物。
//
// 子命令：
//
//	trainer [-config path] train                 执行配置中的训练流程（默认）
//	trainer [-config path] similar <item_id>     查询内容相似物品
//	trainer [-config path] recommend <user_id>   用最新模型为用户打分排序
//	trainer [-config path] reports               列出最近的评估报告
//	trainer [-config path] config                输出生效配置
//
// 配置按 默认值 -> YAML 文件 -> RECKIT_ 环境变量 的顺序覆盖，见 config 包。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	trainer "github.com/rushteam/reckit-trainer"
	"github.com/rushteam/reckit-trainer/config"
	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/pkg/logging"
	"github.com/rushteam/reckit-trainer/recall"
	"github.com/rushteam/reckit-trainer/source"
	"github.com/rushteam/reckit-trainer/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logging.Error().Err(err).Msg("trainer: 执行失败")
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("trainer", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("RECKIT_CONFIG"), "YAML 配置文件路径")
	topK := fs.Int("k", 10, "similar / recommend 返回的物品数")
	limit := fs.Int("n", 5, "reports 返回的报告数")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := fs.Arg(0)
	if cmd == "" {
		cmd = "train"
	}
	if cmd == "config" {
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer backend.Close()
	artifacts := store.NewArtifactStore(backend)

	switch cmd {
	case "train":
		return train(ctx, cfg, artifacts, stdout)
	case "similar":
		return similar(ctx, artifacts, fs.Arg(1), *topK, stdout)
	case "recommend":
		return recommend(ctx, artifacts, fs.Arg(1), *topK, stdout)
	case "reports":
		reports, err := artifacts.ListReports(ctx, *limit)
		if err != nil {
			return err
		}
		return writeJSON(stdout, reports)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func train(ctx context.Context, cfg *config.Config, artifacts *store.ArtifactStore, stdout io.Writer) error {
	interactions, catalog, closeSource, err := openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer closeSource()

	start := time.Now()
	out, err := trainer.Run(ctx, &cfg.Pipeline, trainer.Deps{
		Interactions: interactions,
		Catalog:      catalog,
		Artifacts:    artifacts,
	})
	if err != nil {
		return err
	}
	logging.Info().
		Str("run_id", out.RunID).
		Str("model_key", out.ModelKey).
		Str("report_key", out.ReportKey).
		Int("warnings", len(out.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("trainer: 训练完成")
	return writeJSON(stdout, out.Report)
}

func similar(ctx context.Context, artifacts *store.ArtifactStore, itemID string, k int, stdout io.Writer) error {
	if itemID == "" {
		return errors.New("similar: item id required")
	}
	m, err := artifacts.LoadSimilarity(ctx)
	if err != nil {
		return err
	}
	items, err := (&recall.ContentRecall{Matrix: m, TopK: k}).Similar(itemID)
	if err != nil {
		return err
	}
	return writeJSON(stdout, items)
}

// recommend 对模型认识的全部物品打分，排除冷启动用户
func recommend(ctx context.Context, artifacts *store.ArtifactStore, userID string, k int, stdout io.Writer) error {
	if userID == "" {
		return errors.New("recommend: user id required")
	}
	m, key, err := artifacts.LoadLatestModel(ctx)
	if err != nil {
		return err
	}
	if !m.KnowsUser(userID) {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeNotFound, "recommend: unknown user "+userID)
	}
	logging.Debug().Str("model_key", key).Str("user_id", userID).Msg("trainer: recommend")
	items := (&recall.MFRecall{Model: m, TopK: k}).Recommend(userID, m.Items())
	return writeJSON(stdout, items)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (core.Store, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreRedis:
		return store.NewRedisStore(ctx, cfg.Redis)
	case config.StoreBadger:
		return store.OpenBadgerStore(cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// openSource 返回交互日志与物品目录读取器，以及释放连接的函数
func openSource(ctx context.Context, cfg config.SourceConfig) (core.InteractionReader, core.CatalogReader, func(), error) {
	switch cfg.Type {
	case config.SourceMongo:
		client, db, err := source.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logging.Warn().Err(err).Msg("trainer: mongo disconnect")
			}
		}
		return source.NewMongoInteractionReader(db, cfg.Mongo), source.NewMongoCatalogReader(db, cfg.Mongo), closeFn, nil
	case config.SourceMemory:
		if cfg.Fixture == "" {
			return source.NewMemoryInteractionReader(), source.NewMemoryCatalogReader(), func() {}, nil
		}
		interactions, catalog, err := source.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, nil, nil, err
		}
		return interactions, catalog, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
