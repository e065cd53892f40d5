package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rushteam/reckit-trainer/core"
)

// MongoConfig MongoDB 数据源配置
type MongoConfig struct {
	URI      string `koanf:"uri" yaml:"uri"`
	Database string `koanf:"database" yaml:"database"`

	// Clicks 点击历史集合（隐式反馈），默认 clickhistories
	Clicks string `koanf:"clicks" yaml:"clicks"`

	// Ratings 显式评分集合，默认 user_ratings；为 "-" 时不读取
	Ratings string `koanf:"ratings" yaml:"ratings"`

	// Movies 物品目录集合，默认 movies
	Movies string `koanf:"movies" yaml:"movies"`

	// ConnectTimeout 连接超时，默认 10s
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
}

func (c MongoConfig) withDefaults() MongoConfig {
	if c.Database == "" {
		c.Database = "movie_recommendation"
	}
	if c.Clicks == "" {
		c.Clicks = "clickhistories"
	}
	if c.Ratings == "" {
		c.Ratings = "user_ratings"
	}
	if c.Movies == "" {
		c.Movies = "movies"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// ConnectMongo 建立连接并 ping。返回的 client 由调用方负责 Disconnect。
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// MongoInteractionReader 读取显式评分与点击历史。
// 先读显式评分，剩余额度再读点击；同一 pair 的取舍交给 dataset.Table（时间戳最新者保留）。
type MongoInteractionReader struct {
	db      *mongo.Database
	clicks  string
	ratings string
}

// NewMongoInteractionReader 创建交互日志读取器
func NewMongoInteractionReader(db *mongo.Database, cfg MongoConfig) *MongoInteractionReader {
	cfg = cfg.withDefaults()
	return &MongoInteractionReader{db: db, clicks: cfg.Clicks, ratings: cfg.Ratings}
}

func (r *MongoInteractionReader) ReadInteractions(ctx context.Context, limit int) ([]core.RawInteraction, error) {
	out := make([]core.RawInteraction, 0)

	if r.ratings != "-" {
		docs, err := r.find(ctx, r.ratings, limit)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.ratings, err)
		}
		for _, raw := range docs {
			rating, ok := asFloat64(raw["rating"])
			if !ok {
				continue
			}
			out = append(out, core.RawInteraction{
				UserID:    asID(raw["userId"]),
				ItemID:    asID(raw["movieId"]),
				Rating:    core.Rating(rating),
				Timestamp: firstTime(raw, "updatedAt", "createdAt"),
			})
		}
	}

	remaining := 0
	if limit > 0 {
		remaining = limit - len(out)
		if remaining <= 0 {
			return out, nil
		}
	}

	docs, err := r.find(ctx, r.clicks, remaining)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.clicks, err)
	}
	for _, raw := range docs {
		signal, _ := raw["action"].(string)
		if signal == "" {
			signal = "view"
		}
		out = append(out, core.RawInteraction{
			UserID:    asID(raw["userId"]),
			ItemID:    asID(raw["movieId"]),
			Signal:    signal,
			Timestamp: firstTime(raw, "clickedAt", "createdAt"),
		})
	}
	return out, nil
}

func (r *MongoInteractionReader) find(ctx context.Context, collection string, limit int) ([]bson.M, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bson.M
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, raw)
	}
	return docs, cur.Err()
}

// MongoCatalogReader 读取 movies 集合
type MongoCatalogReader struct {
	col *mongo.Collection
}

// NewMongoCatalogReader 创建物品目录读取器
func NewMongoCatalogReader(db *mongo.Database, cfg MongoConfig) *MongoCatalogReader {
	cfg = cfg.withDefaults()
	return &MongoCatalogReader{col: db.Collection(cfg.Movies)}
}

func (r *MongoCatalogReader) ReadCatalog(ctx context.Context, limit int) ([]core.ItemFeature, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "genres": 1, "tags": 1, "description": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("read movies: %w", err)
	}
	defer cur.Close(ctx)

	var out []core.ItemFeature
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, DecodeItemFeature(raw))
	}
	return out, cur.Err()
}

// DecodeItemFeature 把 movies 文档转为 ItemFeature；缺失字段视为空，不会是 nil。
func DecodeItemFeature(raw bson.M) core.ItemFeature {
	desc, _ := raw["description"].(string)
	return core.ItemFeature{
		ItemID:      asID(raw["_id"]),
		Genres:      asStrings(raw["genres"]),
		Tags:        asStrings(raw["tags"]),
		Description: desc,
	}
}

// 类型转换 helper

func asID(v any) string {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case primitive.A:
		return stringsOf([]any(x))
	case []any:
		return stringsOf(x)
	case []string:
		return x
	default:
		return []string{}
	}
}

func stringsOf(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, e := range vals {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstTime(raw bson.M, keys ...string) time.Time {
	for _, k := range keys {
		switch x := raw[k].(type) {
		case primitive.DateTime:
			return x.Time().UTC()
		case time.Time:
			return x.UTC()
		}
	}
	return time.Time{}
}

var (
	_ core.InteractionReader = (*MongoInteractionReader)(nil)
	_ core.CatalogReader     = (*MongoCatalogReader)(nil)
)
