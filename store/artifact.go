package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/eval"
	"github.com/rushteam/reckit-trainer/model"
)

// 产物 key
const (
	ModelKeyPrefix  = "model:svd:"
	LatestModelKey  = "model:svd:latest"
	SimilarityKey   = "content:similarity"
	VectorizerKey   = "content:tfidf"
	ReportKeyPrefix = "report:"
	ReportIndexKey  = "report:index"
)

// similarityRecord 相似度矩阵与物品顺序作为一个 value 写入，不会出现只有其一的状态
type similarityRecord struct {
	ItemIDs []string    `json:"item_ids"`
	Values  [][]float64 `json:"values"`
}

// ArtifactStore 把训练产物编码为 JSON 写入底层 core.Store。
// 同名产物的写入由按 key 的互斥锁串行化。
type ArtifactStore struct {
	backend core.Store
	locks   keyedMutex
}

// NewArtifactStore 创建产物存储
func NewArtifactStore(backend core.Store) *ArtifactStore {
	return &ArtifactStore{backend: backend}
}

// Backend 底层存储
func (a *ArtifactStore) Backend() core.Store { return a.backend }

// SaveModel 按训练时间戳保存模型，并把 latest 指针指向它，返回模型 key。
func (a *ArtifactStore) SaveModel(ctx context.Context, m *model.SVDModel) (string, error) {
	key := ModelKeyPrefix + strconv.FormatInt(m.TrainedAt().UnixNano(), 10)
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		return "", fmt.Errorf("store: encode model: %w", err)
	}

	defer a.locks.lock(LatestModelKey)()
	if err := a.backend.BatchSet(ctx, map[string][]byte{
		key:            data,
		LatestModelKey: []byte(key),
	}); err != nil {
		return "", fmt.Errorf("store: save model %s: %w", key, err)
	}
	return key, nil
}

// LoadModel 按 key 读取模型
func (a *ArtifactStore) LoadModel(ctx context.Context, key string) (*model.SVDModel, error) {
	data, err := a.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("store: load model %s: %w", key, err)
	}
	var s model.SVDState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("store: decode model %s: %w", key, err)
	}
	return model.FromState(s)
}

// LoadLatestModel 读取最近一次保存的模型
func (a *ArtifactStore) LoadLatestModel(ctx context.Context) (*model.SVDModel, string, error) {
	ptr, err := a.backend.Get(ctx, LatestModelKey)
	if err != nil {
		return nil, "", fmt.Errorf("store: latest model: %w", err)
	}
	m, err := a.LoadModel(ctx, string(ptr))
	if err != nil {
		return nil, "", err
	}
	return m, string(ptr), nil
}

// SaveSimilarity 保存相似度矩阵（连同物品索引）
func (a *ArtifactStore) SaveSimilarity(ctx context.Context, m *content.SimilarityMatrix) error {
	data, err := json.Marshal(similarityRecord{ItemIDs: m.ItemIDs(), Values: m.Values()})
	if err != nil {
		return fmt.Errorf("store: encode similarity: %w", err)
	}
	defer a.locks.lock(SimilarityKey)()
	if err := a.backend.Set(ctx, SimilarityKey, data); err != nil {
		return fmt.Errorf("store: save similarity: %w", err)
	}
	return nil
}

// LoadSimilarity 读取相似度矩阵
func (a *ArtifactStore) LoadSimilarity(ctx context.Context) (*content.SimilarityMatrix, error) {
	data, err := a.backend.Get(ctx, SimilarityKey)
	if err != nil {
		return nil, fmt.Errorf("store: load similarity: %w", err)
	}
	var rec similarityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("store: decode similarity: %w", err)
	}
	return content.NewSimilarityMatrix(rec.ItemIDs, rec.Values)
}

// SaveVectorizer 保存 TF-IDF 词表与 idf
func (a *ArtifactStore) SaveVectorizer(ctx context.Context, v *content.Vectorizer) error {
	data, err := json.Marshal(v.State())
	if err != nil {
		return fmt.Errorf("store: encode vectorizer: %w", err)
	}
	defer a.locks.lock(VectorizerKey)()
	if err := a.backend.Set(ctx, VectorizerKey, data); err != nil {
		return fmt.Errorf("store: save vectorizer: %w", err)
	}
	return nil
}

// LoadVectorizer 读取 TF-IDF 模型
func (a *ArtifactStore) LoadVectorizer(ctx context.Context) (*content.Vectorizer, error) {
	data, err := a.backend.Get(ctx, VectorizerKey)
	if err != nil {
		return nil, fmt.Errorf("store: load vectorizer: %w", err)
	}
	var s content.VectorizerState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("store: decode vectorizer: %w", err)
	}
	return content.VectorizerFromState(s)
}

// AppendReport 追加一份评估报告，返回报告 key。报告写入后不再修改。
// 后端实现 core.KeyValueStore 时用有序集合按时间索引，否则维护一个 JSON 列表。
func (a *ArtifactStore) AppendReport(ctx context.Context, r *eval.Report) (string, error) {
	key := reportKey(r)
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("store: encode report: %w", err)
	}
	if err := a.backend.Set(ctx, key, data); err != nil {
		return "", fmt.Errorf("store: save report: %w", err)
	}

	if kv, ok := a.backend.(core.KeyValueStore); ok {
		if err := kv.ZAdd(ctx, ReportIndexKey, float64(r.Timestamp.UnixMilli()), key); err != nil {
			return "", fmt.Errorf("store: index report: %w", err)
		}
		return key, nil
	}

	defer a.locks.lock(ReportIndexKey)()
	index, err := a.reportIndex(ctx)
	if err != nil {
		return "", err
	}
	index = append(index, key)
	buf, err := json.Marshal(index)
	if err != nil {
		return "", fmt.Errorf("store: encode report index: %w", err)
	}
	if err := a.backend.Set(ctx, ReportIndexKey, buf); err != nil {
		return "", fmt.Errorf("store: index report: %w", err)
	}
	return key, nil
}

// ListReports 按时间倒序返回最近 limit 份报告，limit <= 0 表示全部
func (a *ArtifactStore) ListReports(ctx context.Context, limit int) ([]*eval.Report, error) {
	var keys []string
	if kv, ok := a.backend.(core.KeyValueStore); ok {
		stop := int64(-1)
		if limit > 0 {
			stop = int64(limit - 1)
		}
		var err error
		keys, err = kv.ZRange(ctx, ReportIndexKey, 0, stop)
		if err != nil {
			return nil, fmt.Errorf("store: list reports: %w", err)
		}
	} else {
		index, err := a.reportIndex(ctx)
		if err != nil {
			return nil, err
		}
		sort.Strings(index)
		for i := len(index) - 1; i >= 0; i-- {
			if limit > 0 && len(keys) == limit {
				break
			}
			keys = append(keys, index[i])
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := a.backend.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("store: load reports: %w", err)
	}
	out := make([]*eval.Report, 0, len(keys))
	for _, k := range keys {
		data, ok := vals[k]
		if !ok {
			continue
		}
		var r eval.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("store: decode report %s: %w", k, err)
		}
		out = append(out, &r)
	}
	return out, nil
}

// reportKey 形如 report:<20 位纳秒时间戳>:<id>，字典序即时间顺序。
// 索引分数用毫秒（float64 可精确表示），同一毫秒内的报告靠成员字典序排列。
func reportKey(r *eval.Report) string {
	return fmt.Sprintf("%s%020d:%s", ReportKeyPrefix, r.Timestamp.UnixNano(), r.ID)
}

func (a *ArtifactStore) reportIndex(ctx context.Context) ([]string, error) {
	data, err := a.backend.Get(ctx, ReportIndexKey)
	if core.IsStoreNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read report index: %w", err)
	}
	var index []string
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("store: decode report index: %w", err)
	}
	return index, nil
}

// keyedMutex 按 key 加锁，不同 key 互不阻塞
type keyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
