// Package content 是内容相似度引擎：物品文本 → TF-IDF 稀疏向量 → 两两余弦相似度矩阵。
package content

import (
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/reckit-trainer/core"
)

// VectorizerConfig TF-IDF 参数
type VectorizerConfig struct {
	// MaxFeatures 词表上限，按全语料词频取前 N 个（同频按字典序），默认 1000
	MaxFeatures int `json:"max_features" koanf:"max_features" yaml:"max_features"`

	// NGramMin / NGramMax n-gram 范围，默认 [1, 1]
	NGramMin int `json:"ngram_min" koanf:"ngram_min" yaml:"ngram_min"`
	NGramMax int `json:"ngram_max" koanf:"ngram_max" yaml:"ngram_max"`
}

// DefaultVectorizerConfig 训练路径：1000 词，仅 unigram
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		MaxFeatures: core.DefaultTrainDefaults{}.DefaultMaxFeatures(),
		NGramMin:    1,
		NGramMax:    1,
	}
}

// PreprocessConfig 数据预处理路径：5000 词，unigram + bigram
func PreprocessConfig() VectorizerConfig {
	return VectorizerConfig{MaxFeatures: 5000, NGramMin: 1, NGramMax: 2}
}

func (c VectorizerConfig) withDefaults() VectorizerConfig {
	d := DefaultVectorizerConfig()
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.NGramMin <= 0 {
		c.NGramMin = d.NGramMin
	}
	if c.NGramMax < c.NGramMin {
		c.NGramMax = c.NGramMin
	}
	return c
}

// Vector 稀疏向量，Indices 严格递增
type Vector struct {
	Indices []int
	Values  []float64
}

// NNZ 非零元素个数
func (v Vector) NNZ() int { return len(v.Indices) }

// VectorizerState 是 Vectorizer 的持久化结构
type VectorizerState struct {
	Config     VectorizerConfig `json:"config"`
	Vocabulary []string         `json:"vocabulary"`
	IDF        []float64        `json:"idf"`
}

// Vectorizer 是拟合后的 TF-IDF 模型。
//
//	idf(t) = ln((1 + n) / (1 + df(t))) + 1
//	w(t, d) = count(t, d) * idf(t)，每行再做 L2 归一化
type Vectorizer struct {
	config VectorizerConfig
	vocab  []string
	index  map[string]int
	idf    []float64
}

// FitVectorizer 在语料上拟合词表与 idf。
func FitVectorizer(docs []string, cfg VectorizerConfig) *Vectorizer {
	cfg = cfg.withDefaults()
	n := len(docs)

	tf := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range Analyze(doc, cfg.NGramMin, cfg.NGramMax) {
			tf[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(tf))
	for t := range tf {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if tf[terms[i]] != tf[terms[j]] {
			return tf[terms[i]] > tf[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > cfg.MaxFeatures {
		terms = terms[:cfg.MaxFeatures]
	}
	sort.Strings(terms)

	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}
	v, _ := newVectorizer(VectorizerState{Config: cfg, Vocabulary: terms, IDF: idf})
	return v
}

// VectorizerFromState 从持久化结构恢复
func VectorizerFromState(s VectorizerState) (*Vectorizer, error) {
	return newVectorizer(s)
}

func newVectorizer(s VectorizerState) (*Vectorizer, error) {
	if len(s.Vocabulary) != len(s.IDF) {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeInvalidInput,
			fmt.Sprintf("content: vocabulary has %d terms but %d idf values", len(s.Vocabulary), len(s.IDF)))
	}
	v := &Vectorizer{
		config: s.Config.withDefaults(),
		vocab:  append([]string(nil), s.Vocabulary...),
		index:  make(map[string]int, len(s.Vocabulary)),
		idf:    append([]float64(nil), s.IDF...),
	}
	for i, t := range v.vocab {
		if i > 0 && v.vocab[i-1] >= t {
			return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeInvalidInput,
				"content: vocabulary must be sorted and unique")
		}
		v.index[t] = i
	}
	return v, nil
}

// State 导出词表与 idf（拷贝）
func (v *Vectorizer) State() VectorizerState {
	return VectorizerState{
		Config:     v.config,
		Vocabulary: append([]string(nil), v.vocab...),
		IDF:        append([]float64(nil), v.idf...),
	}
}

// Vocabulary 按字典序排列的词表
func (v *Vectorizer) Vocabulary() []string { return append([]string(nil), v.vocab...) }

// Transform 把一篇文本转为 L2 归一化的稀疏向量；没有命中词表时返回零向量。
func (v *Vectorizer) Transform(doc string) Vector {
	counts := make(map[int]float64)
	for _, term := range Analyze(doc, v.config.NGramMin, v.config.NGramMax) {
		if idx, ok := v.index[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	out := Vector{Indices: make([]int, 0, len(counts)), Values: make([]float64, 0, len(counts))}
	for idx := range counts {
		out.Indices = append(out.Indices, idx)
	}
	sort.Ints(out.Indices)
	var norm float64
	for _, idx := range out.Indices {
		w := counts[idx] * v.idf[idx]
		out.Values = append(out.Values, w)
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range out.Values {
		out.Values[i] /= norm
	}
	return out
}

// TransformAll 批量转换
func (v *Vectorizer) TransformAll(docs []string) []Vector {
	out := make([]Vector, len(docs))
	for i, d := range docs {
		out[i] = v.Transform(d)
	}
	return out
}
