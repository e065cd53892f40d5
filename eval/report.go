package eval

import (
	"time"

	"github.com/google/uuid"
)

// ContentBasedNote 内容模型没有离线反馈数据时写入报告的说明
const ContentBasedNote = "content-based evaluation requires user feedback loop"

// CollaborativeReport 协同过滤部分
type CollaborativeReport struct {
	// RMSE / MAE 仅在留出集误差评估成功时出现，nil 表示没有评估
	RMSE       *float64  `json:"rmse,omitempty"`
	MAE        *float64  `json:"mae,omitempty"`
	TestCount  int       `json:"test_count,omitempty"`
	CVRMSE     float64   `json:"cv_rmse,omitempty"`
	CVMAE      float64   `json:"cv_mae,omitempty"`
	CVFoldRMSE []float64 `json:"cv_fold_rmse,omitempty"`
	CVFoldMAE  []float64 `json:"cv_fold_mae,omitempty"`

	// K 与 Metrics 仅在排序评估成功时出现
	K       int                `json:"k,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// ContentReport 内容模型部分：要么是说明，要么是指标
type ContentReport struct {
	Note    string             `json:"note,omitempty"`
	Items   int                `json:"items,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Report 是一次训练的评估报告，追加写入，不会被修改。
type Report struct {
	ID                     string              `json:"id"`
	Timestamp              time.Time           `json:"timestamp"`
	ModelKey               string              `json:"model_key,omitempty"`
	DatasetOrigin          string              `json:"dataset_origin,omitempty"`
	CollaborativeFiltering CollaborativeReport `json:"collaborative_filtering"`
	ContentBased           ContentReport       `json:"content_based"`

	// Warnings 本次运行中被跳过的可选阶段
	Warnings []string `json:"warnings,omitempty"`
}

// NewReport 创建带唯一 ID 与 UTC 时间戳的报告
func NewReport(now time.Time) *Report {
	return &Report{
		ID:           uuid.NewString(),
		Timestamp:    now.UTC(),
		ContentBased: ContentReport{Note: ContentBasedNote},
	}
}

// SetRegression 写入留出集误差
func (r *Report) SetRegression(m Regression) {
	rmse, mae := m.RMSE, m.MAE
	r.CollaborativeFiltering.RMSE = &rmse
	r.CollaborativeFiltering.MAE = &mae
	r.CollaborativeFiltering.TestCount = m.Count
}

// SetRanking 写入带 K 标记的排序指标
func (r *Report) SetRanking(rk Ranking) {
	r.CollaborativeFiltering.K = rk.K
	r.CollaborativeFiltering.Metrics = rk.Metrics()
}

// SetContent 记录内容模型覆盖的物品数。没有反馈数据时 Note 保持不变。
func (r *Report) SetContent(items int) {
	r.ContentBased.Items = items
}

// Clone 深拷贝，报告在各阶段之间以副本传递
func (r *Report) Clone() *Report {
	out := *r
	cf := &out.CollaborativeFiltering
	cf.CVFoldRMSE = append([]float64(nil), r.CollaborativeFiltering.CVFoldRMSE...)
	cf.CVFoldMAE = append([]float64(nil), r.CollaborativeFiltering.CVFoldMAE...)
	cf.Metrics = cloneMetrics(r.CollaborativeFiltering.Metrics)
	out.ContentBased.Metrics = cloneMetrics(r.ContentBased.Metrics)
	out.Warnings = append([]string(nil), r.Warnings...)
	return &out
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
