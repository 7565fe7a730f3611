// Package types 定义服务层的请求/响应与分类、检索、归档的数据结构.
package types

// 分类来源.
const (
	SourceRule = "rule"
	SourceML   = "ml"
)

// 置信度阈值：规则候选 >=0.8 直接采纳，否则 ML 候选 >=0.6 采纳，
// 再否则取置信度更高的一方（相等时规则优先）.
const (
	RuleAcceptThreshold = 0.8
	MLAcceptThreshold   = 0.6
	// RuleCandidateFloor 规则得分低于该值不产生候选.
	RuleCandidateFloor = 0.3
)

// Candidate 单个分类候选.
type Candidate struct {
	DocType    string  `json:"doc_type"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Classification 仲裁后的最终分类；两路都缺席时整体为 nil.
type Classification struct {
	DocType    string  `json:"doc_type"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// ExtractedField 抽取出的单个字段.
type ExtractedField struct {
	Name       string  `json:"field_name"`
	Value      string  `json:"field_value"`
	Confidence float64 `json:"confidence"`
}

// RetrainResult 再训练结果.
type RetrainResult struct {
	Version         string   `json:"version"`
	SampleCount     int      `json:"sample_count"`
	Classes         []string `json:"classes"`
	FeedbackApplied int      `json:"feedback_applied"`
	Skipped         bool     `json:"skipped"`
	Reason          string   `json:"reason,omitempty"`
}
