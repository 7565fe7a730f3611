package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 文档领域 --------------------------

// DocumentIngestedPayload 文档入库完成.
type DocumentIngestedPayload struct {
	DocumentID uint   `json:"document_id"`
	Title      string `json:"title"`
	DocType    string `json:"doc_type,omitempty"`
	FilePath   string `json:"file_path"`
	FileSize   int64  `json:"file_size"`
	MimeType   string `json:"mime_type,omitempty"`
	// Source 分类来源（rule/ml），未分类时为空.
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	FieldCount int     `json:"field_count,omitempty"`
	// Fields 抽取字段压平后的 name->value 映射，同名字段后写的胜出.
	Fields map[string]string `json:"fields,omitempty"`
}

// DocumentUpdatedPayload 文档元数据更新.
type DocumentUpdatedPayload struct {
	DocumentID uint `json:"document_id"`
	// TypeChanged 类型是否被修正（同时产生一条反馈）.
	TypeChanged bool   `json:"type_changed,omitempty"`
	OldType     string `json:"old_type,omitempty"`
	NewType     string `json:"new_type,omitempty"`
}

// DocumentDeletedPayload 文档删除.
type DocumentDeletedPayload struct {
	DocumentID uint `json:"document_id"`
	// Permanent 是否永久删除（否则为软删）.
	Permanent bool `json:"permanent"`
}

// -------------------------- 归档领域 --------------------------

// DocumentArchivedPayload 一个期间的冷数据迁入分区完成.
type DocumentArchivedPayload struct {
	Period        string `json:"period"` // YYYY-MM
	DocumentCount int    `json:"document_count"`
	PartitionPath string `json:"partition_path"`
	Zipped        bool   `json:"zipped,omitempty"`
}

// ArchivePrunedPayload 超额分区被裁剪.
type ArchivePrunedPayload struct {
	Removed   []string `json:"removed"` // 被删除的期间键
	KeepCount int      `json:"keep_count"`
}

// -------------------------- 分类模型领域 --------------------------

// ModelRetrainedPayload 新模型制品落盘并已热切换.
type ModelRetrainedPayload struct {
	Version         string   `json:"version"`
	SampleCount     int      `json:"sample_count"`
	Classes         []string `json:"classes,omitempty"`
	FeedbackApplied int      `json:"feedback_applied"`
}
