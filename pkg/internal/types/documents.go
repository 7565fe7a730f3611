package types

import "time"

// IngestRequest 文档入库请求.
type IngestRequest struct {
	FileName   string `rule:"required" json:"file_name"`
	Data       []byte `rule:"required" json:"-"`
	Title      string `json:"title,omitempty"`    // 缺省取文件名（去扩展名）
	DocType    string `json:"doc_type,omitempty"` // 缺省自动分类
	Department string `json:"department,omitempty"`
	Uploader   string `json:"uploader,omitempty"`
}

// IngestResult 入库结果.
type IngestResult struct {
	ID             uint             `json:"id"`
	Title          string           `json:"title"`
	DocType        string           `json:"doc_type,omitempty"`
	FilePath       string           `json:"file_path"`
	FileSize       int64            `json:"file_size"`
	MimeType       string           `json:"mime_type"`
	Classification *Classification  `json:"classification,omitempty"`
	Fields         []ExtractedField `json:"fields,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// UpdateDocumentRequest 元数据更新；DocType 变化时自动记一条反馈.
type UpdateDocumentRequest struct {
	Title        *string `json:"title,omitempty"`
	DocType      *string `json:"doc_type,omitempty"`
	Department   *string `json:"department,omitempty"`
	OriginalType string  `json:"original_type,omitempty"` // 反馈的原始类型，缺省取当前类型
}

// RelationRequest 添加文档关联.
type RelationRequest struct {
	DocumentID        uint   `rule:"required" json:"document_id"`
	RelatedDocumentID uint   `rule:"required" json:"related_document_id"`
	RelationType      string `json:"relation_type,omitempty"`
}

// ArchiveResult 一次归档迁移的结果.
type ArchiveResult struct {
	Period        string `json:"period"` // YYYY-MM
	DocumentCount int    `json:"document_count"`
	Path          string `json:"path"`
	Zipped        bool   `json:"zipped"`
	Skipped       bool   `json:"skipped"`
	Reason        string `json:"reason,omitempty"`
}
