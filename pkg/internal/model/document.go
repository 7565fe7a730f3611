// Package model 定义热存储与归档分区共享的 gorm 模型.
// 分区库与热存储用同一组模型迁移，保证两侧 schema 完全一致.
package model

import (
	"time"
)

// 文档状态.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

// Document 文档元数据.
type Document struct {
	ID      uint   `gorm:"primaryKey"     json:"id"`
	Title   string `gorm:"size:512;index" json:"title"`
	DocType string `gorm:"size:64;index"  json:"doc_type"`
	// FilePath 文件库根目录下的相对路径（YYYY/MM/DD/<name>）
	FilePath   string     `gorm:"size:1024"      json:"file_path"`
	FileSize   int64      `gorm:"index"          json:"file_size"`
	MimeType   string     `gorm:"size:255"       json:"mime_type"`
	Status     string     `gorm:"size:32;index"  json:"status"`
	Department string     `gorm:"size:128;index" json:"department"`
	Uploader   string     `gorm:"size:255"       json:"uploader"`
	CreatedAt  time.Time  `gorm:"index"          json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `gorm:"index"          json:"deleted_at,omitempty"` // 软删除时间，状态翻回 active 时清空
}

// DocumentContent 文档全文内容，检索谓词在其上做匹配.
type DocumentContent struct {
	ID         uint   `gorm:"primaryKey"        json:"id"`
	DocumentID uint   `gorm:"uniqueIndex;index" json:"document_id"`
	Content    string `gorm:"type:text"         json:"content"`
}

// TableName 与归档分区的内容表保持同名.
func (DocumentContent) TableName() string { return "document_content" }

// DocumentField 抽取出的结构化字段.
type DocumentField struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	DocumentID uint    `gorm:"index"      json:"document_id"`
	FieldName  string  `gorm:"size:128"   json:"field_name"`
	FieldValue string  `gorm:"type:text"  json:"field_value"`
	Confidence float64 `json:"confidence"`
}

// DocumentRelation 文档间关联.
type DocumentRelation struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	DocumentID        uint   `gorm:"index"      json:"document_id"`
	RelatedDocumentID uint   `gorm:"index"      json:"related_document_id"`
	RelationType      string `gorm:"size:64"    json:"relation_type"`
}

// FeedbackRecord 分类反馈，再训练的数据来源.
type FeedbackRecord struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	DocumentID              uint      `gorm:"index"      json:"document_id"`
	OriginalClassification  string    `gorm:"size:64"    json:"original_classification"`
	CorrectedClassification string    `gorm:"size:64"    json:"corrected_classification"`
	FeedbackDate            time.Time `json:"feedback_date"`
	Applied                 bool      `gorm:"index"      json:"applied"`
}

// TableName 反馈表名.
func (FeedbackRecord) TableName() string { return "feedback" }

// ArchiveMetadata 分区库内的键值元数据（期间、文档数、创建时间等）.
// 只在分区库中写入，热存储不使用.
type ArchiveMetadata struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value string `gorm:"type:text"          json:"value"`
}

// TableName 元数据表名.
func (ArchiveMetadata) TableName() string { return "archive_metadata" }

// All 返回迁移用的全部模型（热存储顺序）.
func All() []any {
	return []any{
		&Document{},
		&DocumentContent{},
		&DocumentField{},
		&DocumentRelation{},
		&FeedbackRecord{},
	}
}

// Partition 返回分区库迁移用的模型（含归档元数据，不含反馈）.
func Partition() []any {
	return []any{
		&Document{},
		&DocumentContent{},
		&DocumentField{},
		&DocumentRelation{},
		&ArchiveMetadata{},
	}
}
