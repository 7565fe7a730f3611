package types

import "time"

// 分页默认值.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// MaxSearchPartitions 联合检索时最多打开的归档分区数（取最近的）.
const MaxSearchPartitions = 5

// SearchQuery 基础检索条件.
type SearchQuery struct {
	QueryText       string     `json:"query_text,omitempty"`
	DocType         string     `json:"doc_type,omitempty"`
	Department      string     `json:"department,omitempty"`
	DateFrom        *time.Time `json:"date_from,omitempty"`
	DateTo          *time.Time `json:"date_to,omitempty"`
	Uploader        string     `json:"uploader,omitempty"`
	Status          string     `json:"status,omitempty"` // 缺省 active
	IncludeArchives bool       `json:"include_archives,omitempty"`
	Page            int        `json:"page"     rule:"min=0"`
	PerPage         int        `json:"per_page" rule:"min=0,max=100"`
}

// AdvancedSearchQuery 带字段过滤与排序的检索条件.
// 字段过滤值支持 >=、<=、>、<、=、!= 前缀，数值比较使用 CAST AS NUMERIC.
type AdvancedSearchQuery struct {
	SearchQuery

	FieldFilters map[string]string `json:"field_filters,omitempty"`
	SortBy       string            `json:"sort_by,omitempty"    rule:"omitempty,oneof=created_at updated_at title doc_type file_size"`
	SortOrder    string            `json:"sort_order,omitempty" rule:"omitempty,oneof=asc desc"`
}

// Normalize 补齐分页与排序缺省值并钳制上限.
func (q *AdvancedSearchQuery) Normalize() {
	if q.Page < 1 {
		q.Page = DefaultPage
	}

	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}

	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}

	if q.Status == "" {
		q.Status = "active"
	}

	if q.SortBy == "" {
		q.SortBy = "created_at"
	}

	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// SearchResult 单条检索结果.
type SearchResult struct {
	ID         uint              `json:"id"`
	Title      string            `json:"title"`
	DocType    string            `json:"doc_type,omitempty"`
	FileSize   int64             `json:"file_size"`
	MimeType   string            `json:"mime_type"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Department string            `json:"department,omitempty"`
	Status     string            `json:"status"`
	Uploader   string            `json:"uploader,omitempty"`
	Snippet    string            `json:"snippet,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	// Source 命中来源：hot 或分区期间键（YYYY-MM）
	Source string `json:"source,omitempty"`
}

// SearchResponse 检索响应；Results 顺序为热存储分页在前、归档命中追加在后.
type SearchResponse struct {
	Total         int64               `json:"total"`
	Page          int                 `json:"page"`
	PerPage       int                 `json:"per_page"`
	TotalPages    int                 `json:"total_pages"`
	Results       []SearchResult      `json:"results"`
	Query         AdvancedSearchQuery `json:"query"`
	ExecutionTime float64             `json:"execution_time"` // 秒
}
