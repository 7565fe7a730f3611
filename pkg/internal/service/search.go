package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/docuvault/pkg/configs"
	ctxPkg "github.com/yeisme/docuvault/pkg/context"
	"github.com/yeisme/docuvault/pkg/errs"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/storage/db"
	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/metrics"
	"github.com/yeisme/docuvault/pkg/rule"
	"github.com/yeisme/docuvault/pkg/textutil"
)

// ArchiveSearchWorkers 分区检索的并发上限；分区只读，结果按分区顺序聚合.
const ArchiveSearchWorkers = 3

// 高亮标签.
const (
	HighlightPre  = "<em>"
	HighlightPost = "</em>"
)

// fieldFilterOps 字段过滤支持的操作符，前缀匹配须先试长的.
var fieldFilterOps = []string{">=", "<=", "!=", ">", "<", "="}

// SearchService 联合检索协调器：热存储分页 + 归档分区追加.
type SearchService struct {
	dbClient    *db.Client
	archiveRoot string
}

// NewSearchService 从 context 获取依赖实例.
func NewSearchService(c context.Context) *SearchService {
	dbc := ctxPkg.GetDBClient(c)
	if dbc == nil || dbc.DB == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &SearchService{
		dbClient:    dbc,
		archiveRoot: configs.GetConfig().Archive.Path,
	}
}

// Search evaluates one query against the hot store (counted, sorted, paged)
// and, when requested with free text, against up to 5 most-recent partitions
// carrying a content table. Archive hits are appended after the hot page and
// added to the total; they keep their partition's own ordering.
func (s *SearchService) Search(ctx context.Context, q types.AdvancedSearchQuery) (*types.SearchResponse, error) {
	start := time.Now()

	q.Normalize()

	if err := rule.ValidateStruct(&q); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "invalid search query")
	}

	metrics.SearchesTotal.Inc()

	hot := s.dbClient.WithContext(ctx)

	pred, err := buildPredicate(hot, &q, true)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := pred.Count(&total).Error; err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "count matches")
	}

	var docs []model.Document

	page, err := buildPredicate(hot, &q, true)
	if err != nil {
		return nil, err
	}

	err = page.
		Order(q.SortBy + " " + q.SortOrder).
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&docs).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "query hot store")
	}

	results, err := enrichResults(hot, docs, &q, "hot")
	if err != nil {
		return nil, err
	}

	if q.IncludeArchives && q.QueryText != "" {
		archived, archivedCount := s.searchArchives(ctx, &q)
		results = append(results, archived...)
		total += archivedCount
	}

	totalPages := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	if totalPages < 1 {
		totalPages = 1
	}

	elapsed := time.Since(start).Seconds()
	metrics.SearchDuration.Observe(elapsed)

	return &types.SearchResponse{
		Total:         total,
		Page:          q.Page,
		PerPage:       q.PerPage,
		TotalPages:    totalPages,
		Results:       results,
		Query:         q,
		ExecutionTime: elapsed,
	}, nil
}

// buildPredicate translates the query into one gorm filter chain. The same
// builder serves hot store and partitions since the schemas are identical;
// partitions hold exactly one period's archived documents, so the status
// filter only applies to the hot store.
func buildPredicate(dbh *gorm.DB, q *types.AdvancedSearchQuery, withStatus bool) (*gorm.DB, error) {
	tx := dbh.Model(&model.Document{})

	if withStatus {
		tx = tx.Where("status = ?", q.Status)
	}

	if q.QueryText != "" {
		// 内容入库时做过同样的归一化，两侧预处理必须一致，
		// 否则带符号的词（如票据编号）永远匹配不上
		like := "%" + textutil.Normalize(q.QueryText) + "%"
		sub := dbh.Model(&model.DocumentContent{}).Select("document_id").Where("content LIKE ?", like)
		tx = tx.Where("title LIKE ? OR id IN (?)", like, sub)
	}

	if q.DocType != "" {
		tx = tx.Where("doc_type = ?", q.DocType)
	}

	if q.Department != "" {
		tx = tx.Where("department = ?", q.Department)
	}

	if q.Uploader != "" {
		tx = tx.Where("uploader = ?", q.Uploader)
	}

	if q.DateFrom != nil {
		tx = tx.Where("created_at >= ?", *q.DateFrom)
	}

	if q.DateTo != nil {
		tx = tx.Where("created_at <= ?", *q.DateTo)
	}

	for name, raw := range q.FieldFilters {
		sub, err := fieldFilterSubquery(dbh, name, raw)
		if err != nil {
			return nil, err
		}

		tx = tx.Where("id IN (?)", sub)
	}

	return tx, nil
}

// fieldFilterSubquery 解析带操作符前缀的字段过滤值，数值比较用 CAST AS NUMERIC.
func fieldFilterSubquery(dbh *gorm.DB, name, raw string) (*gorm.DB, error) {
	op := "="
	value := strings.TrimSpace(raw)

	for _, o := range fieldFilterOps {
		if strings.HasPrefix(value, o) {
			op = o
			value = strings.TrimSpace(value[len(o):])

			break
		}
	}

	if value == "" {
		return nil, errs.New(errs.KindValidation, "empty value in filter for field %q", name)
	}

	sub := dbh.Model(&model.DocumentField{}).Select("document_id").Where("field_name = ?", name)

	if num, err := strconv.ParseFloat(value, 64); err == nil {
		return sub.Where("CAST(field_value AS NUMERIC) "+op+" ?", num), nil
	}

	if op != "=" && op != "!=" {
		return nil, errs.New(errs.KindValidation, "operator %q requires a numeric value in filter for field %q", op, name)
	}

	return sub.Where("field_value "+op+" ?", value), nil
}

// enrichResults batch-fetches content and fields for the page in two queries
// and computes highlighted snippets when free text was supplied.
func enrichResults(dbh *gorm.DB, docs []model.Document, q *types.AdvancedSearchQuery, source string) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(docs))
	if len(docs) == 0 {
		return results, nil
	}

	ids := make([]uint, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}

	contents := map[uint]string{}

	if q.QueryText != "" {
		var rows []model.DocumentContent
		if err := dbh.Where("document_id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, errs.Wrap(errs.KindStorage, err, "fetch contents")
		}

		for _, r := range rows {
			contents[r.DocumentID] = r.Content
		}
	}

	var fieldRows []model.DocumentField
	if err := dbh.Where("document_id IN ?", ids).Find(&fieldRows).Error; err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "fetch fields")
	}

	// 同名字段后写的胜出
	fields := map[uint]map[string]string{}
	for _, f := range fieldRows {
		m, ok := fields[f.DocumentID]
		if !ok {
			m = map[string]string{}
			fields[f.DocumentID] = m
		}

		m[f.FieldName] = f.FieldValue
	}

	for i := range docs {
		d := &docs[i]

		r := types.SearchResult{
			ID:         d.ID,
			Title:      d.Title,
			DocType:    d.DocType,
			FileSize:   d.FileSize,
			MimeType:   d.MimeType,
			CreatedAt:  d.CreatedAt,
			UpdatedAt:  d.UpdatedAt,
			Department: d.Department,
			Status:     d.Status,
			Uploader:   d.Uploader,
			Fields:     fields[d.ID],
			Source:     source,
		}

		if content, ok := contents[d.ID]; ok && q.QueryText != "" {
			snippet := textutil.Snippet(content, q.QueryText, textutil.DefaultSnippetLength)
			r.Snippet = textutil.Highlight(snippet, q.QueryText, HighlightPre, HighlightPost)
		}

		results = append(results, r)
	}

	return results, nil
}

// searchArchives fans out over the most-recent content-bearing partitions with
// a bounded worker pool. Partition failures are logged and skipped; result
// order follows the partition order (newest first).
func (s *SearchService) searchArchives(ctx context.Context, q *types.AdvancedSearchQuery) ([]types.SearchResult, int64) {
	parts, err := db.ListPartitions(s.archiveRoot)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("partition listing failed, skipping archives")

		return nil, 0
	}

	// 只取最近 K 个带内容表的分区；没有内容表的不占名额
	type openPart struct {
		part   db.Partition
		client *db.Client
	}

	var eligible []openPart

	for _, p := range parts {
		pc, err := db.OpenPartition(p.DBPath, false)
		if err != nil {
			nlog.Logger().Warn().Err(err).Str("period", p.Period).Msg("partition open failed, skipping")

			continue
		}

		if !pc.HasContentTable() {
			_ = pc.Close()

			continue
		}

		eligible = append(eligible, openPart{part: p, client: pc})
		if len(eligible) >= types.MaxSearchPartitions {
			break
		}
	}

	defer func() {
		for _, e := range eligible {
			_ = e.client.Close()
		}
	}()

	slots := make([][]types.SearchResult, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ArchiveSearchWorkers)

	for i, e := range eligible {
		g.Go(func() error {
			hits, err := searchPartition(gctx, e.client, e.part.Period, q)
			if err != nil {
				// 单分区失败跳过，不影响整体查询
				nlog.Logger().Warn().Err(err).Str("period", e.part.Period).Msg("partition search failed, skipping")

				return nil
			}

			slots[i] = hits

			return nil
		})
	}

	_ = g.Wait()

	var merged []types.SearchResult

	for _, hits := range slots {
		merged = append(merged, hits...)
	}

	return merged, int64(len(merged))
}

// searchPartition 在单个分区上求值同一谓词并做同样的摘要/字段充实.
func searchPartition(ctx context.Context, pc *db.Client, period string, q *types.AdvancedSearchQuery) ([]types.SearchResult, error) {
	dbh := pc.WithContext(ctx)

	pred, err := buildPredicate(dbh, q, false)
	if err != nil {
		return nil, err
	}

	var docs []model.Document
	if err := pred.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}

	return enrichResults(dbh, docs, q, period)
}
