package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/errs"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/types"
)

// seedDocument 直接向热存储写一条带内容的文档.
func seedDocument(t *testing.T, env *testEnv, title, docType, content string, createdAt time.Time) uint {
	t.Helper()

	doc := model.Document{
		Title:     title,
		DocType:   docType,
		FilePath:  "",
		Status:    model.StatusActive,
		CreatedAt: createdAt,
	}

	if err := env.dbClient.Create(&doc).Error; err != nil {
		t.Fatal(err)
	}

	if content != "" {
		row := model.DocumentContent{DocumentID: doc.ID, Content: content}
		if err := env.dbClient.Create(&row).Error; err != nil {
			t.Fatal(err)
		}
	}

	return doc.ID
}

func TestSearchPagination(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := range 25 {
		seedDocument(t, env, fmt.Sprintf("doc-%02d", i), "report",
			"月次 報告書 の 本文", base.Add(time.Duration(i)*time.Minute))
	}

	resp, err := svc.Search(ctx, types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{QueryText: "報告書", Page: 2, PerPage: 20},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 25 {
		t.Errorf("total = %d, want 25", resp.Total)
	}

	if len(resp.Results) != 5 {
		t.Errorf("page results = %d, want 5", len(resp.Results))
	}

	if resp.TotalPages != 2 {
		t.Errorf("total_pages = %d, want 2", resp.TotalPages)
	}

	if resp.ExecutionTime < 0 {
		t.Errorf("execution_time = %f", resp.ExecutionTime)
	}

	// 默认 created_at desc：第二页是最早的 5 条
	if resp.Results[len(resp.Results)-1].Title != "doc-00" {
		t.Errorf("last result = %s, want doc-00", resp.Results[len(resp.Results)-1].Title)
	}
}

func TestSearchEmptyMatchReportsOnePage(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()

	resp, err := svc.Search(context.Background(), types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{QueryText: "存在しない語"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 0 || resp.TotalPages != 1 {
		t.Errorf("total = %d total_pages = %d, want 0 and 1", resp.Total, resp.TotalPages)
	}
}

func TestSearchSnippetHighlight(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()

	padding := strings.Repeat("あ", 300)
	seedDocument(t, env, "長文", "report", padding+"請求書"+padding, time.Now())

	resp, err := svc.Search(context.Background(), types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{QueryText: "請求書"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}

	snippet := resp.Results[0].Snippet
	if !strings.Contains(snippet, "<em>請求書</em>") {
		t.Errorf("snippet missing highlight: %q", snippet)
	}

	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Errorf("mid-text window should carry ellipses: %q", snippet)
	}
}

func TestSearchPunctuatedTerm(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()

	// 带符号的词（如票据编号）必须按内容原样匹配
	seedDocument(t, env, "三月請求書", "invoice", "請求書番号 INV-001 合計 1000円", time.Now())

	resp, err := svc.Search(context.Background(), types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{QueryText: "INV-001"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("total = %d, want 1 hit for a verbatim punctuated term", resp.Total)
	}

	if snippet := resp.Results[0].Snippet; !strings.Contains(snippet, "<em>INV-001</em>") {
		t.Errorf("snippet missing highlighted term: %q", snippet)
	}
}

func TestSearchFilters(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()
	ctx := context.Background()

	invoiceID := seedDocument(t, env, "請求書A", "invoice", "請求 内容", time.Now())
	seedDocument(t, env, "見積書B", "quotation", "見積 内容", time.Now())

	resp, err := svc.Search(ctx, types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{DocType: "invoice"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 1 || resp.Results[0].ID != invoiceID {
		t.Errorf("doc_type filter: total=%d", resp.Total)
	}

	// 日付レンジ
	future := time.Now().Add(time.Hour)

	resp, err = svc.Search(ctx, types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{DateFrom: &future},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 0 {
		t.Errorf("date filter: total=%d, want 0", resp.Total)
	}
}

func TestSearchFieldFilters(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()
	ctx := context.Background()

	cheap := seedDocument(t, env, "安い", "invoice", "請求", time.Now())
	costly := seedDocument(t, env, "高い", "invoice", "請求", time.Now())

	env.dbClient.Create(&model.DocumentField{DocumentID: cheap, FieldName: "amount", FieldValue: "1000", Confidence: 0.8})
	env.dbClient.Create(&model.DocumentField{DocumentID: costly, FieldName: "amount", FieldValue: "2000", Confidence: 0.8})

	tests := []struct {
		name   string
		filter string
		want   []uint
	}{
		{"gte", ">=1500", []uint{costly}},
		{"lt", "<1500", []uint{cheap}},
		{"eq", "=1000", []uint{cheap}},
		{"neq", "!=1000", []uint{costly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Search(ctx, types.AdvancedSearchQuery{
				FieldFilters: map[string]string{"amount": tt.filter},
			})
			if err != nil {
				t.Fatal(err)
			}

			if int(resp.Total) != len(tt.want) {
				t.Fatalf("total = %d, want %d", resp.Total, len(tt.want))
			}

			for i, id := range tt.want {
				if resp.Results[i].ID != id {
					t.Errorf("result[%d] = %d, want %d", i, resp.Results[i].ID, id)
				}
			}
		})
	}

	// 字符串值不支持大小比较
	if _, err := svc.Search(ctx, types.AdvancedSearchQuery{
		FieldFilters: map[string]string{"amount": ">abc"},
	}); !errs.Is(err, errs.KindValidation) {
		t.Errorf("non-numeric comparison should fail validation, got %v", err)
	}
}

func TestSearchSortAllowList(t *testing.T) {
	env := newTestEnv(t)
	svc := env.searchService()

	if _, err := svc.Search(context.Background(), types.AdvancedSearchQuery{
		SortBy: "file_path; DROP TABLE documents",
	}); !errs.Is(err, errs.KindValidation) {
		t.Errorf("sort field outside allow-list should fail, got %v", err)
	}
}

func TestSearchFederated(t *testing.T) {
	env := newTestEnv(t)
	searchSvc := env.searchService()
	ctx := context.Background()

	// 2023 年 3 月の文書を分区に送り出す
	march := time.Date(2023, 3, 10, 12, 0, 0, 0, time.Local)
	archivedID := seedDocument(t, env, "旧請求書", "invoice", "過去 の 請求書 控え", march)

	result, err := env.archiveService(configs.ArchiveConfig{}).ArchivePeriod(ctx, 2023, time.March)
	if err != nil {
		t.Fatal(err)
	}

	if result.DocumentCount != 1 {
		t.Fatalf("archived %d documents, want 1", result.DocumentCount)
	}

	hotID := seedDocument(t, env, "新請求書", "invoice", "今月 の 請求書", time.Now())

	resp, err := searchSvc.Search(ctx, types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{QueryText: "請求書", IncludeArchives: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 2 {
		t.Fatalf("total = %d, want hot + archive", resp.Total)
	}

	// 热存储命中在前，归档命中追加在后
	if resp.Results[0].ID != hotID || resp.Results[0].Source != "hot" {
		t.Errorf("first result = %+v, want hot hit", resp.Results[0])
	}

	last := resp.Results[len(resp.Results)-1]
	if last.ID != archivedID || last.Source != "2023-03" {
		t.Errorf("archive hit = id %d source %s, want %d / 2023-03", last.ID, last.Source, archivedID)
	}

	if !strings.Contains(last.Snippet, "<em>請求書</em>") {
		t.Errorf("archive hit should be enriched too: %q", last.Snippet)
	}

	// 不带自由文本时不进分区
	resp, err = searchSvc.Search(ctx, types.AdvancedSearchQuery{
		SearchQuery: types.SearchQuery{DocType: "invoice", IncludeArchives: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 1 {
		t.Errorf("without free text archives must be skipped, total = %d", resp.Total)
	}
}
