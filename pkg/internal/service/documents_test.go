package service

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/docuvault/pkg/errs"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/types"
)

func TestIngestClassifiesAndExtracts(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	text := "請求書 請求書番号：INV-001 株式会社ABC 合計 150,000円 発行日：2023年03月15日"

	res, err := svc.Ingest(ctx, &types.IngestRequest{
		FileName:   "invoice.txt",
		Data:       []byte(text),
		Department: "keiri",
		Uploader:   "tanaka",
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.DocType != "invoice" {
		t.Errorf("doc_type = %q, want invoice", res.DocType)
	}

	if res.Classification == nil || res.Classification.Source != types.SourceRule {
		t.Errorf("classification = %+v, want rule source", res.Classification)
	}

	if !env.vaultClient.Exists(res.FilePath) {
		t.Errorf("backing file %s missing from vault", res.FilePath)
	}

	var content model.DocumentContent
	if err := env.dbClient.Where("document_id = ?", res.ID).First(&content).Error; err != nil {
		t.Fatalf("content row missing: %v", err)
	}

	got := map[string]string{}
	for _, f := range res.Fields {
		got[f.Name] = f.Value
	}

	want := map[string]string{
		"invoice_no": "INV-001",
		"date":       "2023-03-15",
		"amount":     "150000",
		"company":    "ABC",
	}
	for name, value := range want {
		if got[name] != value {
			t.Errorf("field %s = %q, want %q", name, got[name], value)
		}
	}
}

func TestIngestWithoutText(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()

	// 内置提取器不支持 pdf，文档仍然落库，只是没有内容和类型
	res, err := svc.Ingest(context.Background(), &types.IngestRequest{
		FileName: "scan.pdf",
		Data:     []byte{0x25, 0x50, 0x44, 0x46},
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.DocType != "" {
		t.Errorf("doc_type = %q, want empty", res.DocType)
	}

	var count int64

	env.dbClient.Model(&model.DocumentContent{}).Where("document_id = ?", res.ID).Count(&count)

	if count != 0 {
		t.Errorf("content rows = %d, want 0", count)
	}
}

func TestIngestDuplicateFileName(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	first, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "memo.txt", Data: []byte("一通目")})
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "memo.txt", Data: []byte("二通目")})
	if err != nil {
		t.Fatal(err)
	}

	if first.FilePath == second.FilePath {
		t.Errorf("duplicate file paths: %s", first.FilePath)
	}

	if !env.vaultClient.Exists(first.FilePath) || !env.vaultClient.Exists(second.FilePath) {
		t.Error("both files should exist in the vault")
	}
}

func TestUpdateTypeCreatesFeedback(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	res, err := svc.Ingest(ctx, &types.IngestRequest{
		FileName: "doc.txt",
		Data:     []byte("議事録 出席者"),
		DocType:  "minutes",
	})
	if err != nil {
		t.Fatal(err)
	}

	corrected := "report"

	doc, err := svc.Update(ctx, res.ID, &types.UpdateDocumentRequest{DocType: &corrected})
	if err != nil {
		t.Fatal(err)
	}

	if doc.DocType != "report" {
		t.Errorf("doc_type = %q, want report", doc.DocType)
	}

	var fb model.FeedbackRecord
	if err := env.dbClient.Where("document_id = ?", res.ID).First(&fb).Error; err != nil {
		t.Fatalf("feedback record missing: %v", err)
	}

	if fb.OriginalClassification != "minutes" || fb.CorrectedClassification != "report" {
		t.Errorf("feedback = %s -> %s, want minutes -> report", fb.OriginalClassification, fb.CorrectedClassification)
	}

	if fb.Applied {
		t.Error("new feedback should be unapplied")
	}

	// 类型不变的更新不产生反馈
	title := "新タイトル"
	if _, err := svc.Update(ctx, res.ID, &types.UpdateDocumentRequest{Title: &title}); err != nil {
		t.Fatal(err)
	}

	var count int64

	env.dbClient.Model(&model.FeedbackRecord{}).Where("document_id = ?", res.ID).Count(&count)

	if count != 1 {
		t.Errorf("feedback rows = %d, want 1", count)
	}
}

func TestDeleteSoftThenPermanent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	res, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "del.txt", Data: []byte("削除対象 の 文書")})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, res.ID, false); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.Get(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}

	if doc.Status != model.StatusDeleted || doc.DeletedAt == nil {
		t.Errorf("soft delete: status=%s deleted_at=%v", doc.Status, doc.DeletedAt)
	}

	if !env.vaultClient.Exists(res.FilePath) {
		t.Error("soft delete must keep the backing file")
	}

	if err := svc.Delete(ctx, res.ID, true); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, res.ID); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("expected not-found after permanent delete, got %v", err)
	}

	if env.vaultClient.Exists(res.FilePath) {
		t.Error("permanent delete must remove the backing file")
	}

	var count int64

	env.dbClient.Model(&model.DocumentContent{}).Where("document_id = ?", res.ID).Count(&count)

	if count != 0 {
		t.Errorf("content rows = %d, want 0", count)
	}
}

func TestPurgeDeleted(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	res, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "old.txt", Data: []byte("古い 文書")})
	if err != nil {
		t.Fatal(err)
	}

	fresh, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "fresh.txt", Data: []byte("新しい 文書")})
	if err != nil {
		t.Fatal(err)
	}

	old := time.Now().AddDate(0, 0, -40)

	env.dbClient.Model(&model.Document{}).Where("id = ?", res.ID).
		Updates(map[string]any{"status": model.StatusDeleted, "deleted_at": old})

	recently := time.Now().AddDate(0, 0, -3)
	env.dbClient.Model(&model.Document{}).Where("id = ?", fresh.ID).
		Updates(map[string]any{"status": model.StatusDeleted, "deleted_at": recently})

	purged, err := svc.PurgeDeleted(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}

	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	if _, err := svc.Get(ctx, res.ID); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("old document should be gone, got %v", err)
	}

	if _, err := svc.Get(ctx, fresh.ID); err != nil {
		t.Errorf("recent document should survive: %v", err)
	}
}

func TestRelations(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	a, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "a.txt", Data: []byte("甲")})
	if err != nil {
		t.Fatal(err)
	}

	b, err := svc.Ingest(ctx, &types.IngestRequest{FileName: "b.txt", Data: []byte("乙")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddRelation(ctx, &types.RelationRequest{DocumentID: a.ID, RelatedDocumentID: a.ID}); !errs.Is(err, errs.KindValidation) {
		t.Errorf("self relation should be rejected, got %v", err)
	}

	if _, err := svc.AddRelation(ctx, &types.RelationRequest{DocumentID: a.ID, RelatedDocumentID: 9999}); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("missing endpoint should be rejected, got %v", err)
	}

	rel, err := svc.AddRelation(ctx, &types.RelationRequest{
		DocumentID:        a.ID,
		RelatedDocumentID: b.ID,
		RelationType:      "attachment",
	})
	if err != nil {
		t.Fatal(err)
	}

	if rel.RelationType != "attachment" {
		t.Errorf("relation type = %q", rel.RelationType)
	}

	// 双向都能查到
	for _, id := range []uint{a.ID, b.ID} {
		rels, err := svc.ListRelations(ctx, id)
		if err != nil {
			t.Fatal(err)
		}

		if len(rels) != 1 {
			t.Errorf("relations of %d = %d, want 1", id, len(rels))
		}
	}
}

func TestRelatedDocuments(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	texts := map[string]string{
		"x.txt": "プロジェクト alpha 進捗 報告 プロジェクト 概要",
		"y.txt": "プロジェクト alpha 予算 計画",
		"z.txt": "無関係 な 雑記",
	}

	ids := map[string]uint{}

	for name, text := range texts {
		res, err := svc.Ingest(ctx, &types.IngestRequest{FileName: name, Data: []byte(text)})
		if err != nil {
			t.Fatal(err)
		}

		ids[name] = res.ID
	}

	related, err := svc.RelatedDocuments(ctx, ids["x.txt"])
	if err != nil {
		t.Fatal(err)
	}

	found := map[uint]bool{}
	for _, d := range related {
		found[d.ID] = true

		if d.ID == ids["x.txt"] {
			t.Error("document must not relate to itself")
		}
	}

	if !found[ids["y.txt"]] {
		t.Error("document sharing keywords should be discovered")
	}

	if found[ids["z.txt"]] {
		t.Error("unrelated document should not be discovered")
	}
}

func TestDocumentsByFieldAndListings(t *testing.T) {
	env := newTestEnv(t)
	svc := env.documentService()
	ctx := context.Background()

	res, err := svc.Ingest(ctx, &types.IngestRequest{
		FileName:   "inv.txt",
		Data:       []byte("請求書 請求書番号：INV-777 合計 9,000円"),
		Department: "eigyo",
	})
	if err != nil {
		t.Fatal(err)
	}

	docs, err := svc.DocumentsByField(ctx, "invoice_no", "INV-777")
	if err != nil {
		t.Fatal(err)
	}

	if len(docs) != 1 || docs[0].ID != res.ID {
		t.Errorf("field lookup returned %v", docs)
	}

	depts, err := svc.ListDepartments(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(depts) != 1 || depts[0] != "eigyo" {
		t.Errorf("departments = %v", depts)
	}

	dtypes, err := svc.ListDocTypes(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(dtypes) != 1 || dtypes[0] != "invoice" {
		t.Errorf("doc types = %v", dtypes)
	}
}
