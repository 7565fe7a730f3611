package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yeisme/docuvault/pkg/internal/model"
)

func seedFeedback(t *testing.T, env *testEnv, docID uint, original, corrected string) {
	t.Helper()

	fb := model.FeedbackRecord{
		DocumentID:              docID,
		OriginalClassification:  original,
		CorrectedClassification: corrected,
		FeedbackDate:            time.Now(),
		Applied:                 false,
	}

	if err := env.dbClient.Create(&fb).Error; err != nil {
		t.Fatal(err)
	}
}

func TestSubmitFeedbackDefaultsOriginal(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feedbackService()
	ctx := context.Background()

	id := seedDocument(t, env, "doc", "invoice", "請求 内容", time.Now())

	fb, err := svc.Submit(ctx, id, "", "quotation")
	if err != nil {
		t.Fatal(err)
	}

	if fb.OriginalClassification != "invoice" {
		t.Errorf("original = %q, want current doc type", fb.OriginalClassification)
	}

	if fb.CorrectedClassification != "quotation" || fb.Applied {
		t.Errorf("feedback = %+v", fb)
	}

	pending, err := svc.PendingCount(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}
}

func TestRetrainBelowThresholdSkips(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feedbackService()
	ctx := context.Background()

	// 阈值 20，只给 19 条
	for i := range 19 {
		id := seedDocument(t, env, fmt.Sprintf("doc-%d", i), "invoice", "請求書 内容", time.Now())
		seedFeedback(t, env, id, "invoice", "quotation")
	}

	result, err := svc.Retrain(ctx, false)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Skipped {
		t.Fatalf("19 pending should not trigger retraining: %+v", result)
	}

	if env.engine.ModelVersion() != "" {
		t.Error("skipped run must not swap a model")
	}

	var applied int64

	env.dbClient.Model(&model.FeedbackRecord{}).Where("applied = ?", true).Count(&applied)

	if applied != 0 {
		t.Errorf("skipped run consumed %d feedback rows", applied)
	}
}

func TestRetrainAtThresholdPassesGate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feedbackService()
	ctx := context.Background()

	// 正好 20 条达到阈值；文档没有内容行，语料仍为空
	for i := range 20 {
		id := seedDocument(t, env, fmt.Sprintf("doc-%d", i), "invoice", "", time.Now())
		seedFeedback(t, env, id, "invoice", "quotation")
	}

	result, err := svc.Retrain(ctx, false)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Skipped {
		t.Fatalf("empty corpus must still skip: %+v", result)
	}

	// 阈值门已通过，跳过原因只能是语料不足
	if result.Reason != "insufficient training samples" {
		t.Errorf("reason = %q, want the min-samples gate, not the threshold gate", result.Reason)
	}
}

func TestRetrainInsufficientSamplesSkips(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feedbackService()

	// 强制执行但语料不足 10 条
	id := seedDocument(t, env, "only", "invoice", "請求書", time.Now())
	seedFeedback(t, env, id, "invoice", "quotation")

	result, err := svc.Retrain(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Skipped || result.Reason == "" {
		t.Fatalf("insufficient corpus should skip with a reason: %+v", result)
	}

	var applied int64

	env.dbClient.Model(&model.FeedbackRecord{}).Where("applied = ?", true).Count(&applied)

	if applied != 0 {
		t.Error("aborted run must leave feedback unapplied")
	}
}

func TestRetrainAppliesFeedbackAndSwaps(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feedbackService()
	ctx := context.Background()

	invoiceTexts := []string{
		"請求書 合計 金額 お支払い",
		"請求書 合計金額 振込先",
		"請求書 金額 消費税 合計",
		"御請求書 お支払い 合計",
		"請求書 支払期限 合計 金額",
	}
	quotationTexts := []string{
		"見積書 有効期限 見積金額 納期",
		"御見積書 見積 有効期限 単価",
		"見積書 納期 見積金額 御中",
		"お見積り 有効期限 見積 単価",
		"見積書 見積金額 数量 有効期限",
	}

	for i, text := range invoiceTexts {
		seedDocument(t, env, fmt.Sprintf("inv-%d", i), "invoice", text, time.Now())
	}

	for i, text := range quotationTexts {
		seedDocument(t, env, fmt.Sprintf("quo-%d", i), "quotation", text, time.Now())
	}

	// 三件误分类的议事录，反馈修正
	for i := range 3 {
		id := seedDocument(t, env, fmt.Sprintf("min-%d", i), "invoice",
			"議事録 出席者 議題 決定事項", time.Now())
		seedFeedback(t, env, id, "invoice", "minutes")
	}

	result, err := svc.Retrain(ctx, true)
	if err != nil {
		t.Fatal(err)
	}

	if result.Skipped {
		t.Fatalf("retrain skipped: %s", result.Reason)
	}

	if result.Version == "" || env.engine.ModelVersion() != result.Version {
		t.Errorf("engine version = %q, result version = %q", env.engine.ModelVersion(), result.Version)
	}

	if result.FeedbackApplied != 3 {
		t.Errorf("feedback applied = %d, want 3", result.FeedbackApplied)
	}

	if len(result.Classes) != 3 {
		t.Errorf("classes = %v, want invoice/quotation/minutes", result.Classes)
	}

	var pendingAfter int64

	env.dbClient.Model(&model.FeedbackRecord{}).Where("applied = ?", false).Count(&pendingAfter)

	if pendingAfter != 0 {
		t.Errorf("pending after retrain = %d, want 0", pendingAfter)
	}

	// 反馈语料用修正后的标签：议事录文本必须判成 minutes
	snap := env.engine.Snapshot()

	label, _ := snap.Classifier.Predict(snap.Vectorizer.Transform("議事録 出席者 議題"))
	if label != "minutes" {
		t.Errorf("predicted %q, want minutes from corrected labels", label)
	}
}
