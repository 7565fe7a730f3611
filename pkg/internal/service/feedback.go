package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/docuvault/pkg/context"
	"github.com/yeisme/docuvault/pkg/errs"
	"github.com/yeisme/docuvault/pkg/internal/classifier"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/storage/db"
	"github.com/yeisme/docuvault/pkg/internal/storage/mq"
	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/metrics"
	"github.com/yeisme/docuvault/pkg/queue"
)

// FeedbackService 负责分类反馈的收集与再训练循环.
type FeedbackService struct {
	dbClient *db.Client
	mqClient *mq.Client
	engine   *classifier.Engine
}

// NewFeedbackService 从 context 获取依赖实例.
func NewFeedbackService(c context.Context, engine *classifier.Engine) *FeedbackService {
	dbc := ctxPkg.GetDBClient(c)
	if dbc == nil || dbc.DB == nil || engine == nil {
		nlog.Logger().Fatal().Msg("feedback service dependencies not initialized")
	}

	return &FeedbackService{
		dbClient: dbc,
		mqClient: ctxPkg.GetMQClient(c),
		engine:   engine,
	}
}

// Submit 显式提交一条分类反馈；originalType 缺省取文档当前类型.
func (s *FeedbackService) Submit(ctx context.Context, docID uint, originalType, correctedType string) (*model.FeedbackRecord, error) {
	if correctedType == "" {
		return nil, errs.New(errs.KindValidation, "corrected type is required")
	}

	var doc model.Document
	if err := s.dbClient.WithContext(ctx).First(&doc, docID).Error; err != nil {
		return nil, errs.New(errs.KindNotFound, "document %d not found", docID)
	}

	if originalType == "" {
		originalType = doc.DocType
	}

	fb := model.FeedbackRecord{
		DocumentID:              docID,
		OriginalClassification:  originalType,
		CorrectedClassification: correctedType,
		FeedbackDate:            time.Now(),
		Applied:                 false,
	}

	if err := s.dbClient.WithContext(ctx).Create(&fb).Error; err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "record feedback")
	}

	updatePendingFeedbackGauge(s.dbClient.WithContext(ctx))

	return &fb, nil
}

// PendingCount 未应用反馈数.
func (s *FeedbackService) PendingCount(ctx context.Context) (int64, error) {
	var count int64

	err := s.dbClient.WithContext(ctx).Model(&model.FeedbackRecord{}).
		Where("applied = ?", false).Count(&count).Error
	if err != nil {
		return 0, errs.Wrap(errs.KindStorage, err, "count pending feedback")
	}

	return count, nil
}

// updatePendingFeedbackGauge 刷新未应用反馈指标.
func updatePendingFeedbackGauge(dbh *gorm.DB) {
	var pending int64
	if err := dbh.Model(&model.FeedbackRecord{}).Where("applied = ?", false).Count(&pending).Error; err == nil {
		metrics.PendingFeedback.Set(float64(pending))
	}
}

// Retrain runs the feedback-driven retraining loop:
//
//  1. eligibility: unapplied feedback count at or above the threshold, unless forced
//  2. corpus: up to max_train_docs active typed documents not part of unapplied
//     feedback, plus all unapplied feedback paired with the corrected label
//  3. at least min_samples pairs required, otherwise abort with no side effects
//  4. train, persist artifacts atomically, mark feedback applied, then hot-swap
//
// An aborted run returns a skipped result, not an error.
func (s *FeedbackService) Retrain(ctx context.Context, force bool) (*types.RetrainResult, error) {
	cfg := s.engine.Config()
	dbh := s.dbClient.WithContext(ctx)

	var pending []model.FeedbackRecord
	if err := dbh.Where("applied = ?", false).Order("id").Find(&pending).Error; err != nil {
		metrics.RetrainRuns.WithLabelValues("error").Inc()

		return nil, errs.Wrap(errs.KindStorage, err, "load pending feedback")
	}

	if !force && len(pending) < cfg.RetrainThreshold {
		metrics.RetrainRuns.WithLabelValues("skipped").Inc()

		return &types.RetrainResult{
			Skipped: true,
			Reason:  "pending feedback below retrain threshold",
		}, nil
	}

	feedbackDocIDs := make([]uint, 0, len(pending))
	for _, fb := range pending {
		feedbackDocIDs = append(feedbackDocIDs, fb.DocumentID)
	}

	samples, feedbackSamples, err := s.buildCorpus(dbh, pending, feedbackDocIDs, cfg.MaxTrainDocs)
	if err != nil {
		metrics.RetrainRuns.WithLabelValues("error").Inc()

		return nil, err
	}

	if len(samples) < cfg.MinTrainSamples {
		metrics.RetrainRuns.WithLabelValues("skipped").Inc()

		return &types.RetrainResult{
			Skipped: true,
			Reason:  "insufficient training samples",
		}, nil
	}

	snap, info, err := classifier.Train(samples, cfg.MaxFeatures, time.Now())
	if err != nil {
		metrics.RetrainRuns.WithLabelValues("error").Inc()

		return nil, errs.Wrap(errs.KindClassifierUnavailable, err, "train classifier")
	}

	info.FeedbackSamples = feedbackSamples

	if err := classifier.SaveSnapshot(cfg.ModelDir, snap, info); err != nil {
		metrics.RetrainRuns.WithLabelValues("error").Inc()

		return nil, errs.Wrap(errs.KindStorage, err, "persist model artifacts")
	}

	// 制品落盘后消费反馈，最后才热切换
	if len(pending) > 0 {
		ids := make([]uint, len(pending))
		for i := range pending {
			ids[i] = pending[i].ID
		}

		if err := dbh.Model(&model.FeedbackRecord{}).Where("id IN ?", ids).
			Update("applied", true).Error; err != nil {
			metrics.RetrainRuns.WithLabelValues("error").Inc()

			return nil, errs.Wrap(errs.KindStorage, err, "mark feedback applied")
		}
	}

	s.engine.Swap(snap)

	metrics.RetrainRuns.WithLabelValues("ok").Inc()
	updatePendingFeedbackGauge(dbh)

	if s.mqClient != nil {
		payload := queue.ModelRetrainedPayload{
			Version:         info.Version,
			SampleCount:     info.TrainingSamples,
			Classes:         info.DocumentTypes,
			FeedbackApplied: len(pending),
		}
		if err := queue.PublishModelRetrained(s.mqClient.Publisher(), payload); err != nil {
			nlog.Logger().Warn().Err(err).Str("version", info.Version).Msg("publish retrained event failed")
		}
	}

	nlog.Logger().Info().Str("version", info.Version).
		Int("samples", info.TrainingSamples).
		Int("feedback", len(pending)).
		Msg("classifier retrained and swapped")

	return &types.RetrainResult{
		Version:         info.Version,
		SampleCount:     info.TrainingSamples,
		Classes:         info.DocumentTypes,
		FeedbackApplied: len(pending),
	}, nil
}

// buildCorpus 组装训练语料：既有已分类文档 + 未应用反馈（用修正后的标签）.
func (s *FeedbackService) buildCorpus(dbh *gorm.DB, pending []model.FeedbackRecord, feedbackDocIDs []uint, maxDocs int) ([]classifier.TrainingSample, int, error) {
	tx := dbh.Model(&model.Document{}).
		Where("status = ? AND doc_type <> ''", model.StatusActive)

	if len(feedbackDocIDs) > 0 {
		tx = tx.Where("id NOT IN ?", feedbackDocIDs)
	}

	var docs []model.Document
	if err := tx.Order("id").Limit(maxDocs).Find(&docs).Error; err != nil {
		return nil, 0, errs.Wrap(errs.KindStorage, err, "load training documents")
	}

	contents, err := contentByDocID(dbh, docIDs(docs), feedbackDocIDs)
	if err != nil {
		return nil, 0, err
	}

	var samples []classifier.TrainingSample

	for i := range docs {
		text, ok := contents[docs[i].ID]
		if !ok || text == "" {
			continue
		}

		samples = append(samples, classifier.TrainingSample{Text: text, Label: docs[i].DocType})
	}

	feedbackSamples := 0

	for _, fb := range pending {
		text, ok := contents[fb.DocumentID]
		if !ok || text == "" {
			continue
		}

		samples = append(samples, classifier.TrainingSample{Text: text, Label: fb.CorrectedClassification})
		feedbackSamples++
	}

	return samples, feedbackSamples, nil
}

func docIDs(docs []model.Document) []uint {
	ids := make([]uint, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}

	return ids
}

// contentByDocID 一次取回语料涉及的全部内容行.
func contentByDocID(dbh *gorm.DB, ids, extraIDs []uint) (map[uint]string, error) {
	all := make([]uint, 0, len(ids)+len(extraIDs))
	all = append(all, ids...)
	all = append(all, extraIDs...)

	if len(all) == 0 {
		return map[uint]string{}, nil
	}

	var rows []model.DocumentContent
	if err := dbh.Where("document_id IN ?", all).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "load training contents")
	}

	out := make(map[uint]string, len(rows))
	for _, r := range rows {
		out[r.DocumentID] = r.Content
	}

	return out, nil
}
