package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/docuvault/pkg/context"
	"github.com/yeisme/docuvault/pkg/errs"
	"github.com/yeisme/docuvault/pkg/internal/classifier"
	"github.com/yeisme/docuvault/pkg/internal/extractor"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/storage/db"
	"github.com/yeisme/docuvault/pkg/internal/storage/mq"
	"github.com/yeisme/docuvault/pkg/internal/storage/vault"
	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/metrics"
	"github.com/yeisme/docuvault/pkg/queue"
	"github.com/yeisme/docuvault/pkg/rule"
	"github.com/yeisme/docuvault/pkg/textutil"
)

const (
	// RelatedKeywordCount 关联发现使用的关键词数.
	RelatedKeywordCount = 3
	// RelatedKeywordMinLength 参与关联发现的关键词最小长度.
	RelatedKeywordMinLength = 2
	// RelatedDocumentLimit 关联发现返回的文档上限.
	RelatedDocumentLimit = 10
)

// DocumentService 负责文档生命周期业务逻辑（入库、更新、删除、关联），不处理传输细节.
type DocumentService struct {
	dbClient    *db.Client
	vaultClient *vault.Client
	mqClient    *mq.Client
	engine      *classifier.Engine
	extractor   TextExtractor
}

// NewDocumentService 从 context 获取存储依赖；extractor 可为 nil（跳过文本提取）.
func NewDocumentService(c context.Context, engine *classifier.Engine, textExtractor TextExtractor) *DocumentService {
	dbc := ctxPkg.GetDBClient(c)
	vc := ctxPkg.GetVaultClient(c)
	mqc := ctxPkg.GetMQClient(c)

	// 为了安全起见，应该直接 panic 而不是返回 nil，依赖此服务就不需要再检查
	if dbc == nil || dbc.DB == nil || vc == nil || engine == nil {
		nlog.Logger().Fatal().Msg("document service dependencies not initialized")
	}

	return &DocumentService{
		dbClient:    dbc,
		vaultClient: vc,
		mqClient:    mqc,
		engine:      engine,
		extractor:   textExtractor,
	}
}

// Ingest stores the file, extracts text through the collaborator, classifies
// untyped documents and persists metadata, content and extracted fields in one
// transaction. Extraction or classification coming up empty never blocks the
// ingest; the document is stored with type/fields absent.
func (s *DocumentService) Ingest(ctx context.Context, req *types.IngestRequest) (*types.IngestResult, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "invalid ingest request")
	}

	now := time.Now()

	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	}

	// 同日重名文件加短 uuid 前缀避让
	relPath := vault.DatePath(now, req.FileName)
	if s.vaultClient.Exists(relPath) {
		relPath = vault.DatePath(now, uuid.NewString()[:8]+"_"+req.FileName)
	}

	if err := s.vaultClient.Store(ctx, relPath, req.Data); err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "store document file")
	}

	mimeType := vault.SniffMime(req.FileName)

	var text string

	if s.extractor != nil {
		extracted, err := s.extractor.ExtractText(ctx, req.Data, mimeType)
		if err != nil {
			nlog.Logger().Warn().Err(err).Str("file", req.FileName).Msg("text extraction failed, storing without content")
		} else {
			text = textutil.Normalize(extracted)
		}
	}

	docType := req.DocType

	var cls *types.Classification

	if docType == "" && text != "" {
		cls = s.engine.Classify(text)
		if cls != nil {
			docType = cls.DocType
			metrics.ClassificationsTotal.WithLabelValues(cls.Source).Inc()
		} else {
			metrics.ClassificationsTotal.WithLabelValues("none").Inc()
		}
	}

	var fields []types.ExtractedField

	if text != "" && docType != "" {
		profiles, err := classifier.LoadProfiles(s.engine.Config().ProfilesPath)
		if err != nil {
			nlog.Logger().Warn().Err(err).Msg("profile load failed, skipping pattern extraction")
		}

		fields = extractor.ExtractFields(text, docType, profiles)
	}

	doc := model.Document{
		Title:      title,
		DocType:    docType,
		FilePath:   relPath,
		FileSize:   int64(len(req.Data)),
		MimeType:   mimeType,
		Status:     model.StatusActive,
		Department: req.Department,
		Uploader:   req.Uploader,
	}

	err := s.dbClient.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}

		if text != "" {
			if err := tx.Create(&model.DocumentContent{DocumentID: doc.ID, Content: text}).Error; err != nil {
				return err
			}
		}

		for _, f := range fields {
			row := model.DocumentField{
				DocumentID: doc.ID,
				FieldName:  f.Name,
				FieldValue: f.Value,
				Confidence: f.Confidence,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		// 数据库回滚后文件成为孤儿，顺手清掉
		if rmErr := s.vaultClient.Remove(relPath); rmErr != nil {
			nlog.Logger().Warn().Err(rmErr).Str("path", relPath).Msg("orphan file cleanup failed")
		}

		return nil, errs.Wrap(errs.KindStorage, err, "persist document")
	}

	metrics.DocumentsIngested.Inc()

	s.publishIngested(&doc, cls, fields)

	return &types.IngestResult{
		ID:             doc.ID,
		Title:          doc.Title,
		DocType:        doc.DocType,
		FilePath:       doc.FilePath,
		FileSize:       doc.FileSize,
		MimeType:       doc.MimeType,
		Classification: cls,
		Fields:         fields,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

func (s *DocumentService) publishIngested(doc *model.Document, cls *types.Classification, fields []types.ExtractedField) {
	if s.mqClient == nil {
		return
	}

	payload := queue.DocumentIngestedPayload{
		DocumentID: doc.ID,
		Title:      doc.Title,
		DocType:    doc.DocType,
		FilePath:   doc.FilePath,
		FileSize:   doc.FileSize,
		MimeType:   doc.MimeType,
		FieldCount: len(fields),
		Fields:     extractor.FlattenFields(fields),
	}
	if cls != nil {
		payload.Source = cls.Source
		payload.Confidence = cls.Confidence
	}

	if err := queue.PublishDocumentIngested(s.mqClient.Publisher(), payload); err != nil {
		nlog.Logger().Warn().Err(err).Uint("document_id", doc.ID).Msg("publish ingested event failed")
	}
}

// Get 按 ID 取文档元数据.
func (s *DocumentService) Get(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document

	err := s.dbClient.WithContext(ctx).First(&doc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.New(errs.KindNotFound, "document %d not found", id)
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "load document %d", id)
	}

	return &doc, nil
}

// Update applies metadata changes. A doc_type change additionally records a
// FeedbackRecord in the same transaction; the original type defaults to the
// document's current type when not supplied.
func (s *DocumentService) Update(ctx context.Context, id uint, req *types.UpdateDocumentRequest) (*model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	typeChanged := req.DocType != nil && *req.DocType != doc.DocType
	oldType := doc.DocType

	if req.Title != nil {
		doc.Title = *req.Title
	}

	if req.Department != nil {
		doc.Department = *req.Department
	}

	if req.DocType != nil {
		doc.DocType = *req.DocType
	}

	err = s.dbClient.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(doc).Error; err != nil {
			return err
		}

		if typeChanged {
			original := req.OriginalType
			if original == "" {
				original = oldType
			}

			fb := model.FeedbackRecord{
				DocumentID:              doc.ID,
				OriginalClassification:  original,
				CorrectedClassification: doc.DocType,
				FeedbackDate:            time.Now(),
				Applied:                 false,
			}

			return tx.Create(&fb).Error
		}

		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "update document %d", id)
	}

	if typeChanged {
		s.refreshPendingFeedbackGauge(ctx)
	}

	if s.mqClient != nil {
		payload := queue.DocumentUpdatedPayload{
			DocumentID:  doc.ID,
			TypeChanged: typeChanged,
			OldType:     oldType,
			NewType:     doc.DocType,
		}

		msg, merr := queue.NewWatermillMessage(queue.TopicDocumentUpdated, payload)
		if merr == nil {
			merr = s.mqClient.Publish(ctx, queue.TopicDocumentUpdated, msg)
		}

		if merr != nil {
			nlog.Logger().Warn().Err(merr).Uint("document_id", doc.ID).Msg("publish updated event failed")
		}
	}

	return doc, nil
}

func (s *DocumentService) refreshPendingFeedbackGauge(ctx context.Context) {
	updatePendingFeedbackGauge(s.dbClient.WithContext(ctx))
}

// Delete soft-deletes by default; permanent removes fields, content, relations,
// feedback and the document row in one transaction, then the backing file.
func (s *DocumentService) Delete(ctx context.Context, id uint, permanent bool) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if permanent {
		if err := s.purgeDocument(ctx, doc); err != nil {
			return err
		}
	} else {
		now := time.Now()
		doc.Status = model.StatusDeleted
		doc.DeletedAt = &now

		if err := s.dbClient.WithContext(ctx).Save(doc).Error; err != nil {
			return errs.Wrap(errs.KindStorage, err, "soft delete document %d", id)
		}
	}

	if s.mqClient != nil {
		payload := queue.DocumentDeletedPayload{DocumentID: id, Permanent: permanent}

		msg, merr := queue.NewWatermillMessage(queue.TopicDocumentDeleted, payload)
		if merr == nil {
			merr = s.mqClient.Publish(ctx, queue.TopicDocumentDeleted, msg)
		}

		if merr != nil {
			nlog.Logger().Warn().Err(merr).Uint("document_id", id).Msg("publish deleted event failed")
		}
	}

	return nil
}

// purgeDocument 永久删除单个文档的所有行，事务提交后再删文件.
func (s *DocumentService) purgeDocument(ctx context.Context, doc *model.Document) error {
	err := s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.DocumentField{}).Error; err != nil {
			return err
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.DocumentContent{}).Error; err != nil {
			return err
		}

		if err := tx.Where("document_id = ? OR related_document_id = ?", doc.ID, doc.ID).
			Delete(&model.DocumentRelation{}).Error; err != nil {
			return err
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.FeedbackRecord{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Document{}, doc.ID).Error
	})
	if err != nil {
		return errs.Wrap(errs.KindStorage, err, "purge document %d", doc.ID)
	}

	if doc.FilePath != "" {
		if err := s.vaultClient.Remove(doc.FilePath); err != nil {
			nlog.Logger().Warn().Err(err).Str("path", doc.FilePath).Msg("backing file removal failed")
		}
	}

	return nil
}

// PurgeDeleted 永久清除软删除超过 olderThanDays 天的文档，返回清除数.
func (s *DocumentService) PurgeDeleted(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	var docs []model.Document
	if err := s.dbClient.WithContext(ctx).
		Where("status = ? AND deleted_at IS NOT NULL AND deleted_at < ?", model.StatusDeleted, cutoff).
		Find(&docs).Error; err != nil {
		return 0, errs.Wrap(errs.KindStorage, err, "list purgeable documents")
	}

	purged := 0

	for i := range docs {
		if err := s.purgeDocument(ctx, &docs[i]); err != nil {
			nlog.Logger().Error().Err(err).Uint("document_id", docs[i].ID).Msg("purge failed, continuing")

			continue
		}

		purged++
	}

	return purged, nil
}

// Vacuum 回收 sqlite 热存储空间；其他数据库类型跳过.
func (s *DocumentService) Vacuum(ctx context.Context) error {
	if s.dbClient.Dialector.Name() != "sqlite" {
		nlog.Logger().Debug().Str("dialect", s.dbClient.Dialector.Name()).Msg("vacuum skipped, not sqlite")

		return nil
	}

	if err := s.dbClient.WithContext(ctx).Exec("VACUUM").Error; err != nil {
		return errs.Wrap(errs.KindStorage, err, "vacuum hot store")
	}

	return nil
}

// AddRelation 添加文档关联；两端必须都存在.
func (s *DocumentService) AddRelation(ctx context.Context, req *types.RelationRequest) (*model.DocumentRelation, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "invalid relation request")
	}

	if req.DocumentID == req.RelatedDocumentID {
		return nil, errs.New(errs.KindValidation, "cannot relate document %d to itself", req.DocumentID)
	}

	for _, id := range []uint{req.DocumentID, req.RelatedDocumentID} {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}

	rel := model.DocumentRelation{
		DocumentID:        req.DocumentID,
		RelatedDocumentID: req.RelatedDocumentID,
		RelationType:      req.RelationType,
	}

	if err := s.dbClient.WithContext(ctx).Create(&rel).Error; err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "create relation")
	}

	return &rel, nil
}

// ListRelations 列出文档的双向关联.
func (s *DocumentService) ListRelations(ctx context.Context, docID uint) ([]model.DocumentRelation, error) {
	var rels []model.DocumentRelation

	err := s.dbClient.WithContext(ctx).
		Where("document_id = ? OR related_document_id = ?", docID, docID).
		Find(&rels).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "list relations of %d", docID)
	}

	return rels, nil
}

// GetFields 列出文档的抽取字段.
func (s *DocumentService) GetFields(ctx context.Context, docID uint) ([]model.DocumentField, error) {
	var fields []model.DocumentField

	err := s.dbClient.WithContext(ctx).Where("document_id = ?", docID).Find(&fields).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "list fields of %d", docID)
	}

	return fields, nil
}

// DocumentsByField 按字段名和值查文档.
func (s *DocumentService) DocumentsByField(ctx context.Context, name, value string) ([]model.Document, error) {
	var docs []model.Document

	err := s.dbClient.WithContext(ctx).
		Where("id IN (?)", s.dbClient.Model(&model.DocumentField{}).
			Select("document_id").Where("field_name = ? AND field_value = ?", name, value)).
		Where("status = ?", model.StatusActive).
		Find(&docs).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "lookup documents by field %s", name)
	}

	return docs, nil
}

// ListDocTypes 列出热存储中出现过的文档类型.
func (s *DocumentService) ListDocTypes(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "doc_type")
}

// ListDepartments 列出热存储中出现过的部门.
func (s *DocumentService) ListDepartments(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "department")
}

func (s *DocumentService) distinctColumn(ctx context.Context, column string) ([]string, error) {
	var values []string

	err := s.dbClient.WithContext(ctx).Model(&model.Document{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column).
		Pluck(column, &values).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "list distinct %s", column)
	}

	return values, nil
}

// RelatedDocuments discovers documents sharing the top content keywords with
// the given one: probe with up to 3 keywords, dedup in hit order, cap at 10.
func (s *DocumentService) RelatedDocuments(ctx context.Context, docID uint) ([]model.Document, error) {
	var content model.DocumentContent

	err := s.dbClient.WithContext(ctx).Where("document_id = ?", docID).First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "load content of %d", docID)
	}

	keywords := textutil.Keywords(content.Content, RelatedKeywordMinLength, RelatedKeywordCount)
	if len(keywords) == 0 {
		return nil, nil
	}

	seen := map[uint]bool{docID: true}

	var related []model.Document

	for _, kw := range keywords {
		var docs []model.Document

		err := s.dbClient.WithContext(ctx).
			Where("id IN (?)", s.dbClient.Model(&model.DocumentContent{}).
				Select("document_id").Where("content LIKE ?", "%"+kw+"%")).
			Where("status = ?", model.StatusActive).
			Order("created_at DESC").
			Find(&docs).Error
		if err != nil {
			return nil, errs.Wrap(errs.KindStorage, err, "probe keyword %q", kw)
		}

		for i := range docs {
			if seen[docs[i].ID] {
				continue
			}

			seen[docs[i].ID] = true

			related = append(related, docs[i])
			if len(related) >= RelatedDocumentLimit {
				return related, nil
			}
		}
	}

	return related, nil
}
