package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/docuvault/pkg/configs"
	ctxPkg "github.com/yeisme/docuvault/pkg/context"
	"github.com/yeisme/docuvault/pkg/errs"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/storage/db"
	"github.com/yeisme/docuvault/pkg/internal/storage/mq"
	"github.com/yeisme/docuvault/pkg/internal/storage/vault"
	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/metrics"
	"github.com/yeisme/docuvault/pkg/queue"
)

// PartitionFilesDir 分区目录内文件树的子目录名.
const PartitionFilesDir = "files"

// zipPrefix 压缩制品文件名前缀（archive_YYYY-MM.zip）.
const zipPrefix = "archive_"

// ArchiveService 负责冷数据迁移：把一个期间的活跃文档搬进自包含的分区库.
type ArchiveService struct {
	dbClient    *db.Client
	vaultClient *vault.Client
	mqClient    *mq.Client
	cfg         configs.ArchiveConfig
}

// NewArchiveService 从 context 获取依赖实例.
func NewArchiveService(c context.Context) *ArchiveService {
	dbc := ctxPkg.GetDBClient(c)
	vc := ctxPkg.GetVaultClient(c)

	if dbc == nil || dbc.DB == nil || vc == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &ArchiveService{
		dbClient:    dbc,
		vaultClient: vc,
		mqClient:    ctxPkg.GetMQClient(c),
		cfg:         configs.GetConfig().Archive,
	}
}

// ArchivePrevious 归档上个自然月.
func (s *ArchiveService) ArchivePrevious(ctx context.Context, now time.Time) (*types.ArchiveResult, error) {
	prev := now.AddDate(0, -1, 0)

	return s.ArchivePeriod(ctx, prev.Year(), prev.Month())
}

// ArchivePeriod migrates the period's active documents into a new partition.
// Partition DB rows and file copies fully precede the hot-store status flip;
// the flip is the sole commit point. Any failure before it removes the
// half-built partition directory and leaves the hot store untouched.
func (s *ArchiveService) ArchivePeriod(ctx context.Context, year int, month time.Month) (*types.ArchiveResult, error) {
	period := fmt.Sprintf("%04d-%02d", year, int(month))
	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	periodEnd := periodStart.AddDate(0, 1, 0)

	var docs []model.Document

	err := s.dbClient.WithContext(ctx).
		Where("status = ? AND created_at >= ? AND created_at < ?", model.StatusActive, periodStart, periodEnd).
		Order("id").
		Find(&docs).Error
	if err != nil {
		metrics.ArchiveRuns.WithLabelValues("error").Inc()

		return nil, errs.Wrap(errs.KindStorage, err, "select archive cohort %s", period)
	}

	if len(docs) == 0 {
		metrics.ArchiveRuns.WithLabelValues("skipped").Inc()

		return &types.ArchiveResult{Period: period, Skipped: true, Reason: "no active documents in period"}, nil
	}

	partDir := filepath.Join(s.cfg.Path, period)
	if _, err := os.Stat(partDir); err == nil {
		metrics.ArchiveRuns.WithLabelValues("error").Inc()

		return nil, errs.New(errs.KindConflict, "partition %s already exists", period)
	}

	if err := s.buildPartition(ctx, partDir, period, docs); err != nil {
		// 提交点之前的任何失败都拆掉半成品目录
		if rmErr := os.RemoveAll(partDir); rmErr != nil {
			nlog.Logger().Error().Err(rmErr).Str("dir", partDir).Msg("partial partition cleanup failed")
		}

		metrics.ArchiveRuns.WithLabelValues("error").Inc()

		return nil, err
	}

	// 提交点：热存储状态翻转，一个事务
	ids := make([]uint, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}

	err = s.dbClient.WithContext(ctx).Model(&model.Document{}).
		Where("id IN ?", ids).
		Update("status", model.StatusArchived).Error
	if err != nil {
		if rmErr := os.RemoveAll(partDir); rmErr != nil {
			nlog.Logger().Error().Err(rmErr).Str("dir", partDir).Msg("partition cleanup after flip failure failed")
		}

		metrics.ArchiveRuns.WithLabelValues("error").Inc()

		return nil, errs.Wrap(errs.KindStorage, err, "flip status for period %s", period)
	}

	metrics.ArchiveRuns.WithLabelValues("ok").Inc()

	result := &types.ArchiveResult{
		Period:        period,
		DocumentCount: len(docs),
		Path:          partDir,
	}

	if s.cfg.Zip {
		zipPath, err := s.compressPartition(ctx, partDir, period)
		if err != nil {
			// 归档本身已提交，压缩失败只记日志
			nlog.Logger().Error().Err(err).Str("period", period).Msg("partition compression failed")
		} else {
			result.Zipped = true
			result.Path = zipPath
		}
	}

	if s.mqClient != nil {
		payload := queue.DocumentArchivedPayload{
			Period:        period,
			DocumentCount: len(docs),
			PartitionPath: result.Path,
			Zipped:        result.Zipped,
		}
		if err := queue.PublishDocumentArchived(s.mqClient.Publisher(), payload); err != nil {
			nlog.Logger().Warn().Err(err).Str("period", period).Msg("publish archived event failed")
		}
	}

	nlog.Logger().Info().Str("period", period).Int("documents", len(docs)).Msg("archive migration completed")

	return result, nil
}

// buildPartition 建分区库、复制全部行与文件；任何失败都由调用方清理目录.
func (s *ArchiveService) buildPartition(ctx context.Context, partDir, period string, docs []model.Document) error {
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		return errs.Wrap(errs.KindStorage, err, "create partition dir %s", period)
	}

	ids := make([]uint, len(docs))
	inCohort := make(map[uint]bool, len(docs))

	for i := range docs {
		ids[i] = docs[i].ID
		inCohort[docs[i].ID] = true
	}

	hot := s.dbClient.WithContext(ctx)

	var contents []model.DocumentContent
	if err := hot.Where("document_id IN ?", ids).Find(&contents).Error; err != nil {
		return errs.Wrap(errs.KindStorage, err, "fetch cohort contents")
	}

	var fields []model.DocumentField
	if err := hot.Where("document_id IN ?", ids).Find(&fields).Error; err != nil {
		return errs.Wrap(errs.KindStorage, err, "fetch cohort fields")
	}

	// 关联只有两端都在本期间内才保留
	var relations []model.DocumentRelation
	if err := hot.Where("document_id IN ? AND related_document_id IN ?", ids, ids).
		Find(&relations).Error; err != nil {
		return errs.Wrap(errs.KindStorage, err, "fetch cohort relations")
	}

	pc, err := db.OpenPartition(filepath.Join(partDir, db.ArchiveDBName), true)
	if err != nil {
		return errs.Wrap(errs.KindStorage, err, "create partition db %s", period)
	}

	defer func() { _ = pc.Close() }()

	err = pc.Transaction(func(tx *gorm.DB) error {
		for i := range docs {
			d := docs[i] // 分区内的规范副本标记为 archived
			d.Status = model.StatusArchived

			if err := tx.Create(&d).Error; err != nil {
				return err
			}
		}

		for i := range contents {
			if err := tx.Create(&contents[i]).Error; err != nil {
				return err
			}
		}

		for i := range fields {
			if err := tx.Create(&fields[i]).Error; err != nil {
				return err
			}
		}

		for i := range relations {
			if err := tx.Create(&relations[i]).Error; err != nil {
				return err
			}
		}

		meta := []model.ArchiveMetadata{
			{Key: "period", Value: period},
			{Key: "document_count", Value: strconv.Itoa(len(docs))},
			{Key: "created_at", Value: time.Now().Format(time.RFC3339)},
		}

		for i := range meta {
			if err := tx.Create(&meta[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errs.Wrap(errs.KindStorage, err, "populate partition %s", period)
	}

	for i := range docs {
		if docs[i].FilePath == "" {
			continue
		}

		src := s.vaultClient.Abs(docs[i].FilePath)
		dst := filepath.Join(partDir, PartitionFilesDir, docs[i].FilePath)

		if err := copyFile(src, dst); err != nil {
			return errs.Wrap(errs.KindStorage, err, "copy file for document %d", docs[i].ID)
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// compressPartition 把分区目录压成 zip；配置要求时删除未压缩目录.
func (s *ArchiveService) compressPartition(ctx context.Context, partDir, period string) (string, error) {
	zipPath := filepath.Join(s.cfg.Path, zipPrefix+period+".zip")

	if err := zipDir(partDir, zipPath); err != nil {
		return "", errs.Wrap(errs.KindStorage, err, "compress partition %s", period)
	}

	s.vaultClient.MirrorArtifact(ctx, zipPath)

	if s.cfg.RemoveAfterZip {
		if err := os.RemoveAll(partDir); err != nil {
			nlog.Logger().Warn().Err(err).Str("dir", partDir).Msg("uncompressed partition removal failed")
		}
	}

	return zipPath, nil
}

func zipDir(dir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}

		defer func() { _ = in.Close() }()

		_, err = io.Copy(w, in)

		return err
	})
	if err != nil {
		_ = zw.Close()
		_ = out.Close()
		_ = os.Remove(zipPath)

		return err
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// Prune enforces the retention policy: enumerate partition directories and
// compressed artifacts, group them by period key, keep the N most recent
// periods and delete the rest as whole units.
func (s *ArchiveService) Prune(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errs.Wrap(errs.KindStorage, err, "read archive root")
	}

	// 期间键 -> 该期间的单元（目录与 zip 都算同一期间）
	units := map[string][]string{}

	for _, e := range entries {
		name := e.Name()

		switch {
		case e.IsDir() && periodKeyValid(name):
			units[name] = append(units[name], filepath.Join(s.cfg.Path, name))
		case !e.IsDir() && strings.HasPrefix(name, zipPrefix) && strings.HasSuffix(name, ".zip"):
			period := strings.TrimSuffix(strings.TrimPrefix(name, zipPrefix), ".zip")
			if periodKeyValid(period) {
				units[period] = append(units[period], filepath.Join(s.cfg.Path, name))
			}
		}
	}

	periods := make([]string, 0, len(units))
	for p := range units {
		periods = append(periods, p)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	if len(periods) <= s.cfg.KeepCount {
		return nil, nil
	}

	var removed []string

	for _, p := range periods[s.cfg.KeepCount:] {
		failed := false

		for _, path := range units[p] {
			if err := os.RemoveAll(path); err != nil {
				nlog.Logger().Error().Err(err).Str("path", path).Msg("partition removal failed")

				failed = true
			}
		}

		if !failed {
			removed = append(removed, p)
		}
	}

	if len(removed) > 0 && s.mqClient != nil {
		payload := queue.ArchivePrunedPayload{Removed: removed, KeepCount: s.cfg.KeepCount}

		msg, merr := queue.NewWatermillMessage(queue.TopicArchivePruned, payload)
		if merr == nil {
			merr = s.mqClient.Publish(ctx, queue.TopicArchivePruned, msg)
		}

		if merr != nil {
			nlog.Logger().Warn().Err(merr).Msg("publish pruned event failed")
		}
	}

	return removed, nil
}

func periodKeyValid(s string) bool {
	if len(s) != 7 || s[4] != '-' {
		return false
	}

	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return false
	}

	month, err := strconv.Atoi(s[5:])
	if err != nil {
		return false
	}

	return year >= 1900 && month >= 1 && month <= 12
}
