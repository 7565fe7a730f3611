// Package jobs 注册后台维护任务：月度归档、分区裁剪、软删清除、VACUUM 与再训练检查.
// 归档迁移与再训练都是长任务，运行在请求路径之外；失败只记日志，等下一轮或手动重试.
package jobs

import (
	"context"
	"time"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/internal/classifier"
	"github.com/yeisme/docuvault/pkg/internal/service"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/scheduler"
)

// 任务名与 cron 表达式.
const (
	JobArchiveMonthly = "archive-monthly"
	JobArchivePrune   = "archive-prune"
	JobPurgeDeleted   = "purge-deleted"
	JobVacuum         = "vacuum"
	JobRetrainCheck   = "retrain-check"

	cronArchiveMonthly = "0 2 1 * *" // 每月 1 日 02:00 归档上月
	cronArchivePrune   = "0 3 * * *" // 每日 03:00
	cronPurgeDeleted   = "30 3 * * *"
	cronVacuum         = "0 4 * * 0" // 每周日 04:00
	cronRetrainCheck   = "0 * * * *" // 每小时检查反馈阈值
)

// Register 在调度器上挂全部维护任务；ctx 必须携带存储管理器.
func Register(ctx context.Context, sched *scheduler.Scheduler, engine *classifier.Engine, textExtractor service.TextExtractor) error {
	docSvc := service.NewDocumentService(ctx, engine, textExtractor)
	archiveSvc := service.NewArchiveService(ctx)
	feedbackSvc := service.NewFeedbackService(ctx, engine)

	purgeAfterDays := configs.GetConfig().Archive.PurgeAfterDays

	entries := []struct {
		name string
		cron string
		run  func(ctx context.Context)
	}{
		{
			name: JobArchiveMonthly,
			cron: cronArchiveMonthly,
			run: func(ctx context.Context) {
				result, err := archiveSvc.ArchivePrevious(ctx, time.Now())
				if err != nil {
					nlog.Logger().Error().Err(err).Str("job", JobArchiveMonthly).Msg("archive run failed")

					return
				}

				if result.Skipped {
					nlog.Logger().Info().Str("period", result.Period).Str("reason", result.Reason).Msg("archive run skipped")
				}
			},
		},
		{
			name: JobArchivePrune,
			cron: cronArchivePrune,
			run: func(ctx context.Context) {
				removed, err := archiveSvc.Prune(ctx)
				if err != nil {
					nlog.Logger().Error().Err(err).Str("job", JobArchivePrune).Msg("prune run failed")

					return
				}

				if len(removed) > 0 {
					nlog.Logger().Info().Strs("periods", removed).Msg("partitions pruned")
				}
			},
		},
		{
			name: JobPurgeDeleted,
			cron: cronPurgeDeleted,
			run: func(ctx context.Context) {
				purged, err := docSvc.PurgeDeleted(ctx, purgeAfterDays)
				if err != nil {
					nlog.Logger().Error().Err(err).Str("job", JobPurgeDeleted).Msg("purge run failed")

					return
				}

				if purged > 0 {
					nlog.Logger().Info().Int("purged", purged).Msg("soft-deleted documents purged")
				}
			},
		},
		{
			name: JobVacuum,
			cron: cronVacuum,
			run: func(ctx context.Context) {
				if err := docSvc.Vacuum(ctx); err != nil {
					nlog.Logger().Error().Err(err).Str("job", JobVacuum).Msg("vacuum run failed")
				}
			},
		},
		{
			name: JobRetrainCheck,
			cron: cronRetrainCheck,
			run: func(ctx context.Context) {
				// 未达阈值时 Retrain 自己跳过，无副作用
				result, err := feedbackSvc.Retrain(ctx, false)
				if err != nil {
					nlog.Logger().Error().Err(err).Str("job", JobRetrainCheck).Msg("retrain run failed")

					return
				}

				if !result.Skipped {
					nlog.Logger().Info().Str("version", result.Version).Msg("scheduled retraining completed")
				}
			},
		},
	}

	for _, e := range entries {
		if err := sched.AddCron(e.name, e.cron, e.run, ctx); err != nil {
			return err
		}
	}

	return nil
}
