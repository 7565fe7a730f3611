package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/docuvault/pkg/app"
	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/internal/service"
)

var (
	archiveYear  int
	archiveMonth int
	retrainForce bool
	purgeDays    int

	// 一次性维护命令：初始化完整依赖，执行后退出.
	archiveCmd = &cobra.Command{
		Use:   "archive",
		Short: "migrate one period's active documents into an archive partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			svc := service.NewArchiveService(a.Ctx)

			var (
				result any
				err    error
			)

			if archiveYear > 0 && archiveMonth > 0 {
				result, err = svc.ArchivePeriod(cmd.Context(), archiveYear, time.Month(archiveMonth))
			} else {
				result, err = svc.ArchivePrevious(cmd.Context(), time.Now())
			}

			if err != nil {
				return err
			}

			return printJSON(cmd, result)
		},
	}

	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "enforce the partition retention policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			removed, err := service.NewArchiveService(a.Ctx).Prune(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]any{"removed": removed})
		},
	}

	retrainCmd = &cobra.Command{
		Use:   "retrain",
		Short: "run the feedback-driven classifier retraining loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			result, err := service.NewFeedbackService(a.Ctx, a.Classifier).Retrain(cmd.Context(), retrainForce)
			if err != nil {
				return err
			}

			return printJSON(cmd, result)
		},
	}

	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "permanently remove soft-deleted documents past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			days := purgeDays
			if days <= 0 {
				days = configs.GetConfig().Archive.PurgeAfterDays
			}

			purged, err := service.NewDocumentService(a.Ctx, a.Classifier, a.Extractor).PurgeDeleted(cmd.Context(), days)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]any{"purged": purged, "older_than_days": days})
		},
	}

	vacuumCmd = &cobra.Command{
		Use:   "vacuum",
		Short: "reclaim hot store space (sqlite only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			return service.NewDocumentService(a.Ctx, a.Classifier, a.Extractor).Vacuum(cmd.Context())
		},
	}
)

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return nil
}

// registerOpsCommands 注册维护命令.
func registerOpsCommands() {
	archiveCmd.Flags().IntVar(&archiveYear, "year", 0, "period year (defaults to previous month)")
	archiveCmd.Flags().IntVar(&archiveMonth, "month", 0, "period month (defaults to previous month)")
	retrainCmd.Flags().BoolVar(&retrainForce, "force", false, "retrain even below the feedback threshold")
	purgeCmd.Flags().IntVar(&purgeDays, "days", 0, "override the purge retention window in days")

	rootCmd.AddCommand(archiveCmd, pruneCmd, retrainCmd, purgeCmd, vacuumCmd)
}
