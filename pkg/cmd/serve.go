package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/docuvault/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the background pipeline with scheduler and metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.NewApp(configPath).Run()
	},
}

// registerServeCommand 注册 serve 命令.
func registerServeCommand() {
	rootCmd.AddCommand(serveCmd)
}
