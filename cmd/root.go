package cmd

import (
	"record-verify/pkg/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "record-verify",
		Short: "학교생활기록부 검증 도구",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableNoDescFlag:   true,
			DisableDescriptions: true,
			HiddenDefaultCmd:    true,
		},
	}

	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewServeCommand())

	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		zap.S().Info("使用 'validate' 执行一次批量校验，或使用 'serve' 启动 HTTP 服务")
		_ = cmd.Help()
	}
	rootCmd.Version = util.GetVersion().Version
	return rootCmd
}
