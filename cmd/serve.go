package cmd

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"record-verify/config"
	"record-verify/pkg/api"
	"record-verify/pkg/db"
	"record-verify/pkg/signals"
)

func NewServeCommand() *cobra.Command {
	var configFilePath string
	var input string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动校验 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(signals.SetupSignalHandler(), configFilePath, input)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&configFilePath, "config", "c", "./etc/config.yaml", "配置文件路径")
	cmd.Flags().StringVarP(&input, "input", "i", "", "文档 JSON 文件，为空时从 MySQL 读取")
	return cmd
}

func runServe(ctx context.Context, configFilePath, input string) error {
	cfg, err := loadConfig(configFilePath)
	if err != nil {
		zap.S().Error(err)
		return err
	}
	src, err := openSource(cfg, input)
	if err != nil {
		zap.S().Errorf("打开文档来源失败: %v", err)
		return err
	}
	a, err := buildApp(ctx, cfg, src)
	if err != nil {
		zap.S().Errorf("初始化失败: %v", err)
		return err
	}

	defer db.CloseDuckDB()

	sc := orDefault(cfg.ServerConfig, config.NewDefaultServerConfig)
	srv := &http.Server{
		Addr:         sc.Addr,
		Handler:      api.NewRouter(sc.Mode, api.NewHandler(a.validator, a.batches, src)),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("HTTP 服务监听 %s", sc.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "HTTP 服务异常退出")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnf("HTTP 服务关闭超时: %v", err)
	}
	zap.S().Info("HTTP 服务已退出")
	return nil
}
