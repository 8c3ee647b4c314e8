package cmd

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"record-verify/pkg/db"
	"record-verify/pkg/model"
	"record-verify/pkg/signals"
)

type validateOptions struct {
	configFilePath string
	input          string
	output         string
	concurrency    int
	priority       string
	categories     []string
	ids            []string
	progressEvery  time.Duration
}

func NewValidateCommand() *cobra.Command {
	o := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "对上传的生活记录执行一次批量校验",
		Long:  "从 JSON 文件或 MySQL 的 tbl_school_record 读取文档，执行一次批量校验，输出汇总并按配置归档到 DuckDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(signals.SetupSignalHandler(), o)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&o.configFilePath, "config", "c", "./etc/config.yaml", "配置文件路径")
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "文档 JSON 文件，为空时从 MySQL 读取")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "把批次结果写入该 JSON 文件")
	cmd.Flags().IntVarP(&o.concurrency, "concurrency", "n", 0, "块内并发数 (1-10)，为空时使用配置")
	cmd.Flags().StringVarP(&o.priority, "priority", "p", "", "speed / accuracy / balanced")
	cmd.Flags().StringSliceVar(&o.categories, "categories", nil, "只校验这些分类")
	cmd.Flags().StringSliceVar(&o.ids, "ids", nil, "只校验这些文档 ID")
	cmd.Flags().DurationVar(&o.progressEvery, "progress-every", 2*time.Second, "进度日志间隔")
	return cmd
}

func (o *validateOptions) batchOptions() model.BatchOptions {
	return model.BatchOptions{
		ValidateAll:         len(o.ids) == 0 && len(o.categories) == 0,
		SelectedCategories:  o.categories,
		SelectedDocumentIDs: o.ids,
		MaxConcurrency:      o.concurrency,
		Priority:            model.Priority(o.priority),
	}
}

func runValidate(ctx context.Context, o *validateOptions) error {
	cfg, err := loadConfig(o.configFilePath)
	if err != nil {
		zap.S().Error(err)
		return err
	}
	src, err := openSource(cfg, o.input)
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

	docs, err := src.List(ctx)
	if err != nil {
		return errors.Wrap(err, "读取文档列表失败")
	}
	batchID, err := a.batches.StartBatch(ctx, docs, o.batchOptions())
	if err != nil {
		zap.S().Errorf("启动批次失败: %v", err)
		return err
	}
	zap.S().Infof("批次 %s 已开始, 文档总数 %d", batchID, len(docs))

	result := a.waitBatch(ctx, batchID, o.progressEvery)
	summarize(result)

	if o.output != "" {
		if err := writeJSON(o.output, result); err != nil {
			zap.S().Warnf("写入结果文件失败: %v", err)
		}
	}
	if a.archive != nil {
		// 归档使用独立 ctx，退出信号之后仍需读出统计
		if n, err := a.archive.CountFindings(context.WithoutCancel(ctx), batchID); err != nil {
			zap.S().Warnf("获取归档统计失败: %v", err)
		} else {
			zap.S().Infof("DuckDB 中该批次归档问题数量: %d", n)
		}
	}
	if result.Status == model.StatusCancelled {
		return errors.New("批次已取消")
	}
	return nil
}

// waitBatch 等待批次结束，收到退出信号时取消批次
func (a *app) waitBatch(ctx context.Context, batchID string, every time.Duration) *model.BatchResult {
	done := make(chan struct{})
	go func() {
		a.batches.Wait()
		close(done)
	}()
	if every <= 0 {
		every = 2 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	cancelled := false
	for {
		select {
		case <-done:
			r, _ := a.batches.GetBatchResult(batchID)
			return r
		case <-ctx.Done():
			if !cancelled {
				cancelled = a.batches.CancelBatch(batchID)
			}
		case <-ticker.C:
			if r, ok := a.batches.GetBatchResult(batchID); ok {
				zap.S().Infof("批次 %s 进度 %d%%, 完成 %d 失败 %d 取消 %d / %d",
					batchID, r.Progress, r.CompletedFiles, r.FailedFiles, r.CancelledFiles, r.TotalFiles)
			}
		}
	}
}

func summarize(r *model.BatchResult) {
	zap.S().Infof("批次 %s 结束: 状态 %s, 文档 %d (完成 %d, 失败 %d, 取消 %d), 错误 %d, 警告 %d, 提示 %d",
		r.ID, r.Status, r.TotalFiles, r.CompletedFiles, r.FailedFiles, r.CancelledFiles,
		r.TotalErrors, r.TotalWarnings, r.TotalInfos)

	ids := make([]string, 0, len(r.Results))
	for id := range r.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := r.Results[id]
		zap.S().Infof("  %s: %s 错误 %d 警告 %d 提示 %d 单元格 %d/%d",
			id, d.Status, d.Totals.Errors, d.Totals.Warnings, d.Totals.Infos, d.Totals.CheckedCells, d.Totals.TotalCells)
		if d.Error != "" {
			zap.S().Warnf("    %s", d.Error)
		}
	}
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
