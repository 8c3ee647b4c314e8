package main

import (
	"os"

	"go.uber.org/zap"

	"record-verify/cmd"
	"record-verify/pkg/util"
)

func main() {
	logger, err := util.InitLogger(nil)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cmd.NewRootCommand().Execute(); err != nil {
		zap.S().Debugf("命令执行失败: %v", err)
		os.Exit(1)
	}
}
