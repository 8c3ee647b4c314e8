package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"record-verify/config"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	archiveDB     *sql.DB
	archiveDBOnce sync.Once
)

// InitDuckDB 打开归档用的 DuckDB 文件；归档写入串行进行，只保留一个连接
func InitDuckDB(cfg *config.DuckDBConfig) error {
	var err error
	archiveDBOnce.Do(func() {
		archiveDB, err = sql.Open("duckdb", cfg.DSN())
		if err != nil {
			err = errors.Wrap(err, "打开 duckdb 失败")
			return
		}
		archiveDB.SetMaxOpenConns(1)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = archiveDB.PingContext(ctx); err != nil {
			err = errors.Wrapf(err, "duckdb 不可用: %s", cfg.DSN())
			return
		}
		zap.S().Debugf("duckdb 归档库就绪: %s", cfg.DSN())
	})
	return err
}

// GetDuckDB 归档库连接，未初始化时为 nil
func GetDuckDB() *sql.DB {
	return archiveDB
}

func GetDuckDBWithContext(_ context.Context) *sql.DB {
	return archiveDB
}

// CloseDuckDB 退出前关闭，确保 WAL 落盘
func CloseDuckDB() {
	if archiveDB == nil {
		return
	}
	if err := archiveDB.Close(); err != nil {
		zap.S().Warnf("关闭 duckdb 失败: %v", err)
	}
}
