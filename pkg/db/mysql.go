package db

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"record-verify/config"
)

var tiDB *gorm.DB
var tiDBOnce sync.Once

// gormWriter 把 gorm 日志转到 zap
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	zap.S().Debugf(format, args...)
}

// InitTiDB 初始化 MySQL/TiDB 连接；配置了从库时读请求走从库
func InitTiDB(cfg *config.GlobalConfig) error {
	if cfg == nil || cfg.MySQLConfig == nil {
		return errors.New("MySQL 配置未设置")
	}
	mc := cfg.MySQLConfig
	var err error
	tiDBOnce.Do(func() {
		tiDB, err = gorm.Open(mysql.Open(mc.DSN()), &gorm.Config{
			Logger: logger.New(gormWriter{}, logger.Config{
				SlowThreshold:             mc.SlowThreshold,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			}),
		})
		if err != nil {
			err = errors.Wrap(err, "连接 MySQL 失败")
			return
		}

		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: dialectors(mc.ReplicaDSNs()),
			Policy:   dbresolver.RandomPolicy{},
		})
		if mc.MaxIdleConns > 0 {
			resolver = resolver.SetMaxIdleConns(mc.MaxIdleConns)
		}
		if mc.MaxOpenConns > 0 {
			resolver = resolver.SetMaxOpenConns(mc.MaxOpenConns)
		}
		if mc.ConnMaxLifetime > 0 {
			resolver = resolver.SetConnMaxLifetime(mc.ConnMaxLifetime)
		}
		if err = tiDB.Use(resolver); err != nil {
			err = errors.Wrap(err, "注册读写分离失败")
			return
		}
		zap.S().Debugf("MySQL 初始化完成: %s, 从库 %d 个", fmt.Sprintf("%s:%d/%s", mc.Host, mc.Port, mc.Database), len(mc.Replicas))
	})
	return err
}

func dialectors(dsns []string) []gorm.Dialector {
	out := make([]gorm.Dialector, 0, len(dsns))
	for _, dsn := range dsns {
		out = append(out, mysql.Open(dsn))
	}
	return out
}

// GetTiDB 获取 gorm 连接
func GetTiDB() *gorm.DB {
	return tiDB
}
