package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// MySQLConfig 上传记录所在的 MySQL/TiDB，Replicas 为只读从库
type MySQLConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	User            string        `json:"user" yaml:"user"`
	Password        string        `json:"password" yaml:"password"`
	Database        string        `json:"database" yaml:"database"`
	Params          string        `json:"params" yaml:"params"`
	Replicas        []string      `json:"replicas" yaml:"replicas"` // host:port
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	SlowThreshold   time.Duration `json:"slowThreshold" yaml:"slowThreshold"`
}

func (m *MySQLConfig) Validate() []error {
	var errs = make([]error, 0)
	if m.Host == "" {
		errs = append(errs, errors.Errorf("MySQL 地址不能为空"))
	}
	if m.Database == "" {
		errs = append(errs, errors.Errorf("MySQL 数据库名不能为空"))
	}
	if m.Port <= 0 || m.Port > 65535 {
		errs = append(errs, errors.Errorf("MySQL 端口不合法: %d", m.Port))
	}
	return errs
}

func NewDefaultMySQLConfig() *MySQLConfig {
	return &MySQLConfig{
		Host:            "127.0.0.1",
		Port:            4000,
		User:            "root",
		Database:        "school_record",
		Params:          "charset=utf8mb4&parseTime=True&loc=Local",
		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   time.Second,
	}
}

// DSN 主库连接串
func (m *MySQLConfig) DSN() string {
	return m.dsn(fmt.Sprintf("%s:%d", m.Host, m.Port))
}

// ReplicaDSNs 从库连接串
func (m *MySQLConfig) ReplicaDSNs() []string {
	out := make([]string, 0, len(m.Replicas))
	for _, addr := range m.Replicas {
		out = append(out, m.dsn(addr))
	}
	return out
}

func (m *MySQLConfig) dsn(addr string) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", m.User, m.Password, addr, m.Database)
	if m.Params != "" {
		dsn += "?" + m.Params
	}
	return dsn
}
