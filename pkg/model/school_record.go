package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SchoolRecord 表示 tbl_school_record 表，一行对应一个已解析的上传文件
type SchoolRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	FileID    string         `gorm:"column:fileId;index" json:"file_id"` // 上传文件 ID，对外的文档 ID
	FileName  string         `gorm:"column:fileName" json:"file_name"`
	Category  string         `gorm:"column:category" json:"category"` // 上游自动识别的类别
	Content   GridContent    `gorm:"type:longtext" json:"content"`    // 解析后的单元格网格 JSON
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (SchoolRecord) TableName() string {
	return "tbl_school_record"
}

// GridContent 单元格网格 JSON，单元格值可能是字符串、数字或布尔
type GridContent struct {
	Data map[string]interface{} `json:"-"`
	Raw  string                 `json:"-"`
}

// Value 实现 driver.Valuer 接口
func (g GridContent) Value() (driver.Value, error) {
	if g.Raw != "" {
		return g.Raw, nil
	}
	if g.Data == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(g.Data)
	if err != nil {
		return nil, errors.Wrap(err, "序列化网格内容失败")
	}
	return string(bytes), nil
}

// Scan 实现 sql.Scanner 接口，非法 JSON 时保留原始字符串
func (g *GridContent) Scan(value interface{}) error {
	g.Data = nil
	g.Raw = ""
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		g.Raw = string(v)
	case string:
		g.Raw = v
	default:
		return errors.Errorf("不支持的网格内容类型: %T", value)
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(g.Raw), &data); err == nil {
		g.Data = data
	}
	return nil
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (g *GridContent) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	g.Raw = string(data)
	g.Data = m
	return nil
}

// MarshalJSON 实现 json.Marshaler 接口
func (g GridContent) MarshalJSON() ([]byte, error) {
	if g.Data != nil {
		return json.Marshal(g.Data)
	}
	if g.Raw != "" {
		return []byte(g.Raw), nil
	}
	return []byte("{}"), nil
}

// Parsed 返回解析后的 JSON，必要时重新解析原始字符串
func (g *GridContent) Parsed() (map[string]interface{}, error) {
	if g.Data != nil {
		return g.Data, nil
	}
	if g.Raw == "" {
		return nil, errors.New("网格内容为空")
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(g.Raw), &data); err != nil {
		return nil, errors.Wrap(err, "网格内容不是合法 JSON")
	}
	g.Data = data
	return data, nil
}
