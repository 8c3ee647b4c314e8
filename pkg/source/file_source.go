package source

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// LoadFile 读取 JSON 文件中的文档，文件内容可以是单个文档或文档数组
func LoadFile(path string) (*MemorySource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "读取文件 %s 失败", path)
	}
	return Parse(raw)
}

// Parse 解析 JSON 文档，格式同网格 JSON，外加 id/name/category 字段
func Parse(raw []byte) (*MemorySource, error) {
	raw = bytes.TrimSpace(raw)
	var items []map[string]interface{}
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrap(err, "文档数组不是合法 JSON")
		}
	} else {
		var one map[string]interface{}
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, errors.Wrap(err, "文档不是合法 JSON")
		}
		items = append(items, one)
	}

	src := NewMemorySource()
	for i, item := range items {
		id := cast.ToString(item["id"])
		if id == "" {
			return nil, errors.Errorf("第 %d 个文档缺少 id", i+1)
		}
		doc, err := DocumentFromGrid(id, cast.ToString(item["name"]), cast.ToString(item["category"]), item)
		if err != nil {
			return nil, err
		}
		src.Put(doc)
	}
	return src, nil
}
