package model

import (
	"fmt"
	"strings"
)

// CellLocation 单元格在文档中的位置
type CellLocation struct {
	DocumentID string `json:"documentId"`
	Sheet      string `json:"sheet"`
	Section    string `json:"section"`
	Row        int    `json:"row"`
	Column     int    `json:"column"`
	Address    string `json:"address"`
	OwnerID    string `json:"ownerId,omitempty"`
	OwnerName  string `json:"ownerName,omitempty"`
}

// IsZero 未设置位置
func (l CellLocation) IsZero() bool {
	return l.DocumentID == "" && l.Sheet == "" && l.Address == ""
}

// Key 单元格唯一键
func (l CellLocation) Key() string {
	return strings.Join([]string{l.DocumentID, l.OwnerID, l.Sheet, l.Address}, "|")
}

func (l CellLocation) String() string {
	var b strings.Builder
	if l.OwnerName != "" {
		b.WriteString(l.OwnerName)
		b.WriteString("/")
	} else if l.OwnerID != "" {
		b.WriteString(l.OwnerID)
		b.WriteString("/")
	}
	b.WriteString(l.Sheet)
	if l.Section != "" && l.Section != l.Sheet {
		b.WriteString("(")
		b.WriteString(l.Section)
		b.WriteString(")")
	}
	b.WriteString("!")
	b.WriteString(l.Address)
	return b.String()
}

// Adjacent 相邻单元格的值，可能为空
type Adjacent struct {
	Left   string `json:"left,omitempty"`
	Right  string `json:"right,omitempty"`
	Above  string `json:"above,omitempty"`
	Header string `json:"header,omitempty"`
}

// CellContext 每个单元格新建一次，按值传递给检查器，检查器不得修改
type CellContext struct {
	Location CellLocation `json:"location"`
	Kind     SectionKind  `json:"kind"`
	Adjacent Adjacent     `json:"adjacent"`
	IsHeader bool         `json:"isHeader"`
	Priority Priority     `json:"priority"`
}

// OwnerKey 内容归属主体；未按学生切分时以文档为主体
func (c CellContext) OwnerKey() string {
	if c.Location.OwnerID != "" {
		return c.Location.DocumentID + "/" + c.Location.OwnerID
	}
	return c.Location.DocumentID
}

// ColumnName 0 起始列号转 A1 列名
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}

// CellAddress 0 起始行列转 A1 地址
func CellAddress(row, col int) string {
	return fmt.Sprintf("%s%d", ColumnName(col), row+1)
}
