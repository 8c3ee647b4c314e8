package model

import "strings"

// Document 上游解析器输出的规范化文档
type Document struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Sheets   []Sheet         `json:"sheets,omitempty"`
	Students []StudentRecord `json:"students,omitempty"`
}

// Sheet 一个工作表或学生的一个区域，按行列保存单元格文本
type Sheet struct {
	Name       string      `json:"name"`
	Section    string      `json:"section,omitempty"`
	Kind       SectionKind `json:"kind,omitempty"`
	HeaderRows int         `json:"headerRows,omitempty"`
	Rows       [][]string  `json:"rows"`
}

// StudentRecord 预先按学生切分的记录
type StudentRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Sections []Sheet `json:"sections"`
}

// Unit 遍历单元：一个区域以及其所属学生
type Unit struct {
	OwnerID   string
	OwnerName string
	Sheet     *Sheet
}

// SectionName 区域名称，未设置时回退到工作表名
func (s *Sheet) SectionName() string {
	if strings.TrimSpace(s.Section) != "" {
		return s.Section
	}
	return s.Name
}

// SectionKind 区域分类，未显式给出时按名称推断
func (s *Sheet) SectionKind() SectionKind {
	if s.Kind != "" {
		return s.Kind
	}
	return ClassifySection(s.SectionName())
}

// Units 按文档顺序返回遍历单元：先工作表，再按学生的区域
func (d *Document) Units() []Unit {
	units := make([]Unit, 0, len(d.Sheets))
	for i := range d.Sheets {
		units = append(units, Unit{Sheet: &d.Sheets[i]})
	}
	for i := range d.Students {
		st := &d.Students[i]
		for j := range st.Sections {
			units = append(units, Unit{OwnerID: st.ID, OwnerName: st.Name, Sheet: &st.Sections[j]})
		}
	}
	return units
}

// TotalCells 非空单元格数量，作为进度分母
func (d *Document) TotalCells() int {
	total := 0
	for _, u := range d.Units() {
		for _, row := range u.Sheet.Rows {
			for _, cell := range row {
				if !IsEmptyCell(cell) {
					total++
				}
			}
		}
	}
	return total
}

// IsEmptyCell 空白单元格判断
func IsEmptyCell(v string) bool {
	return strings.TrimSpace(v) == ""
}
