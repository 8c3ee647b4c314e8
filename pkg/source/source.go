// Package source 提供待校验文档：内存、JSON 文件或 MySQL/TiDB 中已解析的上传记录。
package source

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"record-verify/pkg/model"
)

// ErrNotFound 文档不存在
var ErrNotFound = errors.New("文档不存在")

// Source 文档来源
type Source interface {
	Get(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context) ([]*model.Document, error)
}

// MemorySource 内存文档来源，按加入顺序列出
type MemorySource struct {
	mu    sync.RWMutex
	docs  map[string]*model.Document
	order []string
}

func NewMemorySource(docs ...*model.Document) *MemorySource {
	s := &MemorySource{docs: make(map[string]*model.Document)}
	for _, d := range docs {
		s.Put(d)
	}
	return s
}

// Put 新增或替换文档
func (s *MemorySource) Put(doc *model.Document) {
	if doc == nil || doc.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc
}

func (s *MemorySource) Get(_ context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "id=%s", id)
	}
	return doc, nil
}

func (s *MemorySource) List(_ context.Context) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out, nil
}

// Select 按批量选项筛选文档：指定 ID 优先，其次按类别，最后全部；结果按 ID 去重并保持来源顺序
func Select(docs []*model.Document, opts model.BatchOptions) []*model.Document {
	if len(opts.SelectedDocumentIDs) > 0 {
		wanted := make(map[string]struct{}, len(opts.SelectedDocumentIDs))
		for _, id := range opts.SelectedDocumentIDs {
			wanted[strings.TrimSpace(id)] = struct{}{}
		}
		return filter(docs, func(d *model.Document) bool {
			_, ok := wanted[d.ID]
			return ok
		})
	}
	if len(opts.SelectedCategories) > 0 {
		cats := make(map[string]struct{}, len(opts.SelectedCategories))
		for _, c := range opts.SelectedCategories {
			cats[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
		}
		return filter(docs, func(d *model.Document) bool {
			_, ok := cats[strings.ToLower(strings.TrimSpace(d.Category))]
			return ok
		})
	}
	if opts.ValidateAll {
		return filter(docs, func(*model.Document) bool { return true })
	}
	return nil
}

func filter(docs []*model.Document, keep func(*model.Document) bool) []*model.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]*model.Document, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		if _, dup := seen[d.ID]; dup || !keep(d) {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}

// DocumentFromGrid 把网格 JSON 转换为文档。
// 支持 {"sheets":[...], "students":[...]}，也支持外层包一层 "data"；单元格值统一转为字符串。
func DocumentFromGrid(id, name, category string, grid map[string]interface{}) (*model.Document, error) {
	if grid == nil {
		return nil, errors.New("网格内容为空")
	}
	if data, ok := grid["data"].(map[string]interface{}); ok {
		grid = data
	}
	doc := &model.Document{ID: id, Name: name, Category: category}
	if doc.Category == "" {
		doc.Category = cast.ToString(grid["category"])
	}
	for _, raw := range cast.ToSlice(grid["sheets"]) {
		sheet, err := sheetFromGrid(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "文档 %s", id)
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}
	for _, raw := range cast.ToSlice(grid["students"]) {
		m := cast.ToStringMap(raw)
		if len(m) == 0 {
			continue
		}
		st := model.StudentRecord{ID: cast.ToString(m["id"]), Name: cast.ToString(m["name"])}
		if st.ID == "" {
			st.ID = st.Name
		}
		for _, sec := range cast.ToSlice(m["sections"]) {
			sheet, err := sheetFromGrid(sec)
			if err != nil {
				return nil, errors.Wrapf(err, "文档 %s 学生 %s", id, st.ID)
			}
			st.Sections = append(st.Sections, sheet)
		}
		doc.Students = append(doc.Students, st)
	}
	if len(doc.Sheets) == 0 && len(doc.Students) == 0 {
		return nil, errors.Errorf("文档 %s 没有任何工作表", id)
	}
	return doc, nil
}

func sheetFromGrid(raw interface{}) (model.Sheet, error) {
	m := cast.ToStringMap(raw)
	if len(m) == 0 {
		return model.Sheet{}, errors.New("工作表格式错误")
	}
	sheet := model.Sheet{
		Name:       cast.ToString(m["name"]),
		Section:    cast.ToString(m["section"]),
		HeaderRows: cast.ToInt(m["headerRows"]),
	}
	if kind := cast.ToString(m["kind"]); kind != "" {
		sheet.Kind = model.ClassifySection(kind)
	}
	for _, row := range cast.ToSlice(m["rows"]) {
		cells := cast.ToSlice(row)
		out := make([]string, len(cells))
		for i, c := range cells {
			if c == nil {
				continue
			}
			out[i] = cast.ToString(c)
		}
		sheet.Rows = append(sheet.Rows, out)
	}
	return sheet, nil
}
