package source

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"record-verify/pkg/model"
)

// GormSource 从 tbl_school_record 读取已解析的上传文件；读请求由 dbresolver 分发到从库
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// Get 按 fileId 读取最新的一条记录
func (s *GormSource) Get(ctx context.Context, id string) (*model.Document, error) {
	var rec model.SchoolRecord
	err := s.db.WithContext(ctx).Where("fileId = ?", id).Order("id DESC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "id=%s", id)
		}
		return nil, errors.Wrapf(err, "查询文档 %s 失败", id)
	}
	return recordToDocument(&rec)
}

// List 每个 fileId 只读取最新的一条记录，与 Get 一致；无法解析的记录记日志后跳过
func (s *GormSource) List(ctx context.Context) ([]*model.Document, error) {
	latest := s.db.Model(&model.SchoolRecord{}).Select("MAX(id)").Group("fileId")
	var recs []model.SchoolRecord
	if err := s.db.WithContext(ctx).Where("id IN (?)", latest).Order("id").Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "查询文档列表失败")
	}
	recs = latestPerFile(recs)
	docs := make([]*model.Document, 0, len(recs))
	skipped := 0
	for i := range recs {
		doc, err := recordToDocument(&recs[i])
		if err != nil {
			zap.S().Warnf("记录 ID %d 解析失败，跳过: %v", recs[i].ID, err)
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	zap.S().Debugf("读取文档 %d 个，跳过 %d 个", len(docs), skipped)
	return docs, nil
}

// latestPerFile 同一 fileId 保留 ID 最大的记录，顺序按首次出现
func latestPerFile(recs []model.SchoolRecord) []model.SchoolRecord {
	pos := make(map[string]int, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		if i, ok := pos[rec.FileID]; ok {
			if rec.ID > out[i].ID {
				out[i] = rec
			}
			continue
		}
		pos[rec.FileID] = len(out)
		out = append(out, rec)
	}
	return out
}

func recordToDocument(rec *model.SchoolRecord) (*model.Document, error) {
	grid, err := rec.Content.Parsed()
	if err != nil {
		return nil, errors.Wrapf(err, "记录 ID %d", rec.ID)
	}
	id := rec.FileID
	if id == "" {
		return nil, errors.Errorf("记录 ID %d 缺少 fileId", rec.ID)
	}
	return DocumentFromGrid(id, rec.FileName, rec.Category, grid)
}
