package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"record-verify/pkg/model"
)

// ArchiveService 把批次结果写入 DuckDB，供离线分析
type ArchiveService struct {
	db *sql.DB
}

func NewArchiveService(db *sql.DB) *ArchiveService {
	return &ArchiveService{db: db}
}

// EnsureTables 创建结果表（已存在时跳过）
func (s *ArchiveService) EnsureTables(ctx context.Context) error {
	if s.db == nil {
		return errors.New("DuckDB 连接未初始化")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS document_result (
			document_id TEXT,
			batch_id TEXT,
			status TEXT,
			errors INTEGER,
			warnings INTEGER,
			infos INTEGER,
			checked INTEGER,
			error_text TEXT,
			archived_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS archived_finding (
			id TEXT PRIMARY KEY,
			document_id TEXT,
			batch_id TEXT,
			seq INTEGER,
			severity TEXT,
			kind TEXT,
			message TEXT,
			location TEXT,
			text TEXT,
			score DOUBLE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "创建表失败")
		}
	}
	zap.S().Debug("DuckDB 结果表已就绪")
	return nil
}

// Save 在一个事务内写入批次中每个文档的摘要和问题
func (s *ArchiveService) Save(ctx context.Context, batch *model.BatchResult) error {
	if s.db == nil {
		return errors.New("DuckDB 连接未初始化")
	}
	startTime := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "开启事务失败")
	}
	defer func() { _ = tx.Rollback() }()

	findings := 0
	for _, docID := range batch.DocumentIDs {
		res, ok := batch.Results[docID]
		if !ok {
			continue
		}
		summary := archivedResultOf(batch.ID, res)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_result (document_id, batch_id, status, errors, warnings, infos, checked, error_text, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.DocumentID, summary.BatchID, summary.Status, summary.Errors, summary.Warnings,
			summary.Infos, summary.Checked, summary.ErrorText, startTime,
		); err != nil {
			return errors.Wrapf(err, "写入文档 %s 摘要失败", docID)
		}
		for _, f := range archivedFindingsOf(batch.ID, res) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO archived_finding (id, document_id, batch_id, seq, severity, kind, message, location, text, score)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				f.ID, f.DocumentID, f.BatchID, f.Seq, f.Severity, f.Kind, f.Message, f.Location, f.Text, f.Score,
			); err != nil {
				return errors.Wrapf(err, "写入文档 %s 问题失败", docID)
			}
			findings++
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "提交事务失败")
	}
	zap.S().Infof("批次 %s 归档完成: 文档 %d 个, 问题 %d 条, 耗时 %s", batch.ID, len(batch.Results), findings, time.Since(startTime))
	return nil
}

// CountFindings 已归档的问题数量，batchID 为空时统计全部
func (s *ArchiveService) CountFindings(ctx context.Context, batchID string) (int64, error) {
	if s.db == nil {
		return 0, errors.New("DuckDB 连接未初始化")
	}
	var count int64
	var err error
	if batchID == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_finding").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_finding WHERE batch_id = ?", batchID).Scan(&count)
	}
	if err != nil {
		return 0, errors.Wrap(err, "查询数量失败")
	}
	return count, nil
}

// OnBatchDone 作为批次回调使用，失败只记日志
func (s *ArchiveService) OnBatchDone(ctx context.Context, batch *model.BatchResult) {
	if err := s.Save(ctx, batch); err != nil {
		zap.S().Warnf("批次 %s 归档失败: %v", batch.ID, err)
	}
}

func archivedResultOf(batchID string, r *model.DocumentResult) model.ArchivedResult {
	return model.ArchivedResult{
		DocumentID: r.DocumentID,
		BatchID:    batchID,
		Status:     string(r.Status),
		Errors:     r.Totals.Errors,
		Warnings:   r.Totals.Warnings,
		Infos:      r.Totals.Infos,
		Checked:    r.Totals.CheckedCells,
		ErrorText:  r.Error,
	}
}

func archivedFindingsOf(batchID string, r *model.DocumentResult) []model.ArchivedFinding {
	all := r.Findings()
	out := make([]model.ArchivedFinding, 0, len(all))
	for i, f := range all {
		af := model.ArchivedFinding{
			ID:         uuid.NewString(),
			DocumentID: r.DocumentID,
			BatchID:    batchID,
			Seq:        i + 1,
			Severity:   string(f.Severity),
			Kind:       f.Kind,
			Message:    f.Message,
			Location:   f.Location.String(),
			Text:       f.Text,
		}
		if f.Duplicate != nil {
			af.Score = f.Duplicate.Score
		}
		out = append(out, af)
	}
	return out
}
