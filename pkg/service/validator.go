package service

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"record-verify/pkg/checker"
	"record-verify/pkg/model"
	"record-verify/pkg/source"
)

var (
	ErrDocumentNotFound = errors.New("文档不存在")
	ErrAlreadyRunning   = errors.New("文档正在校验中")
)

const defaultYieldEvery = 64

// Validator 逐单元格遍历文档并执行检查器
type Validator struct {
	source     source.Source
	suites     *SuiteFactory
	results    *ResultStore
	cancels    *CancelRegistry
	cleaner    *CellCleaner
	yieldEvery int
	priority   model.Priority
	now        func() time.Time
	wg         sync.WaitGroup
}

type ValidatorOption func(v *Validator)

// WithYieldEvery 每检查多少个单元格让出一次调度
func WithYieldEvery(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.yieldEvery = n
		}
	}
}

// WithPriority 单文档校验的默认优先级
func WithPriority(p model.Priority) ValidatorOption {
	return func(v *Validator) {
		if p != "" {
			v.priority = p
		}
	}
}

func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewValidator(src source.Source, suites *SuiteFactory, opts ...ValidatorOption) *Validator {
	v := &Validator{
		source:     src,
		suites:     suites,
		results:    NewResultStore(),
		cancels:    NewCancelRegistry(),
		cleaner:    NewCellCleaner(),
		yieldEvery: defaultYieldEvery,
		priority:   model.PriorityBalanced,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start 异步校验单个文档，立即返回
func (v *Validator) Start(ctx context.Context, documentID string) error {
	doc, err := v.source.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return errors.Wrapf(ErrDocumentNotFound, "id=%s", documentID)
		}
		return errors.Wrapf(err, "读取文档 %s 失败", documentID)
	}
	suite, err := v.suites.New()
	if err != nil {
		return err
	}
	if !v.results.PutIfIdle(model.NewDocumentResult(documentID, v.now())) {
		return errors.Wrapf(ErrAlreadyRunning, "id=%s", documentID)
	}

	// 请求结束不应中断后台校验
	runCtx, release := v.cancels.Register(context.WithoutCancel(ctx), documentID)
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer release()
		v.suites.Forget(documentID)
		v.run(runCtx, doc, suite, v.priority, nil)
	}()
	return nil
}

// Validate 同步校验文档，使用新组装的检查器套件
func (v *Validator) Validate(ctx context.Context, doc *model.Document) (*model.DocumentResult, error) {
	suite, err := v.suites.New()
	if err != nil {
		return nil, err
	}
	return v.validate(ctx, doc, suite, v.priority, nil)
}

// ValidateWith 同步校验文档，批量校验时多个文档共享同一个套件。
// 文档已在校验中时不打扰原校验，返回一个未登记的 failed 结果
func (v *Validator) ValidateWith(ctx context.Context, doc *model.Document, suite *checker.Suite, priority model.Priority) *model.DocumentResult {
	r, err := v.validate(ctx, doc, suite, priority, nil)
	if err != nil {
		return v.rejected(doc.ID, err)
	}
	return r
}

// reciprocalSink 接收目标结果已冻结的反向问题，返回 false 表示不接收
type reciprocalSink func(f model.Finding) bool

func (v *Validator) validate(ctx context.Context, doc *model.Document, suite *checker.Suite, priority model.Priority, sink reciprocalSink) (*model.DocumentResult, error) {
	if !v.results.PutIfIdle(model.NewDocumentResult(doc.ID, v.now())) {
		return nil, errors.Wrapf(ErrAlreadyRunning, "id=%s", doc.ID)
	}
	runCtx, release := v.cancels.Register(ctx, doc.ID)
	defer release()
	v.suites.Forget(doc.ID)
	v.run(runCtx, doc, suite, priority, sink)
	r, _ := v.results.Get(doc.ID)
	return r, nil
}

func (v *Validator) rejected(id string, err error) *model.DocumentResult {
	now := v.now()
	r := model.NewDocumentResult(id, now)
	r.Status = model.StatusFailed
	r.CompletedAt = &now
	r.Error = err.Error()
	r.Add(model.Finding{
		Kind:     model.KindSystem,
		Severity: model.SeverityError,
		Message:  "이미 다른 요청에서 검증 중인 문서입니다.",
		Location: model.CellLocation{DocumentID: id},
		Checker:  "validator",
	})
	return r
}

// GetResult 结果快照
func (v *Validator) GetResult(documentID string) (*model.DocumentResult, bool) {
	return v.results.Get(documentID)
}

// Cancel 取消校验；尚未开始的文档直接标记为 cancelled
func (v *Validator) Cancel(documentID string) bool {
	if v.cancels.Cancel(documentID) {
		return true
	}
	cancelled := false
	v.results.Update(documentID, func(r *model.DocumentResult) {
		if r.Status == model.StatusPending {
			now := v.now()
			r.Status = model.StatusCancelled
			r.CompletedAt = &now
			cancelled = true
		}
	})
	return cancelled
}

// MarkCancelled 把未派发的文档登记为 cancelled；文档正在别处校验时不覆盖其结果
func (v *Validator) MarkCancelled(documentID string) *model.DocumentResult {
	now := v.now()
	r := model.NewDocumentResult(documentID, now)
	r.Status = model.StatusCancelled
	r.CompletedAt = &now
	v.results.PutIfIdle(r)
	return r.Clone()
}

// Wait 等待所有 Start 启动的校验结束
func (v *Validator) Wait() {
	v.wg.Wait()
}

func (v *Validator) run(ctx context.Context, doc *model.Document, suite *checker.Suite, priority model.Priority, sink reciprocalSink) {
	id := doc.ID
	if !v.transition(id, model.StatusProcessing, func(r *model.DocumentResult) {
		now := v.now()
		r.StartedAt = &now
	}) {
		return
	}
	zap.S().Debugf("开始校验文档 %s", id)

	defer func() {
		if p := recover(); p != nil {
			zap.S().Errorf("文档 %s 校验异常: %v\n%s", id, p, debug.Stack())
			v.fail(id, fmt.Sprintf("%v", p))
		}
	}()

	if err := v.traverse(ctx, doc, suite, priority, sink); err != nil {
		if ctx.Err() != nil {
			v.transition(id, model.StatusCancelled, v.stamp)
			zap.S().Infof("文档 %s 已取消", id)
			return
		}
		zap.S().Errorf("文档 %s 校验失败: %v", id, err)
		v.fail(id, err.Error())
		return
	}
	v.transition(id, model.StatusCompleted, func(r *model.DocumentResult) {
		v.stamp(r)
		r.Progress = 100
	})
	zap.S().Debugf("文档 %s 校验完成", id)
}

func (v *Validator) stamp(r *model.DocumentResult) {
	now := v.now()
	r.CompletedAt = &now
}

func (v *Validator) fail(id, reason string) {
	v.transition(id, model.StatusFailed, func(r *model.DocumentResult) {
		v.stamp(r)
		r.Error = reason
		r.Add(model.Finding{
			Kind:     model.KindSystem,
			Severity: model.SeverityError,
			Message:  "검증 중 오류가 발생했습니다: " + reason,
			Location: model.CellLocation{DocumentID: id},
			Checker:  "validator",
		})
	})
}

// transition 校验状态迁移后修改结果，迁移不合法时返回 false
func (v *Validator) transition(id string, to model.Status, mutate func(r *model.DocumentResult)) bool {
	ok := false
	v.results.Update(id, func(r *model.DocumentResult) {
		if err := model.Transition(r.Status, to); err != nil {
			zap.S().Debugf("文档 %s: %v", id, err)
			return
		}
		r.Status = to
		if mutate != nil {
			mutate(r)
		}
		ok = true
	})
	return ok
}

func (v *Validator) traverse(ctx context.Context, doc *model.Document, suite *checker.Suite, priority model.Priority, sink reciprocalSink) error {
	checkers := suite.For(priority)
	total := doc.TotalCells()
	v.results.UpdateIfOpen(doc.ID, func(r *model.DocumentResult) { r.Totals.TotalCells = total })

	checked := 0
	for _, unit := range doc.Units() {
		sheet := unit.Sheet
		kind := sheet.SectionKind()
		pollEveryCell := kind.Tier() == model.RiskHigh || priority == model.PriorityAccuracy

		for r, row := range sheet.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			for c, raw := range row {
				if model.IsEmptyCell(raw) {
					continue
				}
				if pollEveryCell {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				cc := cellContext(doc.ID, unit, kind, r, c, priority)
				text := v.cleaner.Clean(raw)

				var found, reciprocal []model.Finding
				if text != "" {
					var err error
					if found, reciprocal, err = v.check(ctx, checkers, text, cc); err != nil {
						return err
					}
				}

				checked++
				progress := checked * 100 / total
				if progress > 99 {
					progress = 99
				}
				if !v.results.UpdateIfOpen(doc.ID, func(res *model.DocumentResult) {
					for _, f := range found {
						res.Add(f)
					}
					res.Totals.CheckedCells = checked
					res.Progress = progress
				}) {
					return errors.Errorf("文档 %s 的结果已被终止", doc.ID)
				}
				for _, rf := range reciprocal {
					v.deliver(rf, sink)
				}
				if checked%v.yieldEvery == 0 {
					runtime.Gosched()
				}
			}
		}
	}
	return nil
}

// deliver 反向问题先尝试直接追加；目标已冻结时交给批次收尾处理
func (v *Validator) deliver(f model.Finding, sink reciprocalSink) {
	target := f.Location.DocumentID
	if v.results.AppendIfOpen(target, f) {
		return
	}
	if sink != nil && sink(f) {
		return
	}
	zap.S().Debugf("文档 %s 的结果已冻结，跳过反向重复提示", target)
}

// check 依次执行适用的检查器；取消后返回的结果丢弃
func (v *Validator) check(ctx context.Context, checkers []checker.Checker, text string, cc model.CellContext) ([]model.Finding, []model.Finding, error) {
	var found, reciprocal []model.Finding
	for _, c := range checkers {
		if !checker.Applies(c, cc) {
			continue
		}
		fs := safeCheck(ctx, c, text, cc)
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for _, f := range fs {
			if f.Location.IsZero() {
				f.Location = cc.Location
			}
			if f.Text == "" {
				f.Text = text
			}
			f.Checker = c.Name()
			found = append(found, f)
			if f.Duplicate != nil && f.Duplicate.Mutual {
				reciprocal = append(reciprocal, reciprocalOf(f, cc, text))
			}
		}
	}
	return found, reciprocal, nil
}

func safeCheck(ctx context.Context, c checker.Checker, text string, cc model.CellContext) (findings []model.Finding) {
	defer func() {
		if p := recover(); p != nil {
			zap.S().Errorf("检查器 %s 在 %s 异常: %v", c.Name(), cc.Location, p)
			findings = nil
		}
	}()
	fs, err := c.Check(ctx, text, cc)
	if err != nil {
		zap.S().Warnf("检查器 %s 在 %s 失败: %v", c.Name(), cc.Location, err)
		return nil
	}
	return fs
}

// reciprocalOf 在被匹配的位置补一条指向当前单元格的问题
func reciprocalOf(f model.Finding, cc model.CellContext, text string) model.Finding {
	ref := f.Duplicate
	who := cc.Location.OwnerName
	if who == "" {
		who = cc.Location.OwnerID
	}
	return model.Finding{
		Kind:       f.Kind,
		Severity:   f.Severity,
		Message:    fmt.Sprintf("다른 학생(%s)의 %s 내용과 %.0f%% 유사합니다.", who, cc.Location.Section, ref.Score*100),
		Text:       ref.Text,
		Suggestion: f.Suggestion,
		Confidence: f.Confidence,
		Location:   ref.Location,
		Checker:    f.Checker,
		Duplicate: &model.DuplicateRef{
			Location:  cc.Location,
			OwnerID:   cc.Location.OwnerID,
			OwnerName: cc.Location.OwnerName,
			Section:   cc.Location.Section,
			Score:     ref.Score,
			Fragment:  ref.Fragment,
			Text:      text,
		},
	}
}

func cellContext(docID string, unit model.Unit, kind model.SectionKind, r, c int, priority model.Priority) model.CellContext {
	sheet := unit.Sheet
	row := sheet.Rows[r]
	cc := model.CellContext{
		Location: model.CellLocation{
			DocumentID: docID,
			Sheet:      sheet.Name,
			Section:    sheet.SectionName(),
			Row:        r + 1,
			Column:     c + 1,
			Address:    model.CellAddress(r, c),
			OwnerID:    unit.OwnerID,
			OwnerName:  unit.OwnerName,
		},
		Kind:     kind,
		IsHeader: r < sheet.HeaderRows,
		Priority: priority,
	}
	if c > 0 {
		cc.Adjacent.Left = row[c-1]
	}
	if c+1 < len(row) {
		cc.Adjacent.Right = row[c+1]
	}
	if r > 0 && c < len(sheet.Rows[r-1]) {
		cc.Adjacent.Above = sheet.Rows[r-1][c]
	}
	if h := sheet.HeaderRows - 1; h >= 0 && r > h && h < len(sheet.Rows) && c < len(sheet.Rows[h]) {
		cc.Adjacent.Header = sheet.Rows[h][c]
	}
	return cc
}
