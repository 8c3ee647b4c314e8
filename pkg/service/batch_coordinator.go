package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"record-verify/pkg/checker"
	"record-verify/pkg/model"
	"record-verify/pkg/source"
)

var (
	ErrEmptyBatch    = errors.New("没有可校验的文档")
	ErrBatchNotFound = errors.New("批次不存在")
)

// BatchDoneFunc 批次结束后的回调，参数为最终快照
type BatchDoneFunc func(ctx context.Context, result *model.BatchResult)

type batchState struct {
	result   *model.BatchResult
	cancel   context.CancelFunc
	settled  int
	elapsed  time.Duration
	members  map[string]struct{}
	owned    map[string]bool            // 由本批次实际校验的成员
	deferred map[string][]model.Finding // 成员已冻结时暂存的反向问题
}

// BatchCoordinator 按块并发校验多个文档：块之间串行，块内文档并发
type BatchCoordinator struct {
	validator          *Validator
	suites             *SuiteFactory
	defaultConcurrency int
	onDone             []BatchDoneFunc
	now                func() time.Time

	mu      sync.RWMutex
	batches map[string]*batchState
	wg      sync.WaitGroup
}

func NewBatchCoordinator(v *Validator, suites *SuiteFactory, defaultConcurrency int, onDone ...BatchDoneFunc) *BatchCoordinator {
	return &BatchCoordinator{
		validator:          v,
		suites:             suites,
		defaultConcurrency: defaultConcurrency,
		onDone:             onDone,
		now:                v.now,
		batches:            make(map[string]*batchState),
	}
}

// StartBatch 选出目标文档并在后台开始校验，返回批次 ID
func (b *BatchCoordinator) StartBatch(ctx context.Context, docs []*model.Document, opts model.BatchOptions) (string, error) {
	opts = opts.Normalize(b.defaultConcurrency)
	targets := source.Select(docs, opts)
	if len(targets) == 0 {
		return "", ErrEmptyBatch
	}
	suite, err := b.suites.New()
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(targets))
	for _, d := range targets {
		ids = append(ids, d.ID)
	}
	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	state := &batchState{
		result: &model.BatchResult{
			ID:          id,
			DocumentIDs: ids,
			Results:     make(map[string]*model.DocumentResult, len(ids)),
			Status:      model.StatusPending,
			TotalFiles:  len(ids),
			Options:     opts,
			CreatedAt:   b.now(),
		},
		cancel:   cancel,
		members:  make(map[string]struct{}, len(ids)),
		owned:    make(map[string]bool, len(ids)),
		deferred: make(map[string][]model.Finding),
	}
	for _, docID := range ids {
		state.members[docID] = struct{}{}
	}
	b.mu.Lock()
	b.batches[id] = state
	b.mu.Unlock()

	zap.S().Infof("批次 %s 开始: %d 个文档, 并发 %d, 优先级 %s", id, len(ids), opts.MaxConcurrency, opts.Priority)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		b.run(runCtx, state, targets, suite)
	}()
	return id, nil
}

func (b *BatchCoordinator) run(ctx context.Context, state *batchState, targets []*model.Document, suite *checker.Suite) {
	b.update(state, func(r *model.BatchResult) {
		if model.Transition(r.Status, model.StatusProcessing) == nil {
			now := b.now()
			r.Status = model.StatusProcessing
			r.StartedAt = &now
		}
	})

	size := state.result.Options.MaxConcurrency
	priority := state.result.Options.Priority
	dispatched := 0
	for start := 0; start < len(targets); start += size {
		if ctx.Err() != nil {
			break
		}
		end := min(start+size, len(targets))
		var g errgroup.Group
		for _, doc := range targets[start:end] {
			g.Go(func() error {
				began := b.now()
				// 开始前暂存的反向问题来自该文档的旧结果
				b.update(state, func(*model.BatchResult) { delete(state.deferred, doc.ID) })
				res, err := b.validator.validate(ctx, doc, suite, priority, b.sinkFor(state))
				if err != nil {
					zap.S().Warnf("批次 %s: %v", state.result.ID, err)
					res = b.validator.rejected(doc.ID, err)
				} else {
					b.update(state, func(*model.BatchResult) { state.owned[doc.ID] = true })
				}
				b.settle(state, res, b.now().Sub(began))
				return nil
			})
		}
		// 单个文档失败不影响批次
		_ = g.Wait()
		dispatched = end
	}

	b.applyDeferred(state)

	for _, doc := range targets[dispatched:] {
		res := b.validator.MarkCancelled(doc.ID)
		b.update(state, func(r *model.BatchResult) {
			r.Results[doc.ID] = res
			r.CancelledFiles++
		})
	}

	var final *model.BatchResult
	b.update(state, func(r *model.BatchResult) {
		if model.Transition(r.Status, model.StatusCompleted) == nil {
			now := b.now()
			r.Status = model.StatusCompleted
			r.CompletedAt = &now
			r.Progress = 100
			r.EstimatedCompletion = &now
		}
		final = r.Clone()
	})
	zap.S().Infof("批次 %s 结束: 状态 %s, 完成 %d, 失败 %d, 取消 %d, 错误 %d, 警告 %d, 提示 %d",
		final.ID, final.Status, final.CompletedFiles, final.FailedFiles, final.CancelledFiles,
		final.TotalErrors, final.TotalWarnings, final.TotalInfos)
	// 批次被取消时回调仍需可用的 ctx
	doneCtx := context.WithoutCancel(ctx)
	for _, fn := range b.onDone {
		fn(doneCtx, final)
	}
}

// sinkFor 接收指向本批次已结束成员的反向问题，批次收尾时统一补充
func (b *BatchCoordinator) sinkFor(state *batchState) reciprocalSink {
	return func(f model.Finding) bool {
		target := f.Location.DocumentID
		if _, ok := state.members[target]; !ok {
			return false
		}
		b.update(state, func(*model.BatchResult) {
			state.deferred[target] = append(state.deferred[target], f)
		})
		return true
	}
}

// applyDeferred 在批次进入终态前把暂存的反向问题补到成员结果上
func (b *BatchCoordinator) applyDeferred(state *batchState) {
	b.mu.Lock()
	pending := state.deferred
	state.deferred = make(map[string][]model.Finding)
	owned := state.owned
	b.mu.Unlock()

	for docID, fs := range pending {
		if !owned[docID] {
			continue
		}
		amended, ok := b.validator.results.Amend(docID, fs)
		if !ok {
			continue
		}
		b.update(state, func(r *model.BatchResult) {
			r.Results[docID] = amended
			for _, f := range fs {
				switch f.Severity {
				case model.SeverityError:
					r.TotalErrors++
				case model.SeverityWarning:
					r.TotalWarnings++
				default:
					r.TotalInfos++
				}
			}
		})
	}
}

// settle 记录一个已结束的文档并刷新进度与预计完成时间
func (b *BatchCoordinator) settle(state *batchState, res *model.DocumentResult, took time.Duration) {
	b.update(state, func(r *model.BatchResult) {
		r.Results[res.DocumentID] = res
		switch res.Status {
		case model.StatusCompleted:
			r.CompletedFiles++
		case model.StatusCancelled:
			r.CancelledFiles++
		default:
			r.FailedFiles++
		}
		r.TotalErrors += res.Totals.Errors
		r.TotalWarnings += res.Totals.Warnings
		r.TotalInfos += res.Totals.Infos

		state.settled++
		state.elapsed += took
		if p := state.settled * 100 / r.TotalFiles; p > r.Progress {
			r.Progress = p
		}
		avg := state.elapsed / time.Duration(state.settled)
		eta := b.now().Add(avg * time.Duration(r.TotalFiles-state.settled))
		r.EstimatedCompletion = &eta
	})
}

func (b *BatchCoordinator) update(state *batchState, fn func(r *model.BatchResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(state.result)
}

// GetBatchResult 批次快照
func (b *BatchCoordinator) GetBatchResult(id string) (*model.BatchResult, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	state, ok := b.batches[id]
	if !ok {
		return nil, false
	}
	return state.result.Clone(), true
}

// CancelBatch 取消批次：已派发的文档通过 ctx 感知取消，后续块不再开始
func (b *BatchCoordinator) CancelBatch(id string) bool {
	b.mu.Lock()
	state, ok := b.batches[id]
	if !ok || state.result.Status.IsTerminal() {
		b.mu.Unlock()
		return false
	}
	now := b.now()
	state.result.Status = model.StatusCancelled
	state.result.CompletedAt = &now
	b.mu.Unlock()

	state.cancel()
	zap.S().Infof("批次 %s 已取消", id)
	return true
}

// Wait 等待所有批次结束
func (b *BatchCoordinator) Wait() {
	b.wg.Wait()
}
