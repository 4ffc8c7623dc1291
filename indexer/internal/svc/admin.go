package svc

import (
	"context"
	"strings"
	"sync/atomic"

	"bt-search/common/executor"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	Limit10k  = 10000
	Limit100k = 100000
)

var ErrUnknownSyncMode = errors.New("unknown sync mode")

// ParseSyncMode maps "10k", "100k" and "full" (or empty) to a row limit for Indexer.Run.
func ParseSyncMode(mode string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "10k":
		return Limit10k, nil
	case "100k":
		return Limit100k, nil
	case "", "full":
		return Unlimited, nil
	default:
		return 0, errors.Annotatef(ErrUnknownSyncMode, "%q", mode)
	}
}

// Admin queues manually requested runs on a single worker. From the moment a request
// is accepted until its run returns, further requests are dropped, as are requests
// made while a scheduled run is active.
type Admin struct {
	ctx    context.Context
	cancel context.CancelFunc

	indexer    *Indexer
	index      Index
	executor   *executor.Executor[int]
	pending    atomic.Bool
	lastReport atomic.Pointer[Report]
}

func NewAdmin(ctx context.Context, indexer *Indexer, index Index) *Admin {
	ret := &Admin{
		indexer: indexer,
		index:   index,
	}
	ret.ctx, ret.cancel = context.WithCancel(ctx)
	ret.executor = executor.NewExecutor[int](ret.ctx, 1, 1, ret.run)
	return ret
}

func (a *Admin) Start() {
	a.executor.Start()
}

func (a *Admin) Stop() {
	a.executor.Stop()
	a.cancel()
}

func (a *Admin) run(limit int) {
	defer a.pending.Store(false)
	report, err := a.indexer.Run(a.ctx, limit)
	if errors.Is(err, ErrSyncInProgress) {
		logx.Infof("Sync already in progress, dropped request with limit %d", limit)
		return
	}
	if err != nil {
		logx.Errorf("Triggered sync failed: %+v", err)
	}
	if report != nil {
		a.lastReport.Store(report)
	}
}

// Trigger requests a run of at most limit rows and reports whether it was accepted.
func (a *Admin) Trigger(limit int) bool {
	if a.indexer.IsRunning() {
		logx.Infof("Sync already in progress, ignored request with limit %d", limit)
		return false
	}
	if !a.pending.CompareAndSwap(false, true) {
		logx.Infof("Sync already queued, ignored request with limit %d", limit)
		return false
	}
	if !a.executor.TryCommit(limit) {
		a.pending.Store(false)
		logx.Infof("Sync queue full, ignored request with limit %d", limit)
		return false
	}
	metricCounter.Inc("sync_triggered")
	return true
}

func (a *Admin) Sync10k() bool {
	return a.Trigger(Limit10k)
}

func (a *Admin) Sync100k() bool {
	return a.Trigger(Limit100k)
}

func (a *Admin) FullSync() bool {
	return a.Trigger(Unlimited)
}

func (a *Admin) Progress() int64 {
	return a.indexer.Progress()
}

func (a *Admin) IsRunning() bool {
	return a.indexer.IsRunning()
}

// LastReport returns the report of the last run started through Admin, nil if none.
func (a *Admin) LastReport() *Report {
	return a.lastReport.Load()
}

func (a *Admin) DocumentCount(ctx context.Context) (int64, error) {
	cnt, err := a.index.Count(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return cnt, nil
}
