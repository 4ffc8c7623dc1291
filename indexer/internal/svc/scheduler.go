package svc

import (
	"context"
	"time"

	"bt-search/common/util"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

// Scheduler runs an unlimited sync every interval. A run that indexed anything is
// followed immediately by another one to pick up rows inserted meanwhile.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	indexer     *Indexer
	interval    time.Duration
	syncOnStart bool
	ticker      *time.Ticker
	hasTrigger  chan struct{}
}

func NewScheduler(ctx context.Context, indexer *Indexer, interval time.Duration, syncOnStart bool) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	ret := &Scheduler{
		indexer:     indexer,
		interval:    interval,
		syncOnStart: syncOnStart,
		ticker:      time.NewTicker(interval),
		hasTrigger:  make(chan struct{}, 1),
	}
	ret.ctx, ret.cancel = context.WithCancel(ctx)
	return ret
}

func (s *Scheduler) trigger() {
	util.Signal(s.hasTrigger, struct{}{})
}

func (s *Scheduler) Start() {
	if s.syncOnStart {
		s.trigger()
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.hasTrigger:
			if s.runOnce() {
				s.ticker.Reset(s.interval)
				s.trigger()
			}
		case <-s.ticker.C:
			s.trigger()
		}
	}
}

// runOnce reports whether the run made progress.
func (s *Scheduler) runOnce() bool {
	report, err := s.indexer.Run(s.ctx, Unlimited)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		logx.Infof("Scheduled sync skipped, another sync is running")
		return false
	case err != nil:
		if s.ctx.Err() == nil {
			logx.Errorf("Scheduled sync failed: %+v", err)
		}
		return false
	}
	return report.Processed > 0
}

func (s *Scheduler) Stop() {
	s.ticker.Stop()
	s.cancel()
}
