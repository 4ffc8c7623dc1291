package svc

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

type Stats struct {
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  *time.Ticker
	indexer *Indexer
	index   Index
}

func NewStats(ctx context.Context, indexer *Indexer, index Index, interval time.Duration) *Stats {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ret := &Stats{
		ticker:  time.NewTicker(interval),
		indexer: indexer,
		index:   index,
	}
	ret.ctx, ret.cancel = context.WithCancel(ctx)
	return ret
}

func (s *Stats) Start() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.ticker.C:
			s.stats()
		}
	}
}

func (s *Stats) stats() {
	cnt, err := s.index.Count(s.ctx)
	if err != nil {
		logx.Errorf("Failed to count torrents in index: %+v", err)
	} else {
		metricGauge.Set(float64(cnt), "torrent_total")
	}
	if s.indexer.IsRunning() {
		logx.Infof("Sync %s, processed %d rows, %d documents in index", s.indexer.State(), s.indexer.Progress(), cnt)
	}
}

func (s *Stats) Stop() {
	s.ticker.Stop()
	s.cancel()
}
