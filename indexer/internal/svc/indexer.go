package svc

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"bt-search/common/bittorrent"
	"bt-search/common/language"
	"bt-search/common/model"
	"bt-search/indexer/internal/storage"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/metric"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	metricNamespace = "bt_search"
	metricSubsystem = "indexer"

	// Unlimited runs until the source is exhausted.
	Unlimited    = -1
	infoHashSize = 20
)

var (
	metricCounter = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricNamespace,
		Subsystem: metricSubsystem,
		Name:      "counter",
		Labels:    []string{"type"},
	})
	metricGauge = metric.NewGaugeVec(&metric.GaugeVecOpts{
		Namespace: metricNamespace,
		Subsystem: metricSubsystem,
		Name:      "gauge",
		Labels:    []string{"type"},
	})
	metricHistogram = metric.NewHistogramVec(&metric.HistogramVecOpts{
		Namespace: metricNamespace,
		Subsystem: metricSubsystem,
		Name:      "histogram",
		Labels:    []string{"type"},
	})

	tracer = otel.Tracer("bt-search-indexer")
)

var (
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrCorruptCursor     = errors.New("corrupt sync cursor")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrIndexUnavailable  = errors.New("index unavailable")
	ErrRetriesExhausted  = errors.New("page retries exhausted")
	ErrInvalidInfoHash   = errors.New("invalid infohash")
	ErrEmptyDescriptor   = errors.New("empty descriptor")
)

type Source interface {
	MaxPrimaryKey(ctx context.Context) (int64, error)
	PageAfter(ctx context.Context, cursorID int64, pageSize int) ([]*storage.InfoDict, error)
}

type CursorStore interface {
	// ReadCursor returns nil when no cursor was ever written.
	ReadCursor(ctx context.Context) (*storage.Cursor, error)
	UpsertCursor(ctx context.Context, id int64) error
}

type Index interface {
	// BulkUpsert returns how many documents were rejected individually.
	BulkUpsert(ctx context.Context, docs []*model.Document) (int, error)
	Count(ctx context.Context) (int64, error)
}

type State int32

const (
	StateIdle State = iota
	StatePaginating
	StateFlushing
	StateCheckpointing
	StateBackoff
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaginating:
		return "paginating"
	case StateFlushing:
		return "flushing"
	case StateCheckpointing:
		return "checkpointing"
	case StateBackoff:
		return "backoff"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Options struct {
	QuerySize     int
	BulkSize      int
	BulkBytes     int
	PageInterval  time.Duration
	RetryInterval time.Duration
	// MaxPageRetries bounds consecutive retries of one page, 0 retries forever.
	MaxPageRetries int
}

func (o *Options) fill() {
	if o.QuerySize <= 0 {
		o.QuerySize = 1000
	}
	if o.BulkSize <= 0 {
		o.BulkSize = 500
	}
	if o.BulkBytes <= 0 {
		o.BulkBytes = 50 * 1024 * 1024
	}
}

// Report summarizes one sync run.
type Report struct {
	From      int64
	To        int64
	LastID    int64
	Processed int
	Indexed   int
	Errors    int
	Pages     int
	Retries   int
	// Anomaly is set when the source returned an empty page below the max id.
	Anomaly  bool
	Duration time.Duration
}

// segment counts rows between two checkpoints. It is merged into the report only
// once the checkpoint is durable, so a retried page is not counted twice.
type segment struct {
	processed int
	indexed   int
	errors    int
}

type pageResult struct {
	checkpoint int64
	empty      bool
}

// Indexer copies info_dict rows into the search index, resuming from a persisted
// cursor. At most one run is active at a time.
type Indexer struct {
	source     Source
	cursors    CursorStore
	index      Index
	classifier *language.Classifier
	opts       Options

	running  atomic.Bool
	state    atomic.Int32
	progress atomic.Int64
}

func NewIndexer(source Source, cursors CursorStore, index Index, classifier *language.Classifier, opts Options) *Indexer {
	opts.fill()
	return &Indexer{
		source:     source,
		cursors:    cursors,
		index:      index,
		classifier: classifier,
		opts:       opts,
	}
}

func (i *Indexer) State() State {
	return State(i.state.Load())
}

func (i *Indexer) setState(s State) {
	i.state.Store(int32(s))
}

func (i *Indexer) IsRunning() bool {
	return i.running.Load()
}

// Progress is the number of rows processed and checkpointed by the current or last run.
func (i *Indexer) Progress() int64 {
	return i.progress.Load()
}

// Run syncs up to limit rows, or everything when limit is not positive. Cancelling
// ctx stops the run at the next page boundary; the cursor is checkpointed either way.
func (i *Indexer) Run(ctx context.Context, limit int) (*Report, error) {
	if !i.running.CompareAndSwap(false, true) {
		return nil, errors.Trace(ErrSyncInProgress)
	}
	defer i.running.Store(false)
	if limit <= 0 {
		limit = Unlimited
	}
	i.progress.Store(0)
	i.setState(StateIdle)
	defer i.setState(StateDone)

	startAt := time.Now()
	report := &Report{}
	err := i.run(ctx, limit, report)
	report.Duration = time.Since(startAt)
	metricHistogram.Observe(report.Duration.Milliseconds(), "run_cost")
	if err != nil {
		metricCounter.Inc("run_failed")
		return report, err
	}
	logx.Infof("Sync finished: from=%d last_id=%d processed=%d indexed=%d errors=%d pages=%d retries=%d cost=%s",
		report.From, report.LastID, report.Processed, report.Indexed, report.Errors, report.Pages, report.Retries, report.Duration)
	return report, nil
}

func (i *Indexer) run(ctx context.Context, limit int, report *Report) error {
	cursor, err := i.cursors.ReadCursor(ctx)
	if err != nil {
		return errors.Annotatef(err, "read cursor")
	}
	var from int64
	if cursor != nil {
		if cursor.MaxSyncedID < 0 {
			return errors.Annotatef(ErrCorruptCursor, "max_synced_id %d", cursor.MaxSyncedID)
		}
		from = cursor.MaxSyncedID
	} else {
		logx.Infof("Sync cursor not found, starting from 0")
	}
	lastID, err := i.source.MaxPrimaryKey(ctx)
	if err != nil {
		return unavailable(ErrSourceUnavailable, err)
	}
	report.From, report.To, report.LastID = from, lastID, from
	if from >= lastID {
		logx.Infof("Already up to date, max_synced_id=%d, last_id=%d", from, lastID)
		return nil
	}
	logx.Infof("Syncing from id %d to %d, limit %d", from+1, lastID, limit)

	// One page fetch per PageInterval, retries included.
	limiter := rate.NewLimiter(rate.Every(i.opts.PageInterval), 1)
	current := from
	retries := 0
	var runErr error
	for current < lastID && ctx.Err() == nil {
		pageSize := i.opts.QuerySize
		if limit > 0 {
			remaining := limit - report.Processed
			if remaining <= 0 {
				break
			}
			if remaining < pageSize {
				pageSize = remaining
			}
		}
		if !waitLimiter(ctx, limiter) {
			break
		}
		res, err := i.syncPage(ctx, current, pageSize, report)
		current = res.checkpoint
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			retries++
			report.Retries++
			metricCounter.Inc("page_retry")
			logx.Errorf("Error during sync at id=%d: %+v", current, err)
			if i.opts.MaxPageRetries > 0 && retries > i.opts.MaxPageRetries {
				runErr = errors.Annotatef(ErrRetriesExhausted, "at id %d: %v", current, err)
				break
			}
			i.setState(StateBackoff)
			if !sleepCtx(ctx, i.opts.RetryInterval) {
				break
			}
			continue
		}
		retries = 0
		if res.empty {
			report.Anomaly = true
			metricCounter.Inc("empty_page")
			logx.Errorf("No records found for id > %d below last id %d, stopping", current, lastID)
			break
		}
		report.Pages++
		if current >= lastID || (limit > 0 && report.Processed >= limit) {
			break
		}
	}

	i.setState(StateCheckpointing)
	err = i.cursors.UpsertCursor(context.WithoutCancel(ctx), current)
	if err != nil {
		logx.Errorf("Failed to write final cursor %d: %+v", current, err)
		if runErr == nil {
			runErr = errors.Annotatef(err, "final checkpoint %d", current)
		}
	}
	report.LastID = current
	if runErr != nil {
		return runErr
	}
	return ctx.Err()
}

// syncPage processes one page. Once rows are fetched the page is completed even if ctx
// is cancelled. The returned checkpoint is the last durable cursor, which on error may
// lie inside the page.
func (i *Indexer) syncPage(ctx context.Context, after int64, pageSize int, report *Report) (pageResult, error) {
	ctx, span := tracer.Start(ctx, "sync_page", trace.WithAttributes(
		attribute.Int64("after", after),
		attribute.Int("page_size", pageSize),
	))
	defer span.End()

	res := pageResult{checkpoint: after}
	i.setState(StatePaginating)
	fetchStart := time.Now()
	rows, err := i.source.PageAfter(ctx, after, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		return res, unavailable(ErrSourceUnavailable, err)
	}
	metricHistogram.Observe(time.Since(fetchStart).Milliseconds(), "fetch_cost")
	if len(rows) == 0 {
		res.empty = true
		return res, nil
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))

	ctx = context.WithoutCancel(ctx)
	seg := segment{}
	docs := make([]*model.Document, 0, i.opts.BulkSize)
	batchBytes := 0
	maxID := after
	for _, row := range rows {
		if row.ID > maxID {
			maxID = row.ID
		}
		seg.processed++
		doc, err := i.buildDocument(row)
		if err != nil {
			seg.errors++
			metricCounter.Inc("row_error")
			logx.Errorf("Failed to process record id=%d: %v", row.ID, err)
			continue
		}
		docs = append(docs, doc)
		batchBytes += doc.EstimatedSize()
		if len(docs) >= i.opts.BulkSize || batchBytes >= i.opts.BulkBytes {
			err = i.commit(ctx, docs, maxID, &seg, report)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "commit")
				return res, err
			}
			res.checkpoint = maxID
			docs = make([]*model.Document, 0, i.opts.BulkSize)
			batchBytes = 0
		}
	}
	err = i.commit(ctx, docs, maxID, &seg, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit")
		return res, err
	}
	res.checkpoint = maxID
	return res, nil
}

// commit flushes docs and then checkpoints maxID. The segment counters are merged into
// the report only after the checkpoint succeeded.
func (i *Indexer) commit(ctx context.Context, docs []*model.Document, maxID int64, seg *segment, report *Report) error {
	if len(docs) > 0 {
		i.setState(StateFlushing)
		flushStart := time.Now()
		rejected, err := i.index.BulkUpsert(ctx, docs)
		if err != nil {
			return unavailable(ErrIndexUnavailable, err)
		}
		metricHistogram.Observe(time.Since(flushStart).Milliseconds(), "flush_cost")
		seg.indexed += len(docs) - rejected
		seg.errors += rejected
		if rejected > 0 {
			metricCounter.Add(float64(rejected), "rejected")
		}
	}

	i.setState(StateCheckpointing)
	err := i.cursors.UpsertCursor(ctx, maxID)
	if err != nil {
		return errors.Annotatef(err, "checkpoint %d", maxID)
	}
	metricGauge.Set(float64(maxID), "cursor")
	metricCounter.Add(float64(seg.indexed), "torrent_indexed")

	report.Processed += seg.processed
	report.Indexed += seg.indexed
	report.Errors += seg.errors
	report.LastID = maxID
	i.progress.Add(int64(seg.processed))
	*seg = segment{}
	return nil
}

func (i *Indexer) buildDocument(row *storage.InfoDict) (*model.Document, error) {
	if len(row.InfoHash) != infoHashSize {
		return nil, errors.Annotatef(ErrInvalidInfoHash, "length %d", len(row.InfoHash))
	}
	if len(row.Dictionary) == 0 {
		return nil, errors.Trace(ErrEmptyDescriptor)
	}
	d, err := bittorrent.ParseDescriptor(row.Dictionary)
	if err != nil {
		return nil, err
	}
	langs := i.classifier.Classify(d.Name)
	return model.NewDocument(d, hex.EncodeToString(row.InfoHash), langs, model.Extra{
		Seeders:  row.Seeders,
		Leechers: row.Leechers,
		Peers:    row.Peers,
		FindTime: row.FindTime,
		Lang:     row.Lang,
	}), nil
}

// unavailable tags err with a page-scoped failure kind while keeping err reachable through errors.Is.
func unavailable(kind error, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}

// waitLimiter blocks until limiter grants a token and reports false if ctx was
// cancelled first. Unlike rate.Limiter.Wait it keeps waiting up to a ctx deadline.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) bool {
	r := limiter.Reserve()
	if sleepCtx(ctx, r.Delay()) {
		return true
	}
	r.Cancel()
	return false
}

// sleepCtx waits for d and reports false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
