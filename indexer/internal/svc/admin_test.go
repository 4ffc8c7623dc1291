package svc

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSyncMode(t *testing.T) {
	cases := map[string]int{
		"10k":    Limit10k,
		"100K":   Limit100k,
		"full":   Unlimited,
		"":       Unlimited,
		" full ": Unlimited,
	}
	for mode, want := range cases {
		got, err := ParseSyncMode(mode)
		require.NoError(t, err, mode)
		assert.Equal(t, want, got, mode)
	}
	_, err := ParseSyncMode("1m")
	assert.True(t, errors.Is(err, ErrUnknownSyncMode))
}

func TestAdmin_Trigger(t *testing.T) {
	release := make(chan struct{})
	source := newFakeSource(makeRows(30))
	source.onPage = func(call int) {
		<-release
	}
	cursors := &fakeCursorStore{}
	index := newFakeIndex()
	opts := testOptions()
	opts.QuerySize = 10
	indexer := NewIndexer(source, cursors, index, nil, opts)
	admin := NewAdmin(context.Background(), indexer, index)
	admin.Start()
	defer admin.Stop()

	assert.True(t, admin.Sync10k())
	require.Eventually(t, admin.IsRunning, time.Second, time.Millisecond)
	assert.False(t, admin.FullSync())
	assert.False(t, admin.Sync100k())

	close(release)
	require.Eventually(t, func() bool {
		return admin.LastReport() != nil && !admin.IsRunning()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 30, admin.LastReport().Processed)
	assert.Equal(t, int64(30), admin.Progress())

	cnt, err := admin.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(30), cnt)
}

func TestAdmin_TriggerAcceptsOneUntilRunReturns(t *testing.T) {
	release := make(chan struct{})
	source := newFakeSource(makeRows(30))
	source.onPage = func(call int) {
		if call == 1 {
			<-release
		}
	}
	index := newFakeIndex()
	opts := testOptions()
	opts.QuerySize = 10
	indexer := NewIndexer(source, &fakeCursorStore{}, index, nil, opts)
	admin := NewAdmin(context.Background(), indexer, index)
	admin.Start()
	defer admin.Stop()

	accepted := 0
	for n := 0; n < 1000; n++ {
		if admin.FullSync() {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)

	close(release)
	require.Eventually(t, admin.FullSync, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		report := admin.LastReport()
		return report != nil && report.Processed == 0 && !admin.IsRunning()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 30, index.size())
}

func TestAdmin_TriggerLimit(t *testing.T) {
	source := newFakeSource(makeRows(30))
	index := newFakeIndex()
	opts := testOptions()
	opts.QuerySize = 10
	indexer := NewIndexer(source, &fakeCursorStore{}, index, nil, opts)
	admin := NewAdmin(context.Background(), indexer, index)
	admin.Start()
	defer admin.Stop()

	require.True(t, admin.Trigger(15))
	require.Eventually(t, func() bool {
		return admin.LastReport() != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, 15, admin.LastReport().Processed)
	assert.Equal(t, 15, index.size())
}

func TestTrigger_handle(t *testing.T) {
	source := newFakeSource(makeRows(3))
	index := newFakeIndex()
	indexer := NewIndexer(source, &fakeCursorStore{}, index, nil, testOptions())
	admin := NewAdmin(context.Background(), indexer, index)
	admin.Start()
	defer admin.Stop()
	trigger := &Trigger{ctx: context.Background(), admin: admin}

	assert.NoError(t, trigger.handle("bogus"))
	assert.Nil(t, admin.LastReport())

	assert.NoError(t, trigger.handle("full"))
	require.Eventually(t, func() bool {
		return admin.LastReport() != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, index.size())
}

func TestScheduler_runOnce(t *testing.T) {
	source := newFakeSource(makeRows(5))
	cursors := &fakeCursorStore{}
	index := newFakeIndex()
	indexer := NewIndexer(source, cursors, index, nil, testOptions())
	scheduler := NewScheduler(context.Background(), indexer, time.Hour, false)
	defer scheduler.Stop()

	assert.True(t, scheduler.runOnce())
	assert.False(t, scheduler.runOnce())
	assert.Equal(t, int64(5), cursors.value())
}

func TestScheduler_Start(t *testing.T) {
	source := newFakeSource(makeRows(5))
	cursors := &fakeCursorStore{}
	indexer := NewIndexer(source, cursors, newFakeIndex(), nil, testOptions())
	scheduler := NewScheduler(context.Background(), indexer, time.Hour, true)
	go scheduler.Start()
	defer scheduler.Stop()

	require.Eventually(t, func() bool {
		return cursors.value() == 5
	}, time.Second, time.Millisecond)
}

func TestStats(t *testing.T) {
	index := newFakeIndex()
	indexer := NewIndexer(newFakeSource(makeRows(2)), &fakeCursorStore{}, index, nil, testOptions())
	_, err := indexer.Run(context.Background(), Unlimited)
	require.NoError(t, err)
	stats := NewStats(context.Background(), indexer, index, time.Hour)
	defer stats.Stop()
	stats.stats()
	cnt, err := index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), cnt)
}
