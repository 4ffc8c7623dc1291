package svc

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"bt-search/common/model"
	"bt-search/indexer/internal/storage"

	"github.com/juju/errors"
)

var (
	errSourceDown = errors.New("mysql is down")
	errIndexDown  = errors.New("es is down")
)

func makeRow(id int64) *storage.InfoDict {
	hash := make([]byte, infoHashSize)
	binary.BigEndian.PutUint64(hash[12:], uint64(id))
	name := fmt.Sprintf("torrent-%d", id)
	return &storage.InfoDict{
		ID:         id,
		InfoHash:   hash,
		Dictionary: []byte(fmt.Sprintf("d4:infod6:lengthi%de4:name%d:%see", id*100, len(name), name)),
		Seeders:    int(id % 7),
	}
}

func makeRows(n int) []*storage.InfoDict {
	ret := make([]*storage.InfoDict, 0, n)
	for id := int64(1); id <= int64(n); id++ {
		ret = append(ret, makeRow(id))
	}
	return ret
}

type fakeSource struct {
	mu        sync.Mutex
	rows      []*storage.InfoDict
	maxID     int64
	failures  int
	pageCalls int
	// onPage runs before every page is served, outside the lock.
	onPage func(call int)
}

func newFakeSource(rows []*storage.InfoDict) *fakeSource {
	ret := &fakeSource{rows: rows}
	if len(rows) > 0 {
		ret.maxID = rows[len(rows)-1].ID
	}
	return ret
}

func (s *fakeSource) MaxPrimaryKey(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxID, nil
}

func (s *fakeSource) PageAfter(ctx context.Context, cursorID int64, pageSize int) ([]*storage.InfoDict, error) {
	s.mu.Lock()
	s.pageCalls++
	call := s.pageCalls
	hook := s.onPage
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return nil, errSourceDown
	}
	ret := make([]*storage.InfoDict, 0, pageSize)
	for _, row := range s.rows {
		if row.ID > cursorID && len(ret) < pageSize {
			ret = append(ret, row)
		}
	}
	return ret, nil
}

type fakeCursorStore struct {
	mu     sync.Mutex
	cursor *storage.Cursor
	writes int
}

func (s *fakeCursorStore) ReadCursor(ctx context.Context) (*storage.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return nil, nil
	}
	c := *s.cursor
	return &c, nil
}

func (s *fakeCursorStore) UpsertCursor(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.cursor = &storage.Cursor{MaxSyncedID: id}
	return nil
}

func (s *fakeCursorStore) value() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return 0
	}
	return s.cursor.MaxSyncedID
}

func (s *fakeCursorStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type fakeIndex struct {
	mu    sync.Mutex
	docs  map[string]*model.Document
	calls int
	// failCalls lists BulkUpsert call numbers that store the docs and then fail,
	// like a request that timed out after the cluster applied it.
	failCalls map[int]bool
	reject    map[string]bool
	writes    int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		docs:      map[string]*model.Document{},
		failCalls: map[int]bool{},
		reject:    map[string]bool{},
	}
}

func (i *fakeIndex) BulkUpsert(ctx context.Context, docs []*model.Document) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	rejected := 0
	for _, doc := range docs {
		if i.reject[doc.ID()] {
			rejected++
			continue
		}
		i.docs[doc.ID()] = doc
		i.writes++
	}
	if i.failCalls[i.calls] {
		return 0, errIndexDown
	}
	return rejected, nil
}

func (i *fakeIndex) Count(ctx context.Context) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return int64(len(i.docs)), nil
}

func (i *fakeIndex) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.docs)
}

func (i *fakeIndex) writeCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writes
}
