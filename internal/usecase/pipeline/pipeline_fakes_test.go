package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"feed-relay/internal/domain/entity"
	"feed-relay/internal/repository"
	"feed-relay/internal/usecase/fetch"
	"feed-relay/internal/usecase/notify"
)

/* ───────── モック実装 ───────── */

// memStore はメモリ上のEntryRepository
type memStore struct {
	mu      sync.Mutex
	records map[string]entity.StoredRecord

	containsErr error
	insertErr   error
	removeErr   error
	insertCalls int
}

var _ repository.EntryRepository = (*memStore)(nil)

func newMemStore(ids ...string) *memStore {
	s := &memStore{records: map[string]entity.StoredRecord{}}
	for _, id := range ids {
		s.records[id] = entity.StoredRecord{ID: id}
	}
	return s
}

func (s *memStore) Initialize(context.Context) error { return nil }

func (s *memStore) ContainsAll(_ context.Context, ids []string) (map[string]bool, error) {
	if s.containsErr != nil {
		return nil, s.containsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *memStore) InsertIfAbsent(_ context.Context, records []*entity.StoredRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	var n int64
	for _, r := range records {
		if _, ok := s.records[r.ID]; ok {
			continue
		}
		s.records[r.ID] = *r
		n++
	}
	return n, nil
}

func (s *memStore) RemoveByAuthor(_ context.Context, authors []string) (int64, error) {
	if s.removeErr != nil {
		return 0, s.removeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range repository.RemovableAuthors(authors) {
		for id, r := range s.records {
			if r.Author == a {
				delete(s.records, id)
				n++
			}
		}
	}
	return n, nil
}

func (s *memStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// staticBlacklist は固定のブラックリストを返す
type staticBlacklist struct {
	names []string
	err   error
}

func (b *staticBlacklist) LoadBlacklist(context.Context) (entity.Blacklist, error) {
	if b.err != nil {
		return nil, b.err
	}
	return entity.NewBlacklist(b.names), nil
}

// stubFeeds はURLごとに固定のアイテムを返すFeedFetcher
type stubFeeds struct {
	items map[string][]fetch.FeedItem
	errs  map[string]error
}

func (s *stubFeeds) Fetch(_ context.Context, url string) ([]fetch.FeedItem, error) {
	if err := s.errs[url]; err != nil {
		return nil, err
	}
	return s.items[url], nil
}

// recordingDispatcher は配信されたエントリを記録する
type recordingDispatcher struct {
	mu       sync.Mutex
	sent     []entity.Entry
	fail     bool
	onSend   func(entity.Entry)
	destsPer int
}

func (d *recordingDispatcher) Dispatch(_ context.Context, entry entity.Entry) []notify.Outcome {
	d.mu.Lock()
	d.sent = append(d.sent, entry)
	d.mu.Unlock()
	if d.onSend != nil {
		d.onSend(entry)
	}

	n := d.destsPer
	if n == 0 {
		n = 1
	}
	outcomes := make([]notify.Outcome, n)
	for i := range outcomes {
		outcomes[i] = notify.Outcome{Destination: "hook#1", StatusCode: http.StatusOK}
		if d.fail {
			outcomes[i].StatusCode = http.StatusInternalServerError
			outcomes[i].Err = &entity.DispatchError{Destination: "hook#1", StatusCode: http.StatusInternalServerError, Err: errors.New("server error")}
		}
	}
	return outcomes
}

func (d *recordingDispatcher) sentIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sent))
	for _, e := range d.sent {
		out = append(out, e.ID)
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = nil
}
