// Package store keeps the widget history in memory and on disk.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/stackbox/internal/core"
	"github.com/jmylchreest/stackbox/internal/model"
)

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeAdd indicates records were added.
	ChangeTypeAdd ChangeType = iota
	// ChangeTypeUpdate indicates a record was closed or edited.
	ChangeTypeUpdate
	// ChangeTypeClear indicates all records were cleared.
	ChangeTypeClear
	// ChangeTypePrune indicates old records were pruned.
	ChangeTypePrune
	// ChangeTypeDelete indicates a record was deleted.
	ChangeTypeDelete
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type   ChangeType
	Count  int
	Source string
}

// FilterOptions specifies criteria for filtering records.
type FilterOptions struct {
	Since     time.Duration // newer than now-since (0=all)
	Kind      string        // exact kind name
	Source    string        // exact source
	Reason    string        // exact close reason
	OpenOnly  bool          // only widgets still on screen
	Limit     int           // maximum results (0=unlimited)
	SortField string        // "created", "closed", "kind", "title"
	SortOrder string        // "asc" or "desc" (default: "desc")
}

// Store holds history records with thread-safe access.
type Store struct {
	mu      sync.RWMutex
	records []model.Record
	index   map[string]int // uid -> slice index

	persistence Persistence

	subscribers []chan ChangeEvent
	closed      bool
	now         func() time.Time
}

// NewStore creates a Store. A nil persistence keeps history in memory only.
func NewStore(persistence Persistence) *Store {
	return &Store{
		records:     make([]model.Record, 0),
		index:       make(map[string]int),
		persistence: persistence,
		subscribers: make([]chan ChangeEvent, 0),
		now:         time.Now,
	}
}

// Add records a new widget. Records whose UID is already known are skipped.
func (s *Store) Add(r model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	r.EnsureContentHash()
	if _, exists := s.index[r.UID]; exists {
		return nil
	}

	s.index[r.UID] = len(s.records)
	s.records = append(s.records, r)

	if s.persistence != nil {
		if err := s.persistence.Append(r); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: 1, Source: r.Source})
	return nil
}

// Update replaces a known record and appends its new version.
func (s *Store) Update(r model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	idx, exists := s.index[r.UID]
	if !exists {
		return ErrRecordNotFound
	}
	s.records[idx] = r

	if s.persistence != nil {
		if err := s.persistence.Append(r); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeUpdate, Count: 1, Source: r.Source})
	return nil
}

// All returns every record, newest first.
func (s *Store) All() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Record, len(s.records))
	copy(result, s.records)
	core.Sort(result, core.DefaultSortOptions())
	return result
}

// Filter returns records matching opts.
func (s *Store) Filter(opts FilterOptions) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var result []model.Record

	for _, r := range s.records {
		if opts.Since > 0 && r.CreatedTime().Before(now.Add(-opts.Since)) {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		if opts.Source != "" && r.Source != opts.Source {
			continue
		}
		if opts.Reason != "" && r.Reason != opts.Reason {
			continue
		}
		if opts.OpenOnly && r.IsClosed() {
			continue
		}
		result = append(result, r)
	}

	core.Sort(result, core.SortOptions{
		Field: core.ParseSortField(opts.SortField),
		Order: core.ParseSortOrder(opts.SortOrder),
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// Lookup finds a record by UID, UID prefix line (as printed by the plain
// formatter) or "kind#id", preferring the most recent widget with that ref.
func (s *Store) Lookup(input string) *model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	input = strings.TrimSpace(input)
	if idx, exists := s.index[input]; exists {
		r := s.records[idx]
		return &r
	}

	if len(input) >= 26 {
		if idx, exists := s.index[input[:26]]; exists {
			r := s.records[idx]
			return &r
		}
	}

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Ref() == input {
			r := s.records[i]
			return &r
		}
	}
	return nil
}

// GetByUID returns the record with uid.
func (s *Store) GetByUID(uid string) *model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, exists := s.index[uid]; exists {
		r := s.records[idx]
		return &r
	}
	return nil
}

// Delete removes a record by UID.
func (s *Store) Delete(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	idx, exists := s.index[uid]
	if !exists {
		return nil
	}

	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.reindex()

	if s.persistence != nil {
		if err := s.persistence.Rewrite(s.records); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeDelete, Count: 1})
	return nil
}

// Prune drops closed records older than olderThan, always keeping the
// newest keep records. It returns the number removed.
func (s *Store) Prune(olderThan time.Duration, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	ordered := make([]model.Record, len(s.records))
	copy(ordered, s.records)
	core.Sort(ordered, core.DefaultSortOptions())

	cutoff := s.now().Add(-olderThan)
	drop := make(map[string]bool)
	for i, r := range ordered {
		if i < keep || !r.IsClosed() {
			continue
		}
		if olderThan > 0 && !r.CreatedTime().Before(cutoff) {
			continue
		}
		drop[r.UID] = true
	}
	if len(drop) == 0 {
		return 0, nil
	}

	kept := s.records[:0]
	for _, r := range s.records {
		if !drop[r.UID] {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.reindex()

	if s.persistence != nil {
		if err := s.persistence.Rewrite(s.records); err != nil {
			return 0, err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypePrune, Count: len(drop)})
	return len(drop), nil
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close releases resources and closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}

// Hydrate loads records from persistence. Known UIDs take the stored version.
func (s *Store) Hydrate() error {
	if s.persistence == nil {
		return nil
	}

	records, err := s.persistence.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, r := range records {
		r.EnsureContentHash()
		if idx, exists := s.index[r.UID]; exists {
			if s.records[idx] != r {
				s.records[idx] = r
				changed++
			}
			continue
		}
		s.index[r.UID] = len(s.records)
		s.records = append(s.records, r)
		changed++
	}

	if changed > 0 {
		s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: changed, Source: "persistence"})
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	count := len(s.records)
	s.records = make([]model.Record, 0)
	s.index = make(map[string]int)

	if s.persistence != nil {
		if err := s.persistence.Clear(); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeClear, Count: count})
	return nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.UID] = i
	}
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Errors
var (
	ErrStoreClosed    = storeError("store is closed")
	ErrRecordNotFound = storeError("record not found")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
