package suggestions

import (
	"sort"
	"sync"
	"time"
)

// Store owns every suggestion record for the process lifetime. It is the
// authoritative copy; the durable mirror is advisory (last write wins).
//
// Discord dispatches handlers on separate goroutines, so all map and record
// access happens under mu. Mutations complete inside the critical section;
// callers receive clones and perform outbound calls without holding mu.
type Store struct {
	mu        sync.RWMutex
	records   map[uint64]*Record
	byMessage map[MessageRef]uint64
	nextID    uint64
}

func NewStore() *Store {
	return &Store{
		records:   make(map[uint64]*Record),
		byMessage: make(map[MessageRef]uint64),
		nextID:    1,
	}
}

// Create allocates the next identifier and inserts a pending record.
// Identifiers are monotonic and never reused, even across restores.
func (s *Store) Create(authorID, authorName, text string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:          s.nextID,
		AuthorID:    authorID,
		AuthorName:  authorName,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
		Status:      StatusPending,
		Upvotes:     make(map[string]struct{}),
		Downvotes:   make(map[string]struct{}),
		ContentHash: ContentHash(text),
	}
	s.nextID++
	s.records[rec.ID] = rec
	return rec.Clone()
}

// Restore seeds the store from mirrored records, typically at startup.
// The id counter advances past the highest restored id.
func (s *Store) Restore(records []*Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		c := rec.Clone()
		s.records[c.ID] = c
		if !c.MessageRef.IsZero() {
			s.byMessage[c.MessageRef] = c.ID
		}
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
}

// AttachMessage records the rendered message for a suggestion. Assigned
// once, after the rendering adapter publishes the embed.
func (s *Store) AttachMessage(id uint64, ref MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if !rec.MessageRef.IsZero() {
		delete(s.byMessage, rec.MessageRef)
	}
	rec.MessageRef = ref
	s.byMessage[ref] = id
	return nil
}

// Get returns a clone of the record, or ErrNotFound.
func (s *Store) Get(id uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// GetByMessage resolves a record by its rendered message reference.
func (s *Store) GetByMessage(ref MessageRef) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byMessage[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return s.records[id].Clone(), nil
}

// FindDuplicate returns the id of an earlier suggestion with the same
// normalized content, if any.
func (s *Store) FindDuplicate(text string) (uint64, bool) {
	hash := ContentHash(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := uint64(0)
	for id, rec := range s.records {
		if rec.ContentHash == hash && (best == 0 || id < best) {
			best = id
		}
	}
	return best, best != 0
}

// Snapshot returns clones of every record ordered by id.
func (s *Store) Snapshot() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// mutate applies fn to the live record under the store lock and returns a
// clone of the result. fn returning an error leaves the record untouched;
// fn must therefore only mutate after all precondition checks pass.
func (s *Store) mutate(id uint64, fn func(*Record) error) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}
