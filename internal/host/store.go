package host

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("item not found")

// Record is one stored item.
type Record struct {
	ItemType  string
	ID        int64
	EntityID  int64
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists items of every type.
type Store interface {
	Insert(ctx context.Context, itemType string, entityID int64, fields Fields) (int64, error)
	Update(ctx context.Context, itemType string, id, entityID int64, fields Fields) error
	Get(ctx context.Context, itemType string, id int64) (Record, error)
	List(ctx context.Context, itemType string, limit int) ([]Record, error)
	Delete(ctx context.Context, itemType string, id int64) error
	Ping(ctx context.Context) error
}

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func storeKey(itemType string) string { return strings.ToLower(itemType) }

// MemStore keeps items in memory. It backs dry runs and tests.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[string]map[int64]Record
	now    func() time.Time
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		items: make(map[string]map[int64]Record),
		now:   time.Now,
	}
}

func (s *MemStore) Insert(_ context.Context, itemType string, entityID int64, fields Fields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(itemType)
	if s.items[key] == nil {
		s.items[key] = make(map[int64]Record)
	}
	s.nextID++
	now := s.now()
	s.items[key][s.nextID] = Record{
		ItemType:  key,
		ID:        s.nextID,
		EntityID:  entityID,
		Fields:    fields.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.nextID, nil
}

func (s *MemStore) Update(_ context.Context, itemType string, id, entityID int64, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(itemType)
	rec, ok := s.items[key][id]
	if !ok {
		return ErrNotFound
	}
	rec.EntityID = entityID
	rec.Fields = fields.Clone()
	rec.UpdatedAt = s.now()
	s.items[key][id] = rec
	return nil
}

func (s *MemStore) Get(_ context.Context, itemType string, id int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[storeKey(itemType)][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Fields = rec.Fields.Clone()
	return rec, nil
}

func (s *MemStore) List(_ context.Context, itemType string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.items[storeKey(itemType)]
	out := make([]Record, 0, len(byID))
	for _, rec := range byID {
		rec.Fields = rec.Fields.Clone()
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Delete(_ context.Context, itemType string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(itemType)
	if _, ok := s.items[key][id]; !ok {
		return ErrNotFound
	}
	delete(s.items[key], id)
	return nil
}

func (s *MemStore) Ping(context.Context) error { return nil }

// Len returns the number of stored items of itemType.
func (s *MemStore) Len(itemType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[storeKey(itemType)])
}
