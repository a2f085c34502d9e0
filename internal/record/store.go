package record

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// Store serializes all mutations of one collection behind a single lock.
// Every operation reloads the collection from the backend; nothing is cached
// between calls. Reads do not take the lock and see the last completed save.
type Store struct {
	schema  Schema
	backend Backend

	mu    sync.Mutex
	ready atomic.Bool
}

func NewStore(s Schema, b Backend) *Store {
	return &Store{schema: s, backend: b}
}

func (s *Store) Schema() Schema {
	return s.schema
}

func (s *Store) List(ctx context.Context) ([]Record, error) {
	c, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return c.Records, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	c, err := s.read(ctx)
	if err != nil {
		return Record{}, err
	}
	i := c.indexOf(id)
	if i < 0 {
		return Record{}, notFound(s.schema, id)
	}
	return c.Records[i], nil
}

func (s *Store) Create(ctx context.Context, f Fields) (Record, error) {
	var rec Record
	err := s.mutate(ctx, func(c *Collection) error {
		rec = Record{ID: c.NextID, Fields: f.normalized()}
		c.Records = append(c.Records, rec)
		c.NextID = rec.ID + 1
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update replaces every field of the record except its id.
func (s *Store) Update(ctx context.Context, id int64, f Fields) (Record, error) {
	var rec Record
	err := s.mutate(ctx, func(c *Collection) error {
		i := c.indexOf(id)
		if i < 0 {
			return notFound(s.schema, id)
		}
		rec = Record{ID: id, Fields: f.normalized()}
		c.Records[i] = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(c *Collection) error {
		i := c.indexOf(id)
		if i < 0 {
			return notFound(s.schema, id)
		}
		c.Records = slices.Delete(c.Records, i, i+1)
		return nil
	})
}

// mutate runs load -> fn -> save under the store lock. Nothing is saved when
// fn fails.
func (s *Store) mutate(ctx context.Context, fn func(*Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initLocked(ctx); err != nil {
		return err
	}
	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.backend.Save(ctx, c)
}

func (s *Store) read(ctx context.Context) (*Collection, error) {
	if !s.ready.Load() {
		s.mu.Lock()
		err := s.initLocked(ctx)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return s.load(ctx)
}

// initLocked persists an empty collection the first time the store is used
// against a backend that has no state yet.
func (s *Store) initLocked(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	_, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNoState) {
		err = s.backend.Save(ctx, NewCollection())
	}
	if err != nil {
		return err
	}
	s.ready.Store(true)
	return nil
}

func (s *Store) load(ctx context.Context) (*Collection, error) {
	c, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNoState) {
		return NewCollection(), nil
	}
	return c, err
}
