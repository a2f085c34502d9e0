package record

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore() (*Store, *MemoryBackend) {
	b := NewMemoryBackend(Items)
	return NewStore(Items, b), b
}

func TestStore_ExampleSequence(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	a, err := s.Create(ctx, Fields{Name: "A", Price: 1.0, Tags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)

	b, err := s.Create(ctx, Fields{Name: "B", Price: 2.0, Tags: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.ID)

	require.NoError(t, s.Delete(ctx, 1))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: 2, Fields: Fields{Name: "B", Price: 2.0, Tags: []string{"x"}}}}, list)
}

func TestStore_ListEmptyInitializesOnce(t *testing.T) {
	ctx := context.Background()
	s, b := newMemoryStore()

	assert.Nil(t, b.Document())
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
	assert.JSONEq(t, `{"items":[],"next_id":1}`, string(b.Document()))
}

func TestStore_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	created, err := s.Create(ctx, Fields{Name: "lamp", Price: 12.5, Tags: []string{"home", "light"}})
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestStore_CreateNilTagsStoredAsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	created, err := s.Create(ctx, Fields{Name: "n", Price: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{}, created.Tags)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Tags)
}

func TestStore_UpdateKeepsID(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	created, err := s.Create(ctx, Fields{Name: "old", Price: 1, Tags: []string{"a"}})
	require.NoError(t, err)

	want := Fields{Name: "new", Price: 3.25, Tags: []string{"b", "c"}}
	updated, err := s.Update(ctx, created.ID, want)
	require.NoError(t, err)
	assert.Equal(t, Record{ID: created.ID, Fields: want}, updated)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestStore_DeleteRemoves(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	r, err := s.Create(ctx, Fields{Name: "gone", Price: 1})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, r.ID))

	_, err = s.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_IDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, Fields{Name: "x"})
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(ctx, 3))

	r, err := s.Create(ctx, Fields{Name: "y"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.ID)
}

func TestStore_NotFoundLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s, b := newMemoryStore()

	_, err := s.Create(ctx, Fields{Name: "keep", Price: 5, Tags: []string{"t"}})
	require.NoError(t, err)
	before := b.Document()

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Update(ctx, 99, Fields{Name: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
	err = s.Delete(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "items 99")

	assert.Equal(t, before, b.Document())
}

func TestStore_ConcurrentCreatesGetDistinctContiguousIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	const n = 64
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := s.Create(ctx, Fields{Name: "c"})
			assert.NoError(t, err)
			ids[i] = r.ID
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestStore_ReadsDuringWritesSeeWholeStates(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()
	first, err := s.Create(ctx, Fields{Name: "first", Price: 1})
	require.NoError(t, err)

	const writes = 200
	done := make(chan struct{})
	var reads atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for {
				select {
				case <-done:
					return
				default:
				}
				list, err := s.List(ctx)
				if !assert.NoError(t, err) || !assert.GreaterOrEqual(t, len(list), last) {
					return
				}
				last = len(list)
				got, err := s.Get(ctx, first.ID)
				if !assert.NoError(t, err) || !assert.Equal(t, first, got) {
					return
				}
				reads.Add(1)
			}
		}()
	}

	for i := 0; i < writes; i++ {
		_, err := s.Create(ctx, Fields{Name: "w", Price: float64(i)})
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, writes+1)
	t.Logf("%d reads overlapped %d writes", reads.Load(), writes)
}

func TestStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore()

	const n = 32
	for i := 0; i < n; i++ {
		_, err := s.Create(ctx, Fields{Name: "before"})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := s.Update(ctx, id, Fields{Name: "after", Price: float64(id)})
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, n)
	for _, r := range list {
		assert.Equal(t, "after", r.Name)
		assert.Equal(t, float64(r.ID), r.Price)
	}
}

// flakyBackend wraps a MemoryBackend and can fail saves on demand.
type flakyBackend struct {
	*MemoryBackend
	loads    atomic.Int32
	failSave atomic.Bool
}

var errDisk = errors.New("disk full")

func (f *flakyBackend) Load(ctx context.Context) (*Collection, error) {
	f.loads.Add(1)
	return f.MemoryBackend.Load(ctx)
}

func (f *flakyBackend) Save(ctx context.Context, c *Collection) error {
	if f.failSave.Load() {
		return errDisk
	}
	return f.MemoryBackend.Save(ctx, c)
}

func TestStore_SaveFailureReleasesLockAndKeepsState(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(Items)}
	s := NewStore(Items, b)

	_, err := s.Create(ctx, Fields{Name: "first"})
	require.NoError(t, err)

	b.failSave.Store(true)
	_, err = s.Create(ctx, Fields{Name: "second"})
	assert.ErrorIs(t, err, errDisk)

	b.failSave.Store(false)
	r, err := s.Create(ctx, Fields{Name: "third"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.ID)
}

func TestStore_ReloadsOnEveryOperation(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(Items)}
	s := NewStore(Items, b)

	_, err := s.List(ctx)
	require.NoError(t, err)
	base := b.loads.Load()

	_, err = s.List(ctx)
	require.NoError(t, err)
	_, err = s.Create(ctx, Fields{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, base+2, b.loads.Load())

	// A second store over the same backend sees the first store's writes.
	other := NewStore(Items, b)
	list, err := other.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_InitFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(Items)}
	b.failSave.Store(true)
	s := NewStore(Items, b)

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, errDisk)

	b.failSave.Store(false)
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
