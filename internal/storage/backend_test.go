package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinydoc/internal/record"
)

// exerciseBackend runs the same store-level scenario against any backend.
func exerciseBackend(t *testing.T, s record.Schema, b record.Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Load(ctx)
	require.ErrorIs(t, err, record.ErrNoState)

	st := record.NewStore(s, b)
	list, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	c, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.NextID)

	a, err := st.Create(ctx, record.Fields{Name: "A", Price: 1.0, Tags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	bb, err := st.Create(ctx, record.Fields{Name: "B", Price: 2.0, Tags: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), bb.ID)
	require.NoError(t, st.Delete(ctx, 1))

	list, err = st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{ID: 2, Fields: record.Fields{Name: "B", Price: 2.0, Tags: []string{"x"}}}}, list)

	_, err = st.Update(ctx, 2, record.Fields{Name: "B2", Price: 0.1 + 0.2, Tags: []string{"y", "x"}})
	require.NoError(t, err)
	got, err := st.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Name)
	assert.Equal(t, 0.1+0.2, got.Price)
	assert.Equal(t, []string{"y", "x"}, got.Tags)

	_, err = st.Get(ctx, 1)
	assert.ErrorIs(t, err, record.ErrNotFound)

	// A fresh store over the same backend picks up the persisted counter.
	again := record.NewStore(s, b)
	r, err := again.Create(ctx, record.Fields{Name: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ID)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := again.Create(ctx, record.Fields{Name: "par"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Records, 18)
	assert.Equal(t, int64(20), c.NextID)

	readsDuringWrites(t, again, 40)

	c, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Records, 58)
	assert.Equal(t, int64(60), c.NextID)
}

// readsDuringWrites lists st from several goroutines while writes creates run
// one after another. Unlocked readers must only ever see whole documents, so
// every List succeeds and no reader sees the collection shrink.
func readsDuringWrites(t *testing.T, st *record.Store, writes int) {
	t.Helper()
	ctx := context.Background()

	before, err := st.List(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := len(before)
			for {
				select {
				case <-done:
					return
				default:
				}
				list, err := st.List(ctx)
				if !assert.NoError(t, err) {
					return
				}
				if !assert.GreaterOrEqual(t, len(list), last) {
					return
				}
				last = len(list)
			}
		}()
	}

	for i := 0; i < writes; i++ {
		_, err := st.Create(ctx, record.Fields{Name: "w", Price: float64(i), Tags: []string{"t"}})
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()

	after, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+writes)
}
