package record

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genFields() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		gen.Float64Range(-1e6, 1e6),
		gen.SliceOf(gen.AlphaString()),
	).Map(func(v []any) Fields {
		tags := v[2].([]string)
		if tags == nil {
			tags = []string{}
		}
		return Fields{Name: v[0].(string), Price: v[1].(float64), Tags: tags}
	})
}

func equalFields(a, b Fields) bool {
	if a.Name != b.Name || a.Price != b.Price || len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}

func TestStoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("concurrent creates yield a contiguous id range", prop.ForAll(
		func(n int) bool {
			s := NewStore(Items, NewMemoryBackend(Items))
			seen := make([]bool, n+1)
			var mu sync.Mutex
			var wg sync.WaitGroup
			ok := true
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					r, err := s.Create(ctx, Fields{Name: "p"})
					mu.Lock()
					defer mu.Unlock()
					if err != nil || r.ID < 1 || r.ID > int64(n) || seen[r.ID] {
						ok = false
						return
					}
					seen[r.ID] = true
				}()
			}
			wg.Wait()
			return ok
		},
		gen.IntRange(1, 40),
	))

	properties.Property("create then get returns the created record", prop.ForAll(
		func(f Fields) bool {
			s := NewStore(Items, NewMemoryBackend(Items))
			created, err := s.Create(ctx, f)
			if err != nil {
				return false
			}
			got, err := s.Get(ctx, created.ID)
			return err == nil && got.ID == created.ID && equalFields(got.Fields, f)
		},
		genFields(),
	))

	properties.Property("update keeps the id and replaces every field", prop.ForAll(
		func(before, after Fields) bool {
			s := NewStore(Products, NewMemoryBackend(Products))
			created, err := s.Create(ctx, before)
			if err != nil {
				return false
			}
			if _, err := s.Update(ctx, created.ID, after); err != nil {
				return false
			}
			got, err := s.Get(ctx, created.ID)
			return err == nil && got.ID == created.ID && equalFields(got.Fields, after)
		},
		genFields(),
		genFields(),
	))

	properties.Property("delete makes get fail and list exclude the id", prop.ForAll(
		func(fs []Fields, pick int) bool {
			s := NewStore(Items, NewMemoryBackend(Items))
			for _, f := range fs {
				if _, err := s.Create(ctx, f); err != nil {
					return false
				}
			}
			id := int64(pick%len(fs)) + 1
			if err := s.Delete(ctx, id); err != nil {
				return false
			}
			if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				return false
			}
			list, err := s.List(ctx)
			if err != nil || len(list) != len(fs)-1 {
				return false
			}
			for _, r := range list {
				if r.ID == id {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, genFields()),
		gen.IntRange(0, 100),
	))

	properties.Property("unknown ids fail with NotFound and change nothing", prop.ForAll(
		func(fs []Fields, offset int64) bool {
			b := NewMemoryBackend(Items)
			s := NewStore(Items, b)
			for _, f := range fs {
				if _, err := s.Create(ctx, f); err != nil {
					return false
				}
			}
			before := string(b.Document())
			id := int64(len(fs)) + offset
			_, gerr := s.Get(ctx, id)
			_, uerr := s.Update(ctx, id, Fields{Name: "x"})
			derr := s.Delete(ctx, id)
			return errors.Is(gerr, ErrNotFound) &&
				errors.Is(uerr, ErrNotFound) &&
				errors.Is(derr, ErrNotFound) &&
				string(b.Document()) == before
		},
		gen.SliceOfN(3, genFields()),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}
