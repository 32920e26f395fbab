package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/nodeflow/service/dao"
)

type record struct {
	ID   string
	Kind string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[string, record](func(r *record) string { return r.ID },
		WithFilter[string, record](func(r *record, params []*dao.Parameter) bool {
			for _, p := range params {
				if p.Name == "Kind" && p.Value != r.Kind {
					return false
				}
			}
			return true
		}))

	assert.ErrorIs(t, s.Save(ctx, nil), dao.ErrNilEntity)
	assert.NoError(t, s.Save(ctx, &record{ID: "b", Kind: "x"}))
	assert.NoError(t, s.Save(ctx, &record{ID: "a", Kind: "y"}))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	loaded, err := s.Load(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, "y", loaded.Kind)

	list, _ := s.List(ctx, &dao.Parameter{Name: "Kind", Value: "x"})
	assert.Len(t, list, 1)

	removed := s.DeleteWhere(func(r *record) bool { return r.Kind == "x" })
	assert.Len(t, removed, 1)
	assert.Equal(t, 1, s.Len())

	assert.NoError(t, s.Delete(ctx, "a"))
	loaded, _ = s.Load(ctx, "a")
	assert.Nil(t, loaded)

	_ = s.Save(ctx, &record{ID: "c"})
	s.Reset()
	assert.Equal(t, 0, s.Len())
}
