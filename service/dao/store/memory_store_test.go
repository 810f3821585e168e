package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/criteria"
)

type entry struct {
	ID   string
	Name string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[string, entry](
		func(e *entry) string { return e.ID },
		WithFilter[string, entry](func(e *entry, parameters []*dao.Parameter) bool {
			return criteria.Match("Name", e.Name, parameters)
		}),
		WithOrder[string, entry](func(a, b *entry) bool { return a.ID < b.ID }),
	)

	assert.ErrorIs(t, s.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, s.Save(ctx, &entry{}), dao.ErrInvalidID)

	original := &entry{ID: "b", Name: "sh"}
	require.NoError(t, s.Save(ctx, original))
	require.NoError(t, s.Save(ctx, &entry{ID: "a", Name: "init"}))
	original.Name = "changed"

	loaded, err := s.Load(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "sh", loaded.Name)

	_, err = s.Load(ctx, "z")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	filtered, err := s.List(ctx, dao.NewParameter("Name", "sh"))
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].ID)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), dao.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}
