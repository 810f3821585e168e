package platform

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Copy(t *testing.T) {
	testCases := []struct {
		name      string
		pool      int
		size      uint64
		expectErr bool
	}{
		{name: "fits", pool: 8, size: 2 * PageSize},
		{name: "exhausted", pool: 6, size: 3 * PageSize, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			pages := NewPages(testCase.pool)
			mem := NewMemory(pages)
			src, err := mem.Create()
			require.NoError(t, err)
			_, err = mem.Resize(src, 0, testCase.size)
			require.NoError(t, err)
			dst, err := mem.Create()
			require.NoError(t, err)
			before := pages.InUse()
			err = mem.Copy(src, dst, testCase.size)
			if testCase.expectErr {
				assert.True(t, errors.Is(err, ErrOutOfMemory))
				assert.Equal(t, before, pages.InUse())
				assert.Equal(t, 0, dst.Pages())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, src.Pages(), dst.Pages())
			mem.Destroy(dst, testCase.size)
			mem.Destroy(src, testCase.size)
			assert.Equal(t, 0, pages.InUse())
		})
	}
}

func TestMemory_Resize(t *testing.T) {
	pages := NewPages(4)
	mem := NewMemory(pages)
	as, err := mem.Create()
	require.NoError(t, err)

	size, err := mem.Resize(as, 0, PageSize+1)
	require.NoError(t, err)
	assert.EqualValues(t, PageSize+1, size)
	assert.Equal(t, 2, as.Pages())

	size, err = mem.Resize(as, size, 10*PageSize)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.EqualValues(t, PageSize+1, size)
	assert.Equal(t, 2, as.Pages())

	size, err = mem.Resize(as, size, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, size)
	assert.Equal(t, 1, pages.InUse())
}

func TestMemory_Load(t *testing.T) {
	mem := NewMemory(NewPages(2))
	as, err := mem.Create()
	require.NoError(t, err)
	require.NoError(t, mem.Load(as, []byte{1, 2, 3}))
	data, err := as.Read(0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Error(t, mem.Load(as, make([]byte, PageSize+1)))
}

func TestFileTable(t *testing.T) {
	table := NewFileTable()
	f := table.Open("console")
	table.Dup(f)
	assert.Equal(t, 2, table.Refs(f))
	table.Close(f)
	table.Close(f)
	assert.Equal(t, 0, table.Refs(f))
	assert.Equal(t, 0, table.Active())
	assert.Panics(t, func() { table.Close(f) })
}

func TestFS(t *testing.T) {
	fs := NewFS("/tmp")
	ip, err := fs.Lookup("/tmp")
	require.NoError(t, err)
	fs.Dup(ip)
	assert.Equal(t, 2, fs.Refs(ip))

	assert.Panics(t, func() { fs.Release(ip) })

	fs.BeginOp()
	fs.Release(ip)
	fs.EndOp()
	assert.Equal(t, 1, fs.Refs(ip))
	assert.Equal(t, 1, fs.Commits())

	_, err = fs.Lookup("/missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClock(t *testing.T) {
	clock := NewClock()
	assert.EqualValues(t, 0, clock.Now())
	assert.EqualValues(t, 1, clock.Advance())
	assert.EqualValues(t, 2, clock.Advance())
	assert.EqualValues(t, 2, clock.Now())
}

func TestSwitch(t *testing.T) {
	halt := make(chan struct{})
	defer close(halt)
	var trace []string
	main := NewContext(halt, nil)
	var worker *Context
	worker = NewContext(halt, func() {
		trace = append(trace, "worker 1")
		Switch(worker, main)
		trace = append(trace, "worker 2")
		Handoff(main)
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		trace = append(trace, "main 1")
		Switch(main, worker)
		trace = append(trace, "main 2")
		Switch(main, worker)
		trace = append(trace, "main 3")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("switch deadlocked")
	}
	assert.Equal(t, []string{"main 1", "worker 1", "main 2", "worker 2", "main 3"}, trace)
}
