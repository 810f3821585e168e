package acct

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/proc"
	"github.com/viant/kproc/service/dao"
)

func TestNewRecord(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	prev := clock.NowFunc
	clock.NowFunc = func() time.Time { return fixed }
	defer func() { clock.NowFunc = prev }()

	record := NewRecord("boot", proc.Event{
		Type: proc.EventReap, PID: 4, Parent: 1, Name: "sh", Status: -1,
		Tick: 30, RunTicks: 12, WaitTicks: 6,
	})
	assert.Equal(t, &Record{
		ID: "boot-4", BootID: "boot", PID: 4, Parent: 1, Name: "sh", Status: -1,
		ExitTick: 30, RunTicks: 12, WaitTicks: 6, ReapedAt: fixed,
	}, record)

	assert.True(t, record.Match([]*dao.Parameter{dao.NewIntParameter("Status", -1)}))
	assert.False(t, record.Match([]*dao.Parameter{dao.NewParameter("BootID", "other")}))
	assert.True(t, Before(&Record{BootID: "a", PID: 9}, &Record{BootID: "b", PID: 1}))
	assert.True(t, Before(&Record{BootID: "a", PID: 2}, &Record{BootID: "a", PID: 3}))
}
