// Package acct defines the accounting record persisted for every reaped
// process.
package acct

import (
	"fmt"
	"strconv"
	"time"

	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/proc"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/criteria"
)

// Record is the final usage of a reaped process.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	BootID    string    `json:"bootId" yaml:"bootId"`
	PID       int       `json:"pid" yaml:"pid"`
	Parent    int       `json:"parent" yaml:"parent"`
	Name      string    `json:"name" yaml:"name"`
	Status    int       `json:"status" yaml:"status"`
	ExitTick  uint64    `json:"exitTick" yaml:"exitTick"`
	RunTicks  uint64    `json:"runTicks" yaml:"runTicks"`
	WaitTicks uint64    `json:"waitTicks" yaml:"waitTicks"`
	ReapedAt  time.Time `json:"reapedAt" yaml:"reapedAt"`
}

// Service stores accounting records by ID.
type Service = dao.Service[string, Record]

// NewRecord builds the record for a reap event. PIDs repeat across boots, so
// the ID combines the boot and the pid.
func NewRecord(bootID string, event proc.Event) *Record {
	return &Record{
		ID:        fmt.Sprintf("%s-%d", bootID, event.PID),
		BootID:    bootID,
		PID:       event.PID,
		Parent:    event.Parent,
		Name:      event.Name,
		Status:    event.Status,
		ExitTick:  event.Tick,
		RunTicks:  event.RunTicks,
		WaitTicks: event.WaitTicks,
		ReapedAt:  clock.Now(),
	}
}

// Fields exposes the filterable fields of r.
func (r *Record) Fields() map[string]string {
	return map[string]string{
		"BootID": r.BootID,
		"PID":    strconv.Itoa(r.PID),
		"Parent": strconv.Itoa(r.Parent),
		"Name":   r.Name,
		"Status": strconv.Itoa(r.Status),
	}
}

// Match reports whether r satisfies parameters.
func (r *Record) Match(parameters []*dao.Parameter) bool {
	return criteria.MatchAll(r.Fields(), parameters)
}

// Before orders records by boot and pid.
func Before(a, b *Record) bool {
	if a.BootID != b.BootID {
		return a.BootID < b.BootID
	}
	return a.PID < b.PID
}
