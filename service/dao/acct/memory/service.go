// Package memory keeps accounting records in process memory.
package memory

import (
	"github.com/viant/kproc/service/dao/acct"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/store"
)

// Service is an in-memory acct.Service.
type Service struct {
	*store.MemoryStore[string, acct.Record]
}

var _ acct.Service = (*Service)(nil)

// New creates an empty store.
func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, acct.Record](
			func(r *acct.Record) string { return r.ID },
			store.WithFilter[string, acct.Record](func(r *acct.Record, parameters []*dao.Parameter) bool {
				return r.Match(parameters)
			}),
			store.WithOrder[string, acct.Record](acct.Before),
		),
	}
}
