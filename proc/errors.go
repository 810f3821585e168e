package proc

import "errors"

var (
	ErrNoSlot          = errors.New("process table full")
	ErrNoChildren      = errors.New("no children")
	ErrNotFound        = errors.New("process not found")
	ErrKilled          = errors.New("process killed")
	ErrInvalidPriority = errors.New("priority out of range")
	ErrNotEligible     = errors.New("process neither runnable nor sleeping")
	ErrNotSupported    = errors.New("not supported by scheduling policy")
	ErrBadDescriptor   = errors.New("bad file descriptor")
	ErrTooManyFiles    = errors.New("too many open files")
	ErrInvalidSize     = errors.New("invalid address space size")
	ErrNilProgram      = errors.New("nil program")
	ErrBooted          = errors.New("init process already created")
)
