package platform

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a path does not resolve.
var ErrNotFound = errors.New("not found")

// File is an open file handle shared by reference count.
type File struct {
	Name string
	ref  int
}

// FileTable tracks open file handles.
type FileTable struct {
	mu   sync.Mutex
	open int
}

// NewFileTable creates an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{}
}

// Open creates a handle with a single reference.
func (t *FileTable) Open(name string) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open++
	return &File{Name: name, ref: 1}
}

// Dup adds a reference to f.
func (t *FileTable) Dup(f *File) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f.ref < 1 {
		panic("platform: filedup of closed file")
	}
	f.ref++
	return f
}

// Close drops a reference to f.
func (t *FileTable) Close(f *File) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f.ref < 1 {
		panic("platform: fileclose of closed file")
	}
	f.ref--
	if f.ref == 0 {
		t.open--
	}
}

// Refs returns the reference count of f.
func (t *FileTable) Refs(f *File) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return f.ref
}

// Active returns the number of handles with at least one reference.
func (t *FileTable) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Inode is a reference-counted directory entry.
type Inode struct {
	Path string
	ref  int
}

// FS is a file system with a write-ahead log whose operations are bracketed
// by BeginOp and EndOp.
type FS struct {
	mu          sync.Mutex
	inodes      map[string]*Inode
	outstanding int
	committed   int
}

// NewFS creates a file system containing the given directories; "/" always exists.
func NewFS(dirs ...string) *FS {
	ret := &FS{inodes: map[string]*Inode{}}
	for _, dir := range append([]string{"/"}, dirs...) {
		ret.inodes[dir] = &Inode{Path: dir}
	}
	return ret
}

// Lookup resolves path and returns a referenced inode.
func (f *FS) Lookup(path string) (*Inode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ip, ok := f.inodes[path]
	if !ok {
		return nil, fmt.Errorf("%v: %w", path, ErrNotFound)
	}
	ip.ref++
	return ip, nil
}

// Dup adds a reference to ip.
func (f *FS) Dup(ip *Inode) *Inode {
	f.mu.Lock()
	defer f.mu.Unlock()
	ip.ref++
	return ip
}

// Release drops a reference to ip; it must run inside an operation.
func (f *FS) Release(ip *Inode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outstanding == 0 {
		panic("platform: iput outside of transaction")
	}
	if ip.ref < 1 {
		panic("platform: iput of free inode")
	}
	ip.ref--
}

// BeginOp opens a log transaction.
func (f *FS) BeginOp() {
	f.mu.Lock()
	f.outstanding++
	f.mu.Unlock()
}

// EndOp closes a log transaction, committing when it was the last one.
func (f *FS) EndOp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outstanding == 0 {
		panic("platform: end_op without begin_op")
	}
	f.outstanding--
	if f.outstanding == 0 {
		f.committed++
	}
}

// Refs returns the reference count of ip.
func (f *FS) Refs(ip *Inode) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ip.ref
}

// Commits returns the number of completed log commits.
func (f *FS) Commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed
}
