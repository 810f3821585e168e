package platform

import (
	"errors"
	"fmt"
	"sync"
)

// PageSize is the size of a simulated physical page in bytes.
const PageSize = 4096

// ErrOutOfMemory is returned when the page pool is exhausted.
var ErrOutOfMemory = errors.New("out of memory")

// Page represents a single physical page.
type Page struct {
	Data []byte
}

// Pages is a fixed-size physical page pool.
type Pages struct {
	mu    sync.Mutex
	total int
	inUse int
}

// NewPages creates a pool holding total pages.
func NewPages(total int) *Pages {
	return &Pages{total: total}
}

// Alloc takes one zeroed page from the pool.
func (p *Pages) Alloc() (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse >= p.total {
		return nil, ErrOutOfMemory
	}
	p.inUse++
	return &Page{Data: make([]byte, PageSize)}, nil
}

// Free returns a page to the pool.
func (p *Pages) Free(page *Page) {
	if page == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse == 0 {
		panic("platform: free of unallocated page")
	}
	p.inUse--
	page.Data = nil
}

// Available returns the number of free pages.
func (p *Pages) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total - p.inUse
}

// InUse returns the number of allocated pages.
func (p *Pages) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// AddressSpace is a simulated user address space: a root table page plus
// one page per PageSize bytes of user memory.
type AddressSpace struct {
	root  *Page
	pages []*Page
}

// Pages returns the number of user pages mapped.
func (a *AddressSpace) Pages() int {
	return len(a.pages)
}

// Read returns a copy of n bytes at offset off.
func (a *AddressSpace) Read(off, n uint64) ([]byte, error) {
	if off+n > uint64(len(a.pages))*PageSize {
		return nil, fmt.Errorf("read [%d,%d) beyond address space", off, off+n)
	}
	ret := make([]byte, 0, n)
	for n > 0 {
		page := a.pages[off/PageSize]
		start := off % PageSize
		end := start + n
		if end > PageSize {
			end = PageSize
		}
		ret = append(ret, page.Data[start:end]...)
		n -= end - start
		off += end - start
	}
	return ret, nil
}

// Memory manages address spaces on top of a page pool.
type Memory struct {
	pages *Pages
}

// NewMemory creates a memory manager backed by pages.
func NewMemory(pages *Pages) *Memory {
	return &Memory{pages: pages}
}

// Create allocates an empty address space.
func (m *Memory) Create() (*AddressSpace, error) {
	root, err := m.pages.Alloc()
	if err != nil {
		return nil, fmt.Errorf("failed to create address space: %w", err)
	}
	return &AddressSpace{root: root}, nil
}

// Load maps one page and copies image into it. The image must fit a page.
func (m *Memory) Load(as *AddressSpace, image []byte) error {
	if len(image) > PageSize {
		return fmt.Errorf("image of %d bytes exceeds a page", len(image))
	}
	page, err := m.pages.Alloc()
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	copy(page.Data, image)
	as.pages = append(as.pages, page)
	return nil
}

// Copy duplicates size bytes of src into dst. On failure dst is left
// without any of the pages allocated by this call.
func (m *Memory) Copy(src, dst *AddressSpace, size uint64) error {
	count := pageCount(size)
	if count > len(src.pages) {
		return fmt.Errorf("copy of %d bytes beyond source address space", size)
	}
	mapped := len(dst.pages)
	for i := 0; i < count; i++ {
		page, err := m.pages.Alloc()
		if err != nil {
			m.unmap(dst, mapped)
			return fmt.Errorf("failed to copy address space: %w", err)
		}
		copy(page.Data, src.pages[i].Data)
		dst.pages = append(dst.pages, page)
	}
	return nil
}

// Resize grows or shrinks as from oldSize to newSize and returns the new size.
func (m *Memory) Resize(as *AddressSpace, oldSize, newSize uint64) (uint64, error) {
	want := pageCount(newSize)
	if want < len(as.pages) {
		m.unmap(as, want)
		return newSize, nil
	}
	mapped := len(as.pages)
	for len(as.pages) < want {
		page, err := m.pages.Alloc()
		if err != nil {
			m.unmap(as, mapped)
			return oldSize, fmt.Errorf("failed to grow address space to %d: %w", newSize, err)
		}
		as.pages = append(as.pages, page)
	}
	return newSize, nil
}

// Destroy releases every page of as.
func (m *Memory) Destroy(as *AddressSpace, size uint64) {
	if as == nil {
		return
	}
	m.unmap(as, 0)
	m.pages.Free(as.root)
	as.root = nil
}

func (m *Memory) unmap(as *AddressSpace, keep int) {
	for i := len(as.pages) - 1; i >= keep; i-- {
		m.pages.Free(as.pages[i])
	}
	as.pages = as.pages[:keep]
}

func pageCount(size uint64) int {
	return int((size + PageSize - 1) / PageSize)
}
