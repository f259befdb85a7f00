// Package handle implements the open-file descriptor table of spec.md
// section 4: a local integer handle mapping to an inode number and a
// current read/write offset.
//
// Grounded on mit-pdos-go-nfsd/fh/nfs_fh.go's Fh/generation pattern,
// simplified since this core has no wire protocol to marshal a handle
// across: callers hold a plain int, not an opaque byte blob.
package handle

import (
	"sync"

	"github.com/mit-pdos/reviewfs/common"
	"github.com/mit-pdos/reviewfs/internal/vfserrors"
)

// Handle is one open file's cursor state.
type Handle struct {
	Inum   common.Inum
	Offset int64
}

// Table is a mounted filesystem's open-handle set.
type Table struct {
	mu      sync.Mutex
	next    int
	handles map[int]*Handle
}

// New creates an empty handle table.
func New() *Table {
	return &Table{next: 1, handles: make(map[int]*Handle)}
}

// Open allocates a new handle positioned at offset 0 for inum.
func (t *Table) Open(inum common.Inum) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	t.next++
	t.handles[fd] = &Handle{Inum: inum}
	return fd
}

// Get returns the handle for fd.
func (t *Table) Get(fd int) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[fd]
	if !ok {
		return nil, vfserrors.New("handle.Get", "", vfserrors.NotFound)
	}
	return h, nil
}

// Seek repositions fd's cursor and returns the new offset.
func (t *Table) Seek(fd int, offset int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[fd]
	if !ok {
		return 0, vfserrors.New("handle.Seek", "", vfserrors.NotFound)
	}
	if offset < 0 {
		return 0, vfserrors.New("handle.Seek", "", vfserrors.Invalid)
	}
	h.Offset = offset
	return h.Offset, nil
}

// Advance moves fd's cursor forward by n bytes, used after a read or
// write consumes n bytes at the current offset.
func (t *Table) Advance(fd int, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.handles[fd]; ok {
		h.Offset += n
	}
}

// Close releases fd. Returns false if fd was not open.
func (t *Table) Close(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handles[fd]; !ok {
		return false
	}
	delete(t.handles, fd)
	return true
}

// CloseAll drops every open handle, used at unmount.
func (t *Table) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles = make(map[int]*Handle)
}

// Len reports the number of currently open handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}
