// Package bitmap implements the free-block bitmap described in spec.md
// section 4.2, grounded on github.com/mit-pdos/go-journal/alloc's Alloc
// type (a bit-per-unit allocator with a "next" search cursor, protected by
// a mutex) but simplified from its transactional, buftxn-mediated commit
// protocol down to the spec's synchronous allocate/free contract.
package bitmap

import "sync"

// Bitmap tracks allocation state for a fixed number of numbered units
// (data blocks, in the filesystem's case). Bit 0 of byte 0 corresponds to
// unit 0. Zero means free, one means allocated.
type Bitmap struct {
	mu        sync.Mutex
	bits      []byte
	size      uint32 // number of units tracked
	next      uint32 // reset by Load; Allocate does not read it and always scans from unit 0
	freeCount uint32
}

// New creates a Bitmap tracking size units, all initially free.
func New(size uint32) *Bitmap {
	return &Bitmap{
		bits:      make([]byte, byteLen(size)),
		size:      size,
		freeCount: size,
	}
}

func byteLen(size uint32) int {
	return int((size + 7) / 8)
}

// Load replaces the bitmap contents from a packed byte array read off
// disk (least-significant bit first within each byte, per spec.md
// section 4.2) and recomputes the free count.
func (b *Bitmap) Load(data []byte, size uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = size
	b.bits = make([]byte, byteLen(size))
	copy(b.bits, data)
	b.next = 0
	b.freeCount = 0
	for i := uint32(0); i < size; i++ {
		if !b.testLocked(i) {
			b.freeCount++
		}
	}
}

// Bytes returns the packed on-disk representation of the bitmap.
func (b *Bitmap) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.bits))
	copy(out, b.bits)
	return out
}

func (b *Bitmap) testLocked(n uint32) bool {
	return b.bits[n/8]&(1<<(n%8)) != 0
}

func (b *Bitmap) setLocked(n uint32, v bool) {
	if v {
		b.bits[n/8] |= 1 << (n % 8)
	} else {
		b.bits[n/8] &^= 1 << (n % 8)
	}
}

// IsAllocated is a constant-time lookup of n's allocation state.
func (b *Bitmap) IsAllocated(n uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n >= b.size {
		return true
	}
	return b.testLocked(n)
}

// Allocate returns the lowest-numbered free unit and marks it allocated,
// or ok=false if none remain.
func (b *Bitmap) Allocate() (id uint32, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := uint32(0); i < b.size; i++ {
		if !b.testLocked(i) {
			b.setLocked(i, true)
			b.freeCount--
			return i, true
		}
	}
	return 0, false
}

// Free marks unit n free again. Returns false if n was already free or
// out of range.
func (b *Bitmap) Free(n uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n >= b.size || !b.testLocked(n) {
		return false
	}
	b.setLocked(n, false)
	b.freeCount++
	return true
}

// MarkAllocated forces unit n allocated, for reserving a specific unit
// rather than the lowest free one. It is a no-op if n is out of range or
// already allocated.
func (b *Bitmap) MarkAllocated(n uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < b.size && !b.testLocked(n) {
		b.setLocked(n, true)
		b.freeCount--
	}
}

// FreeCount returns the number of currently-free units.
func (b *Bitmap) FreeCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freeCount
}

// Size returns the total number of units tracked.
func (b *Bitmap) Size() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
