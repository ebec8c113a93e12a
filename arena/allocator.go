package arena

import "unsafe"

// New carves region and places an allocator for the chosen algorithm
// inside it. The caller keeps ownership of region; the handle stays
// usable until Destroy. On failure nothing is retained and the caller
// still owns the region.
func New(alg Algorithm, region []byte) (*Allocator, error) {
	if alg != SegregatedFreelist && alg != Buddy {
		return nil, ErrInvalidAlgorithm
	}

	a, err := carve(alg, region)
	if err != nil {
		return nil, err
	}

	switch alg {
	case SegregatedFreelist:
		err = a.segInit()
	case Buddy:
		err = a.buddyInit()
	}
	if err != nil {
		return nil, err
	}

	Debug("created %s allocator, region %d bytes, heap %d bytes",
		alg, len(region), a.stats.HeapSize)
	return a, nil
}

// NewManaged obtains a backing region of size+16 bytes from the platform,
// creates an allocator over it and marks it owned, so Destroy releases
// the backing.
func NewManaged(alg Algorithm, size uintptr) (*Allocator, error) {
	buf, err := mapRegion(size + FacadeAlign)
	if err != nil {
		return nil, ErrNoSpaceAvailable
	}

	a, err := New(alg, buf)
	if err != nil {
		unmapRegion(buf)
		return nil, err
	}

	a.owned = true
	backings[a.rawBase] = buf
	return a, nil
}

// Destroy ends the allocator's lifetime. The backing region is released
// only when it was obtained by NewManaged. Destroy(nil) is a no-op;
// destroying the same live handle twice is undefined.
func (a *Allocator) Destroy() {
	if a == nil {
		return
	}
	if a.owned {
		if buf, ok := backings[a.rawBase]; ok {
			delete(backings, a.rawBase)
			unmapRegion(buf)
		}
	}
}

// Alloc returns a pointer to size bytes of payload, or nil when the
// request cannot be served. A zero size is rejected without touching
// the statistics.
func (a *Allocator) Alloc(size uintptr) unsafe.Pointer {
	if a == nil || size == 0 {
		return nil
	}
	switch a.algorithm {
	case SegregatedFreelist:
		return a.segAlloc(size)
	case Buddy:
		return a.buddyAlloc(size)
	}
	return nil
}

// Free releases an allocation previously returned by Alloc. A nil
// pointer or handle is a no-op.
func (a *Allocator) Free(p unsafe.Pointer) {
	if a == nil || p == nil {
		return
	}
	switch a.algorithm {
	case SegregatedFreelist:
		a.segFree(p)
	case Buddy:
		a.buddyFree(p)
	}
}

// Realloc allocates size bytes and, on success, frees the old block.
// Payload bytes are NOT copied: the façade carries no per-block size
// metadata, so callers needing a preserving realloc must track sizes
// themselves. Realloc(nil, n) behaves like Alloc(n); Realloc(p, 0)
// frees p and returns nil.
func (a *Allocator) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	if a == nil {
		return nil
	}
	if p == nil {
		return a.Alloc(size)
	}
	if size == 0 {
		a.Free(p)
		return nil
	}

	q := a.Alloc(size)
	if q != nil {
		a.Free(p)
	}
	return q
}

// Algorithm returns the engine tag the region was created with.
func (a *Allocator) Algorithm() Algorithm {
	return a.algorithm
}

// Offset translates a payload pointer into its offset within the raw
// region, the currency used by collaborators that cannot ship pointers.
func (a *Allocator) Offset(p unsafe.Pointer) uintptr {
	return uintptr(p) - uintptr(a.rawBase)
}

// At is the inverse of Offset.
func (a *Allocator) At(offset uintptr) unsafe.Pointer {
	return unsafe.Add(a.rawBase, offset)
}
