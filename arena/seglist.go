package arena

import "unsafe"

// Segregated free-list engine. Eight fixed size classes plus one list of
// large remainders; blocks split on demand, never coalesced. Class
// blocks always have exactly the class size so that free can rebuild the
// class membership from the committed size alone.

// segInit places the engine state at the start of the implementation
// sub-region and installs the whole remaining heap as a single node on
// the large-remainder list.
func (a *Allocator) segInit() error {
	start := alignPtr(a.implBase, SegAlign)
	end := uintptr(a.implBase) + a.implSize
	if uintptr(start)+unsafe.Sizeof(segEngine{}) > end {
		return ErrRegionTooSmall
	}

	eng := (*segEngine)(start)
	*eng = segEngine{}

	heap := alignPtr(unsafe.Add(start, unsafe.Sizeof(segEngine{})), SegAlign)
	if uintptr(heap) >= end || end-uintptr(heap) < sizeClasses[0] {
		return ErrRegionTooSmall
	}
	eng.heapBase = heap
	eng.heapSize = end - uintptr(heap)

	node := (*segFreeNode)(heap)
	node.next = nil
	node.size = eng.heapSize
	eng.large = heap

	a.engine = unsafe.Pointer(eng)
	a.stats.HeapSize = uint64(eng.heapSize)
	return nil
}

// segClassFor returns the index of the smallest class holding total
// bytes, or -1 when total exceeds the largest class.
func segClassFor(total uintptr) int {
	for i, size := range sizeClasses {
		if total <= size {
			return i
		}
	}
	return -1
}

// carveLarge removes the first node of at least want bytes from the large
// list, takes want bytes from its front and returns the remainder to the
// list head when it can still hold the smallest class.
func (eng *segEngine) carveLarge(want uintptr) unsafe.Pointer {
	var prev *segFreeNode
	for p := eng.large; p != nil; {
		node := (*segFreeNode)(p)
		if node.size < want {
			prev = node
			p = node.next
			continue
		}

		if prev == nil {
			eng.large = node.next
		} else {
			prev.next = node.next
		}

		remainder := node.size - want
		if remainder >= sizeClasses[0] {
			rest := (*segFreeNode)(unsafe.Add(p, want))
			rest.size = remainder
			rest.next = eng.large
			eng.large = unsafe.Pointer(rest)
		}
		return p
	}
	return nil
}

func (a *Allocator) segAlloc(size uintptr) unsafe.Pointer {
	eng := (*segEngine)(a.engine)
	total := alignUp(size+segHeaderSize, SegAlign)

	var block unsafe.Pointer
	var committed uintptr

	if class := segClassFor(total); class >= 0 {
		committed = sizeClasses[class]
		if total > committed {
			// The class search guarantees total <= class size; a payload
			// beyond that would overrun the carved block.
			Error("segregated: total %d exceeds class size %d", total, committed)
			a.stats.FailedAllocations++
			return nil
		}
		if head := eng.classes[class]; head != nil {
			eng.classes[class] = (*segFreeNode)(head).next
			block = head
		} else {
			block = eng.carveLarge(committed)
		}
	} else {
		committed = total
		block = eng.carveLarge(total)
	}

	if block == nil {
		Debug("segregated: no block for %d bytes (total %d)", size, total)
		a.stats.FailedAllocations++
		return nil
	}

	hdr := (*segBlockHeader)(block)
	hdr.committed = uint32(committed)
	hdr.requested = uint32(size)
	hdr.magic = segMagic

	a.noteAlloc(committed, size)
	return unsafe.Add(block, segHeaderSize)
}

func (a *Allocator) segFree(p unsafe.Pointer) {
	eng := (*segEngine)(a.engine)

	block := unsafe.Add(p, -int(segHeaderSize))
	hdr := (*segBlockHeader)(block)
	if hdr.magic != segMagic {
		Error("segregated: invalid pointer %p (bad magic 0x%08X)", p, hdr.magic)
		return
	}

	committed := uintptr(hdr.committed)
	requested := uintptr(hdr.requested)
	a.noteFree(committed, requested)
	hdr.magic = 0

	node := (*segFreeNode)(block)
	node.size = committed
	for i, size := range sizeClasses {
		if committed == size {
			node.next = eng.classes[i]
			eng.classes[i] = block
			return
		}
	}
	node.next = eng.large
	eng.large = block
}
