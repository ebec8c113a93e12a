//go:build unix

package arena

import "golang.org/x/sys/unix"

// mapRegion obtains an anonymous mapping from the platform.
func mapRegion(size uintptr) ([]byte, error) {
	return unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

func unmapRegion(buf []byte) error {
	return unix.Munmap(buf)
}
