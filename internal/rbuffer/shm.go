package rbuffer

import (
	"github.com/bnema/wlturbo/wl"
)

// allocateShm creates an anonymous sealed memfd of the given size and maps
// it, returning the fd (for create_pool, which dup's it over the wire) and
// the mapped memory for direct pixel writes.
func allocateShm(size int) (fd int, mem []byte, err error) {
	fd, err = wl.CreateAnonymousFile(int64(size))
	if err != nil {
		return -1, nil, err
	}
	mem, err = wl.MapMemory(fd, size)
	if err != nil {
		return -1, nil, err
	}
	return fd, mem, nil
}
