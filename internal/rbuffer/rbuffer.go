// Package rbuffer implements the remote-buffer manager: a refcounted pool
// of solid-colour outer shm buffers used for the UI background and
// scripted solid rectangles, per spec §4.11.
package rbuffer

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/tesselslate/waywall/internal/backend/proto"
)

const (
	maxColours = 64
	bytesPerPixel = 4
)

type slot struct {
	buffer   *proto.Buffer
	refcount int
	offset   int
}

// Manager owns one power-of-two-sized outer shm pool and up to 64 solid
// ARGB colour buffers backed by it.
type Manager struct {
	shm  *proto.Shm
	pool *proto.ShmPool
	mem  []byte // mmap'd pool memory, written directly for each new colour

	size int
	used int

	slots map[uint32]*slot // keyed by packed ARGB
}

// New allocates a pool sized for up to maxColours 1x1 pixel buffers, rounded
// up to the next power of two.
func New(shm *proto.Shm) (*Manager, error) {
	size := nextPow2(maxColours * bytesPerPixel)
	fd, mem, err := allocateShm(size)
	if err != nil {
		return nil, fmt.Errorf("rbuffer: allocate pool: %w", err)
	}
	pool, err := shm.CreatePool(fd, int32(size))
	_ = unix.Close(fd)
	if err != nil {
		return nil, fmt.Errorf("rbuffer: create_pool: %w", err)
	}
	return &Manager{
		shm:   shm,
		pool:  pool,
		mem:   mem,
		size:  size,
		slots: make(map[uint32]*slot),
	}, nil
}

// Acquire returns a 1x1 solid-colour buffer for the given packed ARGB
// colour, incrementing its refcount if one already exists.
func (m *Manager) Acquire(argb uint32) (*proto.Buffer, error) {
	if s, ok := m.slots[argb]; ok {
		s.refcount++
		return s.buffer, nil
	}
	if len(m.slots) >= maxColours {
		return nil, fmt.Errorf("rbuffer: colour pool exhausted (%d slots in use)", maxColours)
	}

	offset := m.used * bytesPerPixel
	m.used++
	writeARGB(m.mem[offset:offset+bytesPerPixel], argb)

	const formatArgb8888 = 0
	buf, err := m.pool.CreateBuffer(int32(offset), 1, 1, bytesPerPixel, formatArgb8888)
	if err != nil {
		return nil, fmt.Errorf("rbuffer: create_buffer: %w", err)
	}
	m.slots[argb] = &slot{buffer: buf, refcount: 1, offset: offset}
	return buf, nil
}

// Release decrements the refcount for a colour; the underlying buffer is
// kept alive regardless (colour slots are not reused once allocated, since
// waywall only ever needs a handful of distinct colours per run).
func (m *Manager) Release(argb uint32) {
	if s, ok := m.slots[argb]; ok && s.refcount > 0 {
		s.refcount--
	}
}

func writeARGB(dst []byte, argb uint32) {
	dst[0] = byte(argb)
	dst[1] = byte(argb >> 8)
	dst[2] = byte(argb >> 16)
	dst[3] = byte(argb >> 24)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
