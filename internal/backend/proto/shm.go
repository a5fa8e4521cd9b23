package proto

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

// Shm wraps wl_shm: the shared-memory pixel format negotiation global.
type Shm struct {
	wl.BaseProxy

	formatHandler func(format uint32)
}

func NewShm(ctx *wl.Context) *Shm {
	s := &Shm{}
	s.SetContext(ctx)
	return s
}

func (s *Shm) SetFormatHandler(f func(format uint32)) { s.formatHandler = f }

func (s *Shm) CreatePool(fd int, size int32) (*ShmPool, error) {
	const opcode = 0
	pool := &ShmPool{}
	pool.SetContext(s.Context())
	pool.SetID(s.Context().AllocateID())
	s.Context().Register(pool)
	if err := s.Context().SendRequestWithFDs(s, opcode, []int{fd}, pool, size); err != nil {
		s.Context().Unregister(pool)
		return nil, err
	}
	return pool, nil
}

func (s *Shm) Dispatch(event *wl.Event) {
	if event.Opcode != 0 || s.formatHandler == nil {
		return
	}
	if d := event.Data(); len(d) >= 4 {
		s.formatHandler(binary.LittleEndian.Uint32(d))
	}
}

type ShmPool struct{ wl.BaseProxy }

func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	const opcode = 0
	buf := &Buffer{}
	buf.SetContext(p.Context())
	buf.SetID(p.Context().AllocateID())
	p.Context().Register(buf)
	if err := p.Context().SendRequest(p, opcode, buf, offset, width, height, stride, format); err != nil {
		p.Context().Unregister(buf)
		return nil, err
	}
	return buf, nil
}

func (p *ShmPool) Resize(size int32) error {
	const opcode = 2
	return p.Context().SendRequest(p, opcode, size)
}

func (p *ShmPool) Destroy() error {
	const opcode = 1
	err := p.Context().SendRequest(p, opcode)
	p.Context().Unregister(p)
	return err
}

func (p *ShmPool) Dispatch(*wl.Event) {}

// Buffer wraps wl_buffer. The host signals it is safe to reuse the backing
// memory by firing Release.
type Buffer struct {
	wl.BaseProxy

	releaseHandler func()
}

func (b *Buffer) SetReleaseHandler(f func()) { b.releaseHandler = f }

func (b *Buffer) Destroy() error {
	const opcode = 0
	err := b.Context().SendRequest(b, opcode)
	b.Context().Unregister(b)
	return err
}

func (b *Buffer) Dispatch(event *wl.Event) {
	if event.Opcode == 0 && b.releaseHandler != nil {
		b.releaseHandler()
	}
}
