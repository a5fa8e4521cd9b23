package buffer

import (
	"github.com/tesselslate/waywall/internal/backend"
	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	shmOpCreatePool uint16 = 0

	poolOpCreateBuffer uint16 = 0
	poolOpDestroy      uint16 = 1
	poolOpResize       uint16 = 2
)

// Shm is the inner wl_shm global: formats are advertised at bind time from
// whatever the backend recorded from the host during startup.
type Shm struct {
	wire.BaseObject

	backend *backend.Backend
	client  *wire.Client
}

func NewShm(client *wire.Client, id uint32, version uint32, be *backend.Backend) *Shm {
	s := &Shm{
		BaseObject: wire.NewBaseObject(id, "wl_shm", version),
		backend:    be,
		client:     client,
	}
	for _, f := range be.ShmFormats() {
		_ = client.SendEvent(id, 0, wire.NewWriter().PutUint32(f).Bytes(), nil)
	}
	return s
}

func (s *Shm) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	if opcode != shmOpCreatePool {
		return wire.Errorf(s.ID(), 0, "wl_shm has no request %d", opcode)
	}
	id, err := r.Uint32()
	if err != nil {
		return err
	}
	size, err := r.Int32()
	if err != nil {
		return err
	}
	fd, err := r.FD(msg, new(int))
	if err != nil {
		return err
	}

	outerPool, err := s.backend.Shm.CreatePool(fd, size)
	if err != nil {
		logger.Errorf("wl_shm.create_pool: outer request failed: %v", err)
		return wire.Errorf(s.ID(), 2, "no_memory")
	}
	pool := &ShmPool{
		BaseObject: wire.NewBaseObject(id, "wl_shm_pool", s.Version()),
		client:     s.client,
		backend:    s.backend,
		outer:      outerPool,
	}
	s.client.Insert(pool)
	return nil
}

func (s *Shm) Destroy() {}

// ShmPool is the inner wl_shm_pool resource.
type ShmPool struct {
	wire.BaseObject

	client  *wire.Client
	backend *backend.Backend
	outer   *proto.ShmPool
}

func (p *ShmPool) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case poolOpCreateBuffer:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		offset, _ := r.Int32()
		width, _ := r.Int32()
		height, _ := r.Int32()
		stride, _ := r.Int32()
		format, _ := r.Uint32()

		outerBuf, err := p.outer.CreateBuffer(offset, width, height, stride, format)
		if err != nil {
			logger.Errorf("wl_shm_pool.create_buffer: outer request failed: %v", err)
			return wire.Errorf(p.ID(), 2, "no_memory")
		}
		buf := New(p.client, id, outerBuf, KindShm)
		p.client.Insert(buf)
		return nil
	case poolOpDestroy:
		p.client.Remove(p.ID())
		return nil
	case poolOpResize:
		size, err := r.Int32()
		if err != nil {
			return err
		}
		return p.outer.Resize(size)
	default:
		return wire.Errorf(p.ID(), 0, "wl_shm_pool has no request %d", opcode)
	}
}

func (p *ShmPool) Destroy() {
	_ = p.outer.Destroy()
}
