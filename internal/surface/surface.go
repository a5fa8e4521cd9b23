// Package surface implements the inner wl_surface/wl_region proxies: every
// inner client's drawable state, double-buffered per the Wayland protocol
// and forwarded to its paired outer surface on commit.
package surface

import (
	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/buffer"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	opDestroy           uint16 = 0
	opAttach            uint16 = 1
	opDamage            uint16 = 2
	opFrame             uint16 = 3
	opSetOpaqueRegion   uint16 = 4
	opSetInputRegion    uint16 = 5
	opCommit            uint16 = 6
	opSetBufferScale    uint16 = 8
	opDamageBuffer      uint16 = 9

	errorInvalidScale  uint32 = 0
	errorInvalidOffset uint32 = 4
)

// RegionOp is one accumulated add/subtract call on a pending wl_region,
// replayed in order against a freshly created outer region on commit.
type RegionOp struct {
	Subtract       bool
	X, Y, W, H     int32
}

// Role is implemented by whatever protocol object claims a surface's role
// (xdg_toplevel, the cursor component, an xwayland_surface). Only one role
// may be attached to a surface at a time.
type Role interface {
	Name() string
	// Commit is invoked after the surface's own double-buffered state has
	// been forwarded, so role implementations can react to the new
	// current buffer/size.
	Commit(s *Surface)
	Destroy()
}

type pendingState struct {
	hasAttach    bool
	attached     *buffer.Buffer
	damage       []Rect
	damageBuffer []Rect
	hasScale     bool
	scale        int32
	opaqueOps    []RegionOp
	hasOpaqueSet bool
}

type Rect struct{ X, Y, W, H int32 }

// Surface is the inner wl_surface resource. It owns the paired outer
// wl_surface proxy and mirrors commits onto it.
type Surface struct {
	wire.BaseObject

	client *wire.Client
	outer  *proto.Surface

	pending pendingState
	current struct {
		buffer *buffer.Buffer
		scale  int32
	}

	role Role

	// regionFactory builds a fresh outer region, used to mirror a pending
	// opaque-region add/subtract op list. Set by whatever constructs the
	// surface, since only it holds the outer compositor binding.
	regionFactory func() (*proto.Region, error)

	// CommitSignal fires with the surface immediately before the pending
	// state is cleared, letting observers (xdg surface, XWM) inspect the
	// about-to-be-current buffer.
	CommitSignal wire.Signal[*Surface]

	frameCallback uint32 // inner client object id of the next wl_callback, 0 if none pending
}

func New(client *wire.Client, id uint32, version uint32, outer *proto.Surface) *Surface {
	s := &Surface{
		BaseObject: wire.NewBaseObject(id, "wl_surface", version),
		client:     client,
		outer:      outer,
	}
	s.current.scale = 1
	s.pending.scale = 1
	return s
}

func (s *Surface) Outer() *proto.Surface { return s.outer }
func (s *Surface) CurrentBuffer() *buffer.Buffer { return s.current.buffer }
func (s *Surface) Role() Role { return s.role }

// SetRole assigns a role to the surface, returning a protocol error if a
// role with a different name is already set. Assigning a role with the same
// name replaces the current role object.
func (s *Surface) SetRole(r Role) error {
	if s.role != nil && s.role.Name() != r.Name() {
		return wire.Errorf(s.ID(), 0, "wl_surface already has role %s", s.role.Name())
	}
	s.role = r
	return nil
}

func (s *Surface) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case opDestroy:
		s.client.Remove(s.ID())
		return nil
	case opAttach:
		bufID, err := r.Uint32()
		if err != nil {
			return err
		}
		x, err := r.Int32()
		if err != nil {
			return err
		}
		y, err := r.Int32()
		if err != nil {
			return err
		}
		if (x != 0 || y != 0) && s.Version() >= 5 {
			return wire.Errorf(s.ID(), errorInvalidOffset, "non-zero attach offset is not supported")
		}
		var buf *buffer.Buffer
		if bufID != 0 {
			obj, ok := s.client.Lookup(bufID)
			if !ok {
				return wire.Errorf(s.ID(), errorInvalidOffset, "attach: no such buffer %d", bufID)
			}
			b, ok := obj.(*buffer.Buffer)
			if !ok {
				return wire.Errorf(s.ID(), errorInvalidOffset, "attach: object %d is not a buffer", bufID)
			}
			buf = b
		}
		s.pending.hasAttach = true
		s.pending.attached = buf
		return nil
	case opDamage:
		x, _ := r.Int32()
		y, _ := r.Int32()
		w, _ := r.Int32()
		h, _ := r.Int32()
		s.pending.damage = append(s.pending.damage, Rect{x, y, w, h})
		return nil
	case opDamageBuffer:
		x, _ := r.Int32()
		y, _ := r.Int32()
		w, _ := r.Int32()
		h, _ := r.Int32()
		s.pending.damageBuffer = append(s.pending.damageBuffer, Rect{x, y, w, h})
		return nil
	case opFrame:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		cb := newFrameCallback(id)
		s.client.Insert(cb)
		s.frameCallback = id
		outerCb, err := s.outer.Frame()
		if err != nil {
			return err
		}
		outerCb.SetDoneHandler(func(data uint32) {
			_ = s.client.SendEvent(id, 0, wire.NewWriter().PutUint32(data).Bytes(), nil)
			s.client.Remove(id)
		})
		return nil
	case opSetOpaqueRegion:
		regID, err := r.Uint32()
		if err != nil {
			return err
		}
		s.pending.hasOpaqueSet = true
		s.pending.opaqueOps = nil
		if regID != 0 {
			if obj, ok := s.client.Lookup(regID); ok {
				if reg, ok := obj.(*Region); ok {
					s.pending.opaqueOps = append([]RegionOp(nil), reg.ops...)
				}
			}
		}
		return nil
	case opSetInputRegion:
		// Unimplemented by design: input is gated by the UI, never routed
		// to individual client subsurfaces.
		_, _ = r.Uint32()
		return nil
	case opSetBufferScale:
		scale, err := r.Int32()
		if err != nil {
			return err
		}
		if scale <= 0 {
			return wire.Errorf(s.ID(), errorInvalidScale, "buffer scale must be positive, got %d", scale)
		}
		s.pending.hasScale = true
		s.pending.scale = scale
		return nil
	case opCommit:
		return s.commit()
	default:
		return wire.Errorf(s.ID(), 0, "wl_surface has no request %d", opcode)
	}
}

func (s *Surface) commit() error {
	if s.pending.hasAttach {
		if err := s.outer.Attach(outerBufferOf(s.pending.attached), 0, 0); err != nil {
			return err
		}
		s.current.buffer = s.pending.attached
	}
	for _, d := range s.pending.damage {
		_ = s.outer.Damage(d.X, d.Y, d.W, d.H)
	}
	for _, d := range s.pending.damageBuffer {
		_ = s.outer.DamageBuffer(d.X, d.Y, d.W, d.H)
	}
	if s.pending.hasScale {
		_ = s.outer.SetBufferScale(s.pending.scale)
		s.current.scale = s.pending.scale
	}
	if s.pending.hasOpaqueSet {
		if len(s.pending.opaqueOps) == 0 {
			_ = s.outer.SetOpaqueRegion(nil)
		} else if s.outer.Context() != nil {
			// Region creation happens through the backend's compositor;
			// callers that need opaque regions wire a region factory in
			// via SetRegionFactory.
			if s.regionFactory != nil {
				region, err := s.regionFactory()
				if err == nil {
					for _, op := range s.pending.opaqueOps {
						if op.Subtract {
							_ = region.Subtract(op.X, op.Y, op.W, op.H)
						} else {
							_ = region.Add(op.X, op.Y, op.W, op.H)
						}
					}
					_ = s.outer.SetOpaqueRegion(region)
				}
			}
		}
	}

	if s.role != nil {
		s.role.Commit(s)
	}
	s.CommitSignal.Emit(s)

	s.pending = pendingState{scale: s.current.scale}
	return s.outer.Commit()
}

// SetRegionFactory installs the callback used to materialise an outer
// wl_region when the pending state has opaque-region ops to forward.
func (s *Surface) SetRegionFactory(f func() (*proto.Region, error)) {
	s.regionFactory = f
}

func outerBufferOf(b *buffer.Buffer) *proto.Buffer {
	if b == nil {
		return nil
	}
	return b.Outer()
}

func (s *Surface) Destroy() {
	s.MarkDestroyed()
	if s.role != nil {
		s.role.Destroy()
	}
	_ = s.outer.Destroy()
}

type frameCallback struct {
	wire.BaseObject
}

func newFrameCallback(id uint32) *frameCallback {
	return &frameCallback{BaseObject: wire.NewBaseObject(id, "wl_callback", 1)}
}

func (c *frameCallback) Dispatch(uint16, *wire.Reader, wire.Message) error { return nil }
func (c *frameCallback) Destroy()                                          {}
