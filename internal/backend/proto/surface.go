package proto

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

type Compositor struct{ wl.BaseProxy }

func NewCompositor(ctx *wl.Context) *Compositor {
	c := &Compositor{}
	c.SetContext(ctx)
	return c
}

func (c *Compositor) CreateSurface() (*Surface, error) {
	const opcode = 0
	s := &Surface{}
	s.SetContext(c.Context())
	s.SetID(c.Context().AllocateID())
	c.Context().Register(s)
	if err := c.Context().SendRequest(c, opcode, s); err != nil {
		c.Context().Unregister(s)
		return nil, err
	}
	return s, nil
}

func (c *Compositor) CreateRegion() (*Region, error) {
	const opcode = 1
	r := &Region{}
	r.SetContext(c.Context())
	r.SetID(c.Context().AllocateID())
	c.Context().Register(r)
	if err := c.Context().SendRequest(c, opcode, r); err != nil {
		c.Context().Unregister(r)
		return nil, err
	}
	return r, nil
}

func (c *Compositor) Dispatch(*wl.Event) {}

// Surface wraps wl_surface: the outer-side proxy for everything waywall
// composites, including the root UI surface and the cursor surface.
type Surface struct {
	wl.BaseProxy

	enterHandler func(outputName uint32)
	leaveHandler func(outputName uint32)
}

func (s *Surface) SetEnterHandler(f func(outputName uint32)) { s.enterHandler = f }
func (s *Surface) SetLeaveHandler(f func(outputName uint32)) { s.leaveHandler = f }

func (s *Surface) Attach(buffer *Buffer, x, y int32) error {
	const opcode = 1
	var bufArg interface{}
	if buffer != nil {
		bufArg = buffer
	}
	return s.Context().SendRequest(s, opcode, bufArg, x, y)
}

func (s *Surface) Damage(x, y, w, h int32) error {
	const opcode = 2
	return s.Context().SendRequest(s, opcode, x, y, w, h)
}

func (s *Surface) Frame() (*Callback, error) {
	const opcode = 3
	cb := &Callback{}
	cb.SetContext(s.Context())
	cb.SetID(s.Context().AllocateID())
	s.Context().Register(cb)
	if err := s.Context().SendRequest(s, opcode, cb); err != nil {
		s.Context().Unregister(cb)
		return nil, err
	}
	return cb, nil
}

func (s *Surface) SetOpaqueRegion(region *Region) error {
	const opcode = 4
	var r interface{}
	if region != nil {
		r = region
	}
	return s.Context().SendRequest(s, opcode, r)
}

func (s *Surface) SetInputRegion(region *Region) error {
	const opcode = 5
	var r interface{}
	if region != nil {
		r = region
	}
	return s.Context().SendRequest(s, opcode, r)
}

func (s *Surface) Commit() error {
	const opcode = 6
	return s.Context().SendRequest(s, opcode)
}

func (s *Surface) SetBufferScale(scale int32) error {
	const opcode = 8
	return s.Context().SendRequest(s, opcode, scale)
}

func (s *Surface) DamageBuffer(x, y, w, h int32) error {
	const opcode = 9
	return s.Context().SendRequest(s, opcode, x, y, w, h)
}

func (s *Surface) Destroy() error {
	const opcode = 0
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

func (s *Surface) Dispatch(event *wl.Event) {
	data := event.Data()
	if len(data) < 4 {
		return
	}
	output := binary.LittleEndian.Uint32(data)
	switch event.Opcode {
	case 0:
		if s.enterHandler != nil {
			s.enterHandler(output)
		}
	case 1:
		if s.leaveHandler != nil {
			s.leaveHandler(output)
		}
	}
}

type Region struct{ wl.BaseProxy }

func (r *Region) Add(x, y, w, h int32) error {
	const opcode = 1
	return r.Context().SendRequest(r, opcode, x, y, w, h)
}

func (r *Region) Subtract(x, y, w, h int32) error {
	const opcode = 2
	return r.Context().SendRequest(r, opcode, x, y, w, h)
}

func (r *Region) Destroy() error {
	const opcode = 0
	err := r.Context().SendRequest(r, opcode)
	r.Context().Unregister(r)
	return err
}

func (r *Region) Dispatch(*wl.Event) {}

type Subcompositor struct{ wl.BaseProxy }

func NewSubcompositor(ctx *wl.Context) *Subcompositor {
	sc := &Subcompositor{}
	sc.SetContext(ctx)
	return sc
}

func (sc *Subcompositor) GetSubsurface(surface, parent *Surface) (*Subsurface, error) {
	const opcode = 1
	ss := &Subsurface{}
	ss.SetContext(sc.Context())
	ss.SetID(sc.Context().AllocateID())
	sc.Context().Register(ss)
	if err := sc.Context().SendRequest(sc, opcode, ss, surface, parent); err != nil {
		sc.Context().Unregister(ss)
		return nil, err
	}
	return ss, nil
}

func (sc *Subcompositor) Dispatch(*wl.Event) {}

// Subsurface wraps wl_subsurface, used for the UI scene surface and every
// view (xdg or Xwayland) layered atop the root UI surface.
type Subsurface struct{ wl.BaseProxy }

func (s *Subsurface) SetPosition(x, y int32) error {
	const opcode = 1
	return s.Context().SendRequest(s, opcode, x, y)
}

func (s *Subsurface) PlaceAbove(sibling *Surface) error {
	const opcode = 2
	return s.Context().SendRequest(s, opcode, sibling)
}

func (s *Subsurface) PlaceBelow(sibling *Surface) error {
	const opcode = 3
	return s.Context().SendRequest(s, opcode, sibling)
}

func (s *Subsurface) SetSync() error {
	const opcode = 4
	return s.Context().SendRequest(s, opcode)
}

func (s *Subsurface) SetDesync() error {
	const opcode = 5
	return s.Context().SendRequest(s, opcode)
}

func (s *Subsurface) Destroy() error {
	const opcode = 0
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

func (s *Subsurface) Dispatch(*wl.Event) {}
