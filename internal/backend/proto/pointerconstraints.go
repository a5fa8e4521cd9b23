package proto

import "github.com/bnema/wlturbo/wl"

const (
	LifetimeOneshot    uint32 = 1
	LifetimePersistent uint32 = 2
)

// PointerConstraints wraps zwp_pointer_constraints_v1, grounded on this
// stack's existing pointer-constraints bindings (themselves hand-authored
// atop wlturbo) and extended here to the outer-connection direction.
type PointerConstraints struct{ wl.BaseProxy }

func NewPointerConstraints(ctx *wl.Context) *PointerConstraints {
	c := &PointerConstraints{}
	c.SetContext(ctx)
	return c
}

func (c *PointerConstraints) LockPointer(surface *Surface, pointer *Pointer, region *Region, lifetime uint32) (*LockedPointer, error) {
	const opcode = 1
	lp := &LockedPointer{}
	lp.SetContext(c.Context())
	lp.SetID(c.Context().AllocateID())
	c.Context().Register(lp)
	var r interface{}
	if region != nil {
		r = region
	}
	if err := c.Context().SendRequest(c, opcode, lp, surface, pointer, r, lifetime); err != nil {
		c.Context().Unregister(lp)
		return nil, err
	}
	return lp, nil
}

func (c *PointerConstraints) ConfinePointer(surface *Surface, pointer *Pointer, region *Region, lifetime uint32) (*ConfinedPointer, error) {
	const opcode = 2
	cp := &ConfinedPointer{}
	cp.SetContext(c.Context())
	cp.SetID(c.Context().AllocateID())
	c.Context().Register(cp)
	var r interface{}
	if region != nil {
		r = region
	}
	if err := c.Context().SendRequest(c, opcode, cp, surface, pointer, r, lifetime); err != nil {
		c.Context().Unregister(cp)
		return nil, err
	}
	return cp, nil
}

func (c *PointerConstraints) Dispatch(*wl.Event) {}

type LockedPointer struct {
	wl.BaseProxy

	lockedHandler   func()
	unlockedHandler func()
}

func (l *LockedPointer) SetLockedHandler(f func())   { l.lockedHandler = f }
func (l *LockedPointer) SetUnlockedHandler(f func()) { l.unlockedHandler = f }

func (l *LockedPointer) SetCursorPositionHint(x, y wl.Fixed) error {
	const opcode = 1
	return l.Context().SendRequest(l, opcode, x, y)
}

func (l *LockedPointer) Destroy() error {
	const opcode = 0
	err := l.Context().SendRequest(l, opcode)
	l.Context().Unregister(l)
	return err
}

func (l *LockedPointer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0:
		if l.lockedHandler != nil {
			l.lockedHandler()
		}
	case 1:
		if l.unlockedHandler != nil {
			l.unlockedHandler()
		}
	}
}

type ConfinedPointer struct {
	wl.BaseProxy

	confinedHandler   func()
	unconfinedHandler func()
}

func (c *ConfinedPointer) SetConfinedHandler(f func())   { c.confinedHandler = f }
func (c *ConfinedPointer) SetUnconfinedHandler(f func()) { c.unconfinedHandler = f }

func (c *ConfinedPointer) Destroy() error {
	const opcode = 0
	err := c.Context().SendRequest(c, opcode)
	c.Context().Unregister(c)
	return err
}

func (c *ConfinedPointer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0:
		if c.confinedHandler != nil {
			c.confinedHandler()
		}
	case 1:
		if c.unconfinedHandler != nil {
			c.unconfinedHandler()
		}
	}
}

// RelativePointerManager wraps zwp_relative_pointer_manager_v1, used to get
// unaccelerated relative motion for the confined/locked pointer case.
type RelativePointerManager struct{ wl.BaseProxy }

func NewRelativePointerManager(ctx *wl.Context) *RelativePointerManager {
	m := &RelativePointerManager{}
	m.SetContext(ctx)
	return m
}

func (m *RelativePointerManager) GetRelativePointer(pointer *Pointer) (*RelativePointer, error) {
	const opcode = 1
	rp := &RelativePointer{}
	rp.SetContext(m.Context())
	rp.SetID(m.Context().AllocateID())
	m.Context().Register(rp)
	if err := m.Context().SendRequest(m, opcode, rp, pointer); err != nil {
		m.Context().Unregister(rp)
		return nil, err
	}
	return rp, nil
}

func (m *RelativePointerManager) Dispatch(*wl.Event) {}

type RelativePointer struct {
	wl.BaseProxy

	motionHandler func(dx, dy wl.Fixed)
}

func (r *RelativePointer) SetRelativeMotionHandler(f func(dx, dy wl.Fixed)) { r.motionHandler = f }

func (r *RelativePointer) Destroy() error {
	const opcode = 0
	err := r.Context().SendRequest(r, opcode)
	r.Context().Unregister(r)
	return err
}

func (r *RelativePointer) Dispatch(event *wl.Event) {
	if event.Opcode != 0 {
		return
	}
	// relative_motion(utime_hi, utime_lo, dx, dy, dx_unaccel, dy_unaccel)
	ar := newArgReader(event.Data())
	_, _ = ar.uint32()
	_, _ = ar.uint32()
	_, _ = ar.int32()
	_, _ = ar.int32()
	dxu, _ := ar.int32()
	dyu, _ := ar.int32()
	if r.motionHandler != nil {
		r.motionHandler(wl.Fixed(dxu), wl.Fixed(dyu))
	}
}
