// Package constraints implements the inner zwp_pointer_constraints_v1 /
// zwp_relative_pointer_manager_v1 globals, forwarding locks to the outer
// compositor and accumulating relative motion with sensitivity scaling,
// per spec §4.6.
package constraints

import (
	"github.com/bnema/wlturbo/wl"

	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	errAlreadyConstrained uint32 = 1

	lockedOpSetCursorHint uint16 = 1
	lockedOpDestroy       uint16 = 0
	lockedEventLocked     uint16 = 0
	lockedEventUnlocked   uint16 = 1

	relManagerOpGetRelativePointer uint16 = 1
	relPointerOpDestroy            uint16 = 0
	relPointerEventRelativeMotion  uint16 = 0

	constraintsOpLockPointer    uint16 = 1
	constraintsOpConfinePointer uint16 = 2
)

// Manager implements zwp_pointer_constraints_v1. confine_pointer is refused
// per spec §4.6: the known client only ever locks.
type Manager struct {
	wire.BaseObject
	client *wire.Client
	outer  *proto.PointerConstraints
}

func NewManager(client *wire.Client, id, version uint32, outer *proto.PointerConstraints) *Manager {
	return &Manager{
		BaseObject: wire.NewBaseObject(id, "zwp_pointer_constraints_v1", version),
		client:     client,
		outer:      outer,
	}
}

func (m *Manager) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case constraintsOpLockPointer:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		surfaceID, err := r.Uint32()
		if err != nil {
			return err
		}
		_, _ = r.Uint32() // pointer, unused: there is exactly one seat
		_, _ = r.Uint32() // region, unused: waywall locks over the whole surface
		lifetime, err := r.Uint32()
		if err != nil {
			return err
		}

		surfObj, ok := m.client.Lookup(surfaceID)
		if !ok {
			return wire.Errorf(m.ID(), errAlreadyConstrained, "lock_pointer: no such surface %d", surfaceID)
		}
		s, ok := surfObj.(*surface.Surface)
		if !ok {
			return wire.Errorf(m.ID(), errAlreadyConstrained, "lock_pointer: object %d is not a surface", surfaceID)
		}

		outerLocked, err := m.outer.LockPointer(s.Outer(), nil, nil, lifetime)
		if err != nil {
			return err
		}
		lp := &LockedPointer{
			BaseObject: wire.NewBaseObject(id, "zwp_locked_pointer_v1", m.Version()),
			client:     m.client,
			outer:      outerLocked,
		}
		outerLocked.SetLockedHandler(func() {
			_ = m.client.SendEvent(id, lockedEventLocked, nil, nil)
		})
		outerLocked.SetUnlockedHandler(func() {
			_ = m.client.SendEvent(id, lockedEventUnlocked, nil, nil)
		})
		m.client.Insert(lp)
		return nil
	case constraintsOpConfinePointer:
		return wire.Errorf(m.ID(), 0, "confine_pointer is not supported")
	default:
		return wire.Errorf(m.ID(), 0, "zwp_pointer_constraints_v1 has no request %d", opcode)
	}
}

func (m *Manager) Destroy() {}

// LockedPointer is the inner zwp_locked_pointer_v1 resource.
type LockedPointer struct {
	wire.BaseObject
	client *wire.Client
	outer  *proto.LockedPointer
}

func (l *LockedPointer) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case lockedOpSetCursorHint:
		x, err := r.Fixed()
		if err != nil {
			return err
		}
		y, err := r.Fixed()
		if err != nil {
			return err
		}
		return l.outer.SetCursorPositionHint(wl.Fixed(int32(x)), wl.Fixed(int32(y)))
	case lockedOpDestroy:
		l.client.Remove(l.ID())
		return nil
	default:
		return wire.Errorf(l.ID(), 0, "zwp_locked_pointer_v1 has no request %d", opcode)
	}
}

func (l *LockedPointer) Destroy() {
	l.MarkDestroyed()
	_ = l.outer.Destroy()
}

// RelativePointerManager implements zwp_relative_pointer_manager_v1.
type RelativePointerManager struct {
	wire.BaseObject
	client *wire.Client
	outer  *proto.RelativePointerManager

	// Sensitivity returns the current sensitivity scale factor, read fresh
	// on every motion event so configuration changes apply immediately.
	Sensitivity func() float64
}

func NewRelativePointerManager(client *wire.Client, id, version uint32, outer *proto.RelativePointerManager, sensitivity func() float64) *RelativePointerManager {
	return &RelativePointerManager{
		BaseObject:  wire.NewBaseObject(id, "zwp_relative_pointer_manager_v1", version),
		client:      client,
		outer:       outer,
		Sensitivity: sensitivity,
	}
}

func (m *RelativePointerManager) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	if opcode != relManagerOpGetRelativePointer {
		return wire.Errorf(m.ID(), 0, "zwp_relative_pointer_manager_v1 has no request %d", opcode)
	}
	id, err := r.Uint32()
	if err != nil {
		return err
	}
	_, _ = r.Uint32() // pointer, unused

	outerRel, err := m.outer.GetRelativePointer(nil)
	if err != nil {
		return err
	}
	rp := &RelativePointer{
		BaseObject: wire.NewBaseObject(id, "zwp_relative_pointer_v1", m.Version()),
		client:     m.client,
		outer:      outerRel,
		manager:    m,
	}
	outerRel.SetRelativeMotionHandler(rp.onMotion)
	m.client.Insert(rp)
	return nil
}

func (m *RelativePointerManager) Destroy() {}

// RelativePointer is the inner zwp_relative_pointer_v1 resource. Motion is
// scaled by the manager's sensitivity factor; only the integer part of the
// scaled delta is forwarded, with the fractional residual retained across
// events, matching the Boat-Eye pixel-sensitivity requirement in spec §4.6.
type RelativePointer struct {
	wire.BaseObject
	client  *wire.Client
	outer   *proto.RelativePointer
	manager *RelativePointerManager

	residualX, residualY float64
}

func (r *RelativePointer) onMotion(dx, dy wl.Fixed) {
	sens := 1.0
	if r.manager.Sensitivity != nil {
		sens = r.manager.Sensitivity()
	}
	scaledX := float64(int32(dx))/256.0*sens + r.residualX
	scaledY := float64(int32(dy))/256.0*sens + r.residualY

	intX := int32(scaledX)
	intY := int32(scaledY)
	r.residualX = scaledX - float64(intX)
	r.residualY = scaledY - float64(intY)

	if intX == 0 && intY == 0 {
		return
	}
	w := wire.NewWriter().
		PutUint32(0).PutUint32(0). // utime_hi, utime_lo: unused by the known client
		PutFixed(wire.Fixed(intX * 256)).
		PutFixed(wire.Fixed(intY * 256)).
		PutFixed(wire.Fixed(intX * 256)).
		PutFixed(wire.Fixed(intY * 256))
	_ = r.client.SendEvent(r.ID(), relPointerEventRelativeMotion, w.Bytes(), nil)
}

func (r *RelativePointer) Dispatch(opcode uint16, rd *wire.Reader, msg wire.Message) error {
	if opcode != relPointerOpDestroy {
		return wire.Errorf(r.ID(), 0, "zwp_relative_pointer_v1 has no request %d", opcode)
	}
	r.client.Remove(r.ID())
	return nil
}

func (r *RelativePointer) Destroy() {
	r.MarkDestroyed()
	_ = r.outer.Destroy()
}
