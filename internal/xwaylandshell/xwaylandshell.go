// Package xwaylandshell implements the inner xwayland_shell_v1 global,
// bound only by Xwayland itself (spec.md §11, inner protocol list). It
// exists purely to carry the WL_SURFACE_SERIAL association path of spec
// §4.9.3: Xwayland requests an xwayland_surface_v1 for each wl_surface it
// creates and calls set_serial on it once the matching X11 ClientMessage
// has told it which serial to use.
package xwaylandshell

import (
	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	shellOpDestroy           uint16 = 0
	shellOpGetXwaylandSurface uint16 = 1

	xsurfaceOpSetSerial uint16 = 1
	xsurfaceOpDestroy   uint16 = 0
)

// Manager is the inner xwayland_shell_v1 global. NewSurfaceSignal fires
// once per get_xwayland_surface request, letting the XWM track unpaired
// shell surfaces per spec §4.9.3.
type Manager struct {
	wire.BaseObject
	client *wire.Client

	NewSurfaceSignal wire.Signal[*Surface]
}

func NewManager(client *wire.Client, id, version uint32) *Manager {
	return &Manager{BaseObject: wire.NewBaseObject(id, "xwayland_shell_v1", version), client: client}
}

func (m *Manager) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case shellOpDestroy:
		m.client.Remove(m.ID())
		return nil
	case shellOpGetXwaylandSurface:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		surfaceID, err := r.Uint32()
		if err != nil {
			return err
		}
		obj, ok := m.client.Lookup(surfaceID)
		if !ok {
			return wire.Errorf(m.ID(), 0, "get_xwayland_surface: no such surface %d", surfaceID)
		}
		s, ok := obj.(*surface.Surface)
		if !ok {
			return wire.Errorf(m.ID(), 0, "get_xwayland_surface: object %d is not a wl_surface", surfaceID)
		}
		xs := newSurface(m.client, id, m.Version(), s)
		m.client.Insert(xs)
		m.NewSurfaceSignal.Emit(xs)
		return nil
	default:
		return wire.Errorf(m.ID(), 0, "xwayland_shell_v1 has no request %d", opcode)
	}
}

func (m *Manager) Destroy() {}

// Surface is the inner xwayland_surface_v1 resource: a thin tag object
// whose only job is forwarding set_serial to whoever is tracking pairing
// (the XWM), exposed via SetSerialSignal/DestroySignal.
type Surface struct {
	wire.BaseObject
	client *wire.Client

	WlSurface *surface.Surface

	SetSerialSignal wire.Signal[uint64]
	DestroySignal   wire.Signal[*Surface]
}

func newSurface(client *wire.Client, id, version uint32, wlSurface *surface.Surface) *Surface {
	return &Surface{
		BaseObject: wire.NewBaseObject(id, "xwayland_surface_v1", version),
		client:     client,
		WlSurface:  wlSurface,
	}
}

func (s *Surface) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case xsurfaceOpSetSerial:
		lo, err := r.Uint32()
		if err != nil {
			return err
		}
		hi, err := r.Uint32()
		if err != nil {
			return err
		}
		serial := uint64(lo) | uint64(hi)<<32
		s.SetSerialSignal.Emit(serial)
		return nil
	case xsurfaceOpDestroy:
		s.client.Remove(s.ID())
		return nil
	default:
		return wire.Errorf(s.ID(), 0, "xwayland_surface_v1 has no request %d", opcode)
	}
}

func (s *Surface) Destroy() {
	s.DestroySignal.Emit(s)
}
