// Package compositor implements the inner wl_compositor and wl_subcompositor
// globals (spec.md §11, inner protocol list). Every inner wl_surface and
// wl_region a client ever holds is created here; nothing else in the tree
// constructs one directly, which is why this package sits ahead of every
// other inner protocol package in the client-wiring order.
package compositor

import (
	"github.com/tesselslate/waywall/internal/backend"
	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	compositorOpCreateSurface uint16 = 0
	compositorOpCreateRegion  uint16 = 1

	subcompositorOpDestroy       uint16 = 0
	subcompositorOpGetSubsurface uint16 = 1

	subsurfaceOpDestroy     uint16 = 0
	subsurfaceOpSetPosition uint16 = 1
	subsurfaceOpPlaceAbove  uint16 = 2
	subsurfaceOpPlaceBelow  uint16 = 3
	subsurfaceOpSetSync     uint16 = 4
	subsurfaceOpSetDesync   uint16 = 5
)

// Compositor is the inner wl_compositor global. NewSurfaceSignal fires for
// every surface created by any client, letting the XWM pair an Xwayland
// client's freshly created wl_surface against a WL_SURFACE_ID it already
// received over the X11 wire, mirroring the original's on_new_wl_surface
// listener.
type Compositor struct {
	wire.BaseObject

	client *wire.Client
	be     *backend.Backend

	NewSurfaceSignal wire.Signal[*surface.Surface]
}

func NewCompositor(client *wire.Client, id, version uint32, be *backend.Backend) *Compositor {
	return &Compositor{
		BaseObject: wire.NewBaseObject(id, "wl_compositor", version),
		client:     client,
		be:         be,
	}
}

func (c *Compositor) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case compositorOpCreateSurface:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		outer, err := c.be.Compositor.CreateSurface()
		if err != nil {
			return wire.Errorf(c.ID(), 0, "create_surface: %v", err)
		}
		s := surface.New(c.client, id, c.Version(), outer)
		s.SetRegionFactory(func() (*proto.Region, error) {
			return c.be.Compositor.CreateRegion()
		})
		c.client.Insert(s)
		c.NewSurfaceSignal.Emit(s)
		return nil
	case compositorOpCreateRegion:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		c.client.Insert(surface.NewRegion(c.client, id))
		return nil
	default:
		return wire.Errorf(c.ID(), 0, "wl_compositor has no request %d", opcode)
	}
}

func (c *Compositor) Destroy() {}

// Subcompositor is the inner wl_subcompositor global, used by inner clients
// that build their own subsurface trees (the game client layering its own
// UI elements, notably); waywall's own view subsurfaces are built directly
// against the outer subcompositor binding in internal/ui and never pass
// through here.
type Subcompositor struct {
	wire.BaseObject

	client *wire.Client
	be     *backend.Backend
}

func NewSubcompositor(client *wire.Client, id, version uint32, be *backend.Backend) *Subcompositor {
	return &Subcompositor{
		BaseObject: wire.NewBaseObject(id, "wl_subcompositor", version),
		client:     client,
		be:         be,
	}
}

func (sc *Subcompositor) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case subcompositorOpDestroy:
		sc.client.Remove(sc.ID())
		return nil
	case subcompositorOpGetSubsurface:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		surfaceID, err := r.Uint32()
		if err != nil {
			return err
		}
		parentID, err := r.Uint32()
		if err != nil {
			return err
		}
		s, err := lookupSurface(sc.client, sc.ID(), surfaceID)
		if err != nil {
			return err
		}
		parent, err := lookupSurface(sc.client, sc.ID(), parentID)
		if err != nil {
			return err
		}
		outer, err := sc.be.Subcompositor.GetSubsurface(s.Outer(), parent.Outer())
		if err != nil {
			return wire.Errorf(sc.ID(), 0, "get_subsurface: %v", err)
		}
		ss := newSubsurface(sc.client, id, sc.Version(), outer)
		if err := s.SetRole(ss); err != nil {
			return err
		}
		sc.client.Insert(ss)
		return nil
	default:
		return wire.Errorf(sc.ID(), 0, "wl_subcompositor has no request %d", opcode)
	}
}

func (sc *Subcompositor) Destroy() {}

func lookupSurface(client *wire.Client, objID, surfaceID uint32) (*surface.Surface, error) {
	obj, ok := client.Lookup(surfaceID)
	if !ok {
		return nil, wire.Errorf(objID, 0, "no such object %d", surfaceID)
	}
	s, ok := obj.(*surface.Surface)
	if !ok {
		return nil, wire.Errorf(objID, 0, "object %d is not a wl_surface", surfaceID)
	}
	return s, nil
}

// subsurface is the inner wl_subsurface resource, and also the Role a
// surface.Surface wears while subsurface-parented. It only needs to carry
// that role tag; position/place/sync requests translate straight through to
// the outer subsurface since inner clients stage no additional state here.
type subsurface struct {
	wire.BaseObject

	client *wire.Client
	outer  *proto.Subsurface
}

func newSubsurface(client *wire.Client, id, version uint32, outer *proto.Subsurface) *subsurface {
	return &subsurface{
		BaseObject: wire.NewBaseObject(id, "wl_subsurface", version),
		client:     client,
		outer:      outer,
	}
}

func (s *subsurface) Name() string            { return "subsurface" }
func (s *subsurface) Commit(*surface.Surface) {}

func (s *subsurface) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case subsurfaceOpDestroy:
		s.client.Remove(s.ID())
		return nil
	case subsurfaceOpSetPosition:
		x, err := r.Int32()
		if err != nil {
			return err
		}
		y, err := r.Int32()
		if err != nil {
			return err
		}
		return s.outer.SetPosition(x, y)
	case subsurfaceOpPlaceAbove:
		siblingID, err := r.Uint32()
		if err != nil {
			return err
		}
		sibling, err := lookupSurface(s.client, s.ID(), siblingID)
		if err != nil {
			return err
		}
		return s.outer.PlaceAbove(sibling.Outer())
	case subsurfaceOpPlaceBelow:
		siblingID, err := r.Uint32()
		if err != nil {
			return err
		}
		sibling, err := lookupSurface(s.client, s.ID(), siblingID)
		if err != nil {
			return err
		}
		return s.outer.PlaceBelow(sibling.Outer())
	case subsurfaceOpSetSync:
		return s.outer.SetSync()
	case subsurfaceOpSetDesync:
		return s.outer.SetDesync()
	default:
		return wire.Errorf(s.ID(), 0, "wl_subsurface has no request %d", opcode)
	}
}

func (s *subsurface) Destroy() {}
