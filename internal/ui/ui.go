package ui

import (
	"fmt"

	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/rbuffer"
)

// UI is the root of the view tree: one outer toplevel, one root surface
// with an empty input region, a background colour, a scene subsurface
// above all views, and the ordered list of views, per spec §4.8.
type UI struct {
	backend *backendHandles

	rootSurface *proto.Surface
	toplevel    *proto.XdgToplevel
	xdgSurface  *proto.XdgSurface

	sceneSurface    *proto.Surface
	sceneSubsurface *proto.Subsurface

	rbuffer *rbuffer.Manager
	bgColor uint32

	width, height int32

	views []*View
}

// backendHandles is the subset of the outer backend's bindings the UI
// needs, each passed to New individually by internal/server rather than as
// a *backend.Backend.
type backendHandles struct {
	Compositor    *proto.Compositor
	Subcompositor *proto.Subcompositor
	WmBase        *proto.XdgWmBase
	Decoration    *proto.XdgDecorationManager
	Viewporter    *proto.Viewporter
}

func New(compositor *proto.Compositor, subcompositor *proto.Subcompositor, wmBase *proto.XdgWmBase, decoration *proto.XdgDecorationManager, viewporter *proto.Viewporter, rb *rbuffer.Manager) (*UI, error) {
	root, err := compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("ui: create root surface: %w", err)
	}
	emptyRegion, err := compositor.CreateRegion()
	if err != nil {
		return nil, fmt.Errorf("ui: create empty input region: %w", err)
	}
	if err := root.SetInputRegion(emptyRegion); err != nil {
		return nil, fmt.Errorf("ui: set_input_region: %w", err)
	}

	xdgSurface, err := wmBase.GetXdgSurface(root)
	if err != nil {
		return nil, fmt.Errorf("ui: get_xdg_surface: %w", err)
	}
	toplevel, err := xdgSurface.GetToplevel()
	if err != nil {
		return nil, fmt.Errorf("ui: get_toplevel: %w", err)
	}
	_ = toplevel.SetTitle("waywall")
	_ = toplevel.SetAppId("waywall")

	if decoration != nil {
		if dec, err := decoration.GetToplevelDecoration(toplevel); err == nil {
			_ = dec.SetMode(proto.DecorationModeServerSide)
		}
	}

	sceneSurface, err := compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("ui: create scene surface: %w", err)
	}
	sceneSub, err := subcompositor.GetSubsurface(sceneSurface, root)
	if err != nil {
		return nil, fmt.Errorf("ui: get_subsurface for scene: %w", err)
	}
	_ = sceneSub.SetDesync()

	u := &UI{
		backend:         &backendHandles{compositor, subcompositor, wmBase, decoration, viewporter},
		rootSurface:     root,
		toplevel:        toplevel,
		xdgSurface:      xdgSurface,
		sceneSurface:    sceneSurface,
		sceneSubsurface: sceneSub,
		rbuffer:         rb,
		width:           1920,
		height:          1080,
	}

	toplevel.SetConfigureHandler(func(w, h int32, states []byte) {
		if w > 0 && h > 0 {
			u.width, u.height = w, h
		}
	})
	xdgSurface.SetConfigureHandler(func(serial uint32) {
		_ = xdgSurface.AckConfigure(serial)
	})

	return u, nil
}

// Size returns the current UI root dimensions.
func (u *UI) Size() (int32, int32) { return u.width, u.height }

// SetBackground attaches a solid-colour buffer to the root surface.
func (u *UI) SetBackground(argb uint32) error {
	if u.rbuffer == nil {
		return nil
	}
	buf, err := u.rbuffer.Acquire(argb)
	if err != nil {
		return err
	}
	if u.bgColor != 0 {
		u.rbuffer.Release(u.bgColor)
	}
	u.bgColor = argb
	if err := u.rootSurface.Attach(buf, 0, 0); err != nil {
		return err
	}
	_ = u.rootSurface.Damage(0, 0, u.width, u.height)
	return u.rootSurface.Commit()
}

// NewView creates a view backed by its own outer surface, parented as a
// desync subsurface of the root, with a viewport for crop/scale.
func (u *UI) NewView(impl Vtable, surface *proto.Surface) (*View, error) {
	sub, err := u.backend.Subcompositor.GetSubsurface(surface, u.rootSurface)
	if err != nil {
		return nil, fmt.Errorf("ui: get_subsurface: %w", err)
	}
	if err := sub.SetDesync(); err != nil {
		return nil, fmt.Errorf("ui: set_desync: %w", err)
	}

	var viewport *proto.Viewport
	if u.backend.Viewporter != nil {
		viewport, err = u.backend.Viewporter.GetViewport(surface)
		if err != nil {
			return nil, fmt.Errorf("ui: get_viewport: %w", err)
		}
	}

	v := newView(u, impl, surface, sub, viewport)
	u.views = append(u.views, v)
	v.CreateSignal.Emit(v)
	return v, nil
}

// RemoveView drops a view from the ordered list and emits its destroy
// notification.
func (u *UI) RemoveView(v *View) {
	for i, existing := range u.views {
		if existing == v {
			u.views = append(u.views[:i], u.views[i+1:]...)
			break
		}
	}
	v.destroy()
}

// Views returns the current ordered view list.
func (u *UI) Views() []*View { return append([]*View(nil), u.views...) }

// Resize updates the UI root dimensions and repositions centered views,
// per spec §4.8.
func (u *UI) Resize(w, h int32) {
	u.width, u.height = w, h
	for _, v := range u.views {
		v.OnUIResize()
	}
}
