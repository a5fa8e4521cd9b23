package xwayland

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xres"

	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/wire"
	"github.com/tesselslate/waywall/internal/xwaylandshell"
)

// handleEvent is the XWM's entire X11 event switch, spec §4.9.2's window
// lifecycle plus the §4.9.3 pairing ClientMessages and the supplemented
// fullscreen/clipboard handling of SPEC_FULL.md §12.
func (x *Xwm) handleEvent(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		x.onCreateNotify(e)
	case xproto.DestroyNotifyEvent:
		x.onDestroyNotify(e)
	case xproto.MapRequestEvent:
		x.onMapRequest(e)
	case xproto.UnmapNotifyEvent:
		x.onUnmapNotify(e)
	case xproto.ConfigureRequestEvent:
		x.onConfigureRequest(e)
	case xproto.PropertyNotifyEvent:
		x.onPropertyNotify(e)
	case xproto.ClientMessageEvent:
		x.onClientMessage(e)
	case xproto.SelectionRequestEvent:
		x.handleSelectionRequest(e)
	case xproto.SelectionClearEvent:
		x.handleSelectionClear(e)
	}
}

// onCreateNotify tracks every new window so ConfigureRequest/MapRequest
// have somewhere to land; override-redirect windows (menus, tooltips) are
// never managed and are left alone rather than killed, since killing them
// would just be destructive for no benefit (the original X11 spec treats
// override-redirect as "do not manage", not "do not allow").
func (x *Xwm) onCreateNotify(e xproto.CreateNotifyEvent) {
	if e.OverrideRedirect {
		return
	}
	xs := newXSurface(x, e.Window)
	xs.posX, xs.posY = e.X, e.Y
	xs.width, xs.height = int32(e.Width), int32(e.Height)
	x.surfaces[e.Window] = xs

	_ = xproto.ChangeWindowAttributesChecked(x.conn, e.Window, xproto.CwEventMask,
		[]uint32{uint32(xproto.EventMaskPropertyChange)}).Check()

	x.queryPid(xs)
	xs.refreshTitle()
}

func (x *Xwm) onDestroyNotify(e xproto.DestroyNotifyEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	xs.destroyView()
	delete(x.surfaces, e.Window)
}

// onMapRequest forwards the map (we're the window manager; clients never
// get to map themselves) and marks the window X11-mapped, per spec
// §4.9.2.
func (x *Xwm) onMapRequest(e xproto.MapRequestEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	_ = xproto.MapWindowChecked(x.conn, e.Window).Check()
	xs.setMapped(true)
}

func (x *Xwm) onUnmapNotify(e xproto.UnmapNotifyEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	xs.setMapped(false)
}

// onConfigureRequest grants only the requested width/height, per spec
// §4.9.2: position and stacking requests are silently dropped since
// waywall (not the client) owns window placement under a nested
// compositor.
func (x *Xwm) onConfigureRequest(e xproto.ConfigureRequestEvent) {
	if e.ValueMask&xproto.ConfigWindowWidth == 0 && e.ValueMask&xproto.ConfigWindowHeight == 0 {
		return
	}
	xs, ok := x.surfaces[e.Window]
	if ok {
		xs.width, xs.height = int32(e.Width), int32(e.Height)
	}
	_ = xproto.ConfigureWindowChecked(x.conn, e.Window,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(e.Width), uint32(e.Height)}).Check()
}

func (x *Xwm) onPropertyNotify(e xproto.PropertyNotifyEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	switch e.Atom {
	case x.atoms.get("_NET_WM_NAME"), xproto.AtomWMName:
		xs.refreshTitle()
	}
}

// onClientMessage dispatches the handful of ClientMessage types waywall
// cares about: WL_SURFACE_ID/WL_SURFACE_SERIAL pairing (spec §4.9.3) and
// _NET_WM_STATE fullscreen toggling (SPEC_FULL.md §12).
func (x *Xwm) onClientMessage(e xproto.ClientMessageEvent) {
	switch e.Type {
	case x.atoms.get("WL_SURFACE_ID"):
		x.onWlSurfaceID(e)
	case x.atoms.get("WL_SURFACE_SERIAL"):
		x.onWlSurfaceSerial(e)
	case x.atoms.get("_NET_WM_STATE"):
		x.onNetWmState(e)
	}
}

// onWlSurfaceID implements the first of the two pairing paths: Xwayland
// sends this ClientMessage on the X11 window carrying the wl_surface
// object id it just created on its own Wayland connection. If that
// surface already exists (the common case — Wayland traffic usually
// arrives first), pair immediately; otherwise remember the id so
// onWlSurfaceCreated can complete the pairing later.
func (x *Xwm) onWlSurfaceID(e xproto.ClientMessageEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	data := e.Data.Data32
	if len(data) < 1 {
		return
	}
	id := data[0]

	if x.xwaylandClient != nil {
		if obj, ok := x.xwaylandClient.Lookup(id); ok {
			if s, ok := obj.(*surface.Surface); ok {
				xs.pairWithSurface(s)
				return
			}
		}
	}
	xs.pendingWlSurfaceID = id
	xs.hasPendingID = true
}

// onWlSurfaceSerial is the first half of the WL_SURFACE_SERIAL path: the
// X11 window announces a 64-bit serial (split across two 32-bit words,
// low word first); once xwayland_shell_v1.set_serial reports the matching
// serial for a shell surface, onShellSurfaceNew completes the pairing.
func (x *Xwm) onWlSurfaceSerial(e xproto.ClientMessageEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	data := e.Data.Data32
	if len(data) < 2 {
		return
	}
	serial := uint64(data[0]) | uint64(data[1])<<32

	if shellSurf, ok := x.pendingShellBySerial[serial]; ok {
		delete(x.pendingShellBySerial, serial)
		x.completeSerialPairing(shellSurf, xs)
		return
	}
	xs.pendingSerial = serial
	xs.hasPendingSerial = true
}

// onNetWmState implements the _NET_WM_STATE_FULLSCREEN client message
// protocol: action 0 removes, 1 adds, 2 toggles, matching every other
// EWMH-aware client's expectations (mpv, browsers, Minecraft via GLFW).
func (x *Xwm) onNetWmState(e xproto.ClientMessageEvent) {
	xs, ok := x.surfaces[e.Window]
	if !ok {
		return
	}
	data := e.Data.Data32
	if len(data) < 2 {
		return
	}
	action := data[0]
	fullscreenAtom := uint32(x.atoms.get("_NET_WM_STATE_FULLSCREEN"))
	if data[1] != fullscreenAtom && (len(data) < 3 || data[2] != fullscreenAtom) {
		return
	}

	switch action {
	case 0:
		xs.setFullscreen(false)
	case 1:
		xs.setFullscreen(true)
	case 2:
		xs.setFullscreen(!xs.fullscreen)
	}
}

// onWlSurfaceCreated is the Wayland-side half of WL_SURFACE_ID pairing: a
// wl_surface was just created by the Xwayland client. If some window
// already announced this object id, pair them now. client is unused here
// (the pending id was already resolved against it in onWlSurfaceID) but is
// accepted to match WatchClient's callback shape.
func (x *Xwm) onWlSurfaceCreated(client *wire.Client, s *surface.Surface) {
	id := s.ID()
	for _, xs := range x.surfaces {
		if xs.hasPendingID && xs.pendingWlSurfaceID == id {
			xs.hasPendingID = false
			xs.pairWithSurface(s)
			return
		}
	}
}

// onShellSurfaceNew is the Wayland-side half of WL_SURFACE_SERIAL pairing:
// a new xwayland_surface_v1 was just created. Its set_serial request
// (arriving any time after) tells us which serial it claims; if a window
// already announced that same serial over X11, pair immediately, else
// remember the serial for onWlSurfaceSerial to find later.
func (x *Xwm) onShellSurfaceNew(shellSurf *xwaylandshell.Surface) {
	shellSurf.SetSerialSignal.Connect(func(serial uint64) {
		for _, xs := range x.surfaces {
			if xs.hasPendingSerial && xs.pendingSerial == serial {
				xs.hasPendingSerial = false
				x.completeSerialPairing(shellSurf, xs)
				return
			}
		}
		x.pendingShellBySerial[serial] = shellSurf
	})
	shellSurf.DestroySignal.Connect(func(*xwaylandshell.Surface) {
		for serial, s := range x.pendingShellBySerial {
			if s == shellSurf {
				delete(x.pendingShellBySerial, serial)
			}
		}
	})
}

func (x *Xwm) completeSerialPairing(shellSurf *xwaylandshell.Surface, xs *XSurface) {
	if shellSurf.WlSurface == nil {
		logger.Warnf("xwayland: xwayland_shell_v1 surface paired with no backing wl_surface")
		return
	}
	xs.shellSurface = shellSurf
	xs.pairWithSurface(shellSurf.WlSurface)
}

// queryPid resolves the PID that owns a window via the X-Resource
// extension, since Xwayland clients have no direct process-group
// relationship to waywall visible over the Wayland wire.
func (x *Xwm) queryPid(xs *XSurface) {
	spec := xres.ClientIdSpec{
		Client: uint32(xs.window),
		Mask:   xres.ClientIdMaskLocalClientPID,
	}
	reply, err := xres.QueryClientIds(x.conn, 1, []xres.ClientIdSpec{spec}).Reply()
	if err != nil || reply == nil {
		return
	}
	for _, idv := range reply.Ids {
		if len(idv.Value) > 0 {
			xs.pid = int(idv.Value[0])
			xs.hasPid = true
			return
		}
	}
}
