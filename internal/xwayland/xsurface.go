package xwayland

import (
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/ui"
	"github.com/tesselslate/waywall/internal/xwaylandshell"
)

// ICCCM WM_STATE values (supplemented bookkeeping, SPEC_FULL.md §12; no
// known client reads this back, but the original carries it and it costs
// one ChangeProperty per map/unmap).
const (
	wmStateWithdrawn uint32 = 0
	wmStateNormal    uint32 = 1
	wmStateIconic    uint32 = 3
)

// XSurface is one X11 top-level window under management: its lifecycle
// state, its pairing state against an inner wl_surface (spec §4.9.3), and
// the ui.View it becomes once both halves are ready. It implements
// ui.Vtable (the view's role implementation) and ui.SyntheticInputTarget
// (XTEST-based send_keys/send_click, spec §4.4.3) and surface.Role (so it
// receives Commit callbacks once paired).
type XSurface struct {
	xwm    *Xwm
	window xproto.Window

	x11Mapped bool

	pid    int
	hasPid bool
	title  string

	posX, posY    int32
	width, height int32

	fullscreen     bool
	savedW, savedH int32

	// Pairing state. A surface can arrive paired via either WL_SURFACE_ID
	// (immediate, looked up by object id on the Xwayland client) or
	// WL_SURFACE_SERIAL + xwayland_surface_v1.set_serial (whichever of the
	// ClientMessage or the set_serial request arrives first records the
	// other half's key; see onClientMessage/onShellSurfaceNew).
	pendingWlSurfaceID uint32
	hasPendingID       bool
	pendingSerial      uint64
	hasPendingSerial   bool

	wlSurface    *surface.Surface
	shellSurface *xwaylandshell.Surface
	associated   bool // true once a commit has landed after pairing

	view *ui.View
}

func newXSurface(xwm *Xwm, window xproto.Window) *XSurface {
	return &XSurface{xwm: xwm, window: window}
}

// ui.Vtable

func (xs *XSurface) Name() string { return "xwayland" }

func (xs *XSurface) Pid() (int, bool) { return xs.pid, xs.hasPid }

func (xs *XSurface) Title() string { return xs.title }

// SetSize implements the view layer's resize path by granting the window
// the exact geometry requested, per spec §4.8; the window's own
// ConfigureRequest handler (events.go) additionally lets the client itself
// request a size, which the XWM grants unconditionally per spec §4.9.2.
func (xs *XSurface) SetSize(w, h int32) {
	xs.width, xs.height = w, h
	_ = xproto.ConfigureWindowChecked(xs.xwm.conn, xs.window,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(w), uint32(h)}).Check()
}

// Close implements ui.Vtable: request an orderly shutdown via
// WM_DELETE_WINDOW if the client advertised WM_PROTOCOLS support,
// otherwise fall back to killing the client outright.
func (xs *XSurface) Close() {
	protocols := xs.xwm.atoms.get("WM_PROTOCOLS")
	deleteWindow := xs.xwm.atoms.get("WM_DELETE_WINDOW")
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: xs.window,
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteWindow), uint32(xs.xwm.nextTime()), 0, 0, 0}),
	}
	err := xproto.SendEventChecked(xs.xwm.conn, false, xs.window, xproto.EventMaskNoEvent, string(ev.Bytes())).Check()
	if err != nil {
		_ = xproto.KillClientChecked(xs.xwm.conn, uint32(xs.window)).Check()
	}
}

// ui.SyntheticInputTarget: spec §4.4.3 routes send_keys/send_click for an
// Xwayland-backed view through XTEST FakeInput directly to the X
// connection rather than the Wayland keyboard/pointer resource path.

func (xs *XSurface) SendKeys(keys []struct {
	Keycode uint32
	Pressed bool
}) {
	for _, k := range keys {
		eventType := byte(xproto.KeyPress)
		if !k.Pressed {
			eventType = byte(xproto.KeyRelease)
		}
		_ = xtest.FakeInputChecked(xs.xwm.conn, eventType, byte(k.Keycode), 0,
			xs.xwm.root, 0, 0, 0).Check()
	}
}

// SendClick synthesizes the crossing-then-click sequence testable scenario
// S6 requires: a pointer motion into the window (generating LeaveNotify on
// whatever had the pointer and EnterNotify on this window), a button
// press, and a button release, all via XTEST FakeInput so the sequence is
// observable on the X connection exactly as GLFW would see a real click.
func (xs *XSurface) SendClick() {
	const btnLeft = 1
	cx := int16(xs.posX + xs.width/2)
	cy := int16(xs.posY + xs.height/2)

	_ = xtest.FakeInputChecked(xs.xwm.conn, xproto.MotionNotify, 0, 0, xs.xwm.root, cx, cy, 0).Check()
	_ = xtest.FakeInputChecked(xs.xwm.conn, xproto.ButtonPress, btnLeft, 0, xs.xwm.root, cx, cy, 0).Check()
	_ = xtest.FakeInputChecked(xs.xwm.conn, xproto.ButtonRelease, btnLeft, 0, xs.xwm.root, cx, cy, 0).Check()
}

// surface.Role

func (xs *XSurface) Commit(s *surface.Surface) {
	xs.associated = true
	xs.evaluate()
}

func (xs *XSurface) Destroy() {
	xs.wlSurface = nil
	xs.associated = false
	xs.destroyView()
}

// pairWithSurface completes the association (from either pairing path) and
// assigns xs as the wl_surface's role, per spec §4.9.3.
func (xs *XSurface) pairWithSurface(s *surface.Surface) {
	xs.wlSurface = s
	_ = s.SetRole(xs)
}

// evaluate (re-)applies spec §4.9.3's view-creation rule: a view exists
// for an XSurface iff it is paired and associated, its surface's next
// buffer is non-null, and the X11 window is mapped. Called after every
// commit and every X11 map/unmap transition.
func (xs *XSurface) evaluate() {
	ready := xs.wlSurface != nil && xs.associated && xs.x11Mapped && xs.wlSurface.CurrentBuffer() != nil
	switch {
	case ready && xs.view == nil:
		v, err := xs.xwm.ui.NewView(xs, xs.wlSurface.Outer())
		if err != nil {
			return
		}
		xs.view = v
		if xs.xwm.viewCreated != nil {
			xs.xwm.viewCreated(v)
		}
	case !ready && xs.view != nil:
		xs.destroyView()
	}
}

func (xs *XSurface) destroyView() {
	if xs.view == nil {
		return
	}
	xs.xwm.ui.RemoveView(xs.view)
	xs.view = nil
}

// setMapped updates X11 map state and the supplemented WM_STATE property,
// then re-evaluates view creation.
func (xs *XSurface) setMapped(mapped bool) {
	xs.x11Mapped = mapped
	state := wmStateWithdrawn
	if mapped {
		state = wmStateNormal
	}
	_ = xproto.ChangePropertyChecked(xs.xwm.conn, xproto.PropModeReplace, xs.window,
		xs.xwm.atoms.get("WM_STATE"), xs.xwm.atoms.get("WM_STATE"), 32, 2,
		uint32ToBytes([]uint32{state, 0})).Check()
	xs.evaluate()
}

// setFullscreen toggles _NET_WM_STATE_FULLSCREEN (SPEC_FULL.md §12): the
// window is resized to the UI root's full size and the change is
// acknowledged on its own _NET_WM_STATE property, since EWMH clients read
// that back to confirm the request took effect.
func (xs *XSurface) setFullscreen(fullscreen bool) {
	if fullscreen == xs.fullscreen {
		return
	}
	xs.fullscreen = fullscreen
	if fullscreen {
		xs.savedW, xs.savedH = xs.width, xs.height
		uw, uh := xs.xwm.ui.Size()
		xs.SetSize(uw, uh)
	} else if xs.savedW > 0 && xs.savedH > 0 {
		xs.SetSize(xs.savedW, xs.savedH)
	}

	var states []uint32
	if fullscreen {
		states = []uint32{uint32(xs.xwm.atoms.get("_NET_WM_STATE_FULLSCREEN"))}
	}
	_ = xproto.ChangePropertyChecked(xs.xwm.conn, xproto.PropModeReplace, xs.window,
		xs.xwm.atoms.get("_NET_WM_STATE"), xproto.AtomAtom, 32, uint32(len(states)), uint32ToBytes(states)).Check()
}

// refreshTitle re-reads _NET_WM_NAME (preferred, UTF8_STRING) falling back
// to WM_NAME, up to 4KiB per spec §4.9.5.
func (xs *XSurface) refreshTitle() {
	const maxLen = 4096
	reply, err := xproto.GetProperty(xs.xwm.conn, false, xs.window,
		xs.xwm.atoms.get("_NET_WM_NAME"), xs.xwm.atoms.get("UTF8_STRING"), 0, maxLen/4).Reply()
	if err == nil && reply != nil && reply.ValueLen > 0 {
		xs.title = string(reply.Value)
		return
	}
	reply, err = xproto.GetProperty(xs.xwm.conn, false, xs.window,
		xproto.AtomWMName, xproto.AtomString, 0, maxLen/4).Reply()
	if err == nil && reply != nil && reply.ValueLen > 0 {
		xs.title = string(reply.Value)
	}
}
