// Package xwayland owns the Xwayland child process and the X window
// manager that drives it: everything in spec.md §4.9 except the
// xwayland_shell_v1 set_serial handshake (internal/xwaylandshell carries
// that half, since it speaks the inner Wayland wire protocol rather than
// X11).
//
// The XWM's connection is jezek/xgb, the same XCB binding
// other_examples/…tesselslate-resetti__internal-x11-x11.go builds its own
// window manager on. That file talks X11 directly with xproto.SendEvent
// for synthetic input; spec §9 calls for XTEST FakeInput instead, so Xwm
// diverges from it there while keeping its atom-cache and event-dispatch
// shape.
package xwayland

import (
	"fmt"
	"os"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xres"
	"github.com/jezek/xgb/xtest"
	"golang.org/x/sys/unix"

	"github.com/tesselslate/waywall/internal/compositor"
	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/ui"
	"github.com/tesselslate/waywall/internal/wire"
	"github.com/tesselslate/waywall/internal/xwaylandshell"
)

// Xwm is the X11 window manager for the nested Xwayland server: one XCB
// connection, the EWMH/ICCCM bookkeeping a WM must carry, and the window
// lifecycle/surface-pairing state machine of spec §4.9.2-§4.9.4.
type Xwm struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms atomCache

	checkWindow     xproto.Window
	clipboardWindow xproto.Window

	ui          *ui.UI
	viewCreated func(*ui.View)

	xwaylandClient *wire.Client
	surfaces       map[xproto.Window]*XSurface

	// pendingShellBySerial holds xwayland_surface_v1 objects that have
	// already received set_serial but whose matching WL_SURFACE_SERIAL
	// ClientMessage has not yet arrived on the X11 side (spec §4.9.3).
	pendingShellBySerial map[uint64]*xwaylandshell.Surface

	clipboard clipboardState

	clock uint32

	events chan xgb.Event
	errs   chan error
	pipeR, pipeW *os.File
	closed bool
}

// New dials the Xwayland display Spawn reported ready, performs the EWMH/
// ICCCM setup of spec §4.9.1, and starts the background event pump. u and
// viewCreated let the XWM build and publish ui.View objects exactly like
// internal/server does for xdg_toplevel, via s.scene.NotifyViewCreated.
func New(display string, u *ui.UI, viewCreated func(*ui.View)) (*Xwm, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("xwayland: connect to %s: %w", display, err)
	}

	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: XTEST extension required: %w", err)
	}
	if err := xres.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: X-Resource extension required: %w", err)
	}
	if err := composite.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: Composite extension required: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	root := screen.Root

	x := &Xwm{
		conn:        conn,
		root:        root,
		ui:          u,
		viewCreated: viewCreated,
		surfaces:             make(map[xproto.Window]*XSurface),
		pendingShellBySerial: make(map[uint64]*xwaylandshell.Surface),
		events:      make(chan xgb.Event, 64),
		errs:        make(chan error, 8),
	}
	x.atoms.init(conn)

	if err := xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask, []uint32{
		uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify | xproto.EventMaskPropertyChange),
	}).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: another window manager is already running: %w", err)
	}

	if err := composite.RedirectSubwindowsChecked(conn, root, composite.RedirectManual).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: composite redirect_subwindows: %w", err)
	}

	if err := x.setupEWMH(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: EWMH setup: %w", err)
	}
	if err := x.claimWMSelection(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: claim WM_S0: %w", err)
	}
	if err := x.setupClipboard(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: clipboard window: %w", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("xwayland: create xwm pipe: %w", err)
	}
	x.pipeR, x.pipeW = r, w

	go x.pump()

	return x, nil
}

// pump runs on its own goroutine for the lifetime of the connection, since
// *xgb.Conn exposes no file descriptor of its own to poll: it owns its
// read/write loop internally. Every event it hands back is forwarded onto
// events and announced on the self-pipe so the single-threaded server poll
// loop in internal/server still learns about XWM readiness as just another
// pollable fd.
func (x *Xwm) pump() {
	for {
		ev, err := x.conn.WaitForEvent()
		if err != nil {
			select {
			case x.errs <- err:
			default:
			}
			_, _ = x.pipeW.Write([]byte{1})
			return
		}
		if ev == nil {
			continue
		}
		x.events <- ev
		_, _ = x.pipeW.Write([]byte{0})
	}
}

// Fd returns the self-pipe's read end for the main poll loop.
func (x *Xwm) Fd() int { return int(x.pipeR.Fd()) }

// Dispatch drains every event queued since the last wakeup.
func (x *Xwm) Dispatch() {
	buf := make([]byte, 64)
	_, _ = unix.Read(x.Fd(), buf)

	for {
		select {
		case ev := <-x.events:
			x.handleEvent(ev)
		case err := <-x.errs:
			logger.Errorf("xwayland: connection error: %v", err)
			return
		default:
			return
		}
	}
}

// Close tears down every XSurface's view and the XCB connection.
func (x *Xwm) Close() {
	if x.closed {
		return
	}
	x.closed = true
	for _, xs := range x.surfaces {
		xs.destroyView()
	}
	x.conn.Close()
	if x.pipeW != nil {
		x.pipeW.Close()
	}
	if x.pipeR != nil {
		x.pipeR.Close()
	}
}

// nextTime returns a monotonically increasing synthetic X server
// timestamp, mirroring internal/seat's nextSyntheticTime: XTEST FakeInput
// and ConfigureWindow both reject non-increasing timestamps from the same
// client.
func (x *Xwm) nextTime() xproto.Timestamp {
	x.clock++
	return xproto.Timestamp(x.clock)
}

// setupEWMH creates the _NET_SUPPORTING_WM_CHECK window and announces the
// subset of EWMH waywall actually honours (fullscreen toggling), per spec
// §4.9.1 and the supplemented _NET_WM_STATE handling in SPEC_FULL.md §12.
func (x *Xwm) setupEWMH() error {
	check, err := xproto.NewWindowId(x.conn)
	if err != nil {
		return err
	}
	screen := xproto.Setup(x.conn).DefaultScreen(x.conn)
	if err := xproto.CreateWindowChecked(x.conn, screen.RootDepth, check, x.root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, screen.RootVisual, 0, nil).Check(); err != nil {
		return err
	}
	x.checkWindow = check

	idData := []uint32{uint32(check)}
	_ = xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, check,
		x.atoms.get("_NET_SUPPORTING_WM_CHECK"), xproto.AtomWindow, 32, 1, uint32ToBytes(idData)).Check()
	_ = xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, x.root,
		x.atoms.get("_NET_SUPPORTING_WM_CHECK"), xproto.AtomWindow, 32, 1, uint32ToBytes(idData)).Check()

	name := []byte("wm")
	_ = xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, check,
		x.atoms.get("_NET_WM_NAME"), x.atoms.get("UTF8_STRING"), 8, uint32(len(name)), name).Check()

	supported := []uint32{
		uint32(x.atoms.get("_NET_WM_STATE")),
		uint32(x.atoms.get("_NET_WM_STATE_FULLSCREEN")),
		uint32(x.atoms.get("_NET_SUPPORTING_WM_CHECK")),
		uint32(x.atoms.get("_NET_WM_NAME")),
	}
	return xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, x.root,
		x.atoms.get("_NET_SUPPORTED"), xproto.AtomAtom, 32, uint32(len(supported)), uint32ToBytes(supported)).Check()
}

// claimWMSelection takes ownership of WM_S0, the ICCCM signal that a
// window manager is present on this display.
func (x *Xwm) claimWMSelection() error {
	return xproto.SetSelectionOwnerChecked(x.conn, x.checkWindow, x.atoms.get("WM_S0"), xproto.TimeCurrentTime).Check()
}

// setupClipboard creates the dedicated ICCCM selection-owner window spec
// §4.7/§4.9.4 call for, and claims CLIPBOARD on it so SelectionRequest
// events for TARGETS/UTF8_STRING have somewhere to land.
func (x *Xwm) setupClipboard() error {
	win, err := xproto.NewWindowId(x.conn)
	if err != nil {
		return err
	}
	screen := xproto.Setup(x.conn).DefaultScreen(x.conn)
	if err := xproto.CreateWindowChecked(x.conn, screen.RootDepth, win, x.root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, screen.RootVisual, 0, nil).Check(); err != nil {
		return err
	}
	x.clipboardWindow = win
	return xproto.SetSelectionOwnerChecked(x.conn, win, x.atoms.get("CLIPBOARD"), xproto.TimeCurrentTime).Check()
}

// WatchClient connects co's NewSurfaceSignal so the XWM can pair a freshly
// created wl_surface against a pending WL_SURFACE_ID, once co's client
// turns out to be the Xwayland one (learned only when that client later
// binds xwayland_shell_v1, via RegisterXwaylandClient below). Every
// client's compositor is watched unconditionally since bind order between
// wl_compositor and xwayland_shell_v1 is not guaranteed.
func (x *Xwm) WatchClient(client *wire.Client, co *compositor.Compositor) {
	co.NewSurfaceSignal.Connect(func(s *surface.Surface) {
		if client != x.xwaylandClient {
			return
		}
		x.onWlSurfaceCreated(client, s)
	})
}

// RegisterXwaylandClient is called once, when a client binds
// xwayland_shell_v1 - by protocol convention, only Xwayland itself ever
// does. mgr's NewSurfaceSignal drives the WL_SURFACE_SERIAL pairing path.
func (x *Xwm) RegisterXwaylandClient(client *wire.Client, mgr *xwaylandshell.Manager) {
	x.xwaylandClient = client
	mgr.NewSurfaceSignal.Connect(x.onShellSurfaceNew)
}

func uint32ToBytes(v []uint32) []byte {
	out := make([]byte, len(v)*4)
	for i, u := range v {
		out[i*4+0] = byte(u)
		out[i*4+1] = byte(u >> 8)
		out[i*4+2] = byte(u >> 16)
		out[i*4+3] = byte(u >> 24)
	}
	return out
}
