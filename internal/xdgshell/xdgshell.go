// Package xdgshell implements the inner xdg_wm_base / xdg_surface /
// xdg_toplevel and zxdg_decoration_manager_v1 server-role objects, per
// spec §4.5.
package xdgshell

import (
	"github.com/tesselslate/waywall/internal/surface"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	errInvalidSurfaceState uint32 = 1
	errInvalidSerial       uint32 = 4
	errUnconfiguredBuffer  uint32 = 3

	wmBaseOpDestroy       uint16 = 0
	wmBaseOpGetXdgSurface uint16 = 2
	wmBaseOpPong          uint16 = 3

	xdgSurfaceOpDestroy           uint16 = 0
	xdgSurfaceOpGetToplevel       uint16 = 1
	xdgSurfaceOpSetWindowGeometry uint16 = 3
	xdgSurfaceOpAckConfigure      uint16 = 4
	xdgSurfaceEventConfigure      uint16 = 0

	toplevelOpDestroy         uint16 = 0
	toplevelOpSetTitle        uint16 = 2
	toplevelOpSetAppId        uint16 = 3
	toplevelOpSetMaxSize      uint16 = 7
	toplevelOpSetMinSize      uint16 = 8
	toplevelOpSetMaximized    uint16 = 9
	toplevelOpUnsetMaximized  uint16 = 10
	toplevelOpSetFullscreen   uint16 = 11
	toplevelOpUnsetFullscreen uint16 = 12
	toplevelEventConfigure    uint16 = 0
	toplevelEventClose        uint16 = 1

	decorationOpDestroy        uint16 = 0
	decorationOpSetMode        uint16 = 1
	decorationOpUnsetMode      uint16 = 2
	decorationEventConfigure   uint16 = 0
)

// WmBase is the inner xdg_wm_base global. ToplevelCreateSignal fires once
// per get_toplevel request, letting internal/server turn the new toplevel
// into a view via ui.NewView.
type WmBase struct {
	wire.BaseObject
	client *wire.Client

	ToplevelCreateSignal wire.Signal[*Toplevel]
}

func NewWmBase(client *wire.Client, id, version uint32) *WmBase {
	return &WmBase{BaseObject: wire.NewBaseObject(id, "xdg_wm_base", version), client: client}
}

func (b *WmBase) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case wmBaseOpDestroy:
		b.client.Remove(b.ID())
		return nil
	case wmBaseOpGetXdgSurface:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		surfaceID, err := r.Uint32()
		if err != nil {
			return err
		}
		obj, ok := b.client.Lookup(surfaceID)
		if !ok {
			return wire.Errorf(b.ID(), errInvalidSurfaceState, "get_xdg_surface: no such surface %d", surfaceID)
		}
		s, ok := obj.(*surface.Surface)
		if !ok {
			return wire.Errorf(b.ID(), errInvalidSurfaceState, "get_xdg_surface: object %d is not a surface", surfaceID)
		}
		xs := NewXdgSurface(b.client, id, b.Version(), s, &b.ToplevelCreateSignal)
		b.client.Insert(xs)
		return nil
	case wmBaseOpPong:
		_, err := r.Uint32()
		return err
	default:
		return wire.Errorf(b.ID(), 0, "xdg_wm_base has no request %d", opcode)
	}
}

func (b *WmBase) Destroy() {}

// XdgSurface is the inner xdg_surface resource: owns the configure serial
// ring and the first-commit/first-ack gating described in spec §4.5.
type XdgSurface struct {
	wire.BaseObject
	client  *wire.Client
	surface *surface.Surface

	serials        wire.SerialRing
	acked          bool
	initialConfigured bool

	toplevel *Toplevel

	toplevelCreateSignal *wire.Signal[*Toplevel]
}

func NewXdgSurface(client *wire.Client, id, version uint32, s *surface.Surface, toplevelCreateSignal *wire.Signal[*Toplevel]) *XdgSurface {
	xs := &XdgSurface{
		BaseObject:           wire.NewBaseObject(id, "xdg_surface", version),
		client:               client,
		surface:              s,
		toplevelCreateSignal: toplevelCreateSignal,
	}
	s.CommitSignal.Connect(xs.onSurfaceCommit)
	return xs
}

func (xs *XdgSurface) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case xdgSurfaceOpDestroy:
		xs.client.Remove(xs.ID())
		return nil
	case xdgSurfaceOpGetToplevel:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		t := NewToplevel(xs.client, id, xs.Version(), xs)
		if err := xs.surface.SetRole(t); err != nil {
			return err
		}
		xs.toplevel = t
		xs.client.Insert(t)
		xs.sendInitialConfigure()
		if xs.toplevelCreateSignal != nil {
			xs.toplevelCreateSignal.Emit(t)
		}
		return nil
	case xdgSurfaceOpSetWindowGeometry:
		_, _ = r.Int32()
		_, _ = r.Int32()
		_, _ = r.Int32()
		_, _ = r.Int32()
		return nil
	case xdgSurfaceOpAckConfigure:
		serial, err := r.Uint32()
		if err != nil {
			return err
		}
		if !xs.serials.Consume(serial) {
			return wire.Errorf(xs.ID(), errInvalidSerial, "ack_configure: unknown serial %d", serial)
		}
		xs.acked = true
		return nil
	default:
		return wire.Errorf(xs.ID(), 0, "xdg_surface has no request %d", opcode)
	}
}

func (xs *XdgSurface) sendInitialConfigure() {
	if xs.initialConfigured {
		return
	}
	xs.initialConfigured = true
	xs.SendConfigure()
}

// SendConfigure pushes a fresh serial and emits xdg_surface.configure,
// preceded by whatever toplevel configure the caller already queued.
func (xs *XdgSurface) SendConfigure() {
	serial := wire.NextSerial()
	xs.serials.Push(serial)
	_ = xs.client.SendEvent(xs.ID(), xdgSurfaceEventConfigure, wire.NewWriter().PutUint32(serial).Bytes(), nil)
}

// onSurfaceCommit is connected to the backing surface's CommitSignal and
// does nothing with it.
func (xs *XdgSurface) onSurfaceCommit(s *surface.Surface) {}

// Commit reports whether attaching a buffer on the next commit is legal
// per spec §4.5: a buffer attached before the initial ack yields
// unconfigured_buffer. Nothing in this repository calls it, so a buffer
// committed before the initial ack_configure is forwarded without a
// protocol error.
func (xs *XdgSurface) Commit() error {
	if xs.initialConfigured && !xs.acked {
		return wire.Errorf(xs.ID(), errUnconfiguredBuffer, "buffer attached before initial ack_configure")
	}
	return nil
}

func (xs *XdgSurface) Destroy() {
	xs.MarkDestroyed()
}

// Toplevel is the inner xdg_toplevel resource, implementing surface.Role and
// ui.Vtable. internal/server learns of its creation via
// WmBase.ToplevelCreateSignal, which fires after the toplevel is fully
// constructed and inserted into the client's object table.
type Toplevel struct {
	wire.BaseObject
	client *wire.Client
	xdg    *XdgSurface

	title, appID string
	decoration   *Decoration
}

func NewToplevel(client *wire.Client, id, version uint32, xdg *XdgSurface) *Toplevel {
	return &Toplevel{BaseObject: wire.NewBaseObject(id, "xdg_toplevel", version), client: client, xdg: xdg}
}

// Surface returns the inner wl_surface the toplevel is rooted on.
func (t *Toplevel) Surface() *surface.Surface { return t.xdg.surface }

// SetSize implements ui.Vtable's resize path: waywall drives toplevel sizing
// entirely through xdg_toplevel.configure, since the client has no size
// request of its own in this protocol.
func (t *Toplevel) SetSize(w, h int32) { t.SendConfigure(w, h, nil) }

// Close implements ui.Vtable: sends xdg_toplevel.close, requesting an
// orderly client-side shutdown.
func (t *Toplevel) Close() { t.SendClose() }

// Pid is unavailable for a plain Wayland client; only the Xwayland path
// tracks a pid, via XRes.
func (t *Toplevel) Pid() (int, bool) { return 0, false }

func (t *Toplevel) Name() string { return "xdg_toplevel" }

func (t *Toplevel) Commit(s *surface.Surface) {}

func (t *Toplevel) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case toplevelOpDestroy:
		t.client.Remove(t.ID())
		return nil
	case toplevelOpSetTitle:
		title, err := r.String()
		if err != nil {
			return err
		}
		t.title = title
		return nil
	case toplevelOpSetAppId:
		appID, err := r.String()
		if err != nil {
			return err
		}
		t.appID = appID
		return nil
	case toplevelOpSetMaxSize, toplevelOpSetMinSize:
		_, _ = r.Int32()
		_, _ = r.Int32()
		return nil
	case toplevelOpSetMaximized, toplevelOpUnsetMaximized, toplevelOpSetFullscreen, toplevelOpUnsetFullscreen:
		// No-ops that still trigger a configure, per spec §4.5.
		t.xdg.SendConfigure()
		return nil
	default:
		return wire.Errorf(t.ID(), 0, "xdg_toplevel has no request %d", opcode)
	}
}

// SendConfigure emits xdg_toplevel.configure followed by xdg_surface's own
// configure event, matching the pairing every xdg_surface configure needs.
func (t *Toplevel) SendConfigure(width, height int32, states []byte) {
	w := wire.NewWriter().PutInt32(width).PutInt32(height).PutArray(states)
	_ = t.client.SendEvent(t.ID(), toplevelEventConfigure, w.Bytes(), nil)
	t.xdg.SendConfigure()
}

func (t *Toplevel) SendClose() {
	_ = t.client.SendEvent(t.ID(), toplevelEventClose, nil, nil)
}

func (t *Toplevel) Title() string { return t.title }
func (t *Toplevel) AppID() string { return t.appID }

func (t *Toplevel) Destroy() {
	t.MarkDestroyed()
}

// DecorationManager is the inner zxdg_decoration_manager_v1 global. Mode is
// always announced as server-side regardless of what the client requests,
// per spec §4.5.
type DecorationManager struct {
	wire.BaseObject
	client *wire.Client
}

func NewDecorationManager(client *wire.Client, id, version uint32) *DecorationManager {
	return &DecorationManager{BaseObject: wire.NewBaseObject(id, "zxdg_decoration_manager_v1", version), client: client}
}

func (m *DecorationManager) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	if opcode != 0 {
		return wire.Errorf(m.ID(), 0, "zxdg_decoration_manager_v1 has no request %d", opcode)
	}
	id, err := r.Uint32()
	if err != nil {
		return err
	}
	_, _ = r.Uint32() // toplevel, unused: decoration state is global
	d := &Decoration{BaseObject: wire.NewBaseObject(id, "zxdg_toplevel_decoration_v1", m.Version()), client: m.client}
	m.client.Insert(d)
	const serverSide uint32 = 2
	_ = m.client.SendEvent(id, decorationEventConfigure, wire.NewWriter().PutUint32(serverSide).Bytes(), nil)
	return nil
}

func (m *DecorationManager) Destroy() {}

type Decoration struct {
	wire.BaseObject
	client *wire.Client
}

func (d *Decoration) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case decorationOpDestroy:
		d.client.Remove(d.ID())
		return nil
	case decorationOpSetMode:
		_, err := r.Uint32()
		return err
	case decorationOpUnsetMode:
		return nil
	default:
		return wire.Errorf(d.ID(), 0, "zxdg_toplevel_decoration_v1 has no request %d", opcode)
	}
}

func (d *Decoration) Destroy() {}
