// Package backend owns the outer connection: the client-role Wayland link
// from waywall to the host compositor it is nested inside. It binds the
// globals waywall's other components need and exposes them, plus the
// connection's file descriptor for the server's poll loop.
package backend

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/bnema/wlturbo/wl"

	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/logger"
)

// requiredGlobal names every interface waywall cannot start without.
var requiredGlobals = []string{
	"wl_compositor",
	"wl_subcompositor",
	"wl_shm",
	"wl_seat",
	"wl_output",
	"xdg_wm_base",
	"wl_data_device_manager",
}

// Backend is the outer-connection singleton: one per waywall process.
type Backend struct {
	ctx  *wl.Context
	conn *net.UnixConn

	display  *proto.Display
	registry *proto.Registry

	Compositor    *proto.Compositor
	Subcompositor *proto.Subcompositor
	Shm           *proto.Shm
	Seat          *proto.Seat
	Output        *proto.Output
	XdgWmBase     *proto.XdgWmBase
	DataDeviceMgr *proto.DataDeviceManager

	Decoration     *proto.XdgDecorationManager
	Viewporter     *proto.Viewporter
	PointerConstraints *proto.PointerConstraints
	RelativePointerMgr *proto.RelativePointerManager
	LinuxDmabuf    *proto.LinuxDmabuf
	DrmSyncobjMgr  *proto.LinuxDrmSyncobjManager
	CursorShapeMgr *proto.CursorShapeManager
	XwaylandShell  *proto.XwaylandShell

	HasPointer  bool
	HasKeyboard bool

	shmFormats []uint32

	dmabufFormats   []uint32
	dmabufModifiers []DmabufModifier
}

// DmabufModifier is one (format, modifier) pair the host advertised on
// zwp_linux_dmabuf_v1, replayed verbatim to inner clients so they never
// negotiate a modifier the host cannot actually scan out.
type DmabufModifier struct {
	Format       uint32
	ModHi, ModLo uint32
}

// Connect dials the host compositor's socket (named by $WAYLAND_DISPLAY,
// found under $XDG_RUNTIME_DIR) and performs the two round-trips needed to
// bind every advertised global before returning.
func Connect() (*Backend, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, fmt.Errorf("backend: XDG_RUNTIME_DIR is not set")
	}
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		name = "wayland-0"
	}

	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(runtimeDir, name)
	}

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("backend: dial host compositor at %s: %w", path, err)
	}

	ctx, err := wl.NewContext(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("backend: create wire context: %w", err)
	}

	b := &Backend{ctx: ctx, conn: conn}
	b.display = proto.NewDisplay(ctx)
	b.display.SetErrorHandler(func(objectID, code uint32, message string) {
		logger.Errorf("outer host protocol error on object %d (code %d): %s", objectID, code, message)
	})

	registry, err := b.display.GetRegistry()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("backend: get_registry: %w", err)
	}
	b.registry = registry
	registry.SetGlobalHandler(b.handleGlobal)
	b.roundtrip()
	b.roundtrip()

	if err := b.checkRequired(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) roundtrip() {
	cb, err := b.display.Sync()
	if err != nil {
		return
	}
	done := false
	cb.SetDoneHandler(func(uint32) { done = true })
	for !done {
		b.ctx.Dispatch()
	}
}

func (b *Backend) checkRequired() error {
	have := map[string]bool{
		"wl_compositor":          b.Compositor != nil,
		"wl_subcompositor":       b.Subcompositor != nil,
		"wl_shm":                 b.Shm != nil,
		"wl_seat":                b.Seat != nil,
		"wl_output":              b.Output != nil,
		"xdg_wm_base":            b.XdgWmBase != nil,
		"wl_data_device_manager": b.DataDeviceMgr != nil,
	}
	for _, name := range requiredGlobals {
		if !have[name] {
			return fmt.Errorf("backend: host compositor does not advertise required global %s", name)
		}
	}
	return nil
}

func (b *Backend) handleGlobal(name uint32, iface string, version uint32) {
	bindVersion := func(max uint32) uint32 {
		if version < max {
			return version
		}
		return max
	}

	switch iface {
	case "wl_compositor":
		c := proto.NewCompositor(b.ctx)
		c.SetID(b.ctx.AllocateID())
		b.ctx.Register(c)
		if err := b.registry.Bind(name, iface, bindVersion(5), c); err == nil {
			b.Compositor = c
		}
	case "wl_subcompositor":
		c := proto.NewSubcompositor(b.ctx)
		c.SetID(b.ctx.AllocateID())
		b.ctx.Register(c)
		if err := b.registry.Bind(name, iface, bindVersion(1), c); err == nil {
			b.Subcompositor = c
		}
	case "wl_shm":
		s := proto.NewShm(b.ctx)
		s.SetID(b.ctx.AllocateID())
		b.ctx.Register(s)
		s.SetFormatHandler(func(f uint32) { b.shmFormats = append(b.shmFormats, f) })
		if err := b.registry.Bind(name, iface, bindVersion(1), s); err == nil {
			b.Shm = s
		}
	case "wl_seat":
		s := proto.NewSeat(b.ctx)
		s.SetID(b.ctx.AllocateID())
		b.ctx.Register(s)
		s.SetCapabilitiesHandler(func(caps uint32) {
			b.HasPointer = caps&proto.SeatCapabilityPointer != 0
			b.HasKeyboard = caps&proto.SeatCapabilityKeyboard != 0
		})
		if err := b.registry.Bind(name, iface, bindVersion(7), s); err == nil {
			b.Seat = s
		}
	case "wl_output":
		if b.Output != nil {
			return // waywall only uses the first output it sees
		}
		o := proto.NewOutput(b.ctx)
		o.SetID(b.ctx.AllocateID())
		b.ctx.Register(o)
		if err := b.registry.Bind(name, iface, bindVersion(4), o); err == nil {
			b.Output = o
		}
	case "xdg_wm_base":
		wb := proto.NewXdgWmBase(b.ctx)
		wb.SetID(b.ctx.AllocateID())
		b.ctx.Register(wb)
		wb.SetPingHandler(func(serial uint32) { _ = wb.Pong(serial) })
		if err := b.registry.Bind(name, iface, bindVersion(6), wb); err == nil {
			b.XdgWmBase = wb
		}
	case "wl_data_device_manager":
		m := proto.NewDataDeviceManager(b.ctx)
		m.SetID(b.ctx.AllocateID())
		b.ctx.Register(m)
		if err := b.registry.Bind(name, iface, bindVersion(3), m); err == nil {
			b.DataDeviceMgr = m
		}
	case "zxdg_decoration_manager_v1":
		m := proto.NewXdgDecorationManager(b.ctx)
		m.SetID(b.ctx.AllocateID())
		b.ctx.Register(m)
		if err := b.registry.Bind(name, iface, bindVersion(1), m); err == nil {
			b.Decoration = m
		}
	case "wp_viewporter":
		v := proto.NewViewporter(b.ctx)
		v.SetID(b.ctx.AllocateID())
		b.ctx.Register(v)
		if err := b.registry.Bind(name, iface, bindVersion(1), v); err == nil {
			b.Viewporter = v
		}
	case "zwp_pointer_constraints_v1":
		c := proto.NewPointerConstraints(b.ctx)
		c.SetID(b.ctx.AllocateID())
		b.ctx.Register(c)
		if err := b.registry.Bind(name, iface, bindVersion(1), c); err == nil {
			b.PointerConstraints = c
		}
	case "zwp_relative_pointer_manager_v1":
		m := proto.NewRelativePointerManager(b.ctx)
		m.SetID(b.ctx.AllocateID())
		b.ctx.Register(m)
		if err := b.registry.Bind(name, iface, bindVersion(1), m); err == nil {
			b.RelativePointerMgr = m
		}
	case "zwp_linux_dmabuf_v1":
		d := proto.NewLinuxDmabuf(b.ctx)
		d.SetID(b.ctx.AllocateID())
		b.ctx.Register(d)
		d.SetFormatHandler(func(f uint32) { b.dmabufFormats = append(b.dmabufFormats, f) })
		d.SetModifierHandler(func(f, hi, lo uint32) {
			b.dmabufModifiers = append(b.dmabufModifiers, DmabufModifier{f, hi, lo})
		})
		if err := b.registry.Bind(name, iface, bindVersion(4), d); err == nil {
			b.LinuxDmabuf = d
		}
	case "wp_linux_drm_syncobj_manager_v1":
		m := proto.NewLinuxDrmSyncobjManager(b.ctx)
		m.SetID(b.ctx.AllocateID())
		b.ctx.Register(m)
		if err := b.registry.Bind(name, iface, bindVersion(1), m); err == nil {
			b.DrmSyncobjMgr = m
		}
	case "wp_cursor_shape_manager_v1":
		m := proto.NewCursorShapeManager(b.ctx)
		m.SetID(b.ctx.AllocateID())
		b.ctx.Register(m)
		if err := b.registry.Bind(name, iface, bindVersion(1), m); err == nil {
			b.CursorShapeMgr = m
		}
	case "xwayland_shell_v1":
		s := proto.NewXwaylandShell(b.ctx)
		s.SetID(b.ctx.AllocateID())
		b.ctx.Register(s)
		if err := b.registry.Bind(name, iface, bindVersion(1), s); err == nil {
			b.XwaylandShell = s
		}
	}
}

// Fd returns the outer connection's socket descriptor for the poll loop.
func (b *Backend) Fd() int {
	return b.ctx.Fd()
}

// Dispatch drains and processes every message currently queued on the
// outer connection. It is called once per poll wakeup on Fd().
func (b *Backend) Dispatch() {
	b.ctx.Dispatch()
}

// ShmFormats reports the pixel formats the host's wl_shm advertised.
func (b *Backend) ShmFormats() []uint32 {
	return b.shmFormats
}

// DmabufFormats and DmabufModifiers report the format/modifier pairs the
// host's zwp_linux_dmabuf_v1 advertised, replayed to inner clients by
// internal/dmabuf.
func (b *Backend) DmabufFormats() []uint32            { return b.dmabufFormats }
func (b *Backend) DmabufModifiers() []DmabufModifier { return b.dmabufModifiers }

func (b *Backend) Close() error {
	return b.conn.Close()
}
