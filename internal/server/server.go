// Package server wires every other internal package into the process-wide
// root described in spec.md §3: the inner display, the outer backend, the
// UI tree, the seat, and one of each inner protocol global, driven by a
// single-threaded poll loop over every live file descriptor.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tesselslate/waywall/internal/backend"
	"github.com/tesselslate/waywall/internal/buffer"
	"github.com/tesselslate/waywall/internal/compositor"
	"github.com/tesselslate/waywall/internal/config"
	"github.com/tesselslate/waywall/internal/constraints"
	"github.com/tesselslate/waywall/internal/cursor"
	"github.com/tesselslate/waywall/internal/datadevice"
	"github.com/tesselslate/waywall/internal/dmabuf"
	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/output"
	"github.com/tesselslate/waywall/internal/rbuffer"
	"github.com/tesselslate/waywall/internal/scene"
	"github.com/tesselslate/waywall/internal/seat"
	"github.com/tesselslate/waywall/internal/ui"
	"github.com/tesselslate/waywall/internal/wire"
	"github.com/tesselslate/waywall/internal/xdgshell"
	"github.com/tesselslate/waywall/internal/xkb"
	"github.com/tesselslate/waywall/internal/xwayland"
	"github.com/tesselslate/waywall/internal/xwaylandshell"
)

// Options configures the inner display's socket.
type Options struct {
	// SocketName overrides the auto-generated "wayland-waywall-N" name, per
	// spec §6.
	SocketName string
}

// clientEntry pairs a connected peer's wire-level Client with the Conn it
// reads/writes on, so the poll loop can address it by fd.
type clientEntry struct {
	conn   *wire.Conn
	client *wire.Client
}

// Server is the process-wide root: owns the inner display, the outer
// backend, one UI root, one seat, one of each protocol global, and the X11
// subsystem if enabled.
type Server struct {
	display *wire.Display
	backend *backend.Backend

	seat   *seat.Seat
	cursor *cursor.Cursor
	rb     *rbuffer.Manager
	ui     *ui.UI
	scene  *scene.Scene
	xkb    *xkb.Context

	xwayland *xwayland.Process
	xwm      *xwayland.Xwm

	clients map[int]*clientEntry

	stopR, stopW *os.File
	sigCh        chan os.Signal
}

// New connects to the host compositor, builds the UI and seat, and listens
// on the inner display socket. Nothing is accepted until Run is called.
func New(opts Options) (*Server, error) {
	be, err := backend.Connect()
	if err != nil {
		return nil, fmt.Errorf("server: connect to outer compositor: %w", err)
	}

	st := seat.New()
	st.Attach(be.Seat)

	cur, err := cursor.New(be.Compositor)
	if err != nil {
		be.Close()
		return nil, fmt.Errorf("server: create cursor surface: %w", err)
	}
	st.PointerAttachedSignal.Connect(cur.AttachPointer)
	st.EnterSignal.Connect(cur.OnEnter)

	rb, err := rbuffer.New(be.Shm)
	if err != nil {
		be.Close()
		return nil, fmt.Errorf("server: create background buffer pool: %w", err)
	}

	u, err := ui.New(be.Compositor, be.Subcompositor, be.XdgWmBase, be.Decoration, be.Viewporter, rb)
	if err != nil {
		be.Close()
		return nil, fmt.Errorf("server: build UI root: %w", err)
	}
	cfg := config.Get()
	if bg, ok := parseColor(cfg.UI.BackgroundColor); ok {
		_ = u.SetBackground(bg)
	}

	scn := scene.New(st, cur, u)

	xkbCtx, err := xkb.New()
	if err != nil {
		logger.Errorf("server: xkb context unavailable: %v", err)
	}

	display, err := wire.Listen(opts.SocketName)
	if err != nil {
		be.Close()
		return nil, fmt.Errorf("server: listen on inner display: %w", err)
	}

	var xwp *xwayland.Process
	var xwm *xwayland.Xwm
	if cfg.Xwayland.Enabled {
		xwp, err = xwayland.Spawn(cfg.Xwayland.Binary)
		if err != nil {
			logger.Errorf("server: xwayland unavailable: %v", err)
		} else {
			xwm, err = xwayland.New(xwp.Display, u, scn.NotifyViewCreated)
			if err != nil {
				logger.Errorf("server: xwayland window manager unavailable: %v", err)
				_ = xwp.Kill()
				xwp = nil
			}
		}
	}

	s := &Server{
		display:  display,
		backend:  be,
		seat:     st,
		cursor:   cur,
		rb:       rb,
		ui:       u,
		scene:    scn,
		xkb:      xkbCtx,
		xwayland: xwp,
		xwm:      xwm,
		clients:  make(map[int]*clientEntry),
	}

	r, w, err := os.Pipe()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("server: create shutdown pipe: %w", err)
	}
	s.stopR, s.stopW = r, w
	s.sigCh = make(chan os.Signal, 2)
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-s.sigCh
		_, _ = s.stopW.Write([]byte{0})
	}()

	return s, nil
}

func parseColor(hex string) (uint32, bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, false
	}
	var v uint32
	if _, err := fmt.Sscanf(hex[1:], "%06x", &v); err != nil {
		return 0, false
	}
	return 0xff000000 | v, true
}

// Run drives the event loop until a shutdown signal arrives or the display
// socket is closed.
func (s *Server) Run() error {
	logger.Infof("waywall listening on %s", s.display.Name)

	for {
		displayFd, err := s.display.Fd()
		if err != nil {
			return fmt.Errorf("server: display fd: %w", err)
		}

		fds := []unix.PollFd{
			{Fd: int32(displayFd), Events: unix.POLLIN},
			{Fd: int32(s.backend.Fd()), Events: unix.POLLIN},
			{Fd: int32(s.stopR.Fd()), Events: unix.POLLIN},
		}
		order := make([]int, len(fds))

		xwmIdx := -1
		if s.xwm != nil {
			xwmIdx = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(s.xwm.Fd()), Events: unix.POLLIN})
			order = append(order, -1)
		}

		for fd := range s.clients {
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
			order = append(order, fd)
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("server: poll: %w", err)
		}

		if fds[2].Revents&unix.POLLIN != 0 {
			s.scene.NotifyClose()
			return nil
		}
		if fds[0].Revents&unix.POLLIN != 0 {
			s.acceptOne()
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			s.backend.Dispatch()
		}
		if xwmIdx >= 0 && fds[xwmIdx].Revents&unix.POLLIN != 0 {
			s.xwm.Dispatch()
		}
		for i := 3; i < len(fds); i++ {
			if order[i] < 0 {
				continue
			}
			if fds[i].Revents&unix.POLLIN == 0 {
				continue
			}
			s.dispatchClient(order[i])
		}
	}
}

func (s *Server) acceptOne() {
	conn, err := s.display.Accept()
	if err != nil {
		logger.Errorf("server: accept: %v", err)
		return
	}
	client := wire.NewClient(conn)
	s.wireClient(client)
	s.clients[conn.Fd()] = &clientEntry{conn: conn, client: client}
}

func (s *Server) dispatchClient(fd int) {
	entry, ok := s.clients[fd]
	if !ok {
		return
	}
	messages, err := entry.conn.Recv()
	if err != nil {
		if err == wire.ErrNoMessage {
			return
		}
		entry.client.Close()
		delete(s.clients, fd)
		return
	}
	if err := entry.client.Dispatch(messages); err != nil {
		entry.client.Close()
		delete(s.clients, fd)
	}
}

// wireClient registers every inner protocol global on a freshly accepted
// client, per the version list in spec.md §11.
func (s *Server) wireClient(client *wire.Client) {
	output.Global(client, s.backend.Output)
	seat.AddGlobal(client, s.seat)

	client.AddGlobal("wl_compositor", 5, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		co := compositor.NewCompositor(c, id, version, s.backend)
		if s.xwm != nil {
			s.xwm.WatchClient(c, co)
		}
		return co, nil
	})

	dmabuf.AddGlobals(client, s.backend)

	client.AddGlobal("wl_subcompositor", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		return compositor.NewSubcompositor(c, id, version, s.backend), nil
	})

	client.AddGlobal("wl_shm", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		return buffer.NewShm(c, id, version, s.backend), nil
	})

	client.AddGlobal("xdg_wm_base", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		wb := xdgshell.NewWmBase(c, id, version)
		wb.ToplevelCreateSignal.Connect(s.onToplevelCreate)
		return wb, nil
	})

	client.AddGlobal("zxdg_decoration_manager_v1", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		return xdgshell.NewDecorationManager(c, id, version), nil
	})

	client.AddGlobal("zwp_pointer_constraints_v1", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		return constraints.NewManager(c, id, version, s.backend.PointerConstraints), nil
	})
	client.AddGlobal("zwp_relative_pointer_manager_v1", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		sensitivity := func() float64 { return config.Get().Input.ConfinePointerSensitivity }
		return constraints.NewRelativePointerManager(c, id, version, s.backend.RelativePointerMgr, sensitivity), nil
	})

	client.AddGlobal("wl_data_device_manager", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
		outerDevice, err := s.backend.DataDeviceMgr.GetDataDevice(s.backend.Seat)
		if err != nil {
			return nil, fmt.Errorf("get_data_device: %w", err)
		}
		return datadevice.NewManager(c, id, version, s.backend.DataDeviceMgr, outerDevice), nil
	})

	if s.backend.XwaylandShell != nil {
		client.AddGlobal("xwayland_shell_v1", 1, func(c *wire.Client, id, version uint32) (wire.Object, error) {
			mgr := xwaylandshell.NewManager(c, id, version)
			if s.xwm != nil {
				s.xwm.RegisterXwaylandClient(c, mgr)
			}
			return mgr, nil
		})
	}
}

// onToplevelCreate turns a freshly created xdg_toplevel into a view and
// exposes it to the scripting façade, per spec §4.8.
func (s *Server) onToplevelCreate(t *xdgshell.Toplevel) {
	v, err := s.ui.NewView(t, t.Surface().Outer())
	if err != nil {
		logger.Errorf("server: create view for toplevel: %v", err)
		return
	}
	s.scene.NotifyViewCreated(v)
}

// Close tears down every client, then the backend and display, per spec
// §5's "destroy clients first, then globals" teardown order.
func (s *Server) Close() error {
	for fd, entry := range s.clients {
		entry.client.Close()
		delete(s.clients, fd)
	}
	if s.xwm != nil {
		s.xwm.Close()
	}
	if s.xwayland != nil {
		_ = s.xwayland.Kill()
	}
	if s.sigCh != nil {
		signal.Stop(s.sigCh)
	}
	if s.stopW != nil {
		s.stopW.Close()
	}
	if s.stopR != nil {
		s.stopR.Close()
	}
	if s.display != nil {
		_ = s.display.Close()
	}
	if s.backend != nil {
		_ = s.backend.Close()
	}
	return nil
}
