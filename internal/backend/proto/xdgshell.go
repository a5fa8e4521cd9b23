package proto

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

// XdgWmBase wraps xdg_wm_base, hand-authored in the same generated style as
// this stack's virtual-input bindings because the protocol postdates what a
// pinned pure-Go client stub generator would have shipped.
type XdgWmBase struct {
	wl.BaseProxy

	pingHandler func(serial uint32)
}

func NewXdgWmBase(ctx *wl.Context) *XdgWmBase {
	b := &XdgWmBase{}
	b.SetContext(ctx)
	return b
}

func (b *XdgWmBase) SetPingHandler(f func(serial uint32)) { b.pingHandler = f }

func (b *XdgWmBase) Pong(serial uint32) error {
	const opcode = 3
	return b.Context().SendRequest(b, opcode, serial)
}

func (b *XdgWmBase) GetXdgSurface(surface *Surface) (*XdgSurface, error) {
	const opcode = 2
	xs := &XdgSurface{}
	xs.SetContext(b.Context())
	xs.SetID(b.Context().AllocateID())
	b.Context().Register(xs)
	if err := b.Context().SendRequest(b, opcode, xs, surface); err != nil {
		b.Context().Unregister(xs)
		return nil, err
	}
	return xs, nil
}

func (b *XdgWmBase) Dispatch(event *wl.Event) {
	if event.Opcode != 0 || b.pingHandler == nil {
		return
	}
	if d := event.Data(); len(d) >= 4 {
		b.pingHandler(binary.LittleEndian.Uint32(d))
	}
}

type XdgSurface struct {
	wl.BaseProxy

	configureHandler func(serial uint32)
}

func (s *XdgSurface) SetConfigureHandler(f func(serial uint32)) { s.configureHandler = f }

func (s *XdgSurface) GetToplevel() (*XdgToplevel, error) {
	const opcode = 1
	t := &XdgToplevel{}
	t.SetContext(s.Context())
	t.SetID(s.Context().AllocateID())
	s.Context().Register(t)
	if err := s.Context().SendRequest(s, opcode, t); err != nil {
		s.Context().Unregister(t)
		return nil, err
	}
	return t, nil
}

func (s *XdgSurface) AckConfigure(serial uint32) error {
	const opcode = 4
	return s.Context().SendRequest(s, opcode, serial)
}

func (s *XdgSurface) SetWindowGeometry(x, y, w, h int32) error {
	const opcode = 3
	return s.Context().SendRequest(s, opcode, x, y, w, h)
}

func (s *XdgSurface) Destroy() error {
	const opcode = 0
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

func (s *XdgSurface) Dispatch(event *wl.Event) {
	if event.Opcode != 0 || s.configureHandler == nil {
		return
	}
	if d := event.Data(); len(d) >= 4 {
		s.configureHandler(binary.LittleEndian.Uint32(d))
	}
}

type XdgToplevel struct {
	wl.BaseProxy

	configureHandler func(width, height int32, states []byte)
	closeHandler     func()
}

func (t *XdgToplevel) SetConfigureHandler(f func(width, height int32, states []byte)) {
	t.configureHandler = f
}
func (t *XdgToplevel) SetCloseHandler(f func()) { t.closeHandler = f }

func (t *XdgToplevel) SetTitle(title string) error {
	const opcode = 2
	return t.Context().SendRequest(t, opcode, title)
}

func (t *XdgToplevel) SetAppId(appID string) error {
	const opcode = 3
	return t.Context().SendRequest(t, opcode, appID)
}

func (t *XdgToplevel) SetMaxSize(w, h int32) error {
	const opcode = 7
	return t.Context().SendRequest(t, opcode, w, h)
}

func (t *XdgToplevel) SetMinSize(w, h int32) error {
	const opcode = 8
	return t.Context().SendRequest(t, opcode, w, h)
}

func (t *XdgToplevel) Destroy() error {
	const opcode = 0
	err := t.Context().SendRequest(t, opcode)
	t.Context().Unregister(t)
	return err
}

func (t *XdgToplevel) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure(width, height, states)
		r := newArgReader(event.Data())
		w, _ := r.int32()
		h, _ := r.int32()
		states, _ := r.array()
		if t.configureHandler != nil {
			t.configureHandler(w, h, states)
		}
	case 1: // close
		if t.closeHandler != nil {
			t.closeHandler()
		}
	}
}

func (r *argReader) array() ([]byte, bool) {
	n, ok := r.uint32()
	if !ok {
		return nil, false
	}
	end := r.off + int(n)
	if end > len(r.data) {
		return nil, false
	}
	v := r.data[r.off:end]
	r.off += pad4(int(n))
	return v, true
}

// XdgDecorationManager wraps zxdg_decoration_manager_v1. waywall always
// announces server-side decorations regardless of what the request asks
// for, matching the known client's expectations.
type XdgDecorationManager struct{ wl.BaseProxy }

func NewXdgDecorationManager(ctx *wl.Context) *XdgDecorationManager {
	m := &XdgDecorationManager{}
	m.SetContext(ctx)
	return m
}

func (m *XdgDecorationManager) GetToplevelDecoration(toplevel *XdgToplevel) (*ToplevelDecoration, error) {
	const opcode = 0
	d := &ToplevelDecoration{}
	d.SetContext(m.Context())
	d.SetID(m.Context().AllocateID())
	m.Context().Register(d)
	if err := m.Context().SendRequest(m, opcode, d, toplevel); err != nil {
		m.Context().Unregister(d)
		return nil, err
	}
	return d, nil
}

func (m *XdgDecorationManager) Dispatch(*wl.Event) {}

const (
	DecorationModeClientSide uint32 = 1
	DecorationModeServerSide uint32 = 2
)

type ToplevelDecoration struct {
	wl.BaseProxy

	configureHandler func(mode uint32)
}

func (d *ToplevelDecoration) SetConfigureHandler(f func(mode uint32)) { d.configureHandler = f }

func (d *ToplevelDecoration) SetMode(mode uint32) error {
	const opcode = 1
	return d.Context().SendRequest(d, opcode, mode)
}

func (d *ToplevelDecoration) Destroy() error {
	const opcode = 0
	err := d.Context().SendRequest(d, opcode)
	d.Context().Unregister(d)
	return err
}

func (d *ToplevelDecoration) Dispatch(event *wl.Event) {
	if event.Opcode != 0 || d.configureHandler == nil {
		return
	}
	if data := event.Data(); len(data) >= 4 {
		d.configureHandler(binary.LittleEndian.Uint32(data))
	}
}
