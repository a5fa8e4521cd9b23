package proto

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

const (
	SeatCapabilityPointer  uint32 = 1
	SeatCapabilityKeyboard uint32 = 2
	SeatCapabilityTouch    uint32 = 4
)

// Seat wraps wl_seat, the host capability-advertisement object waywall
// uses to decide whether to bind a pointer and/or keyboard for forwarding
// host input into the inner compositor.
type Seat struct {
	wl.BaseProxy

	capabilitiesHandler func(caps uint32)
	nameHandler         func(name string)
}

func NewSeat(ctx *wl.Context) *Seat {
	s := &Seat{}
	s.SetContext(ctx)
	return s
}

func (s *Seat) SetCapabilitiesHandler(f func(caps uint32)) { s.capabilitiesHandler = f }
func (s *Seat) SetNameHandler(f func(name string))         { s.nameHandler = f }

func (s *Seat) GetPointer() (*Pointer, error) {
	const opcode = 0
	p := &Pointer{}
	p.SetContext(s.Context())
	p.SetID(s.Context().AllocateID())
	s.Context().Register(p)
	if err := s.Context().SendRequest(s, opcode, p); err != nil {
		s.Context().Unregister(p)
		return nil, err
	}
	return p, nil
}

func (s *Seat) GetKeyboard() (*Keyboard, error) {
	const opcode = 1
	k := &Keyboard{}
	k.SetContext(s.Context())
	k.SetID(s.Context().AllocateID())
	s.Context().Register(k)
	if err := s.Context().SendRequest(s, opcode, k); err != nil {
		s.Context().Unregister(k)
		return nil, err
	}
	return k, nil
}

func (s *Seat) Dispatch(event *wl.Event) {
	data := event.Data()
	switch event.Opcode {
	case 0:
		if len(data) >= 4 && s.capabilitiesHandler != nil {
			s.capabilitiesHandler(binary.LittleEndian.Uint32(data))
		}
	case 1:
		r := newArgReader(data)
		name, _ := r.string()
		if s.nameHandler != nil {
			s.nameHandler(name)
		}
	}
}

// Pointer wraps wl_pointer: host pointer motion/button/axis forwarded into
// the seat's focus-routing logic, and set_cursor used by the cursor
// component to attach the xcursor image.
type Pointer struct {
	wl.BaseProxy

	enterHandler  func(serial uint32, surface *Surface, x, y wl.Fixed)
	leaveHandler  func(serial uint32, surface *Surface)
	motionHandler func(time uint32, x, y wl.Fixed)
	buttonHandler func(serial, time, button, state uint32)
	axisHandler   func(time, axis uint32, value wl.Fixed)
}

func (p *Pointer) SetEnterHandler(f func(serial uint32, surface *Surface, x, y wl.Fixed)) {
	p.enterHandler = f
}
func (p *Pointer) SetLeaveHandler(f func(serial uint32, surface *Surface)) { p.leaveHandler = f }
func (p *Pointer) SetMotionHandler(f func(time uint32, x, y wl.Fixed))     { p.motionHandler = f }
func (p *Pointer) SetButtonHandler(f func(serial, time, button, state uint32)) {
	p.buttonHandler = f
}
func (p *Pointer) SetAxisHandler(f func(time, axis uint32, value wl.Fixed)) { p.axisHandler = f }

func (p *Pointer) SetCursor(serial uint32, surface *Surface, hotspotX, hotspotY int32) error {
	const opcode = 0
	var s interface{}
	if surface != nil {
		s = surface
	}
	return p.Context().SendRequest(p, opcode, serial, s, hotspotX, hotspotY)
}

func (p *Pointer) Release() error {
	const opcode = 1
	err := p.Context().SendRequest(p, opcode)
	p.Context().Unregister(p)
	return err
}

func (p *Pointer) Dispatch(event *wl.Event) {
	data := event.Data()
	r := newArgReader(data)
	switch event.Opcode {
	case 0: // enter(serial, surface, x, y) - surface is not resolved; the handler gets nil
		serial, _ := r.uint32()
		_, _ = r.uint32() // surface object id, discarded
		x, _ := r.int32()
		y, _ := r.int32()
		if p.enterHandler != nil {
			p.enterHandler(serial, nil, wl.Fixed(x), wl.Fixed(y))
		}
	case 1: // leave(serial, surface)
		serial, _ := r.uint32()
		if p.leaveHandler != nil {
			p.leaveHandler(serial, nil)
		}
	case 2: // motion(time, x, y)
		t, _ := r.uint32()
		x, _ := r.int32()
		y, _ := r.int32()
		if p.motionHandler != nil {
			p.motionHandler(t, wl.Fixed(x), wl.Fixed(y))
		}
	case 3: // button(serial, time, button, state)
		serial, _ := r.uint32()
		t, _ := r.uint32()
		btn, _ := r.uint32()
		state, _ := r.uint32()
		if p.buttonHandler != nil {
			p.buttonHandler(serial, t, btn, state)
		}
	case 4: // axis(time, axis, value)
		t, _ := r.uint32()
		axis, _ := r.uint32()
		v, _ := r.int32()
		if p.axisHandler != nil {
			p.axisHandler(t, axis, wl.Fixed(v))
		}
	}
}

// Keyboard wraps wl_keyboard.
type Keyboard struct {
	wl.BaseProxy

	keymapHandler     func(format uint32, fd int, size uint32)
	keyHandler        func(serial, time, key, state uint32)
	modifiersHandler  func(serial, modsDepressed, modsLatched, modsLocked, group uint32)
	repeatInfoHandler func(rate, delay int32)
}

func (k *Keyboard) SetKeymapHandler(f func(format uint32, fd int, size uint32)) { k.keymapHandler = f }
func (k *Keyboard) SetKeyHandler(f func(serial, time, key, state uint32))      { k.keyHandler = f }
func (k *Keyboard) SetModifiersHandler(f func(serial, modsDepressed, modsLatched, modsLocked, group uint32)) {
	k.modifiersHandler = f
}
func (k *Keyboard) SetRepeatInfoHandler(f func(rate, delay int32)) { k.repeatInfoHandler = f }

func (k *Keyboard) Release() error {
	const opcode = 0
	err := k.Context().SendRequest(k, opcode)
	k.Context().Unregister(k)
	return err
}

func (k *Keyboard) Dispatch(event *wl.Event) {
	data := event.Data()
	r := newArgReader(data)
	switch event.Opcode {
	case 0: // keymap(format, fd, size) - fd rides out-of-band on the event
		format, _ := r.uint32()
		size, _ := r.uint32()
		fd := -1
		if fds := event.FDs(); len(fds) > 0 {
			fd = fds[0]
		}
		if k.keymapHandler != nil {
			k.keymapHandler(format, fd, size)
		}
	case 3: // key(serial, time, key, state)
		serial, _ := r.uint32()
		t, _ := r.uint32()
		key, _ := r.uint32()
		state, _ := r.uint32()
		if k.keyHandler != nil {
			k.keyHandler(serial, t, key, state)
		}
	case 4: // modifiers(serial, depressed, latched, locked, group)
		serial, _ := r.uint32()
		d, _ := r.uint32()
		l, _ := r.uint32()
		lo, _ := r.uint32()
		g, _ := r.uint32()
		if k.modifiersHandler != nil {
			k.modifiersHandler(serial, d, l, lo, g)
		}
	case 5: // repeat_info(rate, delay)
		rate, _ := r.int32()
		delay, _ := r.int32()
		if k.repeatInfoHandler != nil {
			k.repeatInfoHandler(rate, delay)
		}
	}
}
