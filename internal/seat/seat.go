// Package seat implements the single global input state: keyboard/pointer
// focus and routing, pressed-key tracking, serial allocation, and synthetic
// input injection, per spec §4.4.
package seat

import (
	"github.com/bnema/wlturbo/wl"
	"golang.org/x/sys/unix"

	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/wire"
)

// Listener is consulted before a host key/button event is forwarded to the
// focused client. Returning true for Key/Button marks the event consumed
// (not forwarded). Motion, Modifiers and Keymap are notification-only.
// Key receives the host's keycode as a one-element slice; no keysym
// translation is applied before the listener sees it.
type Listener struct {
	Button    func(button uint32, pressed bool) (consumed bool)
	Key       func(syms []uint32, pressed bool) (consumed bool)
	Motion    func(x, y float64)
	Modifiers func(depressed, latched, locked, group uint32)
	Keymap    func(fd int, size uint32)
}

// Focusable is anything the seat can route input to: a view's paired inner
// client and the wl_surface its keyboard/pointer events are addressed to.
type Focusable interface {
	// KeyboardResource and PointerResource return the inner wl_keyboard /
	// wl_pointer resource bound by the focused client, if any, and the
	// inner wl_surface object id they should be addressed against.
	KeyboardResource() (client *wire.Client, surfaceID uint32, ok bool)
	PointerResource() (client *wire.Client, surfaceID uint32, ok bool)
}

// Seat is the process-wide input singleton.
type Seat struct {
	outer *proto.Seat

	pointer  *proto.Pointer
	keyboard *proto.Keyboard

	pressed map[uint32]bool

	modsDepressed, modsLatched, modsLocked, group uint32

	cursorX, cursorY wl.Fixed
	lastEnterSerial  uint32

	keymapFD   int
	keymapSize uint32
	repeatRate, repeatDelay int32

	focus Focusable

	listener *Listener

	lastSyntheticTime uint32

	// EnterSignal fires with the last pointer-enter serial, consumed by the
	// cursor component to reissue set_cursor.
	EnterSignal wire.Signal[uint32]

	// PointerAttachedSignal fires once the host pointer capability appears,
	// letting the cursor component bind its own set_cursor calls to it.
	PointerAttachedSignal wire.Signal[*proto.Pointer]
}

func New() *Seat {
	return &Seat{pressed: make(map[uint32]bool), keymapFD: -1}
}

// Attach wires the seat to the outer wl_seat binding, registering pointer
// and keyboard listeners once the corresponding capability is advertised.
func (s *Seat) Attach(outer *proto.Seat) {
	s.outer = outer
	outer.SetCapabilitiesHandler(func(caps uint32) {
		if caps&proto.SeatCapabilityPointer != 0 && s.pointer == nil {
			if p, err := outer.GetPointer(); err == nil {
				s.wirePointer(p)
				s.PointerAttachedSignal.Emit(p)
			} else {
				logger.Errorf("seat: get_pointer failed: %v", err)
			}
		}
		if caps&proto.SeatCapabilityKeyboard != 0 && s.keyboard == nil {
			if k, err := outer.GetKeyboard(); err == nil {
				s.wireKeyboard(k)
			} else {
				logger.Errorf("seat: get_keyboard failed: %v", err)
			}
		}
	})
}

// SetListener installs the optional pre-forwarding listener.
func (s *Seat) SetListener(l *Listener) {
	s.listener = l
	if l != nil && l.Keymap != nil && s.keymapFD >= 0 {
		l.Keymap(s.keymapFD, s.keymapSize)
	}
}

func (s *Seat) wirePointer(p *proto.Pointer) {
	s.pointer = p
	p.SetEnterHandler(func(serial uint32, _ *proto.Surface, x, y wl.Fixed) {
		s.cursorX, s.cursorY = x, y
		s.lastEnterSerial = serial
		s.EnterSignal.Emit(serial)
	})
	p.SetMotionHandler(func(t uint32, x, y wl.Fixed) {
		s.cursorX, s.cursorY = x, y
		if s.listener != nil && s.listener.Motion != nil {
			s.listener.Motion(fixedToFloat64(x), fixedToFloat64(y))
		}
		s.forwardMotion(t, x, y)
	})
	p.SetButtonHandler(func(serial, t, button, state uint32) {
		pressed := state == 1
		consumed := false
		if s.listener != nil && s.listener.Button != nil {
			consumed = s.listener.Button(button, pressed)
		}
		if consumed {
			return
		}
		s.forwardButton(t, button, pressed)
	})
	p.SetAxisHandler(func(t, axis uint32, value wl.Fixed) {
		s.forwardAxis(t, axis, value)
	})
}

func (s *Seat) wireKeyboard(k *proto.Keyboard) {
	s.keyboard = k
	k.SetKeymapHandler(func(format uint32, fd int, size uint32) {
		s.keymapFD = fd
		s.keymapSize = size
		if s.listener != nil && s.listener.Keymap != nil {
			s.listener.Keymap(fd, size)
		}
	})
	k.SetKeyHandler(func(serial, t, key, state uint32) {
		pressed := state == 1
		consumed := false
		if s.listener != nil && s.listener.Key != nil {
			consumed = s.listener.Key([]uint32{key}, pressed)
		}
		if !pressed {
			delete(s.pressed, key)
		} else if !consumed {
			s.pressed[key] = true
		}
		if consumed {
			return
		}
		s.forwardKey(t, key, pressed)
	})
	k.SetModifiersHandler(func(serial, d, l, lo, g uint32) {
		s.modsDepressed, s.modsLatched, s.modsLocked, s.group = d, l, lo, g
		if s.listener != nil && s.listener.Modifiers != nil {
			s.listener.Modifiers(d, l, lo, g)
		}
		s.forwardModifiers()
	})
	k.SetRepeatInfoHandler(func(rate, delay int32) {
		s.repeatRate, s.repeatDelay = rate, delay
	})
}

// SetInputFocus changes which client receives keyboard/pointer input. Per
// spec §4.4.1 this handles leave/enter with full pressed-key and modifier
// state transfer.
func (s *Seat) SetInputFocus(f Focusable) {
	prev := s.focus
	if prev != nil {
		if client, surfaceID, ok := prev.KeyboardResource(); ok {
			for key := range s.pressed {
				_ = sendKeyboardKey(client, surfaceID, wire.NextSerial(), monotonicMillis(), key, false)
			}
			_ = sendKeyboardModifiers(client, surfaceID, wire.NextSerial(), 0, 0, 0, 0)
			_ = sendKeyboardLeave(client, surfaceID, wire.NextSerial())
		}
		if client, surfaceID, ok := prev.PointerResource(); ok {
			_ = sendPointerLeave(client, surfaceID, wire.NextSerial())
		}
	}
	s.focus = f
	if f == nil {
		return
	}
	if client, surfaceID, ok := f.KeyboardResource(); ok {
		keys := make([]uint32, 0, len(s.pressed))
		for k := range s.pressed {
			keys = append(keys, k)
		}
		_ = sendKeyboardEnter(client, surfaceID, wire.NextSerial(), keys)
		_ = sendKeyboardModifiers(client, surfaceID, wire.NextSerial(), s.modsDepressed, s.modsLatched, s.modsLocked, s.group)
	}
	if client, surfaceID, ok := f.PointerResource(); ok {
		_ = sendPointerEnter(client, surfaceID, wire.NextSerial(), s.cursorX, s.cursorY)
	}
}

func (s *Seat) forwardMotion(t uint32, x, y wl.Fixed) {
	if s.focus == nil {
		return
	}
	client, surfaceID, ok := s.focus.PointerResource()
	if !ok {
		return
	}
	_ = sendPointerMotion(client, surfaceID, t, x, y)
}

func (s *Seat) forwardButton(t, button uint32, pressed bool) {
	if s.focus == nil {
		return
	}
	client, surfaceID, ok := s.focus.PointerResource()
	if !ok {
		return
	}
	_ = sendPointerButton(client, surfaceID, wire.NextSerial(), t, button, pressed)
}

func (s *Seat) forwardAxis(t, axis uint32, value wl.Fixed) {
	if s.focus == nil {
		return
	}
	client, surfaceID, ok := s.focus.PointerResource()
	if !ok {
		return
	}
	_ = sendPointerAxis(client, surfaceID, t, axis, value)
}

func (s *Seat) forwardKey(t, key uint32, pressed bool) {
	if s.focus == nil {
		return
	}
	client, surfaceID, ok := s.focus.KeyboardResource()
	if !ok {
		return
	}
	_ = sendKeyboardKey(client, surfaceID, wire.NextSerial(), t, key, pressed)
}

func (s *Seat) forwardModifiers() {
	if s.focus == nil {
		return
	}
	client, surfaceID, ok := s.focus.KeyboardResource()
	if !ok {
		return
	}
	_ = sendKeyboardModifiers(client, surfaceID, wire.NextSerial(), s.modsDepressed, s.modsLatched, s.modsLocked, s.group)
}

// monotonicMillis is the forwarded event timestamp clock, distinct from
// wall time per the Wayland protocol's timestamp contract.
func monotonicMillis() uint32 {
	var ts unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return uint32(int64(ts.Sec)*1000 + int64(ts.Nsec)/1000000)
}

// nextSyntheticTime returns a timestamp guaranteed to strictly exceed the
// previous synthetic timestamp handed out, per spec §4.4.3.
func (s *Seat) nextSyntheticTime() uint32 {
	t := monotonicMillis()
	if t <= s.lastSyntheticTime {
		t = s.lastSyntheticTime + 1
	}
	s.lastSyntheticTime = t
	return t
}

// SendKeys delivers synthetic (keycode, pressed) pairs to a view's
// keyboard-capable client, per spec §4.4.3. The caller is responsible for
// temporarily granting keyboard focus when the view is not already focused.
func (s *Seat) SendKeys(f Focusable, keys []struct {
	Keycode uint32
	Pressed bool
}) {
	client, surfaceID, ok := f.KeyboardResource()
	if !ok {
		return
	}
	for _, k := range keys {
		t := s.nextSyntheticTime()
		_ = sendKeyboardKey(client, surfaceID, wire.NextSerial(), t, k.Keycode, k.Pressed)
	}
}

// SendClick fakes a left-button press+release with surrounding enter/leave
// on the view's wl_pointer resource. It is the Wayland-path fallback;
// Xwayland-backed views get their clicks through XTEST instead (see
// ui.SyntheticInputTarget).
func (s *Seat) SendClick(f Focusable) {
	client, surfaceID, ok := f.PointerResource()
	if !ok {
		return
	}
	const btnLeft = 0x110
	_ = sendPointerEnter(client, surfaceID, wire.NextSerial(), s.cursorX, s.cursorY)
	_ = sendPointerButton(client, surfaceID, wire.NextSerial(), s.nextSyntheticTime(), btnLeft, true)
	_ = sendPointerButton(client, surfaceID, wire.NextSerial(), s.nextSyntheticTime(), btnLeft, false)
	_ = sendPointerLeave(client, surfaceID, wire.NextSerial())
}

// KeymapFD returns the last keymap fd/size received from the host, for
// components (e.g. xkb) that initialise after the event already fired.
func (s *Seat) KeymapFD() (fd int, size uint32) { return s.keymapFD, s.keymapSize }

// RepeatInfo returns the last repeat-rate/delay received from the host.
func (s *Seat) RepeatInfo() (rate, delay int32) { return s.repeatRate, s.repeatDelay }

// CursorPosition returns the last known pointer coordinates in root space.
func (s *Seat) CursorPosition() (wl.Fixed, wl.Fixed) { return s.cursorX, s.cursorY }

// SetSyntheticCursorPosition overrides the position used by the next
// synthetic enter/click crossing events (server.set_pointer_pos), without
// warping the real host pointer.
func (s *Seat) SetSyntheticCursorPosition(x, y float64) {
	s.cursorX = wl.Fixed(int32(x * 256))
	s.cursorY = wl.Fixed(int32(y * 256))
}

// fixedToFloat64 converts a wayland 24.8 fixed-point value to float64,
// matching the wire format directly rather than relying on an unconfirmed
// wlturbo conversion method.
func fixedToFloat64(f wl.Fixed) float64 {
	return float64(int32(f)) / 256.0
}
