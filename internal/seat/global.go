package seat

import (
	"golang.org/x/sys/unix"

	"github.com/tesselslate/waywall/internal/wire"
)

const (
	seatCapabilityPointer  uint32 = 1
	seatCapabilityKeyboard uint32 = 2

	seatOpGetPointer  uint16 = 0
	seatOpGetKeyboard uint16 = 1
	seatOpGetTouch    uint16 = 2
	seatOpRelease     uint16 = 3

	seatEventCapabilities uint16 = 0
	seatEventName         uint16 = 1

	pointerOpSetCursor uint16 = 0
	pointerOpRelease   uint16 = 1

	keyboardOpRelease uint16 = 0

	keyboardEventRepeatInfo uint16 = 5

	keymapFormatXkbV1 uint32 = 1
)

// Global is the inner wl_seat global. waywall only ever tracks one bound
// pointer and one bound keyboard resource per client, recorded as
// ResourceIDs on the client's UserData so the event senders in events.go
// can address them directly; requests beyond get_pointer/get_keyboard and
// release are otherwise inert, since the known client never issues
// set_cursor against waywall's own synthetic input.
type Global struct {
	wire.BaseObject

	client *wire.Client
	seat   *Seat
}

// AddGlobal registers the inner wl_seat global on client. Its capabilities
// event always advertises pointer and keyboard; the host seat's own
// capabilities are not consulted.
func AddGlobal(client *wire.Client, s *Seat) wire.Global {
	return client.AddGlobal("wl_seat", 5, func(c *wire.Client, id uint32, version uint32) (wire.Object, error) {
		g := &Global{BaseObject: wire.NewBaseObject(id, "wl_seat", version), client: c, seat: s}
		g.sendCapabilities()
		if version >= 2 {
			_ = c.SendEvent(id, seatEventName, wire.NewWriter().PutString("waywall").Bytes(), nil)
		}
		return g, nil
	})
}

func (g *Global) sendCapabilities() {
	const caps = seatCapabilityPointer | seatCapabilityKeyboard
	_ = g.client.SendEvent(g.ID(), seatEventCapabilities, wire.NewWriter().PutUint32(caps).Bytes(), nil)
}

func (g *Global) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case seatOpGetPointer:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		p := newPointer(g.client, id, g.Version())
		g.client.Insert(p)
		g.recordResourceID(func(rid *ResourceIDs) { rid.PointerID = id })
		return nil
	case seatOpGetKeyboard:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		k := newKeyboard(g.client, id, g.Version())
		g.client.Insert(k)
		g.recordResourceID(func(rid *ResourceIDs) { rid.KeyboardID = id })
		k.sendInitialState(g.seat)
		return nil
	case seatOpGetTouch:
		_, _ = r.Uint32()
		return wire.Errorf(g.ID(), 0, "get_touch: touch is not supported")
	case seatOpRelease:
		g.client.Remove(g.ID())
		return nil
	default:
		return wire.Errorf(g.ID(), 0, "wl_seat has no request %d", opcode)
	}
}

func (g *Global) recordResourceID(set func(*ResourceIDs)) {
	rid, _ := g.client.UserData().(ResourceIDs)
	set(&rid)
	g.client.SetUserData(rid)
}

func (g *Global) Destroy() {}

type pointerResource struct {
	wire.BaseObject
	client *wire.Client
}

func newPointer(client *wire.Client, id, version uint32) *pointerResource {
	return &pointerResource{BaseObject: wire.NewBaseObject(id, "wl_pointer", version), client: client}
}

func (p *pointerResource) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case pointerOpSetCursor:
		_, _ = r.Uint32() // serial
		_, _ = r.Uint32() // surface, possibly nil; waywall ignores client cursor surfaces
		_, _ = r.Int32()  // hotspot x
		_, _ = r.Int32()  // hotspot y
		return nil
	case pointerOpRelease:
		p.client.Remove(p.ID())
		return nil
	default:
		return wire.Errorf(p.ID(), 0, "wl_pointer has no request %d", opcode)
	}
}

func (p *pointerResource) Destroy() {}

type keyboardResource struct {
	wire.BaseObject
	client *wire.Client
}

func newKeyboard(client *wire.Client, id, version uint32) *keyboardResource {
	return &keyboardResource{BaseObject: wire.NewBaseObject(id, "wl_keyboard", version), client: client}
}

// sendInitialState forwards the keymap already cached from the host (if
// any) and the current repeat-rate/delay, matching what a real compositor
// sends immediately after a keyboard resource is bound.
func (k *keyboardResource) sendInitialState(s *Seat) {
	if fd, size := s.KeymapFD(); fd >= 0 {
		if dup, err := unix.Dup(fd); err == nil {
			w := wire.NewWriter().PutUint32(keymapFormatXkbV1).PutUint32(size)
			_ = k.client.SendEvent(k.ID(), keyboardEventKeymap, w.Bytes(), []int{dup})
		}
	}
	if rate, delay := s.RepeatInfo(); k.Version() >= 4 {
		w := wire.NewWriter().PutInt32(rate).PutInt32(delay)
		_ = k.client.SendEvent(k.ID(), keyboardEventRepeatInfo, w.Bytes(), nil)
	}
}

func (k *keyboardResource) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case keyboardOpRelease:
		k.client.Remove(k.ID())
		return nil
	default:
		return wire.Errorf(k.ID(), 0, "wl_keyboard has no request %d", opcode)
	}
}

func (k *keyboardResource) Destroy() {}
