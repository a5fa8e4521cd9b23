package seat

import (
	"github.com/bnema/wlturbo/wl"

	"github.com/tesselslate/waywall/internal/wire"
)

// These helpers encode and send inner wl_pointer / wl_keyboard events
// directly against an object id, since the seat deals only in (client,
// surface-holder's resource id) pairs handed to it by Focusable, not
// concrete Go resource types.

const (
	pointerEventEnter  uint16 = 0
	pointerEventLeave  uint16 = 1
	pointerEventMotion uint16 = 2
	pointerEventButton uint16 = 3
	pointerEventAxis   uint16 = 4

	keyboardEventKeymap    uint16 = 0
	keyboardEventEnter     uint16 = 1
	keyboardEventLeave     uint16 = 2
	keyboardEventKey       uint16 = 3
	keyboardEventModifiers uint16 = 4
)

// toWireFixed reinterprets an outer wlturbo Fixed as an inner wire.Fixed:
// both are the Wayland wire protocol's 24.8 signed fixed-point format, so
// the underlying int32 representation is identical.
func toWireFixed(f wl.Fixed) wire.Fixed { return wire.Fixed(int32(f)) }

func sendPointerEnter(c *wire.Client, surfaceID uint32, serial uint32, x, y wl.Fixed) error {
	w := wire.NewWriter().PutUint32(serial).PutUint32(surfaceID).PutFixed(toWireFixed(x)).PutFixed(toWireFixed(y))
	return c.SendEvent(pointerResourceID(c), pointerEventEnter, w.Bytes(), nil)
}

func sendPointerLeave(c *wire.Client, surfaceID uint32, serial uint32) error {
	w := wire.NewWriter().PutUint32(serial).PutUint32(surfaceID)
	return c.SendEvent(pointerResourceID(c), pointerEventLeave, w.Bytes(), nil)
}

func sendPointerMotion(c *wire.Client, _ uint32, t uint32, x, y wl.Fixed) error {
	w := wire.NewWriter().PutUint32(t).PutFixed(toWireFixed(x)).PutFixed(toWireFixed(y))
	return c.SendEvent(pointerResourceID(c), pointerEventMotion, w.Bytes(), nil)
}

func sendPointerButton(c *wire.Client, _ uint32, serial, t, button uint32, pressed bool) error {
	state := uint32(0)
	if pressed {
		state = 1
	}
	w := wire.NewWriter().PutUint32(serial).PutUint32(t).PutUint32(button).PutUint32(state)
	return c.SendEvent(pointerResourceID(c), pointerEventButton, w.Bytes(), nil)
}

func sendPointerAxis(c *wire.Client, _ uint32, t, axis uint32, value wl.Fixed) error {
	w := wire.NewWriter().PutUint32(t).PutUint32(axis).PutFixed(toWireFixed(value))
	return c.SendEvent(pointerResourceID(c), pointerEventAxis, w.Bytes(), nil)
}

func sendKeyboardEnter(c *wire.Client, surfaceID uint32, serial uint32, keys []uint32) error {
	w := wire.NewWriter().PutUint32(serial).PutUint32(surfaceID).PutArray(keysToBytes(keys))
	return c.SendEvent(keyboardResourceID(c), keyboardEventEnter, w.Bytes(), nil)
}

func sendKeyboardLeave(c *wire.Client, surfaceID uint32, serial uint32) error {
	w := wire.NewWriter().PutUint32(serial).PutUint32(surfaceID)
	return c.SendEvent(keyboardResourceID(c), keyboardEventLeave, w.Bytes(), nil)
}

func sendKeyboardKey(c *wire.Client, _ uint32, serial, t, key uint32, pressed bool) error {
	state := uint32(0)
	if pressed {
		state = 1
	}
	w := wire.NewWriter().PutUint32(serial).PutUint32(t).PutUint32(key).PutUint32(state)
	return c.SendEvent(keyboardResourceID(c), keyboardEventKey, w.Bytes(), nil)
}

func sendKeyboardModifiers(c *wire.Client, _ uint32, serial, depressed, latched, locked, group uint32) error {
	w := wire.NewWriter().PutUint32(serial).PutUint32(depressed).PutUint32(latched).PutUint32(locked).PutUint32(group)
	return c.SendEvent(keyboardResourceID(c), keyboardEventModifiers, w.Bytes(), nil)
}

func keysToBytes(keys []uint32) []byte {
	buf := make([]byte, len(keys)*4)
	for i, k := range keys {
		buf[i*4] = byte(k)
		buf[i*4+1] = byte(k >> 8)
		buf[i*4+2] = byte(k >> 16)
		buf[i*4+3] = byte(k >> 24)
	}
	return buf
}

// pointerResourceID and keyboardResourceID resolve the bound wl_pointer /
// wl_keyboard resource id for a client. waywall forwards input only to
// clients it itself tracks focus for (views own exactly one of each),
// recorded on the client's user data by whatever constructs its resources.
func pointerResourceID(c *wire.Client) uint32 {
	if ud, ok := c.UserData().(ResourceIDs); ok {
		return ud.PointerID
	}
	return 0
}

func keyboardResourceID(c *wire.Client) uint32 {
	if ud, ok := c.UserData().(ResourceIDs); ok {
		return ud.KeyboardID
	}
	return 0
}

// ResourceIDs is stashed as a client's UserData so the seat's event senders
// can address the client's bound wl_pointer/wl_keyboard objects without
// threading resource types through the Focusable interface.
type ResourceIDs struct {
	PointerID  uint32
	KeyboardID uint32
}
