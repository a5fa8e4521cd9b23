// Package scene implements the stable script/scene façade named in spec
// §6: the narrow surface the out-of-scope scripting/scene layer is built
// on, independent of the Wayland protocol details underneath it.
package scene

import (
	"github.com/tesselslate/waywall/internal/cursor"
	"github.com/tesselslate/waywall/internal/seat"
	"github.com/tesselslate/waywall/internal/ui"
	"github.com/tesselslate/waywall/internal/wire"
)

// Listener mirrors seat.Listener, re-exported here so scripting code never
// imports internal/seat directly.
type Listener = seat.Listener

// Scene is the façade: server.set_input_focus, server.set_pointer_pos,
// seat.send_keys/send_click, seat.set_listener, cursor.show/hide, and the
// named signals view_create, view_destroy, resize, close, pointer_lock,
// pointer_unlock, input_focus.
type Scene struct {
	seat   *seat.Seat
	cursor *cursor.Cursor
	ui     *ui.UI

	ViewCreateSignal  wire.Signal[*ui.View]
	ViewDestroySignal wire.Signal[*ui.View]
	ResizeSignal      wire.Signal[*ui.View]
	CloseSignal       wire.Signal[struct{}]
	PointerLockSignal   wire.Signal[struct{}]
	PointerUnlockSignal wire.Signal[struct{}]
	InputFocusSignal    wire.Signal[*ui.View]

	focused *ui.View
}

func New(s *seat.Seat, c *cursor.Cursor, u *ui.UI) *Scene {
	sc := &Scene{seat: s, cursor: c, ui: u}
	for _, v := range u.Views() {
		sc.wireView(v)
	}
	return sc
}

func (sc *Scene) wireView(v *ui.View) {
	v.ResizeSignal.Connect(func(v *ui.View) { sc.ResizeSignal.Emit(v) })
	v.DestroySignal.Connect(func(v *ui.View) {
		sc.ViewDestroySignal.Emit(v)
		if sc.focused == v {
			sc.focused = nil
		}
	})
}

// NotifyViewCreated is called by whatever constructs a View (xwayland or
// xdg toplevel wiring) once it is ready to be exposed to scripting.
func (sc *Scene) NotifyViewCreated(v *ui.View) {
	sc.wireView(v)
	sc.ViewCreateSignal.Emit(v)
}

// viewFocusable adapts a *ui.View to seat.Focusable using the view's own
// bound resource ids, stashed on its client's UserData (see
// internal/seat.ResourceIDs).
type viewFocusable struct {
	client    *wire.Client
	surfaceID uint32
}

func (f viewFocusable) KeyboardResource() (*wire.Client, uint32, bool) {
	if f.client == nil {
		return nil, 0, false
	}
	return f.client, f.surfaceID, true
}

func (f viewFocusable) PointerResource() (*wire.Client, uint32, bool) {
	if f.client == nil {
		return nil, 0, false
	}
	return f.client, f.surfaceID, true
}

// SetInputFocus implements server.set_input_focus(view?).
func (sc *Scene) SetInputFocus(v *ui.View, client *wire.Client, surfaceID uint32) {
	sc.focused = v
	if v == nil {
		sc.seat.SetInputFocus(nil)
	} else {
		sc.seat.SetInputFocus(viewFocusable{client, surfaceID})
	}
	sc.InputFocusSignal.Emit(v)
}

// SetPointerPos implements server.set_pointer_pos(x,y): it only affects the
// position waywall itself tracks for the next synthetic click's crossing
// events, since the host pointer is never warped directly (spec §4.6, §4.4.3).
func (sc *Scene) SetPointerPos(x, y float64) {
	sc.seat.SetSyntheticCursorPosition(x, y)
}

// SetListener implements seat.set_listener(l, data): data is the scripting
// layer's own concern and is not modelled here, since Go closures already
// capture whatever state the listener needs.
func (sc *Scene) SetListener(l *Listener) {
	sc.seat.SetListener(l)
}

// SendKeys and SendClick implement seat.send_keys/send_click. Views backed
// by an Xwayland window (ui.SyntheticInputTarget) are routed via XTEST
// instead of the Wayland keyboard/pointer resource path.
func (sc *Scene) SendKeys(v *ui.View, client *wire.Client, surfaceID uint32, keys []struct {
	Keycode uint32
	Pressed bool
}) {
	if t, ok := v.Impl().(ui.SyntheticInputTarget); ok {
		t.SendKeys(keys)
		return
	}
	sc.seat.SendKeys(viewFocusable{client, surfaceID}, keys)
}

func (sc *Scene) SendClick(v *ui.View, client *wire.Client, surfaceID uint32) {
	if t, ok := v.Impl().(ui.SyntheticInputTarget); ok {
		t.SendClick()
		return
	}
	sc.seat.SendClick(viewFocusable{client, surfaceID})
}

// ShowCursor and HideCursor implement cursor.show/hide.
func (sc *Scene) ShowCursor() { sc.cursor.Show() }
func (sc *Scene) HideCursor() { sc.cursor.Hide() }

// NotifyPointerLock and NotifyPointerUnlock emit the pointer_lock /
// pointer_unlock signals named in spec §6. Nothing in this repository calls
// them; the constraints package does not reference the scene.
func (sc *Scene) NotifyPointerLock()   { sc.PointerLockSignal.Emit(struct{}{}) }
func (sc *Scene) NotifyPointerUnlock() { sc.PointerUnlockSignal.Emit(struct{}{}) }

// NotifyClose implements the close signal, fired on SIGINT/SIGTERM
// shutdown per spec §6.
func (sc *Scene) NotifyClose() { sc.CloseSignal.Emit(struct{}{}) }
