// Package ui implements the view tree and its root: the single outer
// toplevel waywall presents, with views as desync subsurfaces parented to
// it, per spec §4.8.
package ui

import (
	"github.com/bnema/wlturbo/wl"

	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/wire"
)

// Vtable is the per-role implementation a View dispatches to, matching
// spec §3's "implementation vtable {name, close, get_pid, get_title,
// set_size}".
type Vtable interface {
	Name() string
	Close()
	Pid() (int, bool)
	Title() string
	SetSize(w, h int32)
}

type viewState struct {
	x, y          int32
	width, height int32
	centered      bool
	visible       bool
}

// View is a presentable client window, backed by an xdg_toplevel or
// xwayland surface.
type View struct {
	ui   *UI
	impl Vtable

	outerSurface *proto.Surface
	subsurface   *proto.Subsurface
	viewport     *proto.Viewport

	pending viewState
	current viewState

	// CreateSignal, DestroySignal and ResizeSignal mirror the create,
	// destroy, resize events named in spec §3.
	CreateSignal  wire.Signal[*View]
	DestroySignal wire.Signal[*View]
	ResizeSignal  wire.Signal[*View]
}

func newView(ui *UI, impl Vtable, outerSurface *proto.Surface, subsurface *proto.Subsurface, viewport *proto.Viewport) *View {
	v := &View{
		ui:           ui,
		impl:         impl,
		outerSurface: outerSurface,
		subsurface:   subsurface,
		viewport:     viewport,
	}
	v.current.visible = true
	v.pending.visible = true
	return v
}

func (v *View) Name() string    { return v.impl.Name() }
func (v *View) Close()          { v.impl.Close() }
func (v *View) Title() string   { return v.impl.Title() }
func (v *View) Pid() (int, bool) { return v.impl.Pid() }

// Impl exposes the underlying vtable so callers can type-assert for
// capabilities beyond the common Vtable surface (e.g. SyntheticInputTarget
// for the Xwayland path's XTEST-based input injection).
func (v *View) Impl() Vtable { return v.impl }

// SyntheticInputTarget is implemented by Vtable implementations that route
// seat.send_keys/send_click outside the normal Wayland keyboard/pointer
// resource path (the Xwayland view forwards these via XTEST instead).
type SyntheticInputTarget interface {
	SendKeys(keys []struct {
		Keycode uint32
		Pressed bool
	})
	SendClick()
}

// SetPosition, SetSize, SetCentered and SetVisible stage pending state;
// Commit diffs and issues the minimal set of outer calls, per spec §4.8.
func (v *View) SetPosition(x, y int32) { v.pending.x, v.pending.y = x, y; v.pending.centered = false }
func (v *View) SetSize(w, h int32)     { v.pending.width, v.pending.height = w, h }
func (v *View) SetCentered(c bool)     { v.pending.centered = c }
func (v *View) SetVisible(visible bool) { v.pending.visible = visible }

// SetCrop configures the viewport's source rectangle and destination size,
// clamping source coordinates to zero when the destination would otherwise
// exceed the source, avoiding the host's out_of_buffer error per spec
// §4.8.
func (v *View) SetCrop(x, y, w, h, destW, destH int32) error {
	if v.viewport == nil {
		return nil
	}
	if destW > w {
		x = 0
	}
	if destH > h {
		y = 0
	}
	if err := v.viewport.SetSource(intToFixed(x), intToFixed(y), intToFixed(w), intToFixed(h)); err != nil {
		return err
	}
	return v.viewport.SetDestination(destW, destH)
}

func intToFixed(v int32) wl.Fixed { return wl.Fixed(v * 256) }

// Commit diffs pending vs current view state and issues outer protocol
// calls for whatever changed.
func (v *View) Commit() {
	if v.pending.centered {
		uw, uh := v.ui.Size()
		v.pending.x = (uw - v.pending.width) / 2
		v.pending.y = (uh - v.pending.height) / 2
	}

	if v.pending.x != v.current.x || v.pending.y != v.current.y {
		_ = v.subsurface.SetPosition(v.pending.x, v.pending.y)
	}
	if v.pending.width != v.current.width || v.pending.height != v.current.height {
		v.impl.SetSize(v.pending.width, v.pending.height)
		v.ResizeSignal.Emit(v)
	}
	if v.pending.visible != v.current.visible {
		if v.pending.visible {
			_ = v.subsurface.PlaceAbove(v.ui.rootSurface)
		} else {
			_ = v.subsurface.PlaceBelow(v.ui.rootSurface)
		}
	}

	v.current = v.pending
}

// OnUIResize repositions the view if it is centered, per spec §4.8.
func (v *View) OnUIResize() {
	if v.current.centered {
		v.pending = v.current
		v.Commit()
	}
}

func (v *View) destroy() {
	v.DestroySignal.Emit(v)
	_ = v.subsurface.Destroy()
	if v.viewport != nil {
		_ = v.viewport.Destroy()
	}
}

