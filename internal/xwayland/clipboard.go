package xwayland

import (
	"github.com/jezek/xgb/xproto"
)

// clipboardState holds the one piece of clipboard content waywall's
// scripting façade can stage via clipboard.set (spec §4.7): the ICCCM
// CLIPBOARD selection owner only ever answers TARGETS and UTF8_STRING,
// since nothing else in this compositor ever needs richer formats.
type clipboardState struct {
	content string
	hasData bool
}

// SetClipboard stages content as the current CLIPBOARD selection value,
// called from the scripting façade's clipboard.set.
func (x *Xwm) SetClipboard(content string) {
	x.clipboard.content = content
	x.clipboard.hasData = true
}

// handleSelectionRequest answers a SelectionRequest against the dedicated
// clipboard window set up in setupClipboard: TARGETS lists what we can
// provide, UTF8_STRING returns the staged content, anything else is
// refused by notifying with a None property per ICCCM.
func (x *Xwm) handleSelectionRequest(ev xproto.SelectionRequestEvent) {
	notify := xproto.SelectionNotifyEvent{
		Time:      ev.Time,
		Requestor: ev.Requestor,
		Selection: ev.Selection,
		Target:    ev.Target,
		Property:  ev.Property,
	}

	targets := x.atoms.get("TARGETS")
	utf8 := x.atoms.get("UTF8_STRING")

	switch ev.Target {
	case targets:
		list := []uint32{uint32(targets), uint32(utf8)}
		_ = xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, ev.Requestor,
			ev.Property, xproto.AtomAtom, 32, uint32(len(list)), uint32ToBytes(list)).Check()
	case utf8:
		if !x.clipboard.hasData {
			notify.Property = xproto.AtomNone
			break
		}
		data := []byte(x.clipboard.content)
		_ = xproto.ChangePropertyChecked(x.conn, xproto.PropModeReplace, ev.Requestor,
			ev.Property, utf8, 8, uint32(len(data)), data).Check()
	default:
		notify.Property = xproto.AtomNone
	}

	_ = xproto.SendEventChecked(x.conn, false, ev.Requestor, xproto.EventMaskNoEvent, string(notify.Bytes())).Check()
}

// handleSelectionClear drops the staged clipboard content once another
// client claims CLIPBOARD ownership away from us.
func (x *Xwm) handleSelectionClear(ev xproto.SelectionClearEvent) {
	if ev.Owner != x.clipboardWindow {
		return
	}
	x.clipboard.hasData = false
	x.clipboard.content = ""
}
