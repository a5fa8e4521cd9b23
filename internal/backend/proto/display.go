package proto

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

// Display wraps the outer connection's wl_display (always object id 1).
type Display struct {
	wl.BaseProxy

	errorHandler func(objectID, code uint32, message string)
}

func NewDisplay(ctx *wl.Context) *Display {
	d := &Display{}
	d.SetContext(ctx)
	d.SetID(1)
	ctx.Register(d)
	return d
}

func (d *Display) SetErrorHandler(f func(objectID, code uint32, message string)) {
	d.errorHandler = f
}

// Sync requests a round-trip callback: the host fires Callback.Done once
// every request sent before Sync has been processed.
func (d *Display) Sync() (*Callback, error) {
	const opcode = 0
	cb := &Callback{}
	cb.SetContext(d.Context())
	cb.SetID(d.Context().AllocateID())
	d.Context().Register(cb)

	if err := d.Context().SendRequest(d, opcode, cb); err != nil {
		d.Context().Unregister(cb)
		return nil, err
	}
	return cb, nil
}

func (d *Display) GetRegistry() (*Registry, error) {
	const opcode = 1
	reg := &Registry{}
	reg.SetContext(d.Context())
	reg.SetID(d.Context().AllocateID())
	d.Context().Register(reg)

	if err := d.Context().SendRequest(d, opcode, reg); err != nil {
		d.Context().Unregister(reg)
		return nil, err
	}
	return reg, nil
}

func (d *Display) Dispatch(event *wl.Event) {
	data := event.Data()
	switch event.Opcode {
	case 0: // error(object_id, code, message)
		if len(data) < 12 || d.errorHandler == nil {
			return
		}
		objectID := binary.LittleEndian.Uint32(data[0:4])
		code := binary.LittleEndian.Uint32(data[4:8])
		msgLen := binary.LittleEndian.Uint32(data[8:12])
		var msg string
		if int(12+msgLen) <= len(data) && msgLen > 0 {
			msg = string(data[12 : 12+msgLen-1])
		}
		d.errorHandler(objectID, code, msg)
	case 1: // delete_id(id) - object recycling is handled by Context.Unregister callers
	}
}

// Registry wraps wl_registry: the advertised-global notification stream.
type Registry struct {
	wl.BaseProxy

	globalHandler       func(name uint32, iface string, version uint32)
	globalRemoveHandler func(name uint32)
}

func (r *Registry) SetGlobalHandler(f func(name uint32, iface string, version uint32)) {
	r.globalHandler = f
}

func (r *Registry) SetGlobalRemoveHandler(f func(name uint32)) {
	r.globalRemoveHandler = f
}

// Bind instantiates a global as obj, which must already carry its target
// interface/id (obj.SetID has been called by the caller's NewXxx helper).
func (r *Registry) Bind(name uint32, iface string, version uint32, obj interface{}) error {
	const opcode = 0
	return r.Context().SendRequest(r, opcode, name, iface, version, obj)
}

func (r *Registry) Dispatch(event *wl.Event) {
	data := event.Data()
	switch event.Opcode {
	case 0: // global(name, interface, version)
		if len(data) < 8 {
			return
		}
		name := binary.LittleEndian.Uint32(data[0:4])
		ifaceLen := binary.LittleEndian.Uint32(data[4:8])
		off := 8 + pad4(int(ifaceLen))
		if off+4 > len(data) || ifaceLen == 0 {
			return
		}
		iface := string(data[8 : 8+ifaceLen-1])
		version := binary.LittleEndian.Uint32(data[off : off+4])
		if r.globalHandler != nil {
			r.globalHandler(name, iface, version)
		}
	case 1: // global_remove(name)
		if len(data) < 4 {
			return
		}
		if r.globalRemoveHandler != nil {
			r.globalRemoveHandler(binary.LittleEndian.Uint32(data))
		}
	}
}

func pad4(n int) int { return (n + 3) &^ 3 }

// Callback wraps wl_callback: a one-shot "done" notification used by both
// wl_display.sync and wl_surface.frame.
type Callback struct {
	wl.BaseProxy

	doneHandler func(data uint32)
}

func (c *Callback) SetDoneHandler(f func(data uint32)) { c.doneHandler = f }

func (c *Callback) Dispatch(event *wl.Event) {
	if event.Opcode != 0 {
		return
	}
	var data uint32
	if d := event.Data(); len(d) >= 4 {
		data = binary.LittleEndian.Uint32(d)
	}
	if c.doneHandler != nil {
		c.doneHandler(data)
	}
	c.Context().Unregister(c)
}
