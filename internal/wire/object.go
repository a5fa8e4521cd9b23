package wire

import "fmt"

// Object is anything bound into a client's object table: a concrete
// protocol resource (wl_surface, xdg_toplevel, ...) that can accept
// requests routed to it by opcode.
type Object interface {
	// Interface returns the protocol interface name, e.g. "wl_surface".
	Interface() string
	// Version returns the bound version of the interface.
	Version() uint32
	// ID returns the object's id in its owning client's table.
	ID() uint32
	// Dispatch handles one incoming request. Implementations emit events
	// through the *Client they hold (Client.SendEvent).
	Dispatch(opcode uint16, r *Reader, msg Message) error
	// Destroy releases any resources the object owns. Called when the
	// client destroys the object or disconnects.
	Destroy()
}

// BaseObject provides the bookkeeping most Object implementations need:
// id/interface/version storage, so concrete types only implement Dispatch
// and Destroy.
type BaseObject struct {
	id        uint32
	iface     string
	version   uint32
	destroyed bool
}

func NewBaseObject(id uint32, iface string, version uint32) BaseObject {
	return BaseObject{id: id, iface: iface, version: version}
}

func (o *BaseObject) ID() uint32        { return o.id }
func (o *BaseObject) Interface() string { return o.iface }
func (o *BaseObject) Version() uint32   { return o.version }
func (o *BaseObject) Destroyed() bool   { return o.destroyed }
func (o *BaseObject) MarkDestroyed()    { o.destroyed = true }

// ProtocolError is returned from Dispatch to signal a fatal per-object
// protocol error; the client connection sends wl_display.error and then
// disconnects the offending client.
type ProtocolError struct {
	Object uint32
	Code   uint32
	Msg    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %d (code %d): %s", e.Object, e.Code, e.Msg)
}

func Errorf(object uint32, code uint32, format string, args ...interface{}) error {
	return &ProtocolError{Object: object, Code: code, Msg: fmt.Sprintf(format, args...)}
}
