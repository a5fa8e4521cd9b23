package wire

import (
	"sort"
)

// displayObjectID is the fixed id every client's wl_display resource is
// bound to, per the Wayland wire protocol.
const displayObjectID uint32 = 1

const (
	displayOpSync       uint16 = 0
	displayOpGetRegistry uint16 = 1

	displayEventError    uint16 = 0
	displayEventDeleteID uint16 = 1
)

// Display error codes, matching wl_display.error's wire values.
const (
	DisplayErrorInvalidObject  uint32 = 0
	DisplayErrorInvalidMethod  uint32 = 1
	DisplayErrorNoMemory       uint32 = 2
	DisplayErrorImplementation uint32 = 3
)

// Client is one connected peer of the inner display: its wire connection,
// its object table, and the registry/callback bookkeeping that every
// client gets for free.
type Client struct {
	conn    *Conn
	objects map[uint32]Object
	nextID  uint32 // next id AllocateServerID hands out

	globals   []Global
	nextGlobalName uint32

	onDisconnect func(*Client)
	userData     interface{}
}

// Global describes one advertised wl_registry global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
	Bind      func(c *Client, id uint32, version uint32) (Object, error)
}

func NewClient(conn *Conn) *Client {
	c := &Client{
		conn:    conn,
		objects: make(map[uint32]Object),
		nextID:  0xff000000, // server-allocated ids live in the high range
	}
	return c
}

func (c *Client) SetUserData(v interface{})  { c.userData = v }
func (c *Client) UserData() interface{}      { return c.userData }
func (c *Client) Conn() *Conn                { return c.conn }
func (c *Client) OnDisconnect(f func(*Client)) { c.onDisconnect = f }

// Insert registers obj under its own ID in the client's object table.
func (c *Client) Insert(obj Object) {
	c.objects[obj.ID()] = obj
}

// Lookup returns the object bound to id, if any.
func (c *Client) Lookup(id uint32) (Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// Remove deletes the object from the table and sends wl_display.delete_id so
// the client can recycle the id, mirroring wl_resource_destroy.
func (c *Client) Remove(id uint32) {
	if obj, ok := c.objects[id]; ok {
		obj.Destroy()
		delete(c.objects, id)
	}
	w := NewWriter().PutUint32(id)
	c.SendEvent(displayObjectID, displayEventDeleteID, w.Bytes(), nil)
}

// AllocateServerID returns the next server-owned object id, used for
// objects the server creates on its own (e.g. the wl_data_offer announced
// for a new host selection).
func (c *Client) AllocateServerID() uint32 {
	id := c.nextID
	c.nextID++
	return id
}

// SendEvent writes one event, with optional fds, to the client.
func (c *Client) SendEvent(object uint32, opcode uint16, payload []byte, fds []int) error {
	return c.conn.Send(Encode(object, opcode, payload), fds)
}

// SendError sends wl_display.error. It does not close or mark the
// connection; the caller (server event loop) closes the client afterward.
func (c *Client) SendError(object uint32, code uint32, message string) error {
	w := NewWriter().PutUint32(object).PutUint32(code).PutString(message)
	return c.SendEvent(displayObjectID, displayEventError, w.Bytes(), nil)
}

// AddGlobal registers a global to be advertised to wl_registry.
func (c *Client) AddGlobal(iface string, version uint32, bind func(*Client, uint32, uint32) (Object, error)) Global {
	g := Global{Name: c.nextGlobalName, Interface: iface, Version: version, Bind: bind}
	c.nextGlobalName++
	c.globals = append(c.globals, g)
	return g
}

// Dispatch decodes and routes every message in messages to its target object,
// handling the wl_display built-ins (sync, get_registry) itself.
func (c *Client) Dispatch(messages []Message) error {
	for _, m := range messages {
		if err := c.dispatchOne(m); err != nil {
			var perr *ProtocolError
			if ok := asProtocolError(err, &perr); ok {
				_ = c.SendError(perr.Object, perr.Code, perr.Msg)
				return err
			}
			return err
		}
	}
	return nil
}

func asProtocolError(err error, out **ProtocolError) bool {
	if pe, ok := err.(*ProtocolError); ok {
		*out = pe
		return true
	}
	return false
}

func (c *Client) dispatchOne(m Message) error {
	if m.Object == displayObjectID {
		return c.dispatchDisplay(m)
	}
	obj, ok := c.objects[m.Object]
	if !ok {
		return Errorf(displayObjectID, DisplayErrorInvalidObject, "no object with id %d", m.Object)
	}
	return obj.Dispatch(m.Opcode, NewReader(m), m)
}

func (c *Client) dispatchDisplay(m Message) error {
	r := NewReader(m)
	switch m.Opcode {
	case displayOpSync:
		callback, err := r.Uint32()
		if err != nil {
			return err
		}
		w := NewWriter().PutUint32(0)
		return c.SendEvent(callback, 0, w.Bytes(), nil)
	case displayOpGetRegistry:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		return c.sendRegistry(id)
	default:
		return Errorf(displayObjectID, DisplayErrorInvalidMethod, "wl_display has no request %d", m.Opcode)
	}
}

func (c *Client) sendRegistry(id uint32) error {
	reg := newRegistry(c, id)
	c.Insert(reg)

	globals := append([]Global(nil), c.globals...)
	sort.Slice(globals, func(i, j int) bool { return globals[i].Name < globals[j].Name })
	for _, g := range globals {
		w := NewWriter().PutUint32(g.Name).PutString(g.Interface).PutUint32(g.Version)
		if err := c.SendEvent(id, registryEventGlobal, w.Bytes(), nil); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down the client's connection and every object it owns.
func (c *Client) Close() {
	for _, obj := range c.objects {
		obj.Destroy()
	}
	c.objects = nil
	_ = c.conn.Close()
	if c.onDisconnect != nil {
		c.onDisconnect(c)
	}
}
