package wire

const (
	registryOpBind uint16 = 0

	registryEventGlobal       uint16 = 0
	registryEventGlobalRemove uint16 = 1
)

// registryObj implements wl_registry. Globals are looked up by name against
// the client's static list computed at connection-setup time; waywall does
// not support hotplugging globals after a client connects.
type registryObj struct {
	BaseObject
	client *Client
}

func newRegistry(c *Client, id uint32) *registryObj {
	o := &registryObj{BaseObject: NewBaseObject(id, "wl_registry", 1), client: c}
	return o
}

func (r *registryObj) Dispatch(opcode uint16, rd *Reader, msg Message) error {
	switch opcode {
	case registryOpBind:
		name, err := rd.Uint32()
		if err != nil {
			return err
		}
		_, err = rd.String() // interface name, redundant with Global.Interface
		if err != nil {
			return err
		}
		version, err := rd.Uint32()
		if err != nil {
			return err
		}
		id, err := rd.Uint32()
		if err != nil {
			return err
		}
		return r.bind(name, version, id)
	default:
		return Errorf(r.ID(), DisplayErrorInvalidMethod, "wl_registry has no request %d", opcode)
	}
}

func (r *registryObj) bind(name, version, id uint32) error {
	for _, g := range r.client.globals {
		if g.Name != name {
			continue
		}
		if version == 0 || version > g.Version {
			return Errorf(r.ID(), DisplayErrorInvalidObject, "requested version %d exceeds %s's bound version %d", version, g.Interface, g.Version)
		}
		obj, err := g.Bind(r.client, id, version)
		if err != nil {
			return err
		}
		r.client.Insert(obj)
		return nil
	}
	return Errorf(r.ID(), DisplayErrorInvalidObject, "no global with name %d", name)
}

func (r *registryObj) Destroy() { r.MarkDestroyed() }
