package xwayland

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// atomCache interns and caches every X11 atom the XWM needs by name,
// mirroring the atom cache in other_examples/…tesselslate-resetti__internal-x11-x11.go
// (InternAtom is a round trip; nothing here is latency-sensitive enough to
// justify re-querying it every time it's needed).
type atomCache struct {
	conn  *xgb.Conn
	cache map[string]xproto.Atom
}

func (a *atomCache) init(conn *xgb.Conn) {
	a.conn = conn
	a.cache = make(map[string]xproto.Atom)
}

// get interns name on first use and returns the cached atom thereafter. A
// failed intern (disconnected server) yields AtomNone, which every caller
// here treats as "property/atom absent" rather than panicking.
func (a *atomCache) get(name string) xproto.Atom {
	if atom, ok := a.cache[name]; ok {
		return atom
	}
	reply, err := xproto.InternAtom(a.conn, false, uint16(len(name)), name).Reply()
	if err != nil || reply == nil {
		return xproto.AtomNone
	}
	a.cache[name] = reply.Atom
	return reply.Atom
}
