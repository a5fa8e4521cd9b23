// Package output implements the single synthetic wl_output global every
// inner client sees, mirroring geometry/mode/scale from the outer output
// bound by the backend at startup per spec §4.1.
package output

import (
	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	eventGeometry uint16 = 0
	eventMode     uint16 = 1
	eventDone     uint16 = 2
	eventScale    uint16 = 3

	modeCurrent uint32 = 0x1
)

// Output is the inner wl_output resource bound by a client. One is created
// per bind request; all instances mirror the same outer output state.
type Output struct {
	wire.BaseObject

	client *wire.Client
}

// Global registers the wl_output global on the given client, wiring each
// bound instance to forward the outer output's current state immediately.
func Global(client *wire.Client, outer *proto.Output) wire.Global {
	return client.AddGlobal("wl_output", 4, func(c *wire.Client, id uint32, version uint32) (wire.Object, error) {
		o := &Output{
			BaseObject: wire.NewBaseObject(id, "wl_output", version),
			client:     c,
		}
		sendState(c, id, outer)
		outer.SetGeometryHandler(func(x, y, w, h, subpixel int32, make_, model string, transform int32) {
			sendGeometry(c, id, x, y, w, h, subpixel, make_, model, transform)
			_ = c.SendEvent(id, eventDone, nil, nil)
		})
		outer.SetModeHandler(func(flags uint32, w, h, refresh int32) {
			if flags&modeCurrent == 0 {
				return
			}
			sendMode(c, id, w, h, refresh)
			_ = c.SendEvent(id, eventDone, nil, nil)
		})
		outer.SetScaleHandler(func(scale int32) {
			sendScale(c, id, scale)
			_ = c.SendEvent(id, eventDone, nil, nil)
		})
		return o, nil
	})
}

func sendState(client *wire.Client, id uint32, outer *proto.Output) {
	g := outer.Geometry()
	sendGeometry(client, id, g.X, g.Y, g.WidthMM, g.HeightMM, g.Subpixel, g.Make, g.Model, g.Transform)
	m := outer.Mode()
	sendMode(client, id, m.Width, m.Height, m.Refresh)
	sendScale(client, id, outer.Scale())
	_ = client.SendEvent(id, eventDone, nil, nil)
}

func sendGeometry(client *wire.Client, id uint32, x, y, w, h, subpixel int32, make_, model string, transform int32) {
	wr := wire.NewWriter()
	wr.PutInt32(x).PutInt32(y).PutInt32(w).PutInt32(h).PutInt32(subpixel)
	wr.PutString(make_).PutString(model).PutInt32(transform)
	_ = client.SendEvent(id, eventGeometry, wr.Bytes(), nil)
}

func sendMode(client *wire.Client, id uint32, w, h, refresh int32) {
	wr := wire.NewWriter()
	wr.PutUint32(modeCurrent).PutInt32(w).PutInt32(h).PutInt32(refresh)
	_ = client.SendEvent(id, eventMode, wr.Bytes(), nil)
}

func sendScale(client *wire.Client, id uint32, scale int32) {
	_ = client.SendEvent(id, eventScale, wire.NewWriter().PutInt32(scale).Bytes(), nil)
}

func (o *Output) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	// release, version >= 3
	o.client.Remove(o.ID())
	return nil
}

func (o *Output) Destroy() { o.MarkDestroyed() }
