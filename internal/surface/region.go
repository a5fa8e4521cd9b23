package surface

import "github.com/tesselslate/waywall/internal/wire"

const (
	regionOpDestroy  uint16 = 0
	regionOpAdd      uint16 = 1
	regionOpSubtract uint16 = 2
)

// Region is the inner wl_region resource: a recorded list of add/subtract
// rectangle ops, replayed against an outer region when a surface commits
// it as its opaque region.
type Region struct {
	wire.BaseObject

	client *wire.Client
	ops    []RegionOp
}

func NewRegion(client *wire.Client, id uint32) *Region {
	return &Region{
		BaseObject: wire.NewBaseObject(id, "wl_region", 1),
		client:     client,
	}
}

func (r *Region) Dispatch(opcode uint16, rd *wire.Reader, msg wire.Message) error {
	switch opcode {
	case regionOpDestroy:
		r.client.Remove(r.ID())
		return nil
	case regionOpAdd:
		x, _ := rd.Int32()
		y, _ := rd.Int32()
		w, _ := rd.Int32()
		h, _ := rd.Int32()
		r.ops = append(r.ops, RegionOp{X: x, Y: y, W: w, H: h})
		return nil
	case regionOpSubtract:
		x, _ := rd.Int32()
		y, _ := rd.Int32()
		w, _ := rd.Int32()
		h, _ := rd.Int32()
		r.ops = append(r.ops, RegionOp{Subtract: true, X: x, Y: y, W: w, H: h})
		return nil
	default:
		return wire.Errorf(r.ID(), 0, "wl_region has no request %d", opcode)
	}
}

func (r *Region) Destroy() { r.MarkDestroyed() }
