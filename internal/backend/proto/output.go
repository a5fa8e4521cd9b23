package proto

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

// Output wraps wl_output: waywall only ever binds the one output the host
// compositor advertises for the synthetic view it presents to the game.
// OutputGeometry is the last geometry event received from the host output.
type OutputGeometry struct {
	X, Y                 int32
	WidthMM, HeightMM    int32
	Subpixel             int32
	Make, Model          string
	Transform            int32
}

// OutputMode is the last current mode event received from the host output.
type OutputMode struct {
	Width, Height, Refresh int32
}

type Output struct {
	wl.BaseProxy

	geometryHandler func(x, y, physW, physH, subpixel int32, make_, model string, transform int32)
	modeHandler     func(flags uint32, width, height, refresh int32)
	doneHandler     func()
	scaleHandler    func(factor int32)

	geometry OutputGeometry
	mode     OutputMode
	scale    int32
}

func NewOutput(ctx *wl.Context) *Output {
	o := &Output{scale: 1}
	o.SetContext(ctx)
	return o
}

func (o *Output) SetGeometryHandler(f func(x, y, physW, physH, subpixel int32, make_, model string, transform int32)) {
	o.geometryHandler = f
}
func (o *Output) SetModeHandler(f func(flags uint32, width, height, refresh int32)) {
	o.modeHandler = f
}
func (o *Output) SetDoneHandler(f func())              { o.doneHandler = f }
func (o *Output) SetScaleHandler(f func(factor int32)) { o.scaleHandler = f }

// Geometry, Mode and Scale report the most recently received state, for
// callers (e.g. the inner wl_output global) that need to replay it to a
// newly bound client immediately rather than waiting on the next event.
func (o *Output) Geometry() OutputGeometry { return o.geometry }
func (o *Output) Mode() OutputMode         { return o.mode }
func (o *Output) Scale() int32             { return o.scale }

func (o *Output) Dispatch(event *wl.Event) {
	data := event.Data()
	switch event.Opcode {
	case 0: // geometry
		r := newArgReader(data)
		x, _ := r.int32()
		y, _ := r.int32()
		pw, _ := r.int32()
		ph, _ := r.int32()
		subpixel, _ := r.int32()
		make_, _ := r.string()
		model, _ := r.string()
		transform, _ := r.int32()
		o.geometry = OutputGeometry{x, y, pw, ph, subpixel, make_, model, transform}
		if o.geometryHandler != nil {
			o.geometryHandler(x, y, pw, ph, subpixel, make_, model, transform)
		}
	case 1: // mode
		r := newArgReader(data)
		flags, _ := r.uint32()
		w, _ := r.int32()
		h, _ := r.int32()
		refresh, _ := r.int32()
		if flags&0x1 != 0 {
			o.mode = OutputMode{w, h, refresh}
		}
		if o.modeHandler != nil {
			o.modeHandler(flags, w, h, refresh)
		}
	case 2: // done
		if o.doneHandler != nil {
			o.doneHandler()
		}
	case 3: // scale
		if len(data) >= 4 {
			o.scale = int32(binary.LittleEndian.Uint32(data))
			if o.scaleHandler != nil {
				o.scaleHandler(o.scale)
			}
		}
	}
}

// argReader is a small scratch decoder for the handful of event argument
// shapes these bindings need (int/uint/string), independent of the inner
// wire.Reader used on the server-role side.
type argReader struct {
	data []byte
	off  int
}

func newArgReader(data []byte) *argReader { return &argReader{data: data} }

func (r *argReader) uint32() (uint32, bool) {
	if r.off+4 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, true
}

func (r *argReader) int32() (int32, bool) {
	v, ok := r.uint32()
	return int32(v), ok
}

func (r *argReader) string() (string, bool) {
	n, ok := r.uint32()
	if !ok || n == 0 {
		return "", ok
	}
	end := r.off + int(n)
	if end > len(r.data) {
		return "", false
	}
	s := string(r.data[r.off : end-1])
	r.off += pad4(int(n))
	return s, true
}
