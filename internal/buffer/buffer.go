// Package buffer implements the inner wl_buffer resource and the wl_shm
// factory global, forwarding buffer creation to its outer equivalent per
// spec §4.3. The linux-dmabuf, wl_drm and drm-syncobj globals live in
// internal/dmabuf and build on this package's Buffer.
package buffer

import (
	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/wire"
)

// Kind tags what a Buffer was created from.
type Kind int

const (
	KindInvalid Kind = iota
	KindShm
	KindDmabuf
)

const opDestroy uint16 = 0

// Buffer is the inner wl_buffer resource, wired so the outer buffer's
// release event drives the inner one.
type Buffer struct {
	wire.BaseObject

	client *wire.Client
	outer  *proto.Buffer
	kind   Kind
}

func New(client *wire.Client, id uint32, outer *proto.Buffer, kind Kind) *Buffer {
	b := &Buffer{
		BaseObject: wire.NewBaseObject(id, "wl_buffer", 1),
		client:     client,
		outer:      outer,
		kind:       kind,
	}
	if outer != nil {
		outer.SetReleaseHandler(func() {
			_ = client.SendEvent(id, 0, nil, nil) // wl_buffer.release has no args
		})
	}
	return b
}

func (b *Buffer) Outer() *proto.Buffer { return b.outer }
func (b *Buffer) Kind() Kind           { return b.kind }

func (b *Buffer) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	if opcode != opDestroy {
		return wire.Errorf(b.ID(), 0, "wl_buffer has no request %d", opcode)
	}
	if b.kind == KindInvalid {
		return wire.Errorf(b.ID(), 0, "use of invalid buffer")
	}
	b.client.Remove(b.ID())
	return nil
}

func (b *Buffer) Destroy() {
	b.MarkDestroyed()
	if b.outer != nil {
		_ = b.outer.Destroy()
	}
}
