// Package cursor implements the held cursor surface shown on the host
// pointer, per spec §4.10. It does not parse xcursor theme files; images
// arrive already backed by an outer buffer.
package cursor

import (
	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/logger"
)

// Image is one loaded cursor frame: a buffer ready to attach plus its
// hotspot offset.
type Image struct {
	Buffer       *proto.Buffer
	HotspotX, HotspotY int32
	Width, Height int32
}

// Cursor owns the outer cursor surface and the currently loaded theme
// image. It is shown whenever the seat reports a pointer enter.
type Cursor struct {
	compositor *proto.Compositor
	pointer    *proto.Pointer
	surface    *proto.Surface

	current *Image
	visible bool

	lastEnterSerial uint32
}

func New(compositor *proto.Compositor) (*Cursor, error) {
	surf, err := compositor.CreateSurface()
	if err != nil {
		return nil, err
	}
	return &Cursor{compositor: compositor, surface: surf, visible: true}, nil
}

// AttachPointer wires the cursor to the seat's bound outer pointer, so that
// Show can reissue set_cursor after a pointer is (re)created.
func (c *Cursor) AttachPointer(p *proto.Pointer) {
	c.pointer = p
}

// LoadTheme installs img as the current cursor image and shows it if the
// cursor is visible. name, size and shm are not read: no xcursor theme is
// looked up or parsed, and img is used as given (one static frame, no
// animation).
func (c *Cursor) LoadTheme(name string, size int, shm *proto.Shm, img Image) {
	c.current = &img
	if c.visible {
		c.show()
	}
}

// OnEnter is connected to the seat's EnterSignal: it records the serial
// needed to reissue set_cursor and attaches/commits the cursor image.
func (c *Cursor) OnEnter(serial uint32) {
	c.lastEnterSerial = serial
	if c.visible {
		c.show()
	} else {
		c.hide()
	}
}

func (c *Cursor) show() {
	if c.pointer == nil || c.current == nil {
		return
	}
	if err := c.surface.Attach(c.current.Buffer, 0, 0); err != nil {
		logger.Errorf("cursor: attach failed: %v", err)
		return
	}
	_ = c.surface.Damage(0, 0, c.current.Width, c.current.Height)
	_ = c.surface.Commit()
	if err := c.pointer.SetCursor(c.lastEnterSerial, c.surface, c.current.HotspotX, c.current.HotspotY); err != nil {
		logger.Errorf("cursor: set_cursor failed: %v", err)
	}
}

func (c *Cursor) hide() {
	if c.pointer == nil {
		return
	}
	if err := c.pointer.SetCursor(c.lastEnterSerial, nil, 0, 0); err != nil {
		logger.Errorf("cursor: set_cursor(null) failed: %v", err)
	}
}

// Show and Hide toggle cursor visibility, per spec §4.10.
func (c *Cursor) Show() {
	c.visible = true
	c.show()
}

func (c *Cursor) Hide() {
	c.visible = false
	c.hide()
}
