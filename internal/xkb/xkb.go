// Package xkb wraps libxkbcommon for keymap parsing and keycode/keysym
// lookup. Grounded on the same cgo-binding shape gio's xkb_unix.go uses.
package xkb

// #cgo pkg-config: xkbcommon
// #include <xkbcommon/xkbcommon.h>
// #include <stdlib.h>
import "C"

import (
	"fmt"
	"os"
	"unsafe"
)

// Context wraps an xkb_context + the currently loaded keymap/state, which
// LoadKeymapFD replaces. internal/server creates one Context at startup and
// never loads a keymap into it, so its KeysymsForKey returns nil.
type Context struct {
	ctx   *C.struct_xkb_context
	keymap *C.struct_xkb_keymap
	state  *C.struct_xkb_state
}

func New() (*Context, error) {
	ctx := C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)
	if ctx == nil {
		return nil, fmt.Errorf("xkb: xkb_context_new failed")
	}
	return &Context{ctx: ctx}, nil
}

// LoadKeymapFD parses a keymap from an mmap'd fd of the given size, in the
// format the host's wl_keyboard.keymap event advertised.
func (c *Context) LoadKeymapFD(fd int, size uint32) error {
	f := os.NewFile(uintptr(fd), "keymap")
	defer f.Close()

	data := make([]byte, size)
	if _, err := f.Read(data); err != nil {
		return fmt.Errorf("xkb: read keymap: %w", err)
	}
	// xkbcommon requires a NUL-terminated string buffer.
	cstr := C.CString(string(data))
	defer C.free(unsafe.Pointer(cstr))

	keymap := C.xkb_keymap_new_from_string(c.ctx, cstr, C.XKB_KEYMAP_FORMAT_TEXT_V1, C.XKB_KEYMAP_COMPILE_NO_FLAGS)
	if keymap == nil {
		return fmt.Errorf("xkb: failed to compile keymap")
	}
	state := C.xkb_state_new(keymap)
	if state == nil {
		C.xkb_keymap_unref(keymap)
		return fmt.Errorf("xkb: failed to create state")
	}

	if c.state != nil {
		C.xkb_state_unref(c.state)
	}
	if c.keymap != nil {
		C.xkb_keymap_unref(c.keymap)
	}
	c.keymap, c.state = keymap, state
	return nil
}

// KeysymsForKey returns the keysyms a wl_keyboard keycode (evdev-numbered,
// already +8'd to the X11 keycode space) currently maps to.
func (c *Context) KeysymsForKey(keycode uint32) []uint32 {
	if c.state == nil {
		return nil
	}
	var syms *C.xkb_keysym_t
	n := C.xkb_state_key_get_syms(c.state, C.xkb_keycode_t(keycode), &syms)
	if n <= 0 {
		return nil
	}
	out := make([]uint32, n)
	slice := unsafe.Slice(syms, int(n))
	for i, s := range slice {
		out[i] = uint32(s)
	}
	return out
}

// UpdateMask feeds the depressed/latched/locked/group modifier state
// received from wl_keyboard.modifiers into the xkb state machine.
func (c *Context) UpdateMask(depressed, latched, locked, group uint32) {
	if c.state == nil {
		return
	}
	C.xkb_state_update_mask(c.state,
		C.xkb_mod_mask_t(depressed), C.xkb_mod_mask_t(latched), C.xkb_mod_mask_t(locked),
		0, 0, C.xkb_layout_index_t(group))
}

func (c *Context) Close() {
	if c.state != nil {
		C.xkb_state_unref(c.state)
	}
	if c.keymap != nil {
		C.xkb_keymap_unref(c.keymap)
	}
	if c.ctx != nil {
		C.xkb_context_unref(c.ctx)
	}
}
