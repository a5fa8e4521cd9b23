// Package proto hand-authors client-role bindings for the Wayland core
// protocol and its extensions atop wlturbo's wire primitives, in the same
// generated style as the virtual-input protocols this module's stack was
// originally built to speak: each interface embeds wl.BaseProxy, requests
// are thin SendRequest/SendRequestWithFDs calls with a literal opcode
// constant, and events are delivered through a per-object Dispatch method
// that fans out to optional handler funcs.
package proto
