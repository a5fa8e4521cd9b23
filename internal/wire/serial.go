package wire

import "sync/atomic"

// globalSerial backs the process-wide inner serial counter. Every event
// forwarded to an inner client gets a serial from here, independent of
// whatever serial the outer host used for the event that triggered it:
// host and inner serial spaces are disjoint.
var globalSerial uint32

// NextSerial returns a fresh, monotonically increasing inner serial. Zero
// is never returned so that callers can use 0 as an "unset" sentinel.
func NextSerial() uint32 {
	return atomic.AddUint32(&globalSerial, 1)
}

// ringCapacity is the fixed size of a SerialRing: a handful of configures
// or acks are ever in flight at once, so 64 entries comfortably bounds
// memory use without needing a growable structure.
const ringCapacity = 64

// SerialRing is a bounded FIFO of outstanding serials, used by xdg_surface
// (configure/ack_configure) and any other protocol with a similar
// propose-then-acknowledge handshake.
type SerialRing struct {
	entries [ringCapacity]uint32
	head    int // next write position
	count   int
}

// Push records a newly issued serial, evicting the oldest entry if the ring
// is full.
func (r *SerialRing) Push(serial uint32) {
	r.entries[r.head] = serial
	r.head = (r.head + 1) % ringCapacity
	if r.count < ringCapacity {
		r.count++
	}
}

// Consume removes serial from the ring if present, preserving the relative
// order of the remaining entries. It reports whether serial was found.
func (r *SerialRing) Consume(serial uint32) bool {
	// Walk entries oldest-to-newest.
	start := (r.head - r.count + ringCapacity) % ringCapacity
	found := -1
	ordered := make([]uint32, 0, r.count)
	for i := 0; i < r.count; i++ {
		idx := (start + i) % ringCapacity
		if r.entries[idx] == serial && found == -1 {
			found = i
			continue
		}
		ordered = append(ordered, r.entries[idx])
	}
	if found == -1 {
		return false
	}

	r.count = len(ordered)
	r.head = 0
	for i, v := range ordered {
		r.entries[i] = v
	}
	r.head = r.count % ringCapacity
	return true
}

// Len reports how many serials are currently outstanding.
func (r *SerialRing) Len() int { return r.count }
