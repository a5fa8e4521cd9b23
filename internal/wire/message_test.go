package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	w := NewWriter().PutUint32(7).PutString("wl_surface").PutFixed(FixedFromFloat64(1.5))
	payload := w.Bytes()

	data := Encode(3, 9, payload)
	m, consumed, ok := Decode(data)
	if !ok {
		t.Fatalf("Decode reported incomplete message for a full buffer")
	}
	if consumed != len(data) {
		t.Fatalf("consumed = %d, want %d", consumed, len(data))
	}
	if m.Object != 3 || m.Opcode != 9 {
		t.Fatalf("got object=%d opcode=%d, want object=3 opcode=9", m.Object, m.Opcode)
	}

	r := NewReader(m)
	n, err := r.Uint32()
	if err != nil || n != 7 {
		t.Fatalf("Uint32() = %d, %v, want 7, nil", n, err)
	}
	s, err := r.String()
	if err != nil || s != "wl_surface" {
		t.Fatalf("String() = %q, %v, want wl_surface, nil", s, err)
	}
	f, err := r.Fixed()
	if err != nil || f.Float64() != 1.5 {
		t.Fatalf("Fixed() = %v, %v, want 1.5, nil", f.Float64(), err)
	}
}

func TestDecodeIncompleteMessage(t *testing.T) {
	data := Encode(1, 0, []byte{1, 2, 3, 4})
	_, _, ok := Decode(data[:len(data)-1])
	if ok {
		t.Fatalf("Decode reported a complete message from a truncated buffer")
	}
}

func TestSerialRingFIFOAndEviction(t *testing.T) {
	var ring SerialRing
	for i := uint32(1); i <= ringCapacity; i++ {
		ring.Push(i)
	}
	if ring.Len() != ringCapacity {
		t.Fatalf("Len() = %d, want %d", ring.Len(), ringCapacity)
	}

	ring.Push(ringCapacity + 1) // evicts serial 1
	if ring.Consume(1) {
		t.Fatalf("Consume(1) succeeded after eviction")
	}
	if !ring.Consume(ringCapacity + 1) {
		t.Fatalf("Consume(%d) failed, want success", ringCapacity+1)
	}
	if ring.Consume(ringCapacity + 1) {
		t.Fatalf("Consume(%d) succeeded twice", ringCapacity+1)
	}
}

func TestSerialRingConsumeMiddlePreservesOrder(t *testing.T) {
	var ring SerialRing
	ring.Push(1)
	ring.Push(2)
	ring.Push(3)

	if !ring.Consume(2) {
		t.Fatalf("Consume(2) failed")
	}
	if !ring.Consume(1) {
		t.Fatalf("Consume(1) failed")
	}
	if !ring.Consume(3) {
		t.Fatalf("Consume(3) failed")
	}
	if ring.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", ring.Len())
	}
}

func TestNextSerialMonotonic(t *testing.T) {
	a := NextSerial()
	b := NextSerial()
	if b <= a {
		t.Fatalf("NextSerial() not monotonic: %d then %d", a, b)
	}
}
