package xwayland

import "testing"

// TestAtomCacheHit exercises the cache-hit path of atomCache.get without
// dialing a real X connection: get only touches a.conn when the name is
// not already cached, so pre-populating the map is enough to verify the
// cache is consulted first.
func TestAtomCacheHit(t *testing.T) {
	var a atomCache
	a.init(nil)
	a.cache["WM_S0"] = 99

	got := a.get("WM_S0")
	if got != 99 {
		t.Fatalf("get(%q) = %v, want 99", "WM_S0", got)
	}
}

func TestUint32ToBytesLittleEndian(t *testing.T) {
	in := []uint32{0x01020304, 0xdeadbeef}
	out := uint32ToBytes(in)
	if len(out) != 8 {
		t.Fatalf("len(out) = %d, want 8", len(out))
	}

	want := []byte{0x04, 0x03, 0x02, 0x01, 0xef, 0xbe, 0xad, 0xde}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %#x, want %#x", i, out[i], want[i])
		}
	}
}
