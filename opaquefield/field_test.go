package opaquefield

import "testing"

func TestIOFRoundTrip(t *testing.T) {
	iof := IOF{UpFlag: true, Shortcut: true, Peer: false, Timestamp: 0x01020304, ISD: 42, Hops: 3}

	b := (&iof).Encode()
	got := DecodeIOF(b)

	if got != iof {
		t.Fatalf("IOF round trip: got %+v, want %+v", got, iof)
	}
}

func TestIOFPeerWithoutShortcutStillEncodes(t *testing.T) {
	// Encode/Decode never enforce the peer=>shortcut invariant themselves;
	// that's SCIONPath.Parse's job.
	iof := IOF{Peer: true, Shortcut: false}
	b := (&iof).Encode()
	got := DecodeIOF(b)

	if !got.Peer || got.Shortcut {
		t.Fatalf("expected peer=true shortcut=false, got %+v", got)
	}
}

func TestHOFRoundTrip(t *testing.T) {
	hof := HOF{Xover: true, VerifyOnly: false, Expiration: 200, Ingress: 0xABC, Egress: 0x123, Mac: [3]byte{1, 2, 3}}

	b := (&hof).Encode()
	got := DecodeHOF(b)

	if got != hof {
		t.Fatalf("HOF round trip: got %+v, want %+v", got, hof)
	}
}

func TestHOFInterfaceIdsAre12Bit(t *testing.T) {
	hof := HOF{Ingress: 0xFFFF, Egress: 0xFFFF}
	b := (&hof).Encode()
	got := DecodeHOF(b)

	if got.Ingress != 0x0FFF || got.Egress != 0x0FFF {
		t.Fatalf("expected 12-bit truncation, got ingress=%#x egress=%#x", got.Ingress, got.Egress)
	}
}

func TestHOFZeroValue(t *testing.T) {
	var hof HOF
	b := (&hof).Encode()
	if b != [OFLen]byte{} {
		t.Fatalf("zero HOF should encode to all-zero bytes, got %v", b)
	}
}
