package xdcc

import (
	"net/netip"
	"testing"
)

func TestParseOfferPassive(t *testing.T) {
	offer, ok := ParseOffer("\x01DCC SEND Well_this-could-be.something.mkv 1226420238 0 3498348389 22\x01")
	if !ok {
		t.Fatal("expected offer to parse")
	}
	if offer.FileName != "Well_this-could-be.something.mkv" {
		t.Errorf("file name: got %q", offer.FileName)
	}
	if got := offer.Addr.Addr(); got != netip.MustParseAddr("73.25.176.14") {
		t.Errorf("address: got %s", got)
	}
	if !offer.Passive() {
		t.Error("port 0 should be passive")
	}
	if offer.FileSize != 3498348389 {
		t.Errorf("file size: got %d", offer.FileSize)
	}
	if offer.ID != 22 {
		t.Errorf("id: got %d", offer.ID)
	}
}

func TestParseOfferWithoutDCCKeyword(t *testing.T) {
	offer, ok := ParseOffer("\x01SEND report.mkv 1226420238 0 3498348389 22\x01")
	if !ok {
		t.Fatal("expected offer to parse")
	}
	if offer.FileName != "report.mkv" || offer.Addr.String() != "73.25.176.14:0" {
		t.Errorf("unexpected offer %+v", offer)
	}
	if offer.FileSize != 3498348389 || offer.ID != 22 {
		t.Errorf("unexpected size/id %d/%d", offer.FileSize, offer.ID)
	}
}

func TestParseOfferOptionalFields(t *testing.T) {
	offer, ok := ParseOffer("\x01dcc send Well_this-could-be.something.mkv 1226420238 0\x01")
	if !ok {
		t.Fatal("marker must be matched case-insensitively")
	}
	if offer.FileSize != -1 || offer.ID != -1 {
		t.Errorf("expected absent size and id, got %d/%d", offer.FileSize, offer.ID)
	}
}

func TestParseOfferActive(t *testing.T) {
	offer, ok := ParseOffer("hello \x01DCC SEND file.bin 2130706433 5000 1024\x01")
	if !ok {
		t.Fatal("expected offer to parse")
	}
	if offer.Passive() {
		t.Error("nonzero port should be active")
	}
	if offer.Addr != netip.MustParseAddrPort("127.0.0.1:5000") {
		t.Errorf("address: got %s", offer.Addr)
	}
	if offer.FileSize != 1024 || offer.ID != -1 {
		t.Errorf("unexpected size/id %d/%d", offer.FileSize, offer.ID)
	}
}

func TestParseOfferRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"DCC SEND file.bin 2130706433 5000",
		"\x01DCC SEND file.bin 2130706433\x01",
		"\x01DCC SEND file.bin\x01",
		"\x01DCC SEND 2130706433 5000\x01",
		"\x01DCC SEND file.bin 4294967296 5000\x01",
		"\x01DCC SEND file.bin 2130706433 65536\x01",
		"\x01DCC CHAT chat 2130706433 5000\x01",
	} {
		if offer, ok := ParseOffer(input); ok {
			t.Errorf("%q: unexpected match %+v", input, offer)
		}
	}
}

func TestOfferStringRoundTrip(t *testing.T) {
	offer := Offer{
		FileName: "a.mkv",
		Addr:     netip.MustParseAddrPort("73.25.176.14:4000"),
		FileSize: 10,
		ID:       3,
	}
	if got, want := offer.String(), "\x01DCC SEND a.mkv 1226420238 4000 10 3\x01"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	offer.FileSize = -1
	if got, want := offer.String(), "\x01DCC SEND a.mkv 1226420238 4000\x01"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
