package cursor

import (
	"strings"
	"testing"
	"time"
)

func TestBuildChecksumIsDeterministicForFixedTime(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := BuildChecksum("machine-1", now)
	b := BuildChecksum("machine-1", now)
	if a != b {
		t.Fatalf("expected deterministic checksum for a fixed timestamp, got %q vs %q", a, b)
	}
	if !strings.HasSuffix(a, "machine-1") {
		t.Fatalf("expected checksum to end with the machine id, got %q", a)
	}
}

func TestBuildChecksumVariesByTime(t *testing.T) {
	a := BuildChecksum("machine-1", time.UnixMilli(1700000000000))
	b := BuildChecksum("machine-1", time.UnixMilli(1700000000001))
	if a == b {
		t.Fatal("expected checksum to change when the timestamp changes")
	}
}

func TestBuildChecksumVariesByMachineID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := BuildChecksum("machine-1", now)
	b := BuildChecksum("machine-2", now)
	if a == b {
		t.Fatal("expected checksum to change when the machine id changes")
	}
}

func TestChecksumHeaderName(t *testing.T) {
	if got := ChecksumHeaderName("Cursor"); got != "X-Cursor-Checksum" {
		t.Fatalf("got %q", got)
	}
}

func TestClientKeyIsStableHexDigest(t *testing.T) {
	a := ClientKey("token-a")
	b := ClientKey("token-a")
	c := ClientKey("token-b")
	if a != b {
		t.Fatal("expected the same token to produce the same client key")
	}
	if a == c {
		t.Fatal("expected different tokens to produce different client keys")
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-character hex digest, got %d chars", len(a))
	}
}
