package cursor

import (
	"testing"
	"time"
)

func TestCredentialNeverExpiringSoon(t *testing.T) {
	c := &Credential{APIToken: "tok", MachineID: "machine-1", GhostMode: true}
	if c.ExpiringSoon(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Fatal("expected an API-token credential to never report ExpiringSoon")
	}
}
