package accountpool

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSeedFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoadSeedYAMLMissingFileIsEmptyNotError(t *testing.T) {
	entries, err := LoadSeedYAML(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected no error for a missing seed file, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected zero entries, got %d", len(entries))
	}
}

func TestLoadSeedYAMLParsesAccountsAndCredentials(t *testing.T) {
	path := writeSeedFile(t, `
accounts:
  - id: acct-1
    email: a@example.com
    cred:
      token: shh
      expires: 2030-01-01T00:00:00Z
  - id: acct-2
    email: b@example.com
    cred:
      token: also-shh
`)

	entries, err := LoadSeedYAML(path)
	if err != nil {
		t.Fatalf("LoadSeedYAML: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	var cred fakeCred
	if err := entries[0].Decode(&cred); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cred.Token != "shh" {
		t.Fatalf("expected decoded token %q, got %q", "shh", cred.Token)
	}
}

func TestPoolSeedIfEmptyPopulatesOnlyWhenPoolIsEmpty(t *testing.T) {
	path := writeSeedFile(t, `
accounts:
  - id: acct-1
    email: seeded@example.com
    cred:
      token: seeded-token
`)

	p := NewPool(nil, nil, nil)
	if err := p.SeedIfEmpty(path, func() Credential { return &fakeCred{} }, time.Now()); err != nil {
		t.Fatalf("SeedIfEmpty: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 seeded account, got %d", p.Len())
	}

	if err := p.SeedIfEmpty(path, func() Credential { return &fakeCred{} }, time.Now()); err != nil {
		t.Fatalf("SeedIfEmpty (second call): %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("expected SeedIfEmpty to be a no-op on a non-empty pool, got %d accounts", p.Len())
	}
}
