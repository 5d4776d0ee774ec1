package accountpool

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SeedAccount is one hand-authored account entry in a YAML seed file: the
// bootstrap format an operator uses to provision an account whose refresh
// token was obtained out-of-band, before the JSON-backed Store has ever run
// for that backend.
type SeedAccount struct {
	ID    string    `yaml:"id"`
	Email string    `yaml:"email"`
	Cred  yaml.Node `yaml:"cred"`
}

type seedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// Decode unmarshals this entry's credential block into cred, whose concrete
// type is backend-specific.
func (s SeedAccount) Decode(cred Credential) error {
	return s.Cred.Decode(cred)
}

// LoadSeedYAML reads a YAML seed file. A missing file returns an empty,
// non-error result, since seed files are always optional: most accounts
// arrive through the OAuth authorize flow and land in the JSON store
// instead.
func LoadSeedYAML(path string) ([]SeedAccount, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return sf.Accounts, nil
}

// SeedIfEmpty loads seedPath and adds each entry as a new account, but only
// when the pool is still empty; it never overwrites accounts a prior run
// already persisted to the JSON store. newCred constructs the
// backend-specific credential type each entry's Cred block decodes into.
func (p *Pool) SeedIfEmpty(seedPath string, newCred func() Credential, now time.Time) error {
	if p.Len() > 0 {
		return nil
	}
	entries, err := LoadSeedYAML(seedPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		cred := newCred()
		if err := entry.Decode(cred); err != nil {
			return fmt.Errorf("decode seed credential for %s: %w", entry.ID, err)
		}
		acc := NewAccount(entry.ID, cred, now)
		acc.Email = entry.Email
		p.AddAccount(acc)
	}
	return nil
}
