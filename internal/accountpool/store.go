package accountpool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tokligence/relaymux/internal/logx"
)

// Snapshot is the whole-pool state handed to the persistence writer.
type Snapshot struct {
	Accounts    []*Account
	ActiveIndex int
}

// fileAccount is the on-disk shape of one account: the credential fields
// are embedded via CredJSON so each backend's Credential type controls its
// own persisted fields without the store knowing about them.
type fileAccount struct {
	ID            string          `json:"id"`
	Email         string          `json:"email,omitempty"`
	Cred          json.RawMessage `json:"cred"`
	AddedAt       time.Time       `json:"addedAt"`
	LastUsed      *time.Time      `json:"lastUsed"`
	Enabled       bool            `json:"enabled"`
	IsInvalid     bool            `json:"isInvalid"`
	InvalidReason *string         `json:"invalidReason"`
	CooldownUntil *time.Time      `json:"cooldownUntil"`
}

type fileRoot struct {
	Accounts    []fileAccount `json:"accounts"`
	ActiveIndex int           `json:"activeIndex"`
}

// Store is the single-writer persistence actor for one backend's pool
// file: mutators enqueue a snapshot and return immediately; at most one
// write-to-temp-and-rename is in flight, and write failures are logged,
// never propagated to the request path.
type Store struct {
	path string
	log  *logx.Logger

	mu      sync.Mutex
	pending *Snapshot
	writing bool
}

// NewStore returns a Store writing to path. A path of "" disables
// persistence (Enqueue becomes a no-op); useful for ephemeral test pools.
func NewStore(path string, log *logx.Logger) *Store {
	if log == nil {
		log = logx.Nop()
	}
	return &Store{path: path, log: log}
}

// Enqueue schedules snap to be written; if a write is already in flight,
// the newer snapshot supersedes any snapshot still queued and the
// in-flight writer picks it up once it finishes.
func (s *Store) Enqueue(snap Snapshot) {
	if s.path == "" {
		return
	}
	s.mu.Lock()
	s.pending = &snap
	if s.writing {
		s.mu.Unlock()
		return
	}
	s.writing = true
	s.mu.Unlock()
	go s.drain()
}

func (s *Store) drain() {
	for {
		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		s.mu.Unlock()
		if snap == nil {
			s.mu.Lock()
			s.writing = false
			s.mu.Unlock()
			return
		}
		if err := s.writeOnce(*snap); err != nil {
			s.log.Errorf("account store: write %s failed: %v", s.path, err)
		}
	}
}

func (s *Store) writeOnce(snap Snapshot) error {
	root := fileRoot{ActiveIndex: snap.ActiveIndex}
	for _, a := range snap.Accounts {
		credJSON, err := json.Marshal(a.Cred)
		if err != nil {
			return fmt.Errorf("marshal credential for %s: %w", a.ID, err)
		}
		fa := fileAccount{
			ID:        a.ID,
			Email:     a.Email,
			Cred:      credJSON,
			AddedAt:   a.AddedAt,
			Enabled:   a.Enabled,
			IsInvalid: a.Invalid,
		}
		if !a.LastUsed.IsZero() {
			t := a.LastUsed
			fa.LastUsed = &t
		}
		if a.InvalidReason != "" {
			r := a.InvalidReason
			fa.InvalidReason = &r
		}
		if !a.CooldownUntil.IsZero() {
			t := a.CooldownUntil
			fa.CooldownUntil = &t
		}
		root.Accounts = append(root.Accounts, fa)
	}
	return atomicWriteJSON(s.path, root)
}

// Load reads the pool file, reconstructing accounts with newCred used to
// decode each backend-specific credential blob. A missing file is not an
// error (empty pool); a corrupt file returns an error so the caller can
// log and start empty rather than propagate it.
func (s *Store) Load(newCred func() Credential) ([]*Account, int, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var root fileRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", s.path, err)
	}
	accs := make([]*Account, 0, len(root.Accounts))
	for _, fa := range root.Accounts {
		cred := newCred()
		if err := json.Unmarshal(fa.Cred, cred); err != nil {
			return nil, 0, fmt.Errorf("parse credential for %s: %w", fa.ID, err)
		}
		a := NewAccount(fa.ID, cred, fa.AddedAt)
		a.Email = fa.Email
		a.Enabled = fa.Enabled
		a.Invalid = fa.IsInvalid
		if fa.InvalidReason != nil {
			a.InvalidReason = *fa.InvalidReason
		}
		if fa.LastUsed != nil {
			a.LastUsed = *fa.LastUsed
		}
		if fa.CooldownUntil != nil {
			a.CooldownUntil = *fa.CooldownUntil
		}
		accs = append(accs, a)
	}
	return accs, root.ActiveIndex, nil
}

// atomicWriteJSON writes data as indented JSON to a temp file in the same
// directory, then renames it over path so a crash mid-write cannot leave a
// half-written file where a reader could see it.
func atomicWriteJSON(path string, data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
