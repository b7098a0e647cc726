package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
)

// userRecord is one value in the users file, keyed by identifier:
//
//	{"Alice": {"password_hash": "$2b$12$...", "role": "Cashier", "department": "A"}}
//
// password_hash is kept raw so a non-string value loads as an unusable hash
// instead of failing the whole file.
type userRecord struct {
	PasswordHash json.RawMessage `json:"password_hash"`
	Role         string          `json:"role"`
	Department   string          `json:"department"`
}

// snapshot is an immutable view of the users file. Readers load it through
// an atomic pointer so a reload never exposes a half-built map.
type snapshot struct {
	byKey map[string][]domain.User // normalised identifier -> matches
}

// Credentials is the JSON-file credential store.
type Credentials struct {
	path string
	snap atomic.Pointer[snapshot]

	mu sync.Mutex // serialises writers and reloads
}

// OpenCredentials loads path. A missing or empty file is an empty store;
// malformed JSON is an error.
func OpenCredentials(path string) (*Credentials, error) {
	c := &Credentials{path: filepath.Clean(path)}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Credentials) Path() string { return c.path }

// Reload re-reads the users file and swaps the snapshot in one step. On
// error the previous snapshot stays in place.
func (c *Credentials) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked()
}

func (c *Credentials) reloadLocked() error {
	records, err := c.readLocked()
	if err != nil {
		return err
	}
	c.snap.Store(buildSnapshot(records))
	return nil
}

func (c *Credentials) readLocked() (map[string]userRecord, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]userRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]userRecord{}, nil
	}

	var records map[string]userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", c.path, err)
	}
	return records, nil
}

func buildSnapshot(records map[string]userRecord) *snapshot {
	s := &snapshot{byKey: make(map[string][]domain.User, len(records))}
	for id, rec := range records {
		key := domain.NormalizeIdentifier(id)
		s.byKey[key] = append(s.byKey[key], mapUser(id, rec))
	}
	return s
}

func mapUser(id string, rec userRecord) domain.User {
	var hash string
	if err := json.Unmarshal(rec.PasswordHash, &hash); err != nil {
		hash = ""
	}
	var pw []byte
	if hash != "" {
		pw = []byte(hash)
	}
	return domain.User{
		Identifier:   id,
		PasswordHash: pw,
		Role:         strings.TrimSpace(rec.Role),
		Department:   domain.Department(strings.ToUpper(strings.TrimSpace(rec.Department))),
	}
}

func (c *Credentials) GetUserByIdentifier(_ context.Context, identifier string) (domain.User, error) {
	matches := c.snap.Load().byKey[domain.NormalizeIdentifier(identifier)]
	switch len(matches) {
	case 0:
		return domain.User{}, store.ErrNotFound
	case 1:
		return cloneUser(matches[0]), nil
	default:
		return domain.User{}, fmt.Errorf("%w: %q matches %d users", store.ErrAmbiguousIdentifier, identifier, len(matches))
	}
}

func (c *Credentials) ListUsers(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	for _, matches := range c.snap.Load().byKey {
		for _, u := range matches {
			users = append(users, cloneUser(u))
		}
	}
	slices.SortFunc(users, func(a, b domain.User) int { return strings.Compare(a.Identifier, b.Identifier) })
	return users, nil
}

// CreateUser rewrites the users file through a temp file and rename, so a
// concurrent reader (or a crash) sees either the old or the new file.
func (c *Credentials) CreateUser(_ context.Context, u domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.readLocked()
	if err != nil {
		return err
	}

	key := domain.NormalizeIdentifier(u.Identifier)
	for id := range records {
		if domain.NormalizeIdentifier(id) == key {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, u.Identifier)
		}
	}

	hash, err := json.Marshal(string(u.PasswordHash))
	if err != nil {
		return err
	}
	records[u.Identifier] = userRecord{
		PasswordHash: hash,
		Role:         u.Role,
		Department:   string(u.Department),
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}

	c.snap.Store(buildSnapshot(records))
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func cloneUser(u domain.User) domain.User {
	u.PasswordHash = bytes.Clone(u.PasswordHash)
	return u
}

// logReloadError is split out so the watcher stays readable.
func logReloadError(logger *slog.Logger, path string, err error) {
	logger.Error("users file reload failed, keeping previous snapshot",
		slog.String("path", path),
		slog.Any("error", err),
	)
}
