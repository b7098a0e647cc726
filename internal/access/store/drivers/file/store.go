// Package file is the flat-file store driver: a JSON users file for
// credentials and a JSON-lines audit log.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/custodian/internal/access/store"
)

type Config struct {
	UsersFile string
	AuditFile string
	Watch     bool // reload the users file when it changes on disk
	Logger    *slog.Logger
}

type Store struct {
	creds   *Credentials
	audit   *AuditLog
	watcher *Watcher
}

var _ store.Store = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	creds, err := OpenCredentials(cfg.UsersFile)
	if err != nil {
		return nil, err
	}

	audit, err := OpenAuditLog(cfg.AuditFile)
	if err != nil {
		return nil, err
	}

	s := &Store{creds: creds, audit: audit}

	if cfg.Watch {
		if err := os.MkdirAll(filepath.Dir(creds.Path()), 0o750); err != nil {
			_ = audit.Close()
			return nil, fmt.Errorf("create users directory: %w", err)
		}
		w, err := NewWatcher(creds, logger)
		if err != nil {
			_ = audit.Close()
			return nil, err
		}
		w.Start()
		s.watcher = w
	}

	return s, nil
}

func (s *Store) Users() store.Users               { return s.creds }
func (s *Store) AuditEntries() store.AuditEntries { return s.audit }

func (s *Store) Ping(ctx context.Context) error { return s.audit.Ping(ctx) }

func (s *Store) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return s.audit.Close()
}
