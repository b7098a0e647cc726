package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/pkg/idx"
)

var ErrClosed = errors.New("audit log: closed")

// auditRecord is the on-disk shape of one JSON line.
type auditRecord struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
	Event     string `json:"event"`
	Resource  string `json:"resource,omitempty"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason"`
}

// AuditLog appends entries to a JSON-lines file. Each entry is one line
// written with a single write on an O_APPEND descriptor, so concurrent
// writers (in or out of process) never interleave inside a record.
type AuditLog struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// OpenAuditLog opens path for appending, creating it if needed. If the last
// record was torn by a crash mid-write it is terminated with a newline so the
// next append starts a clean line.
func OpenAuditLog(path string) (*AuditLog, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	if err := terminateTornRecord(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("repair audit log tail: %w", err)
	}

	return &AuditLog{path: path, f: f}, nil
}

func terminateTornRecord(f *os.File) error {
	torn, err := tornTail(f)
	if err != nil || !torn {
		return err
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

// tornTail reports whether the file ends inside a record, either because a
// writer crashed or because an earlier write came up short.
func tornTail(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func (l *AuditLog) Path() string { return l.path }

func (l *AuditLog) Append(_ context.Context, e domain.AuditEntry) error {
	line, err := json.Marshal(toRecord(e))
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return ErrClosed
	}

	// A short write leaves a fragment with no newline. Closing it off in the
	// same write keeps this record on its own line.
	torn, err := tornTail(l.f)
	if err != nil {
		return fmt.Errorf("inspect audit log tail: %w", err)
	}
	if torn {
		line = append([]byte{'\n'}, line...)
	}

	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// List reads the file from the start through a separate descriptor, so it
// never blocks appenders.
func (l *AuditLog) List(_ context.Context, filter store.AuditFilter) ([]domain.AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	entries, _, err := ReadEntries(f)
	if err != nil {
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return filter.Tail(out), nil
}

func (l *AuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *AuditLog) Ping(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return ErrClosed
	}
	_, err := l.f.Stat()
	return err
}

// ReadEntries decodes every complete record in r. Lines without a trailing
// newline (an interrupted append) and lines that do not decode are skipped
// and counted, so all complete prior entries are still recovered.
func ReadEntries(r io.Reader) (entries []domain.AuditEntry, skipped int, err error) {
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return entries, skipped, fmt.Errorf("read audit log: %w", readErr)
		}

		complete := readErr == nil
		if len(bytes.TrimSpace(line)) > 0 {
			if !complete {
				skipped++
			} else if e, ok := decodeLine(line); ok {
				entries = append(entries, e)
			} else {
				skipped++
			}
		}

		if !complete {
			return entries, skipped, nil
		}
	}
}

func decodeLine(line []byte) (domain.AuditEntry, bool) {
	var rec auditRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return domain.AuditEntry{}, false
	}
	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		return domain.AuditEntry{}, false
	}
	return domain.AuditEntry{
		ID:        idx.ID(rec.ID),
		Timestamp: ts.Local(),
		Actor:     rec.Actor,
		Event:     domain.EventKind(rec.Event),
		Resource:  domain.ResourceID(rec.Resource),
		Outcome:   domain.Outcome(rec.Outcome),
		Reason:    rec.Reason,
	}, true
}

func toRecord(e domain.AuditEntry) auditRecord {
	return auditRecord{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp.Local().Format(time.RFC3339),
		Actor:     e.Actor,
		Event:     string(e.Event),
		Resource:  string(e.Resource),
		Outcome:   string(e.Outcome),
		Reason:    e.Reason,
	}
}
