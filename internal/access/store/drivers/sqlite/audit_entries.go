package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/pkg/idx"
)

type auditEntriesRepo struct {
	q querier
}

// Append is a single INSERT; SQLite makes it all-or-nothing and serialises
// concurrent writers.
func (r *auditEntriesRepo) Append(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_entries (id, timestamp, unix_time, actor, actor_key, event, resource, outcome, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		e.Timestamp.Local().Format(time.RFC3339),
		e.Timestamp.Unix(),
		e.Actor,
		domain.NormalizeIdentifier(e.Actor),
		string(e.Event),
		mapStringNull(string(e.Resource)),
		string(e.Outcome),
		e.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List pushes every filter into SQL. timestamp keeps the local offset for
// display; unix_time is the column that orders and compares.
func (r *auditEntriesRepo) List(ctx context.Context, f store.AuditFilter) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Actor != "" {
		where = append(where, "actor_key = ?")
		args = append(args, domain.NormalizeIdentifier(f.Actor))
	}
	if f.Event != "" {
		where = append(where, "event = ?")
		args = append(args, string(f.Event))
	}
	if !f.Since.IsZero() {
		where = append(where, "unix_time >= ?")
		args = append(args, sinceSeconds(f.Since))
	}

	query := `SELECT seq, id, timestamp, actor, event, resource, outcome, reason FROM audit_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?) recent`
		args = append(args, f.Limit)
	}
	query += ` ORDER BY seq`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e                  domain.AuditEntry
			seq                int64
			id, ts, event, out string
			resource           sql.NullString
		)
		if err := rows.Scan(&seq, &id, &ts, &e.Actor, &event, &resource, &out, &e.Reason); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: bad timestamp: %w", id, err)
		}
		e.ID = idx.ID(id)
		e.Timestamp = parsed.Local()
		e.Event = domain.EventKind(event)
		e.Resource = domain.ResourceID(mapNullString(resource))
		e.Outcome = domain.Outcome(out)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// sinceSeconds rounds t up to a whole second. Stored times are whole
// seconds, so an entry matches exactly when it is not before t.
func sinceSeconds(t time.Time) int64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return s
}
