package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/pkg/idx"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditEntriesRepo struct {
	pool *pgxpool.Pool
}

func (r *auditEntriesRepo) Append(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_entries (id, timestamp, actor, actor_key, event, resource, outcome, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID.String(),
		e.Timestamp,
		e.Actor,
		domain.NormalizeIdentifier(e.Actor),
		string(e.Event),
		pgtype.Text{String: string(e.Resource), Valid: e.Resource != ""},
		string(e.Outcome),
		e.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List pushes every filter into SQL. With a Limit the newest rows are
// selected first and then returned in append order.
func (r *auditEntriesRepo) List(ctx context.Context, f store.AuditFilter) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Actor != "" {
		where = append(where, "actor_key = "+arg(domain.NormalizeIdentifier(f.Actor)))
	}
	if f.Event != "" {
		where = append(where, "event = "+arg(string(f.Event)))
	}
	if !f.Since.IsZero() {
		where = append(where, "timestamp >= "+arg(f.Since))
	}

	query := `SELECT seq, id, timestamp, actor, event, resource, outcome, reason FROM audit_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ` + arg(f.Limit) + `) recent`
	}
	query += ` ORDER BY seq`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e                  domain.AuditEntry
			seq                int64
			id, event, outcome string
			ts                 time.Time
			resource           pgtype.Text
		)
		if err := rows.Scan(&seq, &id, &ts, &e.Actor, &event, &resource, &outcome, &e.Reason); err != nil {
			return nil, err
		}
		e.ID = idx.ID(id)
		e.Timestamp = ts.Local()
		e.Event = domain.EventKind(event)
		e.Resource = domain.ResourceID(resource.String)
		e.Outcome = domain.Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
