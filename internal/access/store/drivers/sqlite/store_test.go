package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "custodian.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)
}

func TestUsers_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	alice := domain.User{
		Identifier:   "Alice",
		PasswordHash: []byte("$2a$12$abcdefghijklmnopqrstuv"),
		Role:         "Manager",
		Department:   domain.DepartmentA,
	}
	require.NoError(t, users.CreateUser(ctx, alice))

	got, err := users.GetUserByIdentifier(ctx, "  aLiCe ")
	require.NoError(t, err)
	assert.Equal(t, alice, got, "lookup keeps the stored spelling")

	err = users.CreateUser(ctx, domain.User{Identifier: "ALICE", Role: "Cashier"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = users.GetUserByIdentifier(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_List(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	for _, id := range []string{"carol", "Alice", "bob"} {
		require.NoError(t, users.CreateUser(ctx, domain.User{Identifier: id, Role: "Cashier"}))
	}

	list, err := users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Alice", list[0].Identifier)
	assert.Equal(t, "bob", list[1].Identifier)
	assert.Equal(t, "carol", list[2].Identifier)
}

func TestAuditEntries_AppendAndFilter(t *testing.T) {
	ctx := context.Background()
	audit := newTestStore(t).AuditEntries()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)

	entries := []domain.AuditEntry{
		domain.NewLoginEntry(base, "Alice", true, domain.ReasonLoginSuccess),
		domain.NewAccessEntry(base.Add(time.Minute), "alice", domain.CustomerA, domain.ActionView, domain.Grant()),
		domain.NewLoginEntry(base.Add(2*time.Minute), "bob", false, domain.ReasonUserNotFound),
		domain.NewAccessEntry(base.Add(3*time.Minute), "ALICE", domain.CustomerB, domain.ActionEdit, domain.InsufficientPermissions(domain.ActionEdit)),
	}
	for _, e := range entries {
		require.NoError(t, audit.Append(ctx, e))
	}

	all, err := audit.List(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, want := range entries {
		assert.Equal(t, want.ID, all[i].ID)
		assert.True(t, want.Timestamp.Equal(all[i].Timestamp))
		assert.Equal(t, want.Event, all[i].Event)
		assert.Equal(t, want.Resource, all[i].Resource)
		assert.Equal(t, want.Outcome, all[i].Outcome)
		assert.Equal(t, want.Reason, all[i].Reason)
	}

	byActor, err := audit.List(ctx, store.AuditFilter{Actor: "alice"})
	require.NoError(t, err)
	assert.Len(t, byActor, 3)

	edits, err := audit.List(ctx, store.AuditFilter{Event: domain.EventEdit})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, domain.OutcomeDenied, edits[0].Outcome)

	recent, err := audit.List(ctx, store.AuditFilter{Since: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	last, err := audit.List(ctx, store.AuditFilter{Actor: "Alice", Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, entries[1].ID, last[0].ID)
	assert.Equal(t, entries[3].ID, last[1].ID)
}

func TestAuditEntries_SinceAndLimitInSQL(t *testing.T) {
	ctx := context.Background()
	audit := newTestStore(t).AuditEntries()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)

	var ids []string
	for i := range 5 {
		e := domain.NewLoginEntry(base.Add(time.Duration(i)*time.Second), "dave", false, domain.ReasonIncorrectPassword)
		require.NoError(t, audit.Append(ctx, e))
		ids = append(ids, e.ID.String())
	}

	// Entries are stamped in whole seconds, so 09:00:01.5 excludes 09:00:01.
	got, err := audit.List(ctx, store.AuditFilter{Since: base.Add(1500 * time.Millisecond)})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID.String())

	got, err = audit.List(ctx, store.AuditFilter{Since: base.Add(time.Second)})
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = audit.List(ctx, store.AuditFilter{Actor: "DAVE", Event: domain.EventLoginFailed, Since: base.Add(time.Second), Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[3], got[0].ID.String())
	assert.Equal(t, ids[4], got[1].ID.String())
}

func TestAuditEntries_RejectUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := domain.NewLoginEntry(time.Now(), "alice", true, domain.ReasonLoginSuccess)
	require.NoError(t, s.AuditEntries().Append(ctx, e))

	_, err := s.db.ExecContext(ctx, `UPDATE audit_entries SET outcome = 'denied'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = s.db.ExecContext(ctx, `DELETE FROM audit_entries`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	all, err := s.AuditEntries().List(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.OutcomeAllowed, all[0].Outcome)
}

func TestAuditEntries_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	audit := newTestStore(t).AuditEntries()

	e := domain.NewLoginEntry(time.Now(), "alice", true, domain.ReasonLoginSuccess)
	require.NoError(t, audit.Append(ctx, e))
	require.Error(t, audit.Append(ctx, e))

	all, err := audit.List(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
