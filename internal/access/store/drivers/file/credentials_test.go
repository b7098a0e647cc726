package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUsers(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const usersJSON = `{
    "Alice": {"password_hash": "$2b$12$abcdefghijklmnopqrstuuJ0aJ0aJ0aJ0aJ0aJ0aJ0aJ0aJ0aJ0aJ0", "role": "Cashier", "department": "a"},
    "bob":   {"password_hash": 42, "role": "Manager", "department": "B"},
    "carol": {"role": "Night Admin"}
}`

func TestCredentials_CaseInsensitiveLookup(t *testing.T) {
	ctx := context.Background()
	creds, err := OpenCredentials(writeUsers(t, t.TempDir(), usersJSON))
	require.NoError(t, err)

	for _, in := range []string{"alice", "ALICE", "  Alice "} {
		u, err := creds.GetUserByIdentifier(ctx, in)
		require.NoError(t, err)
		require.Equal(t, "Alice", u.Identifier, "stored spelling is preserved")
		require.Equal(t, "Cashier", u.Role)
		require.Equal(t, domain.DepartmentA, u.Department)
		require.NotEmpty(t, u.PasswordHash)
	}

	_, err = creds.GetUserByIdentifier(ctx, "mallory")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentials_NonStringHashLoadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	creds, err := OpenCredentials(writeUsers(t, t.TempDir(), usersJSON))
	require.NoError(t, err)

	bob, err := creds.GetUserByIdentifier(ctx, "BOB")
	require.NoError(t, err)
	require.Empty(t, bob.PasswordHash)

	carol, err := creds.GetUserByIdentifier(ctx, "carol")
	require.NoError(t, err)
	require.Empty(t, carol.PasswordHash)
	require.Equal(t, domain.DepartmentNone, carol.Department)
}

func TestCredentials_AmbiguousIdentifier(t *testing.T) {
	creds, err := OpenCredentials(writeUsers(t, t.TempDir(), `{
		"Dave": {"password_hash": "x", "role": "Manager"},
		"DAVE": {"password_hash": "y", "role": "Cashier", "department": "A"}
	}`))
	require.NoError(t, err)

	_, err = creds.GetUserByIdentifier(context.Background(), "dave")
	require.ErrorIs(t, err, store.ErrAmbiguousIdentifier)
}

func TestCredentials_MissingAndEmptyFiles(t *testing.T) {
	ctx := context.Background()

	missing, err := OpenCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	users, err := missing.ListUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	empty, err := OpenCredentials(writeUsers(t, t.TempDir(), "  \n"))
	require.NoError(t, err)
	_, err = empty.GetUserByIdentifier(ctx, "anyone")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentials_MalformedFile(t *testing.T) {
	_, err := OpenCredentials(writeUsers(t, t.TempDir(), `{"alice": `))
	require.Error(t, err)
}

func TestCredentials_ReloadKeepsSnapshotOnError(t *testing.T) {
	ctx := context.Background()
	path := writeUsers(t, t.TempDir(), usersJSON)
	creds, err := OpenCredentials(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	require.Error(t, creds.Reload())

	_, err = creds.GetUserByIdentifier(ctx, "alice")
	require.NoError(t, err)
}

func TestCredentials_CreateUser(t *testing.T) {
	ctx := context.Background()
	path := writeUsers(t, t.TempDir(), usersJSON)
	creds, err := OpenCredentials(path)
	require.NoError(t, err)

	err = creds.CreateUser(ctx, domain.User{
		Identifier:   "Erin",
		PasswordHash: []byte("$2b$12$hash"),
		Role:         "Dept Manager",
		Department:   domain.DepartmentB,
	})
	require.NoError(t, err)

	u, err := creds.GetUserByIdentifier(ctx, "erin")
	require.NoError(t, err)
	require.Equal(t, "Erin", u.Identifier)
	require.Equal(t, []byte("$2b$12$hash"), u.PasswordHash)

	// Persisted, and existing users survive the rewrite.
	reopened, err := OpenCredentials(path)
	require.NoError(t, err)
	all, err := reopened.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	err = creds.CreateUser(ctx, domain.User{Identifier: "ALICE", Role: "Manager"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCredentials_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	ctx := context.Background()
	creds, err := OpenCredentials(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 20 {
			id := string(rune('a'+i)) + "-user"
			assert.NoError(t, creds.CreateUser(ctx, domain.User{Identifier: id, PasswordHash: []byte("h"), Role: "Manager"}))
		}
	}()

	for range 200 {
		users, err := creds.ListUsers(ctx)
		require.NoError(t, err)
		for _, u := range users {
			require.Equal(t, "Manager", u.Role)
			require.Equal(t, []byte("h"), u.PasswordHash)
		}
	}
	wg.Wait()

	users, err := creds.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 20)
}
