package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/stretchr/testify/require"
)

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(LoginLimit{Attempts: 2, Window: time.Minute, Burst: 2})
	now := fixedNow

	require.True(t, l.AllowAt(now, "alice"))
	require.True(t, l.AllowAt(now, " ALICE "), "keys are normalised")
	require.False(t, l.AllowAt(now, "alice"))
	require.True(t, l.AllowAt(now, "bob"), "identifiers are throttled independently")

	// Two attempts per minute refill one token every 30s.
	require.True(t, l.AllowAt(now.Add(30*time.Second), "alice"))
	require.False(t, l.AllowAt(now.Add(30*time.Second), "alice"))
}

func TestNewLoginLimiter_FallsBackToDefault(t *testing.T) {
	l := NewLoginLimiter(LoginLimit{})
	for range DefaultLoginLimit.Burst {
		require.True(t, l.AllowAt(fixedNow, "carol"))
	}
	require.False(t, l.AllowAt(fixedNow, "carol"))
}

func TestAuthenticate_Throttled(t *testing.T) {
	ctx := context.Background()
	alice := domain.User{Identifier: "Alice", PasswordHash: mustHash(t, "Secret1!"), Role: "Manager"}
	svc, s := newAuth(t, alice)
	svc.Limiter = NewLoginLimiter(LoginLimit{Attempts: 1, Window: time.Hour, Burst: 1})

	_, err := svc.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Even the right password is refused while throttled.
	_, err = svc.Authenticate(ctx, "alice", "Secret1!")
	require.ErrorIs(t, err, ErrTooManyAttempts)
	require.NotErrorIs(t, err, ErrInvalidCredentials)

	entries := s.audit()
	require.Len(t, entries, 2)
	require.Equal(t, domain.ReasonIncorrectPassword, entries[0].Reason)
	require.Equal(t, domain.EventLoginFailed, entries[1].Event)
	require.Equal(t, domain.ReasonTooManyAttempts, entries[1].Reason)
}

func TestLoginLimiter_SeedsFromHistoryOnce(t *testing.T) {
	l := NewLoginLimiter(LoginLimit{Attempts: 2, Window: time.Minute, Burst: 2})
	now := fixedNow

	calls := 0
	history := func(identifier string, since time.Time) []time.Time {
		calls++
		require.Equal(t, "alice", identifier)
		require.Equal(t, now.Add(-time.Minute), since, "a full bucket takes one minute to refill")
		return []time.Time{now.Add(-40 * time.Second), now.Add(-5 * time.Second)}
	}

	// The failure 40s ago has refilled one token; the one 5s ago has not.
	require.True(t, l.AllowSeededAt(now, " Alice ", history))
	require.False(t, l.AllowSeededAt(now, "alice", history))
	require.Equal(t, 1, calls, "history is read only for a new bucket")

	require.True(t, l.AllowSeededAt(now, "bob", func(string, time.Time) []time.Time { return nil }))
}

func TestAuthenticate_ThrottleSpansServiceInstances(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	limit := LoginLimit{Attempts: 5, Window: time.Minute, Burst: 5}

	// Each service stands in for one short-lived process sharing the
	// audit log but not the limiter.
	first := &AuthService{Store: s, Limiter: NewLoginLimiter(limit), Now: func() time.Time { return fixedNow }}
	for range 3 {
		_, err := first.Authenticate(ctx, "mallory", "guess")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	second := &AuthService{Store: s, Limiter: NewLoginLimiter(limit), Now: func() time.Time { return fixedNow.Add(time.Second) }}
	for range 2 {
		_, err := second.Authenticate(ctx, "MALLORY", "guess")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := second.Authenticate(ctx, "mallory", "guess")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// Refused attempts are not failures to count against the next process.
	third := &AuthService{Store: s, Limiter: NewLoginLimiter(limit), Now: func() time.Time { return fixedNow.Add(13 * time.Second) }}
	_, err = third.Authenticate(ctx, "mallory", "guess")
	require.ErrorIs(t, err, ErrInvalidCredentials, "one token refilled after 12s")
	_, err = third.Authenticate(ctx, "mallory", "guess")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	require.Len(t, s.audit(), 8)
}
