// Package idx mints the sortable identifiers attached to audit entries.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in canonical string form. IDs minted by one process sort in
// the order they were minted, which keeps audit entries written within the
// same second in append order.
type ID string

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an ID stamped with the current time.
func New() ID {
	return NewAt(time.Now())
}

// NewAt returns an ID stamped with t. Monotonic entropy is shared, so calls
// must be serialised.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalid
	}
	return ID(s), nil
}

func (id ID) String() string { return string(id) }

// IsZero reports whether id was never assigned.
func (id ID) IsZero() bool { return id == "" }

// Time returns the millisecond timestamp embedded in id, or the zero time
// when id is not a valid ULID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// Compare orders a and b lexically, which for ULIDs is creation order.
func Compare(a, b ID) int {
	return strings.Compare(string(a), string(b))
}
