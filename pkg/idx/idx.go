// Package idx generates the sortable identifiers used for accounts and
// request IDs.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a canonical 26-character ULID string.
type ID string

// Zero is the empty ID. It is never produced by New.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

// Generator hands out ULIDs from a monotonic source, so two IDs made in the
// same millisecond still sort in creation order. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator returns a generator reading crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewAt returns an ID stamped with t.
func (g *Generator) NewAt(t time.Time) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		return Zero, err
	}
	return ID(u.String()), nil
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

func defaultGenerator() *Generator {
	defaultOnce.Do(func() { defaultGen = NewGenerator() })
	return defaultGen
}

// New returns an ID for the current time. It panics if the entropy source
// fails, which leaves nothing sensible to continue with.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt is New stamped with t.
func NewAt(t time.Time) ID {
	id, err := defaultGenerator().NewAt(t)
	if err != nil {
		panic("idx: generate ulid: " + err.Error())
	}
	return id
}

// Parse validates s as a ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

func (id ID) IsZero() bool   { return id == Zero }
func (id ID) String() string { return string(id) }

// Time returns the embedded timestamp, or the zero time for an invalid ID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
