// Package automerge implements the document library this module treats as
// an external oracle: a JSON-like CRDT tree of maps, lists, text (with
// marks), counters, timestamps and scalars, plus the change/heads/diff
// machinery a real Automerge binding would provide.
package automerge

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies a replica. It is a UUIDv7 so that values sort
// roughly by creation time, which keeps LogicalTimestamp a usable tie
// breaker without a separate wall clock.
type SessionID uuid.UUID

// NewSessionID creates a new, time-ordered SessionID.
func NewSessionID() SessionID {
	u, err := uuid.NewV7()
	if err != nil {
		panic(fmt.Sprintf("automerge: failed to create session id: %v", err))
	}
	return SessionID(u)
}

// NilSessionID is the zero-value session, used for the document root.
var NilSessionID = SessionID{}

func (s SessionID) String() string { return uuid.UUID(s).String() }

// Compare returns -1, 0 or 1 the way bytes.Compare does, comparing the
// underlying UUID bytes lexicographically.
func (s SessionID) Compare(other SessionID) int {
	a, b := uuid.UUID(s), uuid.UUID(other)
	for i := 0; i < 16; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (s SessionID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SessionID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return fmt.Errorf("automerge: invalid session id: %w", err)
	}
	*s = SessionID(u)
	return nil
}

// OpID is a per-operation logical timestamp: (session, per-session counter).
// It orders operations from the same session and breaks ties between
// sessions by SessionID, following the same scheme the teacher's
// LogicalTimestamp used for its node ids.
type OpID struct {
	SID     SessionID `json:"sid"`
	Counter uint64    `json:"cnt"`
}

// RootID is the fixed id of the document's root map.
var RootID = OpID{SID: NilSessionID, Counter: 0}

func (t OpID) Compare(other OpID) int {
	if c := t.SID.Compare(other.SID); c != 0 {
		return c
	}
	switch {
	case t.Counter < other.Counter:
		return -1
	case t.Counter > other.Counter:
		return 1
	default:
		return 0
	}
}

func (t OpID) Next() OpID { return OpID{SID: t.SID, Counter: t.Counter + 1} }

func (t OpID) String() string {
	b, _ := json.Marshal(t)
	return string(b)
}

func (t OpID) IsZero() bool { return t.SID == NilSessionID && t.Counter == 0 }
