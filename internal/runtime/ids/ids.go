package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewOperationID returns a fresh UUIDv4 string. Operation ids are assigned
// exactly once, at event construction, and are never supplied by callers.
func NewOperationID() string {
	return uuid.NewString()
}

// NewMessageID returns a time-sortable ULID encoded as a 26-character string.
// Message ids identify the transport envelope and are distinct from the
// operation id carried in the event payload.
func NewMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}
