// Package identifier issues the surrogate keys used as primary keys in the
// new store.
package identifier

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns "<prefix>_<26-char ULID>". ULIDs are globally unique without
// coordination and sort lexicographically by creation time at millisecond
// resolution, so concurrent migration workers never collide and record age
// is inferable from the id alone.
func New(prefix string) string {
	mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	mu.Unlock()
	return fmt.Sprintf("%s_%s", prefix, id.String())
}

// Prefixes, one per logical entity type.
const (
	PrefixCategory      = "cat"
	PrefixPaymentMethod = "pm"
	PrefixParty         = "party"
	PrefixTag           = "tag"
	PrefixTransaction   = "txn"
	PrefixLineItem      = "li"
	PrefixEvent         = "evt"
	PrefixAccount       = "acct"
	PrefixUser          = "user"
	PrefixFailure       = "dwf"
)
