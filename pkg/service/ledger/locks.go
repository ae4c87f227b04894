package ledger

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// accountLocks serializes mutations of one account inside the process.
// Accounts hash onto a fixed set of stripes.
type accountLocks struct {
	stripes []sync.Mutex
}

func newAccountLocks(n int) *accountLocks {
	if n <= 0 {
		n = 256
	}
	return &accountLocks{stripes: make([]sync.Mutex, n)}
}

func (l *accountLocks) lock(userID uuid.UUID) func() {
	h := fnv.New32a()
	_, _ = h.Write(userID[:])
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
