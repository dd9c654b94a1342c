// Package lock provides the per-draft mutual exclusion used around every
// state transition. Acquisition never blocks: a held lock is reported as
// LOCK_CONTENTION and the caller retries.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
)

// DefaultTTL bounds how long a crashed holder can freeze a draft.
const DefaultTTL = 5 * time.Second

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker acquires the lock for a single draft.
type Locker interface {
	Acquire(ctx context.Context, draftID string) (Lease, error)
}

// Local is an in-process Locker: one owner per draft at a time within this
// process. Suitable for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an empty in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

func (l *Local) Acquire(_ context.Context, draftID string) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[draftID] {
		return nil, drafterrors.New(drafterrors.KindLockContention, "draft %s is locked by another request", draftID)
	}
	l.held[draftID] = true
	return &localLease{owner: l, draftID: draftID}, nil
}

type localLease struct {
	owner   *Local
	draftID string
	once    sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.draftID)
		l.owner.mu.Unlock()
	})
	return nil
}
