package captcha

import (
	"sync"
	"time"
)

// usedSet remembers solved tokens until they would have expired anyway.
// It is per-process and best effort: a restart or a second instance forgets it.
type usedSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	sweepAt time.Time
}

func newUsedSet() *usedSet {
	return &usedSet{entries: make(map[string]time.Time)}
}

// claim records digest until expiresAt. It returns false if digest was
// already claimed and has not expired.
func (u *usedSet) claim(digest string, expiresAt, now time.Time) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if now.After(u.sweepAt) {
		for k, exp := range u.entries {
			if now.After(exp) {
				delete(u.entries, k)
			}
		}
		u.sweepAt = now.Add(time.Minute)
	}

	if exp, ok := u.entries[digest]; ok && !now.After(exp) {
		return false
	}
	u.entries[digest] = expiresAt
	return true
}

func (u *usedSet) len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.entries)
}
