package services

import (
	"sync"
)

// ShopSemaphore serializes long-running passes per shop. Sync, discount and
// daily-discount passes touch external prices, so only one may run for a shop
// at a time.
type ShopSemaphore struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewShopSemaphore creates a new per-shop semaphore
func NewShopSemaphore() *ShopSemaphore {
	return &ShopSemaphore{active: make(map[string]bool)}
}

// TryAcquire attempts to claim the shop's slot without blocking. It returns
// false when another pass is already running, and a release function
// otherwise.
func (s *ShopSemaphore) TryAcquire(shop string) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[shop] {
		return nil, false
	}
	s.active[shop] = true

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.active, shop)
	}, true
}

// Active reports whether a pass is running for the shop
func (s *ShopSemaphore) Active(shop string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[shop]
}
