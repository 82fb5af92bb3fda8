package security

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterEntry tracks one client's token bucket and its last use.
type limiterEntry struct {
	clientID   string
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter rate limits token endpoint traffic per client identifier
// using a token bucket per client. Entries are evicted least recently used
// once maxEntries is reached so an attacker rotating client identifiers
// cannot grow the map without bound.
type RateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	rate     rate.Limit
	burst    int
	max      int
	logger   *slog.Logger
	maxIdle  time.Duration
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// DefaultMaxEntries bounds the number of client identifiers tracked at
// once.
const DefaultMaxEntries = 10000

// NewRateLimiter creates a rate limiter allowing requestsPerSecond
// sustained requests with the given burst per client identifier. Call Stop
// when done to release the cleanup goroutine.
func NewRateLimiter(requestsPerSecond, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		max:      DefaultMaxEntries,
		logger:   logger,
		maxIdle:  30 * time.Minute,
		interval: 5 * time.Minute,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from the given client identifier is
// within its rate limit.
func (rl *RateLimiter) Allow(clientID string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if elem, ok := rl.entries[clientID]; ok {
		rl.lru.MoveToFront(elem)
		entry := elem.Value.(*limiterEntry)
		entry.lastAccess = now
		return entry.limiter.Allow()
	}

	if rl.max > 0 && len(rl.entries) >= rl.max {
		rl.evictOldest()
	}

	entry := &limiterEntry{
		clientID:   clientID,
		limiter:    rate.NewLimiter(rl.rate, rl.burst),
		lastAccess: now,
	}
	rl.entries[clientID] = rl.lru.PushFront(entry)

	return entry.limiter.Allow()
}

// evictOldest drops the least recently used entry. Caller holds the mutex.
func (rl *RateLimiter) evictOldest() {
	elem := rl.lru.Back()
	if elem == nil {
		return
	}

	entry := elem.Value.(*limiterEntry)
	delete(rl.entries, entry.clientID)
	rl.lru.Remove(elem)

	rl.logger.Debug("rate limiter evicted client",
		"client_id", entry.clientID,
		"entries", len(rl.entries))
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops entries idle longer than maxIdle.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for elem := rl.lru.Front(); elem != nil; elem = next {
		next = elem.Next()
		entry := elem.Value.(*limiterEntry)
		if now.Sub(entry.lastAccess) > rl.maxIdle {
			delete(rl.entries, entry.clientID)
			rl.lru.Remove(elem)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("rate limiter cleanup",
			"removed", removed,
			"remaining", len(rl.entries))
	}
}

// Len returns the number of client identifiers currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Stop terminates the background cleanup goroutine. Safe to call more than
// once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}
