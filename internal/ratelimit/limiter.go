// Package ratelimit provides a per-key token-bucket limiter for fixture APIs,
// so tests can exercise 429 handling deterministically.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Sustained requests per second per key
	Burst           int           // Burst size per key
	CleanupInterval time.Duration // How often idle limiters are dropped
}

// DefaultConfig provides sensible defaults for fixture servers.
var DefaultConfig = Config{
	RPS:             10,
	Burst:           20,
	CleanupInterval: time.Hour,
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter manages per-key rate limiting.
type Limiter struct {
	entries map[string]*entry
	mu      sync.RWMutex
	config  Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a limiter and starts its background cleanup goroutine.
func New(config Config) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		config:  config,
		stopCh:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Allow reports whether a request for the given key is within limits.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	e, exists := l.entries[key]
	if exists {
		e.lastUsed = time.Now()
		l.mu.RUnlock()
		return e.limiter
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock.
	e, exists = l.entries[key]
	if exists {
		e.lastUsed = time.Now()
		return e.limiter
	}

	lim := rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)
	l.entries[key] = &entry{
		limiter:  lim,
		lastUsed: time.Now(),
	}
	return lim
}

// Cleanup removes limiters idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval)
	for key, e := range l.entries {
		if e.lastUsed.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Len returns the number of active per-key limiters.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
