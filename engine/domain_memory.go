package engine

import (
	"sync"
	"time"
)

// domainEntry stores the preferred engine for a domain with an expiry.
type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last worked for each domain so
// repeated downloads from the same host skip the escalation race. Entries
// expire after the configured TTL.
type DomainMemory struct {
	store sync.Map // domain (string) -> *domainEntry
	ttl   time.Duration
	done  chan struct{}
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts a
// background goroutine that prunes expired entries.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go dm.pruneLoop()
	return dm
}

// Get returns the remembered engine name for a domain, or "" when unknown
// or expired.
func (dm *DomainMemory) Get(domain string) string {
	val, ok := dm.store.Load(domain)
	if !ok {
		return ""
	}
	entry := val.(*domainEntry)
	if time.Now().After(entry.expiresAt) {
		dm.store.Delete(domain)
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for a domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	if domain == "" {
		return
	}
	dm.store.Store(domain, &domainEntry{
		engineName: engineName,
		expiresAt:  time.Now().Add(dm.ttl),
	})
}

// Delete removes the memory for a domain, e.g. after the remembered engine
// fails.
func (dm *DomainMemory) Delete(domain string) {
	dm.store.Delete(domain)
}

// Stop terminates the background prune goroutine.
func (dm *DomainMemory) Stop() {
	close(dm.done)
}

func (dm *DomainMemory) pruneLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			now := time.Now()
			dm.store.Range(func(key, value any) bool {
				if now.After(value.(*domainEntry).expiresAt) {
					dm.store.Delete(key)
				}
				return true
			})
		}
	}
}
