package protocol

import (
	"hash/fnv"
	"sync"
	"time"
)

// ledgerShardCount fixes the number of independently locked shards. Requests
// hash across shards by sender and session, so contention on the ledger
// stays proportional to per-peer traffic rather than total traffic.
const ledgerShardCount = 32

// NonceLedger records the last accepted nonce per (sender, session) pair.
// It is the single piece of state shared by all concurrent requests, and
// every authenticated request passes through it, so the critical sections
// are kept to a map lookup and a store.
//
// Entries are never evicted by default, matching the behavior peers rely
// on. WithTTL opts into inactivity-based eviction, accepting the small risk
// of re-admitting a very old nonce from a peer that went silent for longer
// than the TTL.
type NonceLedger struct {
	ttl    time.Duration
	shards [ledgerShardCount]ledgerShard
}

type ledgerShard struct {
	mu      sync.Mutex
	entries map[string]ledgerEntry
}

type ledgerEntry struct {
	nonce   uint64
	touched time.Time
}

// LedgerOption configures a NonceLedger.
type LedgerOption func(*NonceLedger)

// WithTTL enables eviction of entries whose last acceptance is older than
// ttl. The owner is responsible for calling EvictBefore periodically.
func WithTTL(ttl time.Duration) LedgerOption {
	return func(l *NonceLedger) {
		l.ttl = ttl
	}
}

// NewNonceLedger creates an empty ledger.
func NewNonceLedger(opts ...LedgerOption) *NonceLedger {
	l := &NonceLedger{}
	for i := range l.shards {
		l.shards[i].entries = make(map[string]ledgerEntry)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TTL returns the configured eviction window, zero when eviction is off.
func (l *NonceLedger) TTL() time.Duration { return l.ttl }

// ledgerKey is the map key scoping nonce ordering: one logical connection
// from one sender.
func ledgerKey(sender, session string) string {
	return sender + ":" + session
}

func (l *NonceLedger) shardFor(key string) *ledgerShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.shards[h.Sum32()%ledgerShardCount]
}

// Stale reports whether the nonce is already known to be too small. It
// takes the shard lock only for a read and never advances the ledger; it
// exists so obviously replayed requests can be rejected before paying for
// signature verification.
func (l *NonceLedger) Stale(sender, session string, nonce uint64) bool {
	key := ledgerKey(sender, session)
	shard := l.shardFor(key)
	shard.mu.Lock()
	entry, ok := shard.entries[key]
	shard.mu.Unlock()
	return ok && nonce <= entry.nonce
}

// CheckAndAdvance atomically compares the nonce against the stored value
// and advances the ledger when it is strictly greater. It returns false for
// equal or smaller nonces, so a replayed request can never be admitted even
// when two copies race: the comparison and the store happen under one lock.
func (l *NonceLedger) CheckAndAdvance(sender, session string, nonce uint64) bool {
	key := ledgerKey(sender, session)
	shard := l.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[key]
	if ok && nonce <= entry.nonce {
		return false
	}
	shard.entries[key] = ledgerEntry{nonce: nonce, touched: time.Now()}
	return true
}

// Len returns the number of tracked (sender, session) pairs.
func (l *NonceLedger) Len() int {
	total := 0
	for i := range l.shards {
		shard := &l.shards[i]
		shard.mu.Lock()
		total += len(shard.entries)
		shard.mu.Unlock()
	}
	return total
}

// EvictBefore drops every entry whose last acceptance predates the cutoff
// and returns how many were dropped. Callers with a TTL typically pass
// time.Now().Add(-ttl) on a timer.
func (l *NonceLedger) EvictBefore(cutoff time.Time) int {
	evicted := 0
	for i := range l.shards {
		shard := &l.shards[i]
		shard.mu.Lock()
		for key, entry := range shard.entries {
			if entry.touched.Before(cutoff) {
				delete(shard.entries, key)
				evicted++
			}
		}
		shard.mu.Unlock()
	}
	return evicted
}
