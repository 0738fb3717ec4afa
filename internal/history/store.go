// Package history keeps the resolved terminal results. The in-memory list is
// authoritative; Redis, when configured, is a best-effort write-through so a
// dashboard backend can read history across restarts.
//
// Graceful fallback: if Redis is unavailable, operations silently degrade to
// memory-only instead of blocking the orchestrator.
package history

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys, shared with the dashboard backend.
const (
	KeyHistory  = "bridge:history"
	KeyLatestTx = "bridge:latest_tx"
)

// Outcome tags for a stored record.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Record is one resolved terminal result.
type Record struct {
	CorrelationID string    `json:"correlationId"`
	Outcome       string    `json:"outcome"`
	TxHash        string    `json:"txHash,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	FromAgent     string    `json:"fromAgent,omitempty"`
	ToAgent       string    `json:"toAgent,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	At            time.Time `json:"at"`
}

// RedisConfig holds the optional cache connection settings.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// Store holds terminal results, newest first, capped at a fixed size.
type Store struct {
	mu      sync.RWMutex
	records []Record
	cap     int
	rdb     *redis.Client
}

// NewStore creates a store keeping at most capacity records (default 100).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{cap: capacity}
}

// EnableRedis connects the write-through cache. Returns true if connected;
// on failure the store stays memory-only.
func (s *Store) EnableRedis(cfg RedisConfig) bool {
	if cfg.URL == "" {
		return false
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[History] invalid Redis URL: %v", err)
		return false
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[History] Redis connection failed, memory-only: %v", err)
		return false
	}

	s.mu.Lock()
	s.rdb = c
	s.mu.Unlock()
	log.Println("[History] Redis write-through enabled")
	return true
}

// Append stores a terminal result.
func (s *Store) Append(rec Record) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	s.mu.Lock()
	s.records = append([]Record{rec}, s.records...)
	if len(s.records) > s.cap {
		s.records = s.records[:s.cap]
	}
	rdb := s.rdb
	s.mu.Unlock()

	if rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := rdb.LPush(ctx, KeyHistory, data).Err(); err != nil {
		log.Printf("[History] Redis LPUSH failed: %v", err)
		return
	}
	rdb.LTrim(ctx, KeyHistory, 0, int64(s.cap-1))
	if rec.Outcome == OutcomeConfirmed && rec.TxHash != "" {
		rdb.Set(ctx, KeyLatestTx, rec.TxHash, 0)
	}
}

// Latest returns the most recent terminal result of any outcome.
func (s *Store) Latest() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[0], true
}

// LatestConfirmed returns the most recent confirmed transaction.
func (s *Store) LatestConfirmed() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.Outcome == OutcomeConfirmed {
			return rec, true
		}
	}
	return Record{}, false
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]Record, n)
	copy(out, s.records[:n])
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
