package cache

import (
	"fmt"
	"time"
)

// Mode controls how a fetch behaves while the host is offline.
type Mode int

const (
	// OfflineFirst suppresses new fetch attempts while fully offline but
	// keeps cached data servable; attempts resume on reconnect.
	OfflineFirst Mode = iota
	// OnlineOnly requires connectivity: an attempt made while offline fails
	// fast with ErrOffline instead of pausing, and nothing is served from
	// cache.
	OnlineOnly
)

// Policy tunes one fetch class. Cached data is fresh for StaleTime after a
// successful fetch and remains servable until RetentionTime after last use.
type Policy struct {
	StaleTime     time.Duration
	RetentionTime time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	Mode          Mode
}

const (
	defaultStaleTime     = 30 * time.Second
	defaultRetentionTime = 5 * time.Minute
	backoffBase          = time.Second
	maxBackoff           = 30 * time.Second
)

// QueryPolicy is the default read policy: retried three times with capped
// exponential backoff, offline-first.
func QueryPolicy() Policy {
	return Policy{
		StaleTime:     defaultStaleTime,
		RetentionTime: defaultRetentionTime,
		MaxRetries:    3,
		BackoffBase:   backoffBase,
		BackoffCap:    maxBackoff,
		Mode:          OfflineFirst,
	}
}

// MutationPolicy is the default write policy. Re-issuing a side-effecting
// request is riskier than re-issuing a read, so the retry budget is one.
func MutationPolicy() Policy {
	return Policy{
		MaxRetries:  1,
		BackoffBase: backoffBase,
		BackoffCap:  maxBackoff,
		Mode:        OnlineOnly,
	}
}

// Validate reports whether the policy's windows are coherent. Retained data
// must be servable at least as long as it can be stale.
func (p Policy) Validate() error {
	if p.RetentionTime < p.StaleTime {
		return fmt.Errorf("retention %v shorter than staleness %v", p.RetentionTime, p.StaleTime)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("negative retry budget %d", p.MaxRetries)
	}
	return nil
}

// Backoff computes the delay after the given failed attempt:
// min(base * 2^attempt, cap).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	if d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}
