package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// session is the process-local form state of one shopper.
//
// All fields are guarded by mu. The lock is never held across I/O: callers
// take it to move between states and release it before calling out.
type session struct {
	mu sync.Mutex

	state State
	// errMsg is the visible error, shared by card validation and failures.
	errMsg string

	cardEmpty    bool
	cardInvalid  bool
	cardComplete bool

	// clientSecret authorizes one confirmation for basket secretVersion.
	clientSecret  string
	hasSecret     bool
	secretVersion uint64
	// fetchVersion is the basket version of the in-flight secret request.
	fetchVersion uint64

	// confirmed holds an intent the provider confirmed whose order write
	// failed, so a resubmit retries only the write.
	confirmed      *payment.Intent
	confirmedItems []basket.Item
	// confirmedVersion is the basket version the intent paid for.
	confirmedVersion uint64

	lastSeen time.Time
}

func newSession(now time.Time) *session {
	return &session{
		state:     StateIdle,
		cardEmpty: true,
		lastSeen:  now,
	}
}

// form must be called with mu held.
func (s *session) form() Form {
	f := Form{
		State:        s.state,
		Error:        s.errMsg,
		Disabled:     s.cardEmpty,
		CardComplete: s.cardComplete,
	}
	if s.hasSecret {
		f.ClientSecret = s.clientSecret
	}
	return f
}

// reset returns the session to a freshly mounted form, keeping card flags.
// Must be called with mu held.
func (s *session) reset() {
	s.state = StateIdle
	s.errMsg = ""
	s.clientSecret = ""
	s.hasSecret = false
	s.secretVersion = 0
	s.fetchVersion = 0
}

// busy reports whether the session must survive eviction.
// Must be called with mu held.
func (s *session) busy() bool {
	return s.state == StateProcessing || s.state == StateFetching || s.confirmed != nil
}

// Sessions keeps checkout form state per shopper in memory.
type Sessions struct {
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
	m  map[string]*session
}

// NewSessions creates a session registry that evicts sessions idle for
// longer than ttl when Cleanup runs.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]*session),
	}
}

// get returns the shopper's session, creating it on first use.
func (r *Sessions) get(uid string) *session {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.m[uid]
	if !ok {
		s = newSession(now)
		r.m[uid] = s
		return s
	}
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
	return s
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Cleanup evicts idle sessions and returns how many were removed. Sessions
// with a submission or fetch in flight, or with a confirmed payment awaiting
// its order write, are kept.
func (r *Sessions) Cleanup(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for uid, s := range r.m {
		s.mu.Lock()
		expired := now.Sub(s.lastSeen) >= r.ttl && !s.busy()
		s.mu.Unlock()
		if expired {
			delete(r.m, uid)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is cancelled.
func (r *Sessions) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.Cleanup(now)
			}
		}
	}()
}
