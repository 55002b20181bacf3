/*
Package limiter provides outbound send rate limiting keyed by peer id.

It utilizes the Token Bucket algorithm (rate.Limiter) to cap the frequency of
messages sent to each conversation partner and includes a cleanup goroutine that
periodically removes buckets for idle conversations, preventing unbounded growth.
*/
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"forumchat/internal/pkg/logx"
)

// cleanupInterval is how often idle per-peer buckets are swept.
const cleanupInterval = 3 * time.Minute

// PeerSendLimiter implements an outbound message rate limiter keyed by peer id.
type PeerSendLimiter struct {
	// mu is used to protect concurrent access to the limits map.
	mu *sync.RWMutex

	// limits stores the map from peer id to the *rate.Limiter instance.
	limits map[int]*rate.Limiter

	// r is the rate (rate.Limit) of the limiter, defining the number of sends allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size) of the limiter, defining the maximum burst of sends allowed.
	b int
}

// NewPeerSendLimiter creates and returns a new PeerSendLimiter instance.
// It accepts rate r and burst capacity b, and starts a background goroutine to
// periodically clean up buckets with no recent activity.
func NewPeerSendLimiter(r rate.Limit, b int) *PeerSendLimiter {
	l := &PeerSendLimiter{
		mu:     &sync.RWMutex{},
		limits: make(map[int]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go l.cleanUpIdlePeers()

	return l
}

// Allow reports whether one more message may be sent to the given peer right now.
func (l *PeerSendLimiter) Allow(peerID int) bool {
	return l.getLimiter(peerID).Allow()
}

// getLimiter retrieves the rate limiter corresponding to the given peer id.
// If the limiter for that peer does not exist, a new one is created and stored in the map.
// It uses a Double-Checked Locking pattern to ensure concurrent-safe creation of new limiters.
func (l *PeerSendLimiter) getLimiter(peerID int) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[peerID]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		limiter, exists = l.limits[peerID]
		if !exists {
			limiter = rate.NewLimiter(l.r, l.b)
			l.limits[peerID] = limiter
		}
		l.mu.Unlock()
	}

	return limiter
}

// cleanUpIdlePeers periodically removes limiters whose token bucket is full
// (i.e., no sends have consumed tokens recently), which frees up memory for
// long-running sessions that touch many conversations.
func (l *PeerSendLimiter) cleanUpIdlePeers() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		count := 0
		for peerID, limiter := range l.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(l.limits, peerID)
				count++
			}
		}
		remaining := len(l.limits)
		l.mu.Unlock()

		if count > 0 {
			logx.Debug("Send limiter cleanup removed idle peers.", "removed", count, "remaining", remaining)
		}
	}
}
