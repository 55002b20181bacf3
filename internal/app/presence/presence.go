/*
Package presence maintains the authoritative online-user set.

The set is fed from two sources: full snapshots requested right after connecting
(and re-requested by the periodic reconciliation poll) and incremental
join/leave deltas pushed by the server. A nickname absent from the set is
considered offline.
*/
package presence

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"forumchat/internal/pkg/logx"
)

// Tracker holds the online set keyed by nickname. Presence events omit the numeric
// user id, so the nickname is the only usable key here.
type Tracker struct {
	// mu protects concurrent access to the online set.
	mu sync.RWMutex

	// online holds the nicknames currently considered online.
	online map[string]struct{}

	// structured logger with Tracker context.
	logger zerolog.Logger
}

// NewTracker constructs and returns an empty Tracker instance.
func NewTracker() *Tracker {
	return &Tracker{
		online: make(map[string]struct{}),
		logger: logx.Logger().With().Str("component", "PresenceTracker").Logger(),
	}
}

// ApplySnapshot replaces the entire online set atomically with the given nicknames.
func (t *Tracker) ApplySnapshot(nicknames []string) {
	next := make(map[string]struct{}, len(nicknames))
	for _, nick := range nicknames {
		if nick == "" {
			continue
		}
		next[nick] = struct{}{}
	}

	t.mu.Lock()
	t.online = next
	t.mu.Unlock()

	t.logger.Debug().Int("online_count", len(next)).Msg("Applied presence snapshot.")
}

// ApplyDelta adds or removes a single nickname. It is idempotent: marking an
// already-online nickname online, or an absent one offline, changes nothing.
// It returns whether the set actually changed, which callers use to suppress
// redundant notifications and re-renders.
func (t *Tracker) ApplyDelta(nickname string, online bool) bool {
	if nickname == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, present := t.online[nickname]
	if online == present {
		return false
	}

	if online {
		t.online[nickname] = struct{}{}
	} else {
		delete(t.online, nickname)
	}

	t.logger.Debug().Str("nickname", nickname).Bool("online", online).Msg("Applied presence delta.")
	return true
}

// IsOnline reports whether the given nickname is currently online.
func (t *Tracker) IsOnline(nickname string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.online[nickname]
	return ok
}

// Online returns a sorted copy of the online nicknames.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	nicknames := make([]string, 0, len(t.online))
	for nick := range t.online {
		nicknames = append(nicknames, nick)
	}
	t.mu.RUnlock()

	sort.Strings(nicknames)
	return nicknames
}

// Clear empties the online set. Called on logout and when the transport gives up
// reconnecting, since a client without a connection has no presence knowledge.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.online = make(map[string]struct{})
	t.mu.Unlock()
}
