/*
Package convo maintains the per-peer conversation caches behind the messaging overlay.

This file defines the Store struct: an ordered message cache per peer with a
pagination cursor, an unread counter, and deduplication guarding against the same
message arriving once over the live push channel and once in a history page.
*/
package convo

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forumchat/internal/app/user"
	"forumchat/internal/pkg/logx"
)

// DedupWindow is the timestamp tolerance for duplicate detection. The push path
// and the persistence path stamp the same message independently, so up to a
// second of skew between the two copies is tolerated. An imprecise heuristic:
// only a server-assigned id identifies a message reliably once available.
const DedupWindow = time.Second

// conversation holds the cached state for one peer. All fields are guarded by the
// owning Store's mutex.
type conversation struct {
	peerID   int
	nickname string

	// messages is ordered by CreatedAt ascending; ties keep arrival order.
	messages []Message

	// hasMore reports whether older pages may exist server-side.
	hasMore bool

	// loadOffset is the pagination cursor: how many messages of this
	// conversation have been fetched from the persistence collaborator.
	loadOffset int

	// isLoading guards against concurrent history fetches for the same peer.
	isLoading bool

	// loaded records that the initial history fetch has completed at least once.
	loaded bool

	unread       int
	lastMessage  string
	lastActivity time.Time
}

// Store owns every conversation of the local session, keyed by peer id.
// Conversations are created lazily on first touch and cleared (not destroyed)
// on logout; nothing is persisted across client restarts.
type Store struct {
	// mu protects concurrent access to the conversations map and its entries.
	mu sync.RWMutex

	conversations map[int]*conversation

	// structured logger with Store context.
	logger zerolog.Logger
}

// NewStore constructs and returns an empty Store instance.
func NewStore() *Store {
	return &Store{
		conversations: make(map[int]*conversation),
		logger:        logx.Logger().With().Str("component", "ConversationStore").Logger(),
	}
}

// ensure returns the conversation for the given peer, creating it lazily.
// Callers must hold s.mu.
func (s *Store) ensure(peerID int, nickname string) *conversation {
	conv, ok := s.conversations[peerID]
	if !ok {
		conv = &conversation{
			peerID:  peerID,
			hasMore: true,
		}
		s.conversations[peerID] = conv
	}
	if nickname != "" {
		conv.nickname = nickname
	}
	return conv
}

// Select prepares the conversation with the given peer for viewing: the
// conversation is created if needed and its pagination cursor is reset so the
// initial history fetch starts from the newest page.
func (s *Store) Select(peerID int, nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensure(peerID, nickname)
	conv.loadOffset = 0
	conv.hasMore = true
}

// isDuplicate reports whether m matches an already-cached entry: an equal
// non-zero server id, an equal temp id, or the same sender and content with
// timestamps within DedupWindow of each other.
func isDuplicate(conv *conversation, m Message) bool {
	for i := range conv.messages {
		existing := &conv.messages[i]

		if m.ID != 0 && existing.ID == m.ID {
			return true
		}
		if m.TempID != "" && existing.TempID == m.TempID {
			return true
		}
		if existing.SenderID == m.SenderID && existing.Content == m.Content {
			delta := existing.CreatedAt.Sub(m.CreatedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta < DedupWindow {
				return true
			}
		}
	}
	return false
}

// insertOrdered places m into msgs keeping CreatedAt ascending order. Entries with
// equal timestamps keep their arrival order: the new message goes after them.
func insertOrdered(msgs []Message, m Message) []Message {
	i := len(msgs)
	for i > 0 && msgs[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}

	msgs = append(msgs, Message{})
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m
	return msgs
}

// append inserts m into the conversation after deduplication and refreshes the
// derived last-activity fields. Callers must hold s.mu. Returns false when m was
// discarded as a duplicate.
func (s *Store) append(conv *conversation, m Message) bool {
	if isDuplicate(conv, m) {
		s.logger.Debug().
			Int("peer_id", conv.peerID).
			Int("message_id", m.ID).
			Msg("Duplicate message discarded.")
		return false
	}

	conv.messages = insertOrdered(conv.messages, m)

	if !m.CreatedAt.Before(conv.lastActivity) {
		conv.lastActivity = m.CreatedAt
		conv.lastMessage = m.Content
	}

	return true
}

// AppendIncoming inserts an inbound message into the peer's conversation.
// Returns false when the message was discarded as a duplicate.
func (s *Store) AppendIncoming(peerID int, m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(s.ensure(peerID, ""), m)
}

// AppendOutgoing inserts a locally originated optimistic message into the peer's
// conversation. Returns false when the message was discarded as a duplicate.
func (s *Store) AppendOutgoing(peerID int, m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(s.ensure(peerID, ""), m)
}

// BeginLoad marks the peer's conversation as loading and returns true when a
// history fetch may proceed. It returns false while another fetch is in flight,
// or — for non-initial loads — when the server has no older pages.
func (s *Store) BeginLoad(peerID int, initial bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensure(peerID, "")
	if conv.isLoading {
		return false
	}
	if !initial && !conv.hasMore {
		return false
	}

	conv.isLoading = true
	return true
}

// FinishLoad merges a fetched history page into the peer's conversation and
// advances the pagination cursor. Pages arrive oldest-first; each entry passes
// through deduplication, so a message already received over the push channel is
// not duplicated. The returned count of actually inserted entries lets the
// rendering collaborator compensate its scroll anchor on prepends.
//
// A completed load signals "read" for this conversation, so the unread counter
// resets — for the initial load only, since older pages were read long ago.
func (s *Store) FinishLoad(peerID int, page []Message, pageFull bool, initial bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensure(peerID, "")
	conv.isLoading = false
	conv.loaded = true
	conv.loadOffset += len(page)
	conv.hasMore = pageFull

	inserted := 0
	for _, m := range page {
		if s.append(conv, m) {
			inserted++
		}
	}

	if initial {
		conv.unread = 0
	}

	return inserted
}

// FailLoad resets the loading flag after a failed history fetch so a retry is
// possible. The cached messages are left untouched; a conversation with a failed
// load stays usable, just possibly empty or partial.
func (s *Store) FailLoad(peerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensure(peerID, "")
	conv.isLoading = false
	conv.hasMore = true
}

// MarkDelivered locates a message by server id or temp id and marks it delivered.
// When the id is unknown but a pending optimistic message exists, the newest such
// entry is promoted to the server id, covering sends whose durable write did not
// return one. Returns false when nothing
// matched; acknowledgements for unknown messages are the caller's to log and
// ignore.
func (s *Store) MarkDelivered(messageID int, tempID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Direct match on either identifier.
	for _, conv := range s.conversations {
		for i := range conv.messages {
			m := &conv.messages[i]
			if (messageID != 0 && m.ID == messageID) || (tempID != "" && m.TempID == tempID) {
				if messageID != 0 {
					m.ID = messageID
				}
				m.Delivered = true
				m.Failed = false
				return true
			}
		}
	}

	if messageID == 0 {
		return false
	}

	// Promotion: the newest pending optimistic message takes the server id.
	var pending *Message
	var pendingAt time.Time
	for _, conv := range s.conversations {
		for i := range conv.messages {
			m := &conv.messages[i]
			if m.ID == 0 && m.TempID != "" && !m.Delivered && !m.CreatedAt.Before(pendingAt) {
				pending = m
				pendingAt = m.CreatedAt
			}
		}
	}

	if pending == nil {
		return false
	}

	pending.ID = messageID
	pending.Delivered = true
	pending.Failed = false
	return true
}

// MarkFailed flags the most recent pending outbound message to the given peer.
// Returns false when that conversation has no pending entry.
func (s *Store) MarkFailed(peerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[peerID]
	if !ok {
		return false
	}

	for i := len(conv.messages) - 1; i >= 0; i-- {
		m := &conv.messages[i]
		if m.TempID != "" && !m.Delivered {
			m.Failed = true
			return true
		}
	}
	return false
}

// IncrementUnread bumps the peer's unread counter. Only inbound messages to a
// conversation that is not currently viewed warrant an increment; that decision
// belongs to the session, which knows the active peer.
func (s *Store) IncrementUnread(peerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(peerID, "").unread++
}

// ResetUnread zeroes the peer's unread counter.
func (s *Store) ResetUnread(peerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[peerID]; ok {
		conv.unread = 0
	}
}

// Unread returns the peer's current unread count.
func (s *Store) Unread(peerID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if conv, ok := s.conversations[peerID]; ok {
		return conv.unread
	}
	return 0
}

// Loaded reports whether the peer's initial history fetch has completed.
func (s *Store) Loaded(peerID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[peerID]
	return ok && conv.loaded
}

// Cursor returns the pagination state for the peer's conversation.
func (s *Store) Cursor(peerID int) (offset int, hasMore, isLoading bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[peerID]
	if !ok {
		return 0, true, false
	}
	return conv.loadOffset, conv.hasMore, conv.isLoading
}

// Messages returns a copy of the peer's ordered message cache.
func (s *Store) Messages(peerID int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[peerID]
	if !ok {
		return nil
	}

	out := make([]Message, len(conv.messages))
	copy(out, conv.messages)
	return out
}

// ApplySummaries merges conversation summaries fetched from the persistence
// collaborator. The merge never overrides fresher delta-derived state: a summary
// is applied to a conversation only when it reports later activity than the local
// cache has seen (last-write-wins by timestamp, not by source).
func (s *Store) ApplySummaries(summaries []Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sum := range summaries {
		conv := s.ensure(sum.PeerID, sum.Nickname)

		if sum.LastActivity.After(conv.lastActivity) {
			conv.lastActivity = sum.LastActivity
			conv.lastMessage = sum.LastMessage
			conv.unread = sum.Unread
		}
	}
}

// Summaries returns the current per-peer digests, one per known conversation.
func (s *Store) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, Summary{
			PeerID:       conv.peerID,
			Nickname:     conv.nickname,
			Unread:       conv.unread,
			LastMessage:  conv.lastMessage,
			LastActivity: conv.lastActivity,
		})
	}
	return out
}

// Peers derives the globally sorted peer list: the roster joined with the presence
// set and conversation state. Peers with an active conversation come first, newest
// activity on top; peers without one follow alphabetically. The list is recomputed
// on every call and never cached, so a rapid burst of messages cannot leave a stale
// ordering visible.
func (s *Store) Peers(roster []user.User, isOnline func(nickname string) bool) []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Peer, 0, len(roster))
	for _, u := range roster {
		p := Peer{
			ID:       u.ID,
			Nickname: u.Nickname,
			Online:   isOnline(u.Nickname),
		}

		if conv, ok := s.conversations[u.ID]; ok {
			p.Unread = conv.unread
			p.LastMessage = conv.lastMessage
			p.LastActivity = conv.lastActivity
		}

		peers = append(peers, p)
	}

	sort.SliceStable(peers, func(i, j int) bool {
		a, b := peers[i], peers[j]

		aActive := !a.LastActivity.IsZero()
		bActive := !b.LastActivity.IsZero()

		if aActive != bActive {
			return aActive
		}
		if aActive {
			return a.LastActivity.After(b.LastActivity)
		}
		return strings.ToLower(a.Nickname) < strings.ToLower(b.Nickname)
	})

	return peers
}

// Clear empties every conversation on logout. The store stays usable: peer ids
// reselect cleanly and caches rebuild from scratch on the next login.
func (s *Store) Clear() {
	s.mu.Lock()
	s.conversations = make(map[int]*conversation)
	s.mu.Unlock()

	s.logger.Debug().Msg("Conversation store cleared.")
}
