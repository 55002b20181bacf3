/*
Package session composes the client's components into one authenticated
session and runs its event loop.

All realtime frames, status transitions, periodic reconciliation, and deferred
load results funnel into a single goroutine, so handlers never race each other.
Public methods hand work to that goroutine; slow persistence calls run on their
own goroutines and post their results back as tasks, with stale results
discarded by checking the active conversation when they land.
*/
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"forumchat/internal/app/conn"
	"forumchat/internal/app/convo"
	"forumchat/internal/app/msgsync"
	"forumchat/internal/app/presence"
	"forumchat/internal/app/unread"
	"forumchat/internal/app/user"
	"forumchat/internal/app/wire"
	"forumchat/internal/configs"
	"forumchat/internal/pkg/errs"
	"forumchat/internal/pkg/logx"
)

// ChangeHint tells an observer how the active conversation's message list
// changed, so it can scroll or re-render accordingly.
type ChangeHint int

const (
	// HintReplace means the list was replaced wholesale.
	HintReplace ChangeHint = iota

	// HintAppend means new messages arrived at the end.
	HintAppend

	// HintPrepend means an older page was inserted at the front.
	HintPrepend
)

// Notifier receives session state changes. Implementations render them; the
// session never blocks on a notifier, so implementations must return promptly.
type Notifier interface {
	// PeerListChanged fires when the sidebar ordering, presence, or unread
	// badges changed.
	PeerListChanged(peers []convo.Peer)

	// MessagesChanged fires when the conversation with peerID changed.
	// inserted is the number of entries the change added; on a prepend the
	// renderer uses it to compensate its scroll anchor.
	MessagesChanged(peerID int, hint ChangeHint, inserted int)

	// UnreadTotalChanged fires when the cross-conversation unread total moved.
	UnreadTotalChanged(total int)

	// StatusChanged fires on every connection status transition.
	StatusChanged(status conn.Status)

	// Notify carries a transient human-readable notice.
	Notify(text string)
}

// Persistence is the surface the session needs from the REST collaborator.
type Persistence interface {
	msgsync.Persister

	Users(ctx context.Context) ([]user.User, *errs.CustomError)
	Conversations(ctx context.Context, limit int) ([]convo.Summary, *errs.CustomError)
	Messages(ctx context.Context, peerID, limit, offset int) ([]convo.Message, *errs.CustomError)
	MarkRead(ctx context.Context, peerID int) *errs.CustomError
	Logout(ctx context.Context)
}

// Link is the surface the session needs from the connection layer.
type Link interface {
	msgsync.Pusher

	Connect(userID int, nickname string)
	Disconnect()
	Frames() <-chan wire.Frame
	StatusChanges() <-chan conn.Status
	Status() conn.Status
}

// Session is one authenticated user's running client state.
type Session struct {
	cfg  *configs.AppConfig
	self user.User

	persistence Persistence
	link        Link

	store    *convo.Store
	presence *presence.Tracker
	unread   *unread.Aggregator
	engine   *msgsync.Engine
	notifier Notifier

	mu             sync.Mutex
	roster         []user.User
	activePeerID   int
	activeNickname string
	overlayOpen    bool

	tasks    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger zerolog.Logger
}

// New wires a Session for the authenticated user. Call Run to start the event
// loop and Connect to bring the realtime link up.
func New(cfg *configs.AppConfig, self user.User, persistence Persistence, link Link, engine *msgsync.Engine, store *convo.Store, notifier Notifier) *Session {
	return &Session{
		cfg:         cfg,
		self:        self,
		persistence: persistence,
		link:        link,
		store:       store,
		presence:    presence.NewTracker(),
		unread:      unread.NewAggregator(),
		engine:      engine,
		notifier:    notifier,
		tasks:       make(chan func(), 64),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logx.Logger().With().Str("component", "Session").Int("user_id", self.ID).Logger(),
	}
}

// Run starts the event loop.
func (s *Session) Run() {
	go s.loop()
}

// Close stops the event loop and tears the link down. Safe to call more than
// once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.link.Disconnect()
	})
	<-s.done
}

func (s *Session) loop() {
	defer close(s.done)

	ticker := newRefreshTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.link.Frames():
			s.handleFrame(frame)
		case status := <-s.link.StatusChanges():
			s.handleStatus(status)
		case task := <-s.tasks:
			task()
		case <-ticker.C():
			s.refreshSummaries()
		case <-s.stop:
			return
		}
	}
}

// post hands a task to the event loop, dropping it if the session is stopping.
func (s *Session) post(task func()) {
	select {
	case s.tasks <- task:
	case <-s.stop:
	}
}

// call runs fn on the event loop and waits for its result.
func (s *Session) call(fn func() *errs.CustomError) *errs.CustomError {
	result := make(chan *errs.CustomError, 1)
	select {
	case s.tasks <- func() { result <- fn() }:
	case <-s.stop:
		return errs.NewError(errs.ErrUnknown)
	}
	select {
	case cerr := <-result:
		return cerr
	case <-s.stop:
		return errs.NewError(errs.ErrUnknown)
	}
}

// Connect brings the realtime link up for this identity.
func (s *Session) Connect() {
	s.link.Connect(s.self.ID, s.self.Nickname)
}

// Disconnect tears the realtime link down and clears presence, which is only
// meaningful while connected.
func (s *Session) Disconnect() {
	s.link.Disconnect()
	s.post(func() {
		s.presence.Clear()
		s.notifyPeerList()
	})
}

// Status reports the current connection status.
func (s *Session) Status() conn.Status {
	return s.link.Status()
}

// OpenOverlay marks the conversation overlay visible. While it is open,
// presence notices are suppressed and summaries refresh immediately.
func (s *Session) OpenOverlay() {
	s.post(func() {
		s.mu.Lock()
		s.overlayOpen = true
		s.mu.Unlock()
		s.refreshSummaries()
		s.refreshRoster()
	})
}

// CloseOverlay marks the overlay hidden and deactivates the conversation.
func (s *Session) CloseOverlay() {
	s.post(func() {
		s.mu.Lock()
		s.overlayOpen = false
		s.activePeerID = 0
		s.activeNickname = ""
		s.mu.Unlock()
	})
}

// SelectPeer activates the conversation with the given peer: its unread count
// clears locally and durably, and its first history page loads if it never
// has.
func (s *Session) SelectPeer(peerID int, nickname string) {
	s.post(func() {
		s.mu.Lock()
		s.activePeerID = peerID
		s.activeNickname = nickname
		s.mu.Unlock()

		s.store.Select(peerID, nickname)

		if s.store.Unread(peerID) > 0 {
			s.store.ResetUnread(peerID)
			s.recomputeUnread()
			s.notifyPeerList()
			go func() {
				if cerr := s.persistence.MarkRead(context.Background(), peerID); cerr != nil {
					s.logger.Warn().Int("peer_id", peerID).Msg("Durable read mark failed")
				}
			}()
		}

		if s.store.Loaded(peerID) {
			s.notifier.MessagesChanged(peerID, HintReplace, 0)
			return
		}
		s.loadHistory(peerID, true)
	})
}

// LoadOlder loads the next older history page of the active conversation.
func (s *Session) LoadOlder() {
	s.post(func() {
		s.mu.Lock()
		peerID := s.activePeerID
		s.mu.Unlock()
		if peerID == 0 {
			return
		}
		s.loadHistory(peerID, false)
	})
}

// loadHistory starts one history page fetch. The load guard in the store
// rejects overlapping fetches for the same conversation. The result is applied
// on the event loop; a page landing after the user switched conversations is
// still stored but not rendered. Runs on the event loop.
func (s *Session) loadHistory(peerID int, initial bool) {
	if !s.store.BeginLoad(peerID, initial) {
		return
	}
	offset, _, _ := s.store.Cursor(peerID)
	pageSize := s.cfg.HistoryPageSize

	go func() {
		page, cerr := s.persistence.Messages(context.Background(), peerID, pageSize, offset)
		s.post(func() {
			if cerr != nil {
				s.store.FailLoad(peerID)
				s.logger.Warn().Int("peer_id", peerID).Int("code", cerr.Code).Msg("History page load failed")
				s.notifier.Notify(cerr.Message)
				return
			}

			inserted := s.store.FinishLoad(peerID, page, len(page) == pageSize, initial)

			s.mu.Lock()
			active := s.activePeerID == peerID
			s.mu.Unlock()
			if !active {
				s.logger.Debug().Int("peer_id", peerID).Msg("History page landed for an inactive conversation")
				return
			}
			hint := HintPrepend
			if initial {
				hint = HintReplace
			}
			s.notifier.MessagesChanged(peerID, hint, inserted)
		})
	}()
}

// Send sends content to the active peer. Validation and the durable write run
// on the caller's goroutine so a slow persistence call never stalls the event
// loop.
func (s *Session) Send(ctx context.Context, content string) *errs.CustomError {
	s.mu.Lock()
	peerID := s.activePeerID
	nickname := s.activeNickname
	s.mu.Unlock()

	if peerID == 0 {
		return errs.NewError(errs.ErrNoActiveConversation)
	}
	if s.cfg.RequirePeerOnline && !s.presence.IsOnline(nickname) {
		return errs.NewError(errs.ErrPeerOffline)
	}

	if _, cerr := s.engine.Send(ctx, peerID, content); cerr != nil {
		return cerr
	}

	s.post(func() {
		s.notifier.MessagesChanged(peerID, HintAppend, 1)
		s.notifyPeerList()
	})
	return nil
}

// Logout invalidates the server session and resets all local state. The local
// teardown happens regardless of whether the collaborator call succeeds.
func (s *Session) Logout(ctx context.Context) {
	s.link.Disconnect()
	s.persistence.Logout(ctx)
	cerr := s.call(func() *errs.CustomError {
		s.store.Clear()
		s.presence.Clear()
		s.mu.Lock()
		s.activePeerID = 0
		s.activeNickname = ""
		s.roster = nil
		s.mu.Unlock()
		s.recomputeUnread()
		s.notifyPeerList()
		return nil
	})
	if cerr != nil {
		s.logger.Warn().Msg("Logout teardown skipped; session already stopping")
	}
}

// Peers returns the sidebar listing: conversation activity merged with the
// roster and live presence.
func (s *Session) Peers() []convo.Peer {
	s.mu.Lock()
	roster := s.roster
	s.mu.Unlock()
	return s.store.Peers(roster, s.presence.IsOnline)
}

// ActiveMessages returns the active conversation's messages, oldest first.
func (s *Session) ActiveMessages() []convo.Message {
	s.mu.Lock()
	peerID := s.activePeerID
	s.mu.Unlock()
	if peerID == 0 {
		return nil
	}
	return s.store.Messages(peerID)
}

// UnreadTotal returns the current cross-conversation unread total.
func (s *Session) UnreadTotal() int {
	return s.unread.Total()
}

// handleFrame dispatches one decoded inbound frame. Runs on the event loop.
func (s *Session) handleFrame(frame wire.Frame) {
	switch frame.Kind {
	case wire.KindPrivateMessage:
		s.mu.Lock()
		activePeerID := s.activePeerID
		s.mu.Unlock()

		peerID, appended := s.engine.Receive(frame, activePeerID)
		if !appended {
			return
		}
		if peerID == activePeerID {
			s.notifier.MessagesChanged(peerID, HintAppend, 1)
			go func() {
				if cerr := s.persistence.MarkRead(context.Background(), peerID); cerr != nil {
					s.logger.Warn().Int("peer_id", peerID).Msg("Durable read mark failed")
				}
			}()
		}
		s.recomputeUnread()
		s.notifyPeerList()

	case wire.KindMessageFromMe:
		peerID, appended := s.engine.Echo(frame)
		if !appended {
			return
		}
		s.mu.Lock()
		active := s.activePeerID == peerID
		s.mu.Unlock()
		if active {
			s.notifier.MessagesChanged(peerID, HintAppend, 1)
		}
		s.notifyPeerList()

	case wire.KindMessageDelivered:
		if s.engine.Delivered(frame) {
			s.notifyActiveReplace()
		}

	case wire.KindMessageFailed:
		if s.engine.Failed(frame) {
			s.notifyActiveReplace()
			s.notifier.Notify("Message could not be delivered.")
		}

	case wire.KindOnlineUsers:
		s.presence.ApplySnapshot(frame.Nicknames)
		s.notifyPeerList()

	case wire.KindUserOnline, wire.KindUserOffline, wire.KindUserJoined, wire.KindUserLeft:
		online := frame.Kind == wire.KindUserOnline || frame.Kind == wire.KindUserJoined
		if !s.presence.ApplyDelta(frame.Nickname, online) {
			return
		}
		s.notifyPeerList()
		if online {
			s.maybeAnnouncePresence(frame.Nickname)
		}

	default:
		s.logger.Debug().Str("kind", string(frame.Kind)).Msg("Ignoring frame of unknown kind")
	}
}

// maybeAnnouncePresence posts a transient notice for an offline-to-online
// transition. Going offline is reflected in the peer list only. Notices are
// suppressed for the user's own sessions and while the overlay already shows
// live presence.
func (s *Session) maybeAnnouncePresence(nickname string) {
	if nickname == s.self.Nickname {
		return
	}
	s.mu.Lock()
	suppressed := s.overlayOpen
	s.mu.Unlock()
	if suppressed {
		return
	}
	s.notifier.Notify(fmt.Sprintf("%s is online", nickname))
}

// handleStatus reacts to a connection status transition. A fresh link means
// state may have drifted while offline, so the roster and summaries refresh.
// Runs on the event loop.
func (s *Session) handleStatus(status conn.Status) {
	s.notifier.StatusChanged(status)

	switch status {
	case conn.StatusConnected:
		s.refreshRoster()
		s.refreshSummaries()
	case conn.StatusError:
		s.notifier.Notify("Connection error. Retrying...")
	}
}

// refreshRoster fetches the registered-user roster. Runs on the event loop;
// the fetch itself does not.
func (s *Session) refreshRoster() {
	go func() {
		users, cerr := s.persistence.Users(context.Background())
		if cerr != nil {
			s.logger.Warn().Int("code", cerr.Code).Msg("Roster refresh failed")
			return
		}
		s.post(func() {
			s.mu.Lock()
			s.roster = users
			s.mu.Unlock()
			s.notifyPeerList()
		})
	}()
}

// refreshSummaries reconciles local conversation state against the durable
// summaries. Newer local state wins per conversation; the unread total follows
// the merged result.
func (s *Session) refreshSummaries() {
	go func() {
		summaries, cerr := s.persistence.Conversations(context.Background(), 50)
		if cerr != nil {
			s.logger.Warn().Int("code", cerr.Code).Msg("Summary refresh failed")
			return
		}
		s.post(func() {
			s.store.ApplySummaries(summaries)
			s.recomputeUnread()
			s.notifyPeerList()
		})
	}()
}

// recomputeUnread recalculates the unread total and notifies when it moved.
// Runs on the event loop.
func (s *Session) recomputeUnread() {
	if total, changed := s.unread.Recompute(s.store.Summaries()); changed {
		s.notifier.UnreadTotalChanged(total)
	}
}

func (s *Session) notifyPeerList() {
	s.notifier.PeerListChanged(s.Peers())
}

func (s *Session) notifyActiveReplace() {
	s.mu.Lock()
	peerID := s.activePeerID
	s.mu.Unlock()
	if peerID != 0 {
		s.notifier.MessagesChanged(peerID, HintReplace, 0)
	}
}
