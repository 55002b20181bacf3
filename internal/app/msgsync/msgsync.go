/*
Package msgsync runs the message synchronization flows.

Sending is durability-first: a message is written through the persistence
collaborator before it appears locally, and the realtime push afterwards is a
best-effort hint. Receiving applies realtime frames to the conversation store
with deduplication, and delivery acks mark optimistic entries delivered,
filling in the server-assigned id when the durable write did not already.
*/
package msgsync

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"forumchat/internal/app/convo"
	"forumchat/internal/app/wire"
	"forumchat/internal/pkg/errs"
	"forumchat/internal/pkg/limiter"
	"forumchat/internal/pkg/logx"
	"forumchat/internal/pkg/randx"
)

// Persister is the durable-write surface the engine needs from the persistence
// collaborator.
type Persister interface {
	SendMessage(ctx context.Context, receiverID int, content string) (convo.Message, *errs.CustomError)
}

// Pusher is the realtime-push surface the engine needs from the connection
// layer.
type Pusher interface {
	Send(payload []byte) *errs.CustomError
}

// Engine applies the send and receive flows to one user's conversation store.
type Engine struct {
	selfID    int
	maxLength int

	store     *convo.Store
	persister Persister
	pusher    Pusher
	limiter   *limiter.PeerSendLimiter

	logger zerolog.Logger
}

// NewEngine constructs an Engine for the authenticated user. maxLength bounds
// outgoing message content in runes.
func NewEngine(selfID, maxLength int, store *convo.Store, persister Persister, pusher Pusher, lim *limiter.PeerSendLimiter) *Engine {
	return &Engine{
		selfID:    selfID,
		maxLength: maxLength,
		store:     store,
		persister: persister,
		pusher:    pusher,
		limiter:   lim,
		logger:    logx.Logger().With().Str("component", "MessageSync").Logger(),
	}
}

// Send validates and durably writes an outgoing message to peerID, then
// inserts it locally as optimistic and pushes a realtime hint. A failed durable
// write leaves no local trace; a failed push is logged and ignored since the
// message is already durable.
func (e *Engine) Send(ctx context.Context, peerID int, content string) (convo.Message, *errs.CustomError) {
	content = strings.TrimSpace(content)
	if content == "" {
		return convo.Message{}, errs.NewError(errs.ErrMessageEmpty)
	}
	if len([]rune(content)) > e.maxLength {
		return convo.Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}
	if !e.limiter.Allow(peerID) {
		e.logger.Warn().Int("peer_id", peerID).Msg("Send throttled")
		return convo.Message{}, errs.NewError(errs.ErrSendRateLimited)
	}

	stored, cerr := e.persister.SendMessage(ctx, peerID, content)
	if cerr != nil {
		e.logger.Warn().Int("peer_id", peerID).Int("code", cerr.Code).Msg("Durable write failed; nothing inserted locally")
		return convo.Message{}, cerr
	}

	// The durable write already assigned the server id; the temp id still rides
	// along so the delivery ack and message_from_me echo match this entry.
	m := convo.Message{
		ID:         stored.ID,
		TempID:     randx.TempID(),
		SenderID:   e.selfID,
		ReceiverID: peerID,
		Content:    content,
		CreatedAt:  stored.CreatedAt,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	e.store.AppendOutgoing(peerID, m)

	if payload, eerr := wire.EncodePrivate(peerID, content, m.TempID); eerr == nil {
		if perr := e.pusher.Send(payload); perr != nil {
			e.logger.Warn().Int("peer_id", peerID).Msg("Realtime push skipped; message is durable")
		}
	}

	return m, nil
}

// Receive applies an inbound private_message frame. It returns the originating
// peer id and whether the message was new; a duplicate of an already-known
// message reports false. When the conversation is not the active one, a new
// message increments its unread count.
func (e *Engine) Receive(frame wire.Frame, activePeerID int) (int, bool) {
	peerID := frame.FromUserID
	if peerID == 0 {
		e.logger.Warn().Msg("Inbound message without a sender id")
		return 0, false
	}

	m := convo.Message{
		ID:         frame.MessageID,
		SenderID:   peerID,
		ReceiverID: e.selfID,
		Content:    frame.Content,
		CreatedAt:  frame.Timestamp,
		Delivered:  true,
	}

	appended := e.store.AppendIncoming(peerID, m)
	if appended && peerID != activePeerID {
		e.store.IncrementUnread(peerID)
	}
	return peerID, appended
}

// Echo applies a message_from_me frame: the same message sent from another
// session of this user. It lands in the recipient's conversation as an
// already-delivered own message, so all sessions converge.
func (e *Engine) Echo(frame wire.Frame) (int, bool) {
	peerID := frame.ToUserID
	if peerID == 0 {
		e.logger.Warn().Msg("Own-message echo without a recipient id")
		return 0, false
	}

	m := convo.Message{
		ID:         frame.MessageID,
		SenderID:   e.selfID,
		ReceiverID: peerID,
		Content:    frame.Content,
		CreatedAt:  frame.Timestamp,
		Delivered:  true,
	}

	return peerID, e.store.AppendOutgoing(peerID, m)
}

// Delivered applies a delivery ack, marking the matching optimistic entry
// delivered. An ack for an unknown message is logged and ignored.
func (e *Engine) Delivered(frame wire.Frame) bool {
	if !e.store.MarkDelivered(frame.MessageID, "") {
		e.logger.Debug().Int("message_id", frame.MessageID).Msg("Delivery ack for unknown message")
		return false
	}
	return true
}

// Failed applies a delivery failure for the conversation with the frame's
// recipient.
func (e *Engine) Failed(frame wire.Frame) bool {
	if !e.store.MarkFailed(frame.ToUserID) {
		e.logger.Debug().Int("peer_id", frame.ToUserID).Msg("Delivery failure with nothing pending")
		return false
	}
	return true
}
