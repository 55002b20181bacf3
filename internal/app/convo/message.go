/*
Package convo maintains the per-peer conversation caches behind the messaging overlay.

This file defines the Message, Summary, and Peer types shared across the engine.
*/
package convo

import "time"

// Message is one entry in a conversation cache.
//
// Identity: a locally originated message always carries a TempID. Its server ID
// is assigned by the durable write when the persistence response includes one,
// or by the later delivery acknowledgement otherwise; either way the temp id is
// retained so repeated acknowledgements and realtime echoes match idempotently.
// A message the server originated carries only an ID and no TempID.
type Message struct {
	// ID is the server-assigned message id, zero until known.
	ID int `json:"id,omitempty"`

	// TempID is the locally generated id of an optimistic message, empty for
	// messages that arrived from the server.
	TempID string `json:"temp_id,omitempty"`

	SenderID   int       `json:"sender_id"`
	ReceiverID int       `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`

	// Delivered records whether the server acknowledged delivery.
	Delivered bool `json:"delivered"`

	// Failed marks the entry after a message_failed frame named its peer.
	Failed bool `json:"failed,omitempty"`
}

// Summary is the per-peer conversation digest: what the conversation list renders
// and what the unread aggregator sums over. The same shape is loaded from the
// persistence collaborator's conversation-summary endpoint.
type Summary struct {
	PeerID       int       `json:"user_id"`
	Nickname     string    `json:"nickname"`
	Unread       int       `json:"unread_count"`
	LastMessage  string    `json:"last_message"`
	LastActivity time.Time `json:"last_message_time"`
}

// Peer is one row of the derived peer list: the registered-user roster joined with
// the presence set and the conversation state. It is recomputed on demand and
// never stored.
type Peer struct {
	ID           int
	Nickname     string
	Online       bool
	Unread       int
	LastMessage  string
	LastActivity time.Time // zero when the peer has no conversation activity
}
