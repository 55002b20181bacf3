/*
Package wire implements the envelope codec for the live push channel.

Every frame on the WebSocket is a JSON object with a "type" field and
kind-specific payload fields. The server mixes snake_case and camelCase
spellings between its push path and its persistence path; this package
normalizes both spellings into one canonical Frame so neither leaks into
the rest of the engine.
*/
package wire

import (
	"encoding/json"
	"time"

	"forumchat/internal/pkg/errs"
)

// Kind identifies the type of an envelope frame.
type Kind string

// Frame kinds consumed from the server.
const (
	// KindOnlineUsers is a full presence snapshot carrying every online nickname.
	KindOnlineUsers Kind = "online_users"

	// KindUserOnline is a presence delta: a single user came online.
	KindUserOnline Kind = "user_online"

	// KindUserOffline is a presence delta: a single user went offline.
	KindUserOffline Kind = "user_offline"

	// KindUserJoined is the older spelling of the online presence delta; its
	// subject travels in "username" instead of "nickname".
	KindUserJoined Kind = "user_joined"

	// KindUserLeft is the older spelling of the offline presence delta.
	KindUserLeft Kind = "user_left"

	// KindPrivateMessage is an inbound private message pushed by the server.
	KindPrivateMessage Kind = "private_message"

	// KindMessageDelivered confirms delivery of a previously sent message.
	KindMessageDelivered Kind = "message_delivered"

	// KindMessageFailed reports that a message could not be delivered to its recipient.
	KindMessageFailed Kind = "message_failed"

	// KindMessageFromMe is the echo of a message the local identity sent from
	// a different concurrent session.
	KindMessageFromMe Kind = "message_from_me"
)

// Frame kinds produced by the client.
const (
	// KindJoin announces the local user to the messaging system after connecting.
	KindJoin Kind = "join"

	// KindLeave announces an orderly departure before disconnecting.
	KindLeave Kind = "leave"
)

// Frame is the canonical, normalized form of a decoded envelope. Which fields are
// meaningful depends on Kind; the dispatcher switches on Kind and reads only the
// fields that kind defines.
type Frame struct {
	Kind Kind

	// Nicknames carries the full snapshot for KindOnlineUsers.
	Nicknames []string

	// Nickname identifies the subject of a presence delta.
	Nickname string

	// FromUserID is the sender of a KindPrivateMessage.
	FromUserID int

	// ToUserID is the recipient referenced by KindMessageFailed and KindMessageFromMe.
	ToUserID int

	// MessageID is the server-assigned message id, when the server included one.
	MessageID int

	// Content is the message text.
	Content string

	// Timestamp is the message creation time. Frames without a parsable
	// timestamp get the local receive time.
	Timestamp time.Time
}

// envelope mirrors the raw JSON shape of an inbound frame. It lists both the
// snake_case spellings used by the push path and the camelCase spellings the
// server's persistence path leaks into echoed frames.
type envelope struct {
	Type string `json:"type"`

	// online_users: older servers serialize the nickname list into the content
	// string, newer ones send a proper array in "users".
	Users json.RawMessage `json:"users,omitempty"`

	// Presence deltas name their subject in "nickname"; the older delta kinds
	// and the join announcement use "username".
	Nickname string `json:"nickname,omitempty"`
	Username string `json:"username,omitempty"`
	Content  string `json:"content,omitempty"`

	FromUserID      int `json:"from_user_id,omitempty"`
	FromUserIDCamel int `json:"fromUserId,omitempty"`
	ToUserID        int `json:"to_user_id,omitempty"`
	ToUserIDCamel   int `json:"toUserId,omitempty"`
	MessageID       int `json:"message_id,omitempty"`
	MessageIDCamel  int `json:"messageId,omitempty"`

	Timestamp      string `json:"timestamp,omitempty"`
	CreatedAtCamel string `json:"createdAt,omitempty"`
}

// Decode parses raw frame bytes into a canonical Frame.
// Malformed JSON or a missing type field yield an ErrMalformedFrame. Unknown kinds
// are NOT an error here: the frame is returned with its kind preserved so the
// dispatcher can apply the log-and-drop protocol policy.
func Decode(data []byte) (*Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errs.NewError(errs.ErrMalformedFrame)
	}

	if env.Type == "" {
		return nil, errs.NewError(errs.ErrMalformedFrame)
	}

	frame := &Frame{
		Kind:       Kind(env.Type),
		Nickname:   firstNonEmpty(env.Nickname, env.Username),
		Content:    env.Content,
		FromUserID: firstNonZero(env.FromUserID, env.FromUserIDCamel),
		ToUserID:   firstNonZero(env.ToUserID, env.ToUserIDCamel),
		MessageID:  firstNonZero(env.MessageID, env.MessageIDCamel),
		Timestamp:  parseTimestamp(env.Timestamp, env.CreatedAtCamel),
	}

	if frame.Kind == KindOnlineUsers {
		frame.Nicknames = decodeNicknameList(env)
		frame.Content = ""
	}

	return frame, nil
}

// decodeNicknameList extracts the snapshot nickname list from either encoding:
// a JSON array in "users", or a string-encoded JSON array in "content".
func decodeNicknameList(env envelope) []string {
	var nicknames []string

	if len(env.Users) > 0 {
		if err := json.Unmarshal(env.Users, &nicknames); err == nil {
			return nicknames
		}
	}

	if env.Content != "" {
		if err := json.Unmarshal([]byte(env.Content), &nicknames); err == nil {
			return nicknames
		}
	}

	return nil
}

// parseTimestamp returns the first parsable RFC3339 timestamp among the given
// candidates, or the current time when none parses.
func parseTimestamp(candidates ...string) time.Time {
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return time.Now()
}

// firstNonZero returns the first non-zero int among its arguments.
func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// firstNonEmpty returns the first non-empty string among its arguments.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// joinEnvelope is the outbound shape of a KindJoin frame.
type joinEnvelope struct {
	Type     Kind   `json:"type"`
	Username string `json:"username"`
}

// leaveEnvelope is the outbound shape of a KindLeave frame.
type leaveEnvelope struct {
	Type Kind `json:"type"`
}

// privateEnvelope is the outbound shape of a KindPrivateMessage frame.
type privateEnvelope struct {
	Type     Kind   `json:"type"`
	ToUserID int    `json:"to_user_id"`
	Content  string `json:"content"`
	TempID   string `json:"temp_id"`
}

// EncodeJoin serializes the join announcement for the given nickname.
func EncodeJoin(username string) ([]byte, error) {
	return json.Marshal(joinEnvelope{Type: KindJoin, Username: username})
}

// EncodeLeave serializes the leave announcement.
func EncodeLeave() ([]byte, error) {
	return json.Marshal(leaveEnvelope{Type: KindLeave})
}

// EncodePrivate serializes an outbound private message. The temp id travels with
// the frame so a delivery acknowledgement can be matched back to the optimistic
// local entry even before the server id is known.
func EncodePrivate(toUserID int, content, tempID string) ([]byte, error) {
	return json.Marshal(privateEnvelope{
		Type:     KindPrivateMessage,
		ToUserID: toUserID,
		Content:  content,
		TempID:   tempID,
	})
}
