/*
This file defines the collaborator's response shapes and their normalization
into the engine's canonical types. The collaborator has emitted both snake_case
and camelCase field names across versions; both spellings are accepted here so
the rest of the codebase only ever sees one.
*/
package api

import (
	"time"

	"forumchat/internal/app/convo"
	"forumchat/internal/app/user"
)

// messageDTO is one history or send-response message.
type messageDTO struct {
	ID          int    `json:"id"`
	MessageID   int    `json:"message_id"`
	SenderID    int    `json:"sender_id"`
	SenderAlt   int    `json:"senderId"`
	ReceiverID  int    `json:"receiver_id"`
	ReceiverAlt int    `json:"receiverId"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
	CreatedAlt  string `json:"createdAt"`
}

// toMessage converts a DTO into a canonical Message. A history message from the
// durable store is delivered by definition.
func (d messageDTO) toMessage() convo.Message {
	return convo.Message{
		ID:         firstNonZero(d.ID, d.MessageID),
		SenderID:   firstNonZero(d.SenderID, d.SenderAlt),
		ReceiverID: firstNonZero(d.ReceiverID, d.ReceiverAlt),
		Content:    d.Content,
		CreatedAt:  parseTime(firstNonEmpty(d.CreatedAt, d.CreatedAlt)),
		Delivered:  true,
	}
}

// conversationDTO is one row of the conversation summary listing.
type conversationDTO struct {
	UserID          int    `json:"user_id"`
	Nickname        string `json:"nickname"`
	LastMessage     string `json:"last_message"`
	LastMessageTime string `json:"last_message_time"`
	UnreadCount     int    `json:"unread_count"`
}

func (d conversationDTO) toSummary() convo.Summary {
	return convo.Summary{
		PeerID:       d.UserID,
		Nickname:     d.Nickname,
		Unread:       d.UnreadCount,
		LastMessage:  d.LastMessage,
		LastActivity: parseTime(d.LastMessageTime),
	}
}

// userDTO is one roster entry.
type userDTO struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Nickname string `json:"nickname"`
	Username string `json:"username"`
}

func (d userDTO) toUser() user.User {
	return user.User{
		ID:       firstNonZero(d.ID, d.UserID),
		Nickname: firstNonEmpty(d.Nickname, d.Username),
	}
}

// parseTime accepts the RFC3339 timestamps the collaborator emits. A missing or
// unparsable timestamp falls back to zero so ordering treats it as oldest.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
