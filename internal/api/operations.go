/*
This file defines the operation methods on Client, one per collaborator
endpoint. Each method maps transport and status failures onto the error taxonomy
for its flow; callers never interpret HTTP statuses themselves.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"forumchat/internal/app/convo"
	"forumchat/internal/app/user"
	"forumchat/internal/pkg/auth/jwt"
	"forumchat/internal/pkg/errs"
)

// Identity is the authenticated principal established by Login or recovered by
// SessionStatus. ExpiresAt is zero when the collaborator issued no token.
type Identity struct {
	User      user.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account. A 409 means the nickname or email is taken.
func (c *Client) Register(ctx context.Context, nickname, email, password string) *errs.CustomError {
	body := map[string]string{
		"nickname": nickname,
		"email":    email,
		"password": password,
	}

	status, cerr := c.doJSON(ctx, http.MethodPost, "/register", body, nil)
	if cerr != nil {
		return cerr
	}

	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusConflict:
		return errs.NewError(errs.ErrUserAlreadyExists)
	default:
		c.logger.Warn().Int("status", status).Msg("Registration rejected")
		return errs.NewError(errs.ErrUnknown).WithStatus(status)
	}
}

// Login authenticates with a nickname-or-email identifier. On success the
// session cookie lands in the jar and the identity token's claims yield the
// user id and nickname without a second round trip.
func (c *Client) Login(ctx context.Context, identifier, password string) (Identity, *errs.CustomError) {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var res struct {
		Token string  `json:"token"`
		User  userDTO `json:"user"`
	}

	status, cerr := c.doJSON(ctx, http.MethodPost, "/login", body, &res)
	if cerr != nil {
		return Identity{}, cerr
	}

	switch {
	case status >= 200 && status < 300:
	case status == http.StatusUnauthorized:
		return Identity{}, errs.NewError(errs.ErrInvalidCredentials)
	default:
		c.logger.Warn().Int("status", status).Msg("Login rejected")
		return Identity{}, errs.NewError(errs.ErrUnknown).WithStatus(status)
	}

	ident := Identity{User: res.User.toUser(), Token: res.Token}
	if res.Token != "" {
		payload, err := jwt.DecodeIdentity(res.Token)
		if err != nil {
			c.logger.Error().Err(err).Msg("Login token carried no usable identity claims")
			return Identity{}, errs.NewError(errs.ErrUnauthorized)
		}
		ident.User = user.User{ID: payload.UserID, Nickname: payload.Nickname}
		ident.ExpiresAt = payload.ExpiresAt()
	}
	if ident.User.ID == 0 {
		return Identity{}, errs.NewError(errs.ErrUnauthorized)
	}

	return ident, nil
}

// Logout invalidates the server-side session. Failures are logged and ignored;
// local teardown proceeds regardless.
func (c *Client) Logout(ctx context.Context) {
	status, cerr := c.doJSON(ctx, http.MethodPost, "/logout", nil, nil)
	if cerr != nil || status >= 300 {
		c.logger.Warn().Int("status", status).Msg("Logout call failed, discarding session locally")
	}
}

// SessionStatus reports whether the session cookie still authenticates, and if
// so, as whom.
func (c *Client) SessionStatus(ctx context.Context) (Identity, bool, *errs.CustomError) {
	var res struct {
		IsAuthenticated bool    `json:"isAuthenticated"`
		Authenticated   bool    `json:"authenticated"`
		User            userDTO `json:"user"`
	}

	status, cerr := c.doJSON(ctx, http.MethodGet, "/api/auth/status", nil, &res)
	if cerr != nil {
		return Identity{}, false, cerr
	}
	if status == http.StatusUnauthorized {
		return Identity{}, false, nil
	}
	if status >= 300 {
		return Identity{}, false, errs.NewError(errs.ErrUnknown).WithStatus(status)
	}

	if !res.IsAuthenticated && !res.Authenticated {
		return Identity{}, false, nil
	}
	return Identity{User: res.User.toUser()}, true, nil
}

// Users fetches the registered-user roster, excluding the caller.
func (c *Client) Users(ctx context.Context) ([]user.User, *errs.CustomError) {
	var res struct {
		Users []userDTO `json:"users"`
	}

	status, cerr := c.doJSON(ctx, http.MethodGet, "/api/users", nil, &res)
	if cerr != nil {
		return nil, errs.NewError(errs.ErrRosterLoadFailed)
	}
	if cerr := c.checkAuthed(status, errs.ErrRosterLoadFailed); cerr != nil {
		return nil, cerr
	}

	users := make([]user.User, 0, len(res.Users))
	for _, d := range res.Users {
		users = append(users, d.toUser())
	}
	return users, nil
}

// Conversations fetches summaries of the caller's most recent conversations.
func (c *Client) Conversations(ctx context.Context, limit int) ([]convo.Summary, *errs.CustomError) {
	path := fmt.Sprintf("/api/conversations?limit=%d", limit)

	var res struct {
		Conversations []conversationDTO `json:"conversations"`
	}

	status, cerr := c.doJSON(ctx, http.MethodGet, path, nil, &res)
	if cerr != nil {
		return nil, errs.NewError(errs.ErrSummaryLoadFailed)
	}
	if cerr := c.checkAuthed(status, errs.ErrSummaryLoadFailed); cerr != nil {
		return nil, cerr
	}

	summaries := make([]convo.Summary, 0, len(res.Conversations))
	for _, d := range res.Conversations {
		summaries = append(summaries, d.toSummary())
	}
	return summaries, nil
}

// Messages fetches one history page of the conversation with peerID, newest
// first from offset. Viewing history marks the page read on the collaborator
// side, so a successful call also implies a durable read mark.
func (c *Client) Messages(ctx context.Context, peerID, limit, offset int) ([]convo.Message, *errs.CustomError) {
	q := url.Values{}
	q.Set("user_id", fmt.Sprintf("%d", peerID))
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))

	var res struct {
		Messages []messageDTO `json:"messages"`
	}

	status, cerr := c.doJSON(ctx, http.MethodGet, "/api/messages?"+q.Encode(), nil, &res)
	if cerr != nil {
		return nil, errs.NewError(errs.ErrHistoryLoadFailed)
	}
	if cerr := c.checkAuthed(status, errs.ErrHistoryLoadFailed); cerr != nil {
		return nil, cerr
	}

	messages := make([]convo.Message, 0, len(res.Messages))
	for _, d := range res.Messages {
		messages = append(messages, d.toMessage())
	}
	return messages, nil
}

// SendMessage performs the durable write of an outgoing message. The returned
// message carries the server-assigned id and timestamp.
func (c *Client) SendMessage(ctx context.Context, receiverID int, content string) (convo.Message, *errs.CustomError) {
	body := map[string]any{
		"receiver_id": receiverID,
		"content":     content,
	}

	var res struct {
		Message messageDTO `json:"message"`
		// flat shape, older collaborator versions
		messageDTO
	}

	status, cerr := c.doJSON(ctx, http.MethodPost, "/api/messages/send", body, &res)
	if cerr != nil {
		return convo.Message{}, cerr
	}
	if status == http.StatusUnauthorized {
		return convo.Message{}, errs.NewError(errs.ErrSessionExpired)
	}
	if status >= 300 {
		c.logger.Warn().Int("status", status).Int("receiver_id", receiverID).Msg("Durable write rejected")
		return convo.Message{}, errs.NewError(errs.ErrSendRejected).WithStatus(status)
	}

	m := res.Message.toMessage()
	if m.ID == 0 {
		m = res.messageDTO.toMessage()
	}
	if m.ReceiverID == 0 {
		m.ReceiverID = receiverID
	}
	if m.Content == "" {
		m.Content = content
	}
	return m, nil
}

// MarkRead durably marks the conversation with peerID as read.
func (c *Client) MarkRead(ctx context.Context, peerID int) *errs.CustomError {
	body := map[string]int{"user_id": peerID}

	status, cerr := c.doJSON(ctx, http.MethodPost, "/api/messages/read", body, nil)
	if cerr != nil {
		return errs.NewError(errs.ErrMarkReadFailed)
	}
	if status >= 300 {
		return errs.NewError(errs.ErrMarkReadFailed).WithStatus(status)
	}
	return nil
}

// UnreadCount fetches the total unread count across all conversations. Used as
// a cheap reconciliation check between full summary refreshes.
func (c *Client) UnreadCount(ctx context.Context) (int, *errs.CustomError) {
	var res struct {
		Count int `json:"count"`
		Total int `json:"unread_count"`
	}

	status, cerr := c.doJSON(ctx, http.MethodGet, "/api/messages/unread", nil, &res)
	if cerr != nil {
		return 0, errs.NewError(errs.ErrSummaryLoadFailed)
	}
	if cerr := c.checkAuthed(status, errs.ErrSummaryLoadFailed); cerr != nil {
		return 0, cerr
	}
	return firstNonZero(res.Count, res.Total), nil
}

// checkAuthed maps an endpoint status onto the flow's load error, treating 401
// as session expiry.
func (c *Client) checkAuthed(status int, code int) *errs.CustomError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return errs.NewError(errs.ErrSessionExpired)
	default:
		return errs.NewError(code).WithStatus(status)
	}
}
