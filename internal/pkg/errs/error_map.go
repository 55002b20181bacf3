/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
error reporting across the engine and toward the rendering collaborator.
*/
package errs

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user-facing message.
var errorMap = map[int]CustomError{
	// 1xxx: Transport Errors
	ErrNotConnected:       {Code: ErrNotConnected, Message: "Not connected. Message not sent."},
	ErrConnectInProgress:  {Code: ErrConnectInProgress, Message: "Connection already in progress."},
	ErrConnectFailed:      {Code: ErrConnectFailed, Message: "Could not connect to the chat server."},
	ErrReconnectExhausted: {Code: ErrReconnectExhausted, Message: "Connection lost. Please sign in again."},
	ErrSendRateLimited:    {Code: ErrSendRateLimited, Message: "You are sending messages too quickly."},

	// 2xxx: Persistence API Errors
	ErrPersistenceUnavailable: {Code: ErrPersistenceUnavailable, Message: "The server is unreachable. Please try again."},
	ErrSendRejected:           {Code: ErrSendRejected, Message: "Your message could not be sent."},
	ErrHistoryLoadFailed:      {Code: ErrHistoryLoadFailed, Message: "Could not load older messages."},
	ErrRosterLoadFailed:       {Code: ErrRosterLoadFailed, Message: "Could not load the user list."},
	ErrSummaryLoadFailed:      {Code: ErrSummaryLoadFailed, Message: "Could not load conversations."},
	ErrMarkReadFailed:         {Code: ErrMarkReadFailed, Message: "Could not update read state."},

	// 3xxx: Wire Protocol Errors
	ErrMalformedFrame:   {Code: ErrMalformedFrame, Message: "Received an unreadable message from the server."},
	ErrUnknownFrameKind: {Code: ErrUnknownFrameKind, Message: "Received an unsupported message kind: %s."},

	// 4xxx: Session and Send Business Errors
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Please sign in to continue."},
	ErrInvalidCredentials:    {Code: ErrInvalidCredentials, Message: "Incorrect nickname/email or password."},
	ErrUserAlreadyExists:     {Code: ErrUserAlreadyExists, Message: "Nickname or email is already taken."},
	ErrSessionExpired:        {Code: ErrSessionExpired, Message: "Your session has expired. Please sign in again."},
	ErrNoActiveConversation:  {Code: ErrNoActiveConversation, Message: "Select a conversation first."},
	ErrPeerOffline:           {Code: ErrPeerOffline, Message: "This user is offline and cannot receive messages right now."},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Cannot send an empty message."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 5xxx: Internal Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again."},
}
