/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific failure classes of the chat
client: transport, persistence API, wire protocol, and session/send business errors.
*/
package errs

// 1xxx: Transport Errors
const (
	// ErrNotConnected indicates an attempt to write a frame while the transport is not connected.
	ErrNotConnected = 1001

	// ErrConnectInProgress indicates a second connection attempt while one is already in flight.
	ErrConnectInProgress = 1002

	// ErrConnectFailed indicates that the WebSocket open handshake failed.
	ErrConnectFailed = 1003

	// ErrReconnectExhausted indicates the reconnect attempt ceiling was reached.
	ErrReconnectExhausted = 1004

	// ErrSendRateLimited indicates that the outbound send rate for a peer was exceeded.
	ErrSendRateLimited = 1005
)

// 2xxx: Persistence API Errors
const (
	// ErrPersistenceUnavailable indicates the persistence API could not be reached at all.
	ErrPersistenceUnavailable = 2001

	// ErrSendRejected indicates the durable write for an outbound message was rejected.
	ErrSendRejected = 2101

	// ErrHistoryLoadFailed indicates a message history page could not be loaded.
	ErrHistoryLoadFailed = 2102

	// ErrRosterLoadFailed indicates the registered-user roster could not be loaded.
	ErrRosterLoadFailed = 2103

	// ErrSummaryLoadFailed indicates the conversation summary list could not be loaded.
	ErrSummaryLoadFailed = 2104

	// ErrMarkReadFailed indicates the mark-read call for a peer failed.
	ErrMarkReadFailed = 2105
)

// 3xxx: Wire Protocol Errors
const (
	// ErrMalformedFrame indicates an inbound frame that could not be decoded.
	ErrMalformedFrame = 3001

	// ErrUnknownFrameKind indicates an inbound frame of a kind this client does not handle.
	ErrUnknownFrameKind = 3002
)

// 4xxx: Session and Send Business Errors
const (
	// ErrUnauthorized indicates the session cookie or token is missing or no longer valid.
	ErrUnauthorized = 4001

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = 4002

	// ErrUserAlreadyExists indicates a registration conflict on nickname or email.
	ErrUserAlreadyExists = 4003

	// ErrSessionExpired indicates the identity token passed its expiry.
	ErrSessionExpired = 4004

	// ErrNoActiveConversation indicates a send without a selected peer.
	ErrNoActiveConversation = 4101

	// ErrPeerOffline indicates a send to a peer that is offline while the
	// online-peer send policy is enforced.
	ErrPeerOffline = 4102

	// ErrMessageEmpty indicates a send with no content after trimming.
	ErrMessageEmpty = 4103

	// ErrMessageContentTooLong indicates the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 4104
)

// 5xxx: Internal Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000
)
