/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both
internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Membership Business Logic Errors
const (
	// ErrRoomNotFound indicates that the targeted room does not exist
	// (it may have been closed between a roster read and the request).
	ErrRoomNotFound = 2101

	// ErrRoleConflict indicates that a second identity attempted to claim
	// the DJ role of a room that already has a different DJ.
	ErrRoleConflict = 2102

	// ErrRoomIDGeneration indicates that no collision-free room id could be
	// generated after the retry budget was exhausted.
	ErrRoomIDGeneration = 2103

	// ErrNotRoomDJ indicates that a participant other than the room's DJ
	// attempted a DJ-only operation such as closing the room.
	ErrNotRoomDJ = 2104
)

// 3xxx: Identity, Token, and Security Errors
const (
	// ErrUnknownClient indicates that the supplied client id was never issued
	// by the identity service (or has been forgotten).
	ErrUnknownClient = 3001

	// ErrTokenForbidden indicates a relay token request without a matching
	// membership for the (client, room, role) triple.
	ErrTokenForbidden = 3002

	// ErrRelayNotConfigured indicates that the external media relay
	// credentials are missing from the server configuration.
	ErrRelayNotConfigured = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
