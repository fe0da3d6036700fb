/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every
// application error code. The key is the error code (int), and the value
// contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Membership Business Logic Errors
	ErrRoomNotFound:     {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrRoleConflict:     {Code: ErrRoleConflict, Message: "This room already has a DJ.", Status: http.StatusConflict},
	ErrRoomIDGeneration: {Code: ErrRoomIDGeneration, Message: "Could not create a room. Please try again.", Status: http.StatusInternalServerError},
	ErrNotRoomDJ:        {Code: ErrNotRoomDJ, Message: "Only the DJ can do that.", Status: http.StatusForbidden},

	// 3xxx: Identity, Token, and Security Errors
	ErrUnknownClient:      {Code: ErrUnknownClient, Message: "Unknown client. Please refresh and try again.", Status: http.StatusBadRequest},
	ErrTokenForbidden:     {Code: ErrTokenForbidden, Message: "You are not allowed to join this room with that role.", Status: http.StatusForbidden},
	ErrRelayNotConfigured: {Code: ErrRelayNotConfigured, Message: "Audio relay is not configured on this server.", Status: http.StatusInternalServerError},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
