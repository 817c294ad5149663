package slackapi

import (
	"errors"
	"fmt"
)

// APIError is an ok=false response from the Slack Web API. Code is the string
// error code from the response envelope (e.g. "invalid_auth").
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api error: %s", e.Code)
}

// ErrorClass groups API failures by how the caller should react.
type ErrorClass int

const (
	// ErrorClassAuth indicates an invalid, revoked, or under-scoped token. Fatal to a run.
	ErrorClassAuth ErrorClass = iota
	// ErrorClassChannelNotFound indicates the target channel does not exist.
	ErrorClassChannelNotFound
	// ErrorClassNotInChannel indicates the bot is not a member of the target channel.
	ErrorClassNotInChannel
	// ErrorClassNetwork indicates a transport-level failure (no API response). Fatal to a run.
	ErrorClassNetwork
	// ErrorClassUnknown covers any other API-reported error code.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassAuth:
		return "auth"
	case ErrorClassChannelNotFound:
		return "channel_not_found"
	case ErrorClassNotInChannel:
		return "not_in_channel"
	case ErrorClassNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ClassifyError maps an error returned by a Client call onto an ErrorClass.
// Anything that is not an APIError never got a well-formed API response and is
// treated as a transport failure.
func ClassifyError(err error) ErrorClass {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ErrorClassNetwork
	}
	switch apiErr.Code {
	case "invalid_auth", "not_authed", "account_inactive", "token_revoked", "token_expired", "missing_scope":
		return ErrorClassAuth
	case "channel_not_found":
		return ErrorClassChannelNotFound
	case "not_in_channel":
		return ErrorClassNotInChannel
	default:
		return ErrorClassUnknown
	}
}
