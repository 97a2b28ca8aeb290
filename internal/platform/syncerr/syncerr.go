package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Sentinel errors for sync failures that carry no extra data.
var (
	ErrSourceNotFound     = errors.New("source not found")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrNetworkTimeout     = errors.New("network timeout")
	ErrInvalidResponse    = errors.New("invalid response")
)

// RateLimitedError is a normal outcome of syncing a source too soon,
// not a fault. RetryAfter says how long until the next attempt is allowed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// ServerError is an upstream HTTP 5xx.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d)", e.StatusCode)
}

// ClassifyTransport maps raw transport errors onto the sync taxonomy.
// Anything unrecognized is treated as an invalid response.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
}

// UserMessage is the three-tier user-facing rendering of a sync failure:
// a short description, the underlying reason, and a recovery suggestion
// a UI layer can show inline.
type UserMessage struct {
	Description        string `json:"description"`
	FailureReason      string `json:"failure_reason"`
	RecoverySuggestion string `json:"recovery_suggestion"`
}

func MessageFor(err error) UserMessage {
	var rl *RateLimitedError
	var se *ServerError
	switch {
	case errors.Is(err, ErrSourceNotFound):
		return UserMessage{
			Description:        "Store not found",
			FailureReason:      "The store you tried to sync no longer exists.",
			RecoverySuggestion: "Refresh your store list and try again.",
		}
	case errors.As(err, &rl):
		return UserMessage{
			Description:        "Synced too recently",
			FailureReason:      fmt.Sprintf("This store was synced less than a minute ago; next sync allowed in %s.", rl.RetryAfter.Round(time.Second)),
			RecoverySuggestion: "Wait a moment before syncing again.",
		}
	case errors.Is(err, ErrNetworkUnavailable):
		return UserMessage{
			Description:        "No connection",
			FailureReason:      "The store could not be reached over the network.",
			RecoverySuggestion: "Check your internet connection and retry.",
		}
	case errors.Is(err, ErrNetworkTimeout):
		return UserMessage{
			Description:        "Store timed out",
			FailureReason:      "The store took too long to respond.",
			RecoverySuggestion: "The store may be under load; try again in a few minutes.",
		}
	case errors.As(err, &se):
		return UserMessage{
			Description:        "Store unavailable",
			FailureReason:      fmt.Sprintf("The store returned a server error (HTTP %d).", se.StatusCode),
			RecoverySuggestion: "This is usually temporary; try again later.",
		}
	default:
		return UserMessage{
			Description:        "Unexpected response",
			FailureReason:      "The store returned data this app could not understand.",
			RecoverySuggestion: "Verify the store URL still serves a product feed.",
		}
	}
}
