package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyTransport(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"deadline exceeded", context.DeadlineExceeded, ErrNetworkTimeout},
		{"net timeout", timeoutErr{}, ErrNetworkTimeout},
		{"wrapped net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, ErrNetworkTimeout},
		{"url error without timeout", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, ErrNetworkUnavailable},
		{"anything else", errors.New("mystery"), ErrInvalidResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyTransport(tc.in)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("want nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClassifyTransportPreservesCause(t *testing.T) {
	cause := &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}
	got := ClassifyTransport(cause)
	if got == nil || got.Error() == ErrNetworkUnavailable.Error() {
		t.Fatalf("classified error should carry the original detail: %v", got)
	}
}

func TestMessageForCoversTaxonomy(t *testing.T) {
	cases := []struct {
		name     string
		in       error
		wantDesc string
	}{
		{"not found", ErrSourceNotFound, "Store not found"},
		{"rate limited", &RateLimitedError{RetryAfter: 42 * time.Second}, "Synced too recently"},
		{"unavailable", fmt.Errorf("wrap: %w", ErrNetworkUnavailable), "No connection"},
		{"timeout", ErrNetworkTimeout, "Store timed out"},
		{"server error", &ServerError{StatusCode: 503}, "Store unavailable"},
		{"invalid response", ErrInvalidResponse, "Unexpected response"},
		{"unknown", errors.New("mystery"), "Unexpected response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := MessageFor(tc.in)
			if msg.Description != tc.wantDesc {
				t.Fatalf("description: want=%q got=%q", tc.wantDesc, msg.Description)
			}
			if msg.FailureReason == "" || msg.RecoverySuggestion == "" {
				t.Fatalf("all three tiers must be filled: %+v", msg)
			}
		})
	}
}

func TestRateLimitedErrorMentionsRetryWindow(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 42 * time.Second}
	if got := err.Error(); got != "rate limited, retry after 42s" {
		t.Fatalf("error text: %q", got)
	}
	msg := MessageFor(err)
	if want := "next sync allowed in 42s"; !strings.Contains(msg.FailureReason, want) {
		t.Fatalf("failure reason should carry the window: %q", msg.FailureReason)
	}
}
