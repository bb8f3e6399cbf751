package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FetchKind classifies a provider failure so callers can log and reason
// about it without string matching.
type FetchKind string

const (
	KindTimeout     FetchKind = "timeout"
	KindUnreachable FetchKind = "unreachable"
	KindMalformed   FetchKind = "malformed"
	KindRateLimited FetchKind = "rate_limited"
)

// FetchError is a classified failure of a single provider call.
type FetchError struct {
	Provider string
	Kind     FetchKind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify maps a transport-level error onto a FetchError. Deadline or
// net timeouts become KindTimeout, everything else KindUnreachable.
func classify(provider string, err error) *FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	return &FetchError{Provider: provider, Kind: KindUnreachable, Err: err}
}

// classifyStatus maps a non-2xx HTTP status onto a FetchError.
func classifyStatus(provider string, status int) *FetchError {
	if status == 429 {
		return &FetchError{Provider: provider, Kind: KindRateLimited, Err: fmt.Errorf("status %d", status)}
	}
	return &FetchError{Provider: provider, Kind: KindUnreachable, Err: fmt.Errorf("status %d", status)}
}

// AllFailedError reports that every stage of a fallback chain failed in a
// single polling cycle. It keeps the distinct failure kinds in chain order
// for logging; callers never branch on the individual causes.
type AllFailedError struct {
	Kinds []FetchKind
	Errs  []error
}

func (e *AllFailedError) Error() string {
	kinds := make([]string, len(e.Kinds))
	for i, kind := range e.Kinds {
		kinds[i] = string(kind)
	}
	return fmt.Sprintf("all providers failed: %s", strings.Join(kinds, ", "))
}

// HasKind reports whether any stage failed with the given kind.
func (e *AllFailedError) HasKind(kind FetchKind) bool {
	for _, k := range e.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
