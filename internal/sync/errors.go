package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonimelisma/iptv-sync/internal/jsonstream"
	"github.com/tonimelisma/iptv-sync/internal/xtream"
)

// Sentinel errors carried by State.Err. Use errors.Is to check.
var (
	ErrNetworkFailure     = errors.New("sync: network failure")
	ErrMalformedResponse  = errors.New("sync: malformed response")
	ErrTimeout            = errors.New("sync: timed out")
	ErrPreconditionFailed = errors.New("sync: precondition failed")
	ErrNoActiveSource     = errors.New("sync: no active source")
)

// remoteError classifies an error returned by the remote catalog API.
// Transport and HTTP failures become ErrNetworkFailure; anything else the
// client produced (a body it could not decode) is ErrMalformedResponse.
// Context errors pass through unchanged.
func remoteError(what string, err error) error {
	var apiErr *xtream.APIError

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("sync: %s: %w", what, err)
	case errors.Is(err, xtream.ErrNetwork), errors.Is(err, xtream.ErrCircuitOpen), errors.As(err, &apiErr):
		return fmt.Errorf("%w: %s: %w", ErrNetworkFailure, what, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, what, err)
	}
}

// parseError classifies an error from the streaming load. A body that
// stopped arriving is ErrNetworkFailure, a body that arrived but does not
// decode is ErrMalformedResponse. Store and context errors pass through.
func parseError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, jsonstream.ErrRead), errors.Is(err, xtream.ErrNetwork):
		return fmt.Errorf("%w: reading catalog: %w", ErrNetworkFailure, err)
	case errors.Is(err, jsonstream.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	default:
		return err
	}
}
