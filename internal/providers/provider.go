package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"labordash/internal/model"
)

var (
	// ErrTransport covers failures to reach the upstream at all: timeouts,
	// DNS, refused connections, truncated bodies.
	ErrTransport = errors.New("providers: transport failure")
	// ErrUpstreamRejected means the upstream answered but returned no usable
	// data.
	ErrUpstreamRejected = errors.New("providers: upstream rejected request")
)

type Provider interface {
	Name() string
	FetchSeries(ctx context.Context, seriesIDs []string, startYear, endYear int) ([]model.RawObservation, error)
}

// RejectedError keeps the raw upstream payload for diagnostics.
type RejectedError struct {
	Provider string
	Status   int
	Messages []string
	Payload  []byte
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("%s: upstream rejected request (status %d)", e.Provider, e.Status)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}

// TransportError wraps err so that it matches ErrTransport while keeping the
// original cause reachable through errors.Is/As.
func TransportError(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrTransport, err)
}
