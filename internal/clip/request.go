// Package clip orchestrates one clip request end to end: range validation,
// scratch workspace, stream resolution, subprocess trimming, and delivery.
package clip

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NikitosKh/clipbot/internal/timefmt"
)

// ErrInvalidRange reports an end timestamp at or before the start.
var ErrInvalidRange = errors.New("end must be after start")

// Request is one validated clip command. Immutable once constructed;
// lives for a single command invocation.
type Request struct {
	ID           string
	SourceURL    string
	StartSeconds int
	EndSeconds   int
}

// NewRequest converts raw command tokens into a validated request.
// Both timestamps must parse and the range must be non-empty.
func NewRequest(sourceURL, start, end string) (Request, error) {
	s0, err := timefmt.ParseSeconds(start)
	if err != nil {
		return Request{}, err
	}
	s1, err := timefmt.ParseSeconds(end)
	if err != nil {
		return Request{}, err
	}
	if s1 <= s0 {
		return Request{}, fmt.Errorf("%w: got [%s, %s]", ErrInvalidRange, start, end)
	}
	return Request{
		ID:           uuid.NewString(),
		SourceURL:    sourceURL,
		StartSeconds: s0,
		EndSeconds:   s1,
	}, nil
}

// DurationSeconds is the length of the requested clip.
func (r Request) DurationSeconds() int {
	return r.EndSeconds - r.StartSeconds
}
