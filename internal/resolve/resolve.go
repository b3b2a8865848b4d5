// Package resolve turns a source video URL into one direct, streamable
// media URL using an external video-info provider. Stream URLs are
// time-limited upstream, so resolution runs on every request and results
// are never cached.
package resolve

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPlayableStream reports that the provider offered neither a direct
// URL nor any mp4 format with an audio track.
var ErrNoPlayableStream = errors.New("no playable mp4 stream with audio")

// ResolutionError wraps a provider or network failure.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string { return fmt.Sprintf("resolve stream: %v", e.Err) }
func (e *ResolutionError) Unwrap() error { return e.Err }

// Format is one download candidate reported by the provider.
type Format struct {
	Ext    string `json:"ext"`
	ACodec string `json:"acodec"`
	URL    string `json:"url"`
}

// Info is the narrow slice of provider metadata the bot depends on.
// Anything else the provider emits is ignored at this boundary.
type Info struct {
	URL     string   `json:"url"`
	Formats []Format `json:"formats"`
}

// Stream is a directly fetchable media URL selected from provider metadata.
type Stream struct {
	URL      string
	Ext      string
	HasAudio bool
}

// Resolver resolves a source URL into a playable stream. Implementations
// block on network or subprocess I/O and must run off the dispatch
// goroutine.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*Stream, error)
}

// SelectStream applies the selection policy: the provider's own top-level
// URL wins; otherwise the first mp4 format carrying an audio codec. First
// match in provider order, not a quality-ranked choice.
func SelectStream(info *Info) (*Stream, error) {
	if info.URL != "" {
		return &Stream{URL: info.URL, Ext: "mp4", HasAudio: true}, nil
	}
	for _, f := range info.Formats {
		if f.Ext == "mp4" && f.URL != "" && f.ACodec != "" && f.ACodec != "none" {
			return &Stream{URL: f.URL, Ext: f.Ext, HasAudio: true}, nil
		}
	}
	return nil, ErrNoPlayableStream
}
