package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMedia is reported when a source is resolved with no media loaded.
	ErrNoMedia = errors.New("no media loaded")

	// ErrNoStream is returned by ResolveFirst when every source and embed failed.
	ErrNoStream = errors.New("no source produced a stream")
)

// ResolutionError is a rejected source scrape.
type ResolutionError struct {
	SourceID string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving source %s: %v", e.SourceID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// EmbedResolutionError is a rejected embed scrape.
type EmbedResolutionError struct {
	SourceID string
	EmbedID  string
	Err      error
}

func (e *EmbedResolutionError) Error() string {
	return fmt.Sprintf("resolving embed %s from %s: %v", e.EmbedID, e.SourceID, e.Err)
}

func (e *EmbedResolutionError) Unwrap() error { return e.Err }
