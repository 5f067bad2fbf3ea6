// Package extract resolves embed URLs into playable streams by talking to
// the embed hosts directly.
package extract

import (
	"context"
	"errors"

	"reel/internal/media"
)

var (
	// ErrEncrypted is returned when the host only serves encrypted source lists.
	ErrEncrypted = errors.New("embed host returned encrypted sources")

	// ErrNoSources is returned when the host answered with an empty source list.
	ErrNoSources = errors.New("embed host returned no sources")
)

// Extractor resolves an embed URL into a playable stream.
type Extractor interface {
	Extract(ctx context.Context, embedURL string) (*media.Stream, error)
}
