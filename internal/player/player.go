// Package player launches external media players. Every invocation uses
// exec.CommandContext with an explicit argument slice; nothing passes
// through a shell.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"reel/internal/log"
	"reel/internal/state"
)

// ErrNoSource is returned when nothing has been committed to play.
var ErrNoSource = errors.New("no source committed")

// Request describes one playback.
type Request struct {
	Source  state.Source
	Title   string
	StartAt float64
	SubFile string // local subtitle file; empty uses the stream's tracks
}

// Player is the interface for media player implementations.
type Player interface {
	// Play blocks until the player exits and returns the last position it saw.
	Play(ctx context.Context, req Request) (state.Progress, error)

	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// New creates a player by name.
func New(name string) Player {
	switch name {
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: name}
	default:
		return &MPV{}
	}
}

// Store is the part of the player state that playback reads and updates.
type Store interface {
	Snapshot() state.Snapshot
	SetProgress(p state.Progress)
}

// PlayCommitted plays the source committed to store, starting at the
// stored position, and writes the final position back.
func PlayCommitted(ctx context.Context, p Player, store Store, title, subFile string) (state.Progress, error) {
	snap := store.Snapshot()
	src, ok := snap.Source.Get()
	if !ok {
		return state.Progress{}, ErrNoSource
	}

	entry := log.With("player").WithField("player", p.Name())
	entry.WithField("start", snap.Progress.Time).Info("starting playback")

	progress, err := p.Play(ctx, Request{
		Source:  src,
		Title:   title,
		StartAt: snap.Progress.Time,
		SubFile: subFile,
	})
	if err != nil {
		return state.Progress{}, fmt.Errorf("playback failed: %w", err)
	}

	// Players without position tracking report zero; keep the old position.
	if progress.Time > 0 {
		store.SetProgress(progress)
	}
	entry.WithField("position", progress.Time).Info("playback ended")
	return store.Snapshot().Progress, nil
}

// sortedHeaders returns "Key: Value" pairs in key order.
func sortedHeaders(h map[string]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + ": " + h[k]
	}
	return out
}

// subtitleArg picks the local file, else the first remote track.
func subtitleArg(req Request) string {
	if req.SubFile != "" {
		return req.SubFile
	}
	for _, sub := range req.Source.Subtitles {
		if sub.URL != "" {
			return sub.URL
		}
	}
	return ""
}

// run starts the player attached to the terminal. A non-zero exit is how
// most players report a user quit and is not an error.
func run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}
