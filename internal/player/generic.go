package player

import (
	"context"
	"os/exec"

	"reel/internal/state"
)

// Generic implements the Player interface for players like iina and celluloid
// that accept mpv-compatible arguments.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool {
	_, err := exec.LookPath(g.name)
	return err == nil
}

// Play launches the generic player. Position tracking is not supported.
func (g *Generic) Play(ctx context.Context, req Request) (state.Progress, error) {
	return state.Progress{}, run(ctx, g.name, mpvStyleArgs(req))
}
