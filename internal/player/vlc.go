package player

import (
	"context"
	"fmt"
	"os/exec"

	"reel/internal/state"
)

// VLC implements the Player interface for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool {
	_, err := exec.LookPath("vlc")
	return err == nil
}

// Play launches VLC. VLC has no position tracking, so the returned
// progress is zero.
func (v *VLC) Play(ctx context.Context, req Request) (state.Progress, error) {
	return state.Progress{}, run(ctx, "vlc", vlcArgs(req))
}

func vlcArgs(req Request) []string {
	args := []string{
		req.Source.URL,
		"--meta-title", req.Title,
		"--play-and-exit",
	}

	if ref, ok := req.Source.Headers["Referer"]; ok {
		args = append(args, "--http-referrer="+ref)
	}
	if ua, ok := req.Source.Headers["User-Agent"]; ok {
		args = append(args, "--http-user-agent="+ua)
	}

	if req.StartAt > 0 {
		args = append(args, fmt.Sprintf("--start-time=%.0f", req.StartAt))
	}

	if sub := subtitleArg(req); sub != "" {
		args = append(args, "--sub-file", sub)
	}
	return args
}
