package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"reel/internal/state"
)

// MPV implements the Player interface for mpv. Position is tracked over
// mpv's JSON IPC on a Unix socket in a private temp dir.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool {
	_, err := exec.LookPath("mpv")
	return err == nil
}

// Play launches mpv and returns the last position and duration it reported.
func (m *MPV) Play(ctx context.Context, req Request) (state.Progress, error) {
	// Randomized dir so the socket path cannot be pre-planted.
	socketDir, err := os.MkdirTemp("", "reel-mpv-*")
	if err != nil {
		return state.Progress{}, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	defer os.RemoveAll(socketDir)

	socketPath := filepath.Join(socketDir, "socket")
	args := append(mpvStyleArgs(req), "--input-ipc-server="+socketPath, "--really-quiet")

	cmd := exec.CommandContext(ctx, "mpv", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return state.Progress{}, fmt.Errorf("starting mpv: %w", err)
	}

	tracked := make(chan state.Progress, 1)
	go func() {
		tracked <- trackProgress(socketPath)
	}()

	// mpv exits non-zero on user quit, which is normal.
	_ = cmd.Wait()

	select {
	case p := <-tracked:
		return p, nil
	case <-time.After(2 * time.Second):
		return state.Progress{}, nil
	}
}

// mpvStyleArgs builds the arguments shared by mpv and mpv-compatible players.
func mpvStyleArgs(req Request) []string {
	args := []string{
		req.Source.URL,
		"--force-media-title=" + req.Title,
	}

	if headers := sortedHeaders(req.Source.Headers); len(headers) > 0 {
		// mpv splits this list on commas, so values containing one are escaped.
		for i, h := range headers {
			headers[i] = strings.ReplaceAll(h, ",", `\,`)
		}
		args = append(args, "--http-header-fields="+strings.Join(headers, ","))
	}

	if req.StartAt > 0 {
		args = append(args, fmt.Sprintf("--start=+%.0f", req.StartAt))
	}

	if sub := subtitleArg(req); sub != "" {
		args = append(args, "--sub-file="+sub)
	}
	return args
}

// trackProgress waits for the IPC socket, observes time-pos and duration,
// and returns the last values seen when mpv closes the connection.
func trackProgress(socketPath string) state.Progress {
	var conn net.Conn
	for i := 0; i < 50; i++ {
		c, err := net.Dial("unix", socketPath)
		if err == nil {
			conn = c
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if conn == nil {
		return state.Progress{}
	}
	defer conn.Close()

	for id, prop := range []string{"time-pos", "duration"} {
		observe := map[string]any{"command": []any{"observe_property", id + 1, prop}}
		data, _ := json.Marshal(observe)
		if _, err := conn.Write(append(data, '\n')); err != nil {
			return state.Progress{}
		}
	}
	return readProgress(conn)
}

// readProgress consumes mpv property-change events until EOF.
func readProgress(r io.Reader) state.Progress {
	var p state.Progress
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var event struct {
			Event string   `json:"event"`
			Name  string   `json:"name"`
			Data  *float64 `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil || event.Event != "property-change" || event.Data == nil {
			continue
		}
		switch event.Name {
		case "time-pos":
			if *event.Data > 0 {
				p.Time = *event.Data
			}
		case "duration":
			p.Duration = *event.Data
		}
	}
	return p
}
