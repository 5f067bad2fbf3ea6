// Package subtitle picks subtitle tracks and downloads them into a private
// temp directory created with a random suffix.
package subtitle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"reel/internal/httputil"
	"reel/internal/media"
)

// Filter returns subtitles matching the preferred language (case-insensitive).
func Filter(subtitles []media.Subtitle, language string) []media.Subtitle {
	if language == "" {
		return subtitles
	}

	lang := strings.ToLower(language)
	return lo.Filter(subtitles, func(sub media.Subtitle, _ int) bool {
		return strings.Contains(strings.ToLower(sub.Language), lang) ||
			strings.Contains(strings.ToLower(sub.Label), lang)
	})
}

// BestMatch returns the best subtitle for language: a non-SDH match if
// there is one, else the first match.
func BestMatch(subtitles []media.Subtitle, language string) mo.Option[media.Subtitle] {
	filtered := Filter(subtitles, language)
	if len(filtered) == 0 {
		return mo.None[media.Subtitle]()
	}

	lang := strings.ToLower(language)
	if sub, ok := lo.Find(filtered, func(sub media.Subtitle) bool {
		label := strings.ToLower(sub.Label)
		return strings.Contains(label, lang) && !strings.Contains(label, "sdh")
	}); ok {
		return mo.Some(sub)
	}
	return mo.Some(filtered[0])
}

// TempDir manages a private temporary directory for subtitle files.
type TempDir struct {
	path string
}

// NewTempDir creates a randomized temporary directory for subtitle files.
func NewTempDir() (*TempDir, error) {
	dir, err := os.MkdirTemp("", "reel-subs-*")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle temp dir: %w", err)
	}
	return &TempDir{path: dir}, nil
}

// Path returns the directory.
func (t *TempDir) Path() string { return t.path }

// Cleanup removes the temporary directory and all contents.
func (t *TempDir) Cleanup() {
	if t.path != "" {
		os.RemoveAll(t.path)
	}
}

// Download fetches a subtitle into the temp directory and returns the local path.
func (t *TempDir) Download(ctx context.Context, client *http.Client, sub media.Subtitle) (string, error) {
	if err := httputil.ValidateURL(sub.URL); err != nil {
		return "", fmt.Errorf("invalid subtitle URL: %w", err)
	}

	body, err := httputil.ReadBody(ctx, client, httputil.Request{URL: sub.URL, Accept: "*/*"})
	if err != nil {
		return "", fmt.Errorf("downloading subtitle: %w", err)
	}

	localPath, err := httputil.SafeDownloadPath(t.path, fileName(sub.URL))
	if err != nil {
		return "", fmt.Errorf("invalid subtitle path: %w", err)
	}
	if err := os.WriteFile(localPath, body, 0600); err != nil {
		return "", fmt.Errorf("writing subtitle file: %w", err)
	}
	return localPath, nil
}

// fileName derives a safe local name from the subtitle URL.
func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "subtitle.vtt"
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return "subtitle.vtt"
	}
	return httputil.SanitizeFilename(base)
}

// Fetch picks the best track for language and downloads it. It returns an
// empty path when no track matches.
func Fetch(ctx context.Context, client *http.Client, dir *TempDir, subtitles []media.Subtitle, language string) (string, error) {
	sub, ok := BestMatch(subtitles, language).Get()
	if !ok {
		return "", nil
	}
	return dir.Download(ctx, client, sub)
}
