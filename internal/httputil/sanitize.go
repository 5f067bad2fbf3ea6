package httputil

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxIDLen bounds catalog and server ids.
const maxIDLen = 256

// idPattern matches catalog ids ("movie/free-heat-hd-19670") and numeric
// season, episode and server ids.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9/_-]+$`)

var errTraversal = errors.New("path traversal")

// ValidateURL accepts only absolute https URLs with a host and no userinfo.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	switch {
	case u.Scheme != "https":
		return fmt.Errorf("only HTTPS URLs are allowed, got %q", u.Scheme)
	case u.Host == "":
		return fmt.Errorf("URL has no host")
	case u.User != nil:
		return fmt.Errorf("URL must not carry credentials")
	}
	return nil
}

// ValidateID checks an id before it is spliced into a request path.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("ID cannot be empty")
	case len(id) > maxIDLen:
		return fmt.Errorf("ID too long: %d characters", len(id))
	case !idPattern.MatchString(id):
		return fmt.Errorf("ID contains invalid characters: %q", id)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w in ID %q", errTraversal, id)
	}
	return nil
}

// reserved are replaced with '_' in file names.
const reserved = `/\:*?"<>|`

// SanitizeFilename reduces name to one safe path element: directory
// components are stripped, control characters dropped and reserved
// characters replaced.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(reserved, r):
			return '_'
		}
		return r
	}, filepath.Base(name))
	name = strings.ReplaceAll(name, "..", "_")

	if name == "" || name == "." {
		return "untitled"
	}
	return name
}

// TitleFilename turns a media title into a file name with ext. Slashes in
// titles ("Face/Off") become underscores instead of directory separators.
func TitleFilename(title, ext string) string {
	title = strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(title))
	return SanitizeFilename(title) + ext
}

// SafeDownloadPath joins dir and the sanitized filename and checks that the
// result stays inside dir.
func SafeDownloadPath(dir, filename string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	full := filepath.Join(absDir, SanitizeFilename(filename))
	rel, err := filepath.Rel(absDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %q", errTraversal, full, absDir)
	}
	return full, nil
}

// EncodeQuery encodes a search query as a hyphen-separated path segment
// (e.g., /search/star-wars).
func EncodeQuery(query string) string {
	return url.PathEscape(strings.Join(strings.Fields(query), "-"))
}
