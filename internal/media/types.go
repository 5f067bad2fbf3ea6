// Package media defines shared types for the reel application.
package media

import (
	"fmt"
	"strings"
)

// MediaType represents whether content is a movie or a TV show.
type MediaType int

const (
	Movie MediaType = iota
	Show
)

func (m MediaType) String() string {
	switch m {
	case Movie:
		return "movie"
	case Show:
		return "show"
	default:
		return "unknown"
	}
}

// ParseMediaType accepts the tags used on the command line and in history.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return Movie, nil
	case "show", "shows", "tv", "series":
		return Show, nil
	default:
		return Movie, fmt.Errorf("unknown media type %q", s)
	}
}

// SearchResult represents a single catalog search result.
type SearchResult struct {
	ID       string    // Catalog ID (e.g., "movie/free-the-exorcist-hd-75043")
	Title    string    // Display title
	Type     MediaType // Movie or Show
	Year     string    // Release year
	Seasons  int       // Number of seasons (shows only)
	Episodes int       // Total episodes (shows only)
	URL      string    // Full URL to the content page
}

// Season represents a TV show season.
type Season struct {
	Number int
	ID     string // Catalog season ID
}

// Episode represents a TV show episode.
type Episode struct {
	Number int
	Title  string
	ID     string // Catalog episode ID
}

// Server represents a streaming server listed for an episode or movie.
type Server struct {
	Name string // e.g., "Vidcloud", "UpCloud"
	ID   string // Server/data-id
}

// Meta describes the media currently loaded into the player.
type Meta struct {
	ID      string // Catalog ID
	Title   string
	Type    MediaType
	Year    int
	Season  *Season  // nil for movies
	Episode *Episode // nil for movies
}

// DisplayTitle renders "Title", or "Title S01E02" for episodes.
func (m Meta) DisplayTitle() string {
	if m.Type == Show && m.Season != nil && m.Episode != nil {
		return fmt.Sprintf("%s S%02dE%02d", m.Title, m.Season.Number, m.Episode.Number)
	}
	return m.Title
}

// ScrapeMedia is the provider-neutral descriptor handed to source scrapers.
type ScrapeMedia struct {
	Type          MediaType
	Title         string
	ReleaseYear   int
	SeasonNumber  int // 0 for movies
	EpisodeNumber int // 0 for movies
}

// ScrapeMediaFromMeta converts player metadata into a scrape descriptor.
func ScrapeMediaFromMeta(m Meta) ScrapeMedia {
	sm := ScrapeMedia{
		Type:        m.Type,
		Title:       m.Title,
		ReleaseYear: m.Year,
	}
	if m.Type == Show {
		if m.Season != nil {
			sm.SeasonNumber = m.Season.Number
		}
		if m.Episode != nil {
			sm.EpisodeNumber = m.Episode.Number
		}
	}
	return sm
}

// Source describes a registered scraper. Embed scrapers use the same shape
// with no media types.
type Source struct {
	ID         string
	Name       string
	Rank       int
	MediaTypes []MediaType
}

// Supports reports whether the source can scrape the given media type.
func (s Source) Supports(t MediaType) bool {
	for _, mt := range s.MediaTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// Embed is a source-scoped candidate that an embed scraper may resolve.
type Embed struct {
	EmbedID string
	URL     string
}

// ScrapeResult is the output of a source scraper: a stream or embeds.
type ScrapeResult struct {
	Stream *Stream
	Embeds []Embed
}

// StreamType distinguishes adaptive playlists from plain files.
type StreamType int

const (
	HLS StreamType = iota
	File
)

func (t StreamType) String() string {
	if t == File {
		return "file"
	}
	return "hls"
}

// Stream contains the resolved streaming URLs.
type Stream struct {
	Type      StreamType
	Playlist  string            // HLS playlist URL
	Qualities map[string]string // File streams: quality label -> URL
	Subtitles []Subtitle
	Headers   map[string]string // Headers the CDN expects (Referer, Origin)
}

// Subtitle represents a subtitle track.
type Subtitle struct {
	Language string // e.g., "English"
	Label    string // Display label, e.g., "English - SDH"
	URL      string // URL to the subtitle file (usually VTT)
}

// HistoryEntry represents a single entry in the watch history.
type HistoryEntry struct {
	ID       string    // Catalog content ID
	Title    string    // Display title
	Type     MediaType // Movie or Show
	Year     int       // Release year, 0 if unknown
	Season   int       // Season number (shows only, 0 for movies)
	Episode  int       // Episode number (shows only, 0 for movies)
	Position float64   // Last playback position in seconds
	Duration float64   // Total duration in seconds
	SourceID string    // Source committed when this entry was last played
}
