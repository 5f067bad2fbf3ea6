package state

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"reel/internal/media"
)

// Quality is one rendition of a file stream.
type Quality struct {
	Label string // "1080", "720", ...
	URL   string
}

// Source is the player's native representation of a resolved stream.
type Source struct {
	Type      media.StreamType
	URL       string    // the URL handed to the player
	Quality   string    // label of URL for file streams, "auto" for HLS
	Qualities []Quality // file streams only, highest first
	Subtitles []media.Subtitle
	Headers   map[string]string
}

// FromStream converts a scraped stream. For file streams the rendition
// closest to preferred (at or below it, else the lowest above it) is chosen;
// "auto" or an empty preference picks the highest.
func FromStream(s *media.Stream, preferred string) Source {
	src := Source{
		Type:      s.Type,
		Subtitles: s.Subtitles,
		Headers:   s.Headers,
	}

	if s.Type == media.HLS {
		src.URL = s.Playlist
		src.Quality = "auto"
		return src
	}

	src.Qualities = lo.MapToSlice(s.Qualities, func(label, url string) Quality {
		return Quality{Label: label, URL: url}
	})
	sort.Slice(src.Qualities, func(i, j int) bool {
		a, b := src.Qualities[i], src.Qualities[j]
		if ra, rb := qualityRank(a.Label), qualityRank(b.Label); ra != rb {
			return ra > rb
		}
		return a.Label < b.Label
	})
	if q, ok := pickQuality(src.Qualities, preferred); ok {
		src.URL = q.URL
		src.Quality = q.Label
	}
	return src
}

func pickQuality(qs []Quality, preferred string) (Quality, bool) {
	if len(qs) == 0 {
		return Quality{}, false
	}
	want := qualityRank(preferred)
	if preferred == "" || preferred == "auto" || want < 0 {
		return qs[0], true
	}
	if q, ok := lo.Find(qs, func(q Quality) bool { return qualityRank(q.Label) <= want }); ok {
		return q, true
	}
	return qs[len(qs)-1], true
}

// qualityRank parses "1080", "1080p" or "4k"; unknown labels rank lowest.
func qualityRank(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "4k" {
		return 2160
	}
	n, err := strconv.Atoi(strings.TrimSuffix(l, "p"))
	if err != nil {
		return -1
	}
	return n
}
