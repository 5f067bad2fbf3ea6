package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"reel/internal/httputil"
	"reel/internal/media"
)

// Consumet resolves streams through a consumet API deployment, which does
// the embed decryption server-side and hands back playable sources.
type Consumet struct {
	apiURL string
	server string
	client *http.Client
}

// NewConsumet creates a Consumet source. A nil client gets the hardened default.
func NewConsumet(apiURL string, client *http.Client) *Consumet {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Consumet{
		apiURL: strings.TrimRight(apiURL, "/"),
		server: EmbedVidcloud,
		client: client,
	}
}

// Info describes Consumet as a source.
func (c *Consumet) Info() media.Source {
	return media.Source{
		ID:         "consumet",
		Name:       "Consumet",
		Rank:       80,
		MediaTypes: []media.MediaType{media.Movie, media.Show},
	}
}

type consumetResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	ReleaseDate string `json:"releaseDate"`
}

type consumetSearch struct {
	Results []consumetResult `json:"results"`
}

type consumetEpisode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Season int    `json:"season"`
}

type consumetInfo struct {
	ID       string            `json:"id"`
	Episodes []consumetEpisode `json:"episodes"`
}

type consumetWatch struct {
	Headers map[string]string `json:"headers"`
	Sources []struct {
		URL     string `json:"url"`
		Quality string `json:"quality"`
		IsM3U8  bool   `json:"isM3U8"`
	} `json:"sources"`
	Subtitles []struct {
		URL  string `json:"url"`
		Lang string `json:"lang"`
	} `json:"subtitles"`
}

// Scrape resolves m straight to a stream.
func (c *Consumet) Scrape(ctx context.Context, m media.ScrapeMedia) (media.ScrapeResult, error) {
	var search consumetSearch
	if err := c.getJSON(ctx, "/movies/flixhq/"+url.PathEscape(m.Title), nil, &search); err != nil {
		return media.ScrapeResult{}, fmt.Errorf("consumet search: %w", err)
	}

	results := lo.Map(search.Results, func(r consumetResult, _ int) media.SearchResult {
		t := media.Movie
		if strings.EqualFold(r.Type, "TV Series") {
			t = media.Show
		}
		return media.SearchResult{ID: r.ID, Title: r.Title, Type: t, Year: firstN(r.ReleaseDate, 4)}
	})
	match, ok := bestMatch(results, m)
	if !ok {
		return media.ScrapeResult{}, fmt.Errorf("%w: %q on consumet", ErrNotFound, m.Title)
	}

	var info consumetInfo
	if err := c.getJSON(ctx, "/movies/flixhq/info", url.Values{"id": {match.ID}}, &info); err != nil {
		return media.ScrapeResult{}, fmt.Errorf("consumet info: %w", err)
	}
	if len(info.Episodes) == 0 {
		return media.ScrapeResult{}, fmt.Errorf("%w: no episodes for %q", ErrNotFound, match.ID)
	}

	episodeID := info.Episodes[0].ID
	if m.Type == media.Show {
		ep, ok := lo.Find(info.Episodes, func(e consumetEpisode) bool {
			return e.Season == m.SeasonNumber && e.Number == m.EpisodeNumber
		})
		if !ok {
			return media.ScrapeResult{}, fmt.Errorf("%w: S%02dE%02d", ErrNotFound, m.SeasonNumber, m.EpisodeNumber)
		}
		episodeID = ep.ID
	}

	var watch consumetWatch
	params := url.Values{"episodeId": {episodeID}, "mediaId": {match.ID}, "server": {c.server}}
	if err := c.getJSON(ctx, "/movies/flixhq/watch", params, &watch); err != nil {
		return media.ScrapeResult{}, fmt.Errorf("consumet watch: %w", err)
	}

	stream, err := watch.stream()
	if err != nil {
		return media.ScrapeResult{}, err
	}
	return media.ScrapeResult{Stream: stream}, nil
}

// stream prefers the adaptive "auto" playlist, then any playlist, then files.
func (w consumetWatch) stream() (*media.Stream, error) {
	if len(w.Sources) == 0 {
		return nil, fmt.Errorf("consumet returned no sources")
	}

	var stream *media.Stream
	for _, s := range w.Sources {
		if s.IsM3U8 && strings.EqualFold(s.Quality, "auto") {
			stream = &media.Stream{Type: media.HLS, Playlist: s.URL}
			break
		}
	}
	if stream == nil && len(w.Sources) == 1 && w.Sources[0].IsM3U8 {
		stream = &media.Stream{Type: media.HLS, Playlist: w.Sources[0].URL}
	}
	if stream == nil {
		stream = &media.Stream{Type: media.File, Qualities: map[string]string{}}
		for _, s := range w.Sources {
			stream.Qualities[strings.TrimSuffix(s.Quality, "p")] = s.URL
		}
	}

	for _, sub := range w.Subtitles {
		if sub.URL == "" {
			continue
		}
		stream.Subtitles = append(stream.Subtitles, media.Subtitle{Language: sub.Lang, Label: sub.Lang, URL: sub.URL})
	}
	stream.Headers = w.Headers
	return stream, nil
}

func (c *Consumet) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	u := c.apiURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	body, err := httputil.GetJSON(ctx, c.client, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
