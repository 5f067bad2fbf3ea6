package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"reel/internal/httputil"
	"reel/internal/log"
	"reel/internal/media"
)

// FlixHQ is both the catalog behind search/trending/recent and a source
// scraper that lists one embed per streaming server.
type FlixHQ struct {
	base   string // e.g., "flixhq.to"
	client *http.Client
	log    *logrus.Entry
}

// NewFlixHQ creates a FlixHQ client. A nil client gets the hardened default.
func NewFlixHQ(base string, client *http.Client) *FlixHQ {
	if client == nil {
		client = httputil.NewClient()
	}
	return &FlixHQ{
		base:   base,
		client: client,
		log:    log.With("flixhq"),
	}
}

func (f *FlixHQ) baseURL() string {
	return "https://" + f.base
}

// Info describes FlixHQ as a source.
func (f *FlixHQ) Info() media.Source {
	return media.Source{
		ID:         "flixhq",
		Name:       "FlixHQ",
		Rank:       100,
		MediaTypes: []media.MediaType{media.Movie, media.Show},
	}
}

// Scrape locates m on FlixHQ and returns an embed for every server that
// yields an embed URL.
func (f *FlixHQ) Scrape(ctx context.Context, m media.ScrapeMedia) (media.ScrapeResult, error) {
	results, err := f.Search(ctx, m.Title)
	if err != nil {
		return media.ScrapeResult{}, err
	}

	match, ok := bestMatch(results, m)
	if !ok {
		return media.ScrapeResult{}, fmt.Errorf("%w: %q on flixhq", ErrNotFound, m.Title)
	}

	episodeID := ""
	if m.Type == media.Show {
		episodeID, err = f.findEpisode(ctx, match.ID, m.SeasonNumber, m.EpisodeNumber)
		if err != nil {
			return media.ScrapeResult{}, err
		}
	}

	servers, err := f.GetServers(ctx, match.ID, episodeID)
	if err != nil {
		return media.ScrapeResult{}, err
	}

	var embeds []media.Embed
	var lastErr error
	for _, s := range servers {
		url, err := f.GetEmbedURL(ctx, s.ID)
		if err != nil {
			f.log.WithField("server", s.Name).WithError(err).Debug("skipping server")
			lastErr = err
			continue
		}
		embeds = append(embeds, media.Embed{EmbedID: embedIDForServer(s.Name), URL: url})
	}
	if len(embeds) == 0 && lastErr != nil {
		return media.ScrapeResult{}, fmt.Errorf("no server produced an embed: %w", lastErr)
	}

	return media.ScrapeResult{Embeds: embeds}, nil
}

func (f *FlixHQ) findEpisode(ctx context.Context, id string, season, episode int) (string, error) {
	seasons, err := f.GetSeasons(ctx, id)
	if err != nil {
		return "", err
	}
	s, ok := lo.Find(seasons, func(s media.Season) bool { return s.Number == season })
	if !ok {
		return "", fmt.Errorf("%w: season %d", ErrNotFound, season)
	}

	episodes, err := f.GetEpisodes(ctx, s.ID)
	if err != nil {
		return "", err
	}
	ep, ok := lo.Find(episodes, func(e media.Episode) bool { return e.Number == episode })
	if !ok {
		return "", fmt.Errorf("%w: S%02dE%02d", ErrNotFound, season, episode)
	}
	return ep.ID, nil
}

// embedIDForServer maps a server label ("Vidcloud", "UpCloud") to an embed id.
func embedIDForServer(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// bestMatch picks the result whose type (and year, when known) match m and
// whose title is fuzzily closest to m.Title.
func bestMatch(results []media.SearchResult, m media.ScrapeMedia) (media.SearchResult, bool) {
	candidates := lo.Filter(results, func(r media.SearchResult, _ int) bool { return r.Type == m.Type })
	if m.ReleaseYear > 0 {
		year := strconv.Itoa(m.ReleaseYear)
		dated := lo.Filter(candidates, func(r media.SearchResult, _ int) bool { return r.Year == year })
		if len(dated) > 0 {
			candidates = dated
		}
	}

	if exact, ok := lo.Find(candidates, func(r media.SearchResult) bool {
		return strings.EqualFold(r.Title, m.Title)
	}); ok {
		return exact, true
	}

	titles := lo.Map(candidates, func(r media.SearchResult, _ int) string { return r.Title })
	ranks := fuzzy.RankFindNormalizedFold(m.Title, titles)
	if len(ranks) == 0 {
		return media.SearchResult{}, false
	}
	sort.Sort(ranks)
	return candidates[ranks[0].OriginalIndex], true
}

// maxSearchPages limits how many pages of search results to fetch.
const maxSearchPages = 3

// Search returns matching results for a query, fetching multiple pages.
func (f *FlixHQ) Search(ctx context.Context, query string) ([]media.SearchResult, error) {
	baseSearchURL := fmt.Sprintf("%s/search/%s", f.baseURL(), httputil.EncodeQuery(query))

	doc, err := f.fetchDocument(ctx, baseSearchURL)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}

	results := parseSearchResults(doc)
	pages := min(parseLastPage(doc), maxSearchPages)
	for page := 2; page <= pages; page++ {
		pageDoc, err := f.fetchDocument(ctx, fmt.Sprintf("%s?page=%d", baseSearchURL, page))
		if err != nil {
			break // keep what we have
		}
		results = append(results, parseSearchResults(pageDoc)...)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", ErrNotFound, query)
	}
	return f.absolutize(results), nil
}

// parseLastPage reads the highest page number from the pagination bar.
func parseLastPage(doc *goquery.Document) int {
	last := 1
	doc.Find(".pagination .page-link").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if _, page, ok := strings.Cut(href, "page="); ok {
			if n, err := strconv.Atoi(page); err == nil && n > last {
				last = n
			}
		}
	})
	return last
}

// GetSeasons returns available seasons for a show.
func (f *FlixHQ) GetSeasons(ctx context.Context, id string) ([]media.Season, error) {
	if err := httputil.ValidateID(id); err != nil {
		return nil, fmt.Errorf("invalid content ID: %w", err)
	}
	numID := extractNumericID(id)
	if numID == "" {
		return nil, fmt.Errorf("cannot extract numeric ID from %q", id)
	}

	doc, err := f.fetchDocument(ctx, fmt.Sprintf("%s/ajax/v2/tv/seasons/%s", f.baseURL(), numID))
	if err != nil {
		return nil, fmt.Errorf("getting seasons: %w", err)
	}
	return parseSeasons(doc), nil
}

// GetEpisodes returns episodes for a given season.
func (f *FlixHQ) GetEpisodes(ctx context.Context, seasonID string) ([]media.Episode, error) {
	if err := httputil.ValidateID(seasonID); err != nil {
		return nil, fmt.Errorf("invalid season ID: %w", err)
	}

	doc, err := f.fetchDocument(ctx, fmt.Sprintf("%s/ajax/v2/season/episodes/%s", f.baseURL(), seasonID))
	if err != nil {
		return nil, fmt.Errorf("getting episodes: %w", err)
	}
	return parseEpisodes(doc), nil
}

// GetServers returns streaming servers. For movies, episodeID is empty.
func (f *FlixHQ) GetServers(ctx context.Context, id string, episodeID string) ([]media.Server, error) {
	var url string
	if episodeID != "" {
		if err := httputil.ValidateID(episodeID); err != nil {
			return nil, fmt.Errorf("invalid episode ID: %w", err)
		}
		url = fmt.Sprintf("%s/ajax/v2/episode/servers/%s", f.baseURL(), episodeID)
	} else {
		if err := httputil.ValidateID(id); err != nil {
			return nil, fmt.Errorf("invalid content ID: %w", err)
		}
		numID := extractNumericID(id)
		if numID == "" {
			return nil, fmt.Errorf("cannot extract numeric ID from %q", id)
		}
		url = fmt.Sprintf("%s/ajax/movie/episodes/%s", f.baseURL(), numID)
	}

	doc, err := f.fetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("getting servers: %w", err)
	}
	return parseServers(doc), nil
}

// GetEmbedURL returns the embed URL for a given server.
func (f *FlixHQ) GetEmbedURL(ctx context.Context, serverID string) (string, error) {
	if err := httputil.ValidateID(serverID); err != nil {
		return "", fmt.Errorf("invalid server ID: %w", err)
	}

	// {"type":"iframe","link":"https://...","sources":[],"tracks":[],"title":""}
	body, err := httputil.ReadBody(ctx, f.client, httputil.Request{
		URL:    fmt.Sprintf("%s/ajax/episode/sources/%s", f.baseURL(), serverID),
		Accept: "application/json",
		XHR:    true,
	})
	if err != nil {
		return "", fmt.Errorf("getting embed URL: %w", err)
	}

	var result struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing embed response: %w", err)
	}
	if result.Link == "" {
		return "", fmt.Errorf("no embed URL found for server %s", serverID)
	}
	return result.Link, nil
}

// Trending returns trending content from the /home page.
func (f *FlixHQ) Trending(ctx context.Context, mediaType media.MediaType) ([]media.SearchResult, error) {
	doc, err := f.fetchDocument(ctx, f.baseURL()+"/home")
	if err != nil {
		return nil, fmt.Errorf("getting trending: %w", err)
	}
	return f.absolutize(parseTrendingResults(doc, mediaType)), nil
}

// Recent returns recently added content from /movie or /tv-show pages.
func (f *FlixHQ) Recent(ctx context.Context, mediaType media.MediaType) ([]media.SearchResult, error) {
	path := "/movie"
	if mediaType == media.Show {
		path = "/tv-show"
	}

	doc, err := f.fetchDocument(ctx, f.baseURL()+path)
	if err != nil {
		return nil, fmt.Errorf("getting recent: %w", err)
	}
	return f.absolutize(parseSearchResults(doc)), nil
}

func (f *FlixHQ) absolutize(results []media.SearchResult) []media.SearchResult {
	for i := range results {
		if !strings.HasPrefix(results[i].URL, "http") {
			results[i].URL = f.baseURL() + results[i].URL
		}
	}
	return results
}

// fetchDocument fetches a URL and parses it into a goquery Document.
func (f *FlixHQ) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := httputil.Get(ctx, f.client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}
