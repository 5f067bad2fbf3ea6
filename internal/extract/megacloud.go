package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"reel/internal/httputil"
	"reel/internal/media"
)

// MegaCloud extracts streams from MegaCloud-family embed URLs
// (served behind the Vidcloud and UpCloud servers).
type MegaCloud struct {
	client  *http.Client
	referer string // page that links to the embed, e.g. "https://flixhq.to/"
}

// NewMegaCloud creates a MegaCloud extractor using client for all requests.
func NewMegaCloud(client *http.Client, referer string) *MegaCloud {
	return &MegaCloud{client: client, referer: referer}
}

// sourcesResponse represents the JSON from the getSources endpoint.
type sourcesResponse struct {
	Sources   json.RawMessage `json:"sources"`
	Tracks    []track         `json:"tracks"`
	Encrypted bool            `json:"encrypted"`
}

type track struct {
	File  string `json:"file"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type source struct {
	File  string `json:"file"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

var embedPrefixPattern = regexp.MustCompile(`^embed-\d+$`)

// Extract resolves an embed URL into a playable stream.
func (m *MegaCloud) Extract(ctx context.Context, embedURL string) (*media.Stream, error) {
	if err := httputil.ValidateURL(embedURL); err != nil {
		return nil, fmt.Errorf("invalid embed URL: %w", err)
	}

	domain, embedPrefix, sourceID, err := parseEmbedURL(embedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing embed URL: %w", err)
	}

	embedPageURL := fmt.Sprintf("https://%s/%s/v3/e-1/%s?z=", domain, embedPrefix, sourceID)
	page, err := httputil.ReadBody(ctx, m.client, httputil.Request{URL: embedPageURL, Referer: m.referer})
	if err != nil {
		return nil, fmt.Errorf("fetching embed page: %w", err)
	}

	clientKey, err := extractClientKey(string(page))
	if err != nil {
		return nil, fmt.Errorf("extracting client key: %w", err)
	}

	getSourcesURL := fmt.Sprintf("https://%s/%s/v3/e-1/getSources?id=%s&_k=%s",
		domain, embedPrefix, url.QueryEscape(sourceID), url.QueryEscape(clientKey))
	body, err := httputil.ReadBody(ctx, m.client, httputil.Request{
		URL:     getSourcesURL,
		Accept:  "application/json",
		Referer: embedURL,
		XHR:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching sources: %w", err)
	}

	var resp sourcesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing sources response: %w", err)
	}
	if resp.Encrypted {
		return nil, ErrEncrypted
	}

	var sources []source
	if err := json.Unmarshal(resp.Sources, &sources); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	origin := "https://" + domain
	stream := buildStream(sources, resp.Tracks)
	stream.Headers = map[string]string{
		"Referer": origin + "/",
		"Origin":  origin,
	}
	return stream, nil
}

// buildStream prefers an HLS playlist and falls back to labelled files.
func buildStream(sources []source, tracks []track) *media.Stream {
	stream := &media.Stream{Type: media.File, Qualities: map[string]string{}}
	for _, s := range sources {
		if s.Type == "hls" || strings.Contains(s.File, ".m3u8") {
			stream = &media.Stream{Type: media.HLS, Playlist: s.File}
			break
		}
		label := s.Label
		if label == "" {
			label = "unknown"
		}
		stream.Qualities[label] = s.File
	}

	for _, t := range tracks {
		if t.Kind != "captions" || t.File == "" {
			continue
		}
		stream.Subtitles = append(stream.Subtitles, media.Subtitle{
			Language: t.Label,
			Label:    t.Label,
			URL:      t.File,
		})
	}
	return stream
}

// parseEmbedURL extracts domain, embed prefix, and source ID from an embed URL.
// Example: https://streameeeeee.site/embed-1/v3/e-1/AbCdEf?z= -> ("streameeeeee.site", "embed-1", "AbCdEf")
func parseEmbedURL(embedURL string) (domain, embedPrefix, sourceID string, err error) {
	u, err := url.Parse(embedURL)
	if err != nil {
		return "", "", "", fmt.Errorf("parsing URL: %w", err)
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("no host in %q", embedURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	embedPrefix = parts[0]
	if !embedPrefixPattern.MatchString(embedPrefix) {
		embedPrefix = "embed-2"
	}

	sourceID = parts[len(parts)-1]
	if sourceID == "" || (len(parts) == 1 && sourceID == embedPrefix) {
		return "", "", "", fmt.Errorf("could not extract source ID from %q", embedURL)
	}

	return u.Host, embedPrefix, sourceID, nil
}
