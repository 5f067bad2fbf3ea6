package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reel/internal/media"
)

// parseSearchResults extracts search results from a goquery document.
// Titles come from DOM text, never from raw HTML.
func parseSearchResults(doc *goquery.Document) []media.SearchResult {
	return parseItems(doc.Find(".film_list-wrap .flw-item"))
}

// parseTrendingResults extracts results from the /home trending panel for
// mediaType (#trending-movies or #trending-tv).
func parseTrendingResults(doc *goquery.Document, mediaType media.MediaType) []media.SearchResult {
	panel := "#trending-movies"
	if mediaType == media.Show {
		panel = "#trending-tv"
	}
	return parseItems(doc.Find(panel).Find(".film_list-wrap .flw-item"))
}

func parseItems(items *goquery.Selection) []media.SearchResult {
	var results []media.SearchResult

	items.Each(func(_ int, s *goquery.Selection) {
		link := s.Find(".film-name a")
		result := media.SearchResult{
			Title: strings.TrimSpace(link.Text()),
			Type:  media.Movie,
		}

		if href, ok := link.Attr("href"); ok {
			result.URL = href
			result.ID = extractID(href)
			if strings.Contains(href, "/tv/") {
				result.Type = media.Show
			}
		}

		s.Find(".fd-infor span").Each(func(_ int, span *goquery.Selection) {
			text := strings.TrimSpace(span.Text())
			switch {
			case len(text) == 4 && isDigits(text):
				result.Year = text
			case strings.HasPrefix(text, "SS "):
				result.Seasons, _ = strconv.Atoi(strings.TrimPrefix(text, "SS "))
			case strings.HasPrefix(text, "EPS "):
				result.Episodes, _ = strconv.Atoi(strings.TrimPrefix(text, "EPS "))
			}
		})

		if result.Title != "" {
			results = append(results, result)
		}
	})

	return results
}

// parseSeasons extracts the season dropdown of a show.
func parseSeasons(doc *goquery.Document) []media.Season {
	var seasons []media.Season

	doc.Find(".dropdown-menu-model .dropdown-item").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-id")
		if !ok {
			return
		}
		seasons = append(seasons, media.Season{
			Number: trailingNumber(s.Text()),
			ID:     id,
		})
	})

	return seasons
}

// parseEpisodes extracts the episode list of a season.
func parseEpisodes(doc *goquery.Document) []media.Episode {
	var episodes []media.Episode

	doc.Find(".nav-item a").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-id")
		if !ok {
			return
		}

		// Link text looks like "Eps 3: Title".
		text := strings.TrimSpace(s.Text())
		title := strings.TrimSpace(s.AttrOr("title", text))
		label, rest, found := strings.Cut(text, ":")
		if found && title == text {
			title = strings.TrimSpace(rest)
		}

		episodes = append(episodes, media.Episode{
			Number: trailingNumber(label),
			Title:  title,
			ID:     id,
		})
	})

	return episodes
}

// parseServers extracts server options. Movie endpoints use data-linkid,
// episode endpoints use data-id.
func parseServers(doc *goquery.Document) []media.Server {
	var servers []media.Server

	doc.Find(".link-item").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-linkid")
		if !ok {
			id, ok = s.Attr("data-id")
		}
		if !ok {
			return
		}

		name := strings.TrimSpace(s.Find("span").First().Text())
		if name == "" {
			name = strings.TrimSpace(s.AttrOr("title", "Unknown"))
		}
		name = strings.TrimPrefix(name, "Server ")

		servers = append(servers, media.Server{Name: name, ID: id})
	})

	return servers
}

// extractID extracts the content ID from a URL path.
// e.g., "/movie/free-the-exorcist-hd-75043" -> "movie/free-the-exorcist-hd-75043"
func extractID(urlPath string) string {
	id := strings.TrimPrefix(urlPath, "/")
	if idx := strings.Index(id, "?"); idx != -1 {
		id = id[:idx]
	}
	return id
}

// extractNumericID extracts the trailing numeric ID from a path.
// e.g., "movie/free-the-exorcist-hd-75043" -> "75043"
func extractNumericID(id string) string {
	last := id[strings.LastIndex(id, "-")+1:]
	if last != "" && isDigits(last) {
		return last
	}
	return ""
}

func trailingNumber(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(fields[len(fields)-1])
	return n
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FormatDisplayTitle creates a display string for pickers.
func FormatDisplayTitle(r media.SearchResult) string {
	parts := []string{r.Title}
	if r.Year != "" {
		parts = append(parts, fmt.Sprintf("(%s)", r.Year))
	}
	if r.Type == media.Show {
		parts = append(parts, "[TV]")
	} else {
		parts = append(parts, "[Movie]")
	}
	return strings.Join(parts, " ")
}
