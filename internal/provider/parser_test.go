package provider

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"reel/internal/media"
)

func loadTestDoc(t *testing.T, filename string) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile("testdata/" + filename)
	if err != nil {
		t.Fatalf("reading test fixture %s: %v", filename, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("parsing test fixture %s: %v", filename, err)
	}
	return doc
}

func TestParseSearchResults(t *testing.T) {
	doc := loadTestDoc(t, "search_results.html")
	results := parseSearchResults(doc)

	want := []media.SearchResult{
		{ID: "movie/free-the-thing-hd-19670", Title: "The Thing", Type: media.Movie, Year: "1982"},
		{ID: "tv/watch-the-thing-about-pam-80211", Title: "The Thing About Pam", Type: media.Show, Seasons: 1, Episodes: 6},
		{ID: "movie/free-the-thing-hd-39429", Title: "The Thing", Type: media.Movie, Year: "2011"},
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d (untitled items are skipped)", len(results), len(want))
	}
	for i, w := range want {
		got := results[i]
		if got.ID != w.ID || got.Title != w.Title || got.Type != w.Type || got.Year != w.Year {
			t.Errorf("result[%d] = %+v, want %+v", i, got, w)
		}
		if got.Seasons != w.Seasons || got.Episodes != w.Episodes {
			t.Errorf("result[%d] counts = %d/%d, want %d/%d", i, got.Seasons, got.Episodes, w.Seasons, w.Episodes)
		}
	}
}

func TestParseSearchResultsMalicious(t *testing.T) {
	doc := loadTestDoc(t, "search_malicious.html")
	results := parseSearchResults(doc)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "<script>alert(1)</script>" {
		t.Errorf("markup title = %q, want decoded literal text", results[0].Title)
	}
	if results[1].Title != "`reboot`; echo $HOME" {
		t.Errorf("shell title = %q, want literal text", results[1].Title)
	}
}

func TestParseLastPage(t *testing.T) {
	if got := parseLastPage(loadTestDoc(t, "search_results.html")); got != 5 {
		t.Errorf("parseLastPage = %d, want 5", got)
	}
	if got := parseLastPage(loadTestDoc(t, "search_malicious.html")); got != 1 {
		t.Errorf("parseLastPage without pagination = %d, want 1", got)
	}
}

func TestParseTrendingResults(t *testing.T) {
	doc := loadTestDoc(t, "home_trending.html")

	movies := parseTrendingResults(doc, media.Movie)
	if len(movies) != 3 {
		t.Fatalf("got %d trending movies, want 3", len(movies))
	}
	if movies[1].Title != "Heat" || movies[1].Year != "1995" {
		t.Errorf("movies[1] = %+v, want Heat (1995)", movies[1])
	}

	shows := parseTrendingResults(doc, media.Show)
	if len(shows) != 1 {
		t.Fatalf("got %d trending shows, want 1", len(shows))
	}
	if shows[0].Type != media.Show || shows[0].Seasons != 2 {
		t.Errorf("shows[0] = %+v, want a show with 2 seasons", shows[0])
	}

	if got := parseTrendingResults(loadTestDoc(t, "search_results.html"), media.Movie); len(got) != 0 {
		t.Errorf("page without trending panel gave %d results", len(got))
	}
}

func TestParseSeasons(t *testing.T) {
	seasons := parseSeasons(loadTestDoc(t, "seasons.html"))

	if len(seasons) != 2 {
		t.Fatalf("got %d seasons, want 2", len(seasons))
	}
	if seasons[0].ID != "55601" || seasons[0].Number != 1 {
		t.Errorf("seasons[0] = %+v", seasons[0])
	}
	if seasons[1].ID != "55602" || seasons[1].Number != 2 {
		t.Errorf("seasons[1] = %+v", seasons[1])
	}
}

func TestParseEpisodes(t *testing.T) {
	episodes := parseEpisodes(loadTestDoc(t, "episodes.html"))

	want := []media.Episode{
		{ID: "1001", Number: 1, Title: "Good News About Hell"},
		{ID: "1002", Number: 2, Title: "Half Loop"},
	}
	if len(episodes) != len(want) {
		t.Fatalf("got %d episodes, want %d", len(episodes), len(want))
	}
	for i, w := range want {
		if episodes[i] != w {
			t.Errorf("episodes[%d] = %+v, want %+v", i, episodes[i], w)
		}
	}
}

func TestParseServers(t *testing.T) {
	tests := []struct {
		fixture string
		want    []media.Server
	}{
		{"servers_movie.html", []media.Server{{Name: "UpCloud", ID: "9001"}, {Name: "Vidcloud", ID: "9002"}}},
		{"servers_episode.html", []media.Server{{Name: "Vidcloud", ID: "7001"}, {Name: "MixDrop", ID: "7002"}}},
	}

	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			got := parseServers(loadTestDoc(t, tt.fixture))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d servers, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("server[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/movie/free-heat-hd-18901", "movie/free-heat-hd-18901"},
		{"/tv/watch-severance-77001", "tv/watch-severance-77001"},
		{"/movie/free-heat-hd-18901?ref=home", "movie/free-heat-hd-18901"},
		{"movie/bare", "movie/bare"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractID(tt.input); got != tt.expected {
				t.Errorf("extractID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractNumericID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"movie/free-heat-hd-18901", "18901"},
		{"tv/watch-severance-77001", "77001"},
		{"movie/free-heat-hd", ""},
		{"12345", "12345"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractNumericID(tt.input); got != tt.expected {
				t.Errorf("extractNumericID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatDisplayTitle(t *testing.T) {
	tests := []struct {
		name     string
		result   media.SearchResult
		expected string
	}{
		{"movie with year", media.SearchResult{Title: "Heat", Year: "1995", Type: media.Movie}, "Heat (1995) [Movie]"},
		{"show without year", media.SearchResult{Title: "Severance", Type: media.Show}, "Severance [TV]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDisplayTitle(tt.result); got != tt.expected {
				t.Errorf("FormatDisplayTitle() = %q, want %q", got, tt.expected)
			}
		})
	}
}
