package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"reel/internal/download"
	"reel/internal/history"
	"reel/internal/media"
	"reel/internal/player"
	"reel/internal/provider"
	"reel/internal/state"
	"reel/internal/subtitle"
	"reel/internal/tui"
)

// errNoSource is returned when the overlay closes without a committed stream.
var errNoSource = errors.New("no source selected")

// searchRun is the default command: reel <query>
func searchRun(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if query == "" {
		var err error
		query, err = tui.Input("Search")
		if err != nil {
			return fmt.Errorf("no search query provided")
		}
	}

	logger.WithField("query", query).Debug("searching")

	s, err := newSession()
	if err != nil {
		return err
	}

	results, err := s.catalog.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return s.pickAndWatch(cmd.Context(), "Select", results)
}

// pickAndWatch lets the user pick one of results and watches it.
func (s *session) pickAndWatch(ctx context.Context, title string, results []media.SearchResult) error {
	items := lo.Map(results, func(r media.SearchResult, _ int) string {
		return provider.FormatDisplayTitle(r)
	})

	idx, err := tui.Pick(title, items)
	if err != nil {
		return err
	}

	selected := results[idx]
	logger.WithFields(logrus.Fields{"id": selected.ID, "title": selected.Title, "type": selected.Type}).Debug("selected")
	return s.watch(ctx, selected, 0, 0, mo.None[media.HistoryEntry]())
}

// buildMeta resolves the season and episode for shows. A non-zero season or
// episode is used as given; otherwise the user picks.
func (s *session) buildMeta(ctx context.Context, selected media.SearchResult, season, episode int) (media.Meta, error) {
	year, _ := strconv.Atoi(selected.Year)
	meta := media.Meta{
		ID:    selected.ID,
		Title: selected.Title,
		Type:  selected.Type,
		Year:  year,
	}
	if selected.Type != media.Show {
		return meta, nil
	}

	seasons, err := s.catalog.GetSeasons(ctx, selected.ID)
	if err != nil {
		return meta, fmt.Errorf("getting seasons: %w", err)
	}
	if len(seasons) == 0 {
		return meta, fmt.Errorf("no seasons found")
	}

	seasonIdx := 0
	if season > 0 {
		_, seasonIdx, _ = lo.FindIndexOf(seasons, func(se media.Season) bool { return se.Number == season })
		seasonIdx = max(seasonIdx, 0)
	} else {
		items := lo.Map(seasons, func(se media.Season, _ int) string { return fmt.Sprintf("Season %d", se.Number) })
		if seasonIdx, err = tui.Pick("Season", items); err != nil {
			return meta, err
		}
	}
	selectedSeason := seasons[seasonIdx]

	episodes, err := s.catalog.GetEpisodes(ctx, selectedSeason.ID)
	if err != nil {
		return meta, fmt.Errorf("getting episodes: %w", err)
	}
	if len(episodes) == 0 {
		return meta, fmt.Errorf("no episodes found")
	}

	episodeIdx := 0
	if episode > 0 {
		_, episodeIdx, _ = lo.FindIndexOf(episodes, func(ep media.Episode) bool { return ep.Number == episode })
		episodeIdx = max(episodeIdx, 0)
	} else {
		items := lo.Map(episodes, func(ep media.Episode, _ int) string {
			if ep.Title != "" {
				return fmt.Sprintf("Episode %d: %s", ep.Number, ep.Title)
			}
			return fmt.Sprintf("Episode %d", ep.Number)
		})
		if episodeIdx, err = tui.Pick("Episode", items); err != nil {
			return meta, err
		}
	}
	selectedEpisode := episodes[episodeIdx]

	meta.Season = &selectedSeason
	meta.Episode = &selectedEpisode
	return meta, nil
}

// watch loads the selection into the player state, resolves a source and
// then prints, downloads or plays it. resume carries the history entry when
// the user came from `reel history`.
func (s *session) watch(ctx context.Context, selected media.SearchResult, season, episode int, resume mo.Option[media.HistoryEntry]) error {
	meta, err := s.buildMeta(ctx, selected, season, episode)
	if err != nil {
		return err
	}
	title := meta.DisplayTitle()
	seasonNum, episodeNum := 0, 0
	if meta.Season != nil {
		seasonNum, episodeNum = meta.Season.Number, meta.Episode.Number
	}

	var hist *history.Store
	if cfg.History {
		if hist, err = openHistory(); err != nil {
			logger.WithError(err).Warn("history unavailable")
		} else {
			defer hist.Close()
		}
	}

	if !resume.IsPresent() && hist != nil {
		if resume, err = hist.Find(meta.ID, seasonNum, episodeNum); err != nil {
			logger.WithError(err).Warn("history lookup failed")
		}
	}

	s.store.SetMeta(meta)
	if entry, ok := resume.Get(); ok {
		if entry.SourceID != "" {
			s.store.SetSourceID(mo.Some(entry.SourceID))
		}
		if s.shouldResume(entry) {
			s.store.SetProgress(state.Progress{Time: entry.Position, Duration: entry.Duration})
		}
	}

	sourceID, err := s.resolve(ctx, title)
	if err != nil {
		return err
	}
	src := s.store.Snapshot().Source.MustGet()
	logger.WithFields(logrus.Fields{"source": sourceID, "type": src.Type, "quality": src.Quality}).Info("stream committed")

	if flagJSON {
		return printStream(title, sourceID, src)
	}

	var subFile string
	if !flagNoSubs && len(src.Subtitles) > 0 {
		if tmpDir, err := subtitle.NewTempDir(); err == nil {
			defer tmpDir.Cleanup()
			subFile, err = subtitle.Fetch(ctx, s.client, tmpDir, src.Subtitles, cfg.SubsLanguage)
			if err != nil {
				logger.WithError(err).Warn("subtitle download failed")
				subFile = "" // continue without subs
			}
		}
	}

	if flagDownload != "" {
		dir := flagDownload
		if dir == useConfigDir {
			if dir, err = cfg.ExpandDownloadDir(); err != nil {
				return fmt.Errorf("resolving download dir: %w", err)
			}
		}
		outputPath, err := download.Download(ctx, src, title, dir, subFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Downloaded: %s\n", outputPath)
		return nil
	}

	p := player.New(cfg.Player)
	if !p.Available() {
		return fmt.Errorf("player %q not found in PATH", cfg.Player)
	}
	progress, err := player.PlayCommitted(ctx, p, s.store, title, subFile)
	if err != nil {
		return err
	}

	if hist != nil {
		err := hist.Save(media.HistoryEntry{
			ID:       meta.ID,
			Title:    meta.Title,
			Type:     meta.Type,
			Year:     meta.Year,
			Season:   seasonNum,
			Episode:  episodeNum,
			Position: progress.Time,
			Duration: progress.Duration,
			SourceID: sourceID,
		})
		if err != nil {
			logger.WithError(err).Warn("saving history failed")
		}
	}
	return nil
}

// shouldResume decides whether to start from the remembered position.
func (s *session) shouldResume(entry media.HistoryEntry) bool {
	if entry.Position <= 0 {
		return false
	}
	if flagContinue || !interactive() {
		return flagContinue
	}
	ok, err := tui.Confirm(fmt.Sprintf("Resume from %s?", history.FormatDuration(entry.Position)))
	return err == nil && ok
}

// resolve commits a stream to the player state: through the source overlay
// on a terminal, or the first working source otherwise.
func (s *session) resolve(ctx context.Context, title string) (string, error) {
	if interactive() {
		ok, err := tui.RunOverlay(ctx, s.flow, s.router, title)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errNoSource
		}
		return s.flow.Chosen(), nil
	}

	id, err := s.flow.ResolveFirst(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving a stream: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Streaming from %s\n", s.flow.ChosenName())
	return id, nil
}

type streamJSON struct {
	Title     string            `json:"title"`
	Source    string            `json:"source"`
	Type      string            `json:"type"`
	URL       string            `json:"url"`
	Quality   string            `json:"quality,omitempty"`
	Qualities []state.Quality   `json:"qualities,omitempty"`
	Subtitles []media.Subtitle  `json:"subtitles,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

func printStream(title, sourceID string, src state.Source) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(streamJSON{
		Title:     title,
		Source:    sourceID,
		Type:      src.Type.String(),
		URL:       src.URL,
		Quality:   src.Quality,
		Qualities: src.Qualities,
		Subtitles: src.Subtitles,
		Headers:   src.Headers,
	})
}
