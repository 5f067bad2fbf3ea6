package cmd

import (
	"fmt"
	"strconv"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"reel/internal/history"
	"reel/internal/media"
	"reel/internal/tui"
)

var flagHistoryRemove bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Resume from watch history",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryRemove, "remove", false, "Remove the picked entry instead of playing it")
}

func historyRun(cmd *cobra.Command, args []string) error {
	h, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	entries, err := h.Load()
	if err != nil {
		h.Close()
		return fmt.Errorf("loading history: %w", err)
	}

	if len(entries) == 0 {
		h.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "No history entries found.")
		return nil
	}

	idx, err := tui.Pick("History", history.FormatForDisplay(entries))
	if err != nil {
		h.Close()
		return err
	}
	selected := entries[idx]

	if flagHistoryRemove {
		defer h.Close()
		return h.Remove(selected.ID, selected.Season, selected.Episode)
	}
	// watch opens the database again to save progress.
	h.Close()

	logger.WithFields(logrus.Fields{"id": selected.ID, "source": selected.SourceID}).Debug("resuming")

	s, err := newSession()
	if err != nil {
		return err
	}

	// History carries everything the catalog lookup needs; no fresh search.
	result := media.SearchResult{
		ID:    selected.ID,
		Title: selected.Title,
		Type:  selected.Type,
	}
	if selected.Year > 0 {
		result.Year = strconv.Itoa(selected.Year)
	}

	flagContinue = true
	return s.watch(cmd.Context(), result, selected.Season, selected.Episode, mo.Some(selected))
}
