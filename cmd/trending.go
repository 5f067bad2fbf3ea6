package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/media"
)

var trendingCmd = &cobra.Command{
	Use:   "trending [movies|tv]",
	Short: "Browse trending content",
	Args:  cobra.MaximumNArgs(1),
	RunE:  trendingRun,
}

func trendingRun(cmd *cobra.Command, args []string) error {
	mediaType, err := parseMediaTypeArg(args)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	results, err := s.catalog.Trending(cmd.Context(), mediaType)
	if err != nil {
		return fmt.Errorf("getting trending: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No trending content found.")
		return nil
	}
	return s.pickAndWatch(cmd.Context(), "Trending", results)
}

var recentCmd = &cobra.Command{
	Use:   "recent [movies|tv]",
	Short: "Browse recently added content",
	Args:  cobra.MaximumNArgs(1),
	RunE:  recentRun,
}

func recentRun(cmd *cobra.Command, args []string) error {
	mediaType, err := parseMediaTypeArg(args)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	results, err := s.catalog.Recent(cmd.Context(), mediaType)
	if err != nil {
		return fmt.Errorf("getting recent: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recently added content found.")
		return nil
	}
	return s.pickAndWatch(cmd.Context(), "Recent", results)
}

// parseMediaTypeArg reads an optional media type argument, defaulting to movies.
func parseMediaTypeArg(args []string) (media.MediaType, error) {
	if len(args) == 0 {
		return media.Movie, nil
	}
	return media.ParseMediaType(args[0])
}
