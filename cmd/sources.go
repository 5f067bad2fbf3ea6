package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reel/internal/media"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources [movie|show]",
	Short: "List the sources that can scrape a media type",
	Long: `List the registered sources, in the order they are tried, that support
the given media type.`,
	Args: cobra.MaximumNArgs(1),
	RunE: sourcesRun,
}

type sourceJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

func sourcesRun(cmd *cobra.Command, args []string) error {
	mediaType, err := parseMediaTypeArg(args)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	s.store.SetMeta(media.Meta{Title: "sources", Type: mediaType})

	items := s.flow.Sources()
	if flagJSON {
		out := make([]sourceJSON, len(items))
		for i, it := range items {
			out[i] = sourceJSON{ID: it.ID, Name: it.Name, Rank: it.Rank}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(items) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No sources support %s.\n", mediaType)
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRANK")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\n", it.ID, it.Name, it.Rank)
	}
	return w.Flush()
}
