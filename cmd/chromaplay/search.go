package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/chromaplay/internal/colors"
	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/track"
)

var searchFeatures bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "search the catalog and print the results",
	Long:  `search the spotify catalog and print matching tracks as a table. results go through the search cache unless --no-cache is set.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, _ := setupLogger(cfg)
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(context.Background(), 2*config.HTTPTimeoutSeconds*time.Second)
		defer cancel()

		cat, err := newCatalog(ctx, cfg, log)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		tracks, err := cat.Search(ctx, query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(tracks) == 0 {
			fmt.Printf("no results for %q\n", query)
			return nil
		}

		var features map[string]*track.AudioFeatures
		if searchFeatures {
			features = make(map[string]*track.AudioFeatures, len(tracks))
			for _, t := range tracks {
				if f, err := cat.Features(ctx, t.ID); err == nil {
					features[t.ID] = f
				}
			}
		}

		printTracks(os.Stdout, tracks, features)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVarP(&searchFeatures, "features", "f", false, "also fetch audio features for each result")
}

func printTracks(out io.Writer, tracks []track.Track, features map[string]*track.AudioFeatures) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "#\tTITLE\tARTISTS\tALBUM\tLENGTH\tPREVIEW"
	if features != nil {
		header += "\tENERGY\tTEMPO"
	}
	fmt.Fprintln(w, header)

	for i := range tracks {
		t := &tracks[i]
		preview := "-"
		if t.HasPreview() {
			preview = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s",
			i+1, t.Name, t.ArtistLine(), t.Album, colors.FormatSeconds(float64(t.DurationSecs)), preview)
		if features != nil {
			if f, ok := features[t.ID]; ok {
				fmt.Fprintf(w, "\t%.2f\t%.0f", f.Energy, f.Tempo)
			} else {
				fmt.Fprint(w, "\t-\t-")
			}
		}
		fmt.Fprintln(w)
	}

	w.Flush()
	fmt.Fprintf(out, "\ntotal: %d tracks\n", len(tracks))
}
