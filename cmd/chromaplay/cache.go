package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/chromaplay/internal/cache"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the search cache",
	Long:  `manage cached search results, including viewing statistics, listing entries, and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache(cmd)
		if err != nil {
			return err
		}

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", diskCache.Path())
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))

		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list cached searches",
	Long:  `list every cached search query with its result count and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache(cmd)
		if err != nil {
			return err
		}

		entries, err := diskCache.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)
		printCacheEntries(os.Stdout, entries, time.Now())

		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <query>",
	Short: "show the cached results for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		diskCache, err := openCache(cmd)
		if err != nil {
			return err
		}

		entry, err := diskCache.Get(query)
		if err != nil {
			return notCachedError(diskCache, query, err)
		}

		fmt.Printf("query:   %s\n", entry.Query)
		fmt.Printf("cached:  %s\n", time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"))
		fmt.Printf("expires: %s\n\n", time.Unix(entry.ExpiresAt, 0).Format("2006-01-02 15:04:05"))
		printTracks(os.Stdout, entry.Tracks, nil)

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached search results. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache(cmd)
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			if !isYes(response) {
				fmt.Println("cancelled")
				return nil
			}
		}

		if err := diskCache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	Long:  `remove all expired cache entries to free up disk space.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache(cmd)
		if err != nil {
			return err
		}

		pruned, err := diskCache.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <query>",
	Short: "remove a cached search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		diskCache, err := openCache(cmd)
		if err != nil {
			return err
		}

		if _, err := diskCache.Get(query); err != nil {
			return notCachedError(diskCache, query, err)
		}

		if err := diskCache.Delete(query); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted %q from cache\n", query)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, query, size")

	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

func openCache(cmd *cobra.Command) (*cache.DiskCache, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	diskCache, err := cache.New(cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return diskCache, nil
}

func notCachedError(diskCache *cache.DiskCache, query string, cause error) error {
	entries, _ := diskCache.ListAll()
	suggestions := findSimilarQueries(entries, query)
	if len(suggestions) == 0 {
		return fmt.Errorf("query not found in cache: %w", cause)
	}

	fmt.Fprintf(os.Stderr, "query not found in cache\n\n")
	fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
	for _, s := range suggestions {
		fmt.Fprintf(os.Stderr, "  %s\n", s.Query)
	}
	return fmt.Errorf("no cached results for %q", query)
}

func printCacheEntries(out io.Writer, entries []*cache.SearchEntry, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUERY\tRESULTS\tCACHED\tSTATUS")

	for _, entry := range entries {
		status := "fresh"
		if now.Unix() > entry.ExpiresAt {
			status = "expired"
		}
		cacheDate := time.Unix(entry.CreatedAt, 0).Format("2006-01-02")
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", entry.Query, len(entry.Tracks), cacheDate, status)
	}

	w.Flush()
	fmt.Fprintf(out, "\ntotal: %d searches\n", len(entries))
}

func isYes(response string) bool {
	r := strings.ToLower(strings.TrimSpace(response))
	return r == "y" || r == "yes"
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortCacheEntries(entries []*cache.SearchEntry, sortBy string) {
	switch sortBy {
	case "query":
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Query) < strings.ToLower(entries[j].Query)
		})
	case "size":
		sort.SliceStable(entries, func(i, j int) bool {
			return len(entries[i].Tracks) > len(entries[j].Tracks)
		})
	case "date":
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}

// findSimilarQueries returns up to five cached queries that share a word
// with query or contain it.
func findSimilarQueries(entries []*cache.SearchEntry, query string) []*cache.SearchEntry {
	if len(entries) == 0 {
		return nil
	}

	queryNorm := cache.NormalizeQuery(query)
	if queryNorm == "" {
		return nil
	}

	var matches []*cache.SearchEntry

	// first pass: substring either way
	for _, entry := range entries {
		entryNorm := cache.NormalizeQuery(entry.Query)
		if strings.Contains(entryNorm, queryNorm) || strings.Contains(queryNorm, entryNorm) {
			matches = append(matches, entry)
		}
	}

	if len(matches) == 0 {
		// second pass: any shared word
		words := strings.Fields(queryNorm)
		for _, entry := range entries {
			entryWords := strings.Fields(cache.NormalizeQuery(entry.Query))
			if sharesWord(words, entryWords) {
				matches = append(matches, entry)
			}
		}
	}

	if len(matches) > 5 {
		matches = matches[:5]
	}
	return matches
}

func sharesWord(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
