package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-openimage"
	"github.com/anatolykoptev/go-openimage/internal/app"
)

var errCacheDisabled = errors.New("cache is disabled (cache.enabled: false)")

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the result cache",
	}
	cmd.AddCommand(c.cacheStatsCmd(), c.cacheClearCmd(), c.cacheSearchCmd())
	return cmd
}

// withCache is withApp for commands that need the cache.
func (c *cli) withCache(fn func(openimage.ResultCache) error) error {
	return c.withApp(func(a *app.App) error {
		if a.Cache == nil {
			return errCacheDisabled
		}
		return fn(a.Cache)
	})
}

func (c *cli) cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withCache(func(rc openimage.ResultCache) error {
				st, err := rc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

func printStats(w io.Writer, st openimage.CacheStats) {
	fmt.Fprintln(w, "Cache Statistics")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Total entries:     %d\n", st.TotalEntries)
	fmt.Fprintf(w, "Active entries:    %d\n", st.ActiveEntries)
	fmt.Fprintf(w, "Expired entries:   %d\n", st.ExpiredEntries)
	fmt.Fprintf(w, "Total cache hits:  %d\n", st.TotalHits)
	fmt.Fprintf(w, "Avg hits/entry:    %.2f\n", st.HitRate)
	fmt.Fprintf(w, "Face entries:      %d (%d with faces)\n", st.FaceEntries, st.FacesDetected)
	fmt.Fprintf(w, "Gender entries:    %d\n", st.GenderEntries)
	fmt.Fprintf(w, "Database size:     %.2f MB\n", float64(st.SizeBytes)/(1<<20))
	fmt.Fprintf(w, "TTL (days):        %g\n", st.TTL.Hours()/24)

	if len(st.PopularQueries) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Most Popular Queries:")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for i, q := range st.PopularQueries {
		fmt.Fprintf(w, "%d. %s (%s) - %s: %d hits\n", i+1, q.Query, q.EntityType, q.Source, q.Hits)
	}
}

func (c *cli) cacheClearCmd() *cobra.Command {
	var expired, yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cache entries, or only expired ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return c.withCache(func(rc openimage.ResultCache) error {
				if expired {
					n, err := rc.ClearExpired(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d expired cache entries\n", n)
					return nil
				}
				if !yes && !confirm(cmd.InOrStdin(), out, "This will clear ALL cache entries. Are you sure? (yes/no): ") {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
				n, err := rc.ClearAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d cache entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&expired, "expired", false, "Clear only expired entries")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *cli) cacheSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <pattern>",
		Short: "List cached queries matching a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return c.withCache(func(rc openimage.ResultCache) error {
				cs, ok := rc.(openimage.CacheSearcher)
				if !ok {
					return errors.New("cache backend does not support search")
				}
				entries, err := cs.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintf(out, "No cache entries found matching %q\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Found %d matching cache entries:\n", len(entries))
				sep := strings.Repeat("-", 80)
				for _, e := range entries {
					fmt.Fprintln(out, sep)
					fmt.Fprintf(out, "Query:      %s\n", e.Query)
					fmt.Fprintf(out, "Type:       %s\n", e.EntityType)
					fmt.Fprintf(out, "Source:     %s\n", e.Source)
					fmt.Fprintf(out, "Results:    %d\n", e.ResultCount)
					fmt.Fprintf(out, "Hits:       %d\n", e.HitCount)
					fmt.Fprintf(out, "Created:    %s\n", e.CreatedAt.Format(time.RFC3339))
					fmt.Fprintf(out, "Expires:    %s\n", e.ExpiresAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}
