package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	stats, err := a.engine.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	printOut(cmd, "stats", stats, func(w io.Writer) {
		fmt.Fprintf(w, "backend:  %s\n", stats.Backend)
		if stats.DBPath != "" {
			fmt.Fprintf(w, "database: %s (%s)\n", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
		}
		fmt.Fprintf(w, "projects: %d\n", stats.Projects)
		fmt.Fprintf(w, "files:    %d (%s)\n", stats.Files, humanize.Bytes(uint64(stats.ContentBytes)))
		types := make([]string, 0, len(stats.MemoryTypes))
		for t := range stats.MemoryTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w, "  %-12s %d\n", t, stats.MemoryTypes[t])
		}
	})
}
