package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/excerpt"
	"github.com/rcliao/memory-storage/internal/model"
)

// searchHit is a search result with the section that matched.
type searchHit struct {
	model.FileInfo `yaml:",inline"`
	Snippet        *excerpt.Section `json:"snippet,omitempty" yaml:"snippet,omitempty" toml:"snippet,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search files by keyword",
		Long:  "Search file names and content for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("project", "p", "", "Limit the search to one project")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().BoolP("snippets", "s", false, "Include the section of each file that matched")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	project, _ := cmd.Flags().GetString("project")
	limit, _ := cmd.Flags().GetInt("limit")
	snippets, _ := cmd.Flags().GetBool("snippets")
	query := strings.Join(args, " ")

	a := mustOpenApp(cmd)
	defer a.Close()

	results, err := a.engine.SearchFiles(cmd.Context(), project, query, limit)
	if err != nil {
		exitErr("search", err)
	}
	if results == nil {
		results = []model.FileInfo{}
	}
	if !snippets {
		printOut(cmd, "files", results, func(w io.Writer) { writeFileTable(w, results) })
		return
	}

	hits, err := withSnippets(cmd.Context(), a.engine, results, query)
	if err != nil {
		exitErr("search", err)
	}
	printOut(cmd, "files", hits, func(w io.Writer) {
		for _, h := range hits {
			fmt.Fprintf(w, "%s/%s\n", h.Project, h.Name)
			if h.Snippet != nil {
				fmt.Fprintf(w, "  lines %d-%d:\n", h.Snippet.StartLine, h.Snippet.EndLine)
				for _, line := range strings.Split(h.Snippet.Text, "\n") {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
	})
}

// withSnippets attaches the first matching section of each file. Name-only matches
// carry no snippet.
func withSnippets(ctx context.Context, e *engine.Engine, files []model.FileInfo, query string) ([]searchHit, error) {
	hits := make([]searchHit, 0, len(files))
	for _, info := range files {
		h := searchHit{FileInfo: info}
		f, err := e.ReadFile(ctx, info.Project, info.Name)
		switch {
		case model.KindOf(err) == model.ErrNotFound:
			continue
		case err != nil:
			return nil, err
		}
		if s, ok := excerpt.Find(string(f.Content), query); ok {
			h.Snippet = &s
		}
		hits = append(hits, h)
	}
	return hits, nil
}
