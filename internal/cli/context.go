package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/excerpt"
	"github.com/rcliao/memory-storage/internal/model"
)

// contextFile is one file packed into the context output.
type contextFile struct {
	Project   string `json:"project" yaml:"project" toml:"project"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Content   string `json:"content" yaml:"content" toml:"content"`
	Truncated bool   `json:"truncated,omitempty" yaml:"truncated,omitempty" toml:"truncated,omitempty"`
}

// contextResult is the assembled memory bank for an agent prompt.
type contextResult struct {
	Budget  int           `json:"budget" yaml:"budget" toml:"budget"`
	Used    int           `json:"used" yaml:"used" toml:"used"`
	Skipped int           `json:"skipped" yaml:"skipped" toml:"skipped"`
	Files   []contextFile `json:"files" yaml:"files" toml:"files"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "context <project>...",
		Short: "Assemble a memory bank for an agent prompt",
		Long: "Concatenate the files of the given projects, in order, into a byte budget. " +
			"The first file that does not fit is cut at a section or line boundary; the rest are skipped.",
		Args: cobra.MinimumNArgs(1),
		Run:  runContext,
	}

	cmd.Flags().StringP("pattern", "p", "", "Glob matched against file names")
	cmd.Flags().IntP("budget", "b", 16000, "Max content bytes in output")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	pattern, _ := cmd.Flags().GetString("pattern")
	budget, _ := cmd.Flags().GetInt("budget")
	if budget <= 0 {
		exitErr("context", fmt.Errorf("budget must be positive"))
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	result, err := assembleContext(cmd.Context(), a.engine, args, pattern, budget)
	if err != nil {
		exitErr("context", err)
	}

	printOut(cmd, "context", result, func(w io.Writer) {
		for _, f := range result.Files {
			fmt.Fprintf(w, "## %s/%s\n\n%s\n\n", f.Project, f.Name, f.Content)
		}
	})
}

func assembleContext(ctx context.Context, e *engine.Engine, projects []string, pattern string, budget int) (*contextResult, error) {
	result := &contextResult{Budget: budget, Files: []contextFile{}}
	full := false
	for _, project := range projects {
		files, err := e.ListFiles(ctx, project, pattern)
		if err != nil {
			return nil, err
		}
		for _, info := range files {
			if full {
				result.Skipped++
				continue
			}
			f, err := e.ReadFile(ctx, info.Project, info.Name)
			if err != nil {
				// deleted since the listing
				if model.KindOf(err) == model.ErrNotFound {
					continue
				}
				return nil, err
			}
			cf := contextFile{Project: f.Project, Name: f.Name}
			cf.Content, cf.Truncated = excerpt.Fit(string(f.Content), budget-result.Used)
			full = cf.Truncated || result.Used+len(cf.Content) >= budget
			result.Used += len(cf.Content)
			result.Files = append(result.Files, cf)
		}
	}
	return result, nil
}
