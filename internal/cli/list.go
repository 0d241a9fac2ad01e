package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:     "ls <project>",
		Aliases: []string{"list"},
		Short:   "List a project's files",
		Args:    cobra.ExactArgs(1),
		Run:     runList,
	}

	cmd.Flags().StringP("pattern", "p", "", "Glob matched against file names, e.g. '*.md'")
	cmd.Flags().Bool("names-only", false, "Only output file names")

	fileCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	pattern, _ := cmd.Flags().GetString("pattern")
	namesOnly, _ := cmd.Flags().GetBool("names-only")

	a := mustOpenApp(cmd)
	defer a.Close()

	files, err := a.engine.ListFiles(cmd.Context(), args[0], pattern)
	if err != nil {
		exitErr("list", err)
	}
	if files == nil {
		files = []model.FileInfo{}
	}

	if namesOnly {
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f.Name)
		}
		return
	}
	printOut(cmd, "files", files, func(w io.Writer) { writeFileTable(w, files) })
}

func writeFileTable(w io.Writer, files []model.FileInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tNAME\tTYPE\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.Project, f.Name, f.MemoryType, humanize.Bytes(uint64(f.Size)), humanize.Time(f.LastModified))
	}
	tw.Flush()
}
