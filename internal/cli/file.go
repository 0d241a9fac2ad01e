package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/model"
)

var fileCmd = &cobra.Command{
	Use:     "file",
	Aliases: []string{"files"},
	Short:   "Read and write memory files",
}

func init() {
	createCmd := &cobra.Command{
		Use:   "create <project> <name>",
		Short: "Create an empty file",
		Args:  cobra.ExactArgs(2),
		Run:   runFileCreate,
	}
	createCmd.Flags().StringP("memory-type", "m", "", "Memory type (default: storage.default_memory_type)")

	fileCmd.AddCommand(createCmd)
	RootCmd.AddCommand(fileCmd)
}

func runFileCreate(cmd *cobra.Command, args []string) {
	memoryType, _ := cmd.Flags().GetString("memory-type")

	a := mustOpenApp(cmd)
	defer a.Close()

	info, err := a.engine.CreateFile(cmd.Context(), args[0], args[1], model.MemoryType(memoryType))
	if err != nil {
		exitErr("create file", err)
	}
	printOut(cmd, "file", info, func(w io.Writer) {
		fmt.Fprintf(w, "created %s/%s (%s)\n", info.Project, info.Name, info.MemoryType)
	})
}
