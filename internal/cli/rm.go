package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <project> <name>",
		Short: "Delete a file and its content",
		Args:  cobra.ExactArgs(2),
		Run:   runRm,
	}

	fileCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.engine.DeleteFile(cmd.Context(), args[0], args[1]); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"project":%q,"name":%q}`+"\n", args[0], args[1])
}
