package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole store as JSON",
		Long:  "Export every project and file as one JSON snapshot. Content is base64 encoded.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	a := mustOpenApp(cmd)
	defer a.Close()

	snap, err := a.engine.Snapshot(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(snap, "", "  ")
	b = append(b, '\n')
	if out == "" {
		_, _ = cmd.OutOrStdout().Write(b)
		return
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		exitErr("write export", err)
	}
}
