package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON snapshot",
		Long: "Import a snapshot produced by export, from a file or stdin. Files are merged into the " +
			"store, creating projects as needed; --replace swaps the whole store for the snapshot instead.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().Bool("replace", false, "Replace the whole store with the snapshot")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	replace, _ := cmd.Flags().GetBool("replace")

	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read snapshot", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		exitErr("parse json", err)
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	ctx := cmd.Context()
	if replace {
		if err := a.engine.Restore(ctx, &snap); err != nil {
			exitErr("import", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"projects":%d,"files":%d}`+"\n", len(snap.Projects), len(snap.Files))
		return
	}

	if err := snap.Validate(); err != nil {
		exitErr("import", err)
	}
	for _, p := range snap.Projects {
		if _, err := a.engine.CreateProject(ctx, p.Name, p.Description); err != nil && !errors.Is(err, model.ErrAlreadyExists) {
			exitErr("import", err)
		}
	}
	for _, f := range snap.Files {
		_, err := a.engine.WriteFile(ctx, engine.WriteRequest{
			Project:     f.Project,
			Name:        f.Name,
			Content:     f.Content,
			ContentType: f.ContentType,
			MemoryType:  f.MemoryType,
		})
		if err != nil {
			exitErr("import", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"projects":%d,"files":%d}`+"\n", len(snap.Projects), len(snap.Files))
}
