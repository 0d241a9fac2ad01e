package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put <project> <name> [content]",
		Short: "Write a file",
		Long:  "Write a file's content, replacing what was there. Content can be a positional arg or piped via stdin.",
		Args:  cobra.MinimumNArgs(2),
		Run:   runPut,
	}

	cmd.Flags().StringP("memory-type", "m", "", "Memory type (default: keep the existing type, or storage.default_memory_type)")
	cmd.Flags().String("content-type", "", "Content type hint (default: text/markdown)")
	cmd.Flags().Bool("update", false, "Fail unless the file already exists")
	cmd.Flags().Bool("create", false, "Fail if the file already exists")
	cmd.Flags().BoolP("create-project", "p", false, "Create the project first when it is missing")

	fileCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	memoryType, _ := cmd.Flags().GetString("memory-type")
	contentType, _ := cmd.Flags().GetString("content-type")
	update, _ := cmd.Flags().GetBool("update")
	create, _ := cmd.Flags().GetBool("create")
	createProject, _ := cmd.Flags().GetBool("create-project")

	if update && create {
		exitErr("put", fmt.Errorf("--update and --create are mutually exclusive"))
	}

	// Get content: positional arg first, then check stdin
	var content []byte
	if len(args) > 2 {
		content = []byte(strings.Join(args[2:], " "))
	} else {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok {
			stat, _ := f.Stat()
			if stat == nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
			}
		}
		b, err := io.ReadAll(in)
		if err != nil {
			exitErr("read stdin", err)
		}
		content = b
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	ctx := cmd.Context()
	if createProject {
		if _, err := a.engine.CreateProject(ctx, args[0], ""); err != nil && !errors.Is(err, model.ErrAlreadyExists) {
			exitErr("create project", err)
		}
	}

	req := engine.WriteRequest{
		Project:     args[0],
		Name:        args[1],
		Content:     content,
		ContentType: contentType,
		MemoryType:  model.MemoryType(memoryType),
	}
	var (
		res *store.WriteResult
		err error
	)
	switch {
	case update:
		res, err = a.engine.UpdateFile(ctx, req)
	case create:
		res, err = a.engine.AddFile(ctx, req)
	default:
		res, err = a.engine.WriteFile(ctx, req)
	}
	if err != nil {
		exitErr("put", err)
	}

	printOut(cmd, "result", res, func(w io.Writer) {
		verb := "updated"
		if res.Created {
			verb = "created"
		}
		fmt.Fprintf(w, "%s %s/%s (%s)\n", verb, res.File.Project, res.File.Name, humanize.Bytes(uint64(res.File.Size)))
	})
}
