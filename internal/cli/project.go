package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/model"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage projects",
}

func init() {
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		Run:   runProjectCreate,
	}
	createCmd.Flags().String("description", "", "Project description")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects with their file counts",
		Args:    cobra.NoArgs,
		Run:     runProjectList,
	}

	getCmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		Run:   runProjectGet,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a project and every file in it",
		Args:  cobra.ExactArgs(1),
		Run:   runProjectRm,
	}

	projectCmd.AddCommand(createCmd, listCmd, getCmd, rmCmd)
	RootCmd.AddCommand(projectCmd)
}

func runProjectCreate(cmd *cobra.Command, args []string) {
	desc, _ := cmd.Flags().GetString("description")

	a := mustOpenApp(cmd)
	defer a.Close()

	p, err := a.engine.CreateProject(cmd.Context(), args[0], desc)
	if err != nil {
		exitErr("create project", err)
	}
	printOut(cmd, "project", p, func(w io.Writer) {
		fmt.Fprintf(w, "created project %s\n", p.Name)
	})
}

func runProjectList(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	projects, err := a.engine.ListProjects(cmd.Context())
	if err != nil {
		exitErr("list projects", err)
	}
	if projects == nil {
		projects = []model.Project{}
	}
	printOut(cmd, "projects", projects, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tFILES\tCREATED\tDESCRIPTION")
		for _, p := range projects {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Name, p.FileCount, humanize.Time(p.CreatedAt), p.Description)
		}
		tw.Flush()
	})
}

func runProjectGet(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	p, err := a.engine.GetProject(cmd.Context(), args[0])
	if err != nil {
		exitErr("get project", err)
	}
	printOut(cmd, "project", p, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d files, created %s\n", p.Name, p.FileCount, humanize.Time(p.CreatedAt))
		if p.Description != "" {
			fmt.Fprintln(w, p.Description)
		}
	})
}

func runProjectRm(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.engine.DeleteProject(cmd.Context(), args[0]); err != nil {
		exitErr("delete project", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"project":%q}`+"\n", args[0])
}
