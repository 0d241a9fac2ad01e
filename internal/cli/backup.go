package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/backup"
	"github.com/rcliao/memory-storage/internal/model"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Aliases: []string{"backups"},
	Short:   "Create, list and restore backup archives",
}

func init() {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Take a backup now",
		Args:  cobra.NoArgs,
		Run:   runBackupCreate,
	}
	createCmd.Flags().String("name", "", "Archive label (default: backup_<timestamp>)")
	createCmd.Flags().String("comment", "", "Free-form note stored with the archive")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List retained archives, newest first",
		Args:    cobra.NoArgs,
		Run:     runBackupList,
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archive",
		Args:  cobra.ExactArgs(1),
		Run:   runBackupShow,
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the whole store with an archive",
		Args:  cobra.ExactArgs(1),
		Run:   runBackupRestore,
	}

	backupCmd.AddCommand(createCmd, listCmd, showCmd, restoreCmd)
	RootCmd.AddCommand(backupCmd)
}

// newBackupManager builds a manager over the app's engine. The timer only runs once
// Start is called.
func (a *app) newBackupManager() (*backup.Manager, error) {
	return backup.NewManager(a.engine, backup.Config{
		Dir:              a.cfg.BackupDir(),
		MaxBackups:       a.cfg.Backup.MaxBackups,
		Interval:         a.cfg.BackupInterval(),
		OnStartup:        a.cfg.Backup.OnStartup,
		CompressionLevel: a.cfg.Backup.CompressionLevel,
		Logger:           a.logger,
	})
}

func mustOpenBackups(cmd *cobra.Command) (*app, *backup.Manager) {
	a := mustOpenApp(cmd)
	m, err := a.newBackupManager()
	if err != nil {
		a.Close()
		exitErr("open backups", err)
	}
	return a, m
}

func runBackupCreate(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	comment, _ := cmd.Flags().GetString("comment")

	a, m := mustOpenBackups(cmd)
	defer a.Close()
	defer m.Close()

	arch, err := m.Trigger(cmd.Context(), backup.TriggerParams{Name: name, Comment: comment})
	if err != nil {
		exitErr("backup", err)
	}
	printOut(cmd, "archive", arch, func(w io.Writer) {
		fmt.Fprintf(w, "created %s (%s, %d files, %s)\n", arch.ID, arch.Name, arch.FileCount, humanize.Bytes(uint64(arch.Size)))
	})
}

func runBackupList(cmd *cobra.Command, args []string) {
	a, m := mustOpenBackups(cmd)
	defer a.Close()
	defer m.Close()

	archives, err := m.List(cmd.Context())
	if err != nil {
		exitErr("list backups", err)
	}
	if archives == nil {
		archives = []model.Archive{}
	}
	printOut(cmd, "archives", archives, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED\tPROJECTS\tFILES\tSIZE")
		for _, arch := range archives {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", arch.ID, arch.Name, humanize.Time(arch.CreatedAt),
				len(arch.Projects), arch.FileCount, humanize.Bytes(uint64(arch.Size)))
		}
		tw.Flush()
	})
}

func runBackupShow(cmd *cobra.Command, args []string) {
	a, m := mustOpenBackups(cmd)
	defer a.Close()
	defer m.Close()

	arch, err := m.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("show backup", err)
	}
	printOut(cmd, "archive", arch, nil)
}

func runBackupRestore(cmd *cobra.Command, args []string) {
	a, m := mustOpenBackups(cmd)
	defer a.Close()
	defer m.Close()

	arch, err := m.Restore(cmd.Context(), args[0])
	if err != nil {
		exitErr("restore", err)
	}
	printOut(cmd, "archive", arch, func(w io.Writer) {
		fmt.Fprintf(w, "restored %s (%s): %d projects, %d files\n", arch.ID, arch.Name, len(arch.Projects), arch.FileCount)
	})
}
