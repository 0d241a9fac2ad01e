package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/model"
)

// fileOutput is a file with its content as text, for the structured formats.
// Content that is not valid UTF-8 is base64 encoded.
type fileOutput struct {
	model.FileInfo `yaml:",inline"`
	Content        string `json:"content" yaml:"content" toml:"content"`
	Encoding       string `json:"encoding,omitempty" yaml:"encoding,omitempty" toml:"encoding,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "get <project> <name>",
		Short: "Read a file",
		Long:  "Read a file. With --raw (or -f text) only the content is written, byte for byte.",
		Args:  cobra.ExactArgs(2),
		Run:   runGet,
	}

	cmd.Flags().Bool("raw", false, "Write only the content")

	fileCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	raw, _ := cmd.Flags().GetBool("raw")

	a := mustOpenApp(cmd)
	defer a.Close()

	f, err := a.engine.ReadFile(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("get", err)
	}

	writeRaw := func(w io.Writer) {
		_, _ = w.Write(f.Content)
	}
	if raw {
		writeRaw(cmd.OutOrStdout())
		return
	}
	content, enc := model.EncodeContent(f.Content)
	printOut(cmd, "file", fileOutput{FileInfo: f.FileInfo, Content: content, Encoding: enc}, writeRaw)
}
