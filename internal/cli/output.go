package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// render writes v in the selected format. TOML needs a table at the top level, so
// slices are wrapped under key. text may be nil when v has no text form.
func render(w io.Writer, format, key string, v any, text func(io.Writer)) error {
	switch strings.ToLower(format) {
	case "", "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "toml":
		if k := reflect.ValueOf(v).Kind(); k == reflect.Slice || k == reflect.Array {
			v = map[string]any{key: v}
		}
		b, err := toml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "text":
		if text == nil {
			return render(w, "json", key, v, nil)
		}
		text(w)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func printOut(cmd *cobra.Command, key string, v any, text func(io.Writer)) {
	if err := render(cmd.OutOrStdout(), formatFlag, key, v, text); err != nil {
		exitErr("output", err)
	}
}
