// Package cli implements the viralrank command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zombar/viralrank/pkg/logging"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "viralrank",
		Short:         "Rank transcript clips by viral potential",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newRankCmd(),
		newArcsCmd(),
		newSentencesCmd(),
		newHookCmd(),
	)
	return root
}

// commandLogger writes text logs to the command's error stream so JSON
// output stays clean.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.NewText(cmd.ErrOrStderr(), level)
}

func readJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSON writes v indented to the file at path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
