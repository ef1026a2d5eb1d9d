package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zombar/viralrank/internal/hook"
	"github.com/zombar/viralrank/internal/narrative"
	"github.com/zombar/viralrank/internal/sentence"
)

func newArcsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arcs",
		Short: "Detect hook, tension and payoff arcs in a transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("transcript")
			minWindow, _ := cmd.Flags().GetFloat64("min-window")
			maxWindow, _ := cmd.Flags().GetFloat64("max-window")

			segments, err := readTranscript(path)
			if err != nil {
				return err
			}
			arcs := narrative.New(nil, narrative.WithWindows(minWindow, maxWindow)).DetectArcs(segments)
			if arcs == nil {
				arcs = []narrative.Arc{}
			}
			return writeJSON(cmd.OutOrStdout(), "", arcs)
		},
	}
	cmd.Flags().String("transcript", "", "JSON file with the transcript segments")
	cmd.Flags().Float64("min-window", narrative.DefaultMinWindow, "Smallest arc window in seconds")
	cmd.Flags().Float64("max-window", narrative.DefaultMaxWindow, "Largest arc window in seconds")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func newSentencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentences",
		Short: "Score individual sentences for viral patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := textInput(cmd)
			if err != nil {
				return err
			}
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			top, _ := cmd.Flags().GetInt("top")

			scores := sentence.New(nil).HighScoringSentences(text, threshold, top)
			if scores == nil {
				scores = []sentence.Score{}
			}
			return writeJSON(cmd.OutOrStdout(), "", scores)
		},
	}
	cmd.Flags().String("text", "", "Text to score")
	cmd.Flags().String("transcript", "", "JSON file with the transcript segments")
	cmd.Flags().Float64("threshold", 0.5, "Minimum overall score 0-10")
	cmd.Flags().Int("top", 10, "Maximum sentences to return, 0 for all")
	cmd.MarkFlagsOneRequired("text", "transcript")
	cmd.MarkFlagsMutuallyExclusive("text", "transcript")
	return cmd
}

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Analyze the opening of a clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, _ := cmd.Flags().GetString("text")
			if strings.TrimSpace(text) == "" {
				return errors.New("--text must not be empty")
			}
			return writeJSON(cmd.OutOrStdout(), "", hook.New(nil).AnalyzeHook(text))
		},
	}
	cmd.Flags().String("text", "", "Opening text of the clip")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

// textInput returns --text, or the joined transcript when --transcript is set.
func textInput(cmd *cobra.Command) (string, error) {
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		return text, nil
	}
	path, _ := cmd.Flags().GetString("transcript")
	segments, err := readTranscript(path)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " "), nil
}
