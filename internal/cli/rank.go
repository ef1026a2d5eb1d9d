package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zombar/viralrank/internal/app"
	"github.com/zombar/viralrank/internal/config"
	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/pipeline"
)

const rankTimeout = 30 * time.Minute

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Run the two-stage ranking pipeline over candidate clips",
		Args:  cobra.NoArgs,
		RunE:  runRank,
	}

	cmd.Flags().String("candidates", "", "JSON file with the candidate clips")
	cmd.Flags().String("transcript", "", "JSON file with the transcript segments")
	cmd.Flags().String("out", "", "Write the result here instead of stdout")
	cmd.Flags().Int("top", 0, "Number of clips to return (env: TOP_N)")
	cmd.Flags().String("scorer", "", "External scorer: ollama, openai or none (env: VIRALRANK_SCORER)")
	cmd.Flags().String("embedder", "", "Embedding backend: ollama, openai or none (env: VIRALRANK_EMBEDDER)")
	cmd.Flags().Float64("psych-threshold", 0, "Psychological gate threshold 0-100 (env: PSYCH_THRESHOLD)")
	cmd.Flags().Float64("similarity", 0, "Semantic dedup cosine threshold 0-1 (env: SIMILARITY_THRESHOLD)")
	cmd.Flags().Float64("min-hook", 0, "Minimum hook score 0-10 (env: MIN_HOOK_SCORE)")
	cmd.Flags().Bool("no-llm", false, "Rank by psychological score only")
	_ = cmd.MarkFlagRequired("candidates")
	_ = cmd.MarkFlagRequired("transcript")

	return cmd
}

func runRank(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := applyRankFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	candidatesPath, _ := cmd.Flags().GetString("candidates")
	transcriptPath, _ := cmd.Flags().GetString("transcript")
	var candidates []models.Candidate
	if err := readJSONFile(candidatesPath, &candidates); err != nil {
		return err
	}
	segments, err := readTranscript(transcriptPath)
	if err != nil {
		return err
	}

	logger := commandLogger(cmd)
	backends := app.New(cfg, logger)
	p, err := backends.PipelineFactory()(cfg.Pipeline)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), rankTimeout)
	defer cancel()

	result, err := p.RunPipeline(ctx, candidates, segments, backends.Scorer, cfg.TopN)
	if errors.Is(err, pipeline.ErrEmptyInput) {
		logger.Warn("nothing to rank", "candidates", len(candidates), "segments", len(segments))
	} else if err != nil {
		return err
	}
	if result.Candidates == nil {
		result.Candidates = []models.Candidate{}
	}

	out, _ := cmd.Flags().GetString("out")
	return writeJSON(cmd.OutOrStdout(), out, result)
}

// applyRankFlags overrides loaded settings with the flags set on the command line.
func applyRankFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("top") {
		cfg.TopN, err = flags.GetInt("top")
	}
	if err == nil && flags.Changed("scorer") {
		cfg.Scorer, err = flags.GetString("scorer")
	}
	if err == nil && flags.Changed("embedder") {
		cfg.Embedder, err = flags.GetString("embedder")
	}
	if err == nil && flags.Changed("psych-threshold") {
		cfg.Pipeline.PsychologicalThreshold, err = flags.GetFloat64("psych-threshold")
	}
	if err == nil && flags.Changed("similarity") {
		cfg.Pipeline.SimilarityThreshold, err = flags.GetFloat64("similarity")
	}
	if err == nil && flags.Changed("min-hook") {
		cfg.Pipeline.MinHookScore, err = flags.GetFloat64("min-hook")
	}
	if err == nil && flags.Changed("no-llm") {
		var noLLM bool
		noLLM, err = flags.GetBool("no-llm")
		cfg.Pipeline.UseLLMScoring = !noLLM
	}
	return err
}

// readTranscript accepts either a bare segment array or an object with a
// "segments" field, the shape most transcription tools emit.
func readTranscript(path string) ([]models.Segment, error) {
	var segments []models.Segment
	if err := readJSONFile(path, &segments); err == nil {
		return segments, nil
	}
	var wrapped struct {
		Segments []models.Segment `json:"segments"`
	}
	if err := readJSONFile(path, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Segments, nil
}
