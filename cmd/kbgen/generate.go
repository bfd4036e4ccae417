// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/internal/organize"
	"github.com/pdiddy/kbgen/internal/pipeline"
	"github.com/pdiddy/kbgen/internal/research"
	"github.com/pdiddy/kbgen/internal/review"
	"github.com/pdiddy/kbgen/internal/store"
	"github.com/pdiddy/kbgen/internal/verify"
	"github.com/pdiddy/kbgen/internal/websearch"
	"github.com/pdiddy/kbgen/internal/writer"
	"github.com/pdiddy/kbgen/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate a knowledge base for a topic",
	Long: `Generate decomposes a topic into subtopics and runs each through the
five-stage pipeline: research, verification, organization, writing, and
quality review. Progress is reported per subtopic; completed content is
persisted incrementally, so a partial run still yields a usable knowledge
base.

Scale presets control breadth: quick (5 subtopics), standard (12),
comprehensive (25), book (50).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cfg := pipelineConfig(cmd)

	scale := types.ScalePreset(mustString(cmd, "scale"))
	mode := types.ModeParallel
	if sequential, _ := cmd.Flags().GetBool("sequential"); sequential {
		mode = types.ModeSequential
	}
	applyGenerateFlags(cmd, &cfg)

	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	llmClient, err := llm.NewClaude(cfg.AI, &http.Client{Timeout: cfg.Search.Timeout})
	if err != nil {
		return err
	}
	searchClient, err := websearch.NewTavily(cfg.Search, &http.Client{Timeout: cfg.Search.Timeout})
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	agents := pipeline.Agents{
		Researcher: research.NewCollector(llmClient, searchClient, log),
		Verifier:   verify.NewVerifier(llmClient, cfg.Verify, log),
		Organizer:  organize.NewOrganizer(llmClient, cfg.Organize, log),
		Writer:     writer.NewWriter(llmClient, cfg.Write, log),
		Reviewer:   review.NewReviewer(llmClient, cfg.Review, log),
	}

	bus := &pipeline.Bus{}
	bus.Subscribe(printProgress)

	o := pipeline.NewOrchestrator(agents, st, llmClient, cfg, bus, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := o.StartGeneration(ctx, topic, mode, scale)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Job %s started: %d subtopics, knowledge base %s\n",
		job.ID, len(job.Subtopics), job.KnowledgeBaseID)

	if err := o.Run(ctx, job); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\nJob %s %s: %d/%d subtopics completed\n",
		job.ID, job.Status, job.CompletedCount(), len(job.Subtopics))
	if job.Status == types.JobFailed {
		return fmt.Errorf("generation failed: %s", job.Error)
	}
	return nil
}

// applyGenerateFlags overlays command-line flags onto the config.
func applyGenerateFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.AI.Model = v
	}
	if v, _ := cmd.Flags().GetString("level"); v != "" {
		cfg.Organize.TargetLevel = v
	}
	if v, _ := cmd.Flags().GetString("language"); v != "" {
		cfg.Write.Language = v
	}
	if v, _ := cmd.Flags().GetString("secondary-language"); v != "" {
		cfg.Write.SecondaryLanguage = v
	}
	if v, _ := cmd.Flags().GetInt("max-sources"); v > 0 {
		cfg.Research.MaxSources = v
	}
	if v, _ := cmd.Flags().GetInt("max-retries"); v >= 0 && cmd.Flags().Changed("max-retries") {
		cfg.Review.MaxRetries = v
	}
	if noVerify, _ := cmd.Flags().GetBool("no-verify"); noVerify {
		cfg.Verify.Enabled = false
	}
	if noReview, _ := cmd.Flags().GetBool("no-review"); noReview {
		cfg.Review.Enabled = false
	}
	if noExercises, _ := cmd.Flags().GetBool("no-exercises"); noExercises {
		cfg.Organize.EnableExercises = false
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.Review.Strict = true
	}
	if autoFix, _ := cmd.Flags().GetBool("auto-fix"); autoFix {
		cfg.Review.AutoFix = true
	}
}

// printProgress renders pipeline events to stdout, one line each.
func printProgress(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventJobStarted:
		fmt.Fprintf(os.Stdout, "%s\n", ev.Message)
	case pipeline.EventDiscoveryComplete:
		fmt.Fprintf(os.Stdout, "%s\n", ev.Message)
	case pipeline.EventWaveStarted:
		fmt.Fprintf(os.Stdout, "-- %s: %s --\n", ev.ParallelStatus, ev.Message)
	case pipeline.EventSubtopicStatus:
		agent := ev.Agent
		if agent == "" {
			agent = string(ev.Status)
		}
		fmt.Fprintf(os.Stdout, "  [%d/%d] %-30s %s\n", ev.Current, ev.Total, ev.Subtopic, agent)
	case pipeline.EventSubtopicCompleted:
		fmt.Fprintf(os.Stdout, "  [%d/%d] %-30s done (quality %.0f)\n", ev.Current, ev.Total, ev.Subtopic, ev.QualityScore)
	case pipeline.EventSubtopicFailed:
		fmt.Fprintf(os.Stdout, "  [%d/%d] %-30s FAILED: %s\n", ev.Current, ev.Total, ev.Subtopic, ev.Message)
	}
}

func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	generateCmd.Flags().String("scale", "standard", "scale preset: quick, standard, comprehensive, book")
	generateCmd.Flags().Bool("sequential", false, "process subtopics one at a time instead of in waves")
	generateCmd.Flags().String("model", "", "AI model identifier")
	generateCmd.Flags().String("level", "", "target learner level (CEFR, e.g. B1)")
	generateCmd.Flags().String("language", "", "primary content language (default en)")
	generateCmd.Flags().String("secondary-language", "", "translation language for vocabulary (default de)")
	generateCmd.Flags().Int("max-sources", 0, "override sources per subtopic (0 = scale preset)")
	generateCmd.Flags().Int("max-retries", 2, "extra pipeline attempts per subtopic")
	generateCmd.Flags().Bool("strict", false, "raise the quality gate from 60 to 75")
	generateCmd.Flags().Bool("auto-fix", false, "propose improvements for minor review issues")
	generateCmd.Flags().Bool("no-verify", false, "skip the source verification stage")
	generateCmd.Flags().Bool("no-review", false, "skip the quality review stage")
	generateCmd.Flags().Bool("no-exercises", false, "skip exercise planning and writing")
	generateCmd.Flags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(generateCmd)
}
