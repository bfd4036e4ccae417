// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kbgen/internal/feedback"
	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/internal/store"
	"github.com/pdiddy/kbgen/pkg/types"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record usage telemetry and build tuning reports",
	Long: `Feedback closes the loop between downstream usage and regeneration.
Record appends usage events; report aggregates the trailing window into
per-content effectiveness scores, knowledge gaps, and recommendations.`,
}

// --- record subcommand ---

var feedbackRecordCmd = &cobra.Command{
	Use:   "record [knowledge-base-id]",
	Short: "Record a usage event",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackRecord,
}

func runFeedbackRecord(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	evType, _ := cmd.Flags().GetString("type")
	switch types.UsageEventType(evType) {
	case types.EventLookup, types.EventRetrieval, types.EventFallback, types.EventGap:
	default:
		return fmt.Errorf("unknown event type %q: use lookup, retrieval, fallback, or gap", evType)
	}

	contentID, _ := cmd.Flags().GetString("content")
	query, _ := cmd.Flags().GetString("query")
	success, _ := cmd.Flags().GetBool("success")
	helpful, _ := cmd.Flags().GetBool("helpful")
	followUp, _ := cmd.Flags().GetBool("follow-up")
	latency, _ := cmd.Flags().GetFloat64("latency-ms")

	ev := types.UsageEvent{
		KnowledgeBaseID: args[0],
		ContentID:       contentID,
		Type:            types.UsageEventType(evType),
		Query:           query,
		Success:         success,
		Helpful:         helpful,
		FollowUp:        followUp,
		LatencyMS:       latency,
	}

	loop := feedback.NewLoop(st, cfg.Feedback, nil)
	ctx := context.Background()
	if err := loop.Record(ctx, ev); err != nil {
		return err
	}
	return loop.Flush(ctx)
}

// --- report subcommand ---

var feedbackReportCmd = &cobra.Command{
	Use:   "report [knowledge-base-id]",
	Short: "Build a tuning report from the trailing usage window",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackReport,
}

func runFeedbackReport(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	if window, _ := cmd.Flags().GetDuration("window"); window > 0 {
		cfg.Feedback.Window = window
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	// The model call is optional here; without a key the report still
	// carries rule-based recommendations.
	var llmClient llm.Client
	if cfg.AI.APIKey != "" {
		llmClient, err = llm.NewClaude(cfg.AI, &http.Client{Timeout: cfg.Search.Timeout})
		if err != nil {
			return err
		}
	}

	analyzer := feedback.NewAnalyzer(st, llmClient, cfg.Feedback, nil)
	report, err := analyzer.Report(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	return nil
}

func printReport(report *types.TuningReport) {
	fmt.Fprintf(os.Stdout, "Knowledge base: %s\n", report.KnowledgeBaseID)
	fmt.Fprintf(os.Stdout, "Window:         %s to %s\n\n",
		report.WindowStart.Format("2006-01-02"), report.WindowEnd.Format("2006-01-02"))

	if len(report.Effectiveness) > 0 {
		fmt.Fprintf(os.Stdout, "%-38s  %-7s  %-8s  %-8s  %-9s  %s\n",
			"Content", "Score", "Success", "Helpful", "Follow-up", "Avg ms")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 85))
		for _, e := range report.Effectiveness {
			id := e.ContentID
			if len(id) > 38 {
				id = id[:35] + "..."
			}
			flag := ""
			if e.NeedsImprovement {
				flag = " *"
			}
			fmt.Fprintf(os.Stdout, "%-38s  %-7.0f  %-8.0f  %-8.0f  %-9.0f  %.0f%s\n",
				id, e.Score, e.SuccessRate*100, e.HelpfulRate*100, e.FollowUpRate*100, e.AvgLatencyMS, flag)
		}
		fmt.Fprintln(os.Stdout)
	}

	if len(report.Gaps) > 0 {
		fmt.Fprintln(os.Stdout, "Knowledge gaps:")
		for _, g := range report.Gaps {
			fmt.Fprintf(os.Stdout, "  [%-6s] %3d  %s\n", g.Priority, g.Count, strings.Join(g.Queries, "; "))
		}
		fmt.Fprintln(os.Stdout)
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(os.Stdout, "Recommendations:")
		for i, rec := range report.Recommendations {
			fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, rec)
		}
	}
}

func init() {
	feedbackRecordCmd.Flags().String("type", "lookup", "event type: lookup, retrieval, fallback, gap")
	feedbackRecordCmd.Flags().String("content", "", "content record the event targets")
	feedbackRecordCmd.Flags().String("query", "", "the consumer's query text")
	feedbackRecordCmd.Flags().Bool("success", false, "the lookup found an answer")
	feedbackRecordCmd.Flags().Bool("helpful", false, "the answer was marked helpful")
	feedbackRecordCmd.Flags().Bool("follow-up", false, "the consumer asked a follow-up")
	feedbackRecordCmd.Flags().Float64("latency-ms", 0, "lookup latency in milliseconds")

	feedbackReportCmd.Flags().Duration("window", 0, "analysis window (default: 168h)")
	feedbackReportCmd.Flags().Bool("json", false, "output the report as JSON")

	feedbackCmd.AddCommand(feedbackRecordCmd)
	feedbackCmd.AddCommand(feedbackReportCmd)
	rootCmd.AddCommand(feedbackCmd)
}
