// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kbgen/internal/store"
	"github.com/pdiddy/kbgen/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the status of a generation job",
	Long: `Status reports a job's aggregate state and the per-subtopic pipeline
position: pending, scraping, synthesizing, optimizing, completed, or failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	job, err := st.GetJob(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	}

	fmt.Fprintf(os.Stdout, "Job:       %s\n", job.ID)
	fmt.Fprintf(os.Stdout, "Topic:     %s\n", job.Topic)
	fmt.Fprintf(os.Stdout, "Scale:     %s (%s)\n", job.Scale, job.Mode)
	fmt.Fprintf(os.Stdout, "Status:    %s\n", job.Status)
	if job.Error != "" {
		fmt.Fprintf(os.Stdout, "Error:     %s\n", job.Error)
	}
	fmt.Fprintf(os.Stdout, "Progress:  %d/%d completed, %d failed\n\n",
		job.CompletedCount(), len(job.Subtopics), job.FailedCount())

	fmt.Fprintf(os.Stdout, "%-40s  %-13s  %-8s  %-7s  %s\n", "Subtopic", "Status", "Attempts", "Quality", "Words")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 85))
	for _, sub := range job.Subtopics {
		name := sub.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		quality := "-"
		if sub.Status == types.SubtopicCompleted {
			quality = fmt.Sprintf("%.0f", sub.QualityScore)
		}
		fmt.Fprintf(os.Stdout, "%-40s  %-13s  %-8d  %-7s  %d\n",
			name, sub.Status, sub.Attempts, quality, sub.WordCount)
	}
	return nil
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
