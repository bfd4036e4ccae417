// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kbgen/internal/store"
	"github.com/pdiddy/kbgen/pkg/types"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel a generation job",
	Long: `Cancel marks a non-terminal job as cancelled. Content already persisted
by completed subtopics is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	job, err := st.GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	switch job.Status {
	case types.JobCompleted, types.JobFailed, types.JobCancelled:
		return fmt.Errorf("job %s already %s", job.ID, job.Status)
	}

	if err := st.UpdateJobStatus(ctx, job.ID, types.JobCancelled, "cancelled"); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled (%d subtopics completed)\n",
		job.ID, job.CompletedCount())
	return nil
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
