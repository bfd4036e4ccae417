// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kbgen/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export [knowledge-base-id]",
	Short: "Export a knowledge base to YAML or JSON",
	Long: `Export writes every content record of a knowledge base, including the
precomputed lookup indexes, as a single document for loading into a
retrieval system.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	var out io.Writer = os.Stdout
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx := context.Background()
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml", "":
		if err := st.ExportYAML(ctx, args[0], out); err != nil {
			return err
		}
	case "json":
		contents, err := st.ListContents(ctx, args[0])
		if err != nil {
			return err
		}
		if len(contents) == 0 {
			return fmt.Errorf("knowledge base %s: %w", args[0], store.ErrNotFound)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(contents); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", outputPath)
	}
	return nil
}

func init() {
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("output", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
