// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kbgen/pkg/types"
)

// AppendContent persists an authored knowledge content record. The full
// record, including the RLM index, is stored as a JSON document.
func (s *Store) AppendContent(ctx context.Context, content *types.KnowledgeContent) error {
	record, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encoding content record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contents (id, kb_id, job_id, subtopic, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		content.ID, content.KnowledgeBaseID, content.JobID, content.Metadata.Subtopic,
		string(record), time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting content: %w", err)
	}
	return nil
}

// GetContent loads a single content record by id.
func (s *Store) GetContent(ctx context.Context, id string) (*types.KnowledgeContent, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM contents WHERE id = ?`, id).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading content %s: %w", id, err)
	}
	var content types.KnowledgeContent
	if err := json.Unmarshal([]byte(record), &content); err != nil {
		return nil, fmt.Errorf("decoding content %s: %w", id, err)
	}
	return &content, nil
}

// ListContents loads all content records for a knowledge base, in
// insertion order.
func (s *Store) ListContents(ctx context.Context, kbID string) ([]*types.KnowledgeContent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM contents WHERE kb_id = ? ORDER BY created_at`, kbID)
	if err != nil {
		return nil, fmt.Errorf("listing contents: %w", err)
	}
	defer rows.Close()

	var contents []*types.KnowledgeContent
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning content record: %w", err)
		}
		var content types.KnowledgeContent
		if err := json.Unmarshal([]byte(record), &content); err != nil {
			return nil, fmt.Errorf("decoding content record: %w", err)
		}
		contents = append(contents, &content)
	}
	return contents, rows.Err()
}

// knowledgeBaseExport is the YAML document shape produced by ExportYAML.
type knowledgeBaseExport struct {
	KnowledgeBaseID string                    `yaml:"knowledge_base_id"`
	ExportedAt      string                    `yaml:"exported_at"`
	Contents        []*types.KnowledgeContent `yaml:"contents"`
}

// ExportYAML writes every content record of a knowledge base to w as a
// single YAML document, suitable for loading into a retrieval system.
func (s *Store) ExportYAML(ctx context.Context, kbID string, w io.Writer) error {
	contents, err := s.ListContents(ctx, kbID)
	if err != nil {
		return err
	}
	if len(contents) == 0 {
		return fmt.Errorf("knowledge base %s: %w", kbID, ErrNotFound)
	}

	doc := knowledgeBaseExport{
		KnowledgeBaseID: kbID,
		ExportedAt:      time.Now().UTC().Format(time.RFC3339),
		Contents:        contents,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return enc.Close()
}
