// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files,
// one file per key: the filename is the key name and the trimmed file
// contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// knownKeys are the key files the pipeline reads. Anything else in the
// directory is ignored.
var knownKeys = []string{
	"anthropic-api-key",
	"tavily-api-key",
}

// Load reads the known key files from dir. A missing directory or a
// missing key file is not an error, and empty values are dropped, so
// the caller sees only the keys that are actually configured. An
// unreadable key file is an error: a present-but-broken credential
// should surface before any work begins.
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)
	for _, key := range knownKeys {
		data, err := os.ReadFile(filepath.Join(dir, key))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading secret %s: %w", key, err)
		}
		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[key] = value
		}
	}
	return secrets, nil
}
