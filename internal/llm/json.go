// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome tags how a model response was turned into a value, so callers
// can tell genuine model output from deterministic fallbacks.
type Outcome string

const (
	// OutcomeParsed means the response decoded cleanly.
	OutcomeParsed Outcome = "parsed"

	// OutcomeFallback means the response was malformed and the caller
	// substituted a deterministic fallback value.
	OutcomeFallback Outcome = "fallback"
)

// ExtractJSON strips fenced code blocks and surrounding prose from a
// model response, returning the first JSON object or array it contains.
// The API enforces no schema server-side; every call site supplies its
// own fallback for unparseable output.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip a fenced code block if present: ```json ... ``` or ``` ... ```.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			// Drop the language tag line (e.g. "json").
			first := strings.TrimSpace(rest[:nl])
			if len(first) <= 8 && !strings.ContainsAny(first, "{[") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	// Trim prose around the outermost object or array.
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	start := objStart
	closer := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < objStart) {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return s
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// Decode extracts and unmarshals the JSON payload of a model response
// into v.
func Decode(raw string, v any) error {
	payload := ExtractJSON(raw)
	if payload == "" {
		return fmt.Errorf("response contains no JSON")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("parsing model JSON: %w", err)
	}
	return nil
}
