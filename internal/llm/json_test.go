// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"bare object",
			`{"a":1}`,
			`{"a":1}`,
		},
		{
			"bare array",
			`["a","b"]`,
			`["a","b"]`,
		},
		{
			"fenced with language tag",
			"```json\n{\"a\":1}\n```",
			`{"a":1}`,
		},
		{
			"fenced without language tag",
			"```\n[1,2,3]\n```",
			`[1,2,3]`,
		},
		{
			"prose around object",
			`Here is the result: {"a":1} Hope that helps!`,
			`{"a":1}`,
		},
		{
			"prose around fenced block",
			"Sure, here you go:\n```json\n{\"score\": 85}\n```\nLet me know if you need more.",
			`{"score": 85}`,
		},
		{
			"array before object picks array",
			`[{"a":1}] trailing`,
			`[{"a":1}]`,
		},
		{
			"object containing array",
			`note {"items":[1,2]} note`,
			`{"items":[1,2]}`,
		},
		{
			"no json at all",
			"I could not produce JSON, sorry.",
			"I could not produce JSON, sorry.",
		},
		{
			"unbalanced braces returned as-is",
			"{ broken",
			"{ broken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Score float64 `json:"score"`
	}
	if err := Decode("The score follows.\n```json\n{\"score\": 73.5}\n```", &v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Score != 73.5 {
		t.Errorf("Score = %v, want 73.5", v.Score)
	}

	if err := Decode("no json here", &v); err == nil {
		t.Error("prose without JSON must not decode")
	}
	if err := Decode("", &v); err == nil {
		t.Error("empty response must not decode")
	}
}
