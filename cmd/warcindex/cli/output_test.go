// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestEmitJSON(t *testing.T) {
	var output bytes.Buffer
	disabled := JSONOutput{}
	if done, err := disabled.EmitJSON(&output, []string{"a"}); done || err != nil || output.Len() != 0 {
		t.Fatalf("EmitJSON without --json = %v, %v, wrote %q", done, err, output.String())
	}

	enabled := JSONOutput{OutputJSON: true}
	var hits []struct{ Score float64 }
	if done, err := enabled.EmitJSON(&output, hits); !done || err != nil {
		t.Fatalf("EmitJSON = %v, %v", done, err)
	}
	if strings.TrimSpace(output.String()) != "[]" {
		t.Errorf("nil slice encoded as %q, want []", output.String())
	}

	output.Reset()
	value := map[string]any{"indexed": 3, "status": "completed"}
	if err := WriteJSON(&output, value); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(output.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if decoded["status"] != "completed" || decoded["indexed"] != float64(3) {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(output.String(), "\n  ") {
		t.Errorf("output is not indented: %q", output.String())
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		format   string
		wantJSON bool
	}{
		// A buffer is not a terminal, so auto picks JSON.
		{FormatAuto, true},
		{FormatJSON, true},
		{FormatText, false},
	}
	for _, test := range tests {
		t.Run(test.format, func(t *testing.T) {
			var output bytes.Buffer
			logger := NewLogger(&output, slog.LevelInfo, test.format)
			logger.Debug("hidden")
			logger.Info("ingest finished", "indexed", 3)

			line := strings.TrimSpace(output.String())
			if strings.Contains(line, "hidden") {
				t.Error("debug line logged at info level")
			}
			isJSON := json.Valid([]byte(line))
			if isJSON != test.wantJSON {
				t.Errorf("line %q: JSON = %v, want %v", line, isJSON, test.wantJSON)
			}
			if !strings.Contains(line, "indexed") {
				t.Errorf("line %q lacks the attribute", line)
			}
		})
	}
}
