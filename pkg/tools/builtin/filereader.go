// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/factotum-ai/factotum/pkg/tools"
)

// textPreviewLimit caps how much file content reaches the prompt.
const textPreviewLimit = 2000

// FileReader returns a tool that reads local text and CSV files.
func FileReader() tools.Spec {
	return tools.Spec{
		Name:        "FileReader",
		Description: "Read and analyze local files (CSV, TXT, MD). Provide the full file path.",
		Func: func(_ context.Context, input string) string {
			path := strings.TrimSpace(input)
			if path == "" {
				return "Error reading file: no file path given"
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Sprintf("File not found: %s", path)
			}

			switch ext := strings.ToLower(filepath.Ext(path)); ext {
			case ".csv":
				return readCSVSummary(path)
			case ".txt", ".md", ".log", ".json", ".yaml", ".yml":
				return readTextFile(path)
			default:
				return fmt.Sprintf("Unsupported file type: %s", ext)
			}
		},
	}
}

func readTextFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}
	content := string(data)
	if len(content) > textPreviewLimit {
		// Back up to a rune boundary so the cut never emits invalid UTF-8.
		cut := textPreviewLimit
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + "..."
	}
	return "Text file content:\n" + content
}

// readCSVSummary reports shape, column names, and the first rows rather
// than dumping the whole file into the prompt.
func readCSVSummary(path string) string {
	records, err := readCSVRecords(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}
	if len(records) == 0 {
		return "CSV file is empty"
	}

	header := records[0]
	rows := records[1:]

	var b strings.Builder
	fmt.Fprintf(&b, "CSV File Summary:\n")
	fmt.Fprintf(&b, "- Shape: %d rows, %d columns\n", len(rows), len(header))
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(header, ", "))
	b.WriteString("- First rows:\n")

	preview := rows
	if len(preview) > 5 {
		preview = preview[:5]
	}
	b.WriteString("  " + strings.Join(header, " | ") + "\n")
	for _, row := range preview {
		b.WriteString("  " + strings.Join(row, " | ") + "\n")
	}
	return b.String()
}

func readCSVRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}
