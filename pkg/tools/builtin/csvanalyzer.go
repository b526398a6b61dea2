// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/factotum-ai/factotum/pkg/tools"
)

// CSVAnalyzer returns a tool that computes simple column statistics over a
// CSV file. Input format: "file_path|operation column_name".
func CSVAnalyzer() tools.Spec {
	return tools.Spec{
		Name:        "CSVAnalyzer",
		Description: "Analyze CSV files with operations like sum, average, count, max, min. Format: 'file_path|operation column_name'",
		Func: func(_ context.Context, input string) string {
			return analyzeCSV(input)
		},
	}
}

func analyzeCSV(input string) string {
	parts := strings.SplitN(input, "|", 2)
	if len(parts) != 2 {
		return "Please provide format: 'file_path|operation' where operation is like 'sum column_name' or 'average column_name'"
	}
	path := strings.TrimSpace(parts[0])
	operation := strings.TrimSpace(parts[1])

	opParts := strings.Fields(operation)
	if len(opParts) < 2 {
		return "Operation should be like 'sum column_name' or 'average column_name'"
	}
	action := strings.ToLower(opParts[0])
	column := strings.Join(opParts[1:], " ")

	records, err := readCSVRecords(path)
	if err != nil {
		return fmt.Sprintf("Error analyzing CSV: %v", err)
	}
	if len(records) == 0 {
		return "Error analyzing CSV: file is empty"
	}

	header := records[0]
	colIdx := -1
	for i, name := range header {
		if name == column {
			colIdx = i
			break
		}
	}
	if colIdx < 0 {
		return fmt.Sprintf("Column '%s' not found. Available columns: [%s]",
			column, strings.Join(header, ", "))
	}

	// Count includes every non-empty cell; the numeric aggregates skip
	// cells that do not parse.
	var (
		values  []float64
		nonNull int
	)
	for _, row := range records[1:] {
		if colIdx >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[colIdx])
		if cell == "" {
			continue
		}
		nonNull++
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			values = append(values, v)
		}
	}

	switch action {
	case "count":
		return fmt.Sprintf("Count of non-null values in '%s': %d", column, nonNull)
	case "sum", "average", "mean", "max", "min":
		if len(values) == 0 {
			return fmt.Sprintf("Error analyzing CSV: column '%s' has no numeric values", column)
		}
	default:
		return fmt.Sprintf("Unsupported operation: %s. Try: sum, average, count, max, min", action)
	}

	switch action {
	case "sum":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return fmt.Sprintf("Sum of '%s': %s", column, formatNumber(sum))
	case "average", "mean":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return fmt.Sprintf("Average of '%s': %s", column, formatNumber(sum/float64(len(values))))
	case "max":
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return fmt.Sprintf("Maximum value in '%s': %s", column, formatNumber(max))
	default: // min
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return fmt.Sprintf("Minimum value in '%s': %s", column, formatNumber(min))
	}
}
