package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// urlColumnAliases are the recognized header names for the URL-bearing
// column, compared case-insensitively.
var urlColumnAliases = []string{"url", "link"}

// ExtractURLs reads a spreadsheet and returns its URL column values in row
// order. Blank values are skipped, duplicates are kept. It fails with
// *InputFormatError when the file cannot be parsed or no recognized column
// exists.
func ExtractURLs(path string) ([]string, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		rows, err = readWorkbookRows(path)
	case ".csv":
		rows, err = readCSVRows(path)
	default:
		return nil, &InputFormatError{Reason: fmt.Sprintf("unsupported file type %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, &InputFormatError{Reason: err.Error()}
	}

	return extractURLColumn(rows)
}

func readWorkbookRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return rows, nil
}

// extractURLColumn locates the URL column by header alias and collects its
// non-blank values in order.
func extractURLColumn(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, &InputFormatError{Reason: "file is empty"}
	}

	col := -1
	for i, header := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(header))
		for _, alias := range urlColumnAliases {
			if name == alias {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, &InputFormatError{Reason: "no URL or Link column found"}
	}

	var urls []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		urls = append(urls, value)
	}
	return urls, nil
}
