package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtractURLsCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "url header",
			content: "URL,Notes\nhttps://a.example/post,first\nhttps://b.example/post,second\n",
			want:    []string{"https://a.example/post", "https://b.example/post"},
		},
		{
			name:    "link header matched case-insensitively",
			content: "Title,LINK\nfirst,https://a.example\nsecond,https://b.example\n",
			want:    []string{"https://a.example", "https://b.example"},
		},
		{
			name:    "blank values skipped",
			content: "url\nhttps://a.example\n   \nhttps://b.example\n",
			want:    []string{"https://a.example", "https://b.example"},
		},
		{
			name:    "duplicates kept in order",
			content: "url\nhttps://a.example\nhttps://a.example\n",
			want:    []string{"https://a.example", "https://a.example"},
		},
		{
			name:    "short rows tolerated",
			content: "Title,URL\nonly-title\nsecond,https://b.example\n",
			want:    []string{"https://b.example"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls, err := ExtractURLs(writeTempCSV(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, urls)
		})
	}
}

func TestExtractURLsWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Link", "Title"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"https://a.example", "one"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"", "blank"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"https://b.example", "two"}))

	path := filepath.Join(t.TempDir(), "urls.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	urls, err := ExtractURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)
}

func TestExtractURLsErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "unsupported extension",
			path: func(t *testing.T) string { return "notes.txt" },
		},
		{
			name: "no url column",
			path: func(t *testing.T) string {
				return writeTempCSV(t, "Title,Author\nfirst,me\n")
			},
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeTempCSV(t, "") },
		},
		{
			name: "unreadable workbook",
			path: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "broken.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0644))
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractURLs(tt.path(t))
			var formatErr *InputFormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestExtractURLsHeaderOnly(t *testing.T) {
	urls, err := ExtractURLs(writeTempCSV(t, "URL\n"))
	require.NoError(t, err)
	assert.Empty(t, urls)
}
