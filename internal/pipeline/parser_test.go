package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordsValidRows(t *testing.T) {
	content := "q,a,created_at,last_edited_at\n" +
		"What is X?,X is Y,2024-01-01,2024-01-02\n" +
		"What is Z?,Z is W,,\n"

	records, err := ParseRecords(content)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "What is X?", records[0].Question)
	assert.Equal(t, "X is Y", records[0].Answer)
	assert.Equal(t, "Q: What is X?\nA: X is Y", records[0].Content)
	assert.Equal(t, 1, records[0].RowNumber)
	assert.Equal(t, "2024-01-01", records[0].CreatedAt)
	assert.Equal(t, "2024-01-02", records[0].LastEditedAt)
	assert.NotEmpty(t, records[0].UploadedAt)

	assert.Equal(t, 2, records[1].RowNumber)
	assert.Empty(t, records[1].CreatedAt)
}

func TestParseRecordsSkipsEmptyRows(t *testing.T) {
	// 第二行问答皆空，被跳过但仍然占用行号
	content := "q,a\nWhat is X?,X is Y\n,\n"

	records, err := ParseRecords(content)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].RowNumber)
}

func TestParseRecordsRowNumberReflectsFilePosition(t *testing.T) {
	content := "q,a\n" +
		"Q1,A1\n" +
		",skipped\n" +
		"   ,also skipped\n" +
		"Q4,A4\n"

	records, err := ParseRecords(content)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// 行号是原始文件位置，不是输出位置
	assert.Equal(t, 1, records[0].RowNumber)
	assert.Equal(t, 4, records[1].RowNumber)
}

func TestParseRecordsTrimsWhitespace(t *testing.T) {
	content := "q,a\n  Q1  ,  A1  \n"

	records, err := ParseRecords(content)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Q1", records[0].Question)
	assert.Equal(t, "A1", records[0].Answer)
}

func TestParseRecordsHeaderCaseInsensitive(t *testing.T) {
	content := "Q,A\nQ1,A1\n"

	records, err := ParseRecords(content)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParseRecordsEmptyInput(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty content", ""},
		{"header only", "q,a\n"},
		{"all rows invalid", "q,a\n,\nQ only,\n,A only\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecords(tc.content)
			require.ErrorIs(t, err, ErrEmptyInput)
		})
	}
}

func TestParseRecordsStructuralErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed quoting", "q,a\n\"unclosed,foo\n"},
		{"missing required columns", "question,answer\nQ1,A1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecords(tc.content)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
		})
	}
}
