package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"kb-ingest-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 是 Embedder 接口的测试替身。
type fakeEmbedder struct {
	fn      func(text string) ([]float32, error)
	calls   int
	lastJWT string
}

func (f *fakeEmbedder) Embed(ctx context.Context, jwt, text string) ([]float32, error) {
	f.calls++
	f.lastJWT = jwt
	if f.fn != nil {
		return f.fn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func testJob() tasks.IngestJob {
	return tasks.IngestJob{
		FileID:      "f-1",
		Filename:    "faq.csv",
		GCSBucket:   "kb-uploads",
		GCSFilePath: "uploads/faq.csv",
		UserID:      "u-42",
		UserEmail:   "user@example.com",
		JWT:         "test-jwt",
	}
}

func testRecord(rowNumber int, question string) Record {
	return Record{
		Question:     question,
		Answer:       "an answer",
		Content:      "Q: " + question + "\nA: an answer",
		RowNumber:    rowNumber,
		CreatedAt:    "2024-01-01",
		LastEditedAt: "2024-01-02",
		UploadedAt:   "1700000000000",
	}
}

func TestGenerateVectorSuccess(t *testing.T) {
	embedder := &fakeEmbedder{}
	job := testJob()
	rec := testRecord(3, "What is X?")

	entry := GenerateVector(context.Background(), embedder, rec, job)
	require.NotNil(t, entry)

	// SHA-256 的十六进制编码固定 64 字符
	assert.Len(t, entry.ID, 64)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, entry.Values)
	assert.Equal(t, 3, entry.Metadata.RowNumber)
	assert.Equal(t, "What is X?", entry.Metadata.Question)
	assert.Equal(t, "an answer", entry.Metadata.Answer)
	assert.Equal(t, rec.Content, entry.Metadata.Content)
	assert.Equal(t, "faq.csv", entry.Metadata.Filename)
	assert.Equal(t, "u-42", entry.Metadata.UserID)
	assert.Equal(t, "user@example.com", entry.Metadata.UserEmail)
	assert.Equal(t, "1700000000000", entry.Metadata.UploadedAt)
	assert.Equal(t, "test-jwt", embedder.lastJWT)
}

func TestGenerateVectorDeterministicID(t *testing.T) {
	embedder := &fakeEmbedder{}
	job := testJob()
	rec := testRecord(1, "What is X?")

	first := GenerateVector(context.Background(), embedder, rec, job)
	second := GenerateVector(context.Background(), embedder, rec, job)
	require.NotNil(t, first)
	require.NotNil(t, second)
	// 同一 (文件名, 行号, 问题) 必须映射到同一向量库主键
	assert.Equal(t, first.ID, second.ID)

	otherRow := GenerateVector(context.Background(), embedder, testRecord(2, "What is X?"), job)
	require.NotNil(t, otherRow)
	assert.NotEqual(t, first.ID, otherRow.ID)

	otherFile := job
	otherFile.Filename = "other.csv"
	otherEntry := GenerateVector(context.Background(), embedder, rec, otherFile)
	require.NotNil(t, otherEntry)
	assert.NotEqual(t, first.ID, otherEntry.ID)
}

func TestGenerateVectorIDUsesQuestionPrefix(t *testing.T) {
	embedder := &fakeEmbedder{}
	job := testJob()
	prefix := strings.Repeat("x", 50)

	a := GenerateVector(context.Background(), embedder, testRecord(1, prefix+"tail one"), job)
	b := GenerateVector(context.Background(), embedder, testRecord(1, prefix+"tail two"), job)
	require.NotNil(t, a)
	require.NotNil(t, b)
	// 只有问题的前 50 个字符参与派生
	assert.Equal(t, a.ID, b.ID)
}

func TestGenerateVectorFailures(t *testing.T) {
	cases := []struct {
		name string
		fn   func(text string) ([]float32, error)
	}{
		{"embedder error", func(string) ([]float32, error) { return nil, errors.New("boom") }},
		{"empty vector", func(string) ([]float32, error) { return []float32{}, nil }},
		{"nil vector", func(string) ([]float32, error) { return nil, nil }},
		{"nan value", func(string) ([]float32, error) { return []float32{0.1, float32(math.NaN())}, nil }},
		{"inf value", func(string) ([]float32, error) { return []float32{float32(math.Inf(1))}, nil }},
		{"panic", func(string) ([]float32, error) { panic("unexpected") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			embedder := &fakeEmbedder{fn: tc.fn}
			entry := GenerateVector(context.Background(), embedder, testRecord(1, "Q"), testJob())
			assert.Nil(t, entry)
		})
	}
}
