// Package pipeline 实现了 CSV 问答文件的导入流程：解析、向量化、分批写入向量库。
package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"kb-ingest-go/pkg/log"
)

// Record 是从 CSV 行归一化得到的问答记录。
// RowNumber 是 1 起始的原始文件行号，被跳过的行也会占用行号。
type Record struct {
	Question     string
	Answer       string
	Content      string
	RowNumber    int
	CreatedAt    string
	LastEditedAt string
	UploadedAt   string
}

// ParseRecords 将 CSV 文本解析为有序的问答记录序列。
// 期望表头包含 q 和 a 两列，created_at / last_edited_at 可选。
// 问题或答案去除空白后为空的行会被丢弃并记录日志，但仍然消耗行号。
func ParseRecords(content string) ([]Record, error) {
	reader := csv.NewReader(strings.NewReader(content))
	// 允许每行列数不一致，缺失的列按空值处理
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	// 定位各列在表头中的位置
	qIdx, aIdx, createdIdx, editedIdx := -1, -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "q":
			qIdx = i
		case "a":
			aIdx = i
		case "created_at":
			createdIdx = i
		case "last_edited_at":
			editedIdx = i
		}
	}
	if qIdx < 0 || aIdx < 0 {
		return nil, &ParseError{Err: fmt.Errorf("missing required columns q/a in header: %v", header)}
	}

	field := func(row []string, idx int) string {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var records []Record
	rowNumber := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		rowNumber++
		question := field(row, qIdx)
		answer := field(row, aIdx)
		if question == "" || answer == "" {
			log.Infof("[Parser] 跳过第 %d 行: 问题或答案为空", rowNumber)
			continue
		}

		records = append(records, Record{
			Question:     question,
			Answer:       answer,
			Content:      fmt.Sprintf("Q: %s\nA: %s", question, answer),
			RowNumber:    rowNumber,
			CreatedAt:    field(row, createdIdx),
			LastEditedAt: field(row, editedIdx),
			UploadedAt:   strconv.FormatInt(time.Now().UnixMilli(), 10),
		})
	}

	if len(records) == 0 {
		return nil, ErrEmptyInput
	}
	return records, nil
}
