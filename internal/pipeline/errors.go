package pipeline

import (
	"errors"
	"fmt"
)

// 管道错误分类。除单行向量化失败（在 GenerateVector 内部吞掉并计数）之外，
// 这里定义的所有错误都会终止整个处理流程并上抛给触发方。
var (
	// ErrEmptyFile 表示下载到的文件内容为空。
	ErrEmptyFile = errors.New("file content is empty")

	// ErrEmptyInput 表示格式合法的 CSV 中没有任何有效的问答行。
	ErrEmptyInput = errors.New("no valid rows found in csv file")
)

// ValidationError 表示任务负载缺失必要字段或格式非法。
// 此时尚未产生任何外部副作用。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid job payload: " + e.Reason
}

// NotFoundError 表示目标文件在对象存储中不存在。
type NotFoundError struct {
	Bucket string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found in storage: %s/%s", e.Bucket, e.Path)
}

// ParseError 表示 CSV 解码器报告了结构性错误（如引号不闭合、缺少必需列）。
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse csv content: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConnectionError 表示向量库连通性检查失败，任何批次都未写入。
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "vector store connection test failed: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// UpsertError 表示某个批次写入向量库失败。Batch 为 1 起始的批次编号，
// 该批次之后的所有批次都不会再尝试。
type UpsertError struct {
	Batch int
	Err   error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("failed to upsert batch %d: %v", e.Batch, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}
