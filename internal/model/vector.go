// Package model 定义了管道各阶段之间传递的数据结构和数据库模型。
package model

// VectorMetadata 记录一个向量的来源信息。
// 键集合是封闭的，不允许挂任意类型的附加字段，以保证向量库的写入契约可检查。
type VectorMetadata struct {
	RowNumber    int    `json:"row_number"`
	Question     string `json:"q"`
	Answer       string `json:"a"`
	Content      string `json:"content"`
	Filename     string `json:"filename"`
	UserID       string `json:"user_id"`
	UserEmail    string `json:"user_email"`
	UploadedAt   string `json:"upload_timestamp"`
	CreatedAt    string `json:"created_at"`
	LastEditedAt string `json:"last_edited_at"`
}

// VectorEntry 是写入向量库的最小单元。
// ID 由 文件名_行号_问题前50字符 的 SHA-256 派生，同一逻辑行重复导入时覆盖而非新增。
type VectorEntry struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata VectorMetadata `json:"metadata"`
}

// ProcessingResult 是一次导入流程的最终产物。
// 失败的流程不产生部分结果，只返回分类后的错误。
type ProcessingResult struct {
	Success        bool   `json:"success"`
	Filename       string `json:"filename"`
	TotalRows      int    `json:"totalRows"`
	SuccessfulRows int    `json:"successfulRows"`
	FailedRows     int    `json:"failedRows"`
	FileSizeBytes  int64  `json:"fileSizeBytes"`
	Error          string `json:"error,omitempty"`
}
