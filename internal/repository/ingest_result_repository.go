// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"kb-ingest-go/internal/model"

	"gorm.io/gorm"
)

// IngestResultRepository 接口定义了导入记录的持久化操作。
type IngestResultRepository interface {
	Create(record *model.IngestRecord) error
	MarkCompleted(recordID uint, result *model.ProcessingResult) error
	MarkFailed(recordID uint, errMsg string) error
	FindByFileID(fileID string) ([]model.IngestRecord, error)
}

// ingestResultRepository 是 IngestResultRepository 接口的 GORM 实现。
type ingestResultRepository struct {
	db *gorm.DB
}

// NewIngestResultRepository 创建一个新的 IngestResultRepository 实例。
func NewIngestResultRepository(db *gorm.DB) IngestResultRepository {
	return &ingestResultRepository{db: db}
}

// Create 在数据库中创建一条新的导入记录。
func (r *ingestResultRepository) Create(record *model.IngestRecord) error {
	return r.db.Create(record).Error
}

// MarkCompleted 将指定导入记录更新为完成状态并写入结果统计。
func (r *ingestResultRepository) MarkCompleted(recordID uint, result *model.ProcessingResult) error {
	now := time.Now()
	return r.db.Model(&model.IngestRecord{}).Where("id = ?", recordID).Updates(map[string]interface{}{
		"status":          model.IngestStatusCompleted,
		"total_rows":      result.TotalRows,
		"successful_rows": result.SuccessfulRows,
		"failed_rows":     result.FailedRows,
		"file_size_bytes": result.FileSizeBytes,
		"completed_at":    &now,
	}).Error
}

// MarkFailed 将指定导入记录更新为失败状态并记录错误信息。
func (r *ingestResultRepository) MarkFailed(recordID uint, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.IngestRecord{}).Where("id = ?", recordID).Updates(map[string]interface{}{
		"status":        model.IngestStatusFailed,
		"error_message": errMsg,
		"completed_at":  &now,
	}).Error
}

// FindByFileID 根据文件 ID 检索全部导入记录，按创建时间倒序。
func (r *ingestResultRepository) FindByFileID(fileID string) ([]model.IngestRecord, error) {
	var records []model.IngestRecord
	err := r.db.Where("file_id = ?", fileID).Order("created_at DESC").Find(&records).Error
	return records, err
}
