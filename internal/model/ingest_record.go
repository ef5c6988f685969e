package model

import "time"

// IngestRecord 定义了 ingest_record 表的 ORM 模型。
// 它记录每次导入任务的执行状态和结果统计，由消费者在核心流程外维护。
type IngestRecord struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID         string     `gorm:"type:varchar(64);index" json:"fileId"`
	Filename       string     `gorm:"type:varchar(255);not null" json:"filename"`
	Namespace      string     `gorm:"type:varchar(100)" json:"namespace"`
	UserID         string     `gorm:"type:varchar(64)" json:"userId"`
	Status         int        `gorm:"type:tinyint;not null;default:0" json:"status"` // 0: processing, 1: completed, 2: failed
	TotalRows      int        `gorm:"not null;default:0" json:"totalRows"`
	SuccessfulRows int        `gorm:"not null;default:0" json:"successfulRows"`
	FailedRows     int        `gorm:"not null;default:0" json:"failedRows"`
	FileSizeBytes  int64      `gorm:"not null;default:0" json:"fileSizeBytes"`
	ErrorMessage   string     `gorm:"type:text" json:"errorMessage"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	CompletedAt    *time.Time `gorm:"default:null" json:"completedAt"`
}

// 导入记录的状态取值。
const (
	IngestStatusProcessing = 0
	IngestStatusCompleted  = 1
	IngestStatusFailed     = 2
)

// TableName 指定了此模型在数据库中对应的表名。
func (IngestRecord) TableName() string {
	return "ingest_record"
}
