// Package tasks defines the structure for ingestion jobs that are sent to Kafka.
package tasks

// IngestJob 描述一次 CSV 文件导入任务，对应上传服务发布的队列消息。
// 必填字段为 filename、gcs_bucket、gcs_file_path 和 jwt，其余字段尽力而为。
type IngestJob struct {
	FileID           string `json:"file_id"`
	Filename         string `json:"filename"`
	GCSBucket        string `json:"gcs_bucket"`
	GCSFilePath      string `json:"gcs_file_path"`
	FileSize         int64  `json:"file_size"`
	ContentType      string `json:"content_type"`
	UserID           string `json:"user_id"`
	UserEmail        string `json:"user_email"`
	Namespace        string `json:"namespace,omitempty"`
	UploadTimestamp  string `json:"upload_timestamp"`
	ProcessingStatus string `json:"processing_status"`
	JWT              string `json:"jwt"`
}
