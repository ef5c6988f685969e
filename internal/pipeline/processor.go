package pipeline

import (
	"context"
	"fmt"
	"strings"

	"kb-ingest-go/internal/model"
	"kb-ingest-go/pkg/log"
	"kb-ingest-go/pkg/tasks"
)

// ObjectStore 定义了对象存储的只读能力。
type ObjectStore interface {
	Exists(ctx context.Context, bucket, path string) (bool, error)
	FetchText(ctx context.Context, bucket, path string) (string, error)
}

// DefaultNamespace 是任务未指定 namespace 时使用的默认逻辑分区。
const DefaultNamespace = "similarity_search"

// Processor 封装了一次导入流程的所有依赖和逻辑。
type Processor struct {
	store    ObjectStore
	embedder Embedder
	vectors  VectorStore
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(store ObjectStore, embedder Embedder, vectors VectorStore) *Processor {
	return &Processor{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
	}
}

// Process 执行一次完整的导入流程：校验 → 下载 → 解析 → 向量化 → 分批写入。
// 成功时返回结果统计；任何终止性错误都带 "failed to process" 前缀上抛，
// 不产生部分结果。重试由触发方（队列重投递）决定，这里不做。
func (p *Processor) Process(ctx context.Context, job tasks.IngestJob) (*model.ProcessingResult, error) {
	log.Infof("[Processor] 开始处理文件, FileID: %s, FileName: %s, UserID: %s", job.FileID, job.Filename, job.UserID)

	result, err := p.run(ctx, &job)
	if err != nil {
		// 失败时尽力记录已解码的任务负载，便于排查（JWT 不落日志）
		log.Errorw("[Processor] 文件处理失败",
			"error", err,
			"fileId", job.FileID,
			"filename", job.Filename,
			"bucket", job.GCSBucket,
			"path", job.GCSFilePath,
			"namespace", job.Namespace,
			"userId", job.UserID,
			"uploadTimestamp", job.UploadTimestamp,
		)
		return nil, fmt.Errorf("failed to process %s: %w", job.Filename, err)
	}

	log.Infof("[Processor] 文件处理成功完成, FileName: %s, 成功 %d 行, 失败 %d 行",
		job.Filename, result.SuccessfulRows, result.FailedRows)
	return result, nil
}

func (p *Processor) run(ctx context.Context, job *tasks.IngestJob) (*model.ProcessingResult, error) {
	// 1. 校验任务负载
	if err := validateJob(job); err != nil {
		return nil, err
	}

	// 2. 检查并下载文件
	log.Infof("[Processor] 步骤1: 从对象存储下载文件, Bucket: %s, Path: %s", job.GCSBucket, job.GCSFilePath)
	exists, err := p.store.Exists(ctx, job.GCSBucket, job.GCSFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}
	if !exists {
		return nil, &NotFoundError{Bucket: job.GCSBucket, Path: job.GCSFilePath}
	}

	content, err := p.store.FetchText(ctx, job.GCSBucket, job.GCSFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file content: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyFile
	}
	fileSize := int64(len(content))
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d 字节", fileSize)

	// 3. 解析 CSV
	records, err := ParseRecords(content)
	if err != nil {
		return nil, err
	}
	log.Infof("[Processor] 步骤2: 解析完成, 共 %d 条有效记录", len(records))

	// 4. 逐行向量化。顺序执行以保持行序，单行失败只计数不中断
	vectors := make([]model.VectorEntry, 0, len(records))
	successful, failed := 0, 0
	for _, rec := range records {
		entry := GenerateVector(ctx, p.embedder, rec, *job)
		if entry == nil {
			failed++
			continue
		}
		vectors = append(vectors, *entry)
		successful++
	}
	log.Infof("[Processor] 步骤3: 向量化完成, 成功 %d 行, 失败 %d 行", successful, failed)

	// 5. 分批写入向量库。没有任何成功向量时跳过写入阶段
	if len(vectors) > 0 {
		if err := UpsertVectors(ctx, p.vectors, vectors, job.Namespace); err != nil {
			return nil, err
		}
	}

	return &model.ProcessingResult{
		Success:        true,
		Filename:       job.Filename,
		TotalRows:      len(records),
		SuccessfulRows: successful,
		FailedRows:     failed,
		FileSizeBytes:  fileSize,
	}, nil
}

// validateJob 校验任务负载的必填字段，并在此处（且仅在此处）填充默认 namespace。
func validateJob(job *tasks.IngestJob) error {
	if job.Filename == "" {
		return &ValidationError{Reason: "missing filename"}
	}
	if job.GCSBucket == "" {
		return &ValidationError{Reason: "missing gcs_bucket"}
	}
	if job.GCSFilePath == "" {
		return &ValidationError{Reason: "missing gcs_file_path"}
	}
	if !strings.HasSuffix(strings.ToLower(job.Filename), ".csv") {
		return &ValidationError{Reason: "filename must have a .csv extension"}
	}
	if job.JWT == "" {
		return &ValidationError{Reason: "missing jwt"}
	}
	if job.Namespace == "" {
		job.Namespace = DefaultNamespace
	}
	return nil
}
