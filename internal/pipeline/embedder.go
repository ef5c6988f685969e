package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"kb-ingest-go/internal/model"
	"kb-ingest-go/pkg/log"
	"kb-ingest-go/pkg/tasks"
)

// Embedder 定义了调用远程向量化服务的能力。
type Embedder interface {
	Embed(ctx context.Context, jwt, text string) ([]float32, error)
}

// GenerateVector 为单条记录请求向量并组装 VectorEntry。
// 任何内部错误（包括 panic）都会被记录并转换为 nil 返回，
// 调用方据此把该行计为失败并继续处理后续行，单行故障不会中断整个流程。
func GenerateVector(ctx context.Context, embedder Embedder, rec Record, job tasks.IngestJob) (entry *model.VectorEntry) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Pipeline] 第 %d 行向量化发生 panic: %v", rec.RowNumber, r)
			entry = nil
		}
	}()

	vector, err := embedder.Embed(ctx, job.JWT, rec.Content)
	if err != nil {
		log.Errorf("[Pipeline] 第 %d 行向量化失败: %v", rec.RowNumber, err)
		return nil
	}
	if len(vector) == 0 {
		log.Errorf("[Pipeline] 第 %d 行向量化失败: 返回了空向量", rec.RowNumber)
		return nil
	}

	// 校验每个元素都是有限数值，任一元素非法则整行作废，不做部分接受
	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			log.Errorf("[Pipeline] 第 %d 行向量包含非法数值, index: %d", rec.RowNumber, i)
			return nil
		}
	}

	log.Infof("[Pipeline] 第 %d 行向量化成功, 维度: %d", rec.RowNumber, len(vector))

	return &model.VectorEntry{
		ID:     vectorID(job.Filename, rec.RowNumber, rec.Question),
		Values: vector,
		Metadata: model.VectorMetadata{
			RowNumber:    rec.RowNumber,
			Question:     rec.Question,
			Answer:       rec.Answer,
			Content:      rec.Content,
			Filename:     job.Filename,
			UserID:       job.UserID,
			UserEmail:    job.UserEmail,
			UploadedAt:   rec.UploadedAt,
			CreatedAt:    rec.CreatedAt,
			LastEditedAt: rec.LastEditedAt,
		},
	}
}

// vectorID 对 文件名_行号_问题前50字符 计算 SHA-256 并十六进制编码。
// 同一文件的同一逻辑行总是映射到相同的向量库主键，重复导入覆盖而非新增。
func vectorID(filename string, rowNumber int, question string) string {
	q := []rune(question)
	if len(q) > 50 {
		q = q[:50]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d_%s", filename, rowNumber, string(q))))
	return hex.EncodeToString(sum[:])
}
