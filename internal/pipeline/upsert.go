package pipeline

import (
	"context"

	"kb-ingest-go/internal/model"
	"kb-ingest-go/pkg/log"
)

// VectorStore 定义了向量库的写入能力。
type VectorStore interface {
	ConnectionCheck(ctx context.Context) error
	Upsert(ctx context.Context, namespace string, batch []model.VectorEntry) error
}

// upsertBatchSize 是单次写入向量库的最大条目数。
const upsertBatchSize = 100

// UpsertVectors 将向量条目按原始顺序分批写入指定 namespace。
// 写入前先做连通性检查，检查不通过则不写任何批次。
// 任一批次失败立即中止，剩余批次不再尝试，错误中携带失败批次的编号。
func UpsertVectors(ctx context.Context, store VectorStore, vectors []model.VectorEntry, namespace string) error {
	log.Infof("[Pipeline] 开始向 namespace '%s' 写入 %d 个向量", namespace, len(vectors))

	if err := store.ConnectionCheck(ctx); err != nil {
		return &ConnectionError{Err: err}
	}

	totalBatches := (len(vectors) + upsertBatchSize - 1) / upsertBatchSize
	for i := 0; i < len(vectors); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		batch := vectors[i:end]
		batchNo := i/upsertBatchSize + 1

		log.Infof("[Pipeline] 正在写入批次 %d/%d, 大小: %d", batchNo, totalBatches, len(batch))
		if err := store.Upsert(ctx, namespace, batch); err != nil {
			log.Errorf("[Pipeline] 批次 %d 写入失败: %v", batchNo, err)
			return &UpsertError{Batch: batchNo, Err: err}
		}
	}

	log.Infof("[Pipeline] 全部 %d 个批次写入完成", totalBatches)
	return nil
}
