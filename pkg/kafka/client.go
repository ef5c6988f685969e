// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kb-ingest-go/internal/config"
	"kb-ingest-go/internal/model"
	"kb-ingest-go/internal/repository"
	"kb-ingest-go/pkg/database"
	"kb-ingest-go/pkg/log"
	"kb-ingest-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// JobProcessor defines the interface for any service that can process an ingestion job.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type JobProcessor interface {
	Process(ctx context.Context, job tasks.IngestJob) (*model.ProcessingResult, error)
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceIngestJob 发送一个导入任务到 Kafka。
func ProduceIngestJob(job tasks.IngestJob) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = producer.WriteMessages(context.Background(),
		kafka.Message{
			Value: jobBytes,
		},
	)
	return err
}

// attemptsKey 生成失败计数的 Redis key，FileID 缺失时退回文件名。
func attemptsKey(job tasks.IngestJob) string {
	id := job.FileID
	if id == "" {
		id = job.Filename
	}
	return fmt.Sprintf("kafka:attempts:%s", id)
}

// StartConsumer 启动一个 Kafka 消费者来处理导入任务。
// 处理结果由 resultRepo 持久化（核心管道自身不落库）。
func StartConsumer(cfg config.KafkaConfig, processor JobProcessor, resultRepo repository.IngestResultRepository) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  "kb-ingest-consumer",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break // 退出循环，可能需要重启策略
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		var job tasks.IngestJob
		if err := json.Unmarshal(m.Value, &job); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("开始处理导入任务: FileID=%s, Filename=%s", job.FileID, job.Filename)

		// 先落一条处理中的导入记录，核心流程不感知持久化
		record := &model.IngestRecord{
			FileID:    job.FileID,
			Filename:  job.Filename,
			Namespace: job.Namespace,
			UserID:    job.UserID,
			Status:    model.IngestStatusProcessing,
		}
		if err := resultRepo.Create(record); err != nil {
			log.Warnf("创建导入记录失败: %v", err)
		}

		result, procErr := processor.Process(context.Background(), job)
		if procErr != nil {
			log.Errorf("处理导入任务失败: Filename=%s, Error: %v", job.Filename, procErr)
			if record.ID != 0 {
				if err := resultRepo.MarkFailed(record.ID, procErr.Error()); err != nil {
					log.Warnf("更新导入记录为失败状态时出错: %v", err)
				}
			}

			// 使用 Redis 计数失败次数，达到阈值后提交 offset 终止重试
			key := attemptsKey(job)
			attempts, incErr := database.RDB.Incr(context.Background(), key).Result()
			if incErr == nil {
				_ = database.RDB.Expire(context.Background(), key, 24*time.Hour).Err()
			}
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			if attempts >= 3 {
				log.Errorf("导入任务多次失败(>=3)，提交 offset 终止重试: Filename=%s", job.Filename)
				if err := r.CommitMessages(context.Background(), m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
			// attempts < 3 时，不提交 offset 让 Kafka 自动重试
		} else {
			log.Infof("导入任务处理成功: Filename=%s, 成功 %d 行, 失败 %d 行",
				result.Filename, result.SuccessfulRows, result.FailedRows)
			if record.ID != 0 {
				if err := resultRepo.MarkCompleted(record.ID, result); err != nil {
					log.Warnf("更新导入记录为完成状态时出错: %v", err)
				}
			}
			// 清理失败计数
			_ = database.RDB.Del(context.Background(), attemptsKey(job)).Err()
			// 任务处理成功后，手动提交 offset
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}
