// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"

	"kb-ingest-go/internal/config"
	"kb-ingest-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client 封装了 MinIO 客户端，提供导入流程需要的只读能力。
type Client struct {
	mc *minio.Client
}

// New 初始化 MinIO 客户端。
func New(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")
	return &Client{mc: mc}, nil
}

// Exists 检查对象是否存在。对象或存储桶不存在返回 false 而不是错误。
func (c *Client) Exists(ctx context.Context, bucket, path string) (bool, error) {
	_, err := c.mc.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s/%s: %w", bucket, path, err)
	}
	return true, nil
}

// FetchText 下载对象并按 UTF-8 解码为文本。
func (c *Client) FetchText(ctx context.Context, bucket, path string) (string, error) {
	object, err := c.mc.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to download object %s/%s: %w", bucket, path, err)
	}
	defer object.Close()

	// 将对象流读入内存缓冲区，顺便拿到真实大小
	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		return "", fmt.Errorf("failed to read object stream: %w", err)
	}
	log.Infof("[Storage] 下载对象成功: %s/%s, 大小: %d 字节", bucket, path, size)
	return buf.String(), nil
}
