// Package embedding provides a client for the remote embedding service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"kb-ingest-go/internal/config"
	"kb-ingest-go/pkg/log"
)

// Client defines the interface for an embedding client.
type Client interface {
	Embed(ctx context.Context, jwt, text string) ([]float32, error)
}

// embedTimeout 是单次向量化请求的超时上限，超时按该行失败处理。
const embedTimeout = 30 * time.Second

type httpClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient 创建一个新的 embedding 客户端。
func NewClient(cfg config.EmbeddingConfig) Client {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: embedTimeout},
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
}

// Embed 调用向量化服务获取文本向量，认证通过 Cookie 形式的 JWT 传递。
func (c *httpClient) Embed(ctx context.Context, jwt, text string) ([]float32, error) {
	reqBytes, err := json.Marshal(embeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "jwt="+jwt)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[EmbeddingClient] Embedding API 返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("embedding api returned non-200 status: %s", resp.Status)
	}

	// 服务端返回格式不完全稳定，兼容三种形态：
	// {"embedding": [...]}、裸数组、{"data": [...]}，数组元素可能嵌套
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	raw, err := extractArray(payload)
	if err != nil {
		return nil, err
	}
	vector, err := flatten(raw)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("received empty embedding from api")
	}

	log.Infof("[EmbeddingClient] 成功获取向量, 维度: %d", len(vector))
	return vector, nil
}

// extractArray 从响应体中取出向量数组，不认识的格式直接报错。
func extractArray(payload interface{}) ([]interface{}, error) {
	switch v := payload.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		if emb, ok := v["embedding"].([]interface{}); ok {
			return emb, nil
		}
		if data, ok := v["data"].([]interface{}); ok {
			return data, nil
		}
	}
	return nil, fmt.Errorf("invalid response format from embedding api")
}

// flatten 递归展平嵌套数组，并校验每个元素都是有限数值。
func flatten(arr []interface{}) ([]float32, error) {
	out := make([]float32, 0, len(arr))
	var walk func(items []interface{}) error
	walk = func(items []interface{}) error {
		for _, item := range items {
			switch v := item.(type) {
			case []interface{}:
				if err := walk(v); err != nil {
					return err
				}
			case json.Number:
				f, err := v.Float64()
				if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
					return fmt.Errorf("invalid embedding value: %v", v)
				}
				out = append(out, float32(f))
			default:
				return fmt.Errorf("invalid embedding value: %v", item)
			}
		}
		return nil
	}
	if err := walk(arr); err != nil {
		return nil, err
	}
	return out, nil
}
