// Package vectorstore 提供了基于 Elasticsearch dense_vector 的向量库客户端。
package vectorstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"kb-ingest-go/internal/config"
	"kb-ingest-go/internal/model"
	"kb-ingest-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// Store 封装了 Elasticsearch 客户端和目标索引。
type Store struct {
	client *elasticsearch.Client
	index  string
}

// New 初始化 Elasticsearch 客户端并确保向量索引存在。
func New(cfg config.ElasticsearchConfig) (*Store, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, err
	}

	s := &Store{client: client, index: cfg.IndexName}
	if err := s.createIndexIfNotExists(cfg.Dimensions); err != nil {
		return nil, err
	}
	return s, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则按问答向量的结构创建它。
func (s *Store) createIndexIfNotExists(dimensions int) error {
	res, err := s.client.Indices.Exists([]string{s.index})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", s.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", s.index, res.StatusCode)
		return fmt.Errorf("unexpected status code checking index existence: %d", res.StatusCode)
	}

	// namespace 作为 keyword 字段实现向量库内的逻辑分区
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"namespace": { "type": "keyword" },
				"row_number": { "type": "integer" },
				"q": { "type": "text" },
				"a": { "type": "text" },
				"content": { "type": "text" },
				"filename": { "type": "keyword" },
				"user_id": { "type": "keyword" },
				"user_email": { "type": "keyword" },
				"upload_timestamp": { "type": "keyword" },
				"created_at": { "type": "keyword" },
				"last_edited_at": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dimensions)

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", s.index, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", s.index, res.String())
		return errors.New("failed to create vector index")
	}

	log.Infof("索引 '%s' 创建成功", s.index)
	return nil
}

// ConnectionCheck 检查 Elasticsearch 是否可达。
func (s *Store) ConnectionCheck(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned status %d", res.StatusCode)
	}
	return nil
}

// esDocument 是写入 Elasticsearch 的文档结构，元数据字段摊平存储。
type esDocument struct {
	VectorID     string    `json:"vector_id"`
	Namespace    string    `json:"namespace"`
	RowNumber    int       `json:"row_number"`
	Question     string    `json:"q"`
	Answer       string    `json:"a"`
	Content      string    `json:"content"`
	Filename     string    `json:"filename"`
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	UploadedAt   string    `json:"upload_timestamp"`
	CreatedAt    string    `json:"created_at"`
	LastEditedAt string    `json:"last_edited_at"`
	Vector       []float32 `json:"vector"`
}

// Upsert 通过 Bulk API 将一批向量写入指定 namespace。
// 文档 _id 采用 namespace:vectorID，同一逻辑行重复导入时覆盖而非新增，
// 不同 namespace 下的相同向量 ID 互不冲突。
func (s *Store) Upsert(ctx context.Context, namespace string, batch []model.VectorEntry) error {
	var buf bytes.Buffer
	for _, entry := range batch {
		action := map[string]map[string]string{
			"index": {"_index": s.index, "_id": namespace + ":" + entry.ID},
		}
		actionBytes, err := json.Marshal(action)
		if err != nil {
			return err
		}
		doc := esDocument{
			VectorID:     entry.ID,
			Namespace:    namespace,
			RowNumber:    entry.Metadata.RowNumber,
			Question:     entry.Metadata.Question,
			Answer:       entry.Metadata.Answer,
			Content:      entry.Metadata.Content,
			Filename:     entry.Metadata.Filename,
			UserID:       entry.Metadata.UserID,
			UserEmail:    entry.Metadata.UserEmail,
			UploadedAt:   entry.Metadata.UploadedAt,
			CreatedAt:    entry.Metadata.CreatedAt,
			LastEditedAt: entry.Metadata.LastEditedAt,
			Vector:       entry.Values,
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		buf.Write(actionBytes)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("批量写入向量到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to bulk index vectors")
	}

	// Bulk 请求整体 200 时仍可能有单条失败，需要检查 errors 标记
	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk response contains item errors")
	}
	return nil
}
