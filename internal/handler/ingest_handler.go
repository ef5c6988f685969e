// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"kb-ingest-go/pkg/log"
	"kb-ingest-go/pkg/tasks"
	"kb-ingest-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// IngestHandler 负责把 HTTP 触发的导入请求归一化为队列任务。
// 核心管道不感知触发来源的形态，统一消费 IngestJob。
type IngestHandler struct {
	publish func(job tasks.IngestJob) error
}

// NewIngestHandler 创建一个新的 IngestHandler 实例。
// publish 负责把归一化后的任务投递到队列，便于测试时替换。
func NewIngestHandler(publish func(job tasks.IngestJob) error) *IngestHandler {
	return &IngestHandler{publish: publish}
}

// pushEnvelope 对应 Pub/Sub push 推送的消息信封，data 为 base64 编码的任务 JSON。
type pushEnvelope struct {
	Message struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}

// Ingest 接收 HTTP 触发的导入请求。
// 兼容两种请求体：Pub/Sub push 信封和裸任务 JSON（本地用 curl 调试时使用）。
func (h *IngestHandler) Ingest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取请求体"})
		return
	}

	job, err := decodeJob(body)
	if err != nil {
		log.Error("Ingest: failed to decode job payload", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	// 负载缺失用户身份时，尽力从 JWT claims 补全
	if (job.UserID == "" || job.UserEmail == "") && job.JWT != "" {
		if id, err := token.ExtractIdentity(job.JWT); err == nil {
			if job.UserID == "" {
				job.UserID = id.UserID
			}
			if job.UserEmail == "" {
				job.UserEmail = id.Email
			}
		}
	}

	if err := h.publish(job); err != nil {
		log.Error("Ingest: failed to publish job", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	log.Infof("[IngestHandler] 任务已入队: Filename=%s", job.Filename)
	c.JSON(http.StatusOK, gin.H{"status": "queued", "filename": job.Filename})
}

// decodeJob 把请求体解码为 IngestJob，优先按 push 信封解析。
func decodeJob(body []byte) (tasks.IngestJob, error) {
	var envelope pushEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message.Data != "" {
		decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			return tasks.IngestJob{}, err
		}
		var job tasks.IngestJob
		if err := json.Unmarshal(decoded, &job); err != nil {
			return tasks.IngestJob{}, err
		}
		return job, nil
	}

	var job tasks.IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		return tasks.IngestJob{}, err
	}
	return job, nil
}
