// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kb-ingest-go/internal/config"
	"kb-ingest-go/internal/handler"
	"kb-ingest-go/internal/middleware"
	"kb-ingest-go/internal/model"
	"kb-ingest-go/internal/pipeline"
	"kb-ingest-go/internal/repository"
	"kb-ingest-go/pkg/database"
	"kb-ingest-go/pkg/embedding"
	"kb-ingest-go/pkg/kafka"
	"kb-ingest-go/pkg/log"
	"kb-ingest-go/pkg/secrets"
	"kb-ingest-go/pkg/storage"
	"kb-ingest-go/pkg/vectorstore"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 敏感配置留空时从环境密钥补全
	if cfg.Elasticsearch.Password == "" {
		if v, err := secrets.Get("ES_PASSWORD"); err == nil {
			cfg.Elasticsearch.Password = v
		}
	}
	if cfg.MinIO.SecretAccessKey == "" {
		if v, err := secrets.Get("MINIO_SECRET_KEY"); err == nil {
			cfg.MinIO.SecretAccessKey = v
		}
	}

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(&model.IngestRecord{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化对象存储、向量库和 Kafka
	storageClient, err := storage.New(cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}
	store, err := vectorstore.New(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("向量库初始化失败", err)
	}
	kafka.InitProducer(cfg.Kafka)

	// 5. 初始化导入管道 (Processor) 及其依赖
	embeddingClient := embedding.NewClient(cfg.Embedding)
	processor := pipeline.NewProcessor(storageClient, embeddingClient, store)
	resultRepo := repository.NewIngestResultRepository(database.DB)

	// 6. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor, resultRepo)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiV1 := r.Group("/api/v1")
	{
		// HTTP 触发入口：Pub/Sub push 信封或裸任务 JSON，归一化后投递到 Kafka
		apiV1.POST("/ingest", handler.NewIngestHandler(kafka.ProduceIngestJob).Ingest)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，会随进程退出自然结束
	log.Info("服务已优雅关闭")
}
