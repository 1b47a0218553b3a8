package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Minerva/backend/go/internal/causal"
	"Minerva/backend/go/internal/config"
	kafkadb "Minerva/backend/go/internal/database/kafka"
	mongodb "Minerva/backend/go/internal/database/mongo"
	"Minerva/backend/go/internal/database/mysql"
	neo4jdb "Minerva/backend/go/internal/database/neo4j"
	redisdb "Minerva/backend/go/internal/database/redis"
	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/horizon"
	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/insight_service/analyzer"
	"Minerva/backend/go/internal/insight_service/api"
	"Minerva/backend/go/internal/insight_service/goalimpact"
	"Minerva/backend/go/internal/insight_service/publisher"
	"Minerva/backend/go/internal/insight_service/service"
	"Minerva/backend/go/internal/insight_service/simulation"
	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig("backend/go/internal/config/config.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志记录器
	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("无效的日志级别: %v", err)
	}
	logger.Init(logLevel)
	serviceLogger := logger.New("InsightService", "", "")

	ctx := context.Background()

	// 连接 MySQL 并创建目标存储
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("连接 MySQL 失败")
	}
	goalStore, err := goal.NewMySQLStore(db)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("初始化目标存储失败")
	}

	// 连接 MongoDB 并创建洞察存储
	mongoClient, err := mongodb.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("连接 MongoDB 失败")
	}
	insightStore := insight.NewMongoStore(
		mongoClient.Database(cfg.Databases.MongoDB.Database),
		cfg.Databases.MongoDB.Collection,
	)

	// 连接 Neo4j 并创建因果链提供者
	neo4jClient, err := neo4jdb.GetClient(ctx, &cfg.Databases.Neo4j)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("连接 Neo4j 失败")
	}
	var chains causal.ChainProvider = causal.NewNeo4jProvider(neo4jClient)

	// 缓存层可选：TTL 为 0 或 Redis 不可用时直接走 Neo4j。
	if cfg.Insight.ChainCacheTTL > 0 {
		redisClient, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("连接 Redis 失败，因果链缓存已禁用")
		} else {
			ttl := time.Duration(cfg.Insight.ChainCacheTTL) * time.Second
			chains = causal.NewCachedProvider(chains, redisClient, ttl, serviceLogger)
		}
	}

	// 初始化 LLM 客户端
	llmClient, err := llm.NewLLM(ctx, cfg.LLM)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("初始化 LLM 客户端失败")
	}

	// 初始化 Kafka 活动日志发布者（可选旁路）
	var activityPublisher *publisher.ActivityPublisher
	kafkaClient, err := kafkadb.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("连接 Kafka 失败，活动日志已禁用")
		activityPublisher = publisher.NewActivityPublisher(nil, serviceLogger)
	} else {
		activityPublisher = publisher.NewActivityPublisher(kafkaClient.Writer, serviceLogger)
	}

	// 组装流水线组件
	categorizer := horizon.NewLLMCategorizer(llmClient)
	an, err := analyzer.NewAnalyzer(chains, goalStore, llmClient, categorizer, serviceLogger, cfg.Insight.Concurrency)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("初始化事件分析器失败")
	}
	lookback := time.Duration(cfg.Insight.LookbackDays) * 24 * time.Hour
	mapper := goalimpact.NewMapper(goalStore, insightStore, llmClient, serviceLogger, lookback, cfg.Insight.Concurrency)
	simulator := simulation.NewSimulator(chains, goalStore, insightStore, llmClient, serviceLogger, cfg.Insight.Concurrency)

	insightService := service.NewInsightService(an, mapper, simulator, goalStore, insightStore, activityPublisher, serviceLogger)

	// 组装 HTTP 服务
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	checkers := map[string]api.HealthChecker{
		"mysql":   mysql.HealthCheck,
		"mongodb": mongodb.HealthCheck,
		"neo4j":   neo4jClient.HealthCheck,
	}
	if kafkaClient != nil {
		checkers["kafka"] = kafkaClient.HealthCheck
	}
	router := api.SetupRouter(api.NewHandler(insightService), checkers)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	// 启动服务
	go func() {
		serviceLogger.Info("HTTP 服务启动于 " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP 服务启动失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("正在关闭服务...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("服务被强制关闭")
	}

	if kafkaClient != nil {
		if err := kafkaClient.Close(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("关闭 Kafka 客户端失败")
		}
	}
	neo4jClient.Close(context.Background())
	if err := mongodb.Close(context.Background()); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("断开 MongoDB 连接失败")
	}
	if err := redisdb.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("关闭 Redis 连接失败")
	}
	if err := mysql.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("关闭 MySQL 连接失败")
	}

	serviceLogger.Info("服务已优雅停止")
}
