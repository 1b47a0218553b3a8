package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address    string `yaml:"address"`    // MongoDB 服务器地址
	Username   string `yaml:"username"`   // 用户名
	Password   string `yaml:"password"`   // 密码
	Database   string `yaml:"database"`   // 数据库名称
	Collection string `yaml:"collection"` // 洞察集合名称
}

// Neo4jConfig 定义了 Neo4j 图数据库的连接配置。
type Neo4jConfig struct {
	Uri      string `yaml:"uri"`      // Neo4j 数据库URI (例如: "bolt://localhost:7687")
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 活动日志主题
}

// DatabaseConfigs 汇总了所有数据库的连接配置。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`   // Redis 数据库配置
	MySQL   MySQLConfig `yaml:"mysql"`   // MySQL 数据库配置
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 数据库配置
	Neo4j   Neo4jConfig `yaml:"neo4j"`   // Neo4j 数据库配置
	Kafka   KafkaConfig `yaml:"kafka"`   // Kafka 消息队列配置
}

// GeminiConfig 定义了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// OpenAIConfig 定义了 OpenAI 模型的配置。
type OpenAIConfig struct {
	APIKey string `yaml:"apiKey"` // OpenAI API 密钥
	Model  string `yaml:"model"`  // OpenAI 模型名称
}

// OllamaConfig 定义了 Ollama 本地模型的配置。
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"` // Ollama 服务地址，为空时使用默认地址
	Model   string `yaml:"model"`   // Ollama 模型名称
}

// LLMRateLimitConfig 定义了对文本生成服务的速率限制（令牌桶）。
type LLMRateLimitConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Rate     float64 `yaml:"rate"`     // 每秒生成的令牌数
	Capacity int     `yaml:"capacity"` // 桶容量（突发额度）
}

// LLMConfig 定义了文本生成服务的配置。
type LLMConfig struct {
	Provider  string             `yaml:"provider"`  // LLM提供商 (例如: "gemini", "openai", "ollama")
	Gemini    GeminiConfig       `yaml:"gemini"`    // Gemini 模型配置
	OpenAI    OpenAIConfig       `yaml:"openai"`    // OpenAI 模型配置
	Ollama    OllamaConfig       `yaml:"ollama"`    // Ollama 模型配置
	RateLimit LLMRateLimitConfig `yaml:"rateLimit"` // 速率限制配置
}

// InsightConfig 定义了洞察流水线的运行参数。
type InsightConfig struct {
	// Concurrency 是按链/按变体扇出的并发上限；1 表示保持顺序处理。
	Concurrency int `yaml:"concurrency"`
	// LookbackDays 是目标压力汇总回看的天数窗口。
	LookbackDays int `yaml:"lookbackDays"`
	// ChainCacheTTL 是因果链缓存的存活秒数，0 表示禁用缓存。
	ChainCacheTTL int `yaml:"chainCacheTTL"`
}

// LoggerConfig 定义了日志记录器配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址 (例如: ":8080")
}

// AppInfo 定义了应用程序信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// AppConfig 是应用程序的顶层配置结构。
type AppConfig struct {
	App       AppInfo         `yaml:"app"`       // 应用程序信息
	Server    ServerConfig    `yaml:"server"`    // HTTP 服务配置
	LLM       LLMConfig       `yaml:"llm"`       // LLM 配置部分
	Logger    LoggerConfig    `yaml:"logger"`    // 日志记录器配置
	Databases DatabaseConfigs `yaml:"databases"` // 数据库配置
	Insight   InsightConfig   `yaml:"insight"`   // 洞察流水线配置
}

// Validate 检查配置的内部一致性并填充缺省值。
func (c *AppConfig) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider 未配置")
	}
	if c.Insight.Concurrency <= 0 {
		c.Insight.Concurrency = 1
	}
	if c.Insight.LookbackDays <= 0 {
		c.Insight.LookbackDays = 30
	}
	if c.LLM.RateLimit.Enabled && c.LLM.RateLimit.Rate <= 0 {
		return fmt.Errorf("llm.rateLimit.rate 必须为正数")
	}
	return nil
}

// LoadConfig 从指定路径加载并解析 YAML 配置文件。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
