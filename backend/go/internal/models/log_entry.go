package models

import "time"

// LogEntry 定义了用于结构化日志的统一数据格式，
// 方便日志采集、传输与后续的集中检索分析。
type LogEntry struct {
	// ServiceName 是产生这条日志的服务或组件的名称，例如 "insight_service"。
	ServiceName string `json:"service_name"`

	// TraceID 用于将一次请求内的多条日志串联起来。
	TraceID string `json:"trace_id,omitempty"`

	// UserID 标识了与此日志事件相关的用户（如果适用）。
	UserID string `json:"user_id,omitempty"`

	// RequestInfo 包含了触发此日志的 HTTP 请求的详细信息。
	RequestInfo *RequestInfo `json:"request_info,omitempty"`

	// Error 包含了详细的错误信息，通常在日志级别为 Error 或更高时填充。
	Error *ErrorInfo `json:"error,omitempty"`

	// Payload 用于存放任何其他与业务逻辑相关的结构化数据。
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RequestInfo 存储了关于 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 错误的类型，例如 "upstream_error", "parse_error"
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}

// ActivityStatus 定义了活动日志的状态枚举。
type ActivityStatus string

const (
	ActivityStarted  ActivityStatus = "STARTED"
	ActivityFinished ActivityStatus = "FINISHED"
	ActivityDegraded ActivityStatus = "DEGRADED" // 有降级回退发生但流水线继续
	ActivityError    ActivityStatus = "ERROR"
)

// ActivityLogEntry 定义了发送到 Kafka 的操作活动日志的统一结构。
// 活动日志是尽力而为的旁路副作用，发布失败不影响主计算。
type ActivityLogEntry struct {
	CorrelationID string         `json:"correlation_id"`
	UserID        string         `json:"user_id"`
	Operation     string         `json:"operation"` // analyze_event / map_goal_impact / simulate / ...
	Timestamp     time.Time      `json:"timestamp"`
	Status        ActivityStatus `json:"status"`
	Message       string         `json:"message,omitempty"`
	Content       interface{}    `json:"content,omitempty"`
}
