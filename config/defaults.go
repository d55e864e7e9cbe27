// =============================================================================
// 📦 CricketFlow 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Agent:     DefaultAgentConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		LLM:       DefaultLLMConfig(),
		Live:      DefaultLiveConfig(),
		Semantic:  DefaultSemanticConfig(),
		WebSearch: DefaultWebSearchConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8001,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultAgentConfig 返回默认编排配置
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxSteps:                  15,
		CallTimeout:               30 * time.Second,
		MaxRetrievalIterations:    2,
		MaxVerificationIterations: 3,
		ContextTokenBudget:        12000,
		VerdictCacheSize:          512,
		BatchConcurrency:          4,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "",
		Name:            "quicksell_rag",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		MaxRows:         200,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Timeout:         2 * time.Minute,
		MaxRetries:      3,
		RetryBackoff:    500 * time.Millisecond,
		GraderModel:     "gpt-4o-mini",
		SQLModel:        "gpt-4o-mini",
		RewriteModel:    "gpt-4o-mini",
		GenerationModel: "gpt-3.5-turbo",
		Temperature:     0,
	}
}

// DefaultLiveConfig 返回默认实时快照配置
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		DataFile:        "data_live.json",
		Watch:           true,
		CommentaryOvers: 2,
	}
}

// DefaultSemanticConfig 返回默认语义检索配置
func DefaultSemanticConfig() SemanticConfig {
	return SemanticConfig{
		Backend:   "pathway",
		Host:      "localhost",
		Port:      8000,
		Scheme:    "http",
		TopK:      4,
		Timeout:   20 * time.Second,
		ClassName: "CricketDocument",
	}
}

// DefaultWebSearchConfig 返回默认联网搜索配置
func DefaultWebSearchConfig() WebSearchConfig {
	return WebSearchConfig{
		BaseURL:     "https://api.tavily.com",
		MaxResults:  3,
		SearchDepth: "basic",
		Timeout:     20 * time.Second,
		RateLimit:   2,
		CacheTTL:    15 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "cricketflow",
		SampleRate:   0.1,
	}
}
