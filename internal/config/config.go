// Package config handles environment variable loading for the Autonomy
// Core: database/cache endpoints, ports, and its closed enumeration of
// runtime tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"autonomy-core/internal/store"
)

// Config holds every configuration value recognized by autonomyd.
type Config struct {
	// Ambient
	DatabaseURL       string
	RedisURL          string
	HTTPAddr          string
	LogLevel          string
	OTELCollectorAddr string
	SystemAdminSecret string
	AdminJWTSecret    string
	SandboxWorkspace  string
	SandboxEnforce    bool
	MCPServersConfig  string
	TaskOverlayConfig string
	MemoryServiceURL  string

	// External LLM collaborator (§6.1)
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	SecondaryOpenAIAPIKey string
	SecondaryOpenAIBaseURL string
	SecondaryOpenAIModel  string

	// Clock / scheduler
	TickInterval                        time.Duration
	SchedulerLockTTL                    time.Duration
	SchedulerHeartbeatInterval          time.Duration
	SchedulerStateMinPublishInterval    time.Duration
	WorkflowHTTPTimeout                 time.Duration
	WorkflowHTTPRetries                 int
	WorkflowEventQueueMaxSize           int
	WorkflowStepTimeBudget              time.Duration
	TaskFailureBudget                   int

	// Process supervisor
	ToolServerStartTimeout time.Duration
	ToolServerMaxRetries   int
	ToolServerRetryWindow  time.Duration

	// Intent / debate
	ActionIntentThreshold float64
	AutonomousMaxSteps    int
	SandboxCommandTimeout time.Duration
	MemoryStrictMode      bool
	ToolCallTimeout       time.Duration

	// Rate limiting
	TelegramPublicRateLimitPerMinute int
}

// Load reads configuration from environment variables, applying this
// package's documented default for each tunable.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		RedisURL:          redisURL,
		HTTPAddr:          getStr("HTTP_ADDR", ":6161"),
		LogLevel:          getStr("LOG_LEVEL", "info"),
		OTELCollectorAddr: getStr("OTEL_COLLECTOR_ADDR", "localhost:4317"),
		SystemAdminSecret: os.Getenv("SYSTEM_ADMIN_SECRET"),
		AdminJWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
		SandboxWorkspace:  getStr("SANDBOX_WORKSPACE", "/workspace"),
		SandboxEnforce:    false,
		MCPServersConfig:  getStr("MCP_SERVERS_CONFIG", "mcp_servers.yaml"),
		TaskOverlayConfig: getStr("TASK_OVERLAY_CONFIG", "task_overlay.yaml"),
		MemoryServiceURL:  os.Getenv("MEMORY_SERVICE_URL"),

		OpenAIAPIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:            getStr("OPENAI_MODEL", "gpt-4o-mini"),
		SecondaryOpenAIAPIKey:  os.Getenv("SECONDARY_OPENAI_API_KEY"),
		SecondaryOpenAIBaseURL: os.Getenv("SECONDARY_OPENAI_BASE_URL"),
		SecondaryOpenAIModel:   os.Getenv("SECONDARY_OPENAI_MODEL"),

		TickInterval:                     1 * time.Second,
		SchedulerLockTTL:                 30 * time.Second,
		SchedulerHeartbeatInterval:       10 * time.Second,
		SchedulerStateMinPublishInterval: 10 * time.Second,
		WorkflowHTTPTimeout:              12 * time.Second,
		WorkflowHTTPRetries:              2,
		WorkflowEventQueueMaxSize:        5000,
		WorkflowStepTimeBudget:           50 * time.Millisecond,
		TaskFailureBudget:                10,

		ToolServerStartTimeout: 60 * time.Second,
		ToolServerMaxRetries:   3,
		ToolServerRetryWindow:  5 * time.Minute,

		ActionIntentThreshold: 0.8,
		AutonomousMaxSteps:    16,
		SandboxCommandTimeout: 60 * time.Second,
		MemoryStrictMode:      false,
		ToolCallTimeout:       60 * time.Second,

		TelegramPublicRateLimitPerMinute: 20,
	}

	var err error
	if cfg.TickInterval, err = getDuration("TICK_INTERVAL", cfg.TickInterval); err != nil {
		return nil, err
	}
	if v := os.Getenv("HER_SCHEDULER_STATE_PUBLISH_MIN_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HER_SCHEDULER_STATE_PUBLISH_MIN_INTERVAL_SECONDS: %w", err)
		}
		cfg.SchedulerStateMinPublishInterval = time.Duration(secs) * time.Second
	}
	if cfg.WorkflowHTTPTimeout, err = getDuration("WORKFLOW_HTTP_TIMEOUT", cfg.WorkflowHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.WorkflowHTTPRetries, err = getInt("WORKFLOW_HTTP_RETRIES", cfg.WorkflowHTTPRetries); err != nil {
		return nil, err
	}
	if cfg.WorkflowEventQueueMaxSize, err = getInt("HER_WORKFLOW_EVENT_QUEUE_MAX_SIZE", cfg.WorkflowEventQueueMaxSize); err != nil {
		return nil, err
	}
	if cfg.TaskFailureBudget, err = getInt("TASK_FAILURE_BUDGET", cfg.TaskFailureBudget); err != nil {
		return nil, err
	}

	if v := os.Getenv("MCP_SERVER_START_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MCP_SERVER_START_TIMEOUT_SECONDS: %w", err)
		}
		cfg.ToolServerStartTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("HER_ACTION_INTENT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid HER_ACTION_INTENT_THRESHOLD: %w", err)
		}
		cfg.ActionIntentThreshold = f
	}
	if cfg.AutonomousMaxSteps, err = getInt("HER_AUTONOMOUS_MAX_STEPS", cfg.AutonomousMaxSteps); err != nil {
		return nil, err
	}
	if cfg.SandboxCommandTimeout, err = getDuration("SANDBOX_COMMAND_TIMEOUT", cfg.SandboxCommandTimeout); err != nil {
		return nil, err
	}
	if v := os.Getenv("MEMORY_STRICT_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MEMORY_STRICT_MODE: %w", err)
		}
		cfg.MemoryStrictMode = b
	}
	if cfg.TelegramPublicRateLimitPerMinute, err = getInt("TELEGRAM_PUBLIC_RATE_LIMIT_PER_MINUTE", cfg.TelegramPublicRateLimitPerMinute); err != nil {
		return nil, err
	}
	if v := os.Getenv("SANDBOX_ENFORCE_LANDLOCK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SANDBOX_ENFORCE_LANDLOCK: %w", err)
		}
		cfg.SandboxEnforce = b
	}

	return cfg, nil
}

// toolServerSpecFile is the YAML shape of the MCP server fleet
// configuration file.
type toolServerSpecFile struct {
	Servers []store.ToolServerSpec `yaml:"servers"`
}

// LoadToolServerSpecs reads the boot-time tool server fleet from a YAML
// file. A missing file yields an empty fleet rather than an error,
// since a deployment with no supervised tool servers is valid.
func LoadToolServerSpecs(path string) ([]store.ToolServerSpec, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mcp servers config %s: %w", path, err)
	}
	var file toolServerSpecFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse mcp servers config %s: %w", path, err)
	}
	return file.Servers, nil
}

func getStr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func getDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
