package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个客户端的配置项。
type Config struct {
	Helpdesk HelpdeskConfig
	Server   ServerConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	helpdesk, err := loadHelpdeskConfig()
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Helpdesk: helpdesk, Server: server, Log: logCfg}, nil
}

// HelpdeskConfig 描述远端客服后端（/history 与 /chat）的连接配置。
type HelpdeskConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxImageBytes int64
	MaxTotalBytes int64
}

// ServerConfig 描述本地 widget bridge 的 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadHelpdeskConfig() (HelpdeskConfig, error) {
	baseURL := getEnvOrDefault("HELPDESK_BASE_URL", "http://127.0.0.1:5000")
	if err := validateBaseURL(baseURL); err != nil {
		return HelpdeskConfig{}, err
	}

	timeoutSeconds := 90
	if override, err := parseOptionalIntEnv("HELPDESK_TIMEOUT_SECONDS"); err != nil {
		return HelpdeskConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return HelpdeskConfig{}, fmt.Errorf("invalid HELPDESK_TIMEOUT_SECONDS value %d: must be positive", *override)
		}
		timeoutSeconds = *override
	}

	imageMB, err := parsePositiveIntEnv("HELPDESK_MAX_IMAGE_MB", 3)
	if err != nil {
		return HelpdeskConfig{}, err
	}

	uploadMB, err := parsePositiveIntEnv("HELPDESK_MAX_UPLOAD_MB", 20)
	if err != nil {
		return HelpdeskConfig{}, err
	}

	return HelpdeskConfig{
		BaseURL:       baseURL,
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		MaxImageBytes: int64(imageMB) << 20,
		MaxTotalBytes: int64(uploadMB) << 20,
	}, nil
}

// loadServerConfig 解析本地监听地址。
func loadServerConfig() (ServerConfig, error) {
	addr, err := ParseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))
	return ServerConfig{Addr: addr, AllowedOrigins: origins}, nil
}

// ParseAddr 接受 "8080"、":8080" 或 "127.0.0.1:8080"，空值默认 :8080。
func ParseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid PORT value %q: %w", port, err)
	}
	return ":" + port, nil
}

func loadLogConfig() (LogConfig, error) {
	level := strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	switch level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q", level)
	}

	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console"))
	if format != "console" && format != "json" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q", format)
	}

	return LogConfig{Level: level, Format: format}, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid HELPDESK_BASE_URL value %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid HELPDESK_BASE_URL value %q: need http(s)://host", raw)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val < 1 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *val)
	}
	return *val, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
