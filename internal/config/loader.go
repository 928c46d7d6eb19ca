/**
 * 配置:配置加载器
 * @author: sun977
 * @date: 2025.11.08
 * @description: 基于viper的配置文件加载，支持环境变量覆盖和多环境配置文件
 * @func: LoadConfig、环境变量绑定、配置验证、默认值填充
 */
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置文件
// configPath: 配置文件路径，如果为空则使用默认路径
// env: 环境标识，支持 development, test, production
func LoadConfig(configPath, env string) (*Config, error) {
	// 设置默认环境
	if env == "" {
		env = getEnvFromEnvironment()
	}

	// 创建viper实例
	v := viper.New()

	// 设置配置文件类型
	v.SetConfigType("yaml")

	// 设置配置文件路径
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// 根据环境选择配置文件
	configFile := getConfigFileName(configPath, env)
	v.SetConfigFile(configFile)

	// 设置环境变量前缀
	v.SetEnvPrefix("NEOHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 绑定环境变量
	bindEnvironmentVariables(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	// 解析配置到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 填充默认值
	applyDefaults(&config)

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 设置全局配置
	GlobalConfig = &config

	return &config, nil
}

// getEnvFromEnvironment 从环境变量获取环境标识
func getEnvFromEnvironment() string {
	env := os.Getenv("NEOHUB_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development" // 默认开发环境
	}
	return env
}

// getDefaultConfigPath 获取默认配置文件路径
func getDefaultConfigPath() string {
	// 尝试从环境变量获取配置路径
	if configPath := os.Getenv("NEOHUB_CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// 使用默认路径
	return "configs"
}

// getConfigFileName 根据环境获取配置文件名
func getConfigFileName(configPath, env string) string {
	var configFile string

	switch env {
	case "production", "prod":
		configFile = filepath.Join(configPath, "config.prod.yaml")
	case "test", "testing":
		configFile = filepath.Join(configPath, "config.test.yaml")
	default:
		configFile = filepath.Join(configPath, "config.yaml")
	}

	// 检查文件是否存在，如果不存在则使用默认配置文件
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		defaultConfig := filepath.Join(configPath, "config.yaml")
		if _, err := os.Stat(defaultConfig); err == nil {
			return defaultConfig
		}
	}

	return configFile
}

// bindEnvironmentVariables 绑定环境变量
func bindEnvironmentVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.host", "NEOHUB_SERVER_HOST")
	v.BindEnv("server.port", "NEOHUB_SERVER_PORT")
	v.BindEnv("server.mode", "NEOHUB_SERVER_MODE")

	// 调度中心配置
	v.BindEnv("hub.bind_addr", "NEOHUB_BIND_ADDR")
	v.BindEnv("hub.client_log_dir", "NEOHUB_CLIENT_LOG_DIR")

	// 数据库配置
	v.BindEnv("database.mongo.uri", "NEOHUB_MONGO_URI")
	v.BindEnv("database.mongo.database", "NEOHUB_MONGO_DATABASE")

	// 日志配置
	v.BindEnv("log.level", "NEOHUB_LOG_LEVEL")
	v.BindEnv("log.file_path", "NEOHUB_LOG_FILE_PATH")

	// 安全配置
	v.BindEnv("security.cors.allow_origins", "NEOHUB_CORS_ALLOW_ORIGINS")
}

// applyDefaults 填充缺省配置
func applyDefaults(config *Config) {
	if config.Hub.TailPollInterval <= 0 {
		config.Hub.TailPollInterval = 500 * time.Millisecond
	}
	if config.Hub.LogQueryLimit <= 0 {
		config.Hub.LogQueryLimit = 100
	}
	if config.Hub.ClientLogDir == "" {
		config.Hub.ClientLogDir = "logs_server"
	}
	if config.Database.Mongo.ConnectTimeout <= 0 {
		config.Database.Mongo.ConnectTimeout = 5 * time.Second
	}
	if config.Database.Mongo.OperationTimeout <= 0 {
		config.Database.Mongo.OperationTimeout = 5 * time.Second
	}
	if config.Database.Mongo.ClientsCollection == "" {
		config.Database.Mongo.ClientsCollection = "clients"
	}
	if config.Database.Mongo.TasksCollection == "" {
		config.Database.Mongo.TasksCollection = "tasks"
	}
	if config.Database.Mongo.LogsCollection == "" {
		config.Database.Mongo.LogsCollection = "client_logs"
	}
	if config.Database.Mongo.ResultsCollection == "" {
		config.Database.Mongo.ResultsCollection = "task_results"
	}
	if config.Database.Mongo.APIKeysCollection == "" {
		config.Database.Mongo.APIKeysCollection = "api_keys"
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	// 验证服务器配置
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.Mode != "debug" && config.Server.Mode != "release" && config.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	// 验证调度中心配置
	if config.Hub.BindAddr == "" {
		return fmt.Errorf("hub bind_addr is required")
	}
	if !strings.HasPrefix(config.Hub.BindAddr, "tcp://") && !strings.HasPrefix(config.Hub.BindAddr, "ipc://") {
		return fmt.Errorf("invalid hub bind_addr: %s", config.Hub.BindAddr)
	}

	// 验证数据库配置
	if config.Database.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if config.Database.Mongo.Database == "" {
		return fmt.Errorf("mongo database name is required")
	}

	// 验证日志配置
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, config.Log.Level) {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Log.Format) {
		return fmt.Errorf("invalid log format: %s", config.Log.Format)
	}

	return nil
}

// contains 检查字符串切片是否包含指定字符串
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
