/**
 * 配置:应用配置结构
 * @author: sun977
 * @date: 2025.11.08
 * @description: NeoHub应用配置结构体定义
 * @func: Config及各子配置结构体 [这里的字段和配置文件中一级字段保持一致，否则会没有值]
 */
package config

import "time"

// Config 应用配置结构体
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`     // HTTP服务器配置
	Hub      HubConfig      `yaml:"hub" mapstructure:"hub"`           // 调度中心配置
	Database DatabaseConfig `yaml:"database" mapstructure:"database"` // 数据库配置
	Log      LogConfig      `yaml:"log" mapstructure:"log"`           // 日志配置
	Security SecurityConfig `yaml:"security" mapstructure:"security"` // 安全配置
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`                         // 服务器主机地址
	Port           int           `yaml:"port" mapstructure:"port"`                         // 服务器端口
	Mode           string        `yaml:"mode" mapstructure:"mode"`                         // 运行模式: debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 读取超时时间
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 写入超时时间
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // 空闲超时时间
	MaxHeaderBytes int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"` // 最大请求头字节数
}

// HubConfig 调度中心配置
type HubConfig struct {
	BindAddr         string        `yaml:"bind_addr" mapstructure:"bind_addr"`                   // ROUTER socket监听地址(tcp://0.0.0.0:5555)
	ClientLogDir     string        `yaml:"client_log_dir" mapstructure:"client_log_dir"`         // 客户端文本日志目录
	TailPollInterval time.Duration `yaml:"tail_poll_interval" mapstructure:"tail_poll_interval"` // 实时输出流轮询间隔
	LogQueryLimit    int           `yaml:"log_query_limit" mapstructure:"log_query_limit"`       // 日志查询默认条数上限
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Mongo MongoConfig `yaml:"mongo" mapstructure:"mongo"` // MongoDB配置
}

// MongoConfig MongoDB配置
type MongoConfig struct {
	URI               string        `yaml:"uri" mapstructure:"uri"`                               // 连接URI
	Database          string        `yaml:"database" mapstructure:"database"`                     // 数据库名
	ConnectTimeout    time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`       // 连接超时
	OperationTimeout  time.Duration `yaml:"operation_timeout" mapstructure:"operation_timeout"`   // 单次操作超时
	ClientsCollection string        `yaml:"clients_collection" mapstructure:"clients_collection"` // 客户端集合名
	TasksCollection   string        `yaml:"tasks_collection" mapstructure:"tasks_collection"`     // 任务集合名
	LogsCollection    string        `yaml:"logs_collection" mapstructure:"logs_collection"`       // 客户端日志集合名
	ResultsCollection string        `yaml:"results_collection" mapstructure:"results_collection"` // 聚合结果集合名
	APIKeysCollection string        `yaml:"api_keys_collection" mapstructure:"api_keys_collection"` // API密钥集合名
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式: json, text
	Output     string `yaml:"output" mapstructure:"output"`           // 输出方式: stdout, stderr, file
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 保留的日志文件数量
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩日志文件
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"` // 认证配置
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"` // CORS配置
}

// AuthConfig 认证配置
// StaticAPIKeys 是MongoDB不可用时的兜底密钥集合(来自配置文件)
type AuthConfig struct {
	StaticAPIKeys []string `yaml:"static_api_keys" mapstructure:"static_api_keys"` // 静态API密钥列表
}

// CORSConfig CORS配置
type CORSConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`                     // 是否启用CORS
	AllowAllOrigins bool     `yaml:"allow_all_origins" mapstructure:"allow_all_origins"` // 是否允许所有源
	AllowOrigins    []string `yaml:"allow_origins" mapstructure:"allow_origins"`         // 允许的源
}
