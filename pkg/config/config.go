package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"fieldaudit/internal/business/detect"
)

// Config 全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lmstfy    LmstfyConfig    `mapstructure:"lmstfy"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Detection DetectionConfig `mapstructure:"detection"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug/release/test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// AuthConfig 触发接口鉴权
type AuthConfig struct {
	SchedulerSecret string   `mapstructure:"scheduler_secret"` // X-Scheduler-Secret
	AdminTokens     []string `mapstructure:"admin_tokens"`     // Authorization: Bearer <token>
}

// DetectionConfig 检测运行配置
type DetectionConfig struct {
	WindowDays    int               `mapstructure:"window_days"`
	Timezone      string            `mapstructure:"timezone"` // 判断"同一天"使用的时区
	Parallel      bool              `mapstructure:"parallel"`
	RunLockKey    string            `mapstructure:"run_lock_key"`
	RunLockTTL    time.Duration     `mapstructure:"run_lock_ttl"`
	NotifyChannel string            `mapstructure:"notify_channel"`
	Thresholds    detect.Thresholds `mapstructure:"thresholds"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 加载配置文件
// 未配置的项使用默认值（检测阈值默认值见 detect.DefaultThresholds）
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	cfg := Config{
		Detection: DetectionConfig{Thresholds: detect.DefaultThresholds()},
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cfg.Detection.Thresholds.Location = loc

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fieldaudit")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.conn_max_lifetime", time.Hour)

	v.SetDefault("detection.window_days", 7)
	v.SetDefault("detection.timezone", "UTC")
	v.SetDefault("detection.parallel", true)
	v.SetDefault("detection.run_lock_key", "fieldaudit:anomaly_scan:lock")
	v.SetDefault("detection.run_lock_ttl", 10*time.Minute)
	v.SetDefault("detection.notify_channel", "anomaly_scan_complete")
}

// Location 解析检测时区
func (c *Config) Location() (*time.Location, error) {
	if c.Detection.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Detection.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid detection.timezone %q: %w", c.Detection.Timezone, err)
	}
	return loc, nil
}

// ValidateCommon 两个进程共用的校验
func (c *Config) ValidateCommon() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Detection.WindowDays <= 0 {
		return fmt.Errorf("detection.window_days must be positive")
	}
	if c.Detection.Thresholds.ImpossibleTravel.MaxSpeedKmh <= 0 {
		return fmt.Errorf("detection.thresholds.impossible_travel.max_speed_kmh must be positive")
	}
	return nil
}

// Validate 验证 worker 配置
func (c *Config) Validate() error {
	if err := c.ValidateCommon(); err != nil {
		return err
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	for _, w := range c.Workers {
		if w.QueueName == "" {
			return fmt.Errorf("worker %s: queue_name is required", w.Name)
		}
	}
	return nil
}

// ValidateServer 验证 apiserver 配置
func (c *Config) ValidateServer() error {
	if err := c.ValidateCommon(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Auth.SchedulerSecret == "" && len(c.Auth.AdminTokens) == 0 {
		return fmt.Errorf("auth.scheduler_secret or auth.admin_tokens is required")
	}
	return nil
}
