package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Converter ConverterConfig `mapstructure:"converter"`
	Session   SessionConfig   `mapstructure:"session"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis_service"`
	Admin     AdminConfig     `mapstructure:"admin"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Client    ClientConfig    `mapstructure:"client"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	UploadsDir  string `mapstructure:"uploads_dir"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

// ConverterConfig 文档转换配置
type ConverterConfig struct {
	// Engine 可选 native(进程内转换) 或 soffice(外部进程转换)
	Engine         string `mapstructure:"engine"`
	SofficeBin     string `mapstructure:"soffice_bin"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRows        int    `mapstructure:"max_rows"`
	MaxCols        int    `mapstructure:"max_cols"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// GetTimeout 获取外部转换超时时间
func (c *ConverterConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig 会话Cookie配置
type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Secure     bool   `mapstructure:"secure"`
}

// GetMaxAge 获取Cookie有效期(秒)
func (s *SessionConfig) GetMaxAge() int {
	return s.MaxAgeDays * 24 * 3600
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// GetExpireDuration 获取过期时间
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// RedisConfig Redis配置(可选,用于登录限流和转换并发控制)
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	LoginAttempts int    `mapstructure:"login_attempts"`
	LoginWindow   int    `mapstructure:"login_window"`
}

// Enabled Redis是否启用
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GetLoginWindow 获取登录限流窗口
func (r *RedisConfig) GetLoginWindow() time.Duration {
	return time.Duration(r.LoginWindow) * time.Second
}

// AdminConfig 管理员配置
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// ClientConfig 客户端(服务端渲染前端)配置
type ClientConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	APIBaseURL   string `mapstructure:"api_base_url"`
	TemplatesDir string `mapstructure:"templates_dir"`
}
