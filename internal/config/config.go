package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// 前端按环境区分的后端地址
const (
	DevBaseURL  = "http://localhost:8123"
	ProdBaseURL = "http://pic.codingseed.site"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config 聚合客户端与本地开发服务的配置项。
type Config struct {
	Client  ClientConfig
	Storage StorageConfig
	Server  ServerConfig
	AI      AIConfig
	Log     LogConfig
}

// Load 从环境变量加载配置，PICTURE_CONFIG 指向的 YAML 文件提供默认值。
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("PICTURE_CONFIG")))
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig(file.Client)
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig(file.Storage)
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file.Server)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig(file.Log)
	if err != nil {
		return nil, err
	}

	return &Config{Client: client, Storage: storage, Server: server, AI: ai, Log: logCfg}, nil
}

// fileConfig is the optional YAML layer. Empty values fall through to the
// built-in defaults; environment variables always win.
type fileConfig struct {
	Client  fileClient  `yaml:"client"`
	Storage fileStorage `yaml:"storage"`
	Server  fileServer  `yaml:"server"`
	Log     fileLog     `yaml:"log"`
}

type fileClient struct {
	Env         string `yaml:"env"`
	BaseURL     string `yaml:"base_url"`
	Timeout     int    `yaml:"timeout"`
	ChatIDParam string `yaml:"chat_id_param"`
	Location    string `yaml:"location"`
}

type fileStorage struct {
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

type fileServer struct {
	Addr string `yaml:"addr"`
}

type fileLog struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, errors.Wrapf(err, "parse config file %s", path)
	}
	return fc, nil
}

// ClientConfig 描述访问后端的客户端配置。
type ClientConfig struct {
	Env     string
	BaseURL string
	Timeout time.Duration
	// ChatIDParam is the query parameter carrying the conversation id on the
	// streaming endpoint: "chatId" or "memoryId".
	ChatIDParam string
	// Location is the page location the client starts on.
	Location string
}

// IsDevelopment 表示是否处于开发环境。
func (c ClientConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func loadClientConfig(fc fileClient) (ClientConfig, error) {
	env := strings.ToLower(getEnvOrDefault("APP_ENV", firstNonEmpty(fc.Env, EnvDevelopment)))
	switch env {
	case "dev":
		env = EnvDevelopment
	case "prod":
		env = EnvProduction
	}
	if env != EnvDevelopment && env != EnvProduction {
		return ClientConfig{}, errors.Errorf("invalid APP_ENV value: %q", env)
	}

	baseURL := DevBaseURL
	if env == EnvProduction {
		baseURL = ProdBaseURL
	}
	baseURL = strings.TrimRight(getEnvOrDefault("PICTURE_BASE_URL", firstNonEmpty(fc.BaseURL, baseURL)), "/")

	timeoutSeconds := 60
	if fc.Timeout > 0 {
		timeoutSeconds = fc.Timeout
	}
	timeout, err := parseOptionalIntEnv("PICTURE_TIMEOUT")
	if err != nil {
		return ClientConfig{}, err
	}
	if timeout != nil {
		if *timeout < 1 {
			return ClientConfig{}, errors.Errorf("invalid PICTURE_TIMEOUT value: %d", *timeout)
		}
		timeoutSeconds = *timeout
	}

	param := getEnvOrDefault("PICTURE_CHAT_ID_PARAM", firstNonEmpty(fc.ChatIDParam, "chatId"))
	if param != "chatId" && param != "memoryId" {
		return ClientConfig{}, errors.Errorf("invalid PICTURE_CHAT_ID_PARAM value: %q", param)
	}

	return ClientConfig{
		Env:         env,
		BaseURL:     baseURL,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		ChatIDParam: param,
		Location:    getEnvOrDefault("PICTURE_LOCATION", firstNonEmpty(fc.Location, "/")),
	}, nil
}

// StorageConfig 描述登录态的本地持久化位置。
type StorageConfig struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

func loadStorageConfig(fc fileStorage) (StorageConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("PICTURE_STORAGE", firstNonEmpty(fc.Driver, "file")))

	defaultPath := ""
	switch driver {
	case "file":
		defaultPath = defaultStatePath("storage.json")
	case "sqlite":
		defaultPath = defaultStatePath("storage.db")
	}

	db := fc.RedisDB
	dbOverride, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return StorageConfig{}, err
	}
	if dbOverride != nil {
		db = *dbOverride
	}

	return StorageConfig{
		Driver:        driver,
		Path:          getEnvOrDefault("PICTURE_STORAGE_PATH", firstNonEmpty(fc.Path, defaultPath)),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", firstNonEmpty(fc.RedisAddr, "localhost:6379")),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", fc.RedisPassword),
		RedisDB:       db,
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", fc.RedisPrefix),
	}, nil
}

func defaultStatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".leo-picture", name)
	}
	return filepath.Join(home, ".leo-picture", name)
}

// ServerConfig 描述本地开发服务的监听配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(fc fileServer) (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = firstNonEmpty(fc.Addr, "8123")
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8123" 或 "127.0.0.1:8123"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, errors.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述开发服务所用大模型的配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig(fc fileLog) (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", fc.Pretty)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", firstNonEmpty(fc.Level, "info")),
		Pretty: pretty,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s value %q", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value %q", key, value)
	}
	return &val, nil
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
		return nil, errors.Wrapf(err, "invalid %s value %q", key, value)
	}
	return &val, nil
}
