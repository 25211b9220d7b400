package config

import (
	"sync"
	"time"
)

type Config struct {
	Env            string           `yaml:"env" env:"ENV" env-default:"local"`
	Timezone       string           `yaml:"timezone" env:"TIMEZONE" env-default:"Asia/Bangkok"`
	HttpServer     HttpServerConfig `yaml:"httpServer" env-required:"true"`
	DBConfig       DBConfig         `yaml:"db" env-required:"true"`
	AuthConfig     AuthConfig       `yaml:"auth"`
	StorageConfig  StorageConfig    `yaml:"storage"`
	CacheConfig    CacheConfig      `yaml:"cache"`
	MapConfig      MapConfig        `yaml:"map"`
	BotConfig      BotConfig        `yaml:"bot"`
	ScraperConfig  ScraperConfig    `yaml:"scraper"`
	ConfigFilePath string           `yaml:"configFilePath" env:"CONFIG_FILEPATH" env-default:""`
	ConfigFileName string           `yaml:"configFileName" env:"CONFIG_FILENAME" env-default:""`
	configPath     string

	// aiMu защищает BotConfig.AI.ModelName и SystemRolePrompt: их меняет бот,
	// а читают воркеры AI.
	aiMu sync.RWMutex
}

type HttpServerConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost"`
	Port           string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env-default:"*"`
}

type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

// AuthConfig: настройки входа в админку.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwtSecret" env:"JWT_SECRET" env-default:"secret"`
	TokenTTL      time.Duration `yaml:"tokenTTL" env:"JWT_TTL" env-default:"12h"`
	AdminEmail    string        `yaml:"adminEmail" env:"ADMIN_EMAIL" env-default:""`
	AdminPassword string        `yaml:"adminPassword" env:"ADMIN_PASSWORD" env-default:""`
}

// StorageConfig: S3-совместимое хранилище картинок.
type StorageConfig struct {
	Bucket        string `yaml:"bucket" env:"S3_BUCKET" env-default:""`
	Region        string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:""`
	AccessKey     string `yaml:"accessKey" env:"S3_ACCESS_KEY" env-default:""`
	SecretKey     string `yaml:"secretKey" env:"S3_SECRET_KEY" env-default:""`
	UsePathStyle  bool   `yaml:"usePathStyle" env:"S3_PATH_STYLE" env-default:"false"`
	PublicBaseURL string `yaml:"publicBaseURL" env:"S3_PUBLIC_URL" env-default:""`
	MaxUploadSize int64  `yaml:"maxUploadSize" env-default:"5242880"` // in bytes
}

type CacheConfig struct {
	Address  string        `yaml:"address" env:"REDIS_ADDR" env-default:""`
	Password string        `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"2m"`
}

// MapConfig: параметры карты мероприятий.
type MapConfig struct {
	PadRatio      float64           `yaml:"padRatio" env-default:"0.5"`
	MaxMarkers    int               `yaml:"maxMarkers" env-default:"200"`
	IconBaseURL   string            `yaml:"iconBaseURL" env-default:"/static/markers"`
	DefaultColor  string            `yaml:"defaultColor" env-default:"#7c3aed"`
	CategoryColor map[string]string `yaml:"categoryColor"`
}

type AIConfig struct {
	Enabled          bool    `yaml:"enabled" env:"AI_ENABLED" env-default:"false"`
	Timeout          int     `yaml:"timeout" env:"AI_TIMEOUT" env-default:"600"` //in seconds
	ModelName        string  `yaml:"modelName" env:"AI_MODEL_NAME" env-default:""`
	AIApiToken       string  `yaml:"aiapitoken" env:"AI_API_TOKEN" env-default:""`
	SystemRolePrompt string  `yaml:"systemRolePrompt" env-default:""`
	PromptFilePath   string  `yaml:"promptFilePath" env:"PROMPT_FILEPATH" env-default:""`
	PromptFileName   string  `yaml:"promptFileName" env:"PROMPT_FILENAME" env-default:""`
	MaxTokens        int     `yaml:"maxTokens" env-default:"4000"`
	Temperature      float32 `yaml:"temperature" env-default:"0.3"`
	JobBufferSize    int     `yaml:"jobBufferSize" env:"AI_BUFFER_SIZE" env-default:"10"`
	WorkersCount     int     `yaml:"workersCount" env:"AI_WORKERS_COUNT" env-default:"1"`
}

type BotConfig struct {
	Enabled       bool     `yaml:"enabled" env:"TGBOT_ENABLED" env-default:"false"`
	Admins        []string `yaml:"admins"`
	ChannelIDs    []int64  `yaml:"channelIDs"`
	TgbotApiToken string   `yaml:"tgbot_apitoken" env:"TGBOT_APITOKEN" env-default:""`
	AI            AIConfig `yaml:"AI"`
}

// SourceConfig описывает источник для импорта.
type SourceConfig struct {
	Name     string `yaml:"name"`     // Имя скрапера: "mec", "rss" или "rss-full"
	URL      string `yaml:"url"`      // Адрес страницы или ленты
	Category string `yaml:"category"` // Категория по умолчанию для черновиков
}

type ScraperConfig struct {
	Enabled       bool           `yaml:"enabled" env:"SCRAPER_ENABLED" env-default:"false"`
	Schedule      string         `yaml:"schedule" env:"SCRAPER_SCHEDULE" env-default:"@every 6h"` // cron-выражение, пустое значение отключает расписание
	RunOnStart    bool           `yaml:"runOnStart" env:"SCRAPER_RUN_ON_START" env-default:"true"`
	JobBufferSize int            `yaml:"jobBufferSize" env:"SCRAPER_JOB_BUFFER_SIZE" env-default:"10"`
	WorkersCount  int            `yaml:"workersCount" env:"SCRAPER_WORKERS_COUNT" env-default:"3"`
	Timeout       int            `yaml:"timeout" env:"SCRAPER_TIMEOUT" env-default:"600"` //in seconds
	Sources       []SourceConfig `yaml:"sources"`
}
