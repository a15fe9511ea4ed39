// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Credits                 `yaml:"credits"`
	PaymentProvider         `yaml:"payment_provider"`
	ObjectStorage           `yaml:"object_storage"`
	Analyzer                `yaml:"analyzer"`
	Expirer                 `yaml:"expirer"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// RateLimit запросов в секунду на пользователя, Burst размер всплеска.
	RateLimit float64 `yaml:"rate_limit" env-default:"5"`
	Burst     int     `yaml:"burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для проверки jwt-токена
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ параметры подключения к брокеру событий
type RabbitMQ struct {
	URL     string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries int           `yaml:"retries" env-default:"5"`
	Delay   time.Duration `yaml:"delay" env-default:"2s"`
}

// Credits параметры движка кредитов
type Credits struct {
	CacheTTL       time.Duration `yaml:"cache_ttl" env-default:"1m"`
	ConsumeRetries int           `yaml:"consume_retries" env-default:"5"`
}

// PaymentProvider параметры платёжного провайдера
type PaymentProvider struct {
	BaseURL       string        `yaml:"base_url" env-default:"https://api.mercadopago.com"`
	AccessToken   string        `yaml:"access_token" env:"MP_ACCESS_TOKEN"`
	WebhookSecret string        `yaml:"webhook_secret" env:"MP_WEBHOOK_SECRET"`
	NotifyURL     string        `yaml:"notify_url"`
	SuccessURL    string        `yaml:"success_url"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

// ObjectStorage параметры S3-совместимого хранилища изображений
type ObjectStorage struct {
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Region    string `yaml:"region" env-default:"us-east-1"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
}

// Analyzer параметры модели анализа изображений
type Analyzer struct {
	APIKey     string        `yaml:"api_key" env:"ANALYZER_API_KEY"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model" env-default:"gpt-4o-mini"`
	Timeout    time.Duration `yaml:"timeout" env-default:"60s"`
	MaxRetries int           `yaml:"max_retries" env-default:"3"`
	BaseDelay  time.Duration `yaml:"base_delay" env-default:"1s"`
}

// Expirer параметры планировщика истечения кредитов
type Expirer struct {
	Schedule       string `yaml:"schedule" env-default:"0 */5 * * * *"`
	MetricsAddress string `yaml:"metrics_address" env-default:":9091"`
}

// Load читает конфиг из файла path с подстановкой переменных окружения.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	// без секрета подпись вебхука не проверяется, в prod это недопустимо
	if cfg.Env == "prod" && cfg.WebhookSecret == "" {
		return nil, errors.New("payment_provider.webhook_secret is required in prod")
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"Credits:\n"+
			"  CacheTTL: %s\n"+
			"  ConsumeRetries: %d\n"+
			"PaymentProvider:\n"+
			"  BaseURL: %s\n"+
			"  AccessToken: %s\n"+
			"ObjectStorage:\n"+
			"  Endpoint: %s\n"+
			"  Bucket: %s\n"+
			"Analyzer:\n"+
			"  Model: %s\n"+
			"Expirer:\n"+
			"  Schedule: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		c.AddressRedis,
		mask(c.RedisConnection.Password),
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		mask(c.JWTSecretKey),
		mask(c.RabbitMQ.URL),
		c.CacheTTL,
		c.ConsumeRetries,
		c.PaymentProvider.BaseURL,
		mask(c.AccessToken),
		c.Endpoint,
		c.Bucket,
		c.Model,
		c.Schedule,
	)
}
